package core

import (
	"fmt"
	"strings"
)

const (
	ENTRY_FUNCTION_NAME = "_start"
	MAIN_FUNCTION_NAME  = "main"

	ENTRY_FUNCTION_SLOT = 0
)

// Function is a compiled function (FuncEntry).
type Function struct {
	Name        string
	NameSlot    int //global slot holding the name
	Slot        int //function table slot, operand of call instructions
	ReturnType  ValueType
	ReturnArity int
	ParamCount  int //the synthetic return slot is not counted
	LocalCount  int

	Instructions []Instruction

	//parameter table, including the return slot for non-void functions.
	Params []*Symbol
}

// ParamTypes returns the types of the declared parameters, the return slot excluded.
func (f *Function) ParamTypes() []ValueType {
	var types []ValueType
	for _, param := range f.Params[f.ReturnArity:] {
		types = append(types, param.Type)
	}
	return types
}

func (f *Function) InstructionCount() int {
	return len(f.Instructions)
}

func (f *Function) String() string {
	buf := strings.Builder{}
	fmt.Fprintf(&buf, "fn [%d] %s: name=%d ret=%d params=%d locals=%d body=%d\n",
		f.Slot, f.Name, f.NameSlot, f.ReturnArity, f.ParamCount, f.LocalCount, len(f.Instructions))

	for _, line := range FormatInstructions(f.Instructions, 0, "    ") {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.String()
}

// Program is the result of a successful compilation.
type Program struct {
	Globals   []*Symbol   //slot order, which is declaration order
	Functions []*Function //slot order, Functions[0] is the entry routine
}

func (p *Program) Entry() *Function {
	return p.Functions[ENTRY_FUNCTION_SLOT]
}

func (p *Program) Function(name string) (*Function, bool) {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}

func (p *Program) String() string {
	buf := strings.Builder{}
	for _, global := range p.Globals {
		switch {
		case global.IsAnonymous():
			fmt.Fprintf(&buf, "global [%d] const %q\n", global.Offset, global.Payload)
		case global.Constant:
			fmt.Fprintf(&buf, "global [%d] const %s: %s\n", global.Offset, global.Name, global.Type)
		default:
			fmt.Fprintf(&buf, "global [%d] %s: %s\n", global.Offset, global.Name, global.Type)
		}
	}
	for _, fn := range p.Functions {
		buf.WriteString(fn.String())
	}
	return buf.String()
}
