package core

import (
	"slices"

	"golang.org/x/exp/maps"
)

// A Builtin is a standard library function lowered to a single navm instruction.
type Builtin struct {
	Name       string
	Op         Opcode
	Params     []ValueType
	ReturnType ValueType
}

var BUILTINS = map[string]Builtin{
	"getint":    {Name: "getint", Op: OpScanI, ReturnType: IntType},
	"getchar":   {Name: "getchar", Op: OpScanC, ReturnType: IntType},
	"getdouble": {Name: "getdouble", Op: OpScanF, ReturnType: DoubleType},
	"putint":    {Name: "putint", Op: OpPrintI, Params: []ValueType{IntType}, ReturnType: VoidType},
	"putchar":   {Name: "putchar", Op: OpPrintC, Params: []ValueType{IntType}, ReturnType: VoidType},
	"putdouble": {Name: "putdouble", Op: OpPrintF, Params: []ValueType{DoubleType}, ReturnType: VoidType},
	"putstr":    {Name: "putstr", Op: OpPrintS, Params: []ValueType{IntType}, ReturnType: VoidType},
	"putln":     {Name: "putln", Op: OpPrintLn, ReturnType: VoidType},
}

// BuiltinNames returns the sorted names of the builtins.
func BuiltinNames() []string {
	names := maps.Keys(BUILTINS)
	slices.Sort(names)
	return names
}

func (b Builtin) Signature() string {
	s := "fn " + b.Name + "("
	for i, param := range b.Params {
		if i > 0 {
			s += ", "
		}
		s += param.String()
	}
	return s + ") -> " + b.ReturnType.String()
}
