package core

import (
	"fmt"
	"strings"
)

const (
	RETURN_SLOT_NAME = "return"
)

type ScopeKind uint8

const (
	GlobalScope ScopeKind = iota
	ParamScope
	LocalScope
)

func (k ScopeKind) String() string {
	switch k {
	case GlobalScope:
		return "global"
	case ParamScope:
		return "param"
	case LocalScope:
		return "local"
	}
	return fmt.Sprintf("ScopeKind(%d)", uint8(k))
}

// A Symbol is a named (or anonymous) storage slot of a scope.
type Symbol struct {
	Name        string //empty for anonymous constants (string literals)
	Type        ValueType
	Scope       ScopeKind
	Constant    bool
	Initialized bool
	Offset      int

	//bytes stored in the global slot: function names and string literals.
	//Nil for variables, they are stored as eight zero bytes.
	Payload []byte
}

func (s *Symbol) IsAnonymous() bool {
	return s.Name == ""
}

// SymbolTable is one scope's storage area, offsets are indexes in declaration order.
type SymbolTable struct {
	kind    ScopeKind
	symbols []*Symbol
	names   map[string]*Symbol
}

func NewSymbolTable(kind ScopeKind) *SymbolTable {
	return &SymbolTable{
		kind:  kind,
		names: map[string]*Symbol{},
	}
}

// Declare adds a symbol at the next offset, it fails if name is already declared in this table.
func (t *SymbolTable) Declare(name string, typ ValueType, constant bool, initialized bool) (*Symbol, error) {
	if name == "" {
		panic(fmt.Errorf("a symbol declared in a %s table should have a name", t.kind))
	}
	if _, ok := t.names[name]; ok {
		return nil, fmt.Errorf("%w: %s '%s' is already declared", ErrDuplicateDeclaration, t.kind, name)
	}

	symbol := &Symbol{
		Name:        name,
		Type:        typ,
		Scope:       t.kind,
		Constant:    constant,
		Initialized: initialized,
		Offset:      len(t.symbols),
	}
	t.symbols = append(t.symbols, symbol)
	t.names[name] = symbol
	return symbol, nil
}

// DeclareAnonymous adds a constant that cannot be resolved by name.
func (t *SymbolTable) DeclareAnonymous(typ ValueType, payload []byte) *Symbol {
	symbol := &Symbol{
		Type:        typ,
		Scope:       t.kind,
		Constant:    true,
		Initialized: true,
		Offset:      len(t.symbols),
		Payload:     payload,
	}
	t.symbols = append(t.symbols, symbol)
	return symbol
}

// InsertReturnSlot inserts the synthetic return parameter at offset 0,
// the parameters declared so far move up by one slot.
func (t *SymbolTable) InsertReturnSlot(typ ValueType) *Symbol {
	if t.kind != ParamScope {
		panic(fmt.Errorf("return slot inserted in a %s table", t.kind))
	}
	if _, ok := t.names[RETURN_SLOT_NAME]; ok {
		panic(fmt.Errorf("return slot inserted twice"))
	}

	slot := &Symbol{
		Name:        RETURN_SLOT_NAME,
		Type:        typ,
		Scope:       ParamScope,
		Initialized: true,
	}

	for _, symbol := range t.symbols {
		symbol.Offset++
	}
	t.symbols = append([]*Symbol{slot}, t.symbols...)
	t.names[RETURN_SLOT_NAME] = slot
	return slot
}

func (t *SymbolTable) Resolve(name string) (*Symbol, bool) {
	symbol, ok := t.names[name]
	return symbol, ok
}

func (t *SymbolTable) Len() int {
	return len(t.symbols)
}

// Symbols returns the symbols in offset order.
func (t *SymbolTable) Symbols() []*Symbol {
	return t.symbols
}

func (t *SymbolTable) String() string {
	buf := strings.Builder{}
	for _, symbol := range t.symbols {
		name := symbol.Name
		if symbol.IsAnonymous() {
			name = fmt.Sprintf("%q", symbol.Payload)
		}
		fmt.Fprintf(&buf, "%s %04d %s %s", t.kind, symbol.Offset, name, symbol.Type)
		if symbol.Constant {
			buf.WriteString(" const")
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

// FunctionScope holds the two tables that live as long as the compilation of a function body.
type FunctionScope struct {
	Params *SymbolTable
	Locals *SymbolTable
}

// Scopes is the symbol context of a compilation: the global table, which persists
// for the whole compilation, and a stack of function scopes pushed on function entry
// and popped once the body has been compiled.
type Scopes struct {
	Globals   *SymbolTable
	functions []*FunctionScope
}

func NewScopes() *Scopes {
	return &Scopes{Globals: NewSymbolTable(GlobalScope)}
}

func (s *Scopes) EnterFunction() *FunctionScope {
	scope := &FunctionScope{
		Params: NewSymbolTable(ParamScope),
		Locals: NewSymbolTable(LocalScope),
	}
	s.functions = append(s.functions, scope)
	return scope
}

func (s *Scopes) LeaveFunction() *FunctionScope {
	if len(s.functions) == 0 {
		panic(fmt.Errorf("no function scope to leave"))
	}
	scope := s.functions[len(s.functions)-1]
	s.functions = s.functions[:len(s.functions)-1]
	return scope
}

func (s *Scopes) InFunction() bool {
	return len(s.functions) > 0
}

// Current returns the innermost function scope, nil outside function bodies.
func (s *Scopes) Current() *FunctionScope {
	if len(s.functions) == 0 {
		return nil
	}
	return s.functions[len(s.functions)-1]
}

// Resolve looks name up in the local, parameter and global tables, in that order.
// Outside a function body only the global table is searched.
func (s *Scopes) Resolve(name string) (*Symbol, bool) {
	if scope := s.Current(); scope != nil {
		if symbol, ok := scope.Locals.Resolve(name); ok {
			return symbol, true
		}
		if symbol, ok := scope.Params.Resolve(name); ok {
			return symbol, true
		}
	}
	return s.Globals.Resolve(name)
}

// Declare declares name in the local table inside a function body, in the global table otherwise.
func (s *Scopes) Declare(name string, typ ValueType, constant bool, initialized bool) (*Symbol, error) {
	if scope := s.Current(); scope != nil {
		return scope.Locals.Declare(name, typ, constant, initialized)
	}
	return s.Globals.Declare(name, typ, constant, initialized)
}
