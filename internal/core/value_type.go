package core

import "fmt"

// ValueType is the static type of a c0 value.
type ValueType uint8

const (
	VoidType ValueType = iota
	IntType
	DoubleType
)

const (
	VOID_TYPE_NAME   = "void"
	INT_TYPE_NAME    = "int"
	DOUBLE_TYPE_NAME = "double"
)

func (t ValueType) String() string {
	switch t {
	case VoidType:
		return VOID_TYPE_NAME
	case IntType:
		return INT_TYPE_NAME
	case DoubleType:
		return DOUBLE_TYPE_NAME
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// SlotCount returns the number of stack slots a value of the type occupies.
func (t ValueType) SlotCount() int {
	switch t {
	case VoidType:
		return 0
	case IntType, DoubleType:
		return 1
	}
	panic(fmt.Errorf("unknown value type %d", t))
}

func ValueTypeFromName(name string) (ValueType, bool) {
	switch name {
	case VOID_TYPE_NAME:
		return VoidType, true
	case INT_TYPE_NAME:
		return IntType, true
	case DOUBLE_TYPE_NAME:
		return DoubleType, true
	}
	return 0, false
}
