package core

import (
	"fmt"
	"strconv"
)

// Opcode is a navm instruction opcode, its value is the encoded byte.
type Opcode byte

const (
	OpNop        Opcode = 0x00
	OpPush       Opcode = 0x01
	OpPop        Opcode = 0x02
	OpPopN       Opcode = 0x03
	OpDup        Opcode = 0x04
	OpLocA       Opcode = 0x0a
	OpArgA       Opcode = 0x0b
	OpGlobA      Opcode = 0x0c
	OpLoad8      Opcode = 0x10
	OpLoad16     Opcode = 0x11
	OpLoad32     Opcode = 0x12
	OpLoad64     Opcode = 0x13
	OpStore8     Opcode = 0x14
	OpStore16    Opcode = 0x15
	OpStore32    Opcode = 0x16
	OpStore64    Opcode = 0x17
	OpAlloc      Opcode = 0x18
	OpFree       Opcode = 0x19
	OpStackAlloc Opcode = 0x1a
	OpAddI       Opcode = 0x20
	OpSubI       Opcode = 0x21
	OpMulI       Opcode = 0x22
	OpDivI       Opcode = 0x23
	OpAddF       Opcode = 0x24
	OpSubF       Opcode = 0x25
	OpMulF       Opcode = 0x26
	OpDivF       Opcode = 0x27
	OpDivU       Opcode = 0x28
	OpShl        Opcode = 0x29
	OpShr        Opcode = 0x2a
	OpAnd        Opcode = 0x2b
	OpOr         Opcode = 0x2c
	OpXor        Opcode = 0x2d
	OpNot        Opcode = 0x2e
	OpCmpI       Opcode = 0x30
	OpCmpU       Opcode = 0x31
	OpCmpF       Opcode = 0x32
	OpNegI       Opcode = 0x34
	OpNegF       Opcode = 0x35
	OpIToF       Opcode = 0x36
	OpFToI       Opcode = 0x37
	OpShrL       Opcode = 0x38
	OpSetLt      Opcode = 0x39
	OpSetGt      Opcode = 0x3a
	OpBr         Opcode = 0x41
	OpBrFalse    Opcode = 0x42
	OpBrTrue     Opcode = 0x43
	OpCall       Opcode = 0x48
	OpRet        Opcode = 0x49
	OpCallName   Opcode = 0x4a
	OpScanI      Opcode = 0x50
	OpScanC      Opcode = 0x51
	OpScanF      Opcode = 0x52
	OpPrintI     Opcode = 0x54
	OpPrintC     Opcode = 0x55
	OpPrintF     Opcode = 0x56
	OpPrintS     Opcode = 0x57
	OpPrintLn    Opcode = 0x58
	OpPanic      Opcode = 0xfe
)

var (
	OPCODE_NAMES = [256]string{
		OpNop:        "nop",
		OpPush:       "push",
		OpPop:        "pop",
		OpPopN:       "popn",
		OpDup:        "dup",
		OpLocA:       "loca",
		OpArgA:       "arga",
		OpGlobA:      "globa",
		OpLoad8:      "load.8",
		OpLoad16:     "load.16",
		OpLoad32:     "load.32",
		OpLoad64:     "load.64",
		OpStore8:     "store.8",
		OpStore16:    "store.16",
		OpStore32:    "store.32",
		OpStore64:    "store.64",
		OpAlloc:      "alloc",
		OpFree:       "free",
		OpStackAlloc: "stackalloc",
		OpAddI:       "add.i",
		OpSubI:       "sub.i",
		OpMulI:       "mul.i",
		OpDivI:       "div.i",
		OpAddF:       "add.f",
		OpSubF:       "sub.f",
		OpMulF:       "mul.f",
		OpDivF:       "div.f",
		OpDivU:       "div.u",
		OpShl:        "shl",
		OpShr:        "shr",
		OpAnd:        "and",
		OpOr:         "or",
		OpXor:        "xor",
		OpNot:        "not",
		OpCmpI:       "cmp.i",
		OpCmpU:       "cmp.u",
		OpCmpF:       "cmp.f",
		OpNegI:       "neg.i",
		OpNegF:       "neg.f",
		OpIToF:       "itof",
		OpFToI:       "ftoi",
		OpShrL:       "shrl",
		OpSetLt:      "set.lt",
		OpSetGt:      "set.gt",
		OpBr:         "br",
		OpBrFalse:    "br.false",
		OpBrTrue:     "br.true",
		OpCall:       "call",
		OpRet:        "ret",
		OpCallName:   "callname",
		OpScanI:      "scan.i",
		OpScanC:      "scan.c",
		OpScanF:      "scan.f",
		OpPrintI:     "print.i",
		OpPrintC:     "print.c",
		OpPrintF:     "print.f",
		OpPrintS:     "print.s",
		OpPrintLn:    "println",
		OpPanic:      "panic",
	}

	// OPCODE_OPERAND_WIDTHS gives the encoded size in bytes of the operand of each opcode,
	// 0 means the opcode has no operand.
	OPCODE_OPERAND_WIDTHS = [256]uint8{
		OpPush:       8,
		OpPopN:       4,
		OpLocA:       4,
		OpArgA:       4,
		OpGlobA:      4,
		OpStackAlloc: 4,
		OpBr:         4,
		OpBrFalse:    4,
		OpBrTrue:     4,
		OpCall:       4,
		OpCallName:   4,
	}
)

func (op Opcode) String() string {
	if name := OPCODE_NAMES[op]; name != "" {
		return name
	}
	return fmt.Sprintf("Opcode(0x%02x)", byte(op))
}

func (op Opcode) OperandWidth() int {
	return int(OPCODE_OPERAND_WIDTHS[op])
}

func (op Opcode) HasOperand() bool {
	return OPCODE_OPERAND_WIDTHS[op] != 0
}

// IsBranch reports whether the operand of the opcode is a relative instruction delta.
func (op Opcode) IsBranch() bool {
	return op == OpBr || op == OpBrFalse || op == OpBrTrue
}

// Label identifies a branch target that is not known yet when the branch is emitted.
type Label int32

const NO_LABEL Label = 0

// Instruction is an opcode with its operand. A branch emitted before its target is known
// has a pending operand: Target is set and Operand is meaningless until the function is linked.
type Instruction struct {
	Op      Opcode
	Operand int64
	Target  Label
}

// MakeInstruction creates a resolved instruction, it panics if the number of operands
// does not match the opcode.
func MakeInstruction(op Opcode, operands ...int64) Instruction {
	switch {
	case op.HasOperand() && len(operands) != 1:
		panic(fmt.Errorf("%s expects one operand, %d given", op, len(operands)))
	case !op.HasOperand() && len(operands) != 0:
		panic(fmt.Errorf("%s expects no operand, %d given", op, len(operands)))
	}

	inst := Instruction{Op: op}
	if len(operands) == 1 {
		inst.Operand = operands[0]
	}
	return inst
}

func (i Instruction) IsPending() bool {
	return i.Target != NO_LABEL
}

func (i Instruction) String() string {
	if !i.Op.HasOperand() {
		return i.Op.String()
	}
	if i.IsPending() {
		return i.Op.String() + " <L" + strconv.Itoa(int(i.Target)) + ">"
	}
	return i.Op.String() + " " + strconv.FormatInt(i.Operand, 10)
}

// FormatInstructions returns one line per instruction prefixed by its index.
func FormatInstructions(instructions []Instruction, posOffset int, prefix string) []string {
	var lines []string
	for i, inst := range instructions {
		lines = append(lines, fmt.Sprintf("%s%04d %s", prefix, posOffset+i, inst))
	}
	return lines
}
