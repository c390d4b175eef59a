// Package o0 serializes compiled programs into navm o0 binary modules.
package o0

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/navmlang/navc/internal/core"
)

const (
	MAGIC   uint32 = 0x72303b3e
	VERSION uint32 = 0x00000001

	//size of the zero-filled value of a global variable.
	VARIABLE_SLOT_SIZE = 8
)

var (
	ErrPendingOperand   = errors.New("instruction has a pending operand")
	ErrOperandOverflow  = errors.New("operand does not fit in its encoding")
	ErrUnsupportedValue = errors.New("value cannot be encoded")
)

// Marshal encodes prog into a new byte slice.
func Marshal(prog *core.Program) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := Encode(buf, prog); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the o0 module of prog to w, all integers are big-endian.
//
//	magic u32, version u32
//	globals.count u32, { is_const u8, len u32, bytes[len] }*
//	functions.count u32, { name u32, ret_slots u32, param_slots u32, loc_slots u32,
//	                       body.count u32, { opcode u8, operand? }* }*
func Encode(w io.Writer, prog *core.Program) error {
	e := &encoder{w: bufio.NewWriter(w)}

	e.u32(MAGIC)
	e.u32(VERSION)

	e.count(len(prog.Globals))
	for _, global := range prog.Globals {
		e.global(global)
	}

	e.count(len(prog.Functions))
	for _, fn := range prog.Functions {
		e.function(fn)
	}

	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// encoder keeps the first error, the following writes are no-ops.
type encoder struct {
	w   *bufio.Writer
	err error
}

func (e *encoder) global(symbol *core.Symbol) {
	if symbol.Constant {
		e.u8(1)
	} else {
		e.u8(0)
	}

	if symbol.Payload == nil {
		e.u32(VARIABLE_SLOT_SIZE)
		e.write(make([]byte, VARIABLE_SLOT_SIZE))
		return
	}
	e.count(len(symbol.Payload))
	e.write(symbol.Payload)
}

func (e *encoder) function(fn *core.Function) {
	e.count(fn.NameSlot)
	e.count(fn.ReturnArity)
	e.count(fn.ParamCount)
	e.count(fn.LocalCount)
	e.count(len(fn.Instructions))

	for pos, inst := range fn.Instructions {
		if e.err != nil {
			return
		}
		if inst.IsPending() {
			e.err = fmt.Errorf("%w: %s at %04d in function %s", ErrPendingOperand, inst, pos, fn.Name)
			return
		}

		e.u8(byte(inst.Op))

		switch inst.Op.OperandWidth() {
		case 0:
		case 4:
			if inst.Operand < math.MinInt32 || inst.Operand > math.MaxUint32 {
				e.err = fmt.Errorf("%w: %s at %04d in function %s", ErrOperandOverflow, inst, pos, fn.Name)
				return
			}
			e.u32(uint32(inst.Operand))
		case 8:
			e.u64(uint64(inst.Operand))
		default:
			e.err = fmt.Errorf("%w: operand width %d of %s", ErrUnsupportedValue, inst.Op.OperandWidth(), inst.Op)
		}
	}
}

func (e *encoder) count(n int) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		if e.err == nil {
			e.err = fmt.Errorf("%w: count %d", ErrOperandOverflow, n)
		}
		return
	}
	e.u32(uint32(n))
}

func (e *encoder) u8(v byte) {
	if e.err == nil {
		e.err = e.w.WriteByte(v)
	}
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.write(b[:])
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.write(b[:])
}

func (e *encoder) write(b []byte) {
	if e.err == nil {
		_, e.err = e.w.Write(b)
	}
}
