package core

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/navmlang/navc/internal/parse"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileProgram(t *testing.T) {
	t.Parallel()

	t.Run("arithmetic precedence", func(t *testing.T) {
		prog := mustCompile(t, `fn main() -> int { return 1 + 2 * 3; }`)

		require.Len(t, prog.Functions, 2)
		require.Len(t, prog.Globals, 2)

		main := prog.Functions[1]
		assert.Equal(t, "main", main.Name)
		assert.Equal(t, 0, main.NameSlot)
		assert.Equal(t, 1, main.ReturnArity)
		assert.Equal(t, 0, main.ParamCount)
		assert.Equal(t, 0, main.LocalCount)

		expectInstructions(t, main,
			inst(OpArgA, 0),
			inst(OpPush, 1),
			inst(OpPush, 2),
			inst(OpPush, 3),
			inst(OpMulI),
			inst(OpAddI),
			inst(OpStore64),
			inst(OpRet),
		)

		entry := prog.Entry()
		assert.Equal(t, ENTRY_FUNCTION_NAME, entry.Name)
		assert.Equal(t, 1, entry.NameSlot)
		expectInstructions(t, entry,
			inst(OpStackAlloc, 1),
			inst(OpCall, 1),
			inst(OpPopN, 1),
		)

		assert.Equal(t, []byte("main"), prog.Globals[0].Payload)
		assert.Equal(t, []byte("_start"), prog.Globals[1].Payload)
	})

	t.Run("void main and builtins", func(t *testing.T) {
		prog := mustCompile(t, `fn main() -> void { putint(1); putln(); }`)

		expectInstructions(t, prog.Functions[1],
			inst(OpPush, 1),
			inst(OpPrintI),
			inst(OpPrintLn),
			inst(OpRet),
		)
		expectInstructions(t, prog.Entry(),
			inst(OpStackAlloc, 0),
			inst(OpCall, 1),
		)
	})

	t.Run("input builtins", func(t *testing.T) {
		prog := mustCompile(t, `fn main() -> void { putint(getint()); putchar(getchar()); putdouble(getdouble()); }`)

		expectInstructions(t, prog.Functions[1],
			inst(OpScanI),
			inst(OpPrintI),
			inst(OpScanC),
			inst(OpPrintC),
			inst(OpScanF),
			inst(OpPrintF),
			inst(OpRet),
		)
	})

	t.Run("if else", func(t *testing.T) {
		prog := mustCompile(t, strings.Join([]string{
			"fn main() -> int {",
			"	let x: int = 1;",
			"	if x < 2 { return 1; } else { return 2; }",
			"}",
		}, "\n"))

		main := prog.Functions[1]
		assert.Equal(t, 1, main.LocalCount)

		expectInstructions(t, main,
			inst(OpLocA, 0),
			inst(OpPush, 1),
			inst(OpStore64),
			inst(OpLocA, 0),
			inst(OpLoad64),
			inst(OpPush, 2),
			inst(OpCmpI),
			inst(OpSetLt),
			inst(OpBrFalse, 4),
			inst(OpArgA, 0),
			inst(OpPush, 1),
			inst(OpStore64),
			inst(OpRet),
			inst(OpArgA, 0),
			inst(OpPush, 2),
			inst(OpStore64),
			inst(OpRet),
		)
	})

	t.Run("else if chain", func(t *testing.T) {
		prog := mustCompile(t, `fn main() -> void { if 1 { putint(1); } else if 2 { putint(2); } }`)

		expectInstructions(t, prog.Functions[1],
			inst(OpPush, 1),
			inst(OpBrFalse, 3),
			inst(OpPush, 1),
			inst(OpPrintI),
			inst(OpBr, 5),
			inst(OpPush, 2),
			inst(OpBrFalse, 3),
			inst(OpPush, 2),
			inst(OpPrintI),
			inst(OpBr, 0),
			inst(OpRet),
		)
	})

	t.Run("while with break and continue", func(t *testing.T) {
		prog := mustCompile(t, strings.Join([]string{
			"fn main() -> void {",
			"	let i: int = 0;",
			"	while i < 3 {",
			"		i = i + 1;",
			"		if i == 2 { continue; }",
			"		break;",
			"	}",
			"}",
		}, "\n"))

		expectInstructions(t, prog.Functions[1],
			inst(OpLocA, 0),
			inst(OpPush, 0),
			inst(OpStore64),
			inst(OpBr, 0), //loop head
			inst(OpLocA, 0),
			inst(OpLoad64),
			inst(OpPush, 3),
			inst(OpCmpI),
			inst(OpSetLt),
			inst(OpBrFalse, 14),
			inst(OpLocA, 0),
			inst(OpLocA, 0),
			inst(OpLoad64),
			inst(OpPush, 1),
			inst(OpAddI),
			inst(OpStore64),
			inst(OpLocA, 0),
			inst(OpLoad64),
			inst(OpPush, 2),
			inst(OpCmpI),
			inst(OpNot),
			inst(OpBrFalse, 1),
			inst(OpBr, -19), //continue
			inst(OpBr, 0), //break
			inst(OpRet),
		)
	})

	t.Run("while falling through", func(t *testing.T) {
		prog := mustCompile(t, `fn main() -> void { let i: int = 0; while i { i = i - 1; } }`)

		expectInstructions(t, prog.Functions[1],
			inst(OpLocA, 0),
			inst(OpPush, 0),
			inst(OpStore64),
			inst(OpBr, 0),
			inst(OpLocA, 0),
			inst(OpLoad64),
			inst(OpBrFalse, 7),
			inst(OpLocA, 0),
			inst(OpLocA, 0),
			inst(OpLoad64),
			inst(OpPush, 1),
			inst(OpSubI),
			inst(OpStore64),
			inst(OpBr, -10),
			inst(OpRet),
		)
	})

	t.Run("break in nested loops", func(t *testing.T) {
		prog := mustCompile(t, strings.Join([]string{
			"fn main() -> void {",
			"	let i: int = 0;",
			"	while i < 3 {",
			"		while 1 { break; }",
			"		if i == 1 { break; }",
			"		i = i + 1;",
			"	}",
			"}",
		}, "\n"))

		main := prog.Functions[1]
		expectInstructions(t, main,
			inst(OpLocA, 0),
			inst(OpPush, 0),
			inst(OpStore64),
			inst(OpBr, 0), //outer loop head
			inst(OpLocA, 0),
			inst(OpLoad64),
			inst(OpPush, 3),
			inst(OpCmpI),
			inst(OpSetLt),
			inst(OpBrFalse, 18),
			inst(OpBr, 0), //inner loop head
			inst(OpPush, 1),
			inst(OpBrFalse, 1),
			inst(OpBr, 0), //inner break
			inst(OpLocA, 0),
			inst(OpLoad64),
			inst(OpPush, 1),
			inst(OpCmpI),
			inst(OpNot),
			inst(OpBrFalse, 1),
			inst(OpBr, 7), //outer break
			inst(OpLocA, 0),
			inst(OpLocA, 0),
			inst(OpLoad64),
			inst(OpPush, 1),
			inst(OpAddI),
			inst(OpStore64),
			inst(OpBr, -24),
			inst(OpRet),
		)

		innerExit, outerExit := 14, 28
		assert.Equal(t, innerExit, branchTarget(main, 12))
		assert.Equal(t, innerExit, branchTarget(main, 13))
		assert.Equal(t, outerExit, branchTarget(main, 9))
		assert.Equal(t, outerExit, branchTarget(main, 20))
		assert.Equal(t, 3, branchTarget(main, 27))
		assertBranchesInBody(t, main)
	})

	t.Run("while ending in return", func(t *testing.T) {
		prog := mustCompile(t, strings.Join([]string{
			"fn f(c: int) -> int {",
			"	while c { return 1; }",
			"	return 0;",
			"}",
			"fn main() -> void { putint(f(1)); }",
		}, "\n"))

		f, _ := prog.Function("f")
		expectInstructions(t, f,
			inst(OpBr, 0),
			inst(OpArgA, 1),
			inst(OpLoad64),
			inst(OpBrFalse, 4),
			inst(OpArgA, 0),
			inst(OpPush, 1),
			inst(OpStore64),
			inst(OpRet),
			inst(OpArgA, 0),
			inst(OpPush, 0),
			inst(OpStore64),
			inst(OpRet),
		)

		for pos, instruction := range f.Instructions {
			if instruction.Op == OpBr {
				assert.GreaterOrEqual(t, instruction.Operand, int64(0), "backward jump at %04d", pos)
			}
		}
	})

	t.Run("if else where every branch returns", func(t *testing.T) {
		prog := mustCompile(t, `fn main() -> void { if 1 { return; } else { return; } }`)

		main := prog.Functions[1]
		expectInstructions(t, main,
			inst(OpPush, 1),
			inst(OpBrFalse, 1),
			inst(OpRet),
			inst(OpRet),
		)
		assertBranchesInBody(t, main)
	})

	t.Run("recursion", func(t *testing.T) {
		prog := mustCompile(t, strings.Join([]string{
			"fn fib(n: int) -> int {",
			"	if n <= 1 { return n; }",
			"	return fib(n - 1) + fib(n - 2);",
			"}",
			"fn main() -> int { return fib(10); }",
		}, "\n"))

		fib, ok := prog.Function("fib")
		require.True(t, ok)
		assert.Equal(t, 1, fib.Slot)
		assert.Equal(t, 0, fib.NameSlot)
		assert.Equal(t, 1, fib.ParamCount)
		assert.Equal(t, []ValueType{IntType}, fib.ParamTypes())

		expectInstructions(t, fib,
			inst(OpArgA, 1),
			inst(OpLoad64),
			inst(OpPush, 1),
			inst(OpCmpI),
			inst(OpSetGt),
			inst(OpNot),
			inst(OpBrFalse, 5),
			inst(OpArgA, 0),
			inst(OpArgA, 1),
			inst(OpLoad64),
			inst(OpStore64),
			inst(OpRet),
			inst(OpArgA, 0),
			inst(OpStackAlloc, 1),
			inst(OpArgA, 1),
			inst(OpLoad64),
			inst(OpPush, 1),
			inst(OpSubI),
			inst(OpCall, 1),
			inst(OpStackAlloc, 1),
			inst(OpArgA, 1),
			inst(OpLoad64),
			inst(OpPush, 2),
			inst(OpSubI),
			inst(OpCall, 1),
			inst(OpAddI),
			inst(OpStore64),
			inst(OpRet),
		)

		main, _ := prog.Function("main")
		expectInstructions(t, main,
			inst(OpArgA, 0),
			inst(OpStackAlloc, 1),
			inst(OpPush, 10),
			inst(OpCall, 1),
			inst(OpStore64),
			inst(OpRet),
		)
		expectInstructions(t, prog.Entry(),
			inst(OpStackAlloc, 1),
			inst(OpCall, 2),
			inst(OpPopN, 1),
		)
	})

	t.Run("global initializers and string literals", func(t *testing.T) {
		prog := mustCompile(t, strings.Join([]string{
			"let counter: int = 5;",
			"const one: int = 1;",
			"fn main() -> void {",
			`	putstr("hi");`,
			`	putstr("hi");`,
			"	putint(counter);",
			"}",
		}, "\n"))

		require.Len(t, prog.Globals, 5)
		assert.Equal(t, "counter", prog.Globals[0].Name)
		assert.Nil(t, prog.Globals[0].Payload)
		assert.True(t, prog.Globals[1].Constant)
		assert.Equal(t, []byte("main"), prog.Globals[2].Payload)
		assert.True(t, prog.Globals[3].IsAnonymous())
		assert.Equal(t, []byte("hi"), prog.Globals[3].Payload)
		assert.Equal(t, []byte("_start"), prog.Globals[4].Payload)

		expectInstructions(t, prog.Entry(),
			inst(OpGlobA, 0),
			inst(OpPush, 5),
			inst(OpStore64),
			inst(OpGlobA, 1),
			inst(OpPush, 1),
			inst(OpStore64),
			inst(OpStackAlloc, 0),
			inst(OpCall, 1),
		)
		expectInstructions(t, prog.Functions[1],
			inst(OpPush, 3),
			inst(OpPrintS),
			inst(OpPush, 3),
			inst(OpPrintS),
			inst(OpGlobA, 0),
			inst(OpLoad64),
			inst(OpPrintI),
			inst(OpRet),
		)
	})

	t.Run("doubles and casts", func(t *testing.T) {
		prog := mustCompile(t, `fn main() -> double { let x: double = 1.5; return -x * (2 as double); }`)

		expectInstructions(t, prog.Functions[1],
			inst(OpLocA, 0),
			inst(OpPush, int64(math.Float64bits(1.5))),
			inst(OpStore64),
			inst(OpArgA, 0),
			inst(OpLocA, 0),
			inst(OpLoad64),
			inst(OpNegF),
			inst(OpPush, 2),
			inst(OpIToF),
			inst(OpMulF),
			inst(OpStore64),
			inst(OpRet),
		)
	})

	t.Run("double comparison and cast to int", func(t *testing.T) {
		prog := mustCompile(t, `fn main() -> int { return 1.0 >= 2.5 as int as double; }`)

		expectInstructions(t, prog.Functions[1],
			inst(OpArgA, 0),
			inst(OpPush, int64(math.Float64bits(1.0))),
			inst(OpPush, int64(math.Float64bits(2.5))),
			inst(OpFToI),
			inst(OpIToF),
			inst(OpCmpF),
			inst(OpSetLt),
			inst(OpNot),
			inst(OpStore64),
			inst(OpRet),
		)
	})

	t.Run("char literal and parameters", func(t *testing.T) {
		prog := mustCompile(t, strings.Join([]string{
			"fn show(const c: int, times: int) -> void {",
			"	while times > 0 { putchar(c); times = times - 1; }",
			"}",
			"fn main() -> void { show('a', 3); }",
		}, "\n"))

		show, _ := prog.Function("show")
		assert.Equal(t, 2, show.ParamCount)
		assert.Equal(t, 0, show.ReturnArity)

		main, _ := prog.Function("main")
		expectInstructions(t, main,
			inst(OpStackAlloc, 0),
			inst(OpPush, 'a'),
			inst(OpPush, 3),
			inst(OpCall, 1),
			inst(OpRet),
		)
	})

	t.Run("discarded value", func(t *testing.T) {
		prog := mustCompile(t, `fn f() -> int { return 1; } fn main() -> void { f(); 2; ; }`)

		main, _ := prog.Function("main")
		expectInstructions(t, main,
			inst(OpStackAlloc, 1),
			inst(OpCall, 1),
			inst(OpPopN, 1),
			inst(OpPush, 2),
			inst(OpPopN, 1),
			inst(OpRet),
		)
	})

	t.Run("user functions shadow builtins", func(t *testing.T) {
		prog := mustCompile(t, `fn putln() -> void { putint(1); } fn main() -> void { putln(); }`)

		main, _ := prog.Function("main")
		expectInstructions(t, main,
			inst(OpStackAlloc, 0),
			inst(OpCall, 1),
			inst(OpRet),
		)
	})

	t.Run("deterministic output", func(t *testing.T) {
		src := strings.Join([]string{
			"let g: double = 2.0;",
			"fn f(a: int, b: double) -> double { if a { return b; } else { return g; } }",
			`fn main() -> void { putstr("x"); putdouble(f(1, 3.0)); putstr("y"); }`,
		}, "\n")

		first := mustCompile(t, src)
		second := mustCompile(t, src)
		assert.Equal(t, first.String(), second.String())
	})

	t.Run("trace", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		_, err := Compile(CompilationInput{
			Source:      parse.NewTokenStream(`fn main() -> void { while 1 { break; } }`),
			TraceWriter: buf,
			Logger:      zerolog.New(zerolog.NewTestWriter(t)),
		})
		require.NoError(t, err)

		trace := buf.String()
		assert.Contains(t, trace, "FUNCTION main {")
		assert.Contains(t, trace, "EMIT  0000 br 0")
		assert.Contains(t, trace, "ENTER LOOP 0")
		assert.Contains(t, trace, "LINK")
	})
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		src   string
		error error
	}{
		{"missing return in if without else", `fn main() -> int { if 1 { return 1; } }`, ErrMissingReturn},
		{"missing return after loop", `fn main() -> int { while 1 { return 1; } }`, ErrMissingReturn},
		{"bare return in non-void function", `fn main() -> int { return; }`, ErrMissingReturn},
		{"break outside loop", `fn main() -> void { break; }`, ErrInvalidControlFlow},
		{"continue outside loop", `fn main() -> void { if 1 { continue; } }`, ErrInvalidControlFlow},
		{"too few arguments", `fn f(a: int) -> void {} fn main() -> void { f(); }`, ErrArityMismatch},
		{"too many builtin arguments", `fn main() -> void { putln(1); }`, ErrArityMismatch},
		{"main with parameters", `fn main(a: int) -> void {}`, ErrArityMismatch},
		{"duplicate local", `fn main() -> void { let a: int; let a: int; }`, ErrDuplicateDeclaration},
		{"duplicate parameter", `fn f(a: int, a: int) -> void {} fn main() -> void {}`, ErrDuplicateDeclaration},
		{"function and global with the same name", `let main: int; fn main() -> void {}`, ErrDuplicateDeclaration},
		{"duplicate function", `fn main() -> void {} fn main() -> void {}`, ErrDuplicateDeclaration},
		{"reserved entry name", `fn _start() -> void {} fn main() -> void {}`, ErrDuplicateDeclaration},
		{"reserved entry global", `let _start: int; fn main() -> void {}`, ErrDuplicateDeclaration},
		{"uninitialized local", `fn main() -> void { let a: int; putint(a); }`, ErrNotInitialized},
		{"self initialization", `fn main() -> void { let a: int = a; }`, ErrNotInitialized},
		{"assignment to constant", `fn main() -> void { const a: int = 1; a = 2; }`, ErrInvalidAssignment},
		{"assignment to constant parameter", `fn f(const a: int) -> void { a = 2; } fn main() -> void {}`, ErrInvalidAssignment},
		{"assignment to function", `fn main() -> void { main = 1; }`, ErrInvalidAssignment},
		{"undeclared variable", `fn main() -> void { putint(a); }`, ErrNotDeclared},
		{"undeclared function", `fn main() -> void { foo(); }`, ErrNotDeclared},
		{"missing main", `fn f() -> void {}`, ErrNotDeclared},
		{"void variable", `fn main() -> void { let a: void; }`, ErrTypeInvalid},
		{"unknown type", `fn main() -> string {}`, ErrTypeInvalid},
		{"initializer type", `fn main() -> void { let a: int = 1.0; }`, ErrTypeMismatch},
		{"mixed operands", `fn main() -> void { putint(1 + 1.0); }`, ErrTypeMismatch},
		{"void operand", `fn main() -> void { putint(putln() + 1); }`, ErrTypeMismatch},
		{"argument type", `fn main() -> void { putdouble(1); }`, ErrTypeMismatch},
		{"double condition", `fn main() -> void { if 1.0 {} }`, ErrTypeMismatch},
		{"value returned from void function", `fn main() -> void { return 1; }`, ErrTypeMismatch},
		{"returned value type", `fn main() -> int { return 1.0; }`, ErrTypeMismatch},
		{"function used as value", `fn main() -> void { putint(main); }`, ErrTypeMismatch},
		{"cast to void", `fn main() -> void { putint(1 as void); }`, ErrTypeMismatch},
		{"negated void", `fn main() -> void { -putln(); }`, ErrTypeMismatch},
		{"chained comparison", `fn main() -> void { putint(1 < 2 < 3); }`, ErrExpectedToken},
		{"const without initializer", `fn main() -> void { const a: int; }`, ErrExpectedToken},
		{"missing semicolon", `fn main() -> void { putln() }`, ErrExpectedToken},
		{"statement at top level", `putln();`, ErrExpectedToken},
		{"unclosed block", `fn main() -> void {`, ErrExpectedToken},
		{"missing arrow", `fn main() void {}`, ErrExpectedToken},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			prog, err := CompileString(testCase.src)
			assert.Nil(t, prog)
			require.Error(t, err)
			assert.ErrorIs(t, err, testCase.error)

			var compileErr *CompileError
			assert.ErrorAs(t, err, &compileErr)
		})
	}

	t.Run("error position", func(t *testing.T) {
		_, err := CompileString(`fn main() -> void { break; }`)

		var compileErr *CompileError
		require.True(t, errors.As(err, &compileErr))
		assert.Equal(t, parse.Position{Line: 1, Column: 21}, compileErr.Pos)
		assert.Equal(t, "compile: 1:21: invalid control flow: break statement outside of a loop", err.Error())
	})

	t.Run("tokenize error", func(t *testing.T) {
		_, err := CompileString(`fn main() -> void { # }`)
		assert.ErrorIs(t, err, parse.ErrTokenize)
	})
}

func TestBuiltinNames(t *testing.T) {
	assert.Equal(t, []string{
		"getchar", "getdouble", "getint", "putchar", "putdouble", "putint", "putln", "putstr",
	}, BuiltinNames())

	assert.Equal(t, "fn putdouble(double) -> void", BUILTINS["putdouble"].Signature())
}

// branchTarget returns the position reached by the branch at pos.
func branchTarget(fn *Function, pos int) int {
	return pos + 1 + int(fn.Instructions[pos].Operand)
}

func assertBranchesInBody(t *testing.T, fn *Function) {
	t.Helper()
	for pos, instruction := range fn.Instructions {
		if !instruction.Op.IsBranch() {
			continue
		}
		target := branchTarget(fn, pos)
		assert.True(t, target >= 0 && target < len(fn.Instructions), "branch at %04d targets %04d, outside of %s", pos, target, fn.Name)
	}
}

func mustCompile(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := CompileString(src)
	require.NoError(t, err)
	return prog
}

func inst(op Opcode, operands ...int64) Instruction {
	return MakeInstruction(op, operands...)
}

func expectInstructions(t *testing.T, fn *Function, expected ...Instruction) {
	t.Helper()
	assert.Equal(t,
		strings.Join(FormatInstructions(expected, 0, ""), "\n"),
		strings.Join(FormatInstructions(fn.Instructions, 0, ""), "\n"),
	)
}
