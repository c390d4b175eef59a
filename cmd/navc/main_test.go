package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/navmlang/navc/internal/o0"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloSource = `
fn main() -> void {
	putstr("hello");
	putln();
}
`

func runCommand(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("NAVC_NO_CACHE", "1")

	outW := bytes.NewBuffer(nil)
	errW := bytes.NewBuffer(nil)
	code := _main(append([]string{COMMAND_NAME}, args...), strings.NewReader(stdin), outW, errW)
	return code, outW.String(), errW.String()
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCommandDispatch(t *testing.T) {

	t.Run("missing command", func(t *testing.T) {
		code, _, stderr := runCommand(t, "")
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, stderr, "missing command")
	})

	t.Run("unknown command", func(t *testing.T) {
		code, _, stderr := runCommand(t, "", "biuld")
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, stderr, "did you mean 'build'")
	})

	t.Run("help", func(t *testing.T) {
		code, stdout, _ := runCommand(t, "", "help")
		assert.Zero(t, code)
		assert.Contains(t, stdout, BUILD_SUBCMD+" - ")
	})

	t.Run("command help", func(t *testing.T) {
		code, stdout, _ := runCommand(t, "", "help", "build")
		assert.Zero(t, code)
		assert.Contains(t, stdout, CLI_SUBCOMMAND_DESCRIPTION_MAP[BUILD_SUBCMD])
		assert.Contains(t, stdout, "-symbols")
	})
}

func TestBuild(t *testing.T) {

	t.Run("default output path", func(t *testing.T) {
		dir := t.TempDir()
		path := writeSource(t, dir, "hello.c0", helloSource)

		code, _, stderr := runCommand(t, "", "build", path)
		require.Zero(t, code, stderr)

		module, err := os.ReadFile(filepath.Join(dir, "hello.o0"))
		require.NoError(t, err)
		require.Greater(t, len(module), 8)
		assert.Equal(t, uint32(o0.MAGIC), binary.BigEndian.Uint32(module))
		assert.Equal(t, uint32(o0.VERSION), binary.BigEndian.Uint32(module[4:]))
	})

	t.Run("flags after the source path", func(t *testing.T) {
		dir := t.TempDir()
		path := writeSource(t, dir, "hello.c0", helloSource)
		output := filepath.Join(dir, "out.o0")

		code, _, stderr := runCommand(t, "", "build", path, "-o", output)
		require.Zero(t, code, stderr)
		assert.FileExists(t, output)
		assert.NoFileExists(t, filepath.Join(dir, "hello.o0"))
	})

	t.Run("standard input and output", func(t *testing.T) {
		code, stdout, stderr := runCommand(t, helloSource, "build", "-")
		require.Zero(t, code, stderr)

		require.Greater(t, len(stdout), 8)
		assert.Equal(t, uint32(o0.MAGIC), binary.BigEndian.Uint32([]byte(stdout)))
	})

	t.Run("compile error", func(t *testing.T) {
		dir := t.TempDir()
		path := writeSource(t, dir, "bad.c0", "fn main() -> void { x = 1; }")

		code, _, stderr := runCommand(t, "", "build", path)
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, stderr, "bad.c0")
		assert.Contains(t, stderr, "'x' is not declared")
		assert.NoFileExists(t, filepath.Join(dir, "bad.o0"))
	})

	t.Run("glob", func(t *testing.T) {
		dir := t.TempDir()
		writeSource(t, dir, "a.c0", helloSource)
		require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))
		writeSource(t, filepath.Join(dir, "sub"), "b.c0", helloSource)

		code, _, stderr := runCommand(t, "", "build", filepath.Join(dir, "**", "*.c0"))
		require.Zero(t, code, stderr)

		assert.FileExists(t, filepath.Join(dir, "a.o0"))
		assert.FileExists(t, filepath.Join(dir, "sub", "b.o0"))
	})

	t.Run("glob without matches", func(t *testing.T) {
		code, _, stderr := runCommand(t, "", "build", filepath.Join(t.TempDir(), "*.c0"))
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, stderr, "no file matches")
	})

	t.Run("an error does not stop the other builds", func(t *testing.T) {
		dir := t.TempDir()
		writeSource(t, dir, "a.c0", "fn main() -> int { }")
		writeSource(t, dir, "b.c0", helloSource)

		code, _, stderr := runCommand(t, "", "build", filepath.Join(dir, "*.c0"))
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, stderr, "a.c0")
		assert.FileExists(t, filepath.Join(dir, "b.o0"))
	})

	t.Run("-o with several inputs", func(t *testing.T) {
		dir := t.TempDir()
		a := writeSource(t, dir, "a.c0", helloSource)
		b := writeSource(t, dir, "b.c0", helloSource)

		code, _, stderr := runCommand(t, "", "build", "-o", filepath.Join(dir, "out.o0"), a, b)
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, stderr, "single source file")
	})

	t.Run("symbols", func(t *testing.T) {
		dir := t.TempDir()
		path := writeSource(t, dir, "hello.c0", "let counter: int = 1;\n"+helloSource)

		code, stdout, stderr := runCommand(t, "", "build", "-symbols", "-", path)
		require.Zero(t, code, stderr)

		var symbols moduleSymbols
		require.NoError(t, json.Unmarshal([]byte(stdout), &symbols))

		require.Len(t, symbols.Functions, 2)
		assert.Equal(t, "_start", symbols.Functions[0].Name)
		assert.Equal(t, "main", symbols.Functions[1].Name)
		assert.Equal(t, "void", symbols.Functions[1].ReturnType)
		assert.Empty(t, symbols.Functions[1].Params)

		require.NotEmpty(t, symbols.Globals)
		assert.Equal(t, "counter", symbols.Globals[0].Name)
		assert.Equal(t, "int", symbols.Globals[0].Type)
		assert.False(t, symbols.Globals[0].Constant)

		hasLiteral := false
		for _, global := range symbols.Globals {
			if global.Value == "hello" {
				hasLiteral = global.Constant && global.Name == "" && global.Type == ""
			}
		}
		assert.True(t, hasLiteral)
	})

	t.Run("listing", func(t *testing.T) {
		dir := t.TempDir()
		path := writeSource(t, dir, "hello.c0", helloSource)

		code, stdout, stderr := runCommand(t, "", "build", "-S", path)
		require.Zero(t, code, stderr)
		assert.Contains(t, stdout, "fn [1] main")
		assert.Contains(t, stdout, "print.s")
	})

	t.Run("listing with the module written to stdout", func(t *testing.T) {
		code, stdout, stderr := runCommand(t, helloSource, "build", "-S", "-")
		require.Zero(t, code, stderr)

		require.Greater(t, len(stdout), 8)
		assert.Equal(t, uint32(o0.MAGIC), binary.BigEndian.Uint32([]byte(stdout)))
		assert.NotContains(t, stdout, "fn [1] main")
		assert.Contains(t, stderr, "fn [1] main")
	})

	t.Run("symbols and module both written to stdout", func(t *testing.T) {
		code, stdout, stderr := runCommand(t, helloSource, "build", "-symbols", "-", "-")
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, "-symbols cannot write to stdout")
	})
}

func TestTokenize(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		code, stdout, stderr := runCommand(t, "let x: int = 1;", "tokenize", "-")
		require.Zero(t, code, stderr)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 8)
		assert.Contains(t, lines[0], "1:1")
		assert.Contains(t, lines[0], "LET_KEYWORD")
	})

	t.Run("json", func(t *testing.T) {
		code, stdout, stderr := runCommand(t, "x", "tokenize", "-json", "-")
		require.Zero(t, code, stderr)
		assert.Contains(t, stdout, `"type":"IDENT"`)
		assert.Contains(t, stdout, `"line":1`)
	})

	t.Run("error", func(t *testing.T) {
		code, _, stderr := runCommand(t, `"unterminated`, "tokenize", "-")
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, stderr, "1:1")
	})
}

func TestListBuiltins(t *testing.T) {
	code, stdout, _ := runCommand(t, "", "builtins")
	require.Zero(t, code)
	assert.Contains(t, stdout, "fn putint(int) -> void")
	assert.Contains(t, stdout, "fn getdouble() -> double")

	code, stdout, _ = runCommand(t, "", "builtins", "-json")
	require.Zero(t, code)

	var list []builtinJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &list))
	assert.Len(t, list, 8)
	assert.Equal(t, "getchar", list[0].Name)
}

func TestMoveFlagsStart(t *testing.T) {
	flags := flag.NewFlagSet("build", flag.ContinueOnError)
	flags.String("o", "", "")
	flags.Bool("S", false, "")

	assert.Equal(t,
		[]string{"-o", "out.o0", "-S", "a.c0", "b.c0"},
		moveFlagsStart(flags, []string{"a.c0", "-o", "out.o0", "b.c0", "-S"}))

	assert.Equal(t,
		[]string{"-o=out.o0", "a.c0", "-S"},
		moveFlagsStart(flags, []string{"a.c0", "-o=out.o0", "--", "-S"}))

	assert.Equal(t,
		[]string{"-"},
		moveFlagsStart(flags, []string{"-"}))
}
