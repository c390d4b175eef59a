package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/navmlang/navc/internal/config"
	"github.com/navmlang/navc/internal/core"
	"github.com/navmlang/navc/internal/parse"
)

// printError prints err to errW, the kind of error is colored if colors are enabled.
func printError(errW io.Writer, err error) {
	out := config.NewOutput(errW)

	var (
		compileErr  *core.CompileError
		tokenizeErr *parse.TokenizeError
		label       = "error:"
	)

	switch {
	case errors.As(err, &compileErr):
		label = "compile error:"
	case errors.As(err, &tokenizeErr):
		label = "syntax error:"
	}

	styled := out.String(label).Foreground(out.Color("9")).Bold()
	fmt.Fprintln(errW, styled.String(), err)
}
