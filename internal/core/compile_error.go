package core

import (
	"errors"
	"fmt"

	"github.com/navmlang/navc/internal/parse"
)

var (
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
	ErrNotDeclared          = errors.New("not declared")
	ErrNotInitialized       = errors.New("not initialized")
	ErrInvalidAssignment    = errors.New("invalid assignment")
	ErrInvalidControlFlow   = errors.New("invalid control flow")
	ErrArityMismatch        = errors.New("arity mismatch")
	ErrMissingReturn        = errors.New("missing return")
	ErrTypeInvalid          = errors.New("invalid type")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrExpectedToken        = errors.New("unexpected token")
)

// A CompileError is a fatal semantic or grammar error, compilation stops at the first one.
// Err wraps one of the sentinel errors above.
type CompileError struct {
	Err     error
	Pos     parse.Position
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile: %s: %s", e.Pos, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

func makeCompileError(pos parse.Position, err error) *CompileError {
	return &CompileError{
		Err:     err,
		Pos:     pos,
		Message: err.Error(),
	}
}

func fmtUnexpectedToken(found parse.Token, expected ...parse.TokenType) string {
	if len(expected) == 1 {
		return fmt.Sprintf("expected '%s' but found '%s'", expected[0], found)
	}
	return fmt.Sprintf("expected one of %s but found '%s'", fmtTokenTypes(expected), found)
}

func fmtTokenTypes(types []parse.TokenType) string {
	s := ""
	for i, t := range types {
		if i > 0 {
			s += ", "
		}
		s += "'" + t.String() + "'"
	}
	return s
}
