package core

import (
	"github.com/navmlang/navc/internal/parse"
)

// compileBlock compiles '{' statement* '}' and returns how control leaves the block.
func (c *compiler) compileBlock() (Completeness, error) {
	if _, err := c.expect(parse.OPENING_CURLY_BRACKET); err != nil {
		return Falls, err
	}

	if c.trace != nil {
		c.enterTracingBlock("BLOCK")
		defer c.leaveTracingBlock()
	}

	result := Falls
	for {
		_, closed, err := c.nextIf(parse.CLOSING_CURLY_BRACKET)
		if err != nil {
			return Falls, err
		}
		if closed {
			return result, nil
		}

		completeness, err := c.compileStatement()
		if err != nil {
			return Falls, err
		}
		result = result.Then(completeness)
	}
}

func (c *compiler) compileStatement() (Completeness, error) {
	tok, err := c.peek()
	if err != nil {
		return Falls, err
	}

	switch tok.Type {
	case parse.LET_KEYWORD, parse.CONST_KEYWORD:
		return Falls, c.compileDeclaration()
	case parse.IF_KEYWORD:
		return c.compileIf()
	case parse.WHILE_KEYWORD:
		return Falls, c.compileWhile()
	case parse.BREAK_KEYWORD:
		return Diverges, c.compileBreak()
	case parse.CONTINUE_KEYWORD:
		return Diverges, c.compileContinue()
	case parse.RETURN_KEYWORD:
		return Returns, c.compileReturn()
	case parse.OPENING_CURLY_BRACKET:
		return c.compileBlock()
	case parse.SEMICOLON:
		_, err := c.next()
		return Falls, err
	case parse.MINUS, parse.IDENT, parse.OPENING_PARENTHESIS,
		parse.UINT_LITERAL, parse.DOUBLE_LITERAL, parse.STRING_LITERAL, parse.CHAR_LITERAL:
		return Falls, c.compileExpressionStatement()
	default:
		return Falls, c.NewError(tok.Pos, ErrExpectedToken, "expected a statement but found '%s'", tok)
	}
}

// compileDeclaration compiles ('let' | 'const') IDENT ':' type ('=' expr)? ';'.
// Global variables live in zero-filled slots and are initialized from the start,
// a local becomes initialized once its initializer has been compiled.
func (c *compiler) compileDeclaration() error {
	kwTok, err := c.expect(parse.LET_KEYWORD, parse.CONST_KEYWORD)
	if err != nil {
		return err
	}
	isConst := kwTok.Type == parse.CONST_KEYWORD
	isGlobal := !c.scopes.InFunction()

	nameTok, err := c.expect(parse.IDENT)
	if err != nil {
		return err
	}
	name := nameTok.Str()

	if isGlobal && name == ENTRY_FUNCTION_NAME {
		return c.NewError(nameTok.Pos, ErrDuplicateDeclaration, "'%s' is reserved for the entry routine", name)
	}

	if _, err := c.expect(parse.COLON); err != nil {
		return err
	}
	typ, err := c.compileType(false)
	if err != nil {
		return err
	}

	var hasInitializer bool
	if isConst {
		if _, err := c.expect(parse.EQUAL); err != nil {
			return err
		}
		hasInitializer = true
	} else {
		_, hasInitializer, err = c.nextIf(parse.EQUAL)
		if err != nil {
			return err
		}
	}

	symbol, err := c.scopes.Declare(name, typ, isConst, isGlobal)
	if err != nil {
		return makeCompileError(nameTok.Pos, err)
	}

	if hasInitializer {
		c.emitAddress(symbol)

		valuePos := c.peekPos()
		valueType, err := c.compileExpression()
		if err != nil {
			return err
		}
		if valueType != typ {
			return c.NewError(valuePos, ErrTypeMismatch, "cannot initialize '%s' of type %s with a value of type %s", name, typ, valueType)
		}

		c.emit(OpStore64)
		symbol.Initialized = true
	}

	_, err = c.expect(parse.SEMICOLON)
	return err
}

// compileIf compiles an if/else-if/else chain. Each branch that can fall through ends with
// a jump past the chain, the conditional jump of a branch targets the start of the next one.
func (c *compiler) compileIf() (Completeness, error) {
	if _, err := c.expect(parse.IF_KEYWORD); err != nil {
		return Falls, err
	}

	end := c.newLabel()
	var (
		result  Completeness
		hasElse bool
		first   = true
	)

	for {
		condPos := c.peekPos()
		condType, err := c.compileExpression()
		if err != nil {
			return Falls, err
		}
		if condType != IntType {
			return Falls, c.NewError(condPos, ErrTypeMismatch, "condition should be of type %s, not %s", IntType, condType)
		}

		nextBranch := c.newLabel()
		c.emitJump(OpBrFalse, nextBranch)

		completeness, err := c.compileBlock()
		if err != nil {
			return Falls, err
		}
		if completeness == Falls {
			c.emitJump(OpBr, end)
		}
		c.bindLabel(nextBranch)

		if first {
			result = completeness
			first = false
		} else {
			result = result.Meet(completeness)
		}

		_, isElse, err := c.nextIf(parse.ELSE_KEYWORD)
		if err != nil {
			return Falls, err
		}
		if !isElse {
			break
		}

		_, isElseIf, err := c.nextIf(parse.IF_KEYWORD)
		if err != nil {
			return Falls, err
		}
		if isElseIf {
			continue
		}

		completeness, err = c.compileBlock()
		if err != nil {
			return Falls, err
		}
		result = result.Meet(completeness)
		hasElse = true
		break
	}

	c.bindLabel(end)

	if !hasElse {
		return Falls, nil
	}
	return result, nil
}

// compileWhile compiles 'while' expr block. The loop starts with a 'br 0' marker so that
// a backward jump of (start - position) lands on the first instruction of the condition.
func (c *compiler) compileWhile() error {
	if _, err := c.expect(parse.WHILE_KEYWORD); err != nil {
		return err
	}

	start := c.emit(OpBr, 0)

	condPos := c.peekPos()
	condType, err := c.compileExpression()
	if err != nil {
		return err
	}
	if condType != IntType {
		return c.NewError(condPos, ErrTypeMismatch, "condition should be of type %s, not %s", IntType, condType)
	}

	exit := c.newLabel()
	c.emitJump(OpBrFalse, exit)

	c.enterLoop(start, exit)
	completeness, err := c.compileBlock()
	if err != nil {
		return err
	}
	c.leaveLoop()

	if completeness == Falls {
		c.emitBackwardJump(start)
	}
	c.bindLabel(exit)
	return nil
}

func (c *compiler) emitBackwardJump(start int) {
	c.emit(OpBr, int64(start-c.currentPosition()))
}

func (c *compiler) compileBreak() error {
	tok, err := c.expect(parse.BREAK_KEYWORD)
	if err != nil {
		return err
	}

	loop := c.currentLoop()
	if loop == nil {
		return c.NewError(tok.Pos, ErrInvalidControlFlow, "break statement outside of a loop")
	}
	c.emitJump(OpBr, loop.exit)

	_, err = c.expect(parse.SEMICOLON)
	return err
}

func (c *compiler) compileContinue() error {
	tok, err := c.expect(parse.CONTINUE_KEYWORD)
	if err != nil {
		return err
	}

	loop := c.currentLoop()
	if loop == nil {
		return c.NewError(tok.Pos, ErrInvalidControlFlow, "continue statement outside of a loop")
	}
	c.emitBackwardJump(loop.start)

	_, err = c.expect(parse.SEMICOLON)
	return err
}

// compileReturn compiles 'return' expr? ';', the value is stored in the return slot (argument 0).
func (c *compiler) compileReturn() error {
	tok, err := c.expect(parse.RETURN_KEYWORD)
	if err != nil {
		return err
	}
	fn := c.currentFunction

	_, isBare, err := c.nextIf(parse.SEMICOLON)
	if err != nil {
		return err
	}

	if isBare {
		if fn.ReturnType != VoidType {
			return c.NewError(tok.Pos, ErrMissingReturn, "function '%s' should return a value of type %s", fn.Name, fn.ReturnType)
		}
		c.emit(OpRet)
		return nil
	}

	if fn.ReturnType == VoidType {
		return c.NewError(tok.Pos, ErrTypeMismatch, "function '%s' has no return value", fn.Name)
	}

	returnSlot, _ := c.scopes.Current().Params.Resolve(RETURN_SLOT_NAME)
	c.emitAddress(returnSlot)

	valuePos := c.peekPos()
	valueType, err := c.compileExpression()
	if err != nil {
		return err
	}
	if valueType != fn.ReturnType {
		return c.NewError(valuePos, ErrTypeMismatch, "function '%s' should return a value of type %s, not %s", fn.Name, fn.ReturnType, valueType)
	}
	c.emit(OpStore64)

	if _, err := c.expect(parse.SEMICOLON); err != nil {
		return err
	}
	c.emit(OpRet)
	return nil
}

// compileExpressionStatement compiles an assignment or an expression whose value is discarded.
func (c *compiler) compileExpressionStatement() error {
	var (
		typ ValueType
		err error
	)

	ident, isIdent, err := c.nextIf(parse.IDENT)
	if err != nil {
		return err
	}

	switch {
	case !isIdent:
		typ, err = c.compileExpression()
	default:
		var isAssignment bool
		_, isAssignment, err = c.nextIf(parse.EQUAL)
		if err != nil {
			return err
		}
		if isAssignment {
			typ, err = c.compileAssignment(ident)
		} else {
			typ, err = c.compileExpressionFrom(&ident)
		}
	}
	if err != nil {
		return err
	}

	if typ != VoidType {
		c.emit(OpPopN, int64(typ.SlotCount()))
	}

	_, err = c.expect(parse.SEMICOLON)
	return err
}

func (c *compiler) peekPos() parse.Position {
	tok, _ := c.peek()
	return tok.Pos
}
