package core

import (
	"math"

	"github.com/navmlang/navc/internal/parse"
)

// instructions following the comparison of two values, cmp.i and cmp.f push -1, 0 or 1.
var relationalFollowUps = map[parse.TokenType][]Opcode{
	parse.EQUAL_EQUAL:            {OpNot},
	parse.EXCLAMATION_MARK_EQUAL: nil,
	parse.LESS_THAN:              {OpSetLt},
	parse.GREATER_THAN:           {OpSetGt},
	parse.LESS_OR_EQUAL:          {OpSetGt, OpNot},
	parse.GREATER_OR_EQUAL:       {OpSetLt, OpNot},
}

var arithmeticOpcodes = map[parse.TokenType][2]Opcode{
	//int, double
	parse.PLUS:     {OpAddI, OpAddF},
	parse.MINUS:    {OpSubI, OpSubF},
	parse.ASTERISK: {OpMulI, OpMulF},
	parse.SLASH:    {OpDivI, OpDivF},
}

func (c *compiler) compileExpression() (ValueType, error) {
	return c.compileExpressionFrom(nil)
}

// compileExpressionFrom compiles an expression whose first token may have already been
// consumed (leading), this is how assignments are told apart from other expression statements.
func (c *compiler) compileExpressionFrom(leading *parse.Token) (ValueType, error) {
	return c.compileRelational(leading)
}

// compileRelational compiles additive (relop additive)?, comparisons do not chain.
func (c *compiler) compileRelational(leading *parse.Token) (ValueType, error) {
	left, err := c.compileAdditive(leading)
	if err != nil {
		return 0, err
	}

	opTok, err := c.peek()
	if err != nil {
		return 0, err
	}
	if !opTok.Type.IsRelationalOperator() {
		return left, nil
	}
	c.next()

	right, err := c.compileAdditive(nil)
	if err != nil {
		return 0, err
	}
	if err := c.checkOperandTypes(opTok, left, right); err != nil {
		return 0, err
	}

	if left == DoubleType {
		c.emit(OpCmpF)
	} else {
		c.emit(OpCmpI)
	}
	for _, op := range relationalFollowUps[opTok.Type] {
		c.emit(op)
	}

	if tok, err := c.peek(); err != nil {
		return 0, err
	} else if tok.Type.IsRelationalOperator() {
		return 0, c.NewError(tok.Pos, ErrExpectedToken, "comparisons cannot be chained, found '%s'", tok)
	}

	return IntType, nil
}

func (c *compiler) compileAdditive(leading *parse.Token) (ValueType, error) {
	left, err := c.compileMultiplicative(leading)
	if err != nil {
		return 0, err
	}

	for {
		opTok, err := c.peek()
		if err != nil {
			return 0, err
		}
		if opTok.Type != parse.PLUS && opTok.Type != parse.MINUS {
			return left, nil
		}
		c.next()

		right, err := c.compileMultiplicative(nil)
		if err != nil {
			return 0, err
		}
		if err := c.emitArithmetic(opTok, left, right); err != nil {
			return 0, err
		}
	}
}

func (c *compiler) compileMultiplicative(leading *parse.Token) (ValueType, error) {
	left, err := c.compileCast(leading)
	if err != nil {
		return 0, err
	}

	for {
		opTok, err := c.peek()
		if err != nil {
			return 0, err
		}
		if opTok.Type != parse.ASTERISK && opTok.Type != parse.SLASH {
			return left, nil
		}
		c.next()

		right, err := c.compileCast(nil)
		if err != nil {
			return 0, err
		}
		if err := c.emitArithmetic(opTok, left, right); err != nil {
			return 0, err
		}
	}
}

func (c *compiler) emitArithmetic(opTok parse.Token, left, right ValueType) error {
	if err := c.checkOperandTypes(opTok, left, right); err != nil {
		return err
	}
	opcodes := arithmeticOpcodes[opTok.Type]
	if left == DoubleType {
		c.emit(opcodes[1])
	} else {
		c.emit(opcodes[0])
	}
	return nil
}

func (c *compiler) checkOperandTypes(opTok parse.Token, left, right ValueType) error {
	if left == VoidType || right == VoidType {
		return c.NewError(opTok.Pos, ErrTypeMismatch, "operands of '%s' cannot be of type %s", opTok, VoidType)
	}
	if left != right {
		return c.NewError(opTok.Pos, ErrTypeMismatch, "operands of '%s' have different types: %s and %s", opTok, left, right)
	}
	return nil
}

// compileCast compiles unary ('as' type)*.
func (c *compiler) compileCast(leading *parse.Token) (ValueType, error) {
	typ, err := c.compileUnary(leading)
	if err != nil {
		return 0, err
	}

	for {
		asTok, isCast, err := c.nextIf(parse.AS_KEYWORD)
		if err != nil {
			return 0, err
		}
		if !isCast {
			return typ, nil
		}

		target, err := c.compileType(true)
		if err != nil {
			return 0, err
		}

		switch {
		case typ == VoidType || target == VoidType:
			return 0, c.NewError(asTok.Pos, ErrTypeMismatch, "cannot convert %s to %s", typ, target)
		case typ == target:
		case target == DoubleType:
			c.emit(OpIToF)
		default:
			c.emit(OpFToI)
		}
		typ = target
	}
}

// compileUnary compiles '-' unary | primary.
func (c *compiler) compileUnary(leading *parse.Token) (ValueType, error) {
	if leading != nil {
		return c.compilePrimary(leading)
	}

	minusTok, isNegation, err := c.nextIf(parse.MINUS)
	if err != nil {
		return 0, err
	}
	if !isNegation {
		return c.compilePrimary(nil)
	}

	typ, err := c.compileUnary(nil)
	if err != nil {
		return 0, err
	}

	switch typ {
	case IntType:
		c.emit(OpNegI)
	case DoubleType:
		c.emit(OpNegF)
	default:
		return 0, c.NewError(minusTok.Pos, ErrTypeMismatch, "cannot negate a value of type %s", typ)
	}
	return typ, nil
}

func (c *compiler) compilePrimary(leading *parse.Token) (ValueType, error) {
	var tok parse.Token
	if leading != nil {
		tok = *leading
	} else {
		var err error
		tok, err = c.next()
		if err != nil {
			return 0, err
		}
	}

	switch tok.Type {
	case parse.UINT_LITERAL:
		c.emit(OpPush, int64(tok.Value.(uint64)))
		return IntType, nil
	case parse.DOUBLE_LITERAL:
		c.emit(OpPush, int64(math.Float64bits(tok.Value.(float64))))
		return DoubleType, nil
	case parse.CHAR_LITERAL:
		c.emit(OpPush, int64(tok.Value.(rune)))
		return IntType, nil
	case parse.STRING_LITERAL:
		symbol := c.addStringLiteral(tok.Str())
		c.emit(OpPush, int64(symbol.Offset))
		return IntType, nil
	case parse.IDENT:
		_, isCall, err := c.nextIf(parse.OPENING_PARENTHESIS)
		if err != nil {
			return 0, err
		}
		if isCall {
			return c.compileCall(tok)
		}
		return c.compileVariable(tok)
	case parse.OPENING_PARENTHESIS:
		typ, err := c.compileExpression()
		if err != nil {
			return 0, err
		}
		if _, err := c.expect(parse.CLOSING_PARENTHESIS); err != nil {
			return 0, err
		}
		return typ, nil
	default:
		return 0, c.NewError(tok.Pos, ErrExpectedToken, "expected an expression but found '%s'", tok)
	}
}

// addStringLiteral returns the anonymous global holding s, identical literals share a slot.
func (c *compiler) addStringLiteral(s string) *Symbol {
	if symbol, ok := c.stringLiterals[s]; ok {
		return symbol
	}
	symbol := c.scopes.Globals.DeclareAnonymous(VoidType, []byte(s))
	c.stringLiterals[s] = symbol
	return symbol
}

func (c *compiler) compileVariable(nameTok parse.Token) (ValueType, error) {
	name := nameTok.Str()

	symbol, ok := c.scopes.Resolve(name)
	if !ok {
		return 0, c.NewError(nameTok.Pos, ErrNotDeclared, "'%s' is not declared", name)
	}
	if c.isFunctionName(symbol) {
		return 0, c.NewError(nameTok.Pos, ErrTypeMismatch, "function '%s' cannot be used as a value", name)
	}
	if !symbol.Initialized {
		return 0, c.NewError(nameTok.Pos, ErrNotInitialized, "'%s' is used before being initialized", name)
	}

	c.emitAddress(symbol)
	c.emit(OpLoad64)
	return symbol.Type, nil
}

// compileAssignment compiles the right side of IDENT '=' expr, an assignment has no value.
func (c *compiler) compileAssignment(nameTok parse.Token) (ValueType, error) {
	name := nameTok.Str()

	symbol, ok := c.scopes.Resolve(name)
	if !ok {
		return 0, c.NewError(nameTok.Pos, ErrNotDeclared, "'%s' is not declared", name)
	}
	if symbol.Constant {
		return 0, c.NewError(nameTok.Pos, ErrInvalidAssignment, "cannot assign to constant '%s'", name)
	}

	c.emitAddress(symbol)

	valuePos := c.peekPos()
	valueType, err := c.compileExpression()
	if err != nil {
		return 0, err
	}
	if valueType != symbol.Type {
		return 0, c.NewError(valuePos, ErrTypeMismatch, "cannot assign a value of type %s to '%s' of type %s", valueType, name, symbol.Type)
	}

	c.emit(OpStore64)
	symbol.Initialized = true
	return VoidType, nil
}

// compileCall compiles the arguments and the call of a user function or a builtin,
// user functions shadow builtins.
func (c *compiler) compileCall(nameTok parse.Token) (ValueType, error) {
	name := nameTok.Str()

	if fn, ok := c.functionsByName[name]; ok {
		c.emit(OpStackAlloc, int64(fn.ReturnArity))

		if err := c.compileArguments(nameTok, fn.ParamTypes()); err != nil {
			return 0, err
		}

		c.emit(OpCall, int64(fn.Slot))
		return fn.ReturnType, nil
	}

	if builtin, ok := BUILTINS[name]; ok {
		if err := c.compileArguments(nameTok, builtin.Params); err != nil {
			return 0, err
		}

		c.emit(builtin.Op)
		return builtin.ReturnType, nil
	}

	return 0, c.NewError(nameTok.Pos, ErrNotDeclared, "function '%s' is not declared", name)
}

// compileArguments compiles (expr (',' expr)*)? ')' and checks the arguments against params.
func (c *compiler) compileArguments(nameTok parse.Token, params []ValueType) error {
	argCount := 0

	_, closed, err := c.nextIf(parse.CLOSING_PARENTHESIS)
	if err != nil {
		return err
	}

	for !closed {
		argPos := c.peekPos()
		typ, err := c.compileExpression()
		if err != nil {
			return err
		}
		if argCount < len(params) && typ != params[argCount] {
			return c.NewError(argPos, ErrTypeMismatch, "argument %d of '%s' should be of type %s, not %s", argCount+1, nameTok.Str(), params[argCount], typ)
		}
		argCount++

		tok, err := c.expect(parse.COMMA, parse.CLOSING_PARENTHESIS)
		if err != nil {
			return err
		}
		closed = tok.Type == parse.CLOSING_PARENTHESIS
	}

	if argCount != len(params) {
		return c.NewError(nameTok.Pos, ErrArityMismatch, "'%s' expects %d argument(s) but %d were given", nameTok.Str(), len(params), argCount)
	}
	return nil
}

func (c *compiler) isFunctionName(symbol *Symbol) bool {
	if symbol.Scope != GlobalScope {
		return false
	}
	fn, ok := c.functionsByName[symbol.Name]
	return ok && fn.NameSlot == symbol.Offset
}

func (c *compiler) emitAddress(symbol *Symbol) {
	switch symbol.Scope {
	case LocalScope:
		c.emit(OpLocA, int64(symbol.Offset))
	case ParamScope:
		c.emit(OpArgA, int64(symbol.Offset))
	case GlobalScope:
		c.emit(OpGlobA, int64(symbol.Offset))
	}
}
