package core

import (
	"fmt"
	"io"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/navmlang/navc/internal/parse"
	"github.com/navmlang/navc/internal/utils"
	"github.com/rs/zerolog"
)

// TokenSource is a one-token-lookahead stream of tokens, Next and Peek return
// the EOF token once the source is exhausted.
type TokenSource interface {
	Peek() (parse.Token, error)
	Next() (parse.Token, error)
}

type CompilationInput struct {
	Source      TokenSource
	Logger      zerolog.Logger //the zero value logs nothing
	TraceWriter io.Writer
}

// Compile compiles a whole program in a single pass over the tokens of input.Source,
// it stops at the first error.
func Compile(input CompilationInput) (prog *Program, finalErr error) {
	c := newCompiler(input)

	defer func() {
		if e := recover(); e != nil {
			prog = nil
			finalErr = fmt.Errorf("internal compiler error: %w", utils.ConvertPanicValueToError(e))
		}
	}()

	return c.compileProgram()
}

// CompileString tokenizes and compiles src.
func CompileString(src string) (*Program, error) {
	return Compile(CompilationInput{Source: parse.NewTokenStream(src)})
}

// compiler performs the semantic analysis and emits the navm instructions at the same time.
type compiler struct {
	tokens TokenSource
	scopes *Scopes

	functions       []*Function
	functionsByName map[string]*Function
	stringLiterals  map[string]*Symbol
	currentFunction *Function //nil while compiling global declarations

	//compilationScopes[0] is the body of the entry routine, it receives the global initializers.
	compilationScopes []*compilationScope
	scopeIndex        int
	loops             []*loop
	loopIndex         int

	logger zerolog.Logger
	trace  io.Writer
	indent int
}

// compilationScope contains the instructions of a function body and the positions of its labels.
type compilationScope struct {
	instructions   []Instruction
	labelPositions []int
	boundLabels    *bitset.BitSet
}

// loop is used by the compiler to track the current while loop.
type loop struct {
	start int //position of the loop head marker
	exit  Label
}

func newCompiler(input CompilationInput) *compiler {
	return &compiler{
		tokens:            input.Source,
		scopes:            NewScopes(),
		functionsByName:   map[string]*Function{},
		stringLiterals:    map[string]*Symbol{},
		compilationScopes: []*compilationScope{newCompilationScope()},
		scopeIndex:        0,
		loopIndex:         -1,
		logger:            ChildLoggerForSource(input.Logger, COMPILER_LOG_SRC),
		trace:             input.TraceWriter,
	}
}

func newCompilationScope() *compilationScope {
	return &compilationScope{
		//label 0 is NO_LABEL
		labelPositions: []int{-1},
		boundLabels:    bitset.New(8),
	}
}

func (c *compiler) compileProgram() (*Program, error) {
	if c.trace != nil {
		c.enterTracingBlock("PROGRAM")
		defer c.leaveTracingBlock()
	}

	entry := &Function{
		Name: ENTRY_FUNCTION_NAME,
		Slot: ENTRY_FUNCTION_SLOT,
	}
	c.functions = append(c.functions, entry)

	for {
		tok, err := c.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type == parse.EOF {
			break
		}
		if err := c.compileItem(); err != nil {
			return nil, err
		}
	}

	eof, _ := c.peek()
	if err := c.compileEntryCall(eof.Pos); err != nil {
		return nil, err
	}

	//the entry routine's name is the last global
	nameSymbol, err := c.scopes.Globals.Declare(ENTRY_FUNCTION_NAME, VoidType, true, true)
	if err != nil {
		return nil, makeCompileError(eof.Pos, err)
	}
	nameSymbol.Payload = []byte(ENTRY_FUNCTION_NAME)

	entry.NameSlot = nameSymbol.Offset
	entry.Instructions = c.leaveCompilationScope()

	prog := &Program{
		Globals:   c.scopes.Globals.Symbols(),
		Functions: c.functions,
	}

	c.logger.Debug().
		Int("globals", len(prog.Globals)).
		Int("functions", len(prog.Functions)).
		Msg("program compiled")

	return prog, nil
}

// compileEntryCall emits the call of main at the end of the entry routine.
func (c *compiler) compileEntryCall(eofPos parse.Position) error {
	main, ok := c.functionsByName[MAIN_FUNCTION_NAME]
	if !ok {
		return c.NewError(eofPos, ErrNotDeclared, "function '%s' is not declared", MAIN_FUNCTION_NAME)
	}
	if main.ParamCount != 0 {
		return c.NewError(eofPos, ErrArityMismatch, "function '%s' should have no parameters but has %d", MAIN_FUNCTION_NAME, main.ParamCount)
	}

	//same calling sequence as any call, the return slot is discarded.
	c.emit(OpStackAlloc, int64(main.ReturnArity))
	c.emit(OpCall, int64(main.Slot))
	if main.ReturnArity > 0 {
		c.emit(OpPopN, int64(main.ReturnArity))
	}
	return nil
}

func (c *compiler) compileItem() error {
	tok, err := c.peek()
	if err != nil {
		return err
	}

	switch tok.Type {
	case parse.FN_KEYWORD:
		return c.compileFunction()
	case parse.LET_KEYWORD, parse.CONST_KEYWORD:
		return c.compileDeclaration()
	default:
		return c.NewError(tok.Pos, ErrExpectedToken, "%s", fmtUnexpectedToken(tok, parse.FN_KEYWORD, parse.LET_KEYWORD, parse.CONST_KEYWORD))
	}
}

// compileFunction compiles 'fn' IDENT '(' params? ')' '->' type block. The function
// is registered before its body is compiled so that it can call itself.
func (c *compiler) compileFunction() error {
	if _, err := c.expect(parse.FN_KEYWORD); err != nil {
		return err
	}

	nameTok, err := c.expect(parse.IDENT)
	if err != nil {
		return err
	}
	name := nameTok.Str()

	if name == ENTRY_FUNCTION_NAME {
		return c.NewError(nameTok.Pos, ErrDuplicateDeclaration, "'%s' is reserved for the entry routine", name)
	}

	if c.trace != nil {
		c.enterTracingBlock("FUNCTION " + name)
		defer c.leaveTracingBlock()
	}

	scope := c.scopes.EnterFunction()
	defer c.scopes.LeaveFunction()

	if _, err := c.expect(parse.OPENING_PARENTHESIS); err != nil {
		return err
	}
	if err := c.compileParameters(scope.Params); err != nil {
		return err
	}
	if _, err := c.expect(parse.ARROW); err != nil {
		return err
	}
	returnType, err := c.compileType(true)
	if err != nil {
		return err
	}

	paramCount := scope.Params.Len()
	if returnType != VoidType {
		scope.Params.InsertReturnSlot(returnType)
	}

	nameSymbol, err := c.scopes.Globals.Declare(name, returnType, true, true)
	if err != nil {
		return makeCompileError(nameTok.Pos, err)
	}
	nameSymbol.Payload = []byte(name)

	fn := &Function{
		Name:        name,
		NameSlot:    nameSymbol.Offset,
		Slot:        len(c.functions),
		ReturnType:  returnType,
		ReturnArity: returnType.SlotCount(),
		ParamCount:  paramCount,
		Params:      scope.Params.Symbols(),
	}
	c.functions = append(c.functions, fn)
	c.functionsByName[name] = fn

	c.currentFunction = fn
	defer func() {
		c.currentFunction = nil
	}()

	c.enterCompilationScope()

	completeness, err := c.compileBlock()
	if err != nil {
		return err
	}

	if completeness != Returns {
		if returnType != VoidType {
			return c.NewError(nameTok.Pos, ErrMissingReturn, "function '%s' does not return a value of type %s on every path", name, returnType)
		}
		c.emit(OpRet)
	}

	fn.Instructions = c.leaveCompilationScope()
	fn.LocalCount = scope.Locals.Len()

	c.logger.Debug().
		Str("fn", name).
		Int("slot", fn.Slot).
		Int("locals", fn.LocalCount).
		Int("instructions", len(fn.Instructions)).
		Msg("function compiled")

	return nil
}

func (c *compiler) compileParameters(params *SymbolTable) error {
	if _, ok, err := c.nextIf(parse.CLOSING_PARENTHESIS); err != nil || ok {
		return err
	}

	for {
		_, isConst, err := c.nextIf(parse.CONST_KEYWORD)
		if err != nil {
			return err
		}
		nameTok, err := c.expect(parse.IDENT)
		if err != nil {
			return err
		}
		if _, err := c.expect(parse.COLON); err != nil {
			return err
		}
		typ, err := c.compileType(false)
		if err != nil {
			return err
		}

		if _, err := params.Declare(nameTok.Str(), typ, isConst, true); err != nil {
			return makeCompileError(nameTok.Pos, err)
		}

		tok, err := c.expect(parse.COMMA, parse.CLOSING_PARENTHESIS)
		if err != nil {
			return err
		}
		if tok.Type == parse.CLOSING_PARENTHESIS {
			return nil
		}
	}
}

// compileType reads a type name, void is only accepted as a return type.
func (c *compiler) compileType(allowVoid bool) (ValueType, error) {
	tok, err := c.expect(parse.IDENT)
	if err != nil {
		return 0, err
	}

	typ, ok := ValueTypeFromName(tok.Str())
	if !ok {
		return 0, c.NewError(tok.Pos, ErrTypeInvalid, "unknown type '%s'", tok.Str())
	}
	if typ == VoidType && !allowVoid {
		return 0, c.NewError(tok.Pos, ErrTypeInvalid, "a variable cannot be of type %s", typ)
	}
	return typ, nil
}

// token handling

func (c *compiler) peek() (parse.Token, error) {
	return c.tokens.Peek()
}

func (c *compiler) next() (parse.Token, error) {
	return c.tokens.Next()
}

// nextIf consumes the next token if it has the given type.
func (c *compiler) nextIf(tokenType parse.TokenType) (parse.Token, bool, error) {
	tok, err := c.peek()
	if err != nil {
		return parse.Token{}, false, err
	}
	if tok.Type != tokenType {
		return tok, false, nil
	}
	tok, err = c.next()
	return tok, err == nil, err
}

func (c *compiler) expect(types ...parse.TokenType) (parse.Token, error) {
	tok, err := c.next()
	if err != nil {
		return parse.Token{}, err
	}
	for _, typ := range types {
		if tok.Type == typ {
			return tok, nil
		}
	}
	return tok, c.NewError(tok.Pos, ErrExpectedToken, "%s", fmtUnexpectedToken(tok, types...))
}

// emission

func (c *compiler) currentScope() *compilationScope {
	return c.compilationScopes[c.scopeIndex]
}

func (c *compiler) currentPosition() int {
	return len(c.currentScope().instructions)
}

func (c *compiler) emit(op Opcode, operands ...int64) int {
	return c.addInstruction(MakeInstruction(op, operands...))
}

// emitJump emits a branch whose operand is resolved when the enclosing function is linked.
func (c *compiler) emitJump(op Opcode, target Label) int {
	if !op.IsBranch() {
		panic(fmt.Errorf("%s is not a branch", op))
	}
	return c.addInstruction(Instruction{Op: op, Target: target})
}

func (c *compiler) addInstruction(inst Instruction) int {
	scope := c.currentScope()
	pos := len(scope.instructions)
	scope.instructions = append(scope.instructions, inst)

	if c.trace != nil {
		formatted := FormatInstructions(scope.instructions[pos:], pos, "")[0]
		c.printTrace(fmt.Sprintf("EMIT  %s", formatted))
	}
	return pos
}

func (c *compiler) newLabel() Label {
	scope := c.currentScope()
	scope.labelPositions = append(scope.labelPositions, -1)
	return Label(len(scope.labelPositions) - 1)
}

// bindLabel makes label designate the position of the next emitted instruction.
func (c *compiler) bindLabel(label Label) {
	scope := c.currentScope()
	if scope.boundLabels.Test(uint(label)) {
		panic(fmt.Errorf("label L%d is bound twice", label))
	}
	scope.boundLabels.Set(uint(label))
	scope.labelPositions[label] = len(scope.instructions)

	if c.trace != nil {
		c.printTrace(fmt.Sprintf("LABEL L%d -> %04d", label, len(scope.instructions)))
	}
}

// link replaces the pending operands of the current scope with relative deltas,
// the instruction at target is reached from pos by a delta of target - pos - 1.
func (c *compiler) link() {
	scope := c.currentScope()

	for pos := range scope.instructions {
		inst := &scope.instructions[pos]
		if !inst.IsPending() {
			continue
		}
		if !scope.boundLabels.Test(uint(inst.Target)) {
			panic(fmt.Errorf("branch at %04d targets unbound label L%d", pos, inst.Target))
		}

		target := scope.labelPositions[inst.Target]
		inst.Operand = int64(target - pos - 1)
		inst.Target = NO_LABEL

		if c.trace != nil {
			c.printTrace(fmt.Sprintf("LINK  %04d %s", pos, inst))
		}
	}
}

func (c *compiler) enterCompilationScope() {
	c.compilationScopes = append(c.compilationScopes, newCompilationScope())
	c.scopeIndex++
}

// leaveCompilationScope links the current scope and returns its instructions.
func (c *compiler) leaveCompilationScope() []Instruction {
	c.link()

	instructions := c.currentScope().instructions
	c.compilationScopes = c.compilationScopes[:len(c.compilationScopes)-1]
	c.scopeIndex--
	return instructions
}

func (c *compiler) enterLoop(start int, exit Label) *loop {
	loop := &loop{start: start, exit: exit}
	c.loops = append(c.loops, loop)
	c.loopIndex++
	if c.trace != nil {
		c.printTrace("ENTER LOOP", c.loopIndex)
	}
	return loop
}

func (c *compiler) leaveLoop() {
	if c.trace != nil {
		c.printTrace("LEAVE LOOP", c.loopIndex)
	}
	c.loops = c.loops[:len(c.loops)-1]
	c.loopIndex--
}

func (c *compiler) currentLoop() *loop {
	if c.loopIndex >= 0 {
		return c.loops[c.loopIndex]
	}
	return nil
}

func (c *compiler) NewError(pos parse.Position, kind error, format string, args ...any) error {
	return makeCompileError(pos, fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)))
}

func (c *compiler) printTrace(a ...any) {
	var (
		dots = strings.Repeat(". ", 31)
		n    = len(dots)
	)

	i := 2 * c.indent
	for i > n {
		fmt.Fprint(c.trace, dots)
		i -= n
	}

	fmt.Fprint(c.trace, dots[0:i])
	fmt.Fprintln(c.trace, a...)
}

func (c *compiler) enterTracingBlock(msg string) {
	c.printTrace(msg, "{")
	c.indent++
}

func (c *compiler) leaveTracingBlock() {
	c.indent--
	c.printTrace("}")
}
