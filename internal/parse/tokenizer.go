package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrTokenize = errors.New("tokenize error")
)

type TokenizeErrorKind uint8

const (
	InvalidCharacter TokenizeErrorKind = iota + 1
	UnterminatedString
	UnterminatedChar
	InvalidEscapeSequence
	InvalidCharLiteral
	InvalidNumber
)

func (k TokenizeErrorKind) String() string {
	switch k {
	case InvalidCharacter:
		return "invalid character"
	case UnterminatedString:
		return "unterminated string literal"
	case UnterminatedChar:
		return "unterminated char literal"
	case InvalidEscapeSequence:
		return "invalid escape sequence"
	case InvalidCharLiteral:
		return "a char literal should contain exactly one character"
	case InvalidNumber:
		return "invalid number literal"
	}
	return "unknown tokenize error"
}

type TokenizeError struct {
	Kind TokenizeErrorKind
	Pos  Position
	Text string //offending text, may be empty
}

func (e *TokenizeError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("tokenize: %s: %s: %q", e.Pos, e.Kind, e.Text)
	}
	return fmt.Sprintf("tokenize: %s: %s", e.Pos, e.Kind)
}

func (e *TokenizeError) Unwrap() error {
	return ErrTokenize
}

// A Tokenizer lazily turns c0 source code into tokens, it never looks more than
// two characters ahead. Once EOF has been returned every following call returns EOF.
type Tokenizer struct {
	src  []rune
	i    int32
	line int
	col  int
}

func NewTokenizer(src string) *Tokenizer {
	return &Tokenizer{
		src:  []rune(src),
		line: 1,
		col:  1,
	}
}

// Tokenize returns all the tokens of src, the last token is always EOF.
func Tokenize(src string) ([]Token, error) {
	tokenizer := NewTokenizer(src)
	var tokens []Token

	for {
		token, err := tokenizer.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
		if token.Type == EOF {
			return tokens, nil
		}
	}
}

func (t *Tokenizer) NextToken() (Token, error) {
	t.eatSpaceAndComments()

	if t.isEOF() {
		return Token{Type: EOF, Pos: t.pos()}, nil
	}

	r := t.peekRune()
	switch {
	case isDecDigit(r):
		return t.parseNumber()
	case isIdentFirstChar(r):
		return t.parseIdentOrKeyword(), nil
	case r == '"':
		return t.parseString()
	case r == '\'':
		return t.parseChar()
	default:
		return t.parseOperator()
	}
}

func (t *Tokenizer) parseNumber() (Token, error) {
	start := t.pos()
	startIndex := t.i
	isDouble := false

	t.eatDigits()

	if t.peekRune() == '.' {
		isDouble = true
		t.advance()
		if !isDecDigit(t.peekRune()) {
			return Token{}, t.errorFrom(InvalidNumber, start, startIndex)
		}
		t.eatDigits()

		if r := t.peekRune(); r == 'e' || r == 'E' {
			t.advance()
			if r := t.peekRune(); r == '+' || r == '-' {
				t.advance()
			}
			if !isDecDigit(t.peekRune()) {
				return Token{}, t.errorFrom(InvalidNumber, start, startIndex)
			}
			t.eatDigits()
		}
	}

	literal := string(t.src[startIndex:t.i])

	if isDouble {
		f, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return Token{}, &TokenizeError{Kind: InvalidNumber, Pos: start, Text: literal}
		}
		return Token{Type: DOUBLE_LITERAL, Value: f, Pos: start}, nil
	}

	n, err := strconv.ParseUint(literal, 10, 64)
	if err != nil {
		return Token{}, &TokenizeError{Kind: InvalidNumber, Pos: start, Text: literal}
	}
	return Token{Type: UINT_LITERAL, Value: n, Pos: start}, nil
}

func (t *Tokenizer) parseIdentOrKeyword() Token {
	start := t.pos()
	startIndex := t.i

	for !t.isEOF() && isIdentChar(t.peekRune()) {
		t.advance()
	}

	name := string(t.src[startIndex:t.i])
	if tokenType, ok := keywords[name]; ok {
		return Token{Type: tokenType, Pos: start}
	}
	return Token{Type: IDENT, Value: name, Pos: start}
}

func (t *Tokenizer) parseString() (Token, error) {
	start := t.pos()
	t.advance() //eat '"'

	buf := strings.Builder{}

	for {
		if t.isEOF() || t.peekRune() == '\n' {
			return Token{}, &TokenizeError{Kind: UnterminatedString, Pos: start}
		}
		r := t.peekRune()
		if r == '"' {
			t.advance()
			break
		}
		decoded, err := t.parseStringChar()
		if err != nil {
			return Token{}, err
		}
		buf.WriteRune(decoded)
	}

	return Token{Type: STRING_LITERAL, Value: buf.String(), Pos: start}, nil
}

func (t *Tokenizer) parseChar() (Token, error) {
	start := t.pos()
	t.advance() //eat '\''

	if t.isEOF() || t.peekRune() == '\n' {
		return Token{}, &TokenizeError{Kind: UnterminatedChar, Pos: start}
	}
	if t.peekRune() == '\'' {
		return Token{}, &TokenizeError{Kind: InvalidCharLiteral, Pos: start}
	}

	decoded, err := t.parseStringChar()
	if err != nil {
		return Token{}, err
	}

	if t.isEOF() {
		return Token{}, &TokenizeError{Kind: UnterminatedChar, Pos: start}
	}
	if t.peekRune() != '\'' {
		return Token{}, &TokenizeError{Kind: InvalidCharLiteral, Pos: start}
	}
	t.advance()

	return Token{Type: CHAR_LITERAL, Value: decoded, Pos: start}, nil
}

// parseStringChar reads a regular character or an escape sequence.
func (t *Tokenizer) parseStringChar() (rune, error) {
	r := t.peekRune()
	if r != '\\' {
		t.advance()
		return r, nil
	}

	escapePos := t.pos()
	t.advance()
	if t.isEOF() {
		return 0, &TokenizeError{Kind: InvalidEscapeSequence, Pos: escapePos, Text: `\`}
	}

	escaped := t.peekRune()
	t.advance()

	switch escaped {
	case '\\':
		return '\\', nil
	case '"':
		return '"', nil
	case '\'':
		return '\'', nil
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	default:
		return 0, &TokenizeError{Kind: InvalidEscapeSequence, Pos: escapePos, Text: `\` + string(escaped)}
	}
}

func (t *Tokenizer) parseOperator() (Token, error) {
	start := t.pos()
	r := t.peekRune()
	t.advance()

	single := func(tokenType TokenType) (Token, error) {
		return Token{Type: tokenType, Pos: start}, nil
	}

	//two-character operators
	withEqual := func(ifEqual, otherwise TokenType) (Token, error) {
		if t.peekRune() == '=' {
			t.advance()
			return single(ifEqual)
		}
		return single(otherwise)
	}

	switch r {
	case '+':
		return single(PLUS)
	case '-':
		if t.peekRune() == '>' {
			t.advance()
			return single(ARROW)
		}
		return single(MINUS)
	case '*':
		return single(ASTERISK)
	case '/':
		return single(SLASH)
	case '=':
		return withEqual(EQUAL_EQUAL, EQUAL)
	case '<':
		return withEqual(LESS_OR_EQUAL, LESS_THAN)
	case '>':
		return withEqual(GREATER_OR_EQUAL, GREATER_THAN)
	case '!':
		if t.peekRune() == '=' {
			t.advance()
			return single(EXCLAMATION_MARK_EQUAL)
		}
	case '(':
		return single(OPENING_PARENTHESIS)
	case ')':
		return single(CLOSING_PARENTHESIS)
	case '{':
		return single(OPENING_CURLY_BRACKET)
	case '}':
		return single(CLOSING_CURLY_BRACKET)
	case ',':
		return single(COMMA)
	case ':':
		return single(COLON)
	case ';':
		return single(SEMICOLON)
	}

	return Token{}, &TokenizeError{Kind: InvalidCharacter, Pos: start, Text: string(r)}
}

func (t *Tokenizer) eatSpaceAndComments() {
	for !t.isEOF() {
		r := t.peekRune()
		switch {
		case unicode.IsSpace(r):
			t.advance()
		case r == '/' && t.peekNextRune() == '/':
			for !t.isEOF() && t.peekRune() != '\n' {
				t.advance()
			}
		default:
			return
		}
	}
}

func (t *Tokenizer) eatDigits() {
	for !t.isEOF() && isDecDigit(t.peekRune()) {
		t.advance()
	}
}

func (t *Tokenizer) errorFrom(kind TokenizeErrorKind, start Position, startIndex int32) error {
	return &TokenizeError{Kind: kind, Pos: start, Text: string(t.src[startIndex:t.i])}
}

func (t *Tokenizer) isEOF() bool {
	return t.i >= int32(len(t.src))
}

func (t *Tokenizer) peekRune() rune {
	if t.isEOF() {
		return 0
	}
	return t.src[t.i]
}

func (t *Tokenizer) peekNextRune() rune {
	if t.i+1 >= int32(len(t.src)) {
		return 0
	}
	return t.src[t.i+1]
}

func (t *Tokenizer) advance() {
	if t.src[t.i] == '\n' {
		t.line++
		t.col = 1
	} else {
		t.col++
	}
	t.i++
}

func (t *Tokenizer) pos() Position {
	return Position{Line: t.line, Column: t.col}
}

func isDecDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentFirstChar(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentChar(r rune) bool {
	return isIdentFirstChar(r) || isDecDigit(r)
}
