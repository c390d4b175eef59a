package parse

import (
	"fmt"
	"strconv"
)

const (
	FN_KEYWORD_STRING       = "fn"
	LET_KEYWORD_STRING      = "let"
	CONST_KEYWORD_STRING    = "const"
	AS_KEYWORD_STRING       = "as"
	WHILE_KEYWORD_STRING    = "while"
	IF_KEYWORD_STRING       = "if"
	ELSE_KEYWORD_STRING     = "else"
	RETURN_KEYWORD_STRING   = "return"
	BREAK_KEYWORD_STRING    = "break"
	CONTINUE_KEYWORD_STRING = "continue"
)

type Token struct {
	Type TokenType `json:"type"`

	//decoded value: uint64 for UINT_LITERAL, float64 for DOUBLE_LITERAL,
	//string for IDENT & STRING_LITERAL, rune for CHAR_LITERAL, nil otherwise.
	Value any `json:"value,omitempty"`

	Pos Position `json:"pos"`
}

// Str returns the identifier name or the decoded string literal.
func (t Token) Str() string {
	s, _ := t.Value.(string)
	return s
}

func (t Token) String() string {
	switch t.Type {
	case IDENT:
		return t.Str()
	case UINT_LITERAL:
		return strconv.FormatUint(t.Value.(uint64), 10)
	case DOUBLE_LITERAL:
		return strconv.FormatFloat(t.Value.(float64), 'g', -1, 64)
	case STRING_LITERAL:
		return strconv.Quote(t.Str())
	case CHAR_LITERAL:
		return strconv.QuoteRune(t.Value.(rune))
	}
	return t.Type.String()
}

type TokenType uint8

const (
	EOF TokenType = iota

	//keywords
	FN_KEYWORD
	LET_KEYWORD
	CONST_KEYWORD
	AS_KEYWORD
	WHILE_KEYWORD
	IF_KEYWORD
	ELSE_KEYWORD
	RETURN_KEYWORD
	BREAK_KEYWORD
	CONTINUE_KEYWORD

	//literals
	UINT_LITERAL
	DOUBLE_LITERAL
	STRING_LITERAL
	CHAR_LITERAL
	IDENT

	//operators & punctuation
	PLUS
	MINUS
	ASTERISK
	SLASH
	EQUAL
	EQUAL_EQUAL
	EXCLAMATION_MARK_EQUAL
	LESS_THAN
	GREATER_THAN
	LESS_OR_EQUAL
	GREATER_OR_EQUAL
	OPENING_PARENTHESIS
	CLOSING_PARENTHESIS
	OPENING_CURLY_BRACKET
	CLOSING_CURLY_BRACKET
	ARROW
	COMMA
	COLON
	SEMICOLON

	tokenTypeCount
)

var (
	tokenStrings = [tokenTypeCount]string{
		EOF:                    "<EOF>",
		FN_KEYWORD:             FN_KEYWORD_STRING,
		LET_KEYWORD:            LET_KEYWORD_STRING,
		CONST_KEYWORD:          CONST_KEYWORD_STRING,
		AS_KEYWORD:             AS_KEYWORD_STRING,
		WHILE_KEYWORD:          WHILE_KEYWORD_STRING,
		IF_KEYWORD:             IF_KEYWORD_STRING,
		ELSE_KEYWORD:           ELSE_KEYWORD_STRING,
		RETURN_KEYWORD:         RETURN_KEYWORD_STRING,
		BREAK_KEYWORD:          BREAK_KEYWORD_STRING,
		CONTINUE_KEYWORD:       CONTINUE_KEYWORD_STRING,
		UINT_LITERAL:           "<uint literal>",
		DOUBLE_LITERAL:         "<double literal>",
		STRING_LITERAL:         "<string literal>",
		CHAR_LITERAL:           "<char literal>",
		IDENT:                  "<identifier>",
		PLUS:                   "+",
		MINUS:                  "-",
		ASTERISK:               "*",
		SLASH:                  "/",
		EQUAL:                  "=",
		EQUAL_EQUAL:            "==",
		EXCLAMATION_MARK_EQUAL: "!=",
		LESS_THAN:              "<",
		GREATER_THAN:           ">",
		LESS_OR_EQUAL:          "<=",
		GREATER_OR_EQUAL:       ">=",
		OPENING_PARENTHESIS:    "(",
		CLOSING_PARENTHESIS:    ")",
		OPENING_CURLY_BRACKET:  "{",
		CLOSING_CURLY_BRACKET:  "}",
		ARROW:                  "->",
		COMMA:                  ",",
		COLON:                  ":",
		SEMICOLON:              ";",
	}

	tokenTypeNames = [tokenTypeCount]string{
		EOF:                    "EOF",
		FN_KEYWORD:             "FN_KEYWORD",
		LET_KEYWORD:            "LET_KEYWORD",
		CONST_KEYWORD:          "CONST_KEYWORD",
		AS_KEYWORD:             "AS_KEYWORD",
		WHILE_KEYWORD:          "WHILE_KEYWORD",
		IF_KEYWORD:             "IF_KEYWORD",
		ELSE_KEYWORD:           "ELSE_KEYWORD",
		RETURN_KEYWORD:         "RETURN_KEYWORD",
		BREAK_KEYWORD:          "BREAK_KEYWORD",
		CONTINUE_KEYWORD:       "CONTINUE_KEYWORD",
		UINT_LITERAL:           "UINT_LITERAL",
		DOUBLE_LITERAL:         "DOUBLE_LITERAL",
		STRING_LITERAL:         "STRING_LITERAL",
		CHAR_LITERAL:           "CHAR_LITERAL",
		IDENT:                  "IDENT",
		PLUS:                   "PLUS",
		MINUS:                  "MINUS",
		ASTERISK:               "ASTERISK",
		SLASH:                  "SLASH",
		EQUAL:                  "EQUAL",
		EQUAL_EQUAL:            "EQUAL_EQUAL",
		EXCLAMATION_MARK_EQUAL: "EXCLAMATION_MARK_EQUAL",
		LESS_THAN:              "LESS_THAN",
		GREATER_THAN:           "GREATER_THAN",
		LESS_OR_EQUAL:          "LESS_OR_EQUAL",
		GREATER_OR_EQUAL:       "GREATER_OR_EQUAL",
		OPENING_PARENTHESIS:    "OPENING_PARENTHESIS",
		CLOSING_PARENTHESIS:    "CLOSING_PARENTHESIS",
		OPENING_CURLY_BRACKET:  "OPENING_CURLY_BRACKET",
		CLOSING_CURLY_BRACKET:  "CLOSING_CURLY_BRACKET",
		ARROW:                  "ARROW",
		COMMA:                  "COMMA",
		COLON:                  "COLON",
		SEMICOLON:              "SEMICOLON",
	}

	keywords = map[string]TokenType{
		FN_KEYWORD_STRING:       FN_KEYWORD,
		LET_KEYWORD_STRING:      LET_KEYWORD,
		CONST_KEYWORD_STRING:    CONST_KEYWORD,
		AS_KEYWORD_STRING:       AS_KEYWORD,
		WHILE_KEYWORD_STRING:    WHILE_KEYWORD,
		IF_KEYWORD_STRING:       IF_KEYWORD,
		ELSE_KEYWORD_STRING:     ELSE_KEYWORD,
		RETURN_KEYWORD_STRING:   RETURN_KEYWORD,
		BREAK_KEYWORD_STRING:    BREAK_KEYWORD,
		CONTINUE_KEYWORD_STRING: CONTINUE_KEYWORD,
	}
)

// String returns the source text of the token type (e.g. "==" or "while"),
// or a placeholder such as "<identifier>" for token types without fixed text.
func (t TokenType) String() string {
	if t >= tokenTypeCount {
		return fmt.Sprintf("<invalid token type %d>", t)
	}
	return tokenStrings[t]
}

// Name returns the name of the constant, it is used by the JSON token dump.
func (t TokenType) Name() string {
	if t >= tokenTypeCount {
		return fmt.Sprintf("TokenType(%d)", t)
	}
	return tokenTypeNames[t]
}

func (t TokenType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.Name())), nil
}

func (t TokenType) IsRelationalOperator() bool {
	switch t {
	case EQUAL_EQUAL, EXCLAMATION_MARK_EQUAL, LESS_THAN, GREATER_THAN, LESS_OR_EQUAL, GREATER_OR_EQUAL:
		return true
	}
	return false
}

// Position is a 1-based line & column location in the source.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}
