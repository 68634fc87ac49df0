package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF     TokenType = iota // sentinel: end of input
	INVALID                  // a byte that starts no valid token; scanning stops here

	// Literals
	IDENTIFIER // variable / function name
	INTEGER    // decimal integer literal, never signed

	// Keywords
	INT      // "int"
	VOID     // "void"
	IF       // "if"
	ELSE     // "else"
	WHILE    // "while"
	BREAK    // "break"
	CONTINUE // "continue"
	RETURN   // "return"

	// Paired delimiters
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,

	// Arithmetic operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %

	// Logical operators
	AND_LOGICAL // &&
	OR_LOGICAL  // ||
	NOT         // !

	// Assignment / comparison
	ASSIGN     // =
	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
)

var tokenNames = [...]string{
	EOF:         "EOF",
	INVALID:     "INVALID",
	IDENTIFIER:  "IDENTIFIER",
	INTEGER:     "INTEGER",
	INT:         "INT",
	VOID:        "VOID",
	IF:          "IF",
	ELSE:        "ELSE",
	WHILE:       "WHILE",
	BREAK:       "BREAK",
	CONTINUE:    "CONTINUE",
	RETURN:      "RETURN",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	SEMICOLON:   "SEMICOLON",
	COMMA:       "COMMA",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	PERCENT:     "PERCENT",
	AND_LOGICAL: "AND_LOGICAL",
	OR_LOGICAL:  "OR_LOGICAL",
	NOT:         "NOT",
	ASSIGN:      "ASSIGN",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	GREATER:     "GREATER",
	LESS_EQ:     "LESS_EQ",
	GREATER_EQ:  "GREATER_EQ",
}

// operatorText is the source spelling of each operator kind, used when the
// AST is printed back.
var operatorText = map[TokenType]string{
	PLUS:        "+",
	MINUS:       "-",
	STAR:        "*",
	SLASH:       "/",
	PERCENT:     "%",
	AND_LOGICAL: "&&",
	OR_LOGICAL:  "||",
	NOT:         "!",
	EQUALS:      "==",
	NOT_EQ:      "!=",
	LESS:        "<",
	GREATER:     ">",
	LESS_EQ:     "<=",
	GREATER_EQ:  ">=",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Symbol returns the operator's source spelling, or its name for
// non-operator kinds.
func (tt TokenType) Symbol() string {
	if s, ok := operatorText[tt]; ok {
		return s
	}
	return tt.String()
}

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
	Column int    // 1-based column of the first character
}

// Pos returns the token's starting position.
func (t Token) Pos() Pos { return Pos{Line: t.Line, Column: t.Column} }

func (t Token) String() string {
	return fmt.Sprintf("%-12s %-12q  %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}
