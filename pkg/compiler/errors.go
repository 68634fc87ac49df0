package compiler

import (
	"fmt"
	"strings"
)

// LexicalError reports a character sequence that starts no valid token.
type LexicalError struct {
	Pos    Pos
	Lexeme string
	Msg    string
}

func newLexicalError(tok Token) *LexicalError {
	msg := fmt.Sprintf("unexpected character %q", tok.Lexeme)
	switch tok.Lexeme {
	case "/*":
		msg = "unterminated block comment"
	case "&", "|":
		msg = fmt.Sprintf("unexpected character %q (did you mean %q?)", tok.Lexeme, tok.Lexeme+tok.Lexeme)
	}
	return &LexicalError{Pos: tok.Pos(), Lexeme: tok.Lexeme, Msg: msg}
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("lexical error at %s: %s", e.Pos, e.Msg)
}

// SyntaxError reports a grammar violation at the offending token.
type SyntaxError struct {
	Pos      Pos
	Expected string // the construct the parser wanted
	Found    Token
	Snippet  string // trimmed source line, empty when unavailable
}

func (e *SyntaxError) Error() string {
	found := fmt.Sprintf("%s (%q)", e.Found.Type, e.Found.Lexeme)
	if e.Found.Type == EOF {
		found = "end of file"
	}
	msg := fmt.Sprintf("syntax error at %s: expected %s, got %s", e.Pos, e.Expected, found)
	if e.Snippet != "" {
		msg += "\n  |> " + e.Snippet
	}
	return msg
}

// SemanticKind classifies a SemanticError.
type SemanticKind int

const (
	Redeclared SemanticKind = iota
	Undeclared
	NotAFunction
	NotAVariable
	ArgCount
	ArgType
	TypeMismatch
	OperandType
	ReturnMismatch
	LoopControl
	TooManyParams
)

var semanticKindNames = [...]string{
	Redeclared:     "redeclaration",
	Undeclared:     "undeclared identifier",
	NotAFunction:   "not a function",
	NotAVariable:   "not a variable",
	ArgCount:       "argument count mismatch",
	ArgType:        "argument type mismatch",
	TypeMismatch:   "type mismatch",
	OperandType:    "invalid operand type",
	ReturnMismatch: "return mismatch",
	LoopControl:    "loop control outside loop",
	TooManyParams:  "too many parameters",
}

func (k SemanticKind) String() string {
	if int(k) >= 0 && int(k) < len(semanticKindNames) {
		return semanticKindNames[k]
	}
	return fmt.Sprintf("SemanticKind(%d)", int(k))
}

// SemanticError reports a scope or type violation found by the Checker.
type SemanticError struct {
	Kind SemanticKind
	Name string // offending identifier, empty when none applies
	Pos  Pos
	Msg  string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("semantic error at %s: %s", e.Pos, e.Msg)
}

func semErr(kind SemanticKind, name string, pos Pos, format string, args ...any) *SemanticError {
	return &SemanticError{Kind: kind, Name: name, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// sourceLine returns the trimmed text of a 1-based line of src.
func sourceLine(lines []string, line int) string {
	if line-1 >= 0 && line-1 < len(lines) {
		return strings.TrimSpace(lines[line-1])
	}
	return ""
}
