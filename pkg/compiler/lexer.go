package compiler

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"int":      INT,
	"void":     VOID,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"break":    BREAK,
	"continue": CONTINUE,
	"return":   RETURN,
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src    string
	pos    int // index of the next byte to consume
	line   int // current 1-based source line
	column int // current 1-based source column, counted in bytes
}

func newLexer(src string) *Lexer {
	return &Lexer{src: src, pos: 0, line: 1, column: 1}
}

// peek returns the byte at the current position without advancing.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the byte one position ahead of the current position.
func (l *Lexer) peek2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one byte and returns it.
func (l *Lexer) advance() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func isSpace(r byte) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func isIdentStart(r byte) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isDigit(r byte) bool { return r >= '0' && r <= '9' }

// skipTrivia discards whitespace and both comment styles. When a block
// comment runs to the end of input it returns false and the position of the
// comment's opening "/*".
func (l *Lexer) skipTrivia() (bool, int, int) {
	for l.pos < len(l.src) {
		switch {
		case isSpace(l.peek()):
			l.advance()
		case l.peek() == '/' && l.peek2() == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case l.peek() == '/' && l.peek2() == '*':
			line, col := l.line, l.column
			l.advance() // /
			l.advance() // *
			for l.pos < len(l.src) && !(l.peek() == '*' && l.peek2() == '/') {
				l.advance()
			}
			if l.pos >= len(l.src) {
				return false, line, col
			}
			l.advance() // *
			l.advance() // /
		default:
			return true, 0, 0
		}
	}
	return true, 0, 0
}

// scanIdent collects a full identifier or keyword token.
// The first character (letter or '_') must still be at l.peek().
func (l *Lexer) scanIdent() Token {
	line, col := l.line, l.column
	start := l.pos
	for l.pos < len(l.src) && (isIdentStart(l.peek()) || isDigit(l.peek())) {
		l.advance()
	}
	lexeme := l.src[start:l.pos]
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Line: line, Column: col}
}

// scanInt collects a run of decimal digits. A leading '-' is never part of
// the literal; unary minus belongs to the parser.
func (l *Lexer) scanInt() Token {
	line, col := l.line, l.column
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	return Token{Type: INTEGER, Lexeme: l.src[start:l.pos], Line: line, Column: col}
}

// nextToken skips trivia and returns the next Token. An INVALID token means
// scanning must stop.
func (l *Lexer) nextToken() Token {
	if ok, line, col := l.skipTrivia(); !ok {
		return Token{Type: INVALID, Lexeme: "/*", Line: line, Column: col}
	}
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Lexeme: "", Line: l.line, Column: l.column}
	}

	ch := l.peek()
	line, col := l.line, l.column

	if isIdentStart(ch) {
		return l.scanIdent()
	}
	if isDigit(ch) {
		return l.scanInt()
	}

	tok := func(tt TokenType, lexeme string) Token {
		return Token{Type: tt, Lexeme: lexeme, Line: line, Column: col}
	}

	l.advance() // consume the character before the switch
	switch ch {
	case '{':
		return tok(LBRACE, "{")
	case '}':
		return tok(RBRACE, "}")
	case '(':
		return tok(LPAREN, "(")
	case ')':
		return tok(RPAREN, ")")
	case ';':
		return tok(SEMICOLON, ";")
	case ',':
		return tok(COMMA, ",")
	case '+':
		return tok(PLUS, "+")
	case '-':
		return tok(MINUS, "-")
	case '*':
		return tok(STAR, "*")
	case '/':
		return tok(SLASH, "/")
	case '%':
		return tok(PERCENT, "%")
	case '&':
		if l.peek() == '&' {
			l.advance()
			return tok(AND_LOGICAL, "&&")
		}
		return tok(INVALID, "&")
	case '|':
		if l.peek() == '|' {
			l.advance()
			return tok(OR_LOGICAL, "||")
		}
		return tok(INVALID, "|")
	case '!':
		if l.peek() == '=' {
			l.advance()
			return tok(NOT_EQ, "!=")
		}
		return tok(NOT, "!")
	case '<':
		if l.peek() == '=' {
			l.advance()
			return tok(LESS_EQ, "<=")
		}
		return tok(LESS, "<")
	case '>':
		if l.peek() == '=' {
			l.advance()
			return tok(GREATER_EQ, ">=")
		}
		return tok(GREATER, ">")
	case '=':
		if l.peek() == '=' { // lookahead: distinguish = vs ==
			l.advance()
			return tok(EQUALS, "==")
		}
		return tok(ASSIGN, "=")
	default:
		// The raw byte, even when it opens a multi-byte UTF-8 sequence.
		return tok(INVALID, string([]byte{ch}))
	}
}

// Tokenize scans src and returns every token, always ending with EOF. It never
// fails: on the first byte that starts no valid token it emits a single
// INVALID token followed by EOF and stops. Callers detect lexical errors by
// looking for INVALID (or use Lex).
func Tokenize(src string) []Token {
	l := newLexer(src)
	var tokens []Token
	for {
		tok := l.nextToken()
		tokens = append(tokens, tok)
		switch tok.Type {
		case EOF:
			return tokens
		case INVALID:
			return append(tokens, Token{Type: EOF, Lexeme: "", Line: l.line, Column: l.column})
		}
	}
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a *LexicalError when the scan stopped on an INVALID token.
func Lex(src string) ([]Token, error) {
	tokens := Tokenize(src)
	for _, tok := range tokens {
		if tok.Type == INVALID {
			return tokens, newLexicalError(tok)
		}
	}
	return tokens, nil
}
