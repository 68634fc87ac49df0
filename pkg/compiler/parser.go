package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// minInt64Magnitude is the one literal that only fits int64 once negated.
const minInt64Magnitude = "9223372036854775808"

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar:
//
//	program    = functionDecl* EOF
//	functionDecl = ("int" | "void") IDENTIFIER "(" params? ")" block
//	params     = "int" IDENTIFIER ("," "int" IDENTIFIER)*
//	statement  = varDecl | assignment | returnStmt | block | if | while
//	           | "break" ";" | "continue" ";" | exprStmt
//	varDecl    = "int" IDENTIFIER "=" expression ";"
//	assignment = IDENTIFIER "=" expression ";"
//	returnStmt = "return" expression? ";"
//	if         = "if" "(" expression ")" statement ("else" statement)?
//	while      = "while" "(" expression ")" statement
//	block      = "{" statement* "}"
//	exprStmt   = expression ";"
//	expression = logical_or
//	logical_or = logical_and ("||" logical_and)*
//	logical_and = relational ("&&" relational)*
//	relational = additive (("<"|">"|"<="|">="|"=="|"!=") additive)*
//	additive   = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/" | "%") unary)*
//	unary      = ("-" | "!") unary | primary
//	primary    = INTEGER | IDENTIFIER | IDENTIFIER "(" args ")" | "(" expression ")"
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// fmtError builds a SyntaxError at tok, quoting the source line where it appears.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	return &SyntaxError{
		Pos:      tok.Pos(),
		Expected: fmt.Sprintf(format, args...),
		Found:    tok,
		Snippet:  sourceLine(p.sourceLines, tok.Line),
	}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekAt returns the token at the given offset from the current position.
// Past the end it keeps returning the final token (EOF).
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		if len(p.tokens) == 0 {
			return Token{Type: EOF, Line: 1, Column: 1}
		}
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
// The format describes what was expected.
func (p *Parser) expect(tt TokenType, format string, args ...any) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.fmtError(tok, format, args...)
	}
	return p.advance(), nil
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseLogicalOr()
}

// parseBinaryLevel folds operands from next while the current token is one
// of ops, producing a left-leaning tree: a - b - c is (a - b) - c.
func (p *Parser) parseBinaryLevel(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if !isOneOf(tok.Type, ops) {
			return expr, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: tok.Type, Left: expr, Right: right, Pos: tok.Pos()}
	}
}

func isOneOf(tt TokenType, set []TokenType) bool {
	for _, s := range set {
		if tt == s {
			return true
		}
	}
	return false
}

// parseLogicalOr handles ||
func (p *Parser) parseLogicalOr() (Expr, error) {
	return p.parseBinaryLevel(p.parseLogicalAnd, OR_LOGICAL)
}

// parseLogicalAnd handles &&
func (p *Parser) parseLogicalAnd() (Expr, error) {
	return p.parseBinaryLevel(p.parseRelational, AND_LOGICAL)
}

// parseRelational handles < > <= >= == != at a single level.
func (p *Parser) parseRelational() (Expr, error) {
	return p.parseBinaryLevel(p.parseAdditive, LESS, GREATER, LESS_EQ, GREATER_EQ, EQUALS, NOT_EQ)
}

// parseAdditive handles + and -
func (p *Parser) parseAdditive() (Expr, error) {
	return p.parseBinaryLevel(p.parseMultiplicative, PLUS, MINUS)
}

// parseMultiplicative handles *, / and %
func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinaryLevel(p.parseUnary, STAR, SLASH, PERCENT)
}

// parseUnary handles prefix - and !
func (p *Parser) parseUnary() (Expr, error) {
	if p.peek().Type == MINUS && p.peekAt(1).Type == INTEGER && p.peekAt(1).Lexeme == minInt64Magnitude {
		tok := p.advance()
		p.advance()
		return &Literal{Value: math.MinInt64, Pos: tok.Pos()}, nil
	}
	if p.peek().Type == MINUS || p.peek().Type == NOT {
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: tok.Type, Operand: operand, Pos: tok.Pos()}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parseCallArgs() ([]Expr, error) {
	var args []Expr
	if p.peek().Type != RPAREN {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}

	if _, err := p.expect(RPAREN, "')' after call arguments"); err != nil {
		return nil, err
	}
	return args, nil
}

// parsePrimary handles literals, variables, calls, and parenthesised expressions.
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		val, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, p.fmtError(tok, "integer literal within 64-bit range")
		}
		return &Literal{Value: val, Pos: tok.Pos()}, nil

	case IDENTIFIER:
		p.advance()
		if p.peek().Type == LPAREN {
			p.advance() // (
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return &FunctionCall{Name: tok.Lexeme, Args: args, Pos: tok.Pos()}, nil
		}
		return &VarRef{Name: tok.Lexeme, Pos: tok.Pos()}, nil

	case LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, "')'"); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, p.fmtError(tok, "expression")
	}
}

// parseVarDecl parses  int name = expr ;
func (p *Parser) parseVarDecl() (Stmt, error) {
	intTok := p.advance() // int
	nameTok, err := p.expect(IDENTIFIER, "variable name after 'int'")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN, "'=' (declarations require an initializer)"); err != nil {
		return nil, err
	}
	init, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON, "';' after declaration"); err != nil {
		return nil, err
	}
	return &VariableDecl{Name: nameTok.Lexeme, Init: init, Pos: intTok.Pos()}, nil
}

// parseAssignment parses  name = expr ;
func (p *Parser) parseAssignment() (Stmt, error) {
	nameTok := p.advance()
	p.advance() // =
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON, "';' after assignment"); err != nil {
		return nil, err
	}
	return &Assignment{Name: nameTok.Lexeme, Value: val, Pos: nameTok.Pos()}, nil
}

// parseReturn parses  return expr? ;
// Whether a value is required is decided by the Checker.
func (p *Parser) parseReturn() (Stmt, error) {
	retTok := p.advance()
	if p.peek().Type == SEMICOLON {
		p.advance()
		return &ReturnStmt{Pos: retTok.Pos()}, nil
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON, "';' after return value"); err != nil {
		return nil, err
	}
	return &ReturnStmt{Expr: expr, Pos: retTok.Pos()}, nil
}

// parseBlock parses { stmt1; stmt2; ... }
func (p *Parser) parseBlock() (*BlockStmt, error) {
	open, err := p.expect(LBRACE, "'{'")
	if err != nil {
		return nil, err
	}
	block := &BlockStmt{Pos: open.Pos()}
	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	if _, err := p.expect(RBRACE, "'}' to close block opened at %s", open.Pos()); err != nil {
		return nil, err
	}
	return block, nil
}

// parseCondition parses ( expr ) after if/while.
func (p *Parser) parseCondition(keyword string) (Expr, error) {
	if _, err := p.expect(LPAREN, "'(' after '%s'", keyword); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN, "')' after %s condition", keyword); err != nil {
		return nil, err
	}
	return cond, nil
}

// parseIf parses if (cond) stmt [else stmt]. An else binds to the nearest
// unmatched if because the innermost parseIf consumes it first.
func (p *Parser) parseIf() (Stmt, error) {
	ifTok := p.advance()
	cond, err := p.parseCondition("if")
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{Condition: cond, Body: body, Pos: ifTok.Pos()}
	if p.peek().Type == ELSE {
		p.advance()
		elseBody, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt.ElseBody = elseBody
	}
	return stmt, nil
}

// parseWhile parses while (cond) stmt
func (p *Parser) parseWhile() (Stmt, error) {
	whileTok := p.advance()
	cond, err := p.parseCondition("while")
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Condition: cond, Body: body, Pos: whileTok.Pos()}, nil
}

// parseStatement dispatches on the leading token.
func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case INT:
		return p.parseVarDecl()
	case IDENTIFIER:
		if p.peekAt(1).Type == ASSIGN {
			return p.parseAssignment()
		}
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case BREAK, CONTINUE:
		p.advance()
		if _, err := p.expect(SEMICOLON, "';' after '%s'", tok.Lexeme); err != nil {
			return nil, err
		}
		if tok.Type == BREAK {
			return &BreakStmt{Pos: tok.Pos()}, nil
		}
		return &ContinueStmt{Pos: tok.Pos()}, nil
	case RETURN:
		return p.parseReturn()
	case LBRACE:
		return p.parseBlock()
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON, "';' after expression"); err != nil {
		return nil, err
	}
	return &ExprStmt{Expr: expr, Pos: tok.Pos()}, nil
}

// parseParams parses a possibly empty list of  int IDENTIFIER  separated by commas.
// The opening '(' has already been consumed.
func (p *Parser) parseParams() ([]Param, error) {
	var params []Param
	if p.peek().Type == RPAREN {
		p.advance()
		return params, nil
	}
	for {
		typeTok, err := p.expect(INT, "parameter type 'int'")
		if err != nil {
			return nil, err
		}
		nameTok, err := p.expect(IDENTIFIER, "parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Type: TypeInt, Name: nameTok.Lexeme, Pos: typeTok.Pos()})
		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RPAREN, "')' after parameters"); err != nil {
		return nil, err
	}
	return params, nil
}

// parseFunctionDecl parses (int|void) name(params) block
func (p *Parser) parseFunctionDecl() (*FunctionDecl, error) {
	typeTok := p.peek()
	var retType Type
	switch typeTok.Type {
	case INT:
		retType = TypeInt
	case VOID:
		retType = TypeVoid
	default:
		return nil, p.fmtError(typeTok, "function return type (int or void)")
	}
	p.advance()

	nameTok, err := p.expect(IDENTIFIER, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN, "'(' after function name"); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FunctionDecl{
		ReturnType: retType,
		Name:       nameTok.Lexeme,
		Params:     params,
		Body:       body,
		Pos:        typeTok.Pos(),
	}, nil
}

// ParseProgram parses the whole compilation unit.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	for p.peek().Type != EOF {
		if p.peek().Type == INVALID {
			return nil, newLexicalError(p.peek())
		}
		fn, err := p.parseFunctionDecl()
		if err != nil {
			return nil, err
		}
		prog.Funcs = append(prog.Funcs, fn)
	}
	return prog, nil
}

// Parse builds a Program from tokens. rawSource is only used to quote the
// offending line in syntax errors and may be empty.
func Parse(tokens []Token, rawSource string) (*Program, error) {
	return NewParser(tokens, rawSource).ParseProgram()
}
