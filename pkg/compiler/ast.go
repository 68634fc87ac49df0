package compiler

import (
	"fmt"
	"strings"
)

// Type is the static type of a value or function result.
type Type int

const (
	TypeUnknown Type = iota
	TypeInt
	TypeVoid
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeVoid:
		return "void"
	default:
		return "unknown"
	}
}

//  Expression nodes

// Expr is implemented by every node that produces a value.
// genExpr always leaves the result in the accumulator (a0).
// The set of implementations is closed: Literal, VarRef, UnaryExpr,
// BinaryExpr and FunctionCall.
type Expr interface {
	exprNode()
	Position() Pos
	String() string
}

// Literal is an integer constant.
//
//	return 10;
//	       ^^  Literal{Value: 10}
type Literal struct {
	Value int64
	Pos   Pos
}

func (*Literal) exprNode()        {}
func (l *Literal) Position() Pos  { return l.Pos }
func (l *Literal) String() string { return fmt.Sprintf("%d", l.Value) }

// VarRef is a read of a named variable.
//
//	return x;
//	       ^  VarRef{Name: "x"}
type VarRef struct {
	Name string
	Pos  Pos
}

func (*VarRef) exprNode()        {}
func (v *VarRef) Position() Pos  { return v.Pos }
func (v *VarRef) String() string { return v.Name }

// UnaryExpr represents a prefix operator: -x or !x.
type UnaryExpr struct {
	Op      TokenType // MINUS or NOT
	Operand Expr
	Pos     Pos
}

func (*UnaryExpr) exprNode()        {}
func (u *UnaryExpr) Position() Pos  { return u.Pos }
func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s%s)", u.Op.Symbol(), u.Operand) }

// BinaryExpr represents a binary operation: Left Op Right.
//
//	x + 1
//	^ ^ ^
//	| | |
//	| | Right
//	| Op
//	Left
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
	Pos   Pos // position of the operator
}

func (*BinaryExpr) exprNode()       {}
func (b *BinaryExpr) Position() Pos { return b.Pos }
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op.Symbol(), b.Right)
}

// FunctionCall represents name(args).
type FunctionCall struct {
	Name string
	Args []Expr
	Pos  Pos
}

func (*FunctionCall) exprNode()       {}
func (c *FunctionCall) Position() Pos { return c.Pos }
func (c *FunctionCall) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ", "))
}

//  Statement nodes

// Stmt is implemented by every node that does not produce a value.
// The set of implementations is closed: VariableDecl, Assignment, ExprStmt,
// ReturnStmt, BlockStmt, IfStmt, WhileStmt, BreakStmt and ContinueStmt.
type Stmt interface {
	stmtNode()
	Position() Pos
	String() string
}

// VariableDecl represents  int name = expr;
type VariableDecl struct {
	Name string
	Init Expr
	Pos  Pos
}

func (*VariableDecl) stmtNode()       {}
func (d *VariableDecl) Position() Pos { return d.Pos }
func (d *VariableDecl) String() string {
	return fmt.Sprintf("VariableDecl(int %s = %s)", d.Name, d.Init)
}

// Assignment represents  name = expr;
type Assignment struct {
	Name  string
	Value Expr
	Pos   Pos
}

func (*Assignment) stmtNode()       {}
func (a *Assignment) Position() Pos { return a.Pos }
func (a *Assignment) String() string {
	return fmt.Sprintf("Assignment(%s = %s)", a.Name, a.Value)
}

// ExprStmt represents an expression evaluated for its side effects (e.g. a function call).
type ExprStmt struct {
	Expr Expr
	Pos  Pos
}

func (*ExprStmt) stmtNode()       {}
func (e *ExprStmt) Position() Pos { return e.Pos }
func (e *ExprStmt) String() string {
	return fmt.Sprintf("ExprStmt(%s)", e.Expr)
}

// ReturnStmt represents  return expr;  or  return;
type ReturnStmt struct {
	Expr Expr // nil for a bare return
	Pos  Pos
}

func (*ReturnStmt) stmtNode()       {}
func (r *ReturnStmt) Position() Pos { return r.Pos }
func (r *ReturnStmt) String() string {
	if r.Expr == nil {
		return "ReturnStmt()"
	}
	return fmt.Sprintf("ReturnStmt(%s)", r.Expr)
}

// BlockStmt represents { statement; ... }. It introduces a scope.
type BlockStmt struct {
	Stmts []Stmt
	Pos   Pos
}

func (*BlockStmt) stmtNode()       {}
func (b *BlockStmt) Position() Pos { return b.Pos }
func (b *BlockStmt) String() string {
	parts := make([]string, len(b.Stmts))
	for i, s := range b.Stmts {
		parts[i] = s.String()
	}
	return fmt.Sprintf("BlockStmt[%s]", strings.Join(parts, "; "))
}

// IfStmt represents if (cond) body [else elseBody]
type IfStmt struct {
	Condition Expr
	Body      Stmt
	ElseBody  Stmt // may be nil
	Pos       Pos
}

func (*IfStmt) stmtNode()       {}
func (i *IfStmt) Position() Pos { return i.Pos }
func (i *IfStmt) String() string {
	if i.ElseBody != nil {
		return fmt.Sprintf("IfStmt(if %s then %s else %s)", i.Condition, i.Body, i.ElseBody)
	}
	return fmt.Sprintf("IfStmt(if %s then %s)", i.Condition, i.Body)
}

// WhileStmt represents while (cond) body
type WhileStmt struct {
	Condition Expr
	Body      Stmt
	Pos       Pos
}

func (*WhileStmt) stmtNode()       {}
func (w *WhileStmt) Position() Pos { return w.Pos }
func (w *WhileStmt) String() string {
	return fmt.Sprintf("WhileStmt(while %s do %s)", w.Condition, w.Body)
}

// BreakStmt represents break;
type BreakStmt struct {
	Pos Pos
}

func (*BreakStmt) stmtNode()        {}
func (s *BreakStmt) Position() Pos  { return s.Pos }
func (s *BreakStmt) String() string { return "BreakStmt" }

// ContinueStmt represents continue;
type ContinueStmt struct {
	Pos Pos
}

func (*ContinueStmt) stmtNode()        {}
func (s *ContinueStmt) Position() Pos  { return s.Pos }
func (s *ContinueStmt) String() string { return "ContinueStmt" }

//  Top level

// Param is one entry of a parameter list. Parameters are always int.
type Param struct {
	Type Type
	Name string
	Pos  Pos
}

// FunctionDecl represents (int|void) name(params) { body }
type FunctionDecl struct {
	ReturnType Type
	Name       string
	Params     []Param
	Body       *BlockStmt
	Pos        Pos
}

func (f *FunctionDecl) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %s", p.Type, p.Name)
	}
	return fmt.Sprintf("FunctionDecl(%s %s(%s), body=%s)", f.ReturnType, f.Name, strings.Join(params, ", "), f.Body)
}

// Program is a compilation unit: an ordered list of function definitions.
type Program struct {
	Funcs []*FunctionDecl
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, f := range p.Funcs {
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
