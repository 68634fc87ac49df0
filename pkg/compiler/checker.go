package compiler

import "fmt"

// MaxParams is the number of argument registers (a0-a7). Functions may not
// declare more parameters than that.
const MaxParams = 8

// Checker verifies scoping and typing of a parsed Program. It builds no new
// structure; a fresh scope stack is created for every Check call.
type Checker struct {
	scopes    *scopeStack
	current   *FunctionDecl
	loopDepth int
}

// Check validates prog and returns the first *SemanticError found, or nil.
func Check(prog *Program) error {
	c := &Checker{scopes: newScopeStack()}
	return c.checkProgram(prog)
}

func (c *Checker) checkProgram(prog *Program) error {
	// Register every function first so calls may refer forward.
	for _, fn := range prog.Funcs {
		if len(fn.Params) > MaxParams {
			return semErr(TooManyParams, fn.Name, fn.Pos,
				"function %q declares %d parameters; at most %d are supported", fn.Name, len(fn.Params), MaxParams)
		}
		params := make([]Type, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Type
		}
		sym := Symbol{Type: fn.ReturnType, IsFunction: true, ParamTypes: params, Pos: fn.Pos}
		if prev, ok := c.scopes.declare(fn.Name, sym); !ok {
			return semErr(Redeclared, fn.Name, fn.Pos,
				"redeclaration of function %q (previously declared at %s)", fn.Name, prev.Pos)
		}
	}

	for _, fn := range prog.Funcs {
		if err := c.checkFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkFunction(fn *FunctionDecl) error {
	c.current = fn
	c.loopDepth = 0
	defer func() { c.current = nil }()

	// Parameters get their own frame; the body block pushes another, so a
	// top-level local may shadow a parameter.
	c.scopes.push()
	defer c.scopes.pop()
	for _, p := range fn.Params {
		if prev, ok := c.scopes.declare(p.Name, Symbol{Type: p.Type, Pos: p.Pos}); !ok {
			return semErr(Redeclared, p.Name, p.Pos,
				"redeclaration of parameter %q (previously declared at %s)", p.Name, prev.Pos)
		}
	}
	return c.checkStmt(fn.Body)
}

func (c *Checker) checkStmts(stmts []Stmt) error {
	for _, s := range stmts {
		if err := c.checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkStmt(s Stmt) error {
	switch n := s.(type) {
	case *VariableDecl:
		t, err := c.checkExpr(n.Init)
		if err != nil {
			return err
		}
		if t != TypeInt {
			return semErr(TypeMismatch, n.Name, n.Init.Position(),
				"cannot initialize int variable %q with a %s value", n.Name, t)
		}
		if prev, ok := c.scopes.declare(n.Name, Symbol{Type: t, Pos: n.Pos}); !ok {
			return semErr(Redeclared, n.Name, n.Pos,
				"redeclaration of %q in the same scope (previously declared at %s)", n.Name, prev.Pos)
		}

	case *Assignment:
		sym, err := c.resolveVariable(n.Name, n.Pos)
		if err != nil {
			return err
		}
		t, err := c.checkExpr(n.Value)
		if err != nil {
			return err
		}
		if t != sym.Type {
			return semErr(TypeMismatch, n.Name, n.Value.Position(),
				"cannot assign a %s value to %s variable %q", t, sym.Type, n.Name)
		}

	case *ExprStmt:
		if _, err := c.checkExpr(n.Expr); err != nil {
			return err
		}

	case *ReturnStmt:
		return c.checkReturn(n)

	case *BlockStmt:
		c.scopes.push()
		defer c.scopes.pop()
		return c.checkStmts(n.Stmts)

	case *IfStmt:
		if err := c.checkCondition(n.Condition, "if"); err != nil {
			return err
		}
		if err := c.checkStmt(n.Body); err != nil {
			return err
		}
		if n.ElseBody != nil {
			return c.checkStmt(n.ElseBody)
		}

	case *WhileStmt:
		if err := c.checkCondition(n.Condition, "while"); err != nil {
			return err
		}
		c.loopDepth++
		defer func() { c.loopDepth-- }()
		return c.checkStmt(n.Body)

	case *BreakStmt:
		if c.loopDepth == 0 {
			return semErr(LoopControl, "", n.Pos, "break statement outside of loop")
		}

	case *ContinueStmt:
		if c.loopDepth == 0 {
			return semErr(LoopControl, "", n.Pos, "continue statement outside of loop")
		}

	default:
		panic(fmt.Sprintf("checker: unknown statement node %T", s))
	}
	return nil
}

func (c *Checker) checkReturn(n *ReturnStmt) error {
	fn := c.current
	if n.Expr == nil {
		if fn.ReturnType != TypeVoid {
			return semErr(ReturnMismatch, fn.Name, n.Pos,
				"function %q returns %s but return has no value", fn.Name, fn.ReturnType)
		}
		return nil
	}
	t, err := c.checkExpr(n.Expr)
	if err != nil {
		return err
	}
	if fn.ReturnType == TypeVoid {
		return semErr(ReturnMismatch, fn.Name, n.Pos,
			"void function %q cannot return a value", fn.Name)
	}
	if t != fn.ReturnType {
		return semErr(ReturnMismatch, fn.Name, n.Expr.Position(),
			"function %q returns %s but the value is %s", fn.Name, fn.ReturnType, t)
	}
	return nil
}

func (c *Checker) checkCondition(cond Expr, keyword string) error {
	t, err := c.checkExpr(cond)
	if err != nil {
		return err
	}
	if t != TypeInt {
		return semErr(OperandType, "", cond.Position(), "%s condition must be int, got %s", keyword, t)
	}
	return nil
}

// resolveVariable looks up name and rejects function symbols.
func (c *Checker) resolveVariable(name string, pos Pos) (Symbol, error) {
	sym, ok := c.scopes.lookup(name)
	if !ok {
		return Symbol{}, semErr(Undeclared, name, pos, "use of undeclared identifier %q", name)
	}
	if sym.IsFunction {
		return Symbol{}, semErr(NotAVariable, name, pos, "%q is a function, not a variable", name)
	}
	return sym, nil
}

// checkExpr types e bottom-up.
func (c *Checker) checkExpr(e Expr) (Type, error) {
	switch n := e.(type) {
	case *Literal:
		return TypeInt, nil

	case *VarRef:
		sym, err := c.resolveVariable(n.Name, n.Pos)
		if err != nil {
			return TypeUnknown, err
		}
		return sym.Type, nil

	case *UnaryExpr:
		t, err := c.checkExpr(n.Operand)
		if err != nil {
			return TypeUnknown, err
		}
		if t != TypeInt {
			return TypeUnknown, semErr(OperandType, "", n.Pos,
				"operand of unary %s must be int, got %s", n.Op.Symbol(), t)
		}
		return TypeInt, nil

	case *BinaryExpr:
		lt, err := c.checkExpr(n.Left)
		if err != nil {
			return TypeUnknown, err
		}
		rt, err := c.checkExpr(n.Right)
		if err != nil {
			return TypeUnknown, err
		}
		if lt != TypeInt || rt != TypeInt {
			return TypeUnknown, semErr(OperandType, "", n.Pos,
				"operands of %s must be int, got %s and %s", n.Op.Symbol(), lt, rt)
		}
		return TypeInt, nil

	case *FunctionCall:
		return c.checkCall(n)

	default:
		panic(fmt.Sprintf("checker: unknown expression node %T", e))
	}
}

func (c *Checker) checkCall(n *FunctionCall) (Type, error) {
	sym, ok := c.scopes.lookup(n.Name)
	if !ok {
		return TypeUnknown, semErr(Undeclared, n.Name, n.Pos, "call to undeclared function %q", n.Name)
	}
	if !sym.IsFunction {
		return TypeUnknown, semErr(NotAFunction, n.Name, n.Pos, "%q is not a function", n.Name)
	}
	if len(n.Args) != len(sym.ParamTypes) {
		return TypeUnknown, semErr(ArgCount, n.Name, n.Pos,
			"function %q expects %d argument(s), got %d", n.Name, len(sym.ParamTypes), len(n.Args))
	}
	for i, arg := range n.Args {
		t, err := c.checkExpr(arg)
		if err != nil {
			return TypeUnknown, err
		}
		if t != sym.ParamTypes[i] {
			return TypeUnknown, semErr(ArgType, n.Name, arg.Position(),
				"argument %d of %q must be %s, got %s", i+1, n.Name, sym.ParamTypes[i], t)
		}
	}
	return sym.Type, nil
}
