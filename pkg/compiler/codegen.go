package compiler

import (
	"fmt"
	"strings"
)

// CodeGen walks a checked AST and emits RISC-V assembly text.
//
// Every expression leaves its result in a0. A pending left operand or call
// argument is pushed on the machine stack while the next one is evaluated,
// so nested expressions never clobber it; t0 only holds a value between the
// pop and the combining instruction.
type CodeGen struct {
	out       strings.Builder
	xlen      int
	nextLabel int
	frame     *frame
	loopStack []LoopLabel
}

// LoopLabel records where break and continue jump for one enclosing while.
type LoopLabel struct {
	Start string // continue target: the condition check
	End   string // break target: first instruction after the loop
}

// argRegs are the argument registers of the calling convention.
var argRegs = [MaxParams]string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}

// tempSlot is how far sp moves per pushed temporary. It keeps sp 16-byte
// aligned at every call.
const tempSlot = 16

func newCodeGen(xlen int) *CodeGen {
	return &CodeGen{xlen: xlen}
}

func (cg *CodeGen) wordSize() int { return cg.xlen / 8 }

func (cg *CodeGen) loadOp() string {
	if cg.xlen == 64 {
		return "ld"
	}
	return "lw"
}

func (cg *CodeGen) storeOp() string {
	if cg.xlen == 64 {
		return "sd"
	}
	return "sw"
}

func (cg *CodeGen) newLabel(kind string) string {
	l := fmt.Sprintf(".L%s_%d", kind, cg.nextLabel)
	cg.nextLabel++
	return l
}

// line emits one tab-indented instruction or directive.
func (cg *CodeGen) line(format string, args ...any) {
	cg.out.WriteByte('\t')
	fmt.Fprintf(&cg.out, format, args...)
	cg.out.WriteByte('\n')
}

// label emits a bare, unindented label line.
func (cg *CodeGen) label(name string) {
	cg.out.WriteString(name)
	cg.out.WriteString(":\n")
}

func (cg *CodeGen) push(reg string) {
	cg.line("addi sp, sp, -%d", tempSlot)
	cg.line("%s %s, 0(sp)", cg.storeOp(), reg)
}

func (cg *CodeGen) pop(reg string) {
	cg.line("%s %s, 0(sp)", cg.loadOp(), reg)
	cg.line("addi sp, sp, %d", tempSlot)
}

// immediate truncates v to the target word, matching the machine's wrap-around.
func (cg *CodeGen) immediate(v int64) int64 {
	if cg.xlen == 32 {
		return int64(int32(v))
	}
	return v
}

// genExpr evaluates e into a0.
func (cg *CodeGen) genExpr(e Expr) error {
	switch n := e.(type) {
	case *Literal:
		cg.line("li a0, %d", cg.immediate(n.Value))

	case *VarRef:
		off, ok := cg.frame.lookup(n.Name)
		if !ok {
			return fmt.Errorf("codegen: undefined variable %q", n.Name)
		}
		cg.line("%s a0, %d(s0)", cg.loadOp(), off)

	case *UnaryExpr:
		if err := cg.genExpr(n.Operand); err != nil {
			return err
		}
		switch n.Op {
		case MINUS:
			cg.line("neg a0, a0")
		case NOT:
			cg.line("seqz a0, a0")
		default:
			return fmt.Errorf("codegen: unknown unary operator %s", n.Op)
		}

	case *BinaryExpr:
		if n.Op == AND_LOGICAL || n.Op == OR_LOGICAL {
			return cg.genLogical(n)
		}
		if err := cg.genExpr(n.Left); err != nil {
			return err
		}
		cg.push("a0")
		if err := cg.genExpr(n.Right); err != nil {
			return err
		}
		cg.pop("t0")
		return cg.genBinaryOp(n.Op)

	case *FunctionCall:
		if len(n.Args) > len(argRegs) {
			return fmt.Errorf("codegen: call to %q passes %d arguments", n.Name, len(n.Args))
		}
		for _, arg := range n.Args {
			if err := cg.genExpr(arg); err != nil {
				return err
			}
			cg.push("a0")
		}
		for i := len(n.Args) - 1; i >= 0; i-- {
			cg.pop(argRegs[i])
		}
		cg.line("call %s", n.Name)

	default:
		return fmt.Errorf("codegen: unknown expression node %T", e)
	}
	return nil
}

// genBinaryOp combines t0 (left) and a0 (right) into a0.
func (cg *CodeGen) genBinaryOp(op TokenType) error {
	switch op {
	case PLUS:
		cg.line("add a0, t0, a0")
	case MINUS:
		cg.line("sub a0, t0, a0")
	case STAR:
		cg.line("mul a0, t0, a0")
	case SLASH:
		cg.line("div a0, t0, a0")
	case PERCENT:
		cg.line("rem a0, t0, a0")
	case LESS:
		cg.line("slt a0, t0, a0")
	case GREATER:
		cg.line("slt a0, a0, t0")
	case LESS_EQ:
		cg.line("slt a0, a0, t0")
		cg.line("xori a0, a0, 1")
	case GREATER_EQ:
		cg.line("slt a0, t0, a0")
		cg.line("xori a0, a0, 1")
	case EQUALS:
		cg.line("xor a0, t0, a0")
		cg.line("seqz a0, a0")
	case NOT_EQ:
		cg.line("xor a0, t0, a0")
		cg.line("snez a0, a0")
	default:
		return fmt.Errorf("codegen: unknown binary operator %s", op)
	}
	return nil
}

// genLogical emits short-circuit && and ||; the result is normalised to 0 or 1.
func (cg *CodeGen) genLogical(n *BinaryExpr) error {
	end := cg.newLabel("logic_end")
	if err := cg.genExpr(n.Left); err != nil {
		return err
	}
	cg.line("snez a0, a0")
	if n.Op == AND_LOGICAL {
		cg.line("beqz a0, %s", end)
	} else {
		cg.line("bnez a0, %s", end)
	}
	if err := cg.genExpr(n.Right); err != nil {
		return err
	}
	cg.line("snez a0, a0")
	cg.label(end)
	return nil
}

// genEpilogue restores ra and s0, releases the frame and returns.
func (cg *CodeGen) genEpilogue() {
	w := cg.wordSize()
	size := cg.frame.size
	cg.line("%s ra, %d(sp)", cg.loadOp(), size-w)
	cg.line("%s s0, %d(sp)", cg.loadOp(), size-2*w)
	cg.line("addi sp, sp, %d", size)
	cg.line("ret")
}

func (cg *CodeGen) genStmt(s Stmt) error {
	switch n := s.(type) {
	case *VariableDecl:
		if err := cg.genExpr(n.Init); err != nil {
			return err
		}
		off := cg.frame.allocate(n.Name)
		cg.line("%s a0, %d(s0)", cg.storeOp(), off)

	case *Assignment:
		if err := cg.genExpr(n.Value); err != nil {
			return err
		}
		off, ok := cg.frame.lookup(n.Name)
		if !ok {
			return fmt.Errorf("codegen: undefined variable %q", n.Name)
		}
		cg.line("%s a0, %d(s0)", cg.storeOp(), off)

	case *ExprStmt:
		return cg.genExpr(n.Expr)

	case *ReturnStmt:
		if n.Expr != nil {
			if err := cg.genExpr(n.Expr); err != nil {
				return err
			}
		}
		cg.genEpilogue()

	case *BlockStmt:
		cg.frame.enterScope()
		defer cg.frame.exitScope()
		for _, stmt := range n.Stmts {
			if err := cg.genStmt(stmt); err != nil {
				return err
			}
		}

	case *IfStmt:
		elseLabel := cg.newLabel("else")
		endLabel := cg.newLabel("endif")
		if err := cg.genExpr(n.Condition); err != nil {
			return err
		}
		cg.line("beqz a0, %s", elseLabel)
		if err := cg.genStmt(n.Body); err != nil {
			return err
		}
		cg.line("j %s", endLabel)
		cg.label(elseLabel)
		if n.ElseBody != nil {
			if err := cg.genStmt(n.ElseBody); err != nil {
				return err
			}
		}
		cg.label(endLabel)

	case *WhileStmt:
		startLabel := cg.newLabel("while")
		endLabel := cg.newLabel("endwhile")

		cg.loopStack = append(cg.loopStack, LoopLabel{Start: startLabel, End: endLabel})
		defer func() { cg.loopStack = cg.loopStack[:len(cg.loopStack)-1] }()

		cg.label(startLabel)
		if err := cg.genExpr(n.Condition); err != nil {
			return err
		}
		cg.line("beqz a0, %s", endLabel)
		if err := cg.genStmt(n.Body); err != nil {
			return err
		}
		cg.line("j %s", startLabel)
		cg.label(endLabel)

	case *BreakStmt:
		if len(cg.loopStack) == 0 {
			return fmt.Errorf("codegen: break statement outside of loop")
		}
		cg.line("j %s", cg.loopStack[len(cg.loopStack)-1].End)

	case *ContinueStmt:
		if len(cg.loopStack) == 0 {
			return fmt.Errorf("codegen: continue statement outside of loop")
		}
		cg.line("j %s", cg.loopStack[len(cg.loopStack)-1].Start)

	default:
		return fmt.Errorf("codegen: unknown statement node %T", s)
	}
	return nil
}

func (cg *CodeGen) genFunction(fn *FunctionDecl) error {
	if len(fn.Params) > len(argRegs) {
		return fmt.Errorf("codegen: function %q has %d parameters", fn.Name, len(fn.Params))
	}
	cg.frame = newFrame(cg.wordSize(), len(fn.Params)+countLocals(fn.Body))
	cg.loopStack = nil

	w := cg.wordSize()
	size := cg.frame.size

	cg.line(".globl %s", fn.Name)
	cg.label(fn.Name)
	cg.line("addi sp, sp, -%d", size)
	cg.line("%s ra, %d(sp)", cg.storeOp(), size-w)
	cg.line("%s s0, %d(sp)", cg.storeOp(), size-2*w)
	cg.line("addi s0, sp, %d", size)

	for i, param := range fn.Params {
		off := cg.frame.allocate(param.Name)
		cg.line("%s %s, %d(s0)", cg.storeOp(), argRegs[i], off)
	}

	if err := cg.genStmt(fn.Body); err != nil {
		return err
	}

	if !endsWithReturn(fn.Body) {
		cg.genEpilogue()
	}

	cg.frame = nil
	return nil
}

func endsWithReturn(b *BlockStmt) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	_, ok := b.Stmts[len(b.Stmts)-1].(*ReturnStmt)
	return ok
}

// Generate emits assembly for a checked Program. Feeding it a tree that
// failed Check is a contract violation; internal inconsistencies come back as
// errors prefixed "codegen:".
func Generate(prog *Program, opts Options) (string, error) {
	opts, err := opts.normalize()
	if err != nil {
		return "", err
	}
	cg := newCodeGen(opts.XLEN)
	cg.line(".text")
	for _, fn := range prog.Funcs {
		if err := cg.genFunction(fn); err != nil {
			return "", err
		}
	}
	return cg.out.String(), nil
}
