package compiler

// frame assigns stack slots to a function's parameters and locals.
//
// Layout, with s0 pointing at the caller's sp:
//
//	-1*w(s0)  saved ra
//	-2*w(s0)  saved s0
//	-3*w(s0)  first parameter / local
//	...       further slots, one word each, in declaration order
//
// Every lexical declaration gets its own slot, so a shadowing declaration in
// a nested block never shares storage with the binding it hides.
type frame struct {
	wordSize int
	scopes   []map[string]int // name -> s0 offset
	next     int              // next free offset (monotonically decreasing)
	size     int              // total frame size in bytes, 16-byte aligned
}

const savedRegs = 2 // ra, s0

func newFrame(wordSize, slots int) *frame {
	size := (savedRegs + slots) * wordSize
	size = (size + 15) &^ 15
	return &frame{
		wordSize: wordSize,
		scopes:   []map[string]int{make(map[string]int)},
		next:     -(savedRegs + 1) * wordSize,
		size:     size,
	}
}

func (f *frame) enterScope() {
	f.scopes = append(f.scopes, make(map[string]int))
}

func (f *frame) exitScope() {
	if len(f.scopes) > 1 {
		f.scopes = f.scopes[:len(f.scopes)-1]
	}
}

// allocate assigns the next unused slot to name in the current scope.
func (f *frame) allocate(name string) int {
	offset := f.next
	f.next -= f.wordSize
	f.scopes[len(f.scopes)-1][name] = offset
	return offset
}

// lookup returns the offset of the innermost binding of name.
func (f *frame) lookup(name string) (int, bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if off, ok := f.scopes[i][name]; ok {
			return off, true
		}
	}
	return 0, false
}

// countLocals counts the variable declarations anywhere inside stmt.
func countLocals(stmt Stmt) int {
	switch n := stmt.(type) {
	case *VariableDecl:
		return 1
	case *BlockStmt:
		count := 0
		for _, s := range n.Stmts {
			count += countLocals(s)
		}
		return count
	case *IfStmt:
		count := countLocals(n.Body)
		if n.ElseBody != nil {
			count += countLocals(n.ElseBody)
		}
		return count
	case *WhileStmt:
		return countLocals(n.Body)
	default:
		return 0
	}
}
