package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// Symbol is what the Checker knows about a name.
type Symbol struct {
	Type       Type // variable type, or a function's return type
	IsFunction bool
	ParamTypes []Type
	Pos        Pos // where the name was declared
}

// scopeStack is a stack of name -> Symbol frames. Frame 0 holds the
// functions of the compilation unit; every function body and nested block
// pushes another frame.
type scopeStack struct {
	frames []map[string]Symbol
}

func newScopeStack() *scopeStack {
	return &scopeStack{frames: []map[string]Symbol{make(map[string]Symbol)}}
}

func (s *scopeStack) push() {
	s.frames = append(s.frames, make(map[string]Symbol))
}

func (s *scopeStack) pop() {
	if len(s.frames) <= 1 {
		panic("scopeStack: pop of global frame")
	}
	s.frames = s.frames[:len(s.frames)-1]
}

// declare binds name in the innermost frame. It reports the existing symbol
// and false when the name is already bound in that same frame; a binding in
// an enclosing frame is shadowed, never touched.
func (s *scopeStack) declare(name string, sym Symbol) (Symbol, bool) {
	top := s.frames[len(s.frames)-1]
	if prev, ok := top[name]; ok {
		return prev, false
	}
	top[name] = sym
	return sym, true
}

// lookup walks frames from innermost to outermost.
func (s *scopeStack) lookup(name string) (Symbol, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if sym, ok := s.frames[i][name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// String returns a deterministically ordered dump of the stack.
func (s *scopeStack) String() string {
	var sb strings.Builder
	for i, frame := range s.frames {
		fmt.Fprintf(&sb, "Scope %d:\n", i)
		names := make([]string, 0, len(frame))
		for name := range frame {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sym := frame[name]
			if sym.IsFunction {
				fmt.Fprintf(&sb, "  %-20s  func %s %v\n", name, sym.Type, sym.ParamTypes)
			} else {
				fmt.Fprintf(&sb, "  %-20s  %s\n", name, sym.Type)
			}
		}
	}
	return sb.String()
}
