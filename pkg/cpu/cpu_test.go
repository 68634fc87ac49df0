package cpu

import (
	"errors"
	"testing"
)

// newTestCPU wraps instrs in a Program whose first instruction is labelled
// "entry".
func newTestCPU(t *testing.T, xlen int, instrs ...Instruction) *CPU {
	t.Helper()
	prog := &Program{Code: instrs, Labels: map[string]int{"entry": 0}}
	c, err := NewCPU(prog, xlen)
	if err != nil {
		t.Fatalf("NewCPU: %v", err)
	}
	return c
}

func ret() Instruction { return Instruction{Op: OpRET} }

func TestALU(t *testing.T) {
	tests := []struct {
		name string
		op   Opcode
		a, b int64
		want int64
	}{
		{"add", OpADD, 10, 20, 30},
		{"sub", OpSUB, 10, 20, -10},
		{"mul", OpMUL, -6, 7, -42},
		{"div", OpDIV, -7, 2, -3},
		{"rem", OpREM, -7, 2, -1},
		{"div by zero", OpDIV, 5, 0, -1},
		{"rem by zero", OpREM, 5, 0, 5},
		{"div overflow", OpDIV, -1 << 31, -1, -1 << 31},
		{"slt true", OpSLT, -1, 0, 1},
		{"slt false", OpSLT, 3, 3, 0},
		{"xor", OpXOR, 6, 3, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestCPU(t, 32,
				Instruction{Op: tc.op, Rd: RegA0, Rs1: RegA0, Rs2: RegA0 + 1},
				ret(),
			)
			got, err := c.Call("entry", tc.a, tc.b)
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if got != tc.want {
				t.Errorf("%s(%d, %d) = %d, want %d", tc.op, tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestUnaryAndImmediate(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
		arg  int64
		want int64
	}{
		{"li", Instruction{Op: OpLI, Rd: RegA0, Imm: 42}, 0, 42},
		{"mv", Instruction{Op: OpMV, Rd: RegA0, Rs1: RegZero}, 9, 0},
		{"neg", Instruction{Op: OpNEG, Rd: RegA0, Rs1: RegA0}, 5, -5},
		{"seqz zero", Instruction{Op: OpSEQZ, Rd: RegA0, Rs1: RegA0}, 0, 1},
		{"seqz nonzero", Instruction{Op: OpSEQZ, Rd: RegA0, Rs1: RegA0}, 7, 0},
		{"snez", Instruction{Op: OpSNEZ, Rd: RegA0, Rs1: RegA0}, -3, 1},
		{"addi", Instruction{Op: OpADDI, Rd: RegA0, Rs1: RegA0, Imm: -16}, 20, 4},
		{"xori", Instruction{Op: OpXORI, Rd: RegA0, Rs1: RegA0, Imm: 1}, 1, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestCPU(t, 32, tc.in, ret())
			got, err := c.Call("entry", tc.arg)
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestZeroRegisterIsHardwired(t *testing.T) {
	c := newTestCPU(t, 32,
		Instruction{Op: OpLI, Rd: RegZero, Imm: 99},
		Instruction{Op: OpMV, Rd: RegA0, Rs1: RegZero},
		ret(),
	)
	got, err := c.Call("entry")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != 0 {
		t.Errorf("x0 = %d, want 0", got)
	}
}

func TestXLEN32Wraps(t *testing.T) {
	c := newTestCPU(t, 32,
		Instruction{Op: OpADD, Rd: RegA0, Rs1: RegA0, Rs2: RegA0 + 1},
		ret(),
	)
	got, err := c.Call("entry", 1<<31-1, 1)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != -1<<31 {
		t.Errorf("got %d, want %d", got, int64(-1<<31))
	}

	c = newTestCPU(t, 64,
		Instruction{Op: OpADD, Rd: RegA0, Rs1: RegA0, Rs2: RegA0 + 1},
		ret(),
	)
	got, err = c.Call("entry", 1<<31-1, 1)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != 1<<31 {
		t.Errorf("XLEN 64: got %d, want %d", got, int64(1<<31))
	}
}

func TestLoadStore(t *testing.T) {
	// Push a0 to the stack, clobber it, then reload it.
	c := newTestCPU(t, 32,
		Instruction{Op: OpADDI, Rd: RegSP, Rs1: RegSP, Imm: -16},
		Instruction{Op: OpSW, Rs1: RegSP, Rs2: RegA0, Imm: 4},
		Instruction{Op: OpLI, Rd: RegA0, Imm: 0},
		Instruction{Op: OpLW, Rd: RegA0, Rs1: RegSP, Imm: 4},
		Instruction{Op: OpADDI, Rd: RegSP, Rs1: RegSP, Imm: 16},
		ret(),
	)
	got, err := c.Call("entry", -77)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != -77 {
		t.Errorf("reloaded %d, want -77", got)
	}

	c = newTestCPU(t, 64,
		Instruction{Op: OpADDI, Rd: RegSP, Rs1: RegSP, Imm: -16},
		Instruction{Op: OpSD, Rs1: RegSP, Rs2: RegA0},
		Instruction{Op: OpLI, Rd: RegA0, Imm: 0},
		Instruction{Op: OpLD, Rd: RegA0, Rs1: RegSP},
		Instruction{Op: OpADDI, Rd: RegSP, Rs1: RegSP, Imm: 16},
		ret(),
	)
	got, err = c.Call("entry", 1<<40)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != 1<<40 {
		t.Errorf("reloaded %d, want %d", got, int64(1<<40))
	}
}

func TestDoublewordNeedsXLEN64(t *testing.T) {
	c := newTestCPU(t, 32,
		Instruction{Op: OpLD, Rd: RegA0, Rs1: RegSP, Imm: -8},
		ret(),
	)
	if _, err := c.Call("entry"); err == nil {
		t.Error("expected ld to fail at XLEN 32")
	}
}

func TestMemoryOutOfRange(t *testing.T) {
	c := newTestCPU(t, 32,
		Instruction{Op: OpSW, Rs1: RegSP, Rs2: RegA0, Imm: 0},
		ret(),
	)
	// sp starts at len(Memory), so 0(sp) is just past the end.
	if _, err := c.Call("entry"); err == nil {
		t.Error("expected out-of-range store to fail")
	}
}

func TestBranchesAndCalls(t *testing.T) {
	// entry adds 2 to a1 once per call to dec until a0 reaches zero.
	prog := &Program{
		Code: []Instruction{
			{Op: OpMV, Rd: RegS0, Rs1: RegRA},
			{Op: OpBEQZ, Rs1: RegA0, Imm: 5},
			{Op: OpADDI, Rd: RegA0 + 1, Rs1: RegA0 + 1, Imm: 2},
			{Op: OpCALL, Imm: 8},
			{Op: OpJ, Imm: 1},
			{Op: OpMV, Rd: RegA0, Rs1: RegA0 + 1},
			{Op: OpMV, Rd: RegRA, Rs1: RegS0},
			{Op: OpRET},
			// dec
			{Op: OpADDI, Rd: RegA0, Rs1: RegA0, Imm: -1},
			{Op: OpRET},
		},
		Labels: map[string]int{"entry": 0, "dec": 8},
	}

	c, err := NewCPU(prog, 32)
	if err != nil {
		t.Fatalf("NewCPU: %v", err)
	}
	got, err := c.Call("entry", 4)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != 8 {
		t.Errorf("got %d, want 8", got)
	}
	if !c.Halted {
		t.Error("CPU should halt after returning to the caller")
	}
}

func TestStepLimit(t *testing.T) {
	c := newTestCPU(t, 32, Instruction{Op: OpJ, Imm: 0})
	c.StepLimit = 100
	if _, err := c.Call("entry"); !errors.Is(err, ErrStepLimit) {
		t.Errorf("got %v, want ErrStepLimit", err)
	}
}

func TestCallErrors(t *testing.T) {
	c := newTestCPU(t, 32, ret())
	if _, err := c.Call("missing"); !errors.Is(err, ErrUnknownFunction) {
		t.Errorf("got %v, want ErrUnknownFunction", err)
	}
	if _, err := c.Call("entry", 1, 2, 3, 4, 5, 6, 7, 8, 9); err == nil {
		t.Error("expected error for nine arguments")
	}
	if _, err := NewCPU(&Program{}, 16); err == nil {
		t.Error("expected error for XLEN 16")
	}
}

func TestOpcodeString(t *testing.T) {
	if OpADDI.String() != "addi" {
		t.Errorf("OpADDI.String() = %q", OpADDI.String())
	}
	if Opcode(200).String() != "Opcode(200)" {
		t.Errorf("Opcode(200).String() = %q", Opcode(200).String())
	}
}
