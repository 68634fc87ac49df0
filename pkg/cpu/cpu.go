// Package cpu executes assembled toyc programs on a small RV32IM/RV64IM
// subset emulator.
package cpu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Opcode identifies one supported RISC-V instruction (real or pseudo).
type Opcode uint8

const (
	OpNOP Opcode = iota
	OpLI
	OpMV
	OpNEG
	OpSEQZ
	OpSNEZ
	OpADD
	OpSUB
	OpMUL
	OpDIV
	OpREM
	OpSLT
	OpXOR
	OpADDI
	OpXORI
	OpLW
	OpSW
	OpLD
	OpSD
	OpBEQZ
	OpBNEZ
	OpJ
	OpCALL
	OpRET
)

var opNames = [...]string{
	OpNOP:  "nop",
	OpLI:   "li",
	OpMV:   "mv",
	OpNEG:  "neg",
	OpSEQZ: "seqz",
	OpSNEZ: "snez",
	OpADD:  "add",
	OpSUB:  "sub",
	OpMUL:  "mul",
	OpDIV:  "div",
	OpREM:  "rem",
	OpSLT:  "slt",
	OpXOR:  "xor",
	OpADDI: "addi",
	OpXORI: "xori",
	OpLW:   "lw",
	OpSW:   "sw",
	OpLD:   "ld",
	OpSD:   "sd",
	OpBEQZ: "beqz",
	OpBNEZ: "bnez",
	OpJ:    "j",
	OpCALL: "call",
	OpRET:  "ret",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// ABI register numbers used by the emulator and the assembler.
const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
	RegT0   = 5
	RegS0   = 8
	RegA0   = 10
)

// Instruction is one decoded instruction. For branches, j and call, Imm is
// the target instruction index.
type Instruction struct {
	Op   Opcode
	Rd   uint8
	Rs1  uint8
	Rs2  uint8
	Imm  int64
	Line int // 1-based line in the assembly source
}

// Program is an assembled instruction list with its label table.
type Program struct {
	Code    []Instruction
	Labels  map[string]int // label -> instruction index
	Globals []string       // names declared with .globl
}

// DefaultMemorySize is the stack memory given to a CPU by NewCPU.
const DefaultMemorySize = 1 << 20

// DefaultStepLimit bounds Call when no limit is set.
const DefaultStepLimit = 10_000_000

var (
	// ErrStepLimit is returned when a program runs longer than the step limit.
	ErrStepLimit = errors.New("cpu: step limit exceeded")
	// ErrUnknownFunction is returned by Call for a label the program lacks.
	ErrUnknownFunction = errors.New("cpu: unknown function")
)

// CPU is the machine state.
type CPU struct {
	Regs   [32]int64
	PC     int // index into Program.Code
	XLEN   int // 32 or 64
	Memory []byte

	Halted    bool
	Steps     int
	StepLimit int

	prog     *Program
	haltAddr int
}

// NewCPU prepares a machine for prog. xlen must be 32 or 64.
func NewCPU(prog *Program, xlen int) (*CPU, error) {
	if xlen != 32 && xlen != 64 {
		return nil, fmt.Errorf("cpu: unsupported XLEN %d", xlen)
	}
	return &CPU{
		XLEN:      xlen,
		Memory:    make([]byte, DefaultMemorySize),
		StepLimit: DefaultStepLimit,
		prog:      prog,
		haltAddr:  len(prog.Code),
	}, nil
}

// setReg writes a register, discarding writes to x0 and wrapping to XLEN.
func (c *CPU) setReg(idx uint8, val int64) {
	if idx == RegZero {
		return
	}
	if c.XLEN == 32 {
		val = int64(int32(val))
	}
	c.Regs[idx] = val
}

func (c *CPU) reg(idx uint8) int64 { return c.Regs[idx] }

func (c *CPU) checkAddr(addr int64, size int) error {
	if addr < 0 || addr+int64(size) > int64(len(c.Memory)) {
		return fmt.Errorf("cpu: memory access out of range at 0x%x (pc %d)", addr, c.PC)
	}
	return nil
}

// Load reads a sign-extended value of size 4 or 8 bytes.
func (c *CPU) Load(addr int64, size int) (int64, error) {
	if err := c.checkAddr(addr, size); err != nil {
		return 0, err
	}
	if size == 4 {
		return int64(int32(binary.LittleEndian.Uint32(c.Memory[addr:]))), nil
	}
	return int64(binary.LittleEndian.Uint64(c.Memory[addr:])), nil
}

// Store writes the low size bytes (4 or 8) of val.
func (c *CPU) Store(addr int64, size int, val int64) error {
	if err := c.checkAddr(addr, size); err != nil {
		return err
	}
	if size == 4 {
		binary.LittleEndian.PutUint32(c.Memory[addr:], uint32(val))
	} else {
		binary.LittleEndian.PutUint64(c.Memory[addr:], uint64(val))
	}
	return nil
}

// minInt is the most negative value representable at the current XLEN.
func (c *CPU) minInt() int64 {
	if c.XLEN == 32 {
		return -1 << 31
	}
	return -1 << 63
}

// div follows RISC-V M semantics: x/0 = -1 and MIN/-1 = MIN.
func (c *CPU) div(a, b int64) int64 {
	switch {
	case b == 0:
		return -1
	case b == -1 && a == c.minInt():
		return a
	}
	return a / b
}

// rem follows RISC-V M semantics: x%0 = x and MIN%-1 = 0.
func (c *CPU) rem(a, b int64) int64 {
	switch {
	case b == 0:
		return a
	case b == -1:
		return 0
	}
	return a % b
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Step executes one instruction. Reaching the halt address (one past the last
// instruction, where Call points ra) halts the machine.
func (c *CPU) Step() error {
	if c.Halted {
		return nil
	}
	if c.PC == c.haltAddr {
		c.Halted = true
		return nil
	}
	if c.PC < 0 || c.PC >= len(c.prog.Code) {
		return fmt.Errorf("cpu: pc %d outside program", c.PC)
	}

	in := c.prog.Code[c.PC]
	c.PC++
	c.Steps++

	switch in.Op {
	case OpNOP:
		// No operation.

	case OpLI:
		c.setReg(in.Rd, in.Imm)
	case OpMV:
		c.setReg(in.Rd, c.reg(in.Rs1))
	case OpNEG:
		c.setReg(in.Rd, -c.reg(in.Rs1))
	case OpSEQZ:
		c.setReg(in.Rd, b2i(c.reg(in.Rs1) == 0))
	case OpSNEZ:
		c.setReg(in.Rd, b2i(c.reg(in.Rs1) != 0))

	case OpADD:
		c.setReg(in.Rd, c.reg(in.Rs1)+c.reg(in.Rs2))
	case OpSUB:
		c.setReg(in.Rd, c.reg(in.Rs1)-c.reg(in.Rs2))
	case OpMUL:
		c.setReg(in.Rd, c.reg(in.Rs1)*c.reg(in.Rs2))
	case OpDIV:
		c.setReg(in.Rd, c.div(c.reg(in.Rs1), c.reg(in.Rs2)))
	case OpREM:
		c.setReg(in.Rd, c.rem(c.reg(in.Rs1), c.reg(in.Rs2)))
	case OpSLT:
		c.setReg(in.Rd, b2i(c.reg(in.Rs1) < c.reg(in.Rs2)))
	case OpXOR:
		c.setReg(in.Rd, c.reg(in.Rs1)^c.reg(in.Rs2))

	case OpADDI:
		c.setReg(in.Rd, c.reg(in.Rs1)+in.Imm)
	case OpXORI:
		c.setReg(in.Rd, c.reg(in.Rs1)^in.Imm)

	case OpLW, OpLD:
		size := 4
		if in.Op == OpLD {
			if c.XLEN != 64 {
				return fmt.Errorf("cpu: ld requires XLEN 64 (line %d)", in.Line)
			}
			size = 8
		}
		val, err := c.Load(c.reg(in.Rs1)+in.Imm, size)
		if err != nil {
			return err
		}
		c.setReg(in.Rd, val)

	case OpSW, OpSD:
		size := 4
		if in.Op == OpSD {
			if c.XLEN != 64 {
				return fmt.Errorf("cpu: sd requires XLEN 64 (line %d)", in.Line)
			}
			size = 8
		}
		if err := c.Store(c.reg(in.Rs1)+in.Imm, size, c.reg(in.Rs2)); err != nil {
			return err
		}

	case OpBEQZ:
		if c.reg(in.Rs1) == 0 {
			c.PC = int(in.Imm)
		}
	case OpBNEZ:
		if c.reg(in.Rs1) != 0 {
			c.PC = int(in.Imm)
		}
	case OpJ:
		c.PC = int(in.Imm)
	case OpCALL:
		c.setReg(RegRA, int64(c.PC))
		c.PC = int(in.Imm)
	case OpRET:
		c.PC = int(c.reg(RegRA))

	default:
		return fmt.Errorf("cpu: unknown opcode %s at pc %d", in.Op, c.PC-1)
	}
	return nil
}

// Run steps until the machine halts, an error occurs or StepLimit is hit.
func (c *CPU) Run() error {
	for !c.Halted {
		if c.StepLimit > 0 && c.Steps >= c.StepLimit {
			return ErrStepLimit
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Call runs the function labelled fn with args in a0..a7 on a fresh stack and
// returns a0 once it returns to the caller.
func (c *CPU) Call(fn string, args ...int64) (int64, error) {
	entry, ok := c.prog.Labels[fn]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownFunction, fn)
	}
	if len(args) > 8 {
		return 0, fmt.Errorf("cpu: %d arguments exceed the 8 argument registers", len(args))
	}

	c.Regs = [32]int64{}
	c.Halted = false
	c.Steps = 0
	c.setReg(RegSP, int64(len(c.Memory)))
	c.setReg(RegRA, int64(c.haltAddr))
	for i, a := range args {
		c.setReg(uint8(RegA0+i), a)
	}
	c.PC = entry

	if err := c.Run(); err != nil {
		return 0, err
	}
	return c.Regs[RegA0], nil
}
