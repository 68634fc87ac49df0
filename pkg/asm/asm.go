package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"toyc/pkg/cpu"
)

var zeroOperandOps = map[string]cpu.Opcode{
	"nop": cpu.OpNOP,
	"ret": cpu.OpRET,
}

var regAndImmediateOps = map[string]cpu.Opcode{
	"li": cpu.OpLI,
}

var twoRegisterOps = map[string]cpu.Opcode{
	"mv":   cpu.OpMV,
	"neg":  cpu.OpNEG,
	"seqz": cpu.OpSEQZ,
	"snez": cpu.OpSNEZ,
}

var threeRegisterOps = map[string]cpu.Opcode{
	"add": cpu.OpADD,
	"sub": cpu.OpSUB,
	"mul": cpu.OpMUL,
	"div": cpu.OpDIV,
	"rem": cpu.OpREM,
	"slt": cpu.OpSLT,
	"xor": cpu.OpXOR,
}

var twoRegisterImmediateOps = map[string]cpu.Opcode{
	"addi": cpu.OpADDI,
	"xori": cpu.OpXORI,
}

var loadOps = map[string]cpu.Opcode{
	"lw": cpu.OpLW,
	"ld": cpu.OpLD,
}

var storeOps = map[string]cpu.Opcode{
	"sw": cpu.OpSW,
	"sd": cpu.OpSD,
}

var branchOps = map[string]cpu.Opcode{
	"beqz": cpu.OpBEQZ,
	"bnez": cpu.OpBNEZ,
}

var jumpOps = map[string]cpu.Opcode{
	"j":    cpu.OpJ,
	"call": cpu.OpCALL,
}

// abiRegisters maps ABI register names to their numbers; x0..x31 are
// accepted as well.
var abiRegisters = map[string]uint8{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23,
	"s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

// Assembler turns assembly text into a cpu.Program in two passes: the first
// assigns instruction indices to labels, the second decodes operands.
type Assembler struct {
	labels  map[string]int
	globals []string
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

func Assemble(code string) (*cpu.Program, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*cpu.Program, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}

	instrs, err := a.pass2(lines)
	if err != nil {
		return nil, err
	}
	return &cpu.Program{Code: instrs, Labels: a.labels, Globals: a.globals}, nil
}

func (a *Assembler) pass1(lines []string) error {
	index := 0

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[lbl] = index
		}

		if p.mnemonic == "" {
			continue
		}

		if strings.HasPrefix(p.mnemonic, ".") {
			if p.mnemonic == ".globl" || p.mnemonic == ".global" {
				if len(p.operands) != 1 {
					return fmt.Errorf("%s expects exactly one operand on line %d", p.mnemonic, lineNo)
				}
				a.globals = append(a.globals, p.operands[0])
			}
			continue
		}

		if !isInstruction(p.mnemonic) {
			return fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
		}
		index++
	}

	return nil
}

func (a *Assembler) pass2(lines []string) ([]cpu.Instruction, error) {
	program := make([]cpu.Instruction, 0, len(lines))

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}

		if p.mnemonic == "" || strings.HasPrefix(p.mnemonic, ".") {
			continue
		}

		mnemonic := p.mnemonic
		ops := p.operands
		in := cpu.Instruction{Line: lineNo}

		if op, ok := zeroOperandOps[mnemonic]; ok {
			if len(ops) != 0 {
				return nil, fmt.Errorf("%s expects 0 operands on line %d", mnemonic, lineNo)
			}
			in.Op = op
		} else if op, ok := regAndImmediateOps[mnemonic]; ok {
			if len(ops) != 2 {
				return nil, fmt.Errorf("%s expects 2 operands on line %d", mnemonic, lineNo)
			}
			in.Op = op
			if in.Rd, err = parseRegister(ops[0], lineNo); err != nil {
				return nil, err
			}
			if in.Imm, err = parseImmediate(ops[1], lineNo); err != nil {
				return nil, err
			}
		} else if op, ok := twoRegisterOps[mnemonic]; ok {
			if len(ops) != 2 {
				return nil, fmt.Errorf("%s expects 2 operands on line %d", mnemonic, lineNo)
			}
			in.Op = op
			if in.Rd, err = parseRegister(ops[0], lineNo); err != nil {
				return nil, err
			}
			if in.Rs1, err = parseRegister(ops[1], lineNo); err != nil {
				return nil, err
			}
		} else if op, ok := threeRegisterOps[mnemonic]; ok {
			if len(ops) != 3 {
				return nil, fmt.Errorf("%s expects 3 operands on line %d", mnemonic, lineNo)
			}
			in.Op = op
			if in.Rd, err = parseRegister(ops[0], lineNo); err != nil {
				return nil, err
			}
			if in.Rs1, err = parseRegister(ops[1], lineNo); err != nil {
				return nil, err
			}
			if in.Rs2, err = parseRegister(ops[2], lineNo); err != nil {
				return nil, err
			}
		} else if op, ok := twoRegisterImmediateOps[mnemonic]; ok {
			if len(ops) != 3 {
				return nil, fmt.Errorf("%s expects 3 operands on line %d", mnemonic, lineNo)
			}
			in.Op = op
			if in.Rd, err = parseRegister(ops[0], lineNo); err != nil {
				return nil, err
			}
			if in.Rs1, err = parseRegister(ops[1], lineNo); err != nil {
				return nil, err
			}
			if in.Imm, err = parseImmediate(ops[2], lineNo); err != nil {
				return nil, err
			}
		} else if op, ok := loadOps[mnemonic]; ok {
			if len(ops) != 2 {
				return nil, fmt.Errorf("%s expects 2 operands on line %d", mnemonic, lineNo)
			}
			in.Op = op
			if in.Rd, err = parseRegister(ops[0], lineNo); err != nil {
				return nil, err
			}
			if in.Imm, in.Rs1, err = parseMemoryOperand(ops[1], lineNo); err != nil {
				return nil, err
			}
		} else if op, ok := storeOps[mnemonic]; ok {
			if len(ops) != 2 {
				return nil, fmt.Errorf("%s expects 2 operands on line %d", mnemonic, lineNo)
			}
			in.Op = op
			if in.Rs2, err = parseRegister(ops[0], lineNo); err != nil {
				return nil, err
			}
			if in.Imm, in.Rs1, err = parseMemoryOperand(ops[1], lineNo); err != nil {
				return nil, err
			}
		} else if op, ok := branchOps[mnemonic]; ok {
			if len(ops) != 2 {
				return nil, fmt.Errorf("%s expects 2 operands on line %d", mnemonic, lineNo)
			}
			in.Op = op
			if in.Rs1, err = parseRegister(ops[0], lineNo); err != nil {
				return nil, err
			}
			if in.Imm, err = a.resolveLabel(ops[1], lineNo); err != nil {
				return nil, err
			}
		} else if op, ok := jumpOps[mnemonic]; ok {
			if len(ops) != 1 {
				return nil, fmt.Errorf("%s expects 1 operand on line %d", mnemonic, lineNo)
			}
			in.Op = op
			if in.Imm, err = a.resolveLabel(ops[0], lineNo); err != nil {
				return nil, err
			}
		} else {
			return nil, fmt.Errorf("unknown instruction on line %d: %s", lineNo, mnemonic)
		}

		program = append(program, in)
	}

	return program, nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(normalizeInstructionText(line))
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToLower(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}
	return p, nil
}

// stripComments cuts the line at the first '#', ';' or "//".
func stripComments(line string) string {
	cut := strings.IndexAny(line, "#;")
	if doubleSlash := strings.Index(line, "//"); doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func normalizeInstructionText(line string) string {
	return strings.ReplaceAll(line, ",", " ")
}

func isInstruction(mnemonic string) bool {
	for _, table := range []map[string]cpu.Opcode{
		zeroOperandOps, regAndImmediateOps, twoRegisterOps, threeRegisterOps,
		twoRegisterImmediateOps, loadOps, storeOps, branchOps, jumpOps,
	} {
		if _, ok := table[mnemonic]; ok {
			return true
		}
	}
	return false
}

func parseRegister(token string, lineNo int) (uint8, error) {
	name := strings.ToLower(token)
	if r, ok := abiRegisters[name]; ok {
		return r, nil
	}
	if strings.HasPrefix(name, "x") {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 0 && n < 32 {
			return uint8(n), nil
		}
	}
	return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
}

func parseImmediate(token string, lineNo int) (int64, error) {
	value, err := strconv.ParseInt(token, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
	}
	return value, nil
}

// parseMemoryOperand splits "off(reg)" into its offset and base register.
func parseMemoryOperand(token string, lineNo int) (int64, uint8, error) {
	open := strings.IndexByte(token, '(')
	if open < 0 || !strings.HasSuffix(token, ")") {
		return 0, 0, fmt.Errorf("invalid memory operand '%s' on line %d", token, lineNo)
	}
	var offset int64
	if open > 0 {
		var err error
		if offset, err = parseImmediate(token[:open], lineNo); err != nil {
			return 0, 0, err
		}
	}
	base, err := parseRegister(token[open+1:len(token)-1], lineNo)
	if err != nil {
		return 0, 0, err
	}
	return offset, base, nil
}

func (a *Assembler) resolveLabel(token string, lineNo int) (int64, error) {
	if idx, ok := a.labels[token]; ok {
		return int64(idx), nil
	}
	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}
	return 0, fmt.Errorf("invalid label operand '%s' on line %d", token, lineNo)
}

// isIdentifier accepts symbol names, including local labels such as .L0.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' && r != '$' {
			return false
		}
	}

	return true
}
