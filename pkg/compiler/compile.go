package compiler

import "fmt"

// Options configures code generation.
type Options struct {
	// XLEN is the target register width in bits, 32 or 64. Zero means 32.
	XLEN int
}

func (o Options) normalize() (Options, error) {
	switch o.XLEN {
	case 0:
		o.XLEN = 32
	case 32, 64:
	default:
		return o, fmt.Errorf("unsupported XLEN %d (want 32 or 64)", o.XLEN)
	}
	return o, nil
}

// Compile runs the whole pipeline over src and returns the assembly text.
// The first failing stage stops compilation; its *LexicalError,
// *SyntaxError or *SemanticError is returned unchanged.
func Compile(src string, opts Options) (string, error) {
	opts, err := opts.normalize()
	if err != nil {
		return "", err
	}

	tokens, err := Lex(src)
	if err != nil {
		return "", err
	}

	prog, err := Parse(tokens, src)
	if err != nil {
		return "", err
	}

	if err := Check(prog); err != nil {
		return "", err
	}

	return Generate(prog, opts)
}
