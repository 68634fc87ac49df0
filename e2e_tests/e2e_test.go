package main

import (
	"testing"

	"toyc/pkg/asm"
	"toyc/pkg/compiler"
	"toyc/pkg/cpu"
)

func TestCompilerAndCPU(t *testing.T) {
	// 1. Define toyc source
	source := `
int fib(int n) {
    if (n == 0) { return 0; }
    if (n == 1) { return 1; }
    return fib(n - 1) + fib(n - 2);
}

int main() {
    int limit = 6;
    int result = fib(limit);
    return result;
}
`

	// 2. Lex and Parse
	tokens, err := compiler.Lex(source)
	if err != nil {
		t.Fatalf("Lexing failed: %v", err)
	}

	ast, err := compiler.Parse(tokens, source)
	if err != nil {
		t.Fatalf("Parsing failed: %v", err)
	}

	// 3. Check
	if err := compiler.Check(ast); err != nil {
		t.Fatalf("Checking failed: %v", err)
	}

	// 4. Generate Assembly
	assembly, err := compiler.Generate(ast, compiler.Options{})
	if err != nil {
		t.Fatalf("Code generation failed: %v", err)
	}

	t.Logf("Generated Assembly:\n%s", assembly)

	// 5. Assemble
	prog, err := asm.Assemble(assembly)
	if err != nil {
		t.Fatalf("Assembly failed: %v", err)
	}
	if len(prog.Globals) != 2 {
		t.Errorf("Expected 2 exported functions, got %v", prog.Globals)
	}

	// 6. Instantiate CPU
	vm, err := cpu.NewCPU(prog, 32)
	if err != nil {
		t.Fatalf("NewCPU failed: %v", err)
	}

	// 7. Run main until it returns to the halt address
	result, err := vm.Call("main")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 8. Assertions

	// The 6th Fibonacci number: 0, 1, 1, 2, 3, 5, 8
	if result != 8 {
		t.Errorf("Expected a0 to be 8, got %d", result)
	}
	if !vm.Halted {
		t.Error("Expected CPU to be halted")
	}

	// Stack fully unwound; initial sp is the top of memory
	if vm.Regs[cpu.RegSP] != int64(len(vm.Memory)) {
		t.Errorf("Expected sp to be 0x%X, got 0x%X", len(vm.Memory), vm.Regs[cpu.RegSP])
	}

	// 9. Call a helper directly with host arguments
	result, err = vm.Call("fib", 10)
	if err != nil {
		t.Fatalf("Call(fib) failed: %v", err)
	}
	if result != 55 {
		t.Errorf("Expected fib(10) to be 55, got %d", result)
	}
}

func TestCompileRunXLEN64(t *testing.T) {
	source := `
int pow2(int n) {
    int r = 1;
    while (n > 0) { r = r * 2; n = n - 1; }
    return r;
}
`
	assembly, err := compiler.Compile(source, compiler.Options{XLEN: 64})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	prog, err := asm.Assemble(assembly)
	if err != nil {
		t.Fatalf("Assembly failed: %v", err)
	}
	vm, err := cpu.NewCPU(prog, 64)
	if err != nil {
		t.Fatalf("NewCPU failed: %v", err)
	}

	result, err := vm.Call("pow2", 40)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result != 1<<40 {
		t.Errorf("Expected 2^40, got %d", result)
	}
}
