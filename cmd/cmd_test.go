package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"toyc/pkg/compiler"
	"toyc/pkg/cpu"
)

const fibSource = `int fib(int n) { if (n < 2) { return n; } return fib(n - 1) + fib(n - 2); }
int main() { return fib(7); }`

// resetFlags restores every flag variable and its Changed state, since
// rootCmd and its subcommands are package-level and outlive one Execute.
func resetFlags(t *testing.T) {
	t.Helper()
	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				var err error
				if sv, ok := f.Value.(pflag.SliceValue); ok {
					err = sv.Replace(nil)
				} else {
					err = f.Value.Set(f.DefValue)
				}
				if err != nil {
					t.Fatalf("reset --%s: %v", f.Name, err)
				}
				f.Changed = false
			})
		}
	}
}

// execute runs the command tree with src on stdin and returns stdout.
func execute(t *testing.T, src string, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)
	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(src))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuildWritesAssembly(t *testing.T) {
	for _, args := range [][]string{{"build", "--xlen", "32"}, {"--xlen", "32"}} {
		got, err := execute(t, fibSource, args...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		want, _ := compiler.Compile(fibSource, compiler.Options{})
		if got != want {
			t.Errorf("%v: output differs from Compile:\n%s", args, got)
		}
	}
}

func TestBuildToFile(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "fib.tc")
	outPath := filepath.Join(dir, "fib.s")
	if err := os.WriteFile(srcPath, []byte(fibSource), 0644); err != nil {
		t.Fatal(err)
	}
	stdout, err := execute(t, "", "build", "--xlen", "64", "-o", outPath, srcPath)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if stdout != "" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "sd ra, ") {
		t.Errorf("expected XLEN 64 stores in output:\n%s", data)
	}
}

func TestFlagsDoNotLeakBetweenRuns(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.s")
	if _, err := execute(t, fibSource, "build", "--xlen", "64", "-o", outPath); err != nil {
		t.Fatalf("build -o: %v", err)
	}

	got, err := execute(t, fibSource, "build")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want, _ := compiler.Compile(fibSource, compiler.Options{XLEN: 32})
	if got != want {
		t.Errorf("second build did not use default flags:\n%s", got)
	}

	if _, err := execute(t, fibSource, "run", "--func", "fib", "--args", "4"); err != nil {
		t.Fatalf("run --args: %v", err)
	}
	got, err = execute(t, fibSource, "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != "13\n" {
		t.Errorf("run after --args = %q, want main's result", got)
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		src  string
		args []string
		want string
	}{
		{"Main", fibSource, []string{"run", "--xlen", "32", "--func", "main"}, "13\n"},
		{"Function With Arguments", fibSource, []string{"run", "--xlen", "32", "--func", "fib", "--args", "10"}, "55\n"},
		{"Two Arguments", "int sub(int a, int b) { return a - b; }", []string{"run", "--xlen", "32", "--func", "sub", "--args", "3,10"}, "-7\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := execute(t, tt.src, tt.args...)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunStepLimit(t *testing.T) {
	_, err := execute(t, "int main() { while (1) { } return 0; }", "run", "--xlen", "32", "--func", "main", "--max-steps", "1000")
	if !errors.Is(err, cpu.ErrStepLimit) {
		t.Errorf("expected step limit error, got %v", err)
	}
}

func TestTokens(t *testing.T) {
	got, err := execute(t, "int x", "tokens")
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), got)
	}
	if !strings.HasPrefix(lines[0], "1:1") || !strings.Contains(lines[0], "INT") {
		t.Errorf("first line %q", lines[0])
	}

	_, err = execute(t, "int @", "tokens")
	var lexErr *compiler.LexicalError
	if !errors.As(err, &lexErr) {
		t.Errorf("expected *LexicalError, got %v", err)
	}
}

func TestAST(t *testing.T) {
	got, err := execute(t, "int main() { return 1 + 2; }", "ast")
	if err != nil {
		t.Fatalf("ast: %v", err)
	}
	want := "FunctionDecl(int main(), body=BlockStmt[ReturnStmt((1 + 2))])\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCompileErrorsPropagate(t *testing.T) {
	_, err := execute(t, "int main() { return x; }", "build", "--xlen", "32")
	var semErr *compiler.SemanticError
	if !errors.As(err, &semErr) {
		t.Fatalf("expected *SemanticError, got %v", err)
	}
	if semErr.Kind != compiler.Undeclared {
		t.Errorf("Kind = %s", semErr.Kind)
	}
}
