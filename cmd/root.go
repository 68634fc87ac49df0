package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"toyc/pkg/compiler"
)

var (
	xlen    int
	verbose bool
	output  string
)

// logger traces pipeline stages when --verbose is set.
var logger = log.New(io.Discard, "toyc: ", 0)

var rootCmd = &cobra.Command{
	Use:   "toyc [source.tc]",
	Short: "toyc compiler: a tiny C-like language to RISC-V assembly",
	Long: `toyc compiles a small C-like language (int/void functions, locals,
if/else, while, break/continue) into RISC-V assembly.

With no subcommand it behaves like "build". Source is read from the named
file, or from stdin when no file is given.

Commands:
  build   Compile source into assembly
  run     Compile, assemble and execute a function on the built-in emulator
  tokens  Print the token stream
  ast     Print the parsed syntax tree
`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetOutput(cmd.ErrOrStderr())
		}
	},
	RunE: buildRun,
}

// Execute runs the command tree and reports a failure on stderr.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().IntVar(&xlen, "xlen", 32, "target register width (32 or 64)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "trace compiler stages on stderr")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "write assembly to this file instead of stdout")

	rootCmd.AddCommand(BuildCmd, RunCmd, TokensCmd, ASTCmd)
}

// readSource returns the named file, or stdin when args is empty.
func readSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(data), nil
}

func options() compiler.Options {
	return compiler.Options{XLEN: xlen}
}

// compileSource runs the pipeline stage by stage so --verbose can trace it.
func compileSource(src string) (string, error) {
	tokens, err := compiler.Lex(src)
	if err != nil {
		return "", err
	}
	logger.Printf("lexed %d tokens", len(tokens))

	prog, err := compiler.Parse(tokens, src)
	if err != nil {
		return "", err
	}
	logger.Printf("parsed %d functions", len(prog.Funcs))

	if err := compiler.Check(prog); err != nil {
		return "", err
	}
	logger.Printf("checked program")

	asm, err := compiler.Generate(prog, options())
	if err != nil {
		return "", err
	}
	logger.Printf("generated %d bytes of assembly for XLEN %d", len(asm), xlen)
	return asm, nil
}
