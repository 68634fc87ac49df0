package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"toyc/pkg/compiler"
)

// tokens: dump the scanner output, one token per line
var TokensCmd = &cobra.Command{
	Use:   "tokens [source.tc]",
	Short: "Print the token stream of a toyc source",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(cmd, args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, tok := range compiler.Tokenize(src) {
			fmt.Fprintf(out, "%-6s %s\n", tok.Pos(), tok)
			if tok.Type == compiler.INVALID {
				// Lex reports the same token as a *LexicalError.
				_, err := compiler.Lex(src)
				return err
			}
		}
		return nil
	},
}

// ast: dump the parsed tree, one function per line
var ASTCmd = &cobra.Command{
	Use:   "ast [source.tc]",
	Short: "Print the syntax tree of a toyc source",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(cmd, args)
		if err != nil {
			return err
		}
		tokens, err := compiler.Lex(src)
		if err != nil {
			return err
		}
		prog, err := compiler.Parse(tokens, src)
		if err != nil {
			return err
		}
		for _, fn := range prog.Funcs {
			fmt.Fprintln(cmd.OutOrStdout(), fn)
		}
		return nil
	},
}
