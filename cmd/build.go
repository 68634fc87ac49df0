package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// build: compile toyc source -> assembly
var BuildCmd = &cobra.Command{
	Use:   "build [source.tc]",
	Short: "Compile toyc source into RISC-V assembly",
	Args:  cobra.MaximumNArgs(1),
	RunE:  buildRun,
}

func init() {
	BuildCmd.Flags().StringVarP(&output, "output", "o", "", "write assembly to this file instead of stdout")
}

func buildRun(cmd *cobra.Command, args []string) error {
	src, err := readSource(cmd, args)
	if err != nil {
		return err
	}

	asm, err := compileSource(src)
	if err != nil {
		return err
	}

	if output == "" {
		fmt.Fprint(cmd.OutOrStdout(), asm)
		return nil
	}
	if err := os.WriteFile(output, []byte(asm), 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Printf("wrote assembly to %s", output)
	return nil
}
