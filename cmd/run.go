package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"toyc/pkg/asm"
	"toyc/pkg/cpu"
)

var (
	runFunc  string
	runArgs  []int64
	runSteps int
)

// run: compile, assemble and execute on the emulator
var RunCmd = &cobra.Command{
	Use:   "run [source.tc]",
	Short: "Compile and execute a function on the built-in RISC-V emulator",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRun,
}

func init() {
	RunCmd.Flags().StringVar(&runFunc, "func", "main", "function to call")
	RunCmd.Flags().Int64SliceVar(&runArgs, "args", nil, "integer arguments passed in a0..a7")
	RunCmd.Flags().IntVar(&runSteps, "max-steps", cpu.DefaultStepLimit, "abort after this many instructions")
}

func runRun(cmd *cobra.Command, args []string) error {
	src, err := readSource(cmd, args)
	if err != nil {
		return err
	}

	text, err := compileSource(src)
	if err != nil {
		return err
	}

	prog, err := asm.Assemble(text)
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	logger.Printf("assembled %d instructions", len(prog.Code))

	machine, err := cpu.NewCPU(prog, xlen)
	if err != nil {
		return err
	}
	machine.StepLimit = runSteps

	result, err := machine.Call(runFunc, runArgs...)
	if err != nil {
		return fmt.Errorf("run %s: %w", runFunc, err)
	}
	logger.Printf("%s returned after %d steps", runFunc, machine.Steps)

	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}
