package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mubtakir/bayan-sub000/internal/driver"
	"github.com/mubtakir/bayan-sub000/internal/mir"
	"github.com/mubtakir/bayan-sub000/internal/source"
)

var irCmd = &cobra.Command{
	Use:   "ir [flags] <unit.bast>",
	Short: "Lower one unit and dump its IR",
	Long:  "Run the full analysis pipeline over a single serialized unit and print the lowered functions in textual form.",
	Args:  cobra.ExactArgs(1),
	RunE:  irExecution,
}

func init() {
	irCmd.Flags().StringP("output", "o", "", "write IR to a file instead of stdout")
}

func irExecution(cmd *cobra.Command, args []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	colored, err := resolveColor(cmd)
	if err != nil {
		return err
	}
	// IR просят явно — кэшированный вердикт без артефактов бесполезен.
	opts, err := driverOptions(cmd, false)
	if err != nil {
		return err
	}

	res := driver.CompileFile(args[0], source.NewFileSet(), opts)
	renderUnitDiagnostics(cmd, res, false, colored)
	if res.Broken() {
		return fmt.Errorf("%s: unit has errors, no IR produced", args[0])
	}
	if res.MIR == nil {
		return fmt.Errorf("%s: no IR produced", args[0])
	}

	out := cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	return mir.DumpModule(out, res.MIR, res.Symbols.Types, res.Symbols.Table.Strings)
}
