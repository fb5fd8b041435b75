// Package main implements the bayanc CLI.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mubtakir/bayan-sub000/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "bayanc",
	Short: "Bayan language compiler",
	Long:  `Bayan is an ownership-based programming language; bayanc analyzes serialized units and lowers them to IR`,
}

func main() {
	// Версия для автоматического флага --version.
	rootCmd.Version = version.Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(irCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().Int("jobs", 0, "number of parallel unit builds (0 = NumCPU)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// resolveColor interprets the --color flag and keeps the global color
// state of fatih/color in sync (the version banner uses it directly).
func resolveColor(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, err
	}
	var enabled bool
	switch mode {
	case "on":
		enabled = true
	case "off":
		enabled = false
	case "auto":
		enabled = isTerminal(os.Stdout)
	default:
		return false, errUnknownColorMode(mode)
	}
	color.NoColor = !enabled
	return enabled, nil
}

type errUnknownColorMode string

func (e errUnknownColorMode) Error() string {
	return "unknown color mode: " + string(e) + " (expected auto|on|off)"
}
