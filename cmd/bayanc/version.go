package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mubtakir/bayan-sub000/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE:  versionExecution,
}

func init() {
	versionCmd.Flags().Bool("hash", false, "include git commit hash")
	versionCmd.Flags().Bool("date", false, "include build timestamp")
}

func versionExecution(cmd *cobra.Command, _ []string) error {
	if _, err := resolveColor(cmd); err != nil {
		return err
	}
	showHash, err := cmd.Flags().GetBool("hash")
	if err != nil {
		return err
	}
	showDate, err := cmd.Flags().GetBool("date")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "bayanc %s\n", version.Version)
	if showHash && version.GitCommit != "" {
		fmt.Fprintf(out, "commit: %s\n", version.GitCommit)
	}
	if showDate && version.BuildDate != "" {
		fmt.Fprintf(out, "built:  %s\n", version.BuildDate)
	}
	return nil
}
