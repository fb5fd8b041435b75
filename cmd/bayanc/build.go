package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mubtakir/bayan-sub000/internal/diagfmt"
	"github.com/mubtakir/bayan-sub000/internal/driver"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [path]",
	Short: "Analyze and lower a Bayan project",
	Long:  "Build a Bayan project using bayan.toml as the entrypoint definition, or an explicit directory of serialized units.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  buildExecution,
}

func init() {
	buildCmd.Flags().Bool("json", false, "emit diagnostics as JSON")
	buildCmd.Flags().Bool("no-cache", false, "bypass the on-disk unit cache")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}

	colored, err := resolveColor(cmd)
	if err != nil {
		return err
	}

	opts, err := driverOptions(cmd, !noCache)
	if err != nil {
		return err
	}

	dir, name, err := resolveBuildTarget(args)
	if err != nil {
		return err
	}

	results, err := driver.BuildDir(cmd.Context(), dir, opts)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no serialized units (*.bast) found under %s", dir)
	}

	broken := 0
	for _, res := range results {
		if res.Broken() {
			broken++
		}
		renderUnitDiagnostics(cmd, res, jsonOut, colored)
	}
	if broken > 0 {
		return fmt.Errorf("build of %s failed: %d of %d units with errors", name, broken, len(results))
	}
	if !quiet && !jsonOut {
		fmt.Fprintf(cmd.OutOrStdout(), "built %s: %d units ok\n", name, len(results))
	}
	return nil
}

// resolveBuildTarget finds the directory of units: explicit path argument
// first, otherwise the manifest discovered from the working directory.
func resolveBuildTarget(args []string) (dir, name string, err error) {
	if len(args) > 0 {
		return args[0], args[0], nil
	}
	manifest, found, err := loadProjectManifest(".")
	if err != nil {
		return "", "", err
	}
	if !found {
		return "", "", errors.New(noBayanTomlMessage)
	}
	return manifest.unitsDir(), manifest.Config.Package.Name, nil
}

func driverOptions(cmd *cobra.Command, useCache bool) (driver.Options, error) {
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return driver.Options{}, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	jobs, err := cmd.Root().PersistentFlags().GetInt("jobs")
	if err != nil {
		return driver.Options{}, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	opts := driver.Options{MaxDiagnostics: maxDiagnostics, Jobs: jobs}
	if useCache {
		cache, err := driver.OpenDiskCache("bayan")
		if err == nil {
			opts.Cache = cache
		}
		// Недоступный кэш — не причина не собирать.
	}
	return opts, nil
}

func renderUnitDiagnostics(cmd *cobra.Command, res *driver.UnitResult, jsonOut, colored bool) {
	if res.Bag == nil || res.Bag.Len() == 0 {
		return
	}
	if jsonOut {
		_ = diagfmt.JSON(cmd.ErrOrStderr(), res.Bag, res.Files, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
		})
		return
	}
	diagfmt.Pretty(cmd.ErrOrStderr(), res.Bag, res.Files, diagfmt.PrettyOpts{
		Color:     colored,
		ShowNotes: true,
	})
}
