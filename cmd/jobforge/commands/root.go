package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jobforge",
		Short: "JobForge - Jenkins job configuration compiler",
		Long: `JobForge compiles YAML job definitions into Jenkins config.xml
documents.

Features:
  - Reusable job and view definitions in plain YAML
  - File inclusion with search-path resolution
  - Macros with parameter substitution
  - Component aliases via plugin manifests
  - Change-aware updates backed by a local cache`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "log in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newTestCommand())
	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newCacheCommand())

	return rootCmd
}
