// Package main implements the orchd CLI: a headless driver for SDLC
// orchestration trials.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath overrides the default config file location.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "orchd",
	Short: "Headless SDLC orchestration engine",
	Long: `orchd drives an autonomous actor through a multi-phase software
delivery workflow: claim an issue, provision an agent, implement, open a
PR, wait on CI, collect review, merge and clean up. Each run records a
full action history and timing metrics for experiment analysis.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/orchd/config.yaml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(actionsCmd)
}
