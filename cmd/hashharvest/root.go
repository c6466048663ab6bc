// Package main provides the entry point for the hashharvest CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for hashharvest.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hashharvest",
		Short: "Collect file hashes from an EDR platform's investigation API",
		Long: `hashharvest collects file hashes (MD5, SHA-1, SHA-256) from the
investigation API of an EDR platform. It pages through the platform's
FileHash store, deduplicates as it goes, and writes the result as a
CSV, JSON, or Markdown inventory for threat-intel pipelines.

Credentials and server URLs can be given as flags or stored as named
profiles in a .hashharvest configuration file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCollectCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
