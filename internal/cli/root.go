// Package cli implements the command-line interface for agentsuite.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

var rootCmd = &cobra.Command{
	Use:   "agentsuite",
	Short: "Protocol execution engine for agent workspaces",
	Long: `Agentsuite parses markdown protocol definitions into phases, classifies
their steps, executes embedded DSL blocks against a run context, and records
every run in the workspace memory bank.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(executeCmd)
	rootCmd.AddCommand(protocolsCmd)
	rootCmd.AddCommand(constitutionCmd)
	rootCmd.AddCommand(principlesCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(decisionCmd)
	rootCmd.AddCommand(initCmd)
}
