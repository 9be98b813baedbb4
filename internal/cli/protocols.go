package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vdeworks/agentsuite/internal/source"
)

var protocolsWorkingDir string

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "List available protocols",
	Args:  cobra.NoArgs,
	RunE:  runProtocols,
}

func init() {
	protocolsCmd.Flags().StringVarP(&protocolsWorkingDir, "dir", "d", "", "Working directory (default: current directory)")
}

func runProtocols(_ *cobra.Command, _ []string) error {
	wd, err := resolveWorkingDir(protocolsWorkingDir)
	if err != nil {
		return err
	}

	entries, err := source.NewStore(wd).List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println(dimStyle.Render("no protocols found (looking for Protocol_*.md)"))
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s %s\n", titleStyle.Render(e.Name),
			dimStyle.Render(fmt.Sprintf("(%d phases)", e.PhaseCount)))
		if e.Description != "" {
			fmt.Printf("  %s\n", e.Description)
		}
		fmt.Printf("  %s\n", dimStyle.Render(e.Path))
	}
	return nil
}
