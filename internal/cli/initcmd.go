package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vdeworks/agentsuite/internal/memorybank"
	"github.com/vdeworks/agentsuite/internal/source"
)

var initWorkingDir string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialise an agentsuite workspace",
	Long: `Create the memory-bank/ directory with its default files and, when
the workspace has no protocols yet, a sample protocol definition.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

const sampleProtocol = `**Objective**: Walk through the sample workflow.

## Phase 1: Prepare

- [ ] Review the project brief
- [ ] Confirm with the team that the goal is current

` + "```dsl" + `
SET started true
CALL now
LOG preparation done
` + "```" + `

## Phase 2: Verify

` + "```dsl" + `
CHECK started
CHECK now_result != ""
` + "```" + `
`

func init() {
	initCmd.Flags().StringVarP(&initWorkingDir, "dir", "d", "", "Working directory (default: current directory)")
}

func runInit(_ *cobra.Command, _ []string) error {
	wd, err := resolveWorkingDir(initWorkingDir)
	if err != nil {
		return err
	}

	bank := memorybank.New(wd)
	if err := bank.Init(); err != nil {
		return err
	}
	fmt.Println("memory bank initialised")

	store := source.NewStore(wd)
	entries, err := store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		path, err := store.Write("Sample", sampleProtocol)
		if err != nil {
			return err
		}
		fmt.Printf("sample protocol written to %s\n", path)
	}

	return nil
}
