package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vdeworks/agentsuite/internal/memorybank"
)

var (
	memoryWorkingDir string
	memoryRaw        bool
)

var memoryCmd = &cobra.Command{
	Use:   "memory [type]",
	Short: "Show memory bank contents",
	Long: `Show the workspace memory bank. Without arguments, lists every
context type with its last modification time. With a type (active,
decisions, product, progress, project, patterns), prints that file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMemory,
}

var memoryAppendCmd = &cobra.Command{
	Use:   "append <type> <text>...",
	Short: "Append a block to a memory context",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runMemoryAppend,
}

func init() {
	memoryCmd.Flags().StringVarP(&memoryWorkingDir, "dir", "d", "", "Working directory (default: current directory)")
	memoryCmd.Flags().BoolVar(&memoryRaw, "raw", false, "Print raw markdown without terminal rendering")
	memoryAppendCmd.Flags().StringVarP(&memoryWorkingDir, "dir", "d", "", "Working directory (default: current directory)")
	memoryCmd.AddCommand(memoryAppendCmd)
}

func runMemory(_ *cobra.Command, args []string) error {
	wd, err := resolveWorkingDir(memoryWorkingDir)
	if err != nil {
		return err
	}
	bank := memorybank.New(wd)

	if len(args) == 1 {
		entry, err := bank.Get(memorybank.ContextType(args[0]))
		if err != nil {
			return err
		}
		return renderMarkdown(entry.Content, memoryRaw)
	}

	for _, ct := range memorybank.ContextTypes {
		entry, err := bank.Get(ct)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", titleStyle.Render(string(ct)),
			dimStyle.Render("modified "+entry.Modified.Format(time.RFC3339)))
	}
	return nil
}

func runMemoryAppend(_ *cobra.Command, args []string) error {
	wd, err := resolveWorkingDir(memoryWorkingDir)
	if err != nil {
		return err
	}
	bank := memorybank.New(wd)

	ct := memorybank.ContextType(args[0])
	if err := bank.Append(ct, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	fmt.Printf("appended to %s\n", ct)
	return nil
}
