package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vdeworks/agentsuite/internal/memorybank"
)

var (
	decisionWorkingDir string
	decisionRationale  string
	decisionDetails    []string
)

var decisionCmd = &cobra.Command{
	Use:   "decision <decision>",
	Short: "Log a decision to the memory bank",
	Long: `Append a dated entry to memory-bank/decisionLog.md. Use --rationale
for the reasoning and repeatable --detail key=value pairs for extra context.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecision,
}

func init() {
	decisionCmd.Flags().StringVarP(&decisionWorkingDir, "dir", "d", "", "Working directory (default: current directory)")
	decisionCmd.Flags().StringVarP(&decisionRationale, "rationale", "r", "", "Why the decision was made")
	decisionCmd.Flags().StringArrayVar(&decisionDetails, "detail", nil, "Extra context (key=value, repeatable)")
}

func runDecision(_ *cobra.Command, args []string) error {
	wd, err := resolveWorkingDir(decisionWorkingDir)
	if err != nil {
		return err
	}

	detail := map[string]string{}
	for _, pair := range decisionDetails {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --detail %q, expected key=value", pair)
		}
		detail[key] = value
	}

	bank := memorybank.New(wd)
	if err := bank.LogDecision(args[0], decisionRationale, detail); err != nil {
		return err
	}
	fmt.Println("decision logged")
	return nil
}
