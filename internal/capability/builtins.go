package capability

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vdeworks/agentsuite/internal/git"
	"github.com/vdeworks/agentsuite/internal/memorybank"
	"github.com/vdeworks/agentsuite/internal/run"
)

// RegisterBuiltins registers the capabilities available to every run.
// bank may be nil when the workspace has no memory bank; the memory
// capabilities then report an error when called.
func RegisterBuiltins(r *Registry, bank *memorybank.Bank, workDir string) error {
	builtins := map[string]Func{
		"now": func(_ context.Context, _ []string, _ *run.Context) (string, error) {
			return time.Now().Format(time.RFC3339), nil
		},
		"env": func(_ context.Context, args []string, _ *run.Context) (string, error) {
			if len(args) != 1 {
				return "", fmt.Errorf("env expects exactly one variable name")
			}
			return os.Getenv(args[0]), nil
		},
		"git_head": func(_ context.Context, _ []string, _ *run.Context) (string, error) {
			info, err := git.Head(workDir)
			if err != nil {
				return "", err
			}
			return info.Commit, nil
		},
		"git_branch": func(_ context.Context, _ []string, _ *run.Context) (string, error) {
			info, err := git.Head(workDir)
			if err != nil {
				return "", err
			}
			return info.Branch, nil
		},
		"memory_append": func(_ context.Context, args []string, _ *run.Context) (string, error) {
			if bank == nil {
				return "", fmt.Errorf("no memory bank in this workspace")
			}
			if len(args) < 2 {
				return "", fmt.Errorf("memory_append expects a context type and text")
			}
			ct := memorybank.ContextType(args[0])
			text := strings.Join(args[1:], " ")
			if err := bank.Append(ct, text); err != nil {
				return "", err
			}
			return "ok", nil
		},
		"log_decision": func(_ context.Context, args []string, rc *run.Context) (string, error) {
			if bank == nil {
				return "", fmt.Errorf("no memory bank in this workspace")
			}
			if len(args) < 2 {
				return "", fmt.Errorf("log_decision expects a decision and a rationale")
			}
			detail := map[string]string{"run_id": rc.ID, "protocol": rc.Protocol}
			if err := bank.LogDecision(args[0], strings.Join(args[1:], " "), detail); err != nil {
				return "", err
			}
			return "ok", nil
		},
	}

	for name, fn := range builtins {
		if err := r.Register(name, 0, fn); err != nil {
			return err
		}
	}
	return nil
}
