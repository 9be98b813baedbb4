package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/vdeworks/agentsuite/internal/capability"
	"github.com/vdeworks/agentsuite/internal/config"
	"github.com/vdeworks/agentsuite/internal/event"
	"github.com/vdeworks/agentsuite/internal/executor"
	"github.com/vdeworks/agentsuite/internal/git"
	"github.com/vdeworks/agentsuite/internal/logging"
	"github.com/vdeworks/agentsuite/internal/memorybank"
	"github.com/vdeworks/agentsuite/internal/protocol"
	"github.com/vdeworks/agentsuite/internal/run"
	"github.com/vdeworks/agentsuite/internal/source"
)

var (
	executeWorkingDir string
	executeContext    string
	executeSets       []string
	executeTimeout    int
	executeJSON       bool
)

var executeCmd = &cobra.Command{
	Use:   "execute <protocol>",
	Short: "Execute a protocol",
	Long: `Execute a protocol by name. The protocol is looked up as a
Protocol_<Name>.md file in the working directory or its protocols/
subdirectory.

The initial run context is built from --context (a JSON object) plus any
--set key=value overrides. The finished run is appended to the workspace
memory bank.`,
	Args: cobra.ExactArgs(1),
	RunE: runExecute,
}

func init() {
	executeCmd.Flags().StringVarP(&executeWorkingDir, "dir", "d", "", "Working directory (default: current directory)")
	executeCmd.Flags().StringVarP(&executeContext, "context", "c", "", "Initial run context as a JSON object")
	executeCmd.Flags().StringArrayVar(&executeSets, "set", nil, "Set a context variable (key=value, repeatable)")
	executeCmd.Flags().IntVar(&executeTimeout, "capability-timeout", 0, "Per-capability timeout in seconds")
	executeCmd.Flags().BoolVar(&executeJSON, "json", false, "Print the full run record as JSON")
}

func runExecute(_ *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyCLIFlags(executeTimeout)

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	wd, err := resolveWorkingDir(executeWorkingDir)
	if err != nil {
		return err
	}

	initial, err := buildInitialContext(executeContext, executeSets)
	if err != nil {
		return err
	}
	if cfg.GitStamp {
		git.Stamp(wd, initial)
	}

	var bank *memorybank.Bank
	var sink executor.Sink
	if cfg.MemoryBank {
		bank = memorybank.New(wd)
		sink = bank
	}

	registry := capability.NewRegistry(
		time.Duration(cfg.CapabilityTimeout)*time.Second,
		logger,
		middlewareFromConfig(cfg)...,
	)
	if err := capability.RegisterBuiltins(registry, bank, wd); err != nil {
		return fmt.Errorf("register capabilities: %w", err)
	}

	exec := executor.New(registry, source.NewStore(wd), sink, logger, printEvent)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := exec.RunProtocol(ctx, name, initial)
	if err != nil {
		return err
	}

	if executeJSON {
		raw, err := json.Marshal(rc)
		if err != nil {
			return fmt.Errorf("encode run record: %w", err)
		}
		os.Stdout.Write(pretty.Pretty(raw))
	} else {
		printSummary(rc)
	}

	if rc.Status != protocol.RunCompleted {
		return fmt.Errorf("run %s", rc.Status)
	}
	return nil
}

// buildInitialContext merges the --context JSON object with --set pairs
// into the run's initial variables. --set wins on conflict.
func buildInitialContext(contextJSON string, sets []string) (map[string]string, error) {
	doc := contextJSON
	if doc == "" {
		doc = "{}"
	}
	if !gjson.Valid(doc) || !gjson.Parse(doc).IsObject() {
		return nil, fmt.Errorf("--context must be a JSON object")
	}

	for _, pair := range sets {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}
		var err error
		doc, err = sjson.Set(doc, key, value)
		if err != nil {
			return nil, fmt.Errorf("apply --set %q: %w", pair, err)
		}
	}

	initial := map[string]string{}
	gjson.Parse(doc).ForEach(func(key, value gjson.Result) bool {
		initial[key.String()] = value.String()
		return true
	})
	return initial, nil
}

func middlewareFromConfig(cfg *config.Config) []capability.Middleware {
	var mw []capability.Middleware
	if cfg.Breaker.Threshold > 0 {
		mw = append(mw, capability.Breaker(
			cfg.Breaker.Threshold,
			time.Duration(cfg.Breaker.CooldownSeconds)*time.Second))
	}
	if cfg.Retry.Attempts > 1 {
		mw = append(mw, capability.Retry(
			cfg.Retry.Attempts,
			time.Duration(cfg.Retry.DelayMs)*time.Millisecond))
	}
	return mw
}

func printEvent(e event.Event) {
	switch e.Kind {
	case event.KindCheckFailed:
		fmt.Println(warnStyle.Render(e.Text))
	case event.KindManualPending:
		fmt.Println(warnStyle.Render(e.Text))
	case event.KindRunFinished:
		// The summary covers it.
	default:
		fmt.Println(dimStyle.Render(e.Text))
	}
}

func printSummary(rc *run.Context) {
	fmt.Println()
	fmt.Printf("%s %s\n", titleStyle.Render(rc.Protocol), styleRunStatus(rc.Status))
	fmt.Printf("%s\n", dimStyle.Render(fmt.Sprintf("run %s, %s", rc.ID, rc.Duration().Round(time.Millisecond))))

	for i := 0; i < len(rc.Results); i++ {
		result, ok := rc.Results[i]
		if !ok {
			continue
		}
		fmt.Printf("  %d. %s %s\n", result.Index+1, result.Title, stylePhaseStatus(result.Status))
		for _, line := range result.Output {
			fmt.Printf("     %s\n", dimStyle.Render(line))
		}
		if result.Error != "" {
			fmt.Printf("     %s\n", failureStyle.Render(result.Error))
		}
		for _, manual := range result.PendingManual {
			fmt.Printf("     %s\n", warnStyle.Render("[ ] "+manual))
		}
	}
}
