package dsl

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vdeworks/agentsuite/internal/domain"
	"github.com/vdeworks/agentsuite/internal/protocol"
	"github.com/vdeworks/agentsuite/internal/run"
)

// Caller dispatches a CALL command to a host-registered capability and
// returns its result value. Implemented by the capability registry.
type Caller interface {
	Call(ctx context.Context, name string, args []string, rc *run.Context) (string, error)
}

// CheckError reports a CHECK expression that evaluated false. It is
// recoverable: the orchestrator consults the phase's check-failure policy
// instead of failing the run outright.
type CheckError struct {
	Expr string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check failed: %s", e.Expr)
}

// Interpreter executes parsed DSL commands against a run context.
type Interpreter struct {
	caller Caller
	logger *zap.Logger
}

// New creates an interpreter. caller may be nil when no capabilities are
// registered; any CALL then fails hard.
func New(caller Caller, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{caller: caller, logger: logger}
}

// Execute runs commands strictly in order, stopping at the first error.
// A *CheckError return means a CHECK evaluated false; every other non-nil
// error is a hard fault. Cancellation is checked before each command.
func (in *Interpreter) Execute(ctx context.Context, commands []domain.Command, rc *run.Context, result *run.PhaseResult) error {
	for _, cmd := range commands {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := in.execute(ctx, cmd, rc, result); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) execute(ctx context.Context, cmd domain.Command, rc *run.Context, result *run.PhaseResult) error {
	switch cmd.Verb {
	case protocol.VerbSet:
		rc.SetVar(cmd.Args[0], cmd.Args[1])
		in.logger.Debug("dsl set",
			zap.String("run_id", rc.ID),
			zap.String("key", cmd.Args[0]),
			zap.String("value", cmd.Args[1]))
		return nil

	case protocol.VerbCheck:
		expr := cmd.Args[0]
		ok, err := EvalExpr(expr, rc.Var)
		if err != nil {
			// Parse-time validation should have caught this.
			return fmt.Errorf("evaluate check %q: %w", expr, err)
		}
		if !ok {
			in.logger.Debug("dsl check failed",
				zap.String("run_id", rc.ID),
				zap.String("expr", expr))
			return &CheckError{Expr: expr}
		}
		return nil

	case protocol.VerbCall:
		name, args := cmd.Args[0], cmd.Args[1:]
		if in.caller == nil {
			return fmt.Errorf("call %q: no capability registry configured", name)
		}
		value, err := in.caller.Call(ctx, name, args, rc)
		if err != nil {
			return fmt.Errorf("call %q: %w", name, err)
		}
		rc.SetVar(name+protocol.CallResultSuffix, value)
		in.logger.Debug("dsl call",
			zap.String("run_id", rc.ID),
			zap.String("capability", name),
			zap.Strings("args", args))
		return nil

	case protocol.VerbLog:
		result.Output = append(result.Output, cmd.Args[0])
		return nil

	default:
		// Unreachable when commands came from ParseBlock; kept as a
		// defensive invariant assertion.
		return fmt.Errorf("unknown verb %q at execution time", cmd.Verb)
	}
}
