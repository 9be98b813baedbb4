// Package executor implements the orchestrator: it drives a parsed protocol
// definition phase by phase against a fresh run context, enforcing the
// failure and cancellation semantics, and hands the finished record to the
// configured sink.
package executor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vdeworks/agentsuite/internal/domain"
	"github.com/vdeworks/agentsuite/internal/dsl"
	"github.com/vdeworks/agentsuite/internal/event"
	"github.com/vdeworks/agentsuite/internal/parser"
	"github.com/vdeworks/agentsuite/internal/protocol"
	"github.com/vdeworks/agentsuite/internal/run"
)

// Loader supplies raw protocol text by name (filesystem, database, ...).
type Loader interface {
	LoadDefinitionText(name string) (string, error)
}

// Sink receives the execution record after a run reaches a terminal state.
// Sink failures are logged, never propagated into the run result.
type Sink interface {
	RecordRun(rc *run.Context) error
}

// Executor sequences protocol phases. All collaborators are injected; the
// executor holds no global state and may drive many runs concurrently,
// each with its own run.Context.
type Executor struct {
	interp  *dsl.Interpreter
	loader  Loader
	sink    Sink
	logger  *zap.Logger
	onEvent event.Handler
}

// New creates an executor. caller, loader, sink, and onEvent may each be
// nil: CALL commands then fail hard, RunProtocol is unavailable, and
// records / events are dropped, respectively.
func New(caller dsl.Caller, loader Loader, sink Sink, logger *zap.Logger, onEvent event.Handler) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		interp:  dsl.New(caller, logger),
		loader:  loader,
		sink:    sink,
		logger:  logger,
		onEvent: onEvent,
	}
}

// RunProtocol loads, parses, and runs a protocol by name. Load and parse
// errors abort before any execution context exists.
func (e *Executor) RunProtocol(ctx context.Context, name string, initial map[string]string) (*run.Context, error) {
	if e.loader == nil {
		return nil, errors.New("no definition loader configured")
	}
	text, err := e.loader.LoadDefinitionText(name)
	if err != nil {
		return nil, err
	}
	def, err := parser.Parse(name, text)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, def, initial), nil
}

// Run executes every phase of def in index order. It always returns a
// context in a terminal state — COMPLETED, FAILED, or CANCELLED — and never
// raises an unhandled fault; callers inspect the record to distinguish
// outcomes.
func (e *Executor) Run(ctx context.Context, def *domain.Definition, initial map[string]string) *run.Context {
	rc := run.NewContext(def, initial)
	rc.Status = protocol.RunRunning
	rc.StartedAt = time.Now()

	e.onEvent.Emit(event.RunStarted(def.Name, rc.ID))
	e.logger.Info("run started",
		zap.String("run_id", rc.ID),
		zap.String("protocol", def.Name),
		zap.Int("phases", def.PhaseCount()))

	for i := range def.Phases {
		phase := &def.Phases[i]

		// Cooperative cancellation at the phase boundary: the phase that
		// would have run is marked CANCELLED, the rest SKIPPED.
		if ctx.Err() != nil {
			result := rc.BeginPhase(phase)
			rc.FinishPhase(result, protocol.PhaseCancelled)
			e.finish(rc, protocol.RunCancelled, def, i+1)
			return rc
		}

		result := rc.BeginPhase(phase)
		e.onEvent.Emit(event.PhaseStarted(phase.Index, phase.Title))

		if manual := phase.ManualSteps(); len(manual) > 0 {
			result.PendingManual = manual
			e.onEvent.Emit(event.ManualPending(phase.Index, len(manual)))
		}

		err := e.interp.Execute(ctx, phase.Commands, rc, result)

		switch {
		case err == nil:
			rc.FinishPhase(result, protocol.PhaseSucceeded)
			e.onEvent.Emit(event.PhaseFinished(phase.Index, phase.Title, result.Status.String()))

		case isCancellation(err) && ctx.Err() != nil:
			result.Error = err.Error()
			rc.FinishPhase(result, protocol.PhaseCancelled)
			e.finish(rc, protocol.RunCancelled, def, i+1)
			return rc

		case isCheckFailure(err):
			// The failed check is recorded even when the policy lets the
			// run continue.
			result.Error = err.Error()
			e.onEvent.Emit(event.CheckFailed(phase.Index, err.Error()))
			if phase.OnCheckFailure == protocol.CheckSkipPhase {
				rc.FinishPhase(result, protocol.PhaseSkipped)
				e.onEvent.Emit(event.PhaseFinished(phase.Index, phase.Title, result.Status.String()))
				e.logger.Warn("check failed, phase skipped by policy",
					zap.String("run_id", rc.ID),
					zap.Int("phase", phase.Index))
				continue
			}
			rc.FinishPhase(result, protocol.PhaseFailed)
			e.finish(rc, protocol.RunFailed, def, i+1)
			return rc

		default:
			result.Error = err.Error()
			rc.FinishPhase(result, protocol.PhaseFailed)
			e.logger.Error("phase failed",
				zap.String("run_id", rc.ID),
				zap.Int("phase", phase.Index),
				zap.Error(err))
			e.finish(rc, protocol.RunFailed, def, i+1)
			return rc
		}
	}

	e.finish(rc, protocol.RunCompleted, def, def.PhaseCount())
	return rc
}

// finish stamps the terminal state, skips every phase past nextIndex, and
// delivers the record to the sink.
func (e *Executor) finish(rc *run.Context, status protocol.RunStatus, def *domain.Definition, nextIndex int) {
	for i := nextIndex; i < def.PhaseCount(); i++ {
		rc.MarkSkipped(&def.Phases[i])
	}

	rc.Status = status
	rc.EndedAt = time.Now()

	e.onEvent.Emit(event.RunFinished(rc.ID, status.String()))
	e.logger.Info("run finished",
		zap.String("run_id", rc.ID),
		zap.String("status", status.String()),
		zap.Duration("duration", rc.Duration()))

	if e.sink != nil {
		if err := e.sink.RecordRun(rc); err != nil {
			e.logger.Error("record sink failed",
				zap.String("run_id", rc.ID),
				zap.Error(err))
		}
	}
}

func isCheckFailure(err error) bool {
	var checkErr *dsl.CheckError
	return errors.As(err, &checkErr)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
