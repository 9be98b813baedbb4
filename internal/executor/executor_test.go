package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vdeworks/agentsuite/internal/domain"
	"github.com/vdeworks/agentsuite/internal/parser"
	"github.com/vdeworks/agentsuite/internal/protocol"
	"github.com/vdeworks/agentsuite/internal/run"
)

// fakeCaller implements dsl.Caller for tests.
type fakeCaller struct {
	mu      sync.Mutex
	calls   []string
	results map[string]string
	errs    map[string]error
	hooks   map[string]func()
}

func (f *fakeCaller) Call(_ context.Context, name string, _ []string, _ *run.Context) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	hook := f.hooks[name]
	err := f.errs[name]
	value := f.results[name]
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (f *fakeCaller) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// recordSink captures records handed to the sink.
type recordSink struct {
	mu      sync.Mutex
	records []*run.Context
}

func (s *recordSink) RecordRun(rc *run.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rc)
	return nil
}

func mustDefinition(t *testing.T, name, text string) *domain.Definition {
	t.Helper()
	def, err := parser.Parse(name, text)
	require.NoError(t, err)
	return def
}

func TestRunEndToEnd(t *testing.T) {
	// Two-phase happy path: SET in phase 1, CHECK in phase 2.
	def := mustDefinition(t, "e2e", `
## Phase 1: Seed

`+"```dsl"+`
SET x 1
`+"```"+`

## Phase 2: Verify

`+"```dsl"+`
CHECK x == 1
`+"```"+`
`)

	e := New(nil, nil, nil, zap.NewNop(), nil)
	rc := e.Run(context.Background(), def, nil)

	assert.Equal(t, protocol.RunCompleted, rc.Status)
	assert.Equal(t, protocol.PhaseSucceeded, rc.Results[0].Status)
	assert.Equal(t, protocol.PhaseSucceeded, rc.Results[1].Status)
	v, _ := rc.Var("x")
	assert.Equal(t, "1", v)
	assert.False(t, rc.EndedAt.IsZero())
	assert.GreaterOrEqual(t, rc.Duration().Nanoseconds(), int64(0))
}

func TestRunFailFastHalting(t *testing.T) {
	def := mustDefinition(t, "failfast", `
## Phase 1: First

`+"```dsl"+`
LOG phase one
`+"```"+`

## Phase 2: Breaks

`+"```dsl"+`
CALL deploy
`+"```"+`

## Phase 3: Never

`+"```dsl"+`
CALL cleanup
`+"```"+`
`)

	caller := &fakeCaller{errs: map[string]error{"deploy": fmt.Errorf("target unreachable")}}
	e := New(caller, nil, nil, zap.NewNop(), nil)
	rc := e.Run(context.Background(), def, nil)

	assert.Equal(t, protocol.RunFailed, rc.Status)
	assert.Equal(t, protocol.PhaseSucceeded, rc.Results[0].Status)
	assert.Equal(t, protocol.PhaseFailed, rc.Results[1].Status)
	assert.Equal(t, protocol.PhaseSkipped, rc.Results[2].Status)

	// The failure explains which phase failed and why, verbatim.
	require.NotNil(t, rc.FailedPhase())
	assert.Contains(t, rc.FailedPhase().Error, "target unreachable")

	// Phase 3's capability never ran.
	assert.Equal(t, []string{"deploy"}, caller.callNames())
}

func TestRunCheckFailureFailsRunByDefault(t *testing.T) {
	def := mustDefinition(t, "checkfail", `
## Phase 1: Guard

`+"```dsl"+`
CHECK ready
`+"```"+`

## Phase 2: Work
`)

	e := New(nil, nil, nil, zap.NewNop(), nil)
	rc := e.Run(context.Background(), def, nil)

	assert.Equal(t, protocol.RunFailed, rc.Status)
	assert.Equal(t, protocol.PhaseFailed, rc.Results[0].Status)
	assert.Contains(t, rc.Results[0].Error, "check failed: ready")
	assert.Equal(t, protocol.PhaseSkipped, rc.Results[1].Status)
}

func TestRunCheckFailureSkipPolicy(t *testing.T) {
	def := mustDefinition(t, "skippolicy", `
## Phase 1: Optional guard

On-Check-Failure: skip

`+"```dsl"+`
CHECK ready
`+"```"+`

## Phase 2: Work

`+"```dsl"+`
SET done true
`+"```"+`
`)

	e := New(nil, nil, nil, zap.NewNop(), nil)
	rc := e.Run(context.Background(), def, nil)

	assert.Equal(t, protocol.RunCompleted, rc.Status)
	assert.Equal(t, protocol.PhaseSkipped, rc.Results[0].Status)
	// The tolerated check failure is still on the record.
	assert.Contains(t, rc.Results[0].Error, "check failed")
	assert.Equal(t, protocol.PhaseSucceeded, rc.Results[1].Status)
	v, _ := rc.Var("done")
	assert.Equal(t, "true", v)
}

func TestRunManualStepsNeverAutoExecute(t *testing.T) {
	def := mustDefinition(t, "manual", `
## Phase 1: Human gate

- [ ] Confirm with the release manager
- [ ] Get sign-off for the deployment window
- [ ] Verify the changelog
`)

	caller := &fakeCaller{}
	e := New(caller, nil, nil, zap.NewNop(), nil)
	rc := e.Run(context.Background(), def, nil)

	assert.Equal(t, protocol.RunCompleted, rc.Status)
	assert.Empty(t, caller.callNames(), "steps never dispatch capabilities, only DSL CALL does")

	// Manual follow-up is surfaced, not dropped.
	require.Len(t, rc.Results[0].PendingManual, 2)
	assert.Equal(t, "Confirm with the release manager", rc.Results[0].PendingManual[0])
	assert.Equal(t, protocol.PhaseSucceeded, rc.Results[0].Status)
}

func TestRunCancellationBetweenPhases(t *testing.T) {
	def := mustDefinition(t, "cancel", `
## Phase 1: First

`+"```dsl"+`
CALL trip
`+"```"+`

## Phase 2: Second

## Phase 3: Third
`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	caller := &fakeCaller{hooks: map[string]func(){"trip": cancel}}

	e := New(caller, nil, nil, zap.NewNop(), nil)
	rc := e.Run(ctx, def, nil)

	assert.Equal(t, protocol.RunCancelled, rc.Status)
	assert.Equal(t, protocol.PhaseSucceeded, rc.Results[0].Status)
	assert.Equal(t, protocol.PhaseCancelled, rc.Results[1].Status)
	assert.Equal(t, protocol.PhaseSkipped, rc.Results[2].Status)
}

func TestRunCancellationMidPhase(t *testing.T) {
	def := mustDefinition(t, "midcancel", `
## Phase 1: Long

`+"```dsl"+`
CALL trip
LOG never reached
`+"```"+`

## Phase 2: Second
`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	caller := &fakeCaller{hooks: map[string]func(){"trip": cancel}}

	e := New(caller, nil, nil, zap.NewNop(), nil)
	rc := e.Run(ctx, def, nil)

	assert.Equal(t, protocol.RunCancelled, rc.Status)
	assert.Equal(t, protocol.PhaseCancelled, rc.Results[0].Status)
	assert.Empty(t, rc.Results[0].Output)
	assert.Equal(t, protocol.PhaseSkipped, rc.Results[1].Status)
}

func TestRunOrderPreservation(t *testing.T) {
	def := mustDefinition(t, "order", `
## Phase 1: A

## Phase 2: B

## Phase 3: C
`)

	e := New(nil, nil, nil, zap.NewNop(), nil)
	rc := e.Run(context.Background(), def, nil)

	require.Len(t, rc.Results, 3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, i, rc.Results[i].Index)
		assert.Equal(t, protocol.PhaseSucceeded, rc.Results[i].Status)
	}
	// No phase starts before its predecessor finished.
	for i := 1; i < 3; i++ {
		assert.False(t, rc.Results[i].StartedAt.Before(rc.Results[i-1].EndedAt))
	}
}

func TestRunConcurrentIsolation(t *testing.T) {
	def := mustDefinition(t, "shared", `
## Phase 1: Tag

`+"```dsl"+`
SET tagged yes
`+"```"+`
`)

	e := New(nil, nil, nil, zap.NewNop(), nil)

	const runs = 16
	results := make([]*run.Context, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			initial := map[string]string{"who": fmt.Sprintf("runner-%d", i)}
			results[i] = e.Run(context.Background(), def, initial)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, rc := range results {
		assert.Equal(t, protocol.RunCompleted, rc.Status)
		who, _ := rc.Var("who")
		assert.Equal(t, fmt.Sprintf("runner-%d", i), who, "no cross-contamination")
		assert.False(t, seen[rc.ID], "run ids are unique")
		seen[rc.ID] = true
	}
}

func TestRunDeliversRecordToSink(t *testing.T) {
	def := mustDefinition(t, "sinked", "## Phase 1: Only\n")
	sink := &recordSink{}
	e := New(nil, nil, sink, zap.NewNop(), nil)

	rc := e.Run(context.Background(), def, nil)
	require.Len(t, sink.records, 1)
	assert.Same(t, rc, sink.records[0])
}

type mapLoader map[string]string

func (m mapLoader) LoadDefinitionText(name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", fmt.Errorf("protocol %q not found", name)
	}
	return text, nil
}

func TestRunProtocol(t *testing.T) {
	loader := mapLoader{
		"good": "## Phase 1: Only\n\n```dsl\nSET a 1\n```\n",
		"bad":  "## Phase 1: Broken\n\n```dsl\nFROB x\n```\n",
	}
	e := New(nil, loader, nil, zap.NewNop(), nil)

	rc, err := e.RunProtocol(context.Background(), "good", nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.RunCompleted, rc.Status)

	// A defective protocol is rejected at load time: no partial record.
	rc, err = e.RunProtocol(context.Background(), "bad", nil)
	require.Error(t, err)
	assert.Nil(t, rc)
	var parseErr *parser.ParseError
	assert.ErrorAs(t, err, &parseErr)

	rc, err = e.RunProtocol(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Nil(t, rc)
}

func TestRunNeverReturnsNonTerminalStatus(t *testing.T) {
	defs := []string{
		"## Phase 1: A\n",
		"## Phase 1: A\n\n```dsl\nCHECK nope\n```\n",
		"",
	}
	e := New(nil, nil, nil, zap.NewNop(), nil)
	for _, text := range defs {
		def := mustDefinition(t, "p", text)
		rc := e.Run(context.Background(), def, nil)
		assert.True(t, rc.Status.Terminal(), "status %s", rc.Status)
	}
}
