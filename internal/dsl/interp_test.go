package dsl

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vdeworks/agentsuite/internal/domain"
	"github.com/vdeworks/agentsuite/internal/protocol"
	"github.com/vdeworks/agentsuite/internal/run"
)

// fakeCaller records CALL dispatches and returns canned results.
type fakeCaller struct {
	calls   []string
	results map[string]string
	errs    map[string]error
}

func (f *fakeCaller) Call(_ context.Context, name string, args []string, _ *run.Context) (string, error) {
	f.calls = append(f.calls, name)
	if err, ok := f.errs[name]; ok {
		return "", err
	}
	return f.results[name], nil
}

func newRunContext(t *testing.T, initial map[string]string) (*run.Context, *run.PhaseResult) {
	t.Helper()
	def := &domain.Definition{Name: "Test", Phases: []domain.Phase{{Index: 0, Title: "Only"}}}
	rc := run.NewContext(def, initial)
	return rc, rc.BeginPhase(&def.Phases[0])
}

func mustParse(t *testing.T, block string) []domain.Command {
	t.Helper()
	commands, err := ParseBlock(block)
	require.NoError(t, err)
	return commands
}

func TestExecuteSetCheckLog(t *testing.T) {
	rc, result := newRunContext(t, nil)
	in := New(nil, zap.NewNop())

	commands := mustParse(t, `
SET x 1
CHECK x == 1
LOG x is set
`)
	err := in.Execute(context.Background(), commands, rc, result)
	require.NoError(t, err)

	v, ok := rc.Var("x")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, []string{"x is set"}, result.Output)
}

func TestExecuteCheckFailureIsRecoverable(t *testing.T) {
	rc, result := newRunContext(t, nil)
	in := New(nil, zap.NewNop())

	commands := mustParse(t, "SET x 1\nCHECK x == 2\nLOG never reached")
	err := in.Execute(context.Background(), commands, rc, result)

	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, "x == 2", checkErr.Expr)
	// Execution stopped at the failed check.
	assert.Empty(t, result.Output)
}

func TestExecuteCallStoresResult(t *testing.T) {
	rc, result := newRunContext(t, nil)
	caller := &fakeCaller{results: map[string]string{"build": "ok"}}
	in := New(caller, zap.NewNop())

	err := in.Execute(context.Background(), mustParse(t, "CALL build --target all"), rc, result)
	require.NoError(t, err)

	assert.Equal(t, []string{"build"}, caller.calls)
	v, ok := rc.Var("build" + protocol.CallResultSuffix)
	require.True(t, ok)
	assert.Equal(t, "ok", v)
}

func TestExecuteCallErrorIsHard(t *testing.T) {
	rc, result := newRunContext(t, nil)
	caller := &fakeCaller{errs: map[string]error{"deploy": fmt.Errorf("boom")}}
	in := New(caller, zap.NewNop())

	err := in.Execute(context.Background(), mustParse(t, "CALL deploy\nLOG after"), rc, result)
	require.Error(t, err)
	var checkErr *CheckError
	assert.False(t, errors.As(err, &checkErr))
	assert.Contains(t, err.Error(), `call "deploy"`)
	assert.Empty(t, result.Output)
}

func TestExecuteCallWithoutRegistry(t *testing.T) {
	rc, result := newRunContext(t, nil)
	in := New(nil, zap.NewNop())

	err := in.Execute(context.Background(), mustParse(t, "CALL anything"), rc, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no capability registry")
}

func TestExecuteHonoursCancellation(t *testing.T) {
	rc, result := newRunContext(t, nil)
	in := New(nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := in.Execute(ctx, mustParse(t, "SET x 1"), rc, result)
	require.ErrorIs(t, err, context.Canceled)
	_, ok := rc.Var("x")
	assert.False(t, ok)
}

func TestExecuteUnknownVerbIsDefensiveHardError(t *testing.T) {
	rc, result := newRunContext(t, nil)
	in := New(nil, zap.NewNop())

	// Hand-built command that bypasses parse-time validation.
	err := in.Execute(context.Background(), []domain.Command{{Verb: "NOPE"}}, rc, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown verb")
}
