package capability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vdeworks/agentsuite/internal/run"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	r := NewRegistry(time.Second, zap.NewNop(), Retry(3, time.Millisecond))
	require.NoError(t, r.Register("flaky", 0, func(context.Context, []string, *run.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", fmt.Errorf("transient")
		}
		return "ok", nil
	}))

	value, err := r.Call(context.Background(), "flaky", nil, testRunContext())
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 3, attempts)
}

func TestRetryGivesUpAfterAllAttempts(t *testing.T) {
	attempts := 0
	r := NewRegistry(time.Second, zap.NewNop(), Retry(2, time.Millisecond))
	require.NoError(t, r.Register("broken", 0, func(context.Context, []string, *run.Context) (string, error) {
		attempts++
		return "", fmt.Errorf("always fails")
	}))

	_, err := r.Call(context.Background(), "broken", nil, testRunContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "always fails")
	assert.Equal(t, 2, attempts)
}

func TestRetryDoesNotRetryAfterCancellation(t *testing.T) {
	attempts := 0
	r := NewRegistry(time.Second, zap.NewNop(), Retry(5, time.Millisecond))
	require.NoError(t, r.Register("cancelled", 0, func(ctx context.Context, _ []string, _ *run.Context) (string, error) {
		attempts++
		return "", ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Call(ctx, "cancelled", nil, testRunContext())
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	failing := true
	r := NewRegistry(time.Second, zap.NewNop(), Breaker(2, 20*time.Millisecond))
	require.NoError(t, r.Register("svc", 0, func(context.Context, []string, *run.Context) (string, error) {
		if failing {
			return "", fmt.Errorf("down")
		}
		return "up", nil
	}))

	rc := testRunContext()

	// Two failures trip the breaker.
	_, err := r.Call(context.Background(), "svc", nil, rc)
	require.Error(t, err)
	_, err = r.Call(context.Background(), "svc", nil, rc)
	require.Error(t, err)

	// Open: rejected without reaching the capability.
	_, err = r.Call(context.Background(), "svc", nil, rc)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	// After the cooldown a trial call goes through and resets the breaker.
	failing = false
	time.Sleep(25 * time.Millisecond)
	value, err := r.Call(context.Background(), "svc", nil, rc)
	require.NoError(t, err)
	assert.Equal(t, "up", value)

	value, err = r.Call(context.Background(), "svc", nil, rc)
	require.NoError(t, err)
	assert.Equal(t, "up", value)
}

func TestBreakerStateIsPerCapability(t *testing.T) {
	r := NewRegistry(time.Second, zap.NewNop(), Breaker(1, time.Minute))
	require.NoError(t, r.Register("bad", 0, func(context.Context, []string, *run.Context) (string, error) {
		return "", fmt.Errorf("down")
	}))
	require.NoError(t, r.Register("good", 0, func(context.Context, []string, *run.Context) (string, error) {
		return "fine", nil
	}))

	rc := testRunContext()
	_, err := r.Call(context.Background(), "bad", nil, rc)
	require.Error(t, err)
	_, err = r.Call(context.Background(), "bad", nil, rc)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	value, err := r.Call(context.Background(), "good", nil, rc)
	require.NoError(t, err)
	assert.Equal(t, "fine", value)
}
