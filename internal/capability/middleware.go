package capability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vdeworks/agentsuite/internal/run"
)

// ErrCircuitOpen reports a call rejected because the capability's circuit
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Retry retries a failed capability up to attempts times in total, sleeping
// delay between attempts (doubling each time). Context errors are never
// retried: a cancelled or timed-out call stays failed.
func Retry(attempts int, delay time.Duration) Middleware {
	return func(next Func) Func {
		return func(ctx context.Context, args []string, rc *run.Context) (string, error) {
			var lastErr error
			wait := delay
			for attempt := 0; attempt < attempts; attempt++ {
				if attempt > 0 {
					select {
					case <-ctx.Done():
						return "", ctx.Err()
					case <-time.After(wait):
					}
					wait *= 2
				}
				value, err := next(ctx, args, rc)
				if err == nil {
					return value, nil
				}
				if ctx.Err() != nil {
					return "", err
				}
				lastErr = err
			}
			return "", lastErr
		}
	}
}

// Breaker opens after threshold consecutive failures and rejects calls
// until cooldown has passed, after which one trial call is allowed through.
// Each registered capability gets its own breaker state because middleware
// is applied at registration time.
func Breaker(threshold int, cooldown time.Duration) Middleware {
	return func(next Func) Func {
		var mu sync.Mutex
		failures := 0
		var openedAt time.Time

		return func(ctx context.Context, args []string, rc *run.Context) (string, error) {
			mu.Lock()
			if failures >= threshold {
				if time.Since(openedAt) < cooldown {
					mu.Unlock()
					return "", fmt.Errorf("%w (retry after %s)", ErrCircuitOpen, cooldown)
				}
				// Half-open: let one trial call through.
				failures = threshold - 1
			}
			mu.Unlock()

			value, err := next(ctx, args, rc)

			mu.Lock()
			if err != nil {
				failures++
				if failures >= threshold {
					openedAt = time.Now()
				}
			} else {
				failures = 0
			}
			mu.Unlock()

			return value, err
		}
	}
}
