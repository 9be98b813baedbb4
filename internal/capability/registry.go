// Package capability implements the CALL registry: named host-supplied
// capabilities with per-capability timeouts, dispatched through an explicit
// middleware chain (retry, circuit breaker) instead of decorators wrapped
// around arbitrary functions.
package capability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vdeworks/agentsuite/internal/run"
)

// Func is a host capability invoked by a CALL command. Implementations
// should honour ctx cancellation; if they do not, the registry still waits
// for them to return and then reports the timeout.
type Func func(ctx context.Context, args []string, rc *run.Context) (string, error)

// ErrNotFound reports a CALL to a capability that was never registered.
var ErrNotFound = errors.New("capability not registered")

// ErrTimeout reports a capability that exceeded its timeout.
var ErrTimeout = errors.New("capability timed out")

// Error wraps a capability failure with the capability name. Any Error is
// a hard phase failure.
type Error struct {
	Capability string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capability %q: %v", e.Capability, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Middleware wraps a capability function in the dispatch path. Middleware
// is applied at registration time, so stateful middleware (a circuit
// breaker) keeps its state per capability.
type Middleware func(next Func) Func

type registration struct {
	timeout time.Duration
	fn      Func
}

// Registry maps capability names to callables. It implements dsl.Caller.
// Registration happens at host start-up; Call is safe for concurrent use
// across runs.
type Registry struct {
	mu             sync.RWMutex
	caps           map[string]registration
	middleware     []Middleware
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// NewRegistry creates a registry. defaultTimeout bounds capabilities
// registered without their own timeout; middleware is applied to every
// capability, first middleware outermost.
func NewRegistry(defaultTimeout time.Duration, logger *zap.Logger, middleware ...Middleware) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		caps:           make(map[string]registration),
		middleware:     middleware,
		defaultTimeout: defaultTimeout,
		logger:         logger,
	}
}

// Register adds a capability. timeout <= 0 uses the registry default.
// Registering the same name twice is an error.
func (r *Registry) Register(name string, timeout time.Duration, fn Func) error {
	if name == "" {
		return fmt.Errorf("capability name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("capability %q: nil function", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caps[name]; exists {
		return fmt.Errorf("capability %q already registered", name)
	}

	wrapped := fn
	for i := len(r.middleware) - 1; i >= 0; i-- {
		wrapped = r.middleware[i](wrapped)
	}
	r.caps[name] = registration{timeout: timeout, fn: wrapped}
	return nil
}

// Names returns the registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call dispatches to a registered capability with its timeout applied.
// A missing capability, a capability error, or a timeout all come back as
// *Error; the interpreter treats each as a hard phase failure.
func (r *Registry) Call(ctx context.Context, name string, args []string, rc *run.Context) (string, error) {
	r.mu.RLock()
	reg, ok := r.caps[name]
	r.mu.RUnlock()
	if !ok {
		return "", &Error{Capability: name, Err: ErrNotFound}
	}

	timeout := reg.timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	callCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	value, err := reg.fn(callCtx, args, rc)
	elapsed := time.Since(start)

	// A capability that ignores ctx is waited out; the deadline still
	// counts as a timeout regardless of what it returned.
	if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		r.logger.Warn("capability timed out",
			zap.String("capability", name),
			zap.Duration("timeout", timeout),
			zap.Duration("elapsed", elapsed))
		return "", &Error{Capability: name, Err: ErrTimeout}
	}
	if err != nil {
		return "", &Error{Capability: name, Err: err}
	}

	r.logger.Debug("capability call",
		zap.String("capability", name),
		zap.Duration("elapsed", elapsed))
	return value, nil
}
