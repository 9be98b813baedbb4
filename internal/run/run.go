// Package run holds the mutable state of one protocol execution: the
// execution context, its variables, and the per-phase results. A Context is
// owned by exactly one run; concurrent runs never share one.
package run

import (
	"time"

	"github.com/google/uuid"

	"github.com/vdeworks/agentsuite/internal/domain"
	"github.com/vdeworks/agentsuite/internal/protocol"
)

// PhaseResult records the outcome of a single phase.
type PhaseResult struct {
	Index     int                  `json:"index"`
	Title     string               `json:"title"`
	Status    protocol.PhaseStatus `json:"status"`
	StartedAt time.Time            `json:"started_at,omitzero"`
	EndedAt   time.Time            `json:"ended_at,omitzero"`
	// Output collects LOG lines and other free-form phase output.
	Output []string `json:"output,omitempty"`
	// Error is set iff Status is FAILED, or records a tolerated check
	// failure when the phase policy allowed continuation.
	Error string `json:"error,omitempty"`
	// PendingManual lists manual steps that still require human action.
	PendingManual []string `json:"pending_manual,omitempty"`
}

// Duration returns the wall-clock time the phase spent running.
func (r *PhaseResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Context is the execution record of one run. It is created when the run
// starts and mutated only by that run's goroutine.
type Context struct {
	ID        string             `json:"id"`
	Protocol  string             `json:"protocol"`
	Status    protocol.RunStatus `json:"status"`
	StartedAt time.Time          `json:"started_at,omitzero"`
	EndedAt   time.Time          `json:"ended_at,omitzero"`
	// Results maps phase index to its result. An entry exists for every
	// phase index once the run has reached (or skipped past) that phase.
	Results map[int]*PhaseResult `json:"results"`
	// Variables is the run's key/value store. Keys are only added or
	// overwritten, never deleted, so the audit trail stays reproducible.
	Variables map[string]string `json:"variables"`

	definition *domain.Definition
}

// NewContext creates a PENDING context for the given definition, seeding
// the variable store from the caller-supplied initial context.
func NewContext(def *domain.Definition, initial map[string]string) *Context {
	vars := make(map[string]string, len(initial))
	for k, v := range initial {
		vars[k] = v
	}
	return &Context{
		ID:         uuid.NewString(),
		Protocol:   def.Name,
		Status:     protocol.RunPending,
		Results:    make(map[int]*PhaseResult, len(def.Phases)),
		Variables:  vars,
		definition: def,
	}
}

// Definition returns the immutable definition this run executes.
func (c *Context) Definition() *domain.Definition { return c.definition }

// SetVar writes a variable. Existing keys are overwritten; nothing is ever
// deleted.
func (c *Context) SetVar(key, value string) {
	c.Variables[key] = value
}

// Var looks up a variable.
func (c *Context) Var(key string) (string, bool) {
	v, ok := c.Variables[key]
	return v, ok
}

// BeginPhase creates (or returns) the result entry for a phase and marks
// it RUNNING.
func (c *Context) BeginPhase(p *domain.Phase) *PhaseResult {
	r, ok := c.Results[p.Index]
	if !ok {
		r = &PhaseResult{Index: p.Index, Title: p.Title, Status: protocol.PhasePending}
		c.Results[p.Index] = r
	}
	r.Status = protocol.PhaseRunning
	r.StartedAt = time.Now()
	return r
}

// FinishPhase stamps the end time and final status on a phase result.
func (c *Context) FinishPhase(r *PhaseResult, status protocol.PhaseStatus) {
	r.Status = status
	r.EndedAt = time.Now()
}

// MarkSkipped records a SKIPPED result for a phase that will not run.
func (c *Context) MarkSkipped(p *domain.Phase) {
	if _, ok := c.Results[p.Index]; ok {
		return
	}
	c.Results[p.Index] = &PhaseResult{Index: p.Index, Title: p.Title, Status: protocol.PhaseSkipped}
}

// Duration returns the total wall-clock time of the run.
func (c *Context) Duration() time.Duration {
	if c.StartedAt.IsZero() {
		return 0
	}
	end := c.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(c.StartedAt)
}

// PhasesCompleted counts phases that finished SUCCEEDED.
func (c *Context) PhasesCompleted() int {
	n := 0
	for _, r := range c.Results {
		if r.Status == protocol.PhaseSucceeded {
			n++
		}
	}
	return n
}

// FailedPhase returns the result of the first FAILED phase, or nil.
func (c *Context) FailedPhase() *PhaseResult {
	for i := 0; i < len(c.definition.Phases); i++ {
		if r, ok := c.Results[i]; ok && r.Status == protocol.PhaseFailed {
			return r
		}
	}
	return nil
}
