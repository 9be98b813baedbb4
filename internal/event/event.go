// Package event defines typed progress events emitted by the orchestrator,
// consumed by the CLI output layer. These replace ad hoc log strings with
// structured types.
package event

import "fmt"

// Kind identifies the type of event.
type Kind int

const (
	// KindRunStarted marks the start of a protocol run.
	KindRunStarted Kind = iota
	// KindPhaseStarted marks a phase transitioning to RUNNING.
	KindPhaseStarted
	// KindPhaseFinished marks a phase reaching a terminal status.
	KindPhaseFinished
	// KindCheckFailed reports a CHECK that evaluated false.
	KindCheckFailed
	// KindManualPending reports manual steps awaiting human action.
	KindManualPending
	// KindRunFinished marks the run reaching a terminal status.
	KindRunFinished
)

// Event is a single typed event emitted during a run.
type Event struct {
	Kind Kind
	Text string
}

// Handler is a callback that receives events. A nil Handler is valid and
// drops everything.
type Handler func(Event)

// Emit invokes the handler if one is set.
func (h Handler) Emit(e Event) {
	if h != nil {
		h(e)
	}
}

// RunStarted creates a KindRunStarted event.
func RunStarted(protocol, runID string) Event {
	return Event{Kind: KindRunStarted, Text: fmt.Sprintf("run %s of protocol %q started", runID, protocol)}
}

// PhaseStarted creates a KindPhaseStarted event.
func PhaseStarted(index int, title string) Event {
	return Event{Kind: KindPhaseStarted, Text: fmt.Sprintf("phase %d: %s", index, title)}
}

// PhaseFinished creates a KindPhaseFinished event.
func PhaseFinished(index int, title, status string) Event {
	return Event{Kind: KindPhaseFinished, Text: fmt.Sprintf("phase %d: %s → %s", index, title, status)}
}

// CheckFailed creates a KindCheckFailed event.
func CheckFailed(index int, expr string) Event {
	return Event{Kind: KindCheckFailed, Text: fmt.Sprintf("phase %d check failed: %s", index, expr)}
}

// ManualPending creates a KindManualPending event.
func ManualPending(index int, count int) Event {
	return Event{Kind: KindManualPending, Text: fmt.Sprintf("phase %d has %d step(s) requiring human action", index, count)}
}

// RunFinished creates a KindRunFinished event.
func RunFinished(runID, status string) Event {
	return Event{Kind: KindRunFinished, Text: fmt.Sprintf("run %s finished: %s", runID, status)}
}
