// Package domain defines the shared model types used across agentsuite:
// Definition, Phase, Step, Command, and their helper methods. Values are
// immutable once produced by the parser and safe to share across runs.
package domain

import (
	"github.com/vdeworks/agentsuite/internal/protocol"
)

// Command is a single parsed DSL command: a verb plus its ordered arguments.
type Command struct {
	Verb protocol.Verb
	Args []string
}

// Step is one instruction line of a phase. Text is preserved verbatim;
// Kind is assigned by the classifier at parse time.
type Step struct {
	Text string
	Kind protocol.ActionKind
}

// Phase is one ordered stage of a protocol.
type Phase struct {
	// Index is the contiguous zero-based position in source order.
	Index int
	// Title is the phase heading text.
	Title string
	// Steps are the instruction lines found in the phase body.
	Steps []Step
	// Commands are the DSL commands extracted from fenced dsl blocks.
	Commands []Command
	// OnCheckFailure is the policy applied when a CHECK in this phase
	// evaluates false. Defaults to protocol.CheckFailRun.
	OnCheckFailure protocol.CheckPolicy
}

// HasCommands reports whether the phase carries any DSL commands.
func (p *Phase) HasCommands() bool { return len(p.Commands) > 0 }

// ManualSteps returns the raw text of every step classified as manual.
func (p *Phase) ManualSteps() []string {
	var manual []string
	for _, s := range p.Steps {
		if s.Kind == protocol.ActionManual {
			manual = append(manual, s.Text)
		}
	}
	return manual
}

// Definition is a fully parsed protocol: an ordered sequence of phases plus
// optional descriptive metadata.
type Definition struct {
	// Name identifies the protocol (from front matter or the filename).
	Name string
	// Description is the protocol objective, if one was found.
	Description string
	// Metadata holds the recognised "Key: value" lines (duration,
	// complexity, required roles).
	Metadata map[string]string
	// Phases are ordered by Index, 0..N-1 with no gaps.
	Phases []Phase
}

// PhaseCount returns the number of phases.
func (d *Definition) PhaseCount() int { return len(d.Phases) }

// Phase returns the phase with the given index, or nil if out of range.
func (d *Definition) Phase(index int) *Phase {
	if index < 0 || index >= len(d.Phases) {
		return nil
	}
	return &d.Phases[index]
}

// HasDSL reports whether any phase carries DSL commands.
func (d *Definition) HasDSL() bool {
	for i := range d.Phases {
		if d.Phases[i].HasCommands() {
			return true
		}
	}
	return false
}
