// Package protocol defines the cross-package vocabulary for agentsuite:
// run and phase statuses, step action kinds, DSL verbs, text markers, and
// the check-failure policy values.
package protocol

// RunStatus represents the lifecycle state of one protocol execution.
type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
	RunCancelled RunStatus = "CANCELLED"
)

func (s RunStatus) String() string { return string(s) }

// Terminal reports whether s is a final run state.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// PhaseStatus represents the lifecycle state of one phase within a run.
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "PENDING"
	PhaseRunning   PhaseStatus = "RUNNING"
	PhaseSucceeded PhaseStatus = "SUCCEEDED"
	PhaseFailed    PhaseStatus = "FAILED"
	PhaseSkipped   PhaseStatus = "SKIPPED"
	PhaseCancelled PhaseStatus = "CANCELLED"
)

func (s PhaseStatus) String() string { return string(s) }

// ActionKind classifies a protocol step. Manual steps are never executed
// automatically; they are surfaced in the phase result instead.
type ActionKind string

const (
	ActionValidation    ActionKind = "validation"
	ActionGeneration    ActionKind = "generation"
	ActionDocumentation ActionKind = "documentation"
	ActionReview        ActionKind = "review"
	ActionTesting       ActionKind = "testing"
	ActionManual        ActionKind = "manual"
)

func (k ActionKind) String() string { return string(k) }

// Verb is a DSL command verb. The set is fixed; the parser rejects any
// other verb at load time.
type Verb string

const (
	VerbSet   Verb = "SET"
	VerbCheck Verb = "CHECK"
	VerbCall  Verb = "CALL"
	VerbLog   Verb = "LOG"
)

// IsValid reports whether v is a recognised DSL verb.
func (v Verb) IsValid() bool {
	switch v {
	case VerbSet, VerbCheck, VerbCall, VerbLog:
		return true
	default:
		return false
	}
}

func (v Verb) String() string { return string(v) }

// CheckPolicy controls what a failed CHECK does to the enclosing phase.
type CheckPolicy string

const (
	// CheckFailRun fails the whole run (the default).
	CheckFailRun CheckPolicy = "fail-run"
	// CheckSkipPhase marks the phase SKIPPED and continues with the next one.
	CheckSkipPhase CheckPolicy = "skip"
)

// DSLFence is the info string of the fenced code block that holds DSL
// commands inside a phase.
const DSLFence = "dsl"

// FilePrefix and FileSuffix bound the protocol definition filenames the
// source store recognises ("Protocol_<Name>.md").
const (
	FilePrefix = "Protocol_"
	FileSuffix = ".md"
)

// Metadata keys recognised on plain "Key: value" lines in protocol text.
const (
	MetaDuration      = "duration"
	MetaComplexity    = "complexity"
	MetaRequiredRoles = "required_roles"
)

// CallResultSuffix is appended to a capability name to form the variable
// under which a CALL's return value is stored.
const CallResultSuffix = "_result"
