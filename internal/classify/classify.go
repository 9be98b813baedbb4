// Package classify assigns an action kind to protocol steps by matching
// keyword rules against the step text.
//
// Rules are evaluated top to bottom and the first match wins. The order is
// part of the contract because it changes execution behaviour (manual steps
// are never run unattended):
//
//	1. manual        "confirm with", "sign off", "approval", "manual"
//	2. testing       "test", "verify"
//	3. documentation "document", "update docs", "describe", "explain"
//	4. review        "review"
//	5. generation    "generate", "implement", "create", "write"
//	6. validation    everything else
//
// Classify is a pure function: no state, safe to call concurrently.
package classify

import (
	"strings"

	"github.com/vdeworks/agentsuite/internal/protocol"
)

// rule pairs a predicate with the kind it assigns.
type rule struct {
	kind  protocol.ActionKind
	match func(lower string) bool
}

func containsAny(keywords ...string) func(string) bool {
	return func(lower string) bool {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}
}

// rules is the fixed priority table. Manual cues rank first so that
// "confirm with the reviewer" stays a human step rather than a review step.
var rules = []rule{
	{protocol.ActionManual, containsAny("confirm with", "sign off", "sign-off", "approval", "manual")},
	{protocol.ActionTesting, containsAny("test", "verify")},
	{protocol.ActionDocumentation, containsAny("document", "update docs", "describe", "explain")},
	{protocol.ActionReview, containsAny("review")},
	{protocol.ActionGeneration, containsAny("generate", "implement", "create", "write")},
}

// Classify returns the action kind for a step's text. Unmatched text
// defaults to validation, the safest automatic kind.
func Classify(text string) protocol.ActionKind {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.match(lower) {
			return r.kind
		}
	}
	return protocol.ActionValidation
}
