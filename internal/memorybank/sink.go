package memorybank

import (
	"fmt"
	"strings"
	"time"

	"github.com/vdeworks/agentsuite/internal/protocol"
	"github.com/vdeworks/agentsuite/internal/run"
)

// RecordRun appends a finished run's summary to the progress log. It
// satisfies the executor's Sink interface.
func (b *Bank) RecordRun(rc *run.Context) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### Run %s — %s\n", rc.ID, rc.Protocol)
	fmt.Fprintf(&sb, "- **Date**: %s\n", rc.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- **Status**: %s\n", rc.Status)
	fmt.Fprintf(&sb, "- **Duration**: %s\n", rc.Duration().Round(time.Millisecond))

	for i := 0; i < len(rc.Results); i++ {
		result, ok := rc.Results[i]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "- Phase %d (%s): %s", result.Index+1, result.Title, result.Status)
		if result.Error != "" {
			fmt.Fprintf(&sb, " — %s", result.Error)
		}
		sb.WriteString("\n")
		for _, manual := range result.PendingManual {
			fmt.Fprintf(&sb, "  - [ ] %s\n", manual)
		}
	}

	if rc.Status == protocol.RunFailed {
		if failed := rc.FailedPhase(); failed != nil {
			fmt.Fprintf(&sb, "- **Failed at**: phase %d (%s)\n", failed.Index+1, failed.Title)
		}
	}

	return b.Append(ContextProgress, sb.String())
}
