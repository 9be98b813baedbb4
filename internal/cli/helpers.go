package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/vdeworks/agentsuite/internal/protocol"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// resolveWorkingDir returns the provided dir or falls back to the current
// working directory.
func resolveWorkingDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

func styleRunStatus(s protocol.RunStatus) string {
	switch s {
	case protocol.RunCompleted:
		return successStyle.Render(s.String())
	case protocol.RunFailed:
		return failureStyle.Render(s.String())
	case protocol.RunCancelled:
		return warnStyle.Render(s.String())
	default:
		return s.String()
	}
}

func stylePhaseStatus(s protocol.PhaseStatus) string {
	switch s {
	case protocol.PhaseSucceeded:
		return successStyle.Render(s.String())
	case protocol.PhaseFailed:
		return failureStyle.Render(s.String())
	case protocol.PhaseSkipped, protocol.PhaseCancelled:
		return warnStyle.Render(s.String())
	default:
		return dimStyle.Render(s.String())
	}
}
