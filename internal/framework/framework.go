// Package framework loads the governing documents of a workspace: the
// agent constitution, the numbered principle documents, and the project
// context. All of them are plain markdown files in the workspace root.
package framework

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ConstitutionFile is the filename of the master constitution document.
const ConstitutionFile = "MASTER AI AGENT CONSTITUTION.md"

// ProjectContextFile is the filename of the project context document.
const ProjectContextFile = "Project Context.md"

var principleFileRegex = regexp.MustCompile(`^Principle (\d+)_ (.+)\.md$`)

// Principle is one numbered principle document.
type Principle struct {
	Number int
	Title  string
	Path   string
}

// Manager reads framework documents from a workspace directory.
type Manager struct {
	workspace string
}

// NewManager creates a manager rooted at the workspace directory.
func NewManager(workspace string) *Manager {
	return &Manager{workspace: workspace}
}

// Constitution returns the constitution document text.
func (m *Manager) Constitution() (string, error) {
	return m.readDoc(ConstitutionFile)
}

// ProjectContext returns the project context document text.
func (m *Manager) ProjectContext() (string, error) {
	return m.readDoc(ProjectContextFile)
}

func (m *Manager) readDoc(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(m.workspace, name))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// Principles lists the principle documents found in the workspace, sorted
// by number.
func (m *Manager) Principles() ([]Principle, error) {
	dirEntries, err := os.ReadDir(m.workspace)
	if err != nil {
		return nil, fmt.Errorf("read workspace %s: %w", m.workspace, err)
	}

	var principles []Principle
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		match := principleFileRegex.FindStringSubmatch(de.Name())
		if match == nil {
			continue
		}
		var number int
		fmt.Sscanf(match[1], "%d", &number)
		principles = append(principles, Principle{
			Number: number,
			Title:  strings.TrimSpace(match[2]),
			Path:   filepath.Join(m.workspace, de.Name()),
		})
	}

	sort.Slice(principles, func(i, j int) bool { return principles[i].Number < principles[j].Number })
	return principles, nil
}

// Principle returns the text of the principle whose title contains the
// given query, case-insensitively.
func (m *Manager) Principle(query string) (string, error) {
	principles, err := m.Principles()
	if err != nil {
		return "", err
	}
	want := strings.ToLower(query)
	for _, p := range principles {
		if strings.Contains(strings.ToLower(p.Title), want) {
			data, err := os.ReadFile(p.Path)
			if err != nil {
				return "", fmt.Errorf("read principle %q: %w", p.Title, err)
			}
			return string(data), nil
		}
	}
	return "", fmt.Errorf("principle %q not found", query)
}
