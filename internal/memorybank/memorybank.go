// Package memorybank manages the per-workspace memory-bank/ directory:
// a set of markdown files that persist context, decisions, and progress
// across sessions. It also records finished protocol runs into the
// progress log.
package memorybank

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/pretty"
)

// Dir is the memory bank directory name inside a workspace.
const Dir = "memory-bank"

// ContextType names one of the memory bank files.
type ContextType string

const (
	ContextActive    ContextType = "active"
	ContextDecisions ContextType = "decisions"
	ContextProduct   ContextType = "product"
	ContextProgress  ContextType = "progress"
	ContextProject   ContextType = "project"
	ContextPatterns  ContextType = "patterns"
)

// ContextTypes lists every context type in display order.
var ContextTypes = []ContextType{
	ContextActive, ContextDecisions, ContextProduct,
	ContextProgress, ContextProject, ContextPatterns,
}

var files = map[ContextType]string{
	ContextActive:    "activeContext.md",
	ContextDecisions: "decisionLog.md",
	ContextProduct:   "productContext.md",
	ContextProgress:  "progress.md",
	ContextProject:   "projectBrief.md",
	ContextPatterns:  "systemPatterns.md",
}

var defaults = map[ContextType]string{
	ContextActive:    "# Active Context\n\n## Current Goals\n\n- Goal 1\n\n## Current Blockers\n\n- None yet\n",
	ContextDecisions: "# Decision Log\n\n## Architectural Decisions\n",
	ContextProduct:   "# Product Context\n\n## Overview\n\nTBD\n",
	ContextProgress:  "# Progress\n\n## Completed Tasks\n\n- None yet\n\n## Current Tasks\n\n- None yet\n",
	ContextProject:   "# Project Brief\n\n## Objective\n\nTBD\n\n## Scope\n\nTBD\n",
	ContextPatterns:  "# System Patterns\n\n## Architectural Patterns\n\nTBD\n",
}

// Entry is the content of one memory file plus its modification time.
type Entry struct {
	Type     ContextType
	Content  string
	Modified time.Time
}

// Bank is a workspace memory bank.
type Bank struct {
	dir string
	now func() time.Time
}

// New creates a bank for the given workspace without touching the disk;
// call Init to materialise the directory and default files.
func New(workspace string) *Bank {
	return &Bank{dir: filepath.Join(workspace, Dir), now: time.Now}
}

// Init creates the memory bank directory and any missing files with their
// default content. Existing files are left alone.
func (b *Bank) Init() error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", b.dir, err)
	}
	for ct, name := range files {
		path := filepath.Join(b.dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(defaults[ct]), 0o644); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
	}
	return nil
}

func (b *Bank) path(ct ContextType) (string, error) {
	name, ok := files[ct]
	if !ok {
		return "", fmt.Errorf("unknown context type %q", ct)
	}
	return filepath.Join(b.dir, name), nil
}

// Get returns the named context, creating it with default content first
// when it does not exist yet.
func (b *Bank) Get(ct ContextType) (*Entry, error) {
	path, err := b.path(ct)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if err := b.Init(); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s context: %w", ct, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &Entry{Type: ct, Content: string(data), Modified: info.ModTime()}, nil
}

// Set replaces the named context's content.
func (b *Bank) Set(ct ContextType, content string) error {
	path, err := b.path(ct)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", b.dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s context: %w", ct, err)
	}
	return nil
}

// Append adds a block to the end of the named context, separated by a
// blank line.
func (b *Bank) Append(ct ContextType, block string) error {
	entry, err := b.Get(ct)
	if err != nil {
		return err
	}
	content := strings.TrimRight(entry.Content, "\n") + "\n\n" + strings.TrimRight(block, "\n") + "\n"
	return b.Set(ct, content)
}

// LogDecision appends a dated decision entry to the decision log. detail
// may be nil; when present it is recorded as indented JSON.
func (b *Bank) LogDecision(decision, rationale string, detail map[string]string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n", decision)
	fmt.Fprintf(&sb, "- **Date**: %s\n", b.now().Format(time.RFC3339))
	fmt.Fprintf(&sb, "- **Decision**: %s\n", decision)
	fmt.Fprintf(&sb, "- **Rationale**: %s\n", rationale)
	if len(detail) > 0 {
		raw, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("encode decision detail: %w", err)
		}
		fmt.Fprintf(&sb, "- **Context**:\n\n```json\n%s```\n", pretty.Pretty(raw))
	}
	return b.Append(ContextDecisions, sb.String())
}
