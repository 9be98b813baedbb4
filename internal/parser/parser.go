// Package parser turns raw protocol text into a domain.Definition: ordered
// phases, their instruction steps, and any embedded DSL command blocks.
// All validation happens here, at load time — a protocol with a malformed
// DSL block is rejected before any run starts. Parsing is deterministic:
// the same text always yields a structurally identical definition.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vdeworks/agentsuite/internal/classify"
	"github.com/vdeworks/agentsuite/internal/domain"
	"github.com/vdeworks/agentsuite/internal/dsl"
	"github.com/vdeworks/agentsuite/internal/protocol"
)

// ParseError reports malformed protocol text. The definition is never
// partially loaded: any ParseError means the whole protocol was rejected.
type ParseError struct {
	Protocol string
	Phase    string // phase title, when the error is scoped to one phase
	Err      error
}

func (e *ParseError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("parse protocol %q: phase %q: %v", e.Protocol, e.Phase, e.Err)
	}
	return fmt.Sprintf("parse protocol %q: %v", e.Protocol, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	// phaseHeadingRegex matches "## Phase 3: Title" and the original's
	// bold form "## **Phase 3: Title**".
	phaseHeadingRegex = regexp.MustCompile(`^##\s*\**\s*Phase\s+(\d+)\s*:\s*(.+?)\s*\**\s*$`)
	// stepRegex matches checklist items and plain bullets.
	stepRegex = regexp.MustCompile(`^[-*]\s+(?:\[[ xX]\]\s+)?(.+)$`)
	// objectiveRegex extracts the protocol description from the original's
	// "**Objective**: ..." convention.
	objectiveRegex = regexp.MustCompile(`(?i)^\**Objective\**\s*:\s*(.+)$`)
	// metaRegex matches recognised "Key: value" metadata lines.
	metaRegex = regexp.MustCompile(`(?i)^(Duration|Complexity|Required Roles?|On-Check-Failure)\s*:\s*(.+)$`)
)

// frontMatter is the optional YAML header of a protocol file.
type frontMatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Parse parses protocol text into a definition. name is the caller-supplied
// fallback identity (usually derived from the filename); an optional YAML
// front matter block can override it.
func Parse(name, text string) (*domain.Definition, error) {
	def := &domain.Definition{
		Name:     name,
		Metadata: map[string]string{},
	}

	body, err := parseFrontMatter(text, def)
	if err != nil {
		return nil, &ParseError{Protocol: name, Err: err}
	}

	blocks := splitPhases(body)

	// Everything before the first phase heading is the preamble: it may
	// carry the description and document-level metadata.
	parsePreamble(blocks.preamble, def)

	for i, pb := range blocks.phases {
		phase, err := parsePhase(i, pb)
		if err != nil {
			return nil, &ParseError{Protocol: def.Name, Phase: pb.title, Err: err}
		}
		def.Phases = append(def.Phases, phase)
	}

	return def, nil
}

type phaseBlock struct {
	title string
	lines []string
}

type docBlocks struct {
	preamble []string
	phases   []phaseBlock
}

// splitPhases cuts the document at phase headings. Indices are assigned by
// source order, not by the numbers in the headings.
func splitPhases(text string) docBlocks {
	var blocks docBlocks
	current := -1

	for _, line := range strings.Split(text, "\n") {
		if m := phaseHeadingRegex.FindStringSubmatch(strings.TrimRight(line, " \t")); m != nil {
			blocks.phases = append(blocks.phases, phaseBlock{title: m[2]})
			current++
			continue
		}
		if current < 0 {
			blocks.preamble = append(blocks.preamble, line)
		} else {
			blocks.phases[current].lines = append(blocks.phases[current].lines, line)
		}
	}

	return blocks
}

func parsePreamble(lines []string, def *domain.Definition) {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := objectiveRegex.FindStringSubmatch(trimmed); m != nil && def.Description == "" {
			def.Description = strings.TrimSpace(m[1])
			continue
		}
		if key, value, ok := matchMeta(trimmed); ok && key != "on-check-failure" {
			def.Metadata[key] = value
			continue
		}
		// Fallback description: first plain paragraph line.
		if def.Description == "" && trimmed != "" && !strings.HasPrefix(trimmed, "#") &&
			!strings.HasPrefix(trimmed, "-") && !strings.HasPrefix(trimmed, "*") {
			def.Description = trimmed
		}
	}
}

func parsePhase(index int, pb phaseBlock) (domain.Phase, error) {
	phase := domain.Phase{
		Index:          index,
		Title:          pb.title,
		OnCheckFailure: protocol.CheckFailRun,
	}

	inFence := false
	fenceIsDSL := false
	var fenceLines []string

	for _, line := range pb.lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if !inFence {
				inFence = true
				fenceIsDSL = strings.TrimPrefix(trimmed, "```") == protocol.DSLFence
				fenceLines = fenceLines[:0]
			} else {
				if fenceIsDSL {
					commands, err := dsl.ParseBlock(strings.Join(fenceLines, "\n"))
					if err != nil {
						return domain.Phase{}, err
					}
					phase.Commands = append(phase.Commands, commands...)
				}
				inFence = false
				fenceIsDSL = false
			}
			continue
		}

		if inFence {
			fenceLines = append(fenceLines, line)
			continue
		}

		if key, value, ok := matchMeta(trimmed); ok {
			if key == "on-check-failure" {
				policy, err := parseCheckPolicy(value)
				if err != nil {
					return domain.Phase{}, err
				}
				phase.OnCheckFailure = policy
			}
			continue
		}

		if m := stepRegex.FindStringSubmatch(trimmed); m != nil {
			text := m[1]
			phase.Steps = append(phase.Steps, domain.Step{
				Text: text,
				Kind: classify.Classify(text),
			})
		}
	}

	if inFence {
		return domain.Phase{}, fmt.Errorf("unterminated fenced block")
	}

	return phase, nil
}

func parseCheckPolicy(value string) (protocol.CheckPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "skip", "skip-phase":
		return protocol.CheckSkipPhase, nil
	case "fail", "fail-run":
		return protocol.CheckFailRun, nil
	default:
		return "", fmt.Errorf("unknown on-check-failure policy %q", value)
	}
}

// matchMeta matches recognised metadata lines and normalises the key.
func matchMeta(line string) (key, value string, ok bool) {
	m := metaRegex.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	key = strings.ToLower(m[1])
	if strings.HasPrefix(key, "required role") {
		key = protocol.MetaRequiredRoles
	}
	return key, strings.TrimSpace(m[2]), true
}

// parseFrontMatter strips and applies an optional leading YAML block
// delimited by "---" lines. Returns the remaining document body.
func parseFrontMatter(text string, def *domain.Definition) (string, error) {
	rest, ok := strings.CutPrefix(text, "---\n")
	if !ok {
		return text, nil
	}
	raw, body, found := strings.Cut(rest, "\n---")
	if !found {
		return "", fmt.Errorf("unterminated front matter")
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
		return "", fmt.Errorf("front matter: %w", err)
	}
	if fm.Name != "" {
		def.Name = fm.Name
	}
	if fm.Description != "" {
		def.Description = fm.Description
	}

	body = strings.TrimPrefix(body, "\n")
	return body, nil
}
