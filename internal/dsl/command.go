// Package dsl implements the small fixed command language embedded in
// protocol phases: SET, CHECK, CALL, and LOG. Command blocks are tokenized
// and validated at parse time so a defective protocol is rejected before
// any run starts; the interpreter in this package then executes validated
// commands against a run context.
package dsl

import (
	"fmt"
	"strings"

	"github.com/vdeworks/agentsuite/internal/domain"
	"github.com/vdeworks/agentsuite/internal/protocol"
)

// SyntaxError describes an invalid line in a DSL block.
type SyntaxError struct {
	Line int // 1-based line number within the block
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("dsl: line %d: %s", e.Line, e.Msg)
}

// ParseBlock tokenizes one fenced DSL block into commands. Blank lines and
// lines starting with '#' are ignored. An unknown verb, a wrong argument
// count, or a malformed CHECK expression fails the whole block.
//
// Argument handling per verb:
//
//	SET key value     two fields; the value may be double-quoted
//	CHECK <expr>      rest of line kept verbatim as a single argument
//	CALL name args... fields; arguments may be double-quoted
//	LOG <message>     rest of line kept verbatim as a single argument
func ParseBlock(block string) ([]domain.Command, error) {
	var commands []domain.Command

	for i, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		cmd, err := parseLine(trimmed)
		if err != nil {
			return nil, &SyntaxError{Line: i + 1, Msg: err.Error()}
		}
		commands = append(commands, cmd)
	}

	return commands, nil
}

func parseLine(line string) (domain.Command, error) {
	head, rest, _ := strings.Cut(line, " ")
	verb := protocol.Verb(head)
	if !verb.IsValid() {
		return domain.Command{}, fmt.Errorf("unknown verb %q", head)
	}
	rest = strings.TrimSpace(rest)

	var args []string
	switch verb {
	case protocol.VerbSet:
		fields, err := splitFields(rest)
		if err != nil {
			return domain.Command{}, fmt.Errorf("SET: %w", err)
		}
		if len(fields) != 2 {
			return domain.Command{}, fmt.Errorf("SET requires exactly 2 arguments (key value), got %d", len(fields))
		}
		args = fields

	case protocol.VerbCheck:
		if rest == "" {
			return domain.Command{}, fmt.Errorf("CHECK requires an expression")
		}
		if err := ValidateExpr(rest); err != nil {
			return domain.Command{}, fmt.Errorf("CHECK expression: %w", err)
		}
		args = []string{rest}

	case protocol.VerbCall:
		fields, err := splitFields(rest)
		if err != nil {
			return domain.Command{}, fmt.Errorf("CALL: %w", err)
		}
		if len(fields) == 0 {
			return domain.Command{}, fmt.Errorf("CALL requires a capability name")
		}
		args = fields

	case protocol.VerbLog:
		if rest == "" {
			return domain.Command{}, fmt.Errorf("LOG requires a message")
		}
		args = []string{unquote(rest)}
	}

	return domain.Command{Verb: verb, Args: args}, nil
}

// splitFields splits whitespace-separated fields, keeping double-quoted
// spans together and stripping their quotes.
func splitFields(s string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuote := false
	hasField := false

	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			hasField = true
		case !inQuote && (r == ' ' || r == '\t'):
			if hasField {
				fields = append(fields, cur.String())
				cur.Reset()
				hasField = false
			}
		default:
			cur.WriteRune(r)
			hasField = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote")
	}
	if hasField {
		fields = append(fields, cur.String())
	}
	return fields, nil
}

// unquote strips a single pair of surrounding double quotes, if present.
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
