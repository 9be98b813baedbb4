// Package source locates and loads protocol definition files. Protocols
// live as Protocol_*.md files in the workspace root and in a protocols/
// subdirectory; the filename carries the protocol name.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vdeworks/agentsuite/internal/domain"
	"github.com/vdeworks/agentsuite/internal/parser"
	"github.com/vdeworks/agentsuite/internal/protocol"
)

// Store finds protocol definition files under a workspace root.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Entry summarises one discovered protocol.
type Entry struct {
	Name        string
	Path        string
	Description string
	PhaseCount  int
}

// NameFromFile derives the protocol name from a definition filename:
// "Protocol_Code_Review.md" becomes "Code Review".
func NameFromFile(path string) string {
	base := filepath.Base(path)
	base = strings.TrimPrefix(base, protocol.FilePrefix)
	base = strings.TrimSuffix(base, protocol.FileSuffix)
	return strings.ReplaceAll(base, "_", " ")
}

// FileFromName is the inverse of NameFromFile.
func FileFromName(name string) string {
	return protocol.FilePrefix + strings.ReplaceAll(name, " ", "_") + protocol.FileSuffix
}

// scan returns the definition files under the root, sorted by path. Both
// the root itself and a protocols/ subdirectory are searched.
func (s *Store) scan() ([]string, error) {
	var files []string
	for _, dir := range []string{s.root, filepath.Join(s.root, "protocols")} {
		matches, err := filepath.Glob(filepath.Join(dir, protocol.FilePrefix+"*"+protocol.FileSuffix))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// find resolves a protocol name to its file path. Matching is
// case-insensitive; underscores and spaces in the name are equivalent.
func (s *Store) find(name string) (string, error) {
	files, err := s.scan()
	if err != nil {
		return "", err
	}
	want := normalizeName(name)
	for _, f := range files {
		if normalizeName(NameFromFile(f)) == want {
			return f, nil
		}
	}
	return "", fmt.Errorf("protocol %q not found under %s", name, s.root)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", " "))
}

// LoadDefinitionText returns the raw text of the named protocol. It
// satisfies the executor's Loader interface.
func (s *Store) LoadDefinitionText(name string) (string, error) {
	path, err := s.find(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read protocol %q: %w", name, err)
	}
	return string(data), nil
}

// Load finds and parses the named protocol.
func (s *Store) Load(name string) (*domain.Definition, error) {
	text, err := s.LoadDefinitionText(name)
	if err != nil {
		return nil, err
	}
	return parser.Parse(name, text)
}

// List discovers every protocol under the root. Files that fail to parse
// are included with an empty summary rather than breaking the listing.
func (s *Store) List() ([]Entry, error) {
	files, err := s.scan()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		entry := Entry{Name: NameFromFile(f), Path: f}
		if data, err := os.ReadFile(f); err == nil {
			if def, err := parser.Parse(entry.Name, string(data)); err == nil {
				entry.Description = def.Description
				entry.PhaseCount = def.PhaseCount()
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Write stores definition text for the named protocol in the root
// directory, creating or overwriting its file.
func (s *Store) Write(name, text string) (string, error) {
	path := filepath.Join(s.root, FileFromName(name))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write protocol %q: %w", name, err)
	}
	return path, nil
}
