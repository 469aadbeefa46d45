// Package override implements the curated-answer override layer: a small
// catalog of high-confidence replies checked before the LLM pipeline.
package override

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const defaultConfidence = 0.95

// Entry is one curated answer in the catalog.
type Entry struct {
	ID         string   `yaml:"id"`
	Topic      string   `yaml:"topic"`
	Enabled    bool     `yaml:"enabled"`
	Confidence float64  `yaml:"confidence"`
	Patterns   []string `yaml:"patterns"`
	Answer     string   `yaml:"answer"`
}

// Match is the result of a successful catalog lookup.
type Match struct {
	ID         string
	Topic      string
	Answer     string
	Confidence float64
}

// Matcher tests inbound messages against the override catalog.
// The catalog is loaded once and replaced wholesale on Reload; request
// handling never mutates it.
type Matcher struct {
	path string

	mu      sync.RWMutex
	entries []Entry
}

// NewMatcher loads the catalog from path. A missing or unreadable catalog
// degrades to an empty one so the rest of the pipeline stays usable.
func NewMatcher(path string) *Matcher {
	m := &Matcher{path: path}
	entries, err := load(path)
	if err != nil {
		slog.Warn("override catalog unavailable, starting empty", "path", path, "error", err)
		entries = nil
	}
	m.entries = entries
	return m
}

// Match tests message against all enabled entries in catalog order and
// returns the first hit, or nil. Pure over the loaded catalog: identical
// inputs yield identical results until Reload.
func (m *Matcher) Match(message string) *Match {
	normalized := normalize(message)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, entry := range m.entries {
		if !entry.Enabled {
			continue
		}
		for _, pattern := range entry.Patterns {
			if !patternMatches(strings.ToLower(pattern), normalized) {
				continue
			}
			confidence := entry.Confidence
			if confidence == 0 {
				confidence = defaultConfidence
			}
			topic := entry.Topic
			if topic == "" {
				topic = "general"
			}
			return &Match{
				ID:         entry.ID,
				Topic:      topic,
				Answer:     strings.TrimSpace(entry.Answer),
				Confidence: confidence,
			}
		}
	}
	return nil
}

// Reload re-reads the catalog file. The new catalog entirely replaces the
// old one; there is no partial merge.
func (m *Matcher) Reload() error {
	entries, err := load(m.path)
	if err != nil {
		return fmt.Errorf("reload override catalog: %w", err)
	}
	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	slog.Info("override catalog reloaded", "path", m.path, "entries", len(entries))
	return nil
}

// Len returns the number of loaded entries, disabled ones included.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

type catalogFile struct {
	Overrides []rawEntry `yaml:"overrides"`
}

// rawEntry mirrors Entry but keeps Enabled as a pointer so an absent key
// defaults to enabled.
type rawEntry struct {
	ID         string   `yaml:"id"`
	Topic      string   `yaml:"topic"`
	Enabled    *bool    `yaml:"enabled"`
	Confidence float64  `yaml:"confidence"`
	Patterns   []string `yaml:"patterns"`
	Answer     string   `yaml:"answer"`
}

func load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(file.Overrides))
	for _, raw := range file.Overrides {
		enabled := true
		if raw.Enabled != nil {
			enabled = *raw.Enabled
		}
		entries = append(entries, Entry{
			ID:         raw.ID,
			Topic:      raw.Topic,
			Enabled:    enabled,
			Confidence: raw.Confidence,
			Patterns:   raw.Patterns,
			Answer:     raw.Answer,
		})
	}
	return entries, nil
}

// normalize lowercases, trims, and collapses internal whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// patternMatches tests one lowercase pattern against a normalized message.
// Substring match first; for short patterns a word-boundary match is also
// tried as a secondary hook for precision-sensitive terms.
func patternMatches(pattern, message string) bool {
	if strings.Contains(message, pattern) {
		return true
	}

	if len(strings.Fields(pattern)) <= 3 {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(pattern) + `\b`)
		if err == nil && re.MatchString(message) {
			return true
		}
	}

	return false
}
