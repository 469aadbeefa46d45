// Package topic provides the static registry of support topics and their
// specialist bindings.
package topic

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config describes one routable topic.
type Config struct {
	Topic       string   `yaml:"topic"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
	Enabled     bool     `yaml:"enabled"`
	Specialist  string   `yaml:"specialist"` // specialist factory name, default "llm"
	TopK        int      `yaml:"top_k"`      // knowledge snippets per query, default 3
}

// Registry holds the loaded topic catalog. Read-only after load.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]Config
}

type registryFile struct {
	Topics []Config `yaml:"topics"`
}

// Load reads the topic registry from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topic registry %s: %w", path, err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse topic registry %s: %w", path, err)
	}

	r := &Registry{entries: make(map[string]Config, len(file.Topics))}
	for _, cfg := range file.Topics {
		if cfg.Topic == "" {
			return nil, fmt.Errorf("topic registry %s: entry missing topic name", path)
		}
		if cfg.Specialist == "" {
			cfg.Specialist = "llm"
		}
		if cfg.TopK <= 0 {
			cfg.TopK = 3
		}
		r.order = append(r.order, cfg.Topic)
		r.entries[cfg.Topic] = cfg
	}
	return r, nil
}

// NewFromConfigs builds a registry from in-memory configs, mainly for tests.
func NewFromConfigs(configs []Config) *Registry {
	r := &Registry{entries: make(map[string]Config, len(configs))}
	for _, cfg := range configs {
		if cfg.Specialist == "" {
			cfg.Specialist = "llm"
		}
		if cfg.TopK <= 0 {
			cfg.TopK = 3
		}
		r.order = append(r.order, cfg.Topic)
		r.entries[cfg.Topic] = cfg
	}
	return r
}

// Get returns the config for a topic.
func (r *Registry) Get(topic string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.entries[topic]
	return cfg, ok
}

// Enabled returns all enabled topics in registry order.
func (r *Registry) Enabled() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Config
	for _, name := range r.order {
		if cfg := r.entries[name]; cfg.Enabled {
			result = append(result, cfg)
		}
	}
	return result
}

// SpecialistConfigs filters topics to those present and enabled, preserving
// input order. Unknown and disabled topics are dropped silently.
func (r *Registry) SpecialistConfigs(topics []string) []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Config
	for _, name := range topics {
		cfg, ok := r.entries[name]
		if !ok || !cfg.Enabled {
			continue
		}
		result = append(result, cfg)
	}
	return result
}

// Describe renders the enabled topics as a bulleted list for the
// classifier's system instruction.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, cfg := range r.Enabled() {
		fmt.Fprintf(&b, "- %s: %s", cfg.Topic, cfg.Description)
		if len(cfg.Keywords) > 0 {
			fmt.Fprintf(&b, " (keywords: %s)", strings.Join(cfg.Keywords, ", "))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
