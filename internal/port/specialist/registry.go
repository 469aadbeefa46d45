package specialist

import (
	"fmt"
	"sync"

	"github.com/finchdesk/finch/internal/domain/topic"
	"github.com/finchdesk/finch/internal/port/knowledge"
	"github.com/finchdesk/finch/internal/port/llm"
)

// Deps carries the shared capabilities specialist factories may draw on.
type Deps struct {
	Generator llm.Generator
	Searcher  knowledge.Searcher
}

// Factory is a constructor function that builds a Specialist for one topic.
type Factory func(cfg topic.Config, deps Deps) (Specialist, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a specialist factory available by name.
// It is typically called from an init() function in the adapter package.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("specialist: duplicate registration for %q", name))
	}
	factories[name] = factory
}

// New creates a Specialist for a topic using the factory named in its config.
func New(cfg topic.Config, deps Deps) (Specialist, error) {
	mu.RLock()
	factory, ok := factories[cfg.Specialist]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("specialist: unknown factory %q for topic %q", cfg.Specialist, cfg.Topic)
	}
	return factory(cfg, deps)
}

// Available returns the names of all registered factories.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
