// Package llm defines the text-generation port (interface).
package llm

import "context"

// Generator is the port interface for a deterministic text-generation
// capability. Implementations run at temperature 0.
type Generator interface {
	// Complete sends a system instruction and user content and returns the
	// generated text.
	Complete(ctx context.Context, system, user string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, system, user string) (string, error)

// Complete implements Generator.
func (f GeneratorFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}
