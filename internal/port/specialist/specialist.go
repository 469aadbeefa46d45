// Package specialist defines the specialist responder port (interface) and
// the name-based factory registry used to bind topics to responders.
package specialist

import (
	"context"

	"github.com/finchdesk/finch/internal/domain/orchestration"
)

// Request carries the inputs a specialist needs for one invocation.
type Request struct {
	Query   string
	UserID  string
	Context map[string]any // channel, customer_id, order_id, customer_email, ...
}

// Specialist is the port interface for a topic-specific responder capability.
type Specialist interface {
	// Name returns the topic this specialist serves.
	Name() string

	// Invoke answers a query, returning the response text, a self-reported
	// confidence, supporting evidence, and a log of tool calls made.
	Invoke(ctx context.Context, req Request) (*orchestration.SpecialistResult, error)
}
