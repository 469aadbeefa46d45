// Package messagequeue defines the message queue port (interface) and the
// subjects and payloads published on it.
package messagequeue

import (
	"context"
	"time"
)

// Subjects published by the orchestrator.
const (
	// SubjectEscalationCreated carries EscalationCreatedPayload whenever a
	// conversation is handed off to a human.
	SubjectEscalationCreated = "escalations.created"
)

// Handler processes one message from a subscription.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for the message queue.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler Handler) (func(), error)
	Close() error
}

// EscalationCreatedPayload notifies downstream human-agent tooling of a new
// escalation. The full record lives in the database; this is the pointer.
type EscalationCreatedPayload struct {
	ConversationID string    `json:"conversation_id"`
	Priority       string    `json:"priority"`
	Tags           []string  `json:"tags"`
	Reason         string    `json:"reason"`
	Timestamp      time.Time `json:"timestamp"`
}
