// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/finchdesk/finch/internal/domain/conversation"
	"github.com/finchdesk/finch/internal/domain/orchestration"
)

// Store is the port interface for database operations.
type Store interface {
	// Conversation state snapshots, keyed by conversation id.
	// LoadConversation returns domain.ErrNotFound for unknown ids.
	SaveConversation(ctx context.Context, snap *conversation.Snapshot) error
	LoadConversation(ctx context.Context, conversationID string) (*conversation.Snapshot, error)
	DeleteConversation(ctx context.Context, conversationID string) error

	// Escalation feed for human-agent pickup.
	SaveEscalation(ctx context.Context, rec *orchestration.EscalationRecord) error
	ListEscalations(ctx context.Context, limit int) ([]orchestration.EscalationRecord, error)
}
