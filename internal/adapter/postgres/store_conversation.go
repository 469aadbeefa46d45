package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/finchdesk/finch/internal/domain"
	"github.com/finchdesk/finch/internal/domain/conversation"
)

// SaveConversation upserts the snapshot for a conversation id.
// Last write wins; the orchestrator does not lock conversations.
func (s *Store) SaveConversation(ctx context.Context, snap *conversation.Snapshot) error {
	snap.UpdatedAt = time.Now().UTC()

	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversation_state (conversation_id, state, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (conversation_id)
		 DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		snap.ConversationID, state, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", snap.ConversationID, err)
	}
	return nil
}

// LoadConversation returns the latest snapshot for a conversation id, or
// domain.ErrNotFound.
func (s *Store) LoadConversation(ctx context.Context, conversationID string) (*conversation.Snapshot, error) {
	var state []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM conversation_state WHERE conversation_id = $1`,
		conversationID,
	).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("load conversation %s: %w", conversationID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}

	var snap conversation.Snapshot
	if err := json.Unmarshal(state, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal conversation %s: %w", conversationID, err)
	}
	return &snap, nil
}

// DeleteConversation erases the snapshot for a conversation id.
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM conversation_state WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return fmt.Errorf("delete conversation %s: %w", conversationID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	return nil
}
