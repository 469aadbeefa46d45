package service

import (
	"context"
	"fmt"

	"github.com/finchdesk/finch/internal/domain/conversation"
	"github.com/finchdesk/finch/internal/port/database"
)

// ConversationService answers conversation status queries and handles
// deletion requests against the persisted snapshots.
type ConversationService struct {
	store database.Store
}

// NewConversationService creates a ConversationService.
func NewConversationService(store database.Store) *ConversationService {
	return &ConversationService{store: store}
}

// Status returns the latest snapshot for a conversation.
// Unknown ids surface domain.ErrNotFound.
func (s *ConversationService) Status(ctx context.Context, conversationID string) (*conversation.Snapshot, error) {
	snap, err := s.store.LoadConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}
	return snap, nil
}

// Delete removes all persisted state for a conversation, typically for a
// data-removal request. Unknown ids surface domain.ErrNotFound.
func (s *ConversationService) Delete(ctx context.Context, conversationID string) error {
	if err := s.store.DeleteConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("delete conversation %s: %w", conversationID, err)
	}
	return nil
}
