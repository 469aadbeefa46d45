package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/finchdesk/finch/internal/domain/orchestration"
)

// SaveEscalation appends an escalation record to the pickup feed.
func (s *Store) SaveEscalation(ctx context.Context, rec *orchestration.EscalationRecord) error {
	record, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal escalation: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO escalations (conversation_id, priority, reason, record, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ConversationID, rec.Priority, rec.EscalationReason, record, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save escalation %s: %w", rec.ConversationID, err)
	}
	return nil
}

// ListEscalations returns the most recent escalation records, newest first.
func (s *Store) ListEscalations(ctx context.Context, limit int) ([]orchestration.EscalationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT record FROM escalations ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	defer rows.Close()

	var result []orchestration.EscalationRecord
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan escalation: %w", err)
		}
		var rec orchestration.EscalationRecord
		if err := json.Unmarshal(record, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal escalation: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
