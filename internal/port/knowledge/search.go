// Package knowledge defines the knowledge-retrieval port (interface).
package knowledge

import (
	"context"

	"github.com/finchdesk/finch/internal/domain/orchestration"
)

// Searcher is the port interface for ranked knowledge-base retrieval.
type Searcher interface {
	// Search returns up to topK snippets ranked by relevance. An empty topic
	// searches all topics.
	Search(ctx context.Context, query, topic string, topK int) ([]orchestration.Snippet, error)
}
