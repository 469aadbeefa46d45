// Package knowledge provides a caching decorator for the knowledge searcher.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/finchdesk/finch/internal/domain/orchestration"
	"github.com/finchdesk/finch/internal/port/cache"
	"github.com/finchdesk/finch/internal/port/knowledge"
)

// CachedSearcher fronts a knowledge.Searcher with an in-process cache.
// Knowledge articles change rarely; a short TTL keeps repeat queries cheap.
type CachedSearcher struct {
	inner knowledge.Searcher
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedSearcher wraps inner with the given cache and TTL.
func NewCachedSearcher(inner knowledge.Searcher, c cache.Cache, ttl time.Duration) *CachedSearcher {
	return &CachedSearcher{inner: inner, cache: c, ttl: ttl}
}

// Search implements knowledge.Searcher. Cache failures fall through to the
// underlying searcher.
func (s *CachedSearcher) Search(ctx context.Context, query, topic string, topK int) ([]orchestration.Snippet, error) {
	key := fmt.Sprintf("kb:%s:%d:%s", topic, topK, query)

	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var snippets []orchestration.Snippet
		if err := json.Unmarshal(data, &snippets); err == nil {
			return snippets, nil
		}
	}

	snippets, err := s.inner.Search(ctx, query, topic, topK)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(snippets); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			slog.Debug("knowledge cache set failed", "key", key, "error", err)
		}
	}

	return snippets, nil
}
