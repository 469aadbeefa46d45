package knowledge_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/finchdesk/finch/internal/adapter/knowledge"
	"github.com/finchdesk/finch/internal/domain/orchestration"
)

type fakeSearcher struct {
	calls    int
	snippets []orchestration.Snippet
	err      error
}

func (f *fakeSearcher) Search(_ context.Context, _, _ string, _ int) ([]orchestration.Snippet, error) {
	f.calls++
	return f.snippets, f.err
}

type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func TestSearchCachesResults(t *testing.T) {
	inner := &fakeSearcher{snippets: []orchestration.Snippet{{ID: "kb-1", Title: "Refunds", Score: 0.8}}}
	cached := knowledge.NewCachedSearcher(inner, newMemCache(), time.Minute)
	ctx := context.Background()

	first, err := cached.Search(ctx, "refund", "billing", 3)
	if err != nil {
		t.Fatalf("first Search: %v", err)
	}
	second, err := cached.Search(ctx, "refund", "billing", 3)
	if err != nil {
		t.Fatalf("second Search: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].ID != "kb-1" {
		t.Errorf("results = %v / %v", first, second)
	}
}

func TestSearchKeyIncludesTopicAndTopK(t *testing.T) {
	inner := &fakeSearcher{}
	cached := knowledge.NewCachedSearcher(inner, newMemCache(), time.Minute)
	ctx := context.Background()

	_, _ = cached.Search(ctx, "refund", "billing", 3)
	_, _ = cached.Search(ctx, "refund", "returns", 3)
	_, _ = cached.Search(ctx, "refund", "billing", 5)

	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3 distinct keys", inner.calls)
	}
}

func TestSearchCacheFailureFallsThrough(t *testing.T) {
	inner := &fakeSearcher{snippets: []orchestration.Snippet{{ID: "kb-1"}}}
	c := newMemCache()
	c.getErr = errors.New("cache down")
	cached := knowledge.NewCachedSearcher(inner, c, time.Minute)

	got, err := cached.Search(context.Background(), "q", "t", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("results = %v", got)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestSearchInnerErrorPropagates(t *testing.T) {
	inner := &fakeSearcher{err: errors.New("db down")}
	cached := knowledge.NewCachedSearcher(inner, newMemCache(), time.Minute)

	if _, err := cached.Search(context.Background(), "q", "t", 3); err == nil {
		t.Fatal("expected inner error to propagate")
	}
}
