package postgres

import (
	"context"
	"fmt"

	"github.com/finchdesk/finch/internal/domain/orchestration"
)

// Search returns kb_articles ranked by full-text relevance for a query,
// optionally filtered by topic. Implements the knowledge.Searcher port.
func (s *Store) Search(ctx context.Context, query, topic string, topK int) ([]orchestration.Snippet, error) {
	if topK <= 0 {
		topK = 5
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, content, topic, url,
		        ts_rank(tsv, plainto_tsquery('english', $1)) AS score
		 FROM kb_articles
		 WHERE tsv @@ plainto_tsquery('english', $1)
		   AND ($2 = '' OR topic = $2)
		 ORDER BY score DESC
		 LIMIT $3`,
		query, topic, topK)
	if err != nil {
		return nil, fmt.Errorf("search kb articles: %w", err)
	}
	defer rows.Close()

	var result []orchestration.Snippet
	for rows.Next() {
		var sn orchestration.Snippet
		if err := rows.Scan(&sn.ID, &sn.Title, &sn.Content, &sn.Topic, &sn.URL, &sn.Score); err != nil {
			return nil, fmt.Errorf("scan kb article: %w", err)
		}
		result = append(result, sn)
	}
	return result, rows.Err()
}

// UpsertArticle writes a knowledge-base article, used by seeding tools.
func (s *Store) UpsertArticle(ctx context.Context, sn orchestration.Snippet) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kb_articles (id, title, content, topic, url)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id)
		 DO UPDATE SET title = EXCLUDED.title, content = EXCLUDED.content,
		               topic = EXCLUDED.topic, url = EXCLUDED.url`,
		sn.ID, sn.Title, sn.Content, sn.Topic, sn.URL)
	if err != nil {
		return fmt.Errorf("upsert kb article %s: %w", sn.ID, err)
	}
	return nil
}
