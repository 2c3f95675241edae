package core

import (
	"context"
	"fmt"
)

// SearchHit is one full-text match across the shadow tables.
type SearchHit struct {
	ID    string  // matched record id
	Table string  // owning entity table
	Title string  // record title
	Score float64 // bm25 rank, lower is better
}

// SearchText runs an FTS5 match over every full-text shadow table and
// returns hits ordered best-first. The shadows are kept in step with
// their base tables by triggers, so results always reflect the last
// completed write.
func (s *Store) SearchText(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if query == "" {
		return nil, wrapError("search", fmt.Errorf("%w: empty search query", ErrQuery))
	}
	if limit <= 0 {
		limit = 10
	}

	stmt := `
	SELECT id, tbl, title, score FROM (
		SELECT s.id AS id, 'source' AS tbl, s.title AS title, bm25(source_fts) AS score
		FROM source_fts
		JOIN source s ON source_fts.rowid = s.rowid
		WHERE source_fts MATCH :query
		UNION ALL
		SELECT n.id, 'note', n.title, bm25(note_fts)
		FROM note_fts
		JOIN note n ON note_fts.rowid = n.rowid
		WHERE note_fts MATCH :query
	)
	ORDER BY score
	LIMIT :limit
	`

	rows, err := s.Query(ctx, stmt, map[string]any{"query": query, "limit": limit})
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(rows))
	for _, row := range rows {
		hit := SearchHit{}
		if id, ok := row["id"].(string); ok {
			hit.ID = id
		}
		if tbl, ok := row["tbl"].(string); ok {
			hit.Table = tbl
		}
		if title, ok := row["title"].(string); ok {
			hit.Title = title
		}
		switch score := row["score"].(type) {
		case float64:
			hit.Score = score
		case int64:
			hit.Score = float64(score)
		}
		hits = append(hits, hit)
	}

	return hits, nil
}
