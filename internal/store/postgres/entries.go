package postgres

import (
	"context"
	"fmt"

	"promptloom/internal/worldinfo"
)

func (c *Client) UpsertEntry(ctx context.Context, book string, e worldinfo.Entry) error {
	primary := e.PrimaryKeys
	if primary == nil {
		primary = []string{}
	}
	secondary := e.SecondaryKeys
	if secondary == nil {
		secondary = []string{}
	}

	query := `
INSERT INTO entries (book, entry_id, title, content, strategy, primary_keys, secondary_keys, position,
    enabled, ord, case_sensitive, match_whole_words, exclude_recursion, prevent_recursion,
    source_file, source_hash, last_ingested, search_vector)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now(),
    setweight(to_tsvector('simple', coalesce($3, '')), 'A') ||
    setweight(to_tsvector('english', array_to_string($6::text[], ' ')), 'B') ||
    setweight(to_tsvector('english', coalesce($4, '')), 'C')
)
ON CONFLICT (book, entry_id) DO UPDATE SET
    title = EXCLUDED.title,
    content = EXCLUDED.content,
    strategy = EXCLUDED.strategy,
    primary_keys = EXCLUDED.primary_keys,
    secondary_keys = EXCLUDED.secondary_keys,
    position = EXCLUDED.position,
    enabled = EXCLUDED.enabled,
    ord = EXCLUDED.ord,
    case_sensitive = EXCLUDED.case_sensitive,
    match_whole_words = EXCLUDED.match_whole_words,
    exclude_recursion = EXCLUDED.exclude_recursion,
    prevent_recursion = EXCLUDED.prevent_recursion,
    source_file = EXCLUDED.source_file,
    source_hash = EXCLUDED.source_hash,
    last_ingested = now(),
    search_vector = EXCLUDED.search_vector
`

	_, err := c.pool.Exec(ctx, query,
		book,
		e.ID,
		e.Title,
		e.Content,
		string(e.Strategy),
		primary,
		secondary,
		string(e.Position),
		e.Enabled,
		e.Order,
		e.CaseSensitive,
		e.MatchWholeWords,
		e.ExcludeRecursion,
		e.PreventRecursion,
		e.SourceFile,
		e.SourceHash,
	)
	if err != nil {
		return fmt.Errorf("upserting entry: %w", err)
	}
	return nil
}
