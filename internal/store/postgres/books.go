package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"promptloom/internal/store"
	"promptloom/internal/worldinfo"
)

func (c *Client) UpsertWorldBook(ctx context.Context, name string, enabled bool, settings worldinfo.Settings) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling book settings: %w", err)
	}

	query := `
INSERT INTO world_books (name, enabled, settings, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (name) DO UPDATE SET
    enabled = EXCLUDED.enabled,
    settings = EXCLUDED.settings,
    updated_at = now()
`
	if _, err := c.pool.Exec(ctx, query, name, enabled, settingsJSON); err != nil {
		return fmt.Errorf("upserting world book: %w", err)
	}
	return nil
}

func (c *Client) GetWorldBook(ctx context.Context, name string) (*worldinfo.Book, error) {
	book := worldinfo.Book{Name: name, Entries: []worldinfo.Entry{}}

	var settingsJSON []byte
	err := c.pool.QueryRow(ctx,
		"SELECT enabled, settings FROM world_books WHERE name = $1", name,
	).Scan(&book.Enabled, &settingsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getting world book %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting world book: %w", err)
	}
	if err := json.Unmarshal(settingsJSON, &book.Settings); err != nil {
		return nil, fmt.Errorf("unmarshaling book settings: %w", err)
	}

	query := `
SELECT entry_id, title, content, strategy, primary_keys, secondary_keys, position, enabled, ord,
    case_sensitive, match_whole_words, exclude_recursion, prevent_recursion,
    COALESCE(source_file, ''), COALESCE(source_hash, '')
FROM entries
WHERE book = $1
ORDER BY ord, id
`
	rows, err := c.pool.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e worldinfo.Entry
		var strategy, position string
		err := rows.Scan(
			&e.ID,
			&e.Title,
			&e.Content,
			&strategy,
			&e.PrimaryKeys,
			&e.SecondaryKeys,
			&position,
			&e.Enabled,
			&e.Order,
			&e.CaseSensitive,
			&e.MatchWholeWords,
			&e.ExcludeRecursion,
			&e.PreventRecursion,
			&e.SourceFile,
			&e.SourceHash,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Strategy = worldinfo.Strategy(strategy)
		e.Position = worldinfo.Position(position)
		if e.PrimaryKeys == nil {
			e.PrimaryKeys = []string{}
		}
		if e.SecondaryKeys == nil {
			e.SecondaryKeys = []string{}
		}
		book.Entries = append(book.Entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entry rows: %w", err)
	}

	return &book, nil
}

func (c *Client) ListWorldBooks(ctx context.Context) ([]store.BookSummary, error) {
	query := `
SELECT b.name, b.enabled, COUNT(e.id)
FROM world_books b
LEFT JOIN entries e ON e.book = b.name
GROUP BY b.name, b.enabled
ORDER BY b.name
`
	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing world books: %w", err)
	}
	defer rows.Close()

	summaries := []store.BookSummary{}
	for rows.Next() {
		var s store.BookSummary
		var count int64
		if err := rows.Scan(&s.Name, &s.Enabled, &count); err != nil {
			return nil, fmt.Errorf("scanning world book: %w", err)
		}
		s.Entries = int(count)
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating world books: %w", err)
	}

	return summaries, nil
}
