package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

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
	VALUES (?, ?, ?, datetime('now'))
	ON CONFLICT (name) DO UPDATE SET
		enabled = excluded.enabled,
		settings = excluded.settings,
		updated_at = datetime('now')
	`
	if _, err := c.db.ExecContext(ctx, query, name, boolToInt(enabled), string(settingsJSON)); err != nil {
		return fmt.Errorf("upserting world book: %w", err)
	}
	return nil
}

func (c *Client) GetWorldBook(ctx context.Context, name string) (*worldinfo.Book, error) {
	book := worldinfo.Book{Name: name, Entries: []worldinfo.Entry{}}

	var enabled int
	var settingsJSON string
	err := c.db.QueryRowContext(ctx,
		"SELECT enabled, settings FROM world_books WHERE name = ?", name,
	).Scan(&enabled, &settingsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting world book %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting world book: %w", err)
	}
	book.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(settingsJSON), &book.Settings); err != nil {
		return nil, fmt.Errorf("unmarshaling book settings: %w", err)
	}

	query := `
	SELECT entry_id, title, content, strategy, primary_keys, secondary_keys, position, enabled, ord,
		   case_sensitive, match_whole_words, exclude_recursion, prevent_recursion,
		   COALESCE(source_file, ''), COALESCE(source_hash, '')
	FROM entries
	WHERE book = ?
	ORDER BY ord, id
	`
	rows, err := c.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e worldinfo.Entry
		var primary, secondary string
		var enabled, exclude, prevent int
		var caseSensitive, wholeWords sql.NullInt64
		err := rows.Scan(
			&e.ID,
			&e.Title,
			&e.Content,
			&e.Strategy,
			&primary,
			&secondary,
			&e.Position,
			&enabled,
			&e.Order,
			&caseSensitive,
			&wholeWords,
			&exclude,
			&prevent,
			&e.SourceFile,
			&e.SourceHash,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if err := json.Unmarshal([]byte(primary), &e.PrimaryKeys); err != nil {
			return nil, fmt.Errorf("unmarshaling primary keys: %w", err)
		}
		if err := json.Unmarshal([]byte(secondary), &e.SecondaryKeys); err != nil {
			return nil, fmt.Errorf("unmarshaling secondary keys: %w", err)
		}
		e.Enabled = enabled != 0
		e.ExcludeRecursion = exclude != 0
		e.PreventRecursion = prevent != 0
		e.CaseSensitive = nullBool(caseSensitive)
		e.MatchWholeWords = nullBool(wholeWords)
		book.Entries = append(book.Entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entry rows: %w", err)
	}

	return &book, nil
}

func (c *Client) ListWorldBooks(ctx context.Context) ([]store.BookSummary, error) {
	query := `
	SELECT b.name, b.enabled, (SELECT COUNT(*) FROM entries e WHERE e.book = b.name)
	FROM world_books b
	ORDER BY b.name
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing world books: %w", err)
	}
	defer rows.Close()

	summaries := []store.BookSummary{}
	for rows.Next() {
		var s store.BookSummary
		var enabled int
		if err := rows.Scan(&s.Name, &enabled, &s.Entries); err != nil {
			return nil, fmt.Errorf("scanning world book: %w", err)
		}
		s.Enabled = enabled != 0
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating world books: %w", err)
	}

	return summaries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func optionalBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolToInt(*b)
}

func nullBool(v sql.NullInt64) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Int64 != 0
	return &b
}
