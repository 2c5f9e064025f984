package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"promptloom/internal/worldinfo"
)

func (c *Client) UpsertEntry(ctx context.Context, book string, e worldinfo.Entry) error {
	primary, err := marshalKeys(e.PrimaryKeys)
	if err != nil {
		return fmt.Errorf("marshaling primary keys: %w", err)
	}
	secondary, err := marshalKeys(e.SecondaryKeys)
	if err != nil {
		return fmt.Errorf("marshaling secondary keys: %w", err)
	}

	query := `
	INSERT INTO entries (book, entry_id, title, content, strategy, primary_keys, secondary_keys, position,
		enabled, ord, case_sensitive, match_whole_words, exclude_recursion, prevent_recursion,
		source_file, source_hash, last_ingested)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
	ON CONFLICT (book, entry_id) DO UPDATE SET
		title = excluded.title,
		content = excluded.content,
		strategy = excluded.strategy,
		primary_keys = excluded.primary_keys,
		secondary_keys = excluded.secondary_keys,
		position = excluded.position,
		enabled = excluded.enabled,
		ord = excluded.ord,
		case_sensitive = excluded.case_sensitive,
		match_whole_words = excluded.match_whole_words,
		exclude_recursion = excluded.exclude_recursion,
		prevent_recursion = excluded.prevent_recursion,
		source_file = excluded.source_file,
		source_hash = excluded.source_hash,
		last_ingested = datetime('now')
	`

	_, err = c.db.ExecContext(ctx, query,
		book,
		e.ID,
		e.Title,
		e.Content,
		string(e.Strategy),
		primary,
		secondary,
		string(e.Position),
		boolToInt(e.Enabled),
		e.Order,
		optionalBool(e.CaseSensitive),
		optionalBool(e.MatchWholeWords),
		boolToInt(e.ExcludeRecursion),
		boolToInt(e.PreventRecursion),
		e.SourceFile,
		e.SourceHash,
	)
	if err != nil {
		return fmt.Errorf("upserting entry: %w", err)
	}
	return nil
}

func marshalKeys(keys []string) (string, error) {
	if keys == nil {
		keys = []string{}
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
