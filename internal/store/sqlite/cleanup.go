package sqlite

import (
	"context"
	"fmt"
	"strings"
)

// RemoveStaleEntries deletes file-backed entries of book whose source file is no longer
// present. An empty file list removes nothing, so a layer whose paths went missing
// keeps its entries.
func (c *Client) RemoveStaleEntries(ctx context.Context, book string, currentSourceFiles []string) (int64, error) {
	if len(currentSourceFiles) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(currentSourceFiles))
	args := make([]any, len(currentSourceFiles)+1)
	args[0] = book
	for i, f := range currentSourceFiles {
		placeholders[i] = "?"
		args[i+1] = f
	}

	query := fmt.Sprintf(`
	DELETE FROM entries
	WHERE book = ?
	  AND source_file IS NOT NULL
	  AND source_file <> ''
	  AND source_file NOT IN (%s)
	`, strings.Join(placeholders, ", "))

	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("removing stale entries: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	return affected, nil
}

func (c *Client) GetEntryHashes(ctx context.Context, book string) (map[string]string, error) {
	query := `
	SELECT source_file, source_hash FROM entries
	WHERE book = ?
	  AND source_file IS NOT NULL
	  AND source_file <> ''
	`

	rows, err := c.db.QueryContext(ctx, query, book)
	if err != nil {
		return nil, fmt.Errorf("query entry hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var sourceFile string
		var sourceHash *string
		if err := rows.Scan(&sourceFile, &sourceHash); err != nil {
			return nil, fmt.Errorf("scanning entry hash: %w", err)
		}
		if sourceHash != nil {
			hashes[sourceFile] = *sourceHash
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entry hashes: %w", err)
	}

	return hashes, nil
}
