package postgres

import (
	"context"
	"fmt"
)

func (c *Client) RemoveStaleEntries(ctx context.Context, book string, currentSourceFiles []string) (int64, error) {
	if len(currentSourceFiles) == 0 {
		return 0, nil
	}

	query := `
DELETE FROM entries
WHERE book = $1
  AND source_file IS NOT NULL
  AND source_file <> ''
  AND NOT (source_file = ANY($2))
`

	tag, err := c.pool.Exec(ctx, query, book, currentSourceFiles)
	if err != nil {
		return 0, fmt.Errorf("removing stale entries: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (c *Client) GetEntryHashes(ctx context.Context, book string) (map[string]string, error) {
	query := `
SELECT source_file, COALESCE(source_hash, '') FROM entries
WHERE book = $1
  AND source_file IS NOT NULL
  AND source_file <> ''
`

	rows, err := c.pool.Query(ctx, query, book)
	if err != nil {
		return nil, fmt.Errorf("query entry hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var sourceFile, sourceHash string
		if err := rows.Scan(&sourceFile, &sourceHash); err != nil {
			return nil, fmt.Errorf("scanning entry hash: %w", err)
		}
		hashes[sourceFile] = sourceHash
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entry hashes: %w", err)
	}

	return hashes, nil
}
