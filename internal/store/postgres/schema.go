package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// All statements go in one simple-protocol call, which PostgreSQL runs as a single
	// implicit transaction.
	ddl := `
CREATE TABLE IF NOT EXISTS world_books (
    name       TEXT PRIMARY KEY,
    enabled    BOOLEAN NOT NULL DEFAULT TRUE,
    settings   JSONB NOT NULL DEFAULT '{}',
    updated_at TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entries (
    id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    book              TEXT NOT NULL REFERENCES world_books(name) ON DELETE CASCADE,
    entry_id          TEXT NOT NULL,
    title             TEXT NOT NULL DEFAULT '',
    content           TEXT NOT NULL DEFAULT '',
    strategy          TEXT NOT NULL,
    primary_keys      TEXT[] NOT NULL DEFAULT '{}',
    secondary_keys    TEXT[] NOT NULL DEFAULT '{}',
    position          TEXT NOT NULL,
    enabled           BOOLEAN NOT NULL DEFAULT TRUE,
    ord               INTEGER NOT NULL DEFAULT 0,
    case_sensitive    BOOLEAN,
    match_whole_words BOOLEAN,
    exclude_recursion BOOLEAN NOT NULL DEFAULT FALSE,
    prevent_recursion BOOLEAN NOT NULL DEFAULT FALSE,
    source_file       TEXT,
    source_hash       TEXT,
    search_vector     TSVECTOR,
    last_ingested     TIMESTAMPTZ DEFAULT now(),
    CONSTRAINT uq_entry_book_id UNIQUE (book, entry_id)
);

CREATE TABLE IF NOT EXISTS presets (
    name       TEXT PRIMARY KEY,
    items      JSONB NOT NULL DEFAULT '[]',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
    seq        BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    id         TEXT NOT NULL UNIQUE,
    chat_id    TEXT NOT NULL,
    role       TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    content    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_search ON entries USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_entries_book_order ON entries (book, ord, id);
CREATE INDEX IF NOT EXISTS idx_entries_source_file ON entries (source_file);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages (chat_id, seq);
`
	_, err := c.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
