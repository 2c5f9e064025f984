package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS world_books (
		name       TEXT PRIMARY KEY,
		enabled    INTEGER NOT NULL DEFAULT 1,
		settings   TEXT NOT NULL DEFAULT '{}',
		updated_at TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS entries (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		book              TEXT NOT NULL REFERENCES world_books(name) ON DELETE CASCADE,
		entry_id          TEXT NOT NULL,
		title             TEXT NOT NULL DEFAULT '',
		content           TEXT NOT NULL DEFAULT '',
		strategy          TEXT NOT NULL,
		primary_keys      TEXT NOT NULL DEFAULT '[]',
		secondary_keys    TEXT NOT NULL DEFAULT '[]',
		position          TEXT NOT NULL,
		enabled           INTEGER NOT NULL DEFAULT 1,
		ord               INTEGER NOT NULL DEFAULT 0,
		case_sensitive    INTEGER,
		match_whole_words INTEGER,
		exclude_recursion INTEGER NOT NULL DEFAULT 0,
		prevent_recursion INTEGER NOT NULL DEFAULT 0,
		source_file       TEXT,
		source_hash       TEXT,
		last_ingested     TEXT DEFAULT (datetime('now')),
		CONSTRAINT uq_entry_book_id UNIQUE (book, entry_id)
	);

	CREATE TABLE IF NOT EXISTS presets (
		name       TEXT PRIMARY KEY,
		items      TEXT NOT NULL DEFAULT '[]',
		updated_at TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		chat_id    TEXT NOT NULL,
		role       TEXT NOT NULL,
		name       TEXT NOT NULL DEFAULT '',
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_book_order ON entries (book, ord, id);
	CREATE INDEX IF NOT EXISTS idx_entries_source_file ON entries (source_file);
	CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages (chat_id, seq);

	CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
		title,
		primary_keys,
		content,
		content=entries,
		content_rowid=id
	);

	CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
		INSERT INTO entries_fts(rowid, title, primary_keys, content)
		VALUES (new.id, new.title, new.primary_keys, new.content);
	END;

	CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
		INSERT INTO entries_fts(entries_fts, rowid, title, primary_keys, content)
		VALUES ('delete', old.id, old.title, old.primary_keys, old.content);
	END;

	CREATE TRIGGER IF NOT EXISTS entries_au AFTER UPDATE ON entries BEGIN
		INSERT INTO entries_fts(entries_fts, rowid, title, primary_keys, content)
		VALUES ('delete', old.id, old.title, old.primary_keys, old.content);
		INSERT INTO entries_fts(rowid, title, primary_keys, content)
		VALUES (new.id, new.title, new.primary_keys, new.content);
	END;
	`

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	return nil
}

// splitStatements splits DDL on trailing semicolons, keeping each CREATE TRIGGER body
// together up to its END;.
func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder
	inTrigger := false

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasPrefix(stripped, "CREATE TRIGGER") {
			inTrigger = true
		}
		if inTrigger {
			if stripped == "END;" {
				statements = append(statements, current.String())
				current.Reset()
				inTrigger = false
			}
			continue
		}
		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		statements = append(statements, current.String())
	}

	return statements
}
