package sqlite

import (
	"context"
	"fmt"
	"time"

	"promptloom/internal/chat"
	"promptloom/internal/store"
)

func (c *Client) AppendMessage(ctx context.Context, chatID string, m chat.Message) (chat.Message, error) {
	m = store.PrepareMessage(m, c.now())

	query := `
	INSERT INTO messages (id, chat_id, role, name, content, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := c.db.ExecContext(ctx, query,
		m.ID,
		chatID,
		string(m.Role),
		m.Name,
		m.Content,
		m.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return chat.Message{}, fmt.Errorf("appending message: %w", err)
	}
	return m, nil
}

// GetHistory returns the newest limit messages of a chat, oldest first. A limit of zero
// or less returns the whole chat.
func (c *Client) GetHistory(ctx context.Context, chatID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `
	SELECT id, role, name, content, created_at FROM (
		SELECT seq, id, role, name, content, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY seq DESC
		LIMIT ?
	)
	ORDER BY seq ASC
	`
	rows, err := c.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}
	defer rows.Close()

	history := []chat.Message{}
	for rows.Next() {
		var m chat.Message
		var role, created string
		if err := rows.Scan(&m.ID, &role, &m.Name, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = chat.ParseRole(role)
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			m.Timestamp = &ts
		}
		history = append(history, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return history, nil
}

func (c *Client) ClearHistory(ctx context.Context, chatID string) (int64, error) {
	result, err := c.db.ExecContext(ctx, "DELETE FROM messages WHERE chat_id = ?", chatID)
	if err != nil {
		return 0, fmt.Errorf("clearing history: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return affected, nil
}
