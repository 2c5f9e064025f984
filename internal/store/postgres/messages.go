package postgres

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
VALUES ($1, $2, $3, $4, $5, $6)
`
	if _, err := c.pool.Exec(ctx, query, m.ID, chatID, string(m.Role), m.Name, m.Content, *m.Timestamp); err != nil {
		return chat.Message{}, fmt.Errorf("appending message: %w", err)
	}
	return m, nil
}

func (c *Client) GetHistory(ctx context.Context, chatID string, limit int) ([]chat.Message, error) {
	query := `
SELECT id, role, name, content, created_at FROM (
    SELECT seq, id, role, name, content, created_at
    FROM messages
    WHERE chat_id = $1
    ORDER BY seq DESC
    LIMIT CASE WHEN $2::int > 0 THEN $2::int END
) recent
ORDER BY seq ASC
`
	rows, err := c.pool.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}
	defer rows.Close()

	history := []chat.Message{}
	for rows.Next() {
		var m chat.Message
		var role string
		var created time.Time
		if err := rows.Scan(&m.ID, &role, &m.Name, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = chat.ParseRole(role)
		created = created.UTC()
		m.Timestamp = &created
		history = append(history, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return history, nil
}

func (c *Client) ClearHistory(ctx context.Context, chatID string) (int64, error) {
	tag, err := c.pool.Exec(ctx, "DELETE FROM messages WHERE chat_id = $1", chatID)
	if err != nil {
		return 0, fmt.Errorf("clearing history: %w", err)
	}
	return tag.RowsAffected(), nil
}
