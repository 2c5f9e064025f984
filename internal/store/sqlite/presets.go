package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"promptloom/internal/preset"
	"promptloom/internal/store"
)

func (c *Client) UpsertPreset(ctx context.Context, p preset.Preset) error {
	items := p.Items
	if items == nil {
		items = []preset.Item{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling preset items: %w", err)
	}

	query := `
	INSERT INTO presets (name, items, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT (name) DO UPDATE SET
		items = excluded.items,
		updated_at = excluded.updated_at
	`
	if _, err := c.db.ExecContext(ctx, query, p.Name, string(itemsJSON), c.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("upserting preset: %w", err)
	}
	return nil
}

func (c *Client) GetPreset(ctx context.Context, name string) (*preset.Preset, error) {
	var itemsJSON string
	err := c.db.QueryRowContext(ctx, "SELECT items FROM presets WHERE name = ?", name).Scan(&itemsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting preset %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting preset: %w", err)
	}

	p := preset.Preset{Name: name}
	if err := json.Unmarshal([]byte(itemsJSON), &p.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling preset items: %w", err)
	}
	return &p, nil
}

func (c *Client) ListPresets(ctx context.Context) ([]store.PresetSummary, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT name, items, updated_at FROM presets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing presets: %w", err)
	}
	defer rows.Close()

	summaries := []store.PresetSummary{}
	for rows.Next() {
		var s store.PresetSummary
		var itemsJSON, updated string
		if err := rows.Scan(&s.Name, &itemsJSON, &updated); err != nil {
			return nil, fmt.Errorf("scanning preset: %w", err)
		}
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
			return nil, fmt.Errorf("unmarshaling preset items: %w", err)
		}
		s.Items = len(items)
		if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			s.UpdatedAt = ts
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating presets: %w", err)
	}

	return summaries, nil
}
