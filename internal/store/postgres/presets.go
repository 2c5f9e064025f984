package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

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
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET
    items = EXCLUDED.items,
    updated_at = EXCLUDED.updated_at
`
	if _, err := c.pool.Exec(ctx, query, p.Name, itemsJSON, c.now().UTC()); err != nil {
		return fmt.Errorf("upserting preset: %w", err)
	}
	return nil
}

func (c *Client) GetPreset(ctx context.Context, name string) (*preset.Preset, error) {
	var itemsJSON []byte
	err := c.pool.QueryRow(ctx, "SELECT items FROM presets WHERE name = $1", name).Scan(&itemsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getting preset %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting preset: %w", err)
	}

	p := preset.Preset{Name: name}
	if err := json.Unmarshal(itemsJSON, &p.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling preset items: %w", err)
	}
	return &p, nil
}

func (c *Client) ListPresets(ctx context.Context) ([]store.PresetSummary, error) {
	rows, err := c.pool.Query(ctx, "SELECT name, jsonb_array_length(items), updated_at FROM presets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing presets: %w", err)
	}
	defer rows.Close()

	summaries := []store.PresetSummary{}
	for rows.Next() {
		var s store.PresetSummary
		var count int32
		if err := rows.Scan(&s.Name, &count, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning preset: %w", err)
		}
		s.Items = int(count)
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating presets: %w", err)
	}

	return summaries, nil
}
