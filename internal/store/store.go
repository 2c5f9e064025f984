package store

import (
	"context"
	"errors"

	"promptloom/internal/chat"
	"promptloom/internal/preset"
	"promptloom/internal/worldinfo"
)

var ErrNotFound = errors.New("not found")

// Store persists world books, presets and chat histories. The prompt pipeline never
// reads it directly; callers load a turn's inputs and hand them over as plain values.
type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	UpsertWorldBook(ctx context.Context, name string, enabled bool, settings worldinfo.Settings) error
	GetWorldBook(ctx context.Context, name string) (*worldinfo.Book, error)
	ListWorldBooks(ctx context.Context) ([]BookSummary, error)
	UpsertEntry(ctx context.Context, book string, e worldinfo.Entry) error
	GetEntryHashes(ctx context.Context, book string) (map[string]string, error)
	RemoveStaleEntries(ctx context.Context, book string, currentSourceFiles []string) (int64, error)
	SearchEntries(ctx context.Context, query, book string) ([]SearchResult, error)

	UpsertPreset(ctx context.Context, p preset.Preset) error
	GetPreset(ctx context.Context, name string) (*preset.Preset, error)
	ListPresets(ctx context.Context) ([]PresetSummary, error)

	AppendMessage(ctx context.Context, chatID string, m chat.Message) (chat.Message, error)
	GetHistory(ctx context.Context, chatID string, limit int) ([]chat.Message, error)
	ClearHistory(ctx context.Context, chatID string) (int64, error)
}
