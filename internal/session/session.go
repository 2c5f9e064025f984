// Package session loads the stored inputs of one chat turn and hands them to the
// prompt pipeline as plain values.
package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"promptloom/internal/chat"
	"promptloom/internal/preset"
	"promptloom/internal/prompt"
	"promptloom/internal/worldinfo"
)

// Reader is the read side of store.Store used to load a turn.
type Reader interface {
	GetWorldBook(ctx context.Context, name string) (*worldinfo.Book, error)
	GetPreset(ctx context.Context, name string) (*preset.Preset, error)
	GetHistory(ctx context.Context, chatID string, limit int) ([]chat.Message, error)
}

type Params struct {
	ChatID        string
	Book          string
	Preset        string
	Profile       prompt.Profile
	HistoryLimit  int
	HistoryWindow int
	Overrides     map[string]string
}

type Loader struct {
	reader Reader
	logger *zap.Logger
}

func NewLoader(reader Reader, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{reader: reader, logger: logger}
}

// Load fetches the book, preset and history for a turn concurrently. An empty book name
// yields a disabled empty book and an empty chat id yields no history; the preset is
// required.
func (l *Loader) Load(ctx context.Context, p Params) (*prompt.Request, error) {
	if strings.TrimSpace(p.Preset) == "" {
		return nil, fmt.Errorf("loading session: preset name is required")
	}

	req := &prompt.Request{
		Book:          worldinfo.Book{Name: p.Book, Entries: []worldinfo.Entry{}},
		History:       []chat.Message{},
		Profile:       p.Profile,
		HistoryWindow: p.HistoryWindow,
		Overrides:     p.Overrides,
	}

	g, ctx := errgroup.WithContext(ctx)

	if strings.TrimSpace(p.Book) != "" {
		g.Go(func() error {
			book, err := l.reader.GetWorldBook(ctx, p.Book)
			if err != nil {
				return fmt.Errorf("loading world book: %w", err)
			}
			req.Book = *book
			return nil
		})
	}

	g.Go(func() error {
		ps, err := l.reader.GetPreset(ctx, p.Preset)
		if err != nil {
			return fmt.Errorf("loading preset: %w", err)
		}
		req.Preset = *ps
		return nil
	})

	if strings.TrimSpace(p.ChatID) != "" {
		g.Go(func() error {
			history, err := l.reader.GetHistory(ctx, p.ChatID, p.HistoryLimit)
			if err != nil {
				return fmt.Errorf("loading history: %w", err)
			}
			req.History = history
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	l.logger.Debug("session loaded",
		zap.String("chat", p.ChatID),
		zap.String("book", req.Book.Name),
		zap.Int("entries", len(req.Book.Entries)),
		zap.String("preset", req.Preset.Name),
		zap.Int("history", len(req.History)),
	)
	return req, nil
}
