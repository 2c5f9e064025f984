package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"promptloom/internal/chat"
	"promptloom/internal/preset"
	"promptloom/internal/prompt"
	"promptloom/internal/session"
	"promptloom/internal/store"
	"promptloom/internal/worldinfo"
)

// Querier is the read side of store.Store the tools use.
type Querier interface {
	GetWorldBook(ctx context.Context, name string) (*worldinfo.Book, error)
	GetPreset(ctx context.Context, name string) (*preset.Preset, error)
	GetHistory(ctx context.Context, chatID string, limit int) ([]chat.Message, error)
	ListWorldBooks(ctx context.Context) ([]store.BookSummary, error)
	ListPresets(ctx context.Context) ([]store.PresetSummary, error)
	SearchEntries(ctx context.Context, query, book string) ([]store.SearchResult, error)
}

// Defaults fill in tool arguments the caller leaves out.
type Defaults struct {
	Book             string
	Preset           string
	Profile          prompt.Profile
	HistoryLimit     int
	HistoryWindow    int
	ScorerConfigured bool
}

type Server struct {
	db       Querier
	pipeline *prompt.Pipeline
	loader   *session.Loader
	defaults Defaults
	mcp      *sdk.Server
}

func NewServer(db Querier, pipeline *prompt.Pipeline, defaults Defaults, version string, logger *zap.Logger) *Server {
	s := &Server{
		db:       db,
		pipeline: pipeline,
		loader:   session.NewLoader(db, logger),
		defaults: defaults,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "promptloom",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
