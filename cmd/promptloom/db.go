package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"promptloom/internal/config"
	"promptloom/internal/prompt"
	"promptloom/internal/store"
	"promptloom/internal/store/postgres"
	"promptloom/internal/store/sqlite"
	"promptloom/internal/tokens"
	"promptloom/internal/vector"
)

// project bundles what every command needs: the loaded config, a logger and an open
// store with its schema in place.
type project struct {
	cfg    *config.ProjectConfig
	logger *zap.Logger
	db     store.Store
}

func openProject(ctx context.Context) (*project, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return nil, err
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &project{cfg: cfg, logger: logger, db: db}, nil
}

func (p *project) Close(ctx context.Context) {
	p.db.Close(ctx)
	_ = p.logger.Sync()
}

func openStore(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	dsn := cfg.Database.DSN
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		client, err := sqlite.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return client, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		client, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported database dsn: %s", dsn)
	}
}

func (p *project) pipeline() (*prompt.Pipeline, error) {
	opts := prompt.Options{
		Counter: tokens.NewCounter(),
		Logger:  p.logger.Named("prompt"),
	}
	if p.cfg.Vector.Enabled() {
		v := p.cfg.Vector
		embed, err := vector.NewEmbeddingFunc(v.Provider, v.Model, v.BaseURL, v.APIKey())
		if err != nil {
			return nil, err
		}
		scorer, err := vector.NewScorer(embed, vector.Config{Threshold: v.Threshold, TopK: v.TopK})
		if err != nil {
			return nil, err
		}
		opts.Scorer = scorer
	}
	return prompt.NewPipeline(opts), nil
}

// defaultBook is the first enabled layer's book.
func (p *project) defaultBook() string {
	for _, layer := range p.cfg.Layers {
		if layer.IsEnabled() {
			return layer.Name
		}
	}
	return ""
}

// defaultPreset is the name declared in the project's preset file.
func (p *project) defaultPreset() (string, error) {
	ps, err := config.LoadPreset(p.cfg.Preset)
	if err != nil {
		return "", fmt.Errorf("resolving default preset: %w", err)
	}
	return ps.Name, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
