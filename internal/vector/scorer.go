// Package vector scores vectorized world-info entries against the scan window using an
// in-memory chromem-go collection built fresh for every call.
package vector

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"promptloom/internal/worldinfo"
)

const (
	DefaultThreshold = 0.75
	DefaultTopK      = 5
)

type Config struct {
	Threshold float32
	TopK      int
}

type Scorer struct {
	embed  chromem.EmbeddingFunc
	config Config
}

var _ worldinfo.Scorer = (*Scorer)(nil)

func NewScorer(embed chromem.EmbeddingFunc, config Config) (*Scorer, error) {
	if embed == nil {
		return nil, fmt.Errorf("embedding function is required")
	}
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	return &Scorer{embed: embed, config: config}, nil
}

// NewEmbeddingFunc picks a chromem embedding provider by name.
func NewEmbeddingFunc(provider, model, baseURL, apiKey string) (chromem.EmbeddingFunc, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "ollama":
		if model == "" {
			return nil, fmt.Errorf("ollama embeddings require a model")
		}
		return chromem.NewEmbeddingFuncOllama(model, baseURL), nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("openai embeddings require an api key")
		}
		if model == "" {
			model = string(chromem.EmbeddingModelOpenAI3Small)
		}
		return chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI(model)), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", provider)
	}
}

func (s *Scorer) Score(ctx context.Context, query string, entries []worldinfo.Entry) ([]string, error) {
	if strings.TrimSpace(query) == "" || len(entries) == 0 {
		return nil, nil
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("entries", nil, s.embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		text := documentText(entry)
		if entry.ID == "" || text == "" {
			continue
		}
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		seen[entry.ID] = struct{}{}
		docs = append(docs, chromem.Document{ID: entry.ID, Content: text})
	}
	if len(docs) == 0 {
		return nil, nil
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}

	n := s.config.TopK
	if count := collection.Count(); n > count {
		n = count
	}
	results, err := collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	var ids []string
	for _, r := range results {
		if r.Similarity < s.config.Threshold {
			continue
		}
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func documentText(entry worldinfo.Entry) string {
	parts := make([]string, 0, 3)
	if t := strings.TrimSpace(entry.Title); t != "" {
		parts = append(parts, t)
	}
	if keys := strings.TrimSpace(strings.Join(entry.PrimaryKeys, ", ")); keys != "" {
		parts = append(parts, keys)
	}
	if c := strings.TrimSpace(entry.Content); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, "\n")
}
