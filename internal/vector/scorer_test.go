package vector

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"promptloom/internal/worldinfo"
)

var vocabulary = []string{"sea", "ship", "storm", "mountain", "snow", "peak"}

// bagOfWords embeds text as normalized vocabulary counts plus a small bias dimension so
// that no vector is zero.
func bagOfWords(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocabulary)+1)
	for i, word := range vocabulary {
		vec[i] = float32(strings.Count(lower, word))
	}
	vec[len(vocabulary)] = 0.01
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func TestScorer_SelectsSimilarEntries(t *testing.T) {
	scorer, err := NewScorer(bagOfWords, Config{Threshold: 0.5, TopK: 5})
	require.NoError(t, err)

	entries := []worldinfo.Entry{
		{ID: "harbor", Title: "Harbor", Content: "ship and sea, ship at sea"},
		{ID: "alps", Title: "Alps", Content: "snow on the mountain peak"},
	}
	ids, err := scorer.Score(context.Background(), "a storm at sea sinks a ship", entries)
	require.NoError(t, err)
	require.Equal(t, []string{"harbor"}, ids)
}

func TestScorer_TopKClampedToEntries(t *testing.T) {
	scorer, err := NewScorer(bagOfWords, Config{Threshold: 0.1, TopK: 50})
	require.NoError(t, err)

	ids, err := scorer.Score(context.Background(), "sea", []worldinfo.Entry{{ID: "one", Content: "sea"}})
	require.NoError(t, err)
	require.Equal(t, []string{"one"}, ids)
}

func TestScorer_EmptyInputs(t *testing.T) {
	scorer, err := NewScorer(bagOfWords, Config{})
	require.NoError(t, err)

	ids, err := scorer.Score(context.Background(), "  ", []worldinfo.Entry{{ID: "one", Content: "sea"}})
	require.NoError(t, err)
	require.Empty(t, ids)

	ids, err = scorer.Score(context.Background(), "sea", []worldinfo.Entry{{ID: "", Content: "sea"}})
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestScorer_EmbeddingError(t *testing.T) {
	failing := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("offline")
	}
	scorer, err := NewScorer(failing, Config{})
	require.NoError(t, err)

	_, err = scorer.Score(context.Background(), "sea", []worldinfo.Entry{{ID: "one", Content: "sea"}})
	require.Error(t, err)
}

func TestNewScorer_RequiresEmbedding(t *testing.T) {
	_, err := NewScorer(nil, Config{})
	require.Error(t, err)
}

func TestNewEmbeddingFunc(t *testing.T) {
	_, err := NewEmbeddingFunc("ollama", "", "", "")
	require.Error(t, err)

	_, err = NewEmbeddingFunc("openai", "", "", "")
	require.Error(t, err)

	embed, err := NewEmbeddingFunc("ollama", "nomic-embed-text", "", "")
	require.NoError(t, err)
	require.NotNil(t, embed)

	_, err = NewEmbeddingFunc("cohere", "m", "", "k")
	require.Error(t, err)
}
