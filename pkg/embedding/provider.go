package embedding

import (
	"context"
	"fmt"
	"math"
)

// Task types understood by Gemini. Providers that have no notion of a task ignore them.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// EmbeddingProvider defines the interface for generating text embeddings.
// Failures wrap errx.ErrEmbedding and are classified as quota or upstream errors.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) ([]float64, error)
}

type Config struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	OllamaURL    string
	OllamaModel  string
}

func NewProvider(ctx context.Context, cfg Config) (EmbeddingProvider, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "ollama":
		return NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// normalizeVector scales vec to unit length; a zero vector is returned as is.
func normalizeVector(vec []float64) []float64 {
	var magnitude float64
	for _, v := range vec {
		magnitude += v * v
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float64, len(vec))
	for i, v := range vec {
		normalized[i] = v / magnitude
	}
	return normalized
}
