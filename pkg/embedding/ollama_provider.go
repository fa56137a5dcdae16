package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-tutor-be/internal/pkg/errx"
)

// OllamaProvider implements EmbeddingProvider for local Ollama models (e.g., nomic-embed-text)
type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaProvider(baseURL string, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Generate ignores taskType. The vector is normalized so cosine scores line up
// with the ones pgvector computes for Gemini embeddings.
func (p *OllamaProvider) Generate(ctx context.Context, text string, taskType string) ([]float64, error) {
	jsonBody, err := json.Marshal(ollamaEmbeddingRequest{Model: p.Model, Prompt: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/embeddings", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, errx.WrapUpstream("ollama embed", fmt.Errorf("%w: %w", errx.ErrEmbedding, err))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errx.WrapUpstream("ollama embed", fmt.Errorf("%w: %w", errx.ErrEmbedding, err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errx.WrapUpstream("ollama embed",
			fmt.Errorf("%w: status %d, body %s", errx.ErrEmbedding, resp.StatusCode, string(bodyBytes)))
	}

	var ollamaResp ollamaEmbeddingResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return nil, errx.WrapUpstream("ollama embed", fmt.Errorf("%w: %w", errx.ErrEmbedding, err))
	}
	if len(ollamaResp.Embedding) == 0 {
		return nil, errx.WrapUpstream("ollama embed", fmt.Errorf("%w: empty embedding", errx.ErrEmbedding))
	}

	return normalizeVector(ollamaResp.Embedding), nil
}
