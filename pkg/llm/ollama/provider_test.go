package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-tutor-be/internal/pkg/errx"
	"ai-tutor-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_ChatSendsOptions(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: "Which of these is a mean?"},
			Done:    true,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "llama3")
	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "persona"},
		{Role: "model", Content: "earlier"},
		{Role: llm.RoleUser, Content: "ממוצע"},
	}, llm.WithMaxTokens(200), llm.WithTemperature(0.3))

	require.NoError(t, err)
	assert.Equal(t, "Which of these is a mean?", out)
	assert.Equal(t, "llama3", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 200, got.Options.NumPredict)
	assert.InDelta(t, 0.3, got.Options.Temperature, 1e-9)
	assert.Equal(t, llm.RoleAssistant, got.Messages[1].Role)
}

func TestOllamaProvider_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		quota  bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, true},
		{"server down", http.StatusServiceUnavailable, "", false},
		{"error in ok body", http.StatusOK, `{"error":"model \"llama3\" not found"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOllamaProvider(srv.URL, "llama3").Generate(context.Background(), "hi")
			require.Error(t, err)
			assert.Equal(t, tt.quota, errors.Is(err, errx.ErrQuotaExceeded))
			assert.Equal(t, !tt.quota, errors.Is(err, errx.ErrUpstreamUnavailable))
			if tt.quota {
				assert.Equal(t, http.StatusTooManyRequests, errx.StatusOf(err))
			}
		})
	}
}
