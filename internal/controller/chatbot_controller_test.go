package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/pkg/serverutils"
	"ai-tutor-be/pkg/rag/executor"
	"ai-tutor-be/pkg/rag/search"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTurns struct {
	result  *executor.TurnResult
	err     error
	wiped   string
	askedBy string
}

func (f *fakeTurns) Execute(ctx context.Context, email, question string) (*executor.TurnResult, error) {
	f.askedBy = email
	return f.result, f.err
}

func (f *fakeTurns) Wipe(ctx context.Context, email string) error {
	f.wiped = email
	return f.err
}

func newApp(turns TurnService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(logger.NewNopLogger()))
	NewChatbotController(turns).RegisterRoutes(app.Group("/api"))
	return app
}

func decode(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestAsk(t *testing.T) {
	turns := &fakeTurns{result: &executor.TurnResult{
		Reply:           "מה לדעתך? A) כן B) לא",
		Topic:           entity.TopicMean,
		TopicName:       "ממוצע",
		Phase:           entity.PhaseDiagnose,
		Kind:            executor.KindDiagnose,
		DiagnosisOnly:   true,
		RetrievalStatus: search.StatusSkipped,
	}}
	app := newApp(turns)

	req := httptest.NewRequest("POST", "/api/chat/v1/ask", strings.NewReader(`{"email":"a@b.co","question":"ממוצע"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decode(t, resp.Body)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "mean", data["topic"])
	assert.Equal(t, "DIAGNOSE", data["phase"])
	assert.Equal(t, "a@b.co", turns.askedBy)
}

func TestAsk_ValidationFailure(t *testing.T) {
	app := newApp(&fakeTurns{})

	req := httptest.NewRequest("POST", "/api/chat/v1/ask", strings.NewReader(`{"email":"not-an-email","question":""}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	body := decode(t, resp.Body)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "Email")
}

func TestAsk_InternalErrorIsHidden(t *testing.T) {
	app := newApp(&fakeTurns{err: errors.New("pq: connection reset")})

	req := httptest.NewRequest("POST", "/api/chat/v1/ask", strings.NewReader(`{"email":"a@b.co","question":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)

	body := decode(t, resp.Body)
	assert.NotContains(t, body["message"], "pq:")
}

func TestWipeHistory(t *testing.T) {
	turns := &fakeTurns{}
	app := newApp(turns)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/chat/v1/history?email=a@b.co", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "a@b.co", turns.wiped)
}
