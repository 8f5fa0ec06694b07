package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"resumebuilder/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func newOpenAIServer(t *testing.T, content string, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			calls.Add(1)
			body, _ := io.ReadAll(r.Body)
			var req map[string]any
			_ = json.Unmarshal(body, &req)
			if req["model"] != "gpt-test" {
				t.Errorf("unexpected model in request: %v", req["model"])
			}
			if status != http.StatusOK {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1,
				"model":   "gpt-test",
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				}},
				"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16},
			})
		case strings.HasSuffix(r.URL.Path, "/models"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"data": []map[string]any{
					{"id": "gpt-test", "object": "model", "created": 1, "owned_by": "test"},
					{"id": "gpt-other", "object": "model", "created": 1, "owned_by": "test"},
				},
			})
		case strings.HasSuffix(r.URL.Path, "/models/gpt-test"):
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "gpt-test", "object": "model", "created": 1, "owned_by": "test"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestOpenAIProvider(t *testing.T, baseURL string) *OpenAIProvider {
	t.Helper()
	cfg := testOperationConfig()
	cfg.Provider = "openai"
	cfg.Model = "gpt-test"
	cfg.BaseURL = baseURL + "/v1/"

	provider, err := NewOpenAIProvider(cfg, "suggest", testLogger)
	require.NoError(t, err)
	return provider
}

func TestOpenAIProviderGenerate(t *testing.T) {
	srv, calls := newOpenAIServer(t, "Polished summary", http.StatusOK)
	provider := newTestOpenAIProvider(t, srv.URL)

	gen, err := provider.Generate(context.Background(), Request{Operation: "suggest", User: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Polished summary", gen.Text)
	assert.Equal(t, int64(12), gen.Usage.InputTokens)
	assert.Equal(t, int64(16), gen.Usage.TotalTokens)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIProviderBlankReplyIsReturned(t *testing.T) {
	srv, calls := newOpenAIServer(t, "", http.StatusOK)
	provider := newTestOpenAIProvider(t, srv.URL)

	gen, err := provider.Generate(context.Background(), Request{Operation: "score", User: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "", gen.Text)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIProviderNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-test",
			"choices": []map[string]any{},
		})
	}))
	defer srv.Close()
	provider := newTestOpenAIProvider(t, srv.URL)

	_, err := provider.Generate(context.Background(), Request{Operation: "suggest", User: "hello"})
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeAIEmptyResponse, appErr.Code)
}

func TestOpenAIProviderServerErrorIsNotRetriedByDefault(t *testing.T) {
	srv, calls := newOpenAIServer(t, "", http.StatusServiceUnavailable)
	provider := newTestOpenAIProvider(t, srv.URL)

	_, err := provider.Generate(context.Background(), Request{Operation: "suggest", User: "hello"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAI))
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIProviderListModels(t *testing.T) {
	srv, _ := newOpenAIServer(t, "", http.StatusOK)
	provider := newTestOpenAIProvider(t, srv.URL)

	models, err := provider.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "gpt-test", models[0].Name)

	info := provider.GetModelInfo(context.Background())
	assert.True(t, info.Available)
	assert.Equal(t, "gpt-test", info.Name)
}

func TestGeminiProviderGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": "Gemini says hi"}},
				},
			}},
			"usageMetadata": map[string]any{
				"promptTokenCount":     7,
				"candidatesTokenCount": 3,
				"totalTokenCount":      10,
			},
		})
	}))
	defer srv.Close()

	cfg := testOperationConfig()
	cfg.BaseURL = srv.URL
	provider, err := NewGeminiProvider(cfg, "suggest", testLogger)
	require.NoError(t, err)

	gen, err := provider.Generate(context.Background(), Request{Operation: "suggest", User: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Gemini says hi", gen.Text)
	assert.Equal(t, int64(10), gen.Usage.TotalTokens)
}

func TestGeminiProviderBlankReplyIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": ""}}},
			}},
		})
	}))
	defer srv.Close()

	cfg := testOperationConfig()
	cfg.BaseURL = srv.URL
	provider, err := NewGeminiProvider(cfg, "score", testLogger)
	require.NoError(t, err)

	gen, err := provider.Generate(context.Background(), Request{Operation: "score", User: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "", gen.Text)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"plain error", fmt.Errorf("bad request"), false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"network error", &net.OpError{Op: "dial", Err: fmt.Errorf("connection refused")}, true},
		{"google 503", &googleapi.Error{Code: http.StatusServiceUnavailable}, true},
		{"google 400", &googleapi.Error{Code: http.StatusBadRequest}, false},
		{"wrapped google 429", fmt.Errorf("call: %w", &googleapi.Error{Code: http.StatusTooManyRequests}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableError(tt.err))
		})
	}
}

func TestExecuteWithRetry(t *testing.T) {
	t.Run("no retries returns the original error", func(t *testing.T) {
		attempts := 0
		_, err := executeWithRetry(context.Background(), testLogger, "suggest", 0, func() (string, error) {
			attempts++
			return "", &googleapi.Error{Code: http.StatusServiceUnavailable}
		})
		assert.Equal(t, 1, attempts)

		var apiErr *googleapi.Error
		assert.ErrorAs(t, err, &apiErr)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		attempts := 0
		result, err := executeWithRetry(context.Background(), testLogger, "suggest", 1, func() (string, error) {
			attempts++
			if attempts == 1 {
				return "", &googleapi.Error{Code: http.StatusTooManyRequests}
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 2, attempts)
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		attempts := 0
		_, err := executeWithRetry(context.Background(), testLogger, "suggest", 3, func() (string, error) {
			attempts++
			return "", fmt.Errorf("invalid argument")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, attempts)
	})
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := withTimeout(context.Background(), timePtr(0))
	defer cancel()
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline, "zero timeout must not set a deadline")

	ctx2, cancel2 := withTimeout(context.Background(), nil)
	defer cancel2()
	_, hasDeadline = ctx2.Deadline()
	assert.False(t, hasDeadline)

	ctx3, cancel3 := withTimeout(context.Background(), timePtr(1e9))
	defer cancel3()
	_, hasDeadline = ctx3.Deadline()
	assert.True(t, hasDeadline)
}
