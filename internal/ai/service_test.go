package ai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"resumebuilder/internal/config"
	"resumebuilder/internal/errors"
	"resumebuilder/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper functions to create pointers for test values
func timePtr(d time.Duration) *time.Duration { return &d }
func intPtr(i int) *int                      { return &i }
func float32Ptr(f float32) *float32          { return &f }
func boolPtr(b bool) *bool                   { return &b }

var testLogger = errors.NewLogger(slog.LevelDebug)

// fakeProvider records requests and replies with a canned generation
type fakeProvider struct {
	mu       sync.Mutex
	requests []Request
	reply    string
	err      error
	models   []ModelInfo
}

func (f *fakeProvider) Generate(_ context.Context, req Request) (*Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &Generation{Text: f.reply, Usage: &TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}, nil
}

func (f *fakeProvider) ListModels(context.Context) ([]ModelInfo, error) {
	return f.models, f.err
}

func (f *fakeProvider) GetModelInfo(context.Context) *ModelInfo {
	return &ModelInfo{Name: "fake", Available: f.err == nil}
}

func (f *fakeProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{"overall_healthy": true}
}

func (f *fakeProvider) Close() error { return nil }

func (f *fakeProvider) lastRequest() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func testOperationConfig() *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider:         "gemini",
		Model:            "test-model",
		Timeout:          timePtr(0),
		APIKey:           "test-key",
		MaxRetries:       intPtr(0),
		Temperature:      float32Ptr(0.5),
		UseSystemPrompts: boolPtr(false),
	}
}

func sampleFields() types.ResumeFields {
	return types.ResumeFields{
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		Phone:      "555-0100",
		Summary:    "Programmer",
		Experience: "Analytical engine",
		Education:  "Tutoring",
		Skills:     "Mathematics",
	}
}

func TestSuggestUsesDefaultPrompt(t *testing.T) {
	provider := &fakeProvider{reply: "Rewrite the summary."}
	service := newServiceWithProvider(provider, testOperationConfig(), config.OperationSuggest, nil, testLogger)

	text, usage, err := service.Suggest(context.Background(), sampleFields())
	require.NoError(t, err)
	assert.Equal(t, "Rewrite the summary.", text)
	assert.Equal(t, int64(15), usage.TotalTokens)

	req := provider.lastRequest()
	assert.Equal(t, config.OperationSuggest, req.Operation)
	assert.Equal(t, `Given the following resume details, suggest improvements and rewrite the summary in a more professional way:
Name: Ada Lovelace
Email: ada@example.com
Phone: 555-0100
Summary: Programmer
Experience: Analytical engine
Education: Tutoring
Skills: Mathematics`, req.User)
	assert.Equal(t, DefaultSystemPrompts.Suggest, req.System)
}

func TestScoreUsesDefaultPrompt(t *testing.T) {
	provider := &fakeProvider{reply: `{"score": 82, "explanation": "Good"}`}
	service := newServiceWithProvider(provider, testOperationConfig(), config.OperationScore, nil, testLogger)

	raw, _, err := service.Score(context.Background(), types.ResumeFields{Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 82, "explanation": "Good"}`, raw)

	req := provider.lastRequest()
	assert.True(t, strings.HasPrefix(req.User, "You are an ATS (Applicant Tracking System) simulator."))
	assert.Contains(t, req.User, "Resume:\nName: Ada\nEmail: \n")
	assert.True(t, strings.HasSuffix(req.User, `Output format: {"score": number, "explanation": string}`))
}

func TestPromptPrecedence(t *testing.T) {
	promptFile := filepath.Join(t.TempDir(), "suggest.md")
	require.NoError(t, os.WriteFile(promptFile, []byte("From file for {{.Name}}"), 0600))

	cfg := &config.Config{
		AI: config.AIConfig{
			CustomPrompts: config.PromptConfig{
				UserPrompts: config.UserPrompts{
					Suggest:     "From config for {{.Name}}",
					Score:       "Score {{.Skills}}",
					SuggestFile: promptFile,
				},
			},
		},
	}
	store, err := config.NewPromptStore(cfg)
	require.NoError(t, err)

	opCfg := testOperationConfig()
	opCfg.CustomPrompts = cfg.AI.CustomPrompts

	provider := &fakeProvider{reply: "ok"}
	service := newServiceWithProvider(provider, opCfg, config.OperationSuggest, store, testLogger)

	_, _, err = service.Suggest(context.Background(), sampleFields())
	require.NoError(t, err)
	assert.Equal(t, "From file for Ada Lovelace", provider.lastRequest().User)

	_, _, err = service.Score(context.Background(), sampleFields())
	require.NoError(t, err)
	assert.Equal(t, "Score Mathematics", provider.lastRequest().User)
}

func TestInvalidPromptTemplate(t *testing.T) {
	opCfg := testOperationConfig()
	opCfg.CustomPrompts.UserPrompts.Suggest = "Hello {{.Nickname}}"

	provider := &fakeProvider{reply: "ok"}
	service := newServiceWithProvider(provider, opCfg, config.OperationSuggest, nil, testLogger)

	_, _, err := service.Suggest(context.Background(), sampleFields())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Empty(t, provider.requests, "no request should be sent with a broken template")
}

func TestServicePropagatesProviderErrors(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("quota exceeded")}
	service := newServiceWithProvider(provider, testOperationConfig(), config.OperationSuggest, nil, testLogger)

	_, _, err := service.Suggest(context.Background(), sampleFields())
	assert.EqualError(t, err, "quota exceeded")

	_, err = service.ListModels(context.Background())
	assert.Error(t, err)
}

func TestNewServiceRequiresAPIKey(t *testing.T) {
	cfg := testOperationConfig()
	cfg.APIKey = ""

	_, err := NewService(cfg, config.OperationSuggest, nil, testLogger)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeMissingAPIKey, appErr.Code)
	assert.Equal(t, "No API key configured for Gemini", errors.UserMessage(err))
}

func TestNewServiceRejectsUnknownProvider(t *testing.T) {
	cfg := testOperationConfig()
	cfg.Provider = "claude"

	_, err := NewService(cfg, config.OperationSuggest, nil, testLogger)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestCircuitBreakerIntegrationWithServices(t *testing.T) {
	testOpConfig := testOperationConfig()
	testOpConfig.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          45 * time.Second,
		MinRequests:      2,
		FailureThreshold: 0.8,
	}

	service, err := NewService(testOpConfig, "test-op", nil, testLogger)
	require.NoError(t, err)

	geminiProvider, ok := service.Provider.(*GeminiProvider)
	if !ok {
		t.Fatal("Service provider is not of type *GeminiProvider")
	}
	stats := geminiProvider.GetCircuitBreakerStats()

	aiOpsStats, ok := stats["ai_operations"].(map[string]any)
	if !ok {
		t.Fatal("AI operations stats should exist and be a map")
	}
	if name, _ := aiOpsStats["name"].(string); name != "AI-test-op" {
		t.Errorf("Expected circuit breaker name 'AI-test-op', got '%s'", name)
	}

	modelOpsStats, ok := stats["model_operations"].(map[string]any)
	if !ok {
		t.Fatal("Model operations stats should exist and be a map")
	}
	if name, _ := modelOpsStats["name"].(string); name != "AI-Model-test-op" {
		t.Errorf("Expected model circuit breaker name 'AI-Model-test-op', got '%s'", name)
	}

	if overallHealthy, _ := stats["overall_healthy"].(bool); !overallHealthy {
		t.Error("Circuit breaker should be healthy initially")
	}
}

func TestClientDefersMissingKeyErrors(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := &config.Config{
		AI: config.AIConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Models:   config.OperationAIConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-test"},
		},
	}

	client, err := NewClient(cfg, nil, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "Gemini", client.Label())
	assert.Len(t, client.Services(), 1)

	_, _, err = client.Suggest(context.Background(), sampleFields())
	assert.Equal(t, "No API key configured for Gemini", errors.UserMessage(err))

	_, _, err = client.Score(context.Background(), sampleFields())
	assert.Error(t, err)

	_, ok := client.Services()[config.OperationModels].Provider.(*OpenAIProvider)
	assert.True(t, ok, "models operation should use the OpenAI provider")
}

func TestProviderLabel(t *testing.T) {
	assert.Equal(t, "Gemini", ProviderLabel("gemini"))
	assert.Equal(t, "OpenAI", ProviderLabel("openai"))
	assert.Equal(t, "other", ProviderLabel("other"))
}
