package ai

import (
	"context"
	"fmt"
	"net/http"

	"resumebuilder/internal/config"
	"resumebuilder/internal/errors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	config         *config.OperationAIConfig
	circuitBreaker *CircuitBreaker[*Generation]
	modelBreaker   *CircuitBreaker[[]ModelInfo]
	logger         *errors.Logger
}

// Ensure GeminiProvider implements AIProvider
var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*GeminiProvider, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:         client,
		config:         cfg,
		circuitBreaker: NewAICircuitBreaker(operationType, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(operationType, cfg, logger),
		logger:         logger,
	}, nil
}

// Generate sends the prompts to Gemini and returns the response text
func (g *GeminiProvider) Generate(ctx context.Context, req Request) (*Generation, error) {
	tracer := otel.Tracer("resumebuilder.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+req.Operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
		attribute.Int("input.prompt_length", len(req.User)),
	)

	ctx, cancel := withTimeout(ctx, g.config.Timeout)
	defer cancel()

	genaiConfig := &genai.GenerateContentConfig{}
	if *g.config.Temperature > 0 {
		genaiConfig.Temperature = g.config.Temperature
	}
	if *g.config.UseSystemPrompts && req.System != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	result, err := g.circuitBreaker.Execute(func() (*Generation, error) {
		return executeWithRetry(ctx, g.logger, req.Operation, *g.config.MaxRetries, func() (*Generation, error) {
			resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(req.User), genaiConfig)
			if err != nil {
				return nil, err
			}
			// a blank reply is still a reply; only a missing candidate fails
			if len(resp.Candidates) == 0 {
				return nil, emptyResponseError("Gemini")
			}
			return &Generation{Text: resp.Text(), Usage: extractTokenUsage(resp)}, nil
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		if errors.IsType(err, errors.ErrorTypeAI) {
			return nil, err
		}
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to generate content for "+req.Operation, err)
	}

	recordUsage(span, result.Usage)
	span.SetAttributes(attribute.Bool("success", true))
	return result, nil
}

// ListModels returns every model the API key can use
func (g *GeminiProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := withTimeout(ctx, g.config.Timeout)
	defer cancel()

	models, err := g.modelBreaker.Execute(func() ([]ModelInfo, error) {
		var models []ModelInfo
		for model, err := range g.client.Models.All(ctx) {
			if err != nil {
				return nil, err
			}
			models = append(models, ModelInfo{
				Name:        model.Name,
				DisplayName: model.DisplayName,
				Version:     model.Version,
				Available:   true,
			})
		}
		return models, nil
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to list Gemini models", err)
	}
	return models, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	found, err := g.modelBreaker.Execute(func() ([]ModelInfo, error) {
		model, err := g.client.Models.Get(ctx, g.config.Model, &genai.GetModelConfig{})
		if err != nil {
			return nil, err
		}
		return []ModelInfo{{Name: model.Name, DisplayName: model.DisplayName, Version: model.Version}}, nil
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = found[0].DisplayName
	modelInfo.Version = found[0].Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"provider", g.config.Provider,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return breakerStats(g.circuitBreaker, g.modelBreaker)
}

// Close implements AIProvider interface
func (g *GeminiProvider) Close() error {
	// The genai client holds no resources outside of streaming calls
	return nil
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
