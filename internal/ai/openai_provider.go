package ai

import (
	"context"
	"fmt"
	"net/http"

	"resumebuilder/internal/config"
	"resumebuilder/internal/errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// OpenAIProvider implements AIProvider for OpenAI compatible chat completion APIs
type OpenAIProvider struct {
	client         openai.Client
	config         *config.OperationAIConfig
	circuitBreaker *CircuitBreaker[*Generation]
	modelBreaker   *CircuitBreaker[[]ModelInfo]
	logger         *errors.Logger
}

var _ AIProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI provider instance for a specific operation
func NewOpenAIProvider(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "OpenAI model is required", nil)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
		// retries are handled by executeWithRetry
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		client:         openai.NewClient(opts...),
		config:         cfg,
		circuitBreaker: NewAICircuitBreaker(operationType, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(operationType, cfg, logger),
		logger:         logger,
	}, nil
}

// Generate sends the prompts as a chat completion and returns the first choice
func (o *OpenAIProvider) Generate(ctx context.Context, req Request) (*Generation, error) {
	tracer := otel.Tracer("resumebuilder.ai.openai")
	ctx, span := tracer.Start(ctx, "openai."+req.Operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", o.config.Model),
		attribute.Float64("ai.temperature", float64(*o.config.Temperature)),
		attribute.Int("input.prompt_length", len(req.User)),
	)

	ctx, cancel := withTimeout(ctx, o.config.Timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessageParamUnion
	if *o.config.UseSystemPrompts && req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.config.Model),
		Messages: messages,
	}
	if *o.config.Temperature > 0 {
		params.Temperature = openai.Float(float64(*o.config.Temperature))
	}

	result, err := o.circuitBreaker.Execute(func() (*Generation, error) {
		return executeWithRetry(ctx, o.logger, req.Operation, *o.config.MaxRetries, func() (*Generation, error) {
			resp, err := o.client.Chat.Completions.New(ctx, params)
			if err != nil {
				return nil, err
			}
			if len(resp.Choices) == 0 {
				return nil, emptyResponseError("OpenAI")
			}
			return &Generation{
				Text: resp.Choices[0].Message.Content,
				Usage: &TokenUsage{
					InputTokens:  resp.Usage.PromptTokens,
					OutputTokens: resp.Usage.CompletionTokens,
					TotalTokens:  resp.Usage.TotalTokens,
				},
			}, nil
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

// ListModels walks every page of the models endpoint
func (o *OpenAIProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := withTimeout(ctx, o.config.Timeout)
	defer cancel()

	models, err := o.modelBreaker.Execute(func() ([]ModelInfo, error) {
		var models []ModelInfo
		iter := o.client.Models.ListAutoPaging(ctx)
		for iter.Next() {
			model := iter.Current()
			models = append(models, ModelInfo{Name: model.ID, Available: true})
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		return models, nil
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to list OpenAI models", err)
	}
	return models, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (o *OpenAIProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{Name: o.config.Model}

	_, err := o.modelBreaker.Execute(func() ([]ModelInfo, error) {
		model, err := o.client.Models.Get(ctx, o.config.Model)
		if err != nil {
			return nil, err
		}
		return []ModelInfo{{Name: model.ID}}, nil
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		o.logger.Warn("Model availability check failed",
			"model", o.config.Model,
			"provider", o.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	return modelInfo
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (o *OpenAIProvider) GetCircuitBreakerStats() map[string]any {
	return breakerStats(o.circuitBreaker, o.modelBreaker)
}

// Close implements AIProvider interface
func (o *OpenAIProvider) Close() error {
	return nil
}
