package ai

import (
	"context"
	"fmt"

	"resumebuilder/internal/config"
	"resumebuilder/internal/errors"
	"resumebuilder/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Service handles AI requests for one operation
type Service struct {
	Provider  AIProvider // Exported for access from server package
	config    *config.OperationAIConfig
	operation string
	prompts   *config.PromptStore
	logger    *errors.Logger
}

// NewService creates a new AI service instance with configuration for a specific operation
func NewService(cfg *config.OperationAIConfig, operationType string, prompts *config.PromptStore, logger *errors.Logger) (*Service, error) {
	var provider AIProvider
	var err error

	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation_type", operationType,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			fmt.Sprintf("No API key configured for %s", ProviderLabel(cfg.Provider)), nil).
			WithContext("operation", operationType)
	}

	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, operationType, logger)
	case "openai":
		provider, err = NewOpenAIProvider(cfg, operationType, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	return newServiceWithProvider(provider, cfg, operationType, prompts, logger), nil
}

func newServiceWithProvider(provider AIProvider, cfg *config.OperationAIConfig, operationType string, prompts *config.PromptStore, logger *errors.Logger) *Service {
	return &Service{
		Provider:  provider,
		config:    cfg,
		operation: operationType,
		prompts:   prompts,
		logger:    logger,
	}
}

// Suggest asks the model for improvements and a rewritten summary
func (s *Service) Suggest(ctx context.Context, fields types.ResumeFields) (string, *TokenUsage, error) {
	return s.generate(ctx, config.OperationSuggest, fields)
}

// Score asks the model for an ATS score. The raw response is returned unparsed.
func (s *Service) Score(ctx context.Context, fields types.ResumeFields) (string, *TokenUsage, error) {
	return s.generate(ctx, config.OperationScore, fields)
}

// ListModels returns the models available to the configured key
func (s *Service) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return s.Provider.ListModels(ctx)
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

func (s *Service) generate(ctx context.Context, operation string, fields types.ResumeFields) (string, *TokenUsage, error) {
	systemPrompt, userPrompt, err := buildPrompts(operation, s.config.CustomPrompts, s.prompts.Get(operation), fields)
	if err != nil {
		return "", nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Invalid prompt configuration", err)
	}

	gen, err := s.Provider.Generate(ctx, Request{
		Operation: operation,
		System:    systemPrompt,
		User:      userPrompt,
	})
	if err != nil {
		return "", nil, err
	}
	return gen.Text, gen.Usage, nil
}

// recordUsage adds token counts to the span
func recordUsage(span trace.Span, usage *TokenUsage) {
	if usage == nil {
		return
	}
	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)
}
