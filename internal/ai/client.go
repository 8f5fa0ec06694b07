package ai

import (
	"context"
	stderrors "errors"

	"resumebuilder/internal/config"
	"resumebuilder/internal/errors"
	"resumebuilder/internal/types"
)

// Client routes each AI request to the service configured for its operation
type Client struct {
	services map[string]*Service
	initErrs map[string]error
	label    string
	logger   *errors.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient builds one service per operation. A missing API key does not
// fail construction; requests for that operation return the error instead.
func NewClient(cfg *config.Config, prompts *config.PromptStore, logger *errors.Logger) (*Client, error) {
	c := &Client{
		services: make(map[string]*Service),
		initErrs: make(map[string]error),
		logger:   logger,
	}

	for _, op := range []string{config.OperationSuggest, config.OperationScore, config.OperationModels} {
		opCfg, err := cfg.GetOperationConfig(op)
		if err != nil {
			return nil, err
		}
		if op == config.OperationSuggest {
			c.label = ProviderLabel(opCfg.Provider)
		}

		service, err := NewService(&opCfg, op, prompts, logger)
		if err != nil {
			var appErr *errors.AppError
			if stderrors.As(err, &appErr) && appErr.Code == errors.ErrCodeMissingAPIKey {
				logger.Warn("AI operation unavailable until an API key is configured",
					"operation", op, "provider", opCfg.Provider)
				c.initErrs[op] = err
				continue
			}
			c.Close()
			return nil, err
		}
		c.services[op] = service
	}

	return c, nil
}

// Label returns the display name of the provider answering suggestions
func (c *Client) Label() string {
	return c.label
}

// Services returns the initialized services keyed by operation
func (c *Client) Services() map[string]*Service {
	return c.services
}

// Unavailable returns the operations whose service could not be created,
// with the reason
func (c *Client) Unavailable() map[string]error {
	return c.initErrs
}

func (c *Client) service(op string) (*Service, error) {
	if s, ok := c.services[op]; ok {
		return s, nil
	}
	if err, ok := c.initErrs[op]; ok {
		return nil, err
	}
	return nil, errors.NewInternalError(errors.ErrCodeAIServiceFailed, "AI service not initialized for "+op, nil)
}

// Suggest implements Gateway
func (c *Client) Suggest(ctx context.Context, fields types.ResumeFields) (string, *TokenUsage, error) {
	s, err := c.service(config.OperationSuggest)
	if err != nil {
		return "", nil, err
	}
	return s.Suggest(ctx, fields)
}

// Score implements Gateway
func (c *Client) Score(ctx context.Context, fields types.ResumeFields) (string, *TokenUsage, error) {
	s, err := c.service(config.OperationScore)
	if err != nil {
		return "", nil, err
	}
	return s.Score(ctx, fields)
}

// ListModels implements Gateway
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	s, err := c.service(config.OperationModels)
	if err != nil {
		return nil, err
	}
	return s.ListModels(ctx)
}

// Close releases every provider
func (c *Client) Close() {
	for op, s := range c.services {
		if err := s.Provider.Close(); err != nil {
			c.logger.Warn("Failed to close AI provider", "operation", op, "error", err)
		}
	}
}

// ProviderLabel returns the display name of a provider
func ProviderLabel(provider string) string {
	switch provider {
	case "gemini":
		return "Gemini"
	case "openai":
		return "OpenAI"
	default:
		return provider
	}
}
