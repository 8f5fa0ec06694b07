package config

import (
	"fmt"
	"os"
)

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.BaseURL == "" {
		opCfg.BaseURL = c.AI.BaseURL
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		if opCfg.Provider == c.AI.Provider {
			opCfg.APIKey = c.AI.APIKey
		} else {
			opCfg.APIKey = apiKeyFromEnv(opCfg.Provider)
		}
	}
	if opCfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.UseSystemPrompts == nil {
		useSystem := c.AI.UseSystemPrompts
		opCfg.UseSystemPrompts = &useSystem
	}
	if opCfg.CircuitBreaker == (CircuitBreakerConfig{}) {
		opCfg.CircuitBreaker = c.AI.CircuitBreaker
	}
}

// GetSuggestConfig returns the AI configuration for suggestion requests with fallback to global config
func (c *Config) GetSuggestConfig() OperationAIConfig {
	config := c.AI.Suggest
	c.applyOperationDefaults(&config)

	if config.CustomPrompts.SystemPrompts.Suggest == "" {
		config.CustomPrompts.SystemPrompts.Suggest = c.AI.CustomPrompts.SystemPrompts.Suggest
	}
	if config.CustomPrompts.UserPrompts.Suggest == "" {
		config.CustomPrompts.UserPrompts.Suggest = c.AI.CustomPrompts.UserPrompts.Suggest
	}
	if config.CustomPrompts.SystemPrompts.SuggestFile == "" {
		config.CustomPrompts.SystemPrompts.SuggestFile = c.AI.CustomPrompts.SystemPrompts.SuggestFile
	}
	if config.CustomPrompts.UserPrompts.SuggestFile == "" {
		config.CustomPrompts.UserPrompts.SuggestFile = c.AI.CustomPrompts.UserPrompts.SuggestFile
	}

	return config
}

// GetScoreConfig returns the AI configuration for ATS scoring with fallback to global config
func (c *Config) GetScoreConfig() OperationAIConfig {
	config := c.AI.Score
	c.applyOperationDefaults(&config)

	if config.CustomPrompts.SystemPrompts.Score == "" {
		config.CustomPrompts.SystemPrompts.Score = c.AI.CustomPrompts.SystemPrompts.Score
	}
	if config.CustomPrompts.UserPrompts.Score == "" {
		config.CustomPrompts.UserPrompts.Score = c.AI.CustomPrompts.UserPrompts.Score
	}
	if config.CustomPrompts.SystemPrompts.ScoreFile == "" {
		config.CustomPrompts.SystemPrompts.ScoreFile = c.AI.CustomPrompts.SystemPrompts.ScoreFile
	}
	if config.CustomPrompts.UserPrompts.ScoreFile == "" {
		config.CustomPrompts.UserPrompts.ScoreFile = c.AI.CustomPrompts.UserPrompts.ScoreFile
	}

	return config
}

// GetModelsConfig returns the AI configuration for model listing with fallback to global config
func (c *Config) GetModelsConfig() OperationAIConfig {
	config := c.AI.Models
	c.applyOperationDefaults(&config)
	return config
}

// GetOperationConfig returns the derived configuration for a named operation
func (c *Config) GetOperationConfig(operation string) (OperationAIConfig, error) {
	switch operation {
	case OperationSuggest:
		return c.GetSuggestConfig(), nil
	case OperationScore:
		return c.GetScoreConfig(), nil
	case OperationModels:
		return c.GetModelsConfig(), nil
	default:
		return OperationAIConfig{}, fmt.Errorf("unknown AI operation: %s", operation)
	}
}

// apiKeyFromEnv returns the conventional API key variable for a provider
func apiKeyFromEnv(provider string) string {
	switch provider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}
