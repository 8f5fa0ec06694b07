package ai

import (
	"context"

	"resumebuilder/internal/types"
)

// AIProvider interface for different AI implementations
type AIProvider interface {
	Generate(ctx context.Context, req Request) (*Generation, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	Close() error
}

// Gateway is the set of AI requests the resume form can trigger
type Gateway interface {
	Suggest(ctx context.Context, fields types.ResumeFields) (string, *TokenUsage, error)
	Score(ctx context.Context, fields types.ResumeFields) (string, *TokenUsage, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Request is one text generation call
type Request struct {
	Operation string
	System    string
	User      string
}

// Generation is the text produced by a provider
type Generation struct {
	Text  string
	Usage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
