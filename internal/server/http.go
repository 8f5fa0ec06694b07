package server

import (
	"time"

	"resumebuilder/internal/ai"
	"resumebuilder/internal/assistant"
	"resumebuilder/internal/config"
	"resumebuilder/internal/errors"
	"resumebuilder/internal/form"
	"resumebuilder/internal/formatters"
	"resumebuilder/internal/observability"
	"resumebuilder/internal/types"
	"resumebuilder/internal/watcher"
)

// CreateSessionRequest is the optional body of POST /sessions
type CreateSessionRequest struct {
	Fields map[string]string `json:"fields" validate:"omitempty,dive,max=20000"`
}

// UpdateFieldsRequest is the body of PATCH /sessions/{id}/fields
type UpdateFieldsRequest struct {
	Fields map[string]string `json:"fields" validate:"required,min=1,dive,max=20000"`
}

// SessionResponse describes a form session
type SessionResponse struct {
	ID      string                 `json:"id"`
	Fields  types.ResumeFields     `json:"fields"`
	Busy    bool                   `json:"busy"`
	Preview *types.PreviewSnapshot `json:"preview,omitempty"`
	Score   *types.ScoreResult     `json:"score,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// AIHealth is the view of the AI client used by the health endpoint
type AIHealth interface {
	Services() map[string]*ai.Service
	Unavailable() map[string]error
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig
	certs     *certReloader

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Form sessions and the triggers that act on them
	Sessions   *form.Store
	Assistant  *assistant.Assistant
	AI         AIHealth
	Formatters *formatters.FormatterRegistry

	Prompts       *config.PromptStore
	promptWatcher *watcher.FileWatcher

	om     *observability.ObservabilityManager
	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
	Sessions       config.SessionConfig
}

// Dependencies are the collaborators the server delegates to
type Dependencies struct {
	Assistant     *assistant.Assistant
	AI            AIHealth
	Prompts       *config.PromptStore
	Observability *observability.ObservabilityManager
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *errors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Sessions:       form.NewStore(cfg.Sessions.TTL, cfg.Sessions.CleanupInterval, logger),
		Assistant:      deps.Assistant,
		AI:             deps.AI,
		Formatters:     formatters.GlobalRegistry,
		Prompts:        deps.Prompts,
		om:             deps.Observability,
		Logger:         logger,
	}
}
