package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Operation names the AI-backed actions of the resume builder
const (
	OperationSuggest = "suggest"
	OperationScore   = "score"
	OperationModels  = "models"
)

// Config holds all application configuration
// API Key Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (RESUMEBUILDER_AI_APIKEY, then GEMINI_API_KEY / OPENAI_API_KEY)
// 4. Default values - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Export        ExportConfig        `mapstructure:"export"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds AI service configuration
type AIConfig struct {
	// Global/fallback configuration
	Provider         string               `mapstructure:"provider" validate:"oneof=gemini openai"`
	Model            string               `mapstructure:"model" validate:"required"`
	BaseURL          string               `mapstructure:"baseURL" validate:"omitempty,url"`
	Timeout          time.Duration        `mapstructure:"timeout" validate:"gte=0"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       int                  `mapstructure:"maxRetries" validate:"gte=0,lte=10"`
	Temperature      float32              `mapstructure:"temperature" validate:"gte=0,lte=2"`
	UseSystemPrompts bool                 `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	PromptReload     PromptReloadConfig   `mapstructure:"promptReload"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`

	// Operation-specific configurations
	Suggest OperationAIConfig `mapstructure:"suggest"`
	Score   OperationAIConfig `mapstructure:"score"`
	Models  OperationAIConfig `mapstructure:"models"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`                                  // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`                              // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval" validate:"gte=0"`                // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout" validate:"gte=0"`                 // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`                              // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold" validate:"gte=0,lte=1"` // Failure ratio threshold (0.0-1.0)
}

// OperationAIConfig holds AI configuration for specific operations.
// Nil pointers and empty strings fall back to the global AIConfig values.
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider" validate:"omitempty,oneof=gemini openai"`
	Model            string               `mapstructure:"model"`
	BaseURL          string               `mapstructure:"baseURL" validate:"omitempty,url"`
	Timeout          *time.Duration       `mapstructure:"timeout" validate:"omitempty,gte=0"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries" validate:"omitempty,gte=0,lte=10"`
	Temperature      *float32             `mapstructure:"temperature" validate:"omitempty,gte=0,lte=2"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds configuration for customizable prompts
type PromptConfig struct {
	SystemPrompts SystemPrompts `mapstructure:"systemPrompts"`
	UserPrompts   UserPrompts   `mapstructure:"userPrompts"`
}

// SystemPrompts contains system-level instructions
type SystemPrompts struct {
	Suggest     string `mapstructure:"suggest"`
	SuggestFile string `mapstructure:"suggestFile"`
	Score       string `mapstructure:"score"`
	ScoreFile   string `mapstructure:"scoreFile"`
}

// UserPrompts contains user-level prompt templates.
// Templates use text/template syntax over the resume fields, e.g. {{.Name}}.
type UserPrompts struct {
	Suggest     string `mapstructure:"suggest"`
	SuggestFile string `mapstructure:"suggestFile"`
	Score       string `mapstructure:"score"`
	ScoreFile   string `mapstructure:"scoreFile"`
}

// PromptReloadConfig controls hot reloading of prompt files while serving
type PromptReloadConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay" validate:"gte=0"`
}

// ExportConfig controls the PDF document layout
type ExportConfig struct {
	FileName      string  `mapstructure:"fileName" validate:"required,endswith=.pdf"`
	PageSize      string  `mapstructure:"pageSize" validate:"oneof=A3 A4 A5 Letter Legal"`
	Orientation   string  `mapstructure:"orientation" validate:"oneof=P L"`
	FontFamily    string  `mapstructure:"fontFamily" validate:"oneof=Helvetica Arial Times Courier"`
	TitleFontSize float64 `mapstructure:"titleFontSize" validate:"gt=0"`
	BodyFontSize  float64 `mapstructure:"bodyFontSize" validate:"gt=0"`
	LeftMargin    float64 `mapstructure:"leftMargin" validate:"gte=0"`
	TopMargin     float64 `mapstructure:"topMargin" validate:"gte=0"`
	BottomMargin  float64 `mapstructure:"bottomMargin" validate:"gte=0"`
	ContentWidth  float64 `mapstructure:"contentWidth" validate:"gt=0"`
	LineHeight    float64 `mapstructure:"lineHeight" validate:"gte=0"` // 0 derives it from the body font size
	Author        string  `mapstructure:"author"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port" validate:"required,numeric"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout" validate:"gte=0"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout" validate:"gte=0"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout" validate:"gte=0"`
	MaxRequestSize int64         `mapstructure:"maxRequestSize" validate:"gt=0"`

	// TLS Configuration
	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`

	// Form sessions
	Sessions SessionConfig `mapstructure:"sessions"`
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Mode       string           `mapstructure:"mode" validate:"oneof=disabled server"`
	CertFile   string           `mapstructure:"certFile"`
	KeyFile    string           `mapstructure:"keyFile"`
	MinVersion string           `mapstructure:"minVersion" validate:"omitempty,oneof=1.2 1.3"`
	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig holds configuration for automatic certificate reloading
type AutoReloadConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay" validate:"gte=0"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`                          // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin" validate:"gte=0"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity" validate:"gte=0"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`                             // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`                         // Enable per-API-key rate limiting
	Window         time.Duration `mapstructure:"window"`                           // Rate limiting window duration
}

// SessionConfig controls the lifetime of server-side form sessions
type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl" validate:"gte=0"`
	CleanupInterval time.Duration `mapstructure:"cleanupInterval" validate:"gte=0"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel" validate:"oneof=debug info warn error"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats" validate:"min=1,dive,oneof=json text markdown html"`
	MaxFileSize      int64    `mapstructure:"maxFileSize" validate:"gt=0"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate" validate:"gte=0,lte=1"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate" validate:"gte=0,lte=1"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	AIOperations    AIOperationsMetricsConfig   `mapstructure:"aiOperations"`
	BusinessMetrics BusinessMetricsConfig       `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// AIOperationsMetricsConfig holds AI operation metrics configuration
type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
	TrackModelInfo  bool `mapstructure:"trackModelInfo"`
}

// BusinessMetricsConfig holds business metrics configuration
type BusinessMetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	TrackSuccessRates bool `mapstructure:"trackSuccessRates"`
	TrackContentSizes bool `mapstructure:"trackContentSizes"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	TrackRateLimits  bool `mapstructure:"trackRateLimits"`
	TrackCertReloads bool `mapstructure:"trackCertReloads"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return loadConfig(newViper())
}

// LoadConfigFile loads configuration from an explicit file path
func LoadConfigFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return loadConfig(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("RESUMEBUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'RESUMEBUILDER'")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/resumebuilder/")
	v.AddConfigPath("$HOME/.resumebuilder")
	v.AddConfigPath(".")
	return v
}

func loadConfig(v *viper.Viper) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if c.Server.TLS.Mode == "server" && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		return fmt.Errorf("TLS certificate and key files are required for server mode")
	}

	return nil
}

// formatValidationError flattens validator errors into one readable message
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s failed '%s=%s' (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			messages = append(messages, fmt.Sprintf("%s failed '%s'", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%s", strings.Join(messages, "; "))
}
