package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyAIKeyFallbacks()
	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyAIKeyFallbacks reads the provider's conventional key variable when no key is configured
func (c *Config) applyAIKeyFallbacks() {
	if c.AI.APIKey == "" {
		c.AI.APIKey = apiKeyFromEnv(c.AI.Provider)
	}
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("RESUMEBUILDER_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

func splitAndTrim(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// MaskSecret keeps the first and last four characters of long secrets
func MaskSecret(value string) string {
	switch {
	case len(value) > 8:
		return value[:4] + "****" + value[len(value)-4:]
	case len(value) > 0:
		return "****"
	default:
		return ""
	}
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"RESUMEBUILDER_AI_APIKEY",
		"RESUMEBUILDER_AI_PROVIDER",
		"RESUMEBUILDER_AI_MODEL",
		"RESUMEBUILDER_EXPORT_FILENAME",
		"RESUMEBUILDER_SERVER_PORT",
		"RESUMEBUILDER_SERVER_HOST",
		"RESUMEBUILDER_APP_LOGLEVEL",
		"RESUMEBUILDER_VAULT_ENABLED",
		"GEMINI_API_KEY",
		"OPENAI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=%s", envVar, MaskSecret(value))
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Printf("[CONFIG] AI API Key: %s", MaskSecret(c.AI.APIKey))
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Export File: %s", c.Export.FileName)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	log.Println("[CONFIG] === Operation-Specific AI Configurations ===")
	log.Printf("[CONFIG] Suggest - Provider: %s, Model: %s", c.AI.Suggest.Provider, c.AI.Suggest.Model)
	log.Printf("[CONFIG] Score - Provider: %s, Model: %s", c.AI.Score.Provider, c.AI.Score.Model)
	log.Printf("[CONFIG] Models - Provider: %s, Model: %s", c.AI.Models.Provider, c.AI.Models.Model)

	log.Println("[CONFIG] =====================================")
}
