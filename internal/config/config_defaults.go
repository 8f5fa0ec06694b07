package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	setAIDefaults(v)
	setExportDefaults(v)
	setServerDefaults(v)
	setAppDefaults(v)
	setVaultDefaults(v)
	setObservabilityDefaults(v)
}

func setAIDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.baseURL", "")
	v.SetDefault("ai.timeout", time.Duration(0)) // no per-request timeout
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 0)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.useSystemPrompts", false)

	v.SetDefault("ai.promptReload.enabled", false)
	v.SetDefault("ai.promptReload.debounceDelay", time.Second)

	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	for _, op := range []string{OperationSuggest, OperationScore, OperationModels} {
		v.SetDefault("ai."+op+".provider", "")
		v.SetDefault("ai."+op+".model", "")
		v.SetDefault("ai."+op+".apiKey", "")
	}
	// Scoring asks for strict JSON, a cooler temperature keeps the shape stable
	v.SetDefault("ai.score.temperature", 0.2)
}

func setExportDefaults(v *viper.Viper) {
	v.SetDefault("export.fileName", "resume.pdf")
	v.SetDefault("export.pageSize", "A4")
	v.SetDefault("export.orientation", "P")
	v.SetDefault("export.fontFamily", "Helvetica")
	v.SetDefault("export.titleFontSize", 18)
	v.SetDefault("export.bodyFontSize", 12)
	v.SetDefault("export.leftMargin", 10)
	v.SetDefault("export.topMargin", 20)
	v.SetDefault("export.bottomMargin", 15)
	v.SetDefault("export.contentWidth", 180)
	v.SetDefault("export.lineHeight", 0)
	v.SetDefault("export.author", "")
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 0) // AI calls have no deadline
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 1024*1024)

	v.SetDefault("server.tls.mode", "disabled") // disabled, server
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.autoReload.enabled", true)
	v.SetDefault("server.tls.autoReload.debounceDelay", time.Second)

	v.SetDefault("server.apiKeys", []string{})

	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	v.SetDefault("server.sessions.ttl", 30*time.Minute)
	v.SetDefault("server.sessions.cleanupInterval", 5*time.Minute)
}

func setAppDefaults(v *viper.Viper) {
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown", "html"})
	v.SetDefault("app.maxFileSize", 1024*1024) // 1MB
}

func setVaultDefaults(v *viper.Viper) {
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.openaiKey", "")
}

func setObservabilityDefaults(v *viper.Viper) {
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "resumebuilder")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackModelInfo", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackSuccessRates", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackContentSizes", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackCertReloads", true)

	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
