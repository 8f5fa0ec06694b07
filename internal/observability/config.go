package observability

import (
	"net/http"

	"resumebuilder/internal/config"

	"go.opentelemetry.io/otel/attribute"
)

// GetObservabilityConfig creates observability config from provided config
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		// Observability stays off without configuration
		return ObservabilityConfig{
			ServiceName:    "resumebuilder",
			ServiceVersion: version,
			SampleRate:     1.0,
			Prometheus:     GetPrometheusConfig(nil),
		}
	}

	obsConfig := cfg.Observability

	serviceVersion := obsConfig.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	serviceName := obsConfig.ServiceName
	if serviceName == "" {
		serviceName = "resumebuilder"
	}

	return ObservabilityConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Enabled:        obsConfig.Enabled,
		ConsoleOutput:  obsConfig.ConsoleOutput,
		PrettyPrint:    obsConfig.Console.PrettyPrint,
		SampleRate:     obsConfig.SampleRate,
		Prometheus:     GetPrometheusConfig(cfg),
	}
}

// ObservabilityMiddleware wraps a handler func in a span named after the request path
func ObservabilityMiddleware(om *ObservabilityManager) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if om != nil && om.config.Enabled {
				tracer := om.Tracer("resumebuilder.http")
				ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
				defer span.End()

				span.SetAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.url", r.URL.String()),
					attribute.String("http.user_agent", r.UserAgent()),
				)

				r = r.WithContext(ctx)
			}

			next(w, r)
		}
	}
}
