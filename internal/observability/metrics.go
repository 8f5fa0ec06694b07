package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Business metric types accepted by RecordBusinessMetric
const (
	MetricResumePreviewed = "resume_previewed"
	MetricResumeExported  = "resume_exported"
	MetricSuggestion      = "suggestion_generated"
	MetricScore           = "score_computed"
	MetricScoreFallback   = "score_fallback"
	MetricModelsListed    = "models_listed"
	MetricSessionBusy     = "session_busy"
	MetricRateLimitHit    = "rate_limit_hit"
	MetricCertReload      = "cert_reloaded"
)

// Metrics holds all custom metrics.
// Instruments left nil are skipped when recording.
type Metrics struct {
	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Business metrics
	ResumesPreviewed metric.Int64Counter
	ResumesExported  metric.Int64Counter
	Suggestions      metric.Int64Counter
	Scores           metric.Int64Counter
	ScoreFallbacks   metric.Int64Counter
	ModelListings    metric.Int64Counter
	BusyRejections   metric.Int64Counter

	// Certificate metrics
	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	if err := m.createAIMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createBusinessMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createCertificateMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createRateLimitMetrics(meter); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) createAIMetrics(meter metric.Meter) error {
	var err error

	m.AIProcessingTime, err = meter.Float64Histogram(
		"resumebuilder_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	m.AIRequestCount, err = meter.Int64Counter(
		"resumebuilder_ai_requests_total",
		metric.WithDescription("Total number of AI requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	m.AIErrorCount, err = meter.Int64Counter(
		"resumebuilder_ai_errors_total",
		metric.WithDescription("Total number of AI request errors"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	m.AITokenUsage, err = meter.Int64Histogram(
		"resumebuilder_ai_tokens_used_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	return nil
}

func (m *Metrics) createBusinessMetrics(meter metric.Meter) error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&m.ResumesPreviewed, "resumebuilder_previews_total", "Total number of resume previews rendered"},
		{&m.ResumesExported, "resumebuilder_exports_total", "Total number of resumes exported to PDF"},
		{&m.Suggestions, "resumebuilder_suggestions_total", "Total number of AI suggestion requests"},
		{&m.Scores, "resumebuilder_scores_total", "Total number of ATS score requests"},
		{&m.ScoreFallbacks, "resumebuilder_score_fallbacks_total", "Total number of ATS scores that fell back to N/A"},
		{&m.ModelListings, "resumebuilder_model_listings_total", "Total number of model listing requests"},
		{&m.BusyRejections, "resumebuilder_busy_rejections_total", "Total number of requests rejected while a session was busy"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description))
		if err != nil {
			return fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
		*c.target = counter
	}
	return nil
}

func (m *Metrics) createCertificateMetrics(meter metric.Meter) error {
	var err error

	m.CertReloadCount, err = meter.Int64Counter(
		"resumebuilder_cert_reloads_total",
		metric.WithDescription("Total number of certificate reloads"),
	)
	if err != nil {
		return fmt.Errorf("failed to create certificate reload count metric: %w", err)
	}

	m.CertExpiryTime, err = meter.Float64Gauge(
		"resumebuilder_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create certificate expiry time metric: %w", err)
	}

	return nil
}

func (m *Metrics) createRateLimitMetrics(meter metric.Meter) error {
	var err error

	m.RateLimitHits, err = meter.Int64Counter(
		"resumebuilder_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return nil
}

// TrackAIOperationWithTokens instruments an AI operation with tracing and metrics
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult, om *ObservabilityManager) error {
	if m == nil || m.AIProcessingTime == nil {
		// Metrics not initialized, just run the function
		result := fn(ctx)
		if result != nil {
			return result.Error
		}
		return nil
	}

	tracer := otel.Tracer("resumebuilder.ai")
	ctx, span := tracer.Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if m.isAIMetricsEnabled(om) {
		m.recordAIMetrics(ctx, operation, err, duration, result, om, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	return err
}

func (m *Metrics) isAIMetricsEnabled(om *ObservabilityManager) bool {
	if om == nil || om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.CustomMetrics.AIOperations.Enabled
}

func (m *Metrics) recordAIMetrics(ctx context.Context, operation string, err error, duration float64, result *AIOperationResult, om *ObservabilityManager, span oteltrace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}

	if om == nil || om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.TrackDuration {
		m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	}
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.recordTokenUsage(ctx, result, attrs, om, span)

	span.SetAttributes(attrs...)
}

// recordTokenUsage records token usage metrics and span attributes
func (m *Metrics) recordTokenUsage(ctx context.Context, result *AIOperationResult, attrs []attribute.KeyValue, om *ObservabilityManager, span oteltrace.Span) {
	if result == nil || result.TokenUsage == nil || m.AITokenUsage == nil {
		return
	}

	trackTokenUsage := om == nil || om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.TrackTokenUsage
	if trackTokenUsage {
		usage := result.TokenUsage
		for _, tt := range []struct {
			tokenType string
			value     int64
		}{
			{"input", usage.InputTokens},
			{"output", usage.OutputTokens},
			{"total", usage.TotalTokens},
		} {
			tokenAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
			tokenAttrs = append(tokenAttrs, attrs...)
			tokenAttrs = append(tokenAttrs, attribute.String("token_type", tt.tokenType))
			m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(tokenAttrs...))
		}
	}

	span.SetAttributes(
		attribute.Int64("ai.tokens.input", result.TokenUsage.InputTokens),
		attribute.Int64("ai.tokens.output", result.TokenUsage.OutputTokens),
		attribute.Int64("ai.tokens.total", result.TokenUsage.TotalTokens),
	)
}

// RecordBusinessMetric records business-specific metrics
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, om *ObservabilityManager, attributes ...attribute.KeyValue) {
	if m == nil {
		return
	}

	attrs := append([]attribute.KeyValue{
		attribute.Bool("success", success),
	}, attributes...)

	counter, infra := m.counterFor(metricType)
	if counter == nil || !m.enabled(om, metricType, infra) {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCertExpiry records the seconds left before the serving certificate expires
func (m *Metrics) RecordCertExpiry(ctx context.Context, notAfter time.Time, om *ObservabilityManager) {
	if m == nil || m.CertExpiryTime == nil || !m.enabled(om, MetricCertReload, true) {
		return
	}
	m.CertExpiryTime.Record(ctx, time.Until(notAfter).Seconds())
}

func (m *Metrics) counterFor(metricType string) (metric.Int64Counter, bool) {
	switch metricType {
	case MetricResumePreviewed:
		return m.ResumesPreviewed, false
	case MetricResumeExported:
		return m.ResumesExported, false
	case MetricSuggestion:
		return m.Suggestions, false
	case MetricScore:
		return m.Scores, false
	case MetricScoreFallback:
		return m.ScoreFallbacks, false
	case MetricModelsListed:
		return m.ModelListings, false
	case MetricSessionBusy:
		return m.BusyRejections, false
	case MetricRateLimitHit:
		return m.RateLimitHits, true
	case MetricCertReload:
		return m.CertReloadCount, true
	}
	return nil, false
}

func (m *Metrics) enabled(om *ObservabilityManager, metricType string, infra bool) bool {
	if om == nil || om.fullConfig == nil {
		return true
	}
	custom := om.fullConfig.Observability.CustomMetrics
	if !infra {
		return custom.BusinessMetrics.Enabled
	}
	if !custom.Infrastructure.Enabled {
		return false
	}
	switch metricType {
	case MetricRateLimitHit:
		return custom.Infrastructure.TrackRateLimits
	case MetricCertReload:
		return custom.Infrastructure.TrackCertReloads
	}
	return true
}
