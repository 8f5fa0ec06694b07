// Package assistant runs the user-facing triggers of a form session: preview,
// export, suggest, score and model listing. Each trigger marks the session
// busy for its whole duration and converts request failures into results.
package assistant

import (
	"context"
	"io"
	"time"

	"resumebuilder/internal/ai"
	"resumebuilder/internal/ats"
	"resumebuilder/internal/errors"
	"resumebuilder/internal/export"
	"resumebuilder/internal/form"
	"resumebuilder/internal/observability"
	"resumebuilder/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// Assistant orchestrates AI requests and exports for form sessions
type Assistant struct {
	gateway  ai.Gateway
	label    string
	exporter *export.Exporter
	om       *observability.ObservabilityManager
	logger   *errors.Logger
}

// Option configures an Assistant
type Option func(*Assistant)

// WithObservability records metrics and spans through om
func WithObservability(om *observability.ObservabilityManager) Option {
	return func(a *Assistant) {
		a.om = om
	}
}

// New creates an assistant. label is the provider name shown in suggestion
// results, for example "Gemini".
func New(gateway ai.Gateway, label string, exporter *export.Exporter, logger *errors.Logger, opts ...Option) *Assistant {
	a := &Assistant{
		gateway:  gateway,
		label:    label,
		exporter: exporter,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Exporter returns the exporter used by Export
func (a *Assistant) Exporter() *export.Exporter {
	return a.exporter
}

// Preview snapshots the session form and keeps the snapshot as the latest preview
func (a *Assistant) Preview(ctx context.Context, sess *form.Session) (types.PreviewSnapshot, error) {
	snap, err := sess.Preview()
	if err != nil {
		a.recordBusy(ctx, "preview", err)
		return types.PreviewSnapshot{}, err
	}
	a.metrics().RecordBusinessMetric(ctx, observability.MetricResumePreviewed, true, a.om)
	return snap, nil
}

// Export writes the current fields of the session as a PDF to w
func (a *Assistant) Export(ctx context.Context, sess *form.Session, w io.Writer) error {
	release, err := a.begin(ctx, sess, "export")
	if err != nil {
		return err
	}
	defer release()

	err = a.exporter.Export(w, sess.Fields())
	a.metrics().RecordBusinessMetric(ctx, observability.MetricResumeExported, err == nil, a.om)
	if err != nil {
		a.logger.LogError(err, "Export failed", "session_id", sess.ID)
		return err
	}
	return nil
}

// Import replaces the session fields with those recovered from a PDF that
// Export produced earlier
func (a *Assistant) Import(ctx context.Context, sess *form.Session, r io.ReaderAt, size int64) (types.ResumeFields, error) {
	release, err := a.begin(ctx, sess, "import")
	if err != nil {
		return types.ResumeFields{}, err
	}
	defer release()

	fields, err := export.Import(r, size)
	if err != nil {
		a.logger.LogError(err, "Import failed", "session_id", sess.ID)
		return types.ResumeFields{}, err
	}
	sess.Replace(fields)
	return fields, nil
}

// Suggest asks the AI service to improve the resume. A request failure is
// reported in the result, not as an error.
func (a *Assistant) Suggest(ctx context.Context, sess *form.Session) (types.SuggestionResult, error) {
	release, err := a.begin(ctx, sess, "suggest")
	if err != nil {
		return types.SuggestionResult{}, err
	}
	defer release()

	var text string
	err = a.track(ctx, "suggest", func(ctx context.Context) (*ai.TokenUsage, error) {
		var usage *ai.TokenUsage
		var genErr error
		text, usage, genErr = a.gateway.Suggest(ctx, sess.Fields())
		return usage, genErr
	})

	result := types.SuggestionResult{Provider: a.label}
	if err != nil {
		a.logger.LogError(err, "Suggestion request failed", "session_id", sess.ID)
		result.Error = errors.UserMessage(err)
	} else {
		result.Text = text
	}
	a.metrics().RecordBusinessMetric(ctx, observability.MetricSuggestion, err == nil, a.om,
		attribute.String("provider", a.label))
	return result, nil
}

// Score asks the AI service for an ATS score and stores the result on the
// session. The previous score is discarded before the request is sent.
func (a *Assistant) Score(ctx context.Context, sess *form.Session) (types.ScoreResult, error) {
	release, err := a.begin(ctx, sess, "score")
	if err != nil {
		return types.ScoreResult{}, err
	}
	defer release()

	sess.SetScore(nil)

	var raw string
	err = a.track(ctx, "score", func(ctx context.Context) (*ai.TokenUsage, error) {
		var usage *ai.TokenUsage
		var genErr error
		raw, usage, genErr = a.gateway.Score(ctx, sess.Fields())
		return usage, genErr
	})

	var result types.ScoreResult
	if err != nil {
		a.logger.LogError(err, "Score request failed", "session_id", sess.ID)
		result = ats.FromError(err)
	} else {
		result = ats.Parse(raw)
	}

	if !result.Score.Available() {
		a.metrics().RecordBusinessMetric(ctx, observability.MetricScoreFallback, err == nil, a.om)
	}
	a.metrics().RecordBusinessMetric(ctx, observability.MetricScore, err == nil, a.om)

	sess.SetScore(&result)
	return result, nil
}

// ListModels enumerates the models offered by the AI service
func (a *Assistant) ListModels(ctx context.Context, sess *form.Session) (types.ModelListResult, error) {
	release, err := a.begin(ctx, sess, "models")
	if err != nil {
		return types.ModelListResult{}, err
	}
	defer release()

	var models []ai.ModelInfo
	err = a.track(ctx, "models", func(ctx context.Context) (*ai.TokenUsage, error) {
		var listErr error
		models, listErr = a.gateway.ListModels(ctx)
		return nil, listErr
	})

	a.metrics().RecordBusinessMetric(ctx, observability.MetricModelsListed, err == nil, a.om)
	if err != nil {
		a.logger.LogError(err, "Model listing failed", "session_id", sess.ID)
		return types.ModelListResult{Error: errors.UserMessage(err)}, nil
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return types.ModelListResult{Models: names}, nil
}

func (a *Assistant) begin(ctx context.Context, sess *form.Session, trigger string) (func(), error) {
	release, err := sess.Begin()
	if err != nil {
		a.recordBusy(ctx, trigger, err)
		return nil, err
	}
	return release, nil
}

func (a *Assistant) recordBusy(ctx context.Context, trigger string, err error) {
	if !errors.IsBusy(err) {
		return
	}
	a.logger.Debug("Trigger rejected while session is busy", "trigger", trigger)
	a.metrics().RecordBusinessMetric(ctx, observability.MetricSessionBusy, false, a.om,
		attribute.String("trigger", trigger))
}

func (a *Assistant) track(ctx context.Context, operation string, fn func(context.Context) (*ai.TokenUsage, error)) error {
	start := time.Now()
	var usage *ai.TokenUsage

	err := a.metrics().TrackAIOperationWithTokens(ctx, operation, func(ctx context.Context) *observability.AIOperationResult {
		var callErr error
		usage, callErr = fn(ctx)
		result := &observability.AIOperationResult{Error: callErr}
		if usage != nil {
			result.TokenUsage = &observability.TokenUsage{
				InputTokens:  usage.InputTokens,
				OutputTokens: usage.OutputTokens,
				TotalTokens:  usage.TotalTokens,
			}
		}
		return result
	}, a.om)

	args := []any{"operation", operation, "duration", time.Since(start)}
	if usage != nil {
		args = append(args, "input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens, "total_tokens", usage.TotalTokens)
	}
	a.logger.Debug("AI request finished", args...)
	return err
}

func (a *Assistant) metrics() *observability.Metrics {
	return a.om.GetMetrics()
}
