package formatters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"resumebuilder/internal/types"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Data types known to the registry
const (
	TypePreview    = "PreviewSnapshot"
	TypeScore      = "ScoreResult"
	TypeSuggestion = "SuggestionResult"
	TypeModels     = "ModelListResult"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "any", &TextFormatter{})

	markdown := map[string]Formatter{
		TypePreview:    &PreviewMarkdownFormatter{},
		TypeScore:      &ScoreMarkdownFormatter{},
		TypeSuggestion: &SuggestionMarkdownFormatter{},
		TypeModels:     &ModelsMarkdownFormatter{},
	}
	for dataType, f := range markdown {
		registry.RegisterFormatter("markdown", dataType, f)
		registry.RegisterFormatter("html", dataType, NewHTMLFormatter(f))
	}

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.PreviewSnapshot:
		return TypePreview
	case types.ScoreResult:
		return TypeScore
	case types.SuggestionResult:
		return TypeSuggestion
	case types.ModelListResult:
		return TypeModels
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// TextFormatter renders results exactly as the interactive form shows them
type TextFormatter struct{}

func (tf *TextFormatter) Format(data any) (string, error) {
	switch v := data.(type) {
	case types.PreviewSnapshot:
		return strings.Join(v.Lines(), "\n"), nil
	case types.ScoreResult:
		return v.Display(), nil
	case types.SuggestionResult:
		return v.Display(), nil
	case types.ModelListResult:
		return v.Display(), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", fmt.Errorf("no text rendering for %T", data)
}

func (tf *TextFormatter) SupportedType() string {
	return "any"
}

// PreviewMarkdownFormatter handles markdown formatting for previews
type PreviewMarkdownFormatter struct{}

func (pmf *PreviewMarkdownFormatter) Format(data any) (string, error) {
	preview, ok := data.(types.PreviewSnapshot)
	if !ok {
		return "", fmt.Errorf("expected PreviewSnapshot, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# ")
	output.WriteString(preview.Display(types.FieldName))
	output.WriteString("\n\n")
	output.WriteString(fmt.Sprintf("**Email:** %s  \n", preview.Display(types.FieldEmail)))
	output.WriteString(fmt.Sprintf("**Phone:** %s\n\n", preview.Display(types.FieldPhone)))

	for _, f := range []types.Field{types.FieldSummary, types.FieldExperience, types.FieldEducation, types.FieldSkills} {
		output.WriteString("## ")
		output.WriteString(f.Label())
		output.WriteString("\n\n")
		output.WriteString(preview.Display(f))
		output.WriteString("\n\n")
	}

	return strings.TrimRight(output.String(), "\n") + "\n", nil
}

func (pmf *PreviewMarkdownFormatter) SupportedType() string {
	return TypePreview
}

// ScoreMarkdownFormatter handles markdown formatting for ATS scores
type ScoreMarkdownFormatter struct{}

func (smf *ScoreMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ScoreResult)
	if !ok {
		return "", fmt.Errorf("expected ScoreResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# ATS Score\n\n")
	if result.Score.Available() {
		output.WriteString(fmt.Sprintf("**Score:** %s/100\n\n", result.Score))
	} else {
		output.WriteString(fmt.Sprintf("**Score:** %s\n\n", result.Score))
	}
	output.WriteString("## Explanation\n\n")
	output.WriteString(result.Explanation)
	output.WriteString("\n")

	return output.String(), nil
}

func (smf *ScoreMarkdownFormatter) SupportedType() string {
	return TypeScore
}

// SuggestionMarkdownFormatter handles markdown formatting for suggestions
type SuggestionMarkdownFormatter struct{}

func (smf *SuggestionMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.SuggestionResult)
	if !ok {
		return "", fmt.Errorf("expected SuggestionResult, got %T", data)
	}

	if result.Failed() {
		return fmt.Sprintf("# %s Suggestion\n\n> **Error:** %s\n", result.Provider, result.Error), nil
	}
	return fmt.Sprintf("# %s Suggestion\n\n%s\n", result.Provider, result.Text), nil
}

func (smf *SuggestionMarkdownFormatter) SupportedType() string {
	return TypeSuggestion
}

// ModelsMarkdownFormatter handles markdown formatting for model listings
type ModelsMarkdownFormatter struct{}

func (mmf *ModelsMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ModelListResult)
	if !ok {
		return "", fmt.Errorf("expected ModelListResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Available Models\n\n")
	if result.Failed() {
		output.WriteString(fmt.Sprintf("> **Error:** %s\n", result.Error))
		return output.String(), nil
	}
	for _, model := range result.Models {
		output.WriteString(fmt.Sprintf("- `%s`\n", model))
	}

	return output.String(), nil
}

func (mmf *ModelsMarkdownFormatter) SupportedType() string {
	return TypeModels
}

// HTMLFormatter renders the output of a markdown formatter as HTML
type HTMLFormatter struct {
	markdown Formatter
	md       goldmark.Markdown
}

// NewHTMLFormatter wraps a markdown formatter. Raw HTML in the markdown is
// omitted from the output.
func NewHTMLFormatter(markdown Formatter) *HTMLFormatter {
	return &HTMLFormatter{
		markdown: markdown,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Linkify),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

func (hf *HTMLFormatter) Format(data any) (string, error) {
	source, err := hf.markdown.Format(data)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := hf.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return buf.String(), nil
}

func (hf *HTMLFormatter) SupportedType() string {
	return hf.markdown.SupportedType()
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
