package ai

import (
	"fmt"
	"strings"
	"text/template"

	"resumebuilder/internal/config"
	"resumebuilder/internal/types"
)

// SystemPrompts contains system-level instructions for AI interactions.
// They are sent only when useSystemPrompts is enabled.
type SystemPrompts struct {
	Suggest string
	Score   string
}

// UserPrompts contains user prompt templates rendered over the resume fields
type UserPrompts struct {
	Suggest string
	Score   string
}

// DefaultSystemPrompts provides the default system instructions
var DefaultSystemPrompts = SystemPrompts{
	Suggest: `You are an experienced resume editor. Keep every fact the candidate provided, never invent employers, dates or skills, and write in a concise professional register.`,
	Score:   `You simulate an Applicant Tracking System. You reply with a single JSON object and nothing else.`,
}

const resumeFieldLines = `Name: {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}
Summary: {{.Summary}}
Experience: {{.Experience}}
Education: {{.Education}}
Skills: {{.Skills}}`

// DefaultUserPrompts provides the default user prompt templates
var DefaultUserPrompts = UserPrompts{
	Suggest: `Given the following resume details, suggest improvements and rewrite the summary in a more professional way:
` + resumeFieldLines,

	Score: `You are an ATS (Applicant Tracking System) simulator. Given the following resume, score it from 0 to 100 for ATS compatibility and explain the score briefly.
Resume:
` + resumeFieldLines + `
Output format: {"score": number, "explanation": string}`,
}

// buildPrompts resolves and renders the system and user prompts for an operation
func buildPrompts(operation string, cfg config.PromptConfig, loaded config.LoadedPrompts, fields types.ResumeFields) (string, string, error) {
	var systemPrompt, userTemplate string

	switch operation {
	case config.OperationSuggest:
		systemPrompt = resolvePrompt(loaded.System, cfg.SystemPrompts.Suggest, DefaultSystemPrompts.Suggest)
		userTemplate = resolvePrompt(loaded.User, cfg.UserPrompts.Suggest, DefaultUserPrompts.Suggest)
	case config.OperationScore:
		systemPrompt = resolvePrompt(loaded.System, cfg.SystemPrompts.Score, DefaultSystemPrompts.Score)
		userTemplate = resolvePrompt(loaded.User, cfg.UserPrompts.Score, DefaultUserPrompts.Score)
	default:
		return "", "", fmt.Errorf("no prompts for operation %s", operation)
	}

	userPrompt, err := renderPrompt(operation, userTemplate, fields)
	if err != nil {
		return "", "", err
	}
	return systemPrompt, userPrompt, nil
}

// renderPrompt executes a prompt template over the resume fields
func renderPrompt(name, text string, fields types.ResumeFields) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("invalid %s prompt template: %w", name, err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, fields); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, err)
	}
	return sb.String(), nil
}

// resolvePrompt selects the prompt with the highest priority:
// a prompt loaded from a file, then one set in the configuration, then the default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
