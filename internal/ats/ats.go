// Package ats turns raw model output into ATS score results.
package ats

import (
	"encoding/json"
	"strings"

	"resumebuilder/internal/errors"
	"resumebuilder/internal/types"

	"github.com/xeipuuv/gojsonschema"
)

const scoreSchema = `{
  "type": "object",
  "required": ["score", "explanation"],
  "properties": {
    "score": {"type": "number", "minimum": 0, "maximum": 100},
    "explanation": {"type": "string"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(scoreSchema)

// Parse extracts the score object from model output. Output without a
// valid object yields an unavailable score with the raw text as explanation.
func Parse(text string) types.ScoreResult {
	fallback := types.ScoreResult{Score: types.NotAvailable, Explanation: text}

	candidate, ok := extractObject(text)
	if !ok {
		return fallback
	}
	if err := validate(candidate); err != nil {
		return fallback
	}

	var payload struct {
		Score       float64 `json:"score"`
		Explanation string  `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return fallback
	}
	return types.ScoreResult{
		Score:       types.NumericScore(payload.Score),
		Explanation: payload.Explanation,
	}
}

// FromError converts a failed scoring request into a displayable result
func FromError(err error) types.ScoreResult {
	return types.ScoreResult{
		Score:       types.NotAvailable,
		Explanation: "Error: " + errors.UserMessage(err),
	}
}

// extractObject returns the text between the first '{' and the last '}'
func extractObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

func validate(candidate string) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(candidate))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}
	return errors.NewValidationError(errors.ErrCodeInvalidFormat, strings.Join(messages, "; "), nil)
}
