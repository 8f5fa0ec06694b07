package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Field names one of the resume form inputs
type Field string

const (
	FieldName       Field = "name"
	FieldEmail      Field = "email"
	FieldPhone      Field = "phone"
	FieldSummary    Field = "summary"
	FieldExperience Field = "experience"
	FieldEducation  Field = "education"
	FieldSkills     Field = "skills"
)

// AllFields lists the form fields in display order
var AllFields = []Field{
	FieldName,
	FieldEmail,
	FieldPhone,
	FieldSummary,
	FieldExperience,
	FieldEducation,
	FieldSkills,
}

// NotProvided is shown in previews in place of an empty field
const NotProvided = "Not provided"

// ParseField resolves a field name case-insensitively
func ParseField(s string) (Field, error) {
	candidate := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, f := range AllFields {
		if f == candidate {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field '%s'. Supported fields: %v", s, AllFields)
}

// Label returns the human readable label for the field
func (f Field) Label() string {
	if f == "" {
		return ""
	}
	return strings.ToUpper(string(f[:1])) + string(f[1:])
}

// ResumeFields holds the seven free-text resume inputs. Every field is optional.
type ResumeFields struct {
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email" yaml:"email"`
	Phone      string `json:"phone" yaml:"phone"`
	Summary    string `json:"summary" yaml:"summary"`
	Experience string `json:"experience" yaml:"experience"`
	Education  string `json:"education" yaml:"education"`
	Skills     string `json:"skills" yaml:"skills"`
}

func (r *ResumeFields) ref(f Field) *string {
	switch f {
	case FieldName:
		return &r.Name
	case FieldEmail:
		return &r.Email
	case FieldPhone:
		return &r.Phone
	case FieldSummary:
		return &r.Summary
	case FieldExperience:
		return &r.Experience
	case FieldEducation:
		return &r.Education
	case FieldSkills:
		return &r.Skills
	}
	return nil
}

// Get returns the value of a field, or "" for an unknown field
func (r ResumeFields) Get(f Field) string {
	if p := r.ref(f); p != nil {
		return *p
	}
	return ""
}

// Set assigns a field value
func (r *ResumeFields) Set(f Field, value string) error {
	p := r.ref(f)
	if p == nil {
		return fmt.Errorf("unknown field '%s'", f)
	}
	*p = value
	return nil
}

// Merge applies every entry of partial, stopping at the first unknown field
func (r *ResumeFields) Merge(partial map[Field]string) error {
	for f := range partial {
		if r.ref(f) == nil {
			return fmt.Errorf("unknown field '%s'", f)
		}
	}
	for f, v := range partial {
		_ = r.Set(f, v)
	}
	return nil
}

// IsEmpty reports whether every field is blank
func (r ResumeFields) IsEmpty() bool {
	for _, f := range AllFields {
		if strings.TrimSpace(r.Get(f)) != "" {
			return false
		}
	}
	return true
}

// PreviewSnapshot is a copy of the form taken when a preview was requested.
// ResumeFields holds only strings, so the value copy shares nothing with the form.
type PreviewSnapshot struct {
	Fields  ResumeFields `json:"fields"`
	TakenAt time.Time    `json:"takenAt"`
}

// NewPreviewSnapshot copies fields into a snapshot stamped with the current time
func NewPreviewSnapshot(fields ResumeFields) PreviewSnapshot {
	return PreviewSnapshot{Fields: fields, TakenAt: time.Now()}
}

// Display returns the preview text for a field
func (p PreviewSnapshot) Display(f Field) string {
	if v := p.Fields.Get(f); v != "" {
		return v
	}
	return NotProvided
}

// Lines returns one "Label: value" line per field in display order
func (p PreviewSnapshot) Lines() []string {
	lines := make([]string, 0, len(AllFields))
	for _, f := range AllFields {
		lines = append(lines, fmt.Sprintf("%s: %s", f.Label(), p.Display(f)))
	}
	return lines
}

// Score is either a numeric ATS score or not available
type Score struct {
	value     float64
	available bool
}

// NotAvailable is the sentinel score used when no numeric score could be obtained
var NotAvailable = Score{}

const notAvailableText = "N/A"

// NumericScore returns an available score with the given value
func NumericScore(v float64) Score {
	return Score{value: v, available: true}
}

// Value returns the numeric score and whether it is available
func (s Score) Value() (float64, bool) {
	return s.value, s.available
}

// Available reports whether the score holds a number
func (s Score) Available() bool {
	return s.available
}

func (s Score) String() string {
	if !s.available {
		return notAvailableText
	}
	return strconv.FormatFloat(s.value, 'f', -1, 64)
}

// MarshalJSON encodes the score as a number or the string "N/A"
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.available {
		return json.Marshal(notAvailableText)
	}
	return json.Marshal(s.value)
}

// UnmarshalJSON accepts a number or the string "N/A"
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		if text != notAvailableText {
			return fmt.Errorf("invalid score %q", text)
		}
		*s = NotAvailable
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = NumericScore(v)
	return nil
}

// ScoreResult is the outcome of one ATS scoring request
type ScoreResult struct {
	Score       Score  `json:"score"`
	Explanation string `json:"explanation"`
}

// Display renders the result the way it is shown to the user
func (r ScoreResult) Display() string {
	return fmt.Sprintf("ATS Score: %s\n%s", r.Score, r.Explanation)
}

// SuggestionResult is the outcome of one suggestion request.
// Exactly one of Text and Error is set.
type SuggestionResult struct {
	Provider string `json:"provider"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Failed reports whether the request failed
func (r SuggestionResult) Failed() bool {
	return r.Error != ""
}

func (r SuggestionResult) Display() string {
	if r.Failed() {
		return fmt.Sprintf("Error with %s API: %s", r.Provider, r.Error)
	}
	return fmt.Sprintf("%s Suggestion:\n\n%s", r.Provider, r.Text)
}

// ModelListResult is the outcome of one model listing request
type ModelListResult struct {
	Models []string `json:"models"`
	Error  string   `json:"error,omitempty"`
}

func (r ModelListResult) Failed() bool {
	return r.Error != ""
}

// Joined returns the model names separated by newlines
func (r ModelListResult) Joined() string {
	return strings.Join(r.Models, "\n")
}

func (r ModelListResult) Display() string {
	if r.Failed() {
		return "Error listing models: " + r.Error
	}
	return "Available models:\n" + r.Joined()
}
