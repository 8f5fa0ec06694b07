package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	f, err := ParseField(" Experience ")
	require.NoError(t, err)
	assert.Equal(t, FieldExperience, f)
	assert.Equal(t, "Experience", f.Label())

	_, err = ParseField("age")
	assert.Error(t, err)
}

func TestResumeFieldsSetAndMerge(t *testing.T) {
	var r ResumeFields
	require.NoError(t, r.Set(FieldEmail, "jane@example.com"))
	assert.Equal(t, "jane@example.com", r.Email)
	assert.Error(t, r.Set(Field("age"), "30"))

	err := r.Merge(map[Field]string{FieldName: "Jane", Field("age"): "30"})
	assert.Error(t, err)
	assert.Empty(t, r.Name, "merge must not apply anything when a key is unknown")

	require.NoError(t, r.Merge(map[Field]string{FieldName: "Jane", FieldSkills: "Go"}))
	assert.Equal(t, "Jane", r.Name)
	assert.Equal(t, "Go", r.Skills)
	assert.False(t, r.IsEmpty())
	assert.True(t, ResumeFields{Summary: "  "}.IsEmpty())
}

func TestPreviewSnapshotPlaceholder(t *testing.T) {
	snap := NewPreviewSnapshot(ResumeFields{Name: "Jane Doe"})

	assert.Equal(t, "Jane Doe", snap.Display(FieldName))
	assert.Equal(t, NotProvided, snap.Display(FieldPhone))

	lines := snap.Lines()
	require.Len(t, lines, len(AllFields))
	assert.Equal(t, "Name: Jane Doe", lines[0])
	assert.Equal(t, "Skills: Not provided", lines[6])
}

func TestScoreJSON(t *testing.T) {
	data, err := json.Marshal(ScoreResult{Score: NumericScore(82), Explanation: "ok"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":82,"explanation":"ok"}`, string(data))

	data, err = json.Marshal(ScoreResult{Score: NotAvailable, Explanation: "raw"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":"N/A","explanation":"raw"}`, string(data))

	var decoded ScoreResult
	require.NoError(t, json.Unmarshal([]byte(`{"score":"N/A","explanation":"x"}`), &decoded))
	assert.False(t, decoded.Score.Available())
	require.NoError(t, json.Unmarshal([]byte(`{"score":67.5,"explanation":"x"}`), &decoded))
	v, ok := decoded.Score.Value()
	assert.True(t, ok)
	assert.Equal(t, 67.5, v)

	assert.Error(t, json.Unmarshal([]byte(`{"score":"high"}`), &decoded))
}

func TestDisplayText(t *testing.T) {
	assert.Equal(t, "ATS Score: 82\nGood keyword density",
		ScoreResult{Score: NumericScore(82), Explanation: "Good keyword density"}.Display())
	assert.Equal(t, "ATS Score: N/A\nError: timeout",
		ScoreResult{Score: NotAvailable, Explanation: "Error: timeout"}.Display())

	assert.Equal(t, "Gemini Suggestion:\n\nRewrite it.",
		SuggestionResult{Provider: "Gemini", Text: "Rewrite it."}.Display())
	assert.Equal(t, "Error with Gemini API: quota",
		SuggestionResult{Provider: "Gemini", Error: "quota"}.Display())

	assert.Equal(t, "Available models:\nmodels/a\nmodels/b",
		ModelListResult{Models: []string{"models/a", "models/b"}}.Display())
	assert.Equal(t, "Error listing models: denied",
		ModelListResult{Error: "denied"}.Display())
}
