package common

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"resumebuilder/internal/config"
	"resumebuilder/internal/errors"
	"resumebuilder/internal/export"
	"resumebuilder/internal/form"
	"resumebuilder/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = errors.NewLogger(slog.LevelError)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFieldsFromJSON(t *testing.T) {
	path := writeFile(t, "resume.json", `{"name": "Ada Lovelace", "Skills": "Mathematics"}`)

	fields, err := NewFileProcessor(testLogger, 0).LoadFields(FieldInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", fields.Name)
	assert.Equal(t, "Mathematics", fields.Skills)
}

func TestLoadFieldsFromYAMLWithOverrides(t *testing.T) {
	path := writeFile(t, "resume.yaml", "name: Ada\nsummary: |\n  First programmer\n  and mathematician\n")

	fields, err := NewFileProcessor(testLogger, 0).LoadFields(FieldInput{
		Path:      path,
		Overrides: map[types.Field]string{types.FieldName: "Ada Lovelace"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", fields.Name)
	assert.Equal(t, "First programmer\nand mathematician\n", fields.Summary)
}

func TestLoadFieldsFromExportedPDF(t *testing.T) {
	original := types.ResumeFields{Name: "Ada Lovelace", Email: "ada@example.com", Skills: "Mathematics"}
	path := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, export.New(config.ExportConfig{
		PageSize:      "A4",
		Orientation:   "P",
		FontFamily:    "Helvetica",
		TitleFontSize: 18,
		BodyFontSize:  12,
		LeftMargin:    10,
		TopMargin:     20,
		BottomMargin:  15,
		ContentWidth:  180,
	}).ExportFile(path, original))

	fields, err := NewFileProcessor(testLogger, 0).LoadFields(FieldInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, original, fields)
}

func TestLoadFieldsErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		maxSize int64
		code    string
	}{
		{"unknown field", writeFile(t, "resume.json", `{"nickname": "Ada"}`), 0, errors.ErrCodeUnknownField},
		{"not a mapping", writeFile(t, "resume.yaml", "- a\n- b\n"), 0, errors.ErrCodeInvalidFormat},
		{"unsupported extension", writeFile(t, "resume.txt", "Ada"), 0, errors.ErrCodeInvalidFormat},
		{"missing file", filepath.Join(t.TempDir(), "missing.json"), 0, "INVALID_INPUT_FILE"},
		{"too large", writeFile(t, "big.json", `{"name": "Ada Lovelace"}`), 4, "INVALID_INPUT_FILE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileProcessor(testLogger, tt.maxSize).LoadFields(FieldInput{Path: tt.path})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.code)
		})
	}
}

func TestLoadFieldsWithoutFile(t *testing.T) {
	fields, err := NewFileProcessor(testLogger, 0).LoadFields(FieldInput{
		Overrides: map[types.Field]string{types.FieldEmail: "ada@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.ResumeFields{Email: "ada@example.com"}, fields)
}

func TestRunFormCommandWritesFormattedOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out", "preview.txt")

	err := RunFormCommand(context.Background(), testLogger,
		CommandConfig{OutputFile: out, OutputFormat: "text", SupportedFormats: []string{"text", "json"}},
		FieldInput{Overrides: map[types.Field]string{types.FieldName: "Ada"}},
		"preview",
		func(_ context.Context, sess *form.Session) (types.PreviewSnapshot, error) {
			return sess.Preview()
		})
	require.NoError(t, err)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Name: Ada\nEmail: Not provided")
}

func TestRunFormCommandRejectsUnsupportedFormat(t *testing.T) {
	called := false
	err := RunFormCommand(context.Background(), testLogger,
		CommandConfig{OutputFormat: "xml", SupportedFormats: []string{"text"}},
		FieldInput{},
		"preview",
		func(context.Context, *form.Session) (string, error) {
			called = true
			return "", nil
		})
	assert.Error(t, err)
	assert.False(t, called)
}
