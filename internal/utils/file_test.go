package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectInputKind(t *testing.T) {
	tests := []struct {
		filename string
		kind     InputKind
		wantErr  bool
	}{
		{"resume.json", InputJSON, false},
		{"resume.YAML", InputYAML, false},
		{"resume.yml", InputYAML, false},
		{"resume.pdf", InputPDF, false},
		{"resume.txt", "", true},
		{"resume", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			kind, err := DetectInputKind(tt.filename)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "resume.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0600))

	assert.NoError(t, ValidateInputFile(file))
	assert.Error(t, ValidateInputFile(""))
	assert.Error(t, ValidateInputFile(dir))
	assert.Error(t, ValidateInputFile(filepath.Join(dir, "missing.json")))
}

func TestValidateFileSize(t *testing.T) {
	file := filepath.Join(t.TempDir(), "resume.json")
	require.NoError(t, os.WriteFile(file, make([]byte, 2048), 0600))

	assert.NoError(t, ValidateFileSize(file, 0))
	assert.NoError(t, ValidateFileSize(file, 4096))
	err := ValidateFileSize(file, 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2.0 KB")
}

func TestValidateOutputFileCreatesDirectory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "dir", "resume.pdf")
	require.NoError(t, ValidateOutputFile(out))

	info, err := os.Stat(filepath.Dir(out))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "10.0 MB", FormatFileSize(10*1024*1024))
}
