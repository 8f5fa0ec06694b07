package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"resumebuilder/internal/errors"
	"resumebuilder/internal/types"

	"github.com/ledongthuc/pdf"
)

// labelled fields in the order they appear in an exported document
var importOrder = []types.Field{
	types.FieldEmail,
	types.FieldPhone,
	types.FieldSummary,
	types.FieldExperience,
	types.FieldEducation,
	types.FieldSkills,
}

var whitespace = regexp.MustCompile(`\s+`)

// Import recovers resume fields from a PDF produced by Export.
// Line wrapping is not preserved: runs of whitespace in each value collapse
// to a single space. Labels are only recognised as rows of their own, so a
// value may mention another label freely, but a wrapped value line that
// consists of nothing but the following label is read as that label.
func Import(r io.ReaderAt, size int64) (types.ResumeFields, error) {
	rows, err := extractRows(r, size)
	if err != nil {
		return types.ResumeFields{}, errors.NewValidationError(errors.ErrCodeImportFailed,
			"Cannot read PDF document", err)
	}

	fields, err := parseExportedRows(rows)
	if err != nil {
		return types.ResumeFields{}, errors.NewValidationError(errors.ErrCodeImportFailed,
			"Document is not an exported resume", err)
	}
	return fields, nil
}

// ImportFile reads a previously exported PDF from disk
func ImportFile(path string) (types.ResumeFields, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ResumeFields{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", path), err)
	}
	return Import(bytes.NewReader(data), int64(len(data)))
}

// extractRows returns the drawn text lines of every page in drawing order.
// Export draws each line with its own text operation, so consecutive glyphs
// sharing a baseline belong to the same row.
func extractRows(r io.ReaderAt, size int64) (rows []string, err error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("malformed page content: %v", p)
		}
	}()

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		var row strings.Builder
		var y float64
		for n, glyph := range page.Content().Text {
			if n > 0 && glyph.Y != y {
				rows = append(rows, row.String())
				row.Reset()
			}
			y = glyph.Y
			row.WriteString(glyph.S)
		}
		if row.Len() > 0 {
			rows = append(rows, row.String())
		}
	}
	return rows, nil
}

// labelValue reports whether row is the label line of field f and returns
// the value drawn on the same line. Email and phone share their line with
// the value, the section labels stand alone.
func labelValue(f types.Field, row string) (string, bool) {
	label := f.Label() + ":"
	switch f {
	case types.FieldEmail, types.FieldPhone:
		if strings.TrimSpace(row) == label {
			return "", true
		}
		if value, ok := strings.CutPrefix(row, label+" "); ok {
			return value, true
		}
		return "", false
	default:
		return "", strings.TrimSpace(row) == label
	}
}

// parseExportedRows walks the rows expecting the labels in layout order.
// The name is whatever precedes the Email row.
func parseExportedRows(rows []string) (types.ResumeFields, error) {
	var fields types.ResumeFields

	current := types.FieldName
	var value []string
	next := 0
	for _, row := range rows {
		if next < len(importOrder) {
			if inline, ok := labelValue(importOrder[next], row); ok {
				if err := fields.Set(current, clean(value)); err != nil {
					return types.ResumeFields{}, err
				}
				current = importOrder[next]
				value = []string{inline}
				next++
				continue
			}
		}
		value = append(value, row)
	}
	if next < len(importOrder) {
		return types.ResumeFields{}, fmt.Errorf("label %q not found", importOrder[next].Label()+":")
	}
	if err := fields.Set(current, clean(value)); err != nil {
		return types.ResumeFields{}, err
	}
	return fields, nil
}

func clean(lines []string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(strings.Join(lines, " "), " "))
}
