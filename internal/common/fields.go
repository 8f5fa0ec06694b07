package common

import (
	"fmt"
	"strings"

	"resumebuilder/internal/errors"
	"resumebuilder/internal/export"
	"resumebuilder/internal/types"
	"resumebuilder/internal/utils"

	"gopkg.in/yaml.v3"
)

// FieldInput describes where the form fields of a command come from
type FieldInput struct {
	// Path is an optional JSON, YAML or previously exported PDF file
	Path string
	// Overrides are applied on top of the file, keyed by field
	Overrides map[types.Field]string
}

// LoadFields reads the input file, if any, and applies the overrides
func (fp *FileProcessor) LoadFields(input FieldInput) (types.ResumeFields, error) {
	var fields types.ResumeFields

	if input.Path != "" {
		kind, err := fp.ValidateInputFile(input.Path)
		if err != nil {
			return types.ResumeFields{}, err
		}

		switch kind {
		case utils.InputPDF:
			fields, err = export.ImportFile(input.Path)
		default:
			fields, err = fp.decodeFields(input.Path)
		}
		if err != nil {
			return types.ResumeFields{}, err
		}

		if fp.logger != nil {
			fp.logger.Debug("Loaded resume fields", "file", input.Path, "kind", string(kind))
		}
	}

	if err := fields.Merge(input.Overrides); err != nil {
		return types.ResumeFields{}, err
	}
	return fields, nil
}

// decodeFields reads a flat mapping of field name to value. YAML is a superset
// of JSON, so one decoder serves both formats.
func (fp *FileProcessor) decodeFields(path string) (types.ResumeFields, error) {
	content, err := fp.ReadFile(path)
	if err != nil {
		return types.ResumeFields{}, err
	}

	raw := make(map[string]string)
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return types.ResumeFields{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Cannot parse %s: expected a mapping of field names to text", path), err)
	}

	partial := make(map[types.Field]string, len(raw))
	for key, value := range raw {
		field, err := types.ParseField(strings.TrimSpace(key))
		if err != nil {
			return types.ResumeFields{}, errors.NewValidationError(errors.ErrCodeUnknownField,
				fmt.Sprintf("Unknown field %q in %s", key, path), err)
		}
		partial[field] = value
	}

	var fields types.ResumeFields
	if err := fields.Merge(partial); err != nil {
		return types.ResumeFields{}, err
	}
	return fields, nil
}
