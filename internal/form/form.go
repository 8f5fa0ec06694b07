package form

import (
	"sync"

	"resumebuilder/internal/errors"
	"resumebuilder/internal/types"
)

// Form holds the current values of the resume inputs
type Form struct {
	mu     sync.RWMutex
	fields types.ResumeFields
}

// New creates an empty form
func New() *Form {
	return &Form{}
}

// Set replaces the value of one field
func (f *Form) Set(field types.Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fields.Set(field, value); err != nil {
		return errors.NewValidationError(errors.ErrCodeUnknownField, err.Error(), nil).
			WithContext("field", string(field))
	}
	return nil
}

// Clear empties one field
func (f *Form) Clear(field types.Field) error {
	return f.Set(field, "")
}

// Apply sets several fields at once. Nothing is applied if any key is unknown.
func (f *Form) Apply(partial map[types.Field]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fields.Merge(partial); err != nil {
		return errors.NewValidationError(errors.ErrCodeUnknownField, err.Error(), nil)
	}
	return nil
}

// Replace overwrites every field
func (f *Form) Replace(fields types.ResumeFields) {
	f.mu.Lock()
	f.fields = fields
	f.mu.Unlock()
}

// Reset empties every field
func (f *Form) Reset() {
	f.Replace(types.ResumeFields{})
}

// Fields returns a copy of the current values
func (f *Form) Fields() types.ResumeFields {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fields
}

// Snapshot returns an immutable copy of the current values
func (f *Form) Snapshot() types.PreviewSnapshot {
	return types.NewPreviewSnapshot(f.Fields())
}
