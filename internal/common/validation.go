package common

import (
	"fmt"
	"slices"

	"resumebuilder/internal/formatters"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ValidateConfiguredFormats checks that every configured format has a renderer
func ValidateConfiguredFormats(supportedFormats []string, registry *formatters.FormatterRegistry) error {
	available := registry.GetSupportedFormats()
	for _, format := range supportedFormats {
		if !slices.Contains(available, format) {
			slices.Sort(available)
			return fmt.Errorf("configured format '%s' has no renderer. Available formats: %v",
				format, available)
		}
	}
	return nil
}
