package common

import (
	"context"
	"time"

	"resumebuilder/internal/errors"
	"resumebuilder/internal/form"
)

// FormOperationFunc runs one trigger against a session holding the loaded fields
type FormOperationFunc[Output any] func(context.Context, *form.Session) (Output, error)

// RunFormCommand encapsulates the common logic of the one-shot CLI commands:
// load the fields, fill a fresh session, run the operation and write the
// formatted result.
func RunFormCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	input FieldInput,
	operation string,
	run FormOperationFunc[Output],
) error {
	fileProcessor := NewFileProcessor(logger, cmdConfig.MaxFileSize)
	outputHandler := NewOutputHandler(logger)

	if err := ValidateOutputFormat(cmdConfig.OutputFormat, cmdConfig.SupportedFormats); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, err.Error(), err)
	}

	fields, err := fileProcessor.LoadFields(input)
	if err != nil {
		return err
	}

	sess := form.NewSession("cli")
	sess.Replace(fields)

	logger.Info("Running operation", "operation", operation, "empty_form", fields.IsEmpty())

	start := time.Now()
	result, err := run(ctx, sess)
	if err != nil {
		return err
	}
	logger.Info("Operation finished", "operation", operation, "duration", time.Since(start))

	return outputHandler.HandleOutput(result, cmdConfig)
}
