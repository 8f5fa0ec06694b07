package cli

import (
	"context"
	"fmt"
	"os"

	"resumebuilder/internal/assistant"
	"resumebuilder/internal/common"
	"resumebuilder/internal/errors"
	"resumebuilder/internal/form"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the resume as a one-page PDF",
	Long: `Export lays the fields out on a single PDF page: the name as title,
then email and phone, then one labelled block per remaining field. The
document can be loaded again with --input.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	exportOutput string
	exportFields *fieldFlags
)

func init() {
	exportFields = addFieldFlags(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "PDF file to write (default from config, resume.pdf)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	a, _, closeAI, err := newAssistant(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeAI()

	fp := common.NewFileProcessor(logger, cfg.App.MaxFileSize)
	fields, err := fp.LoadFields(exportFields.fieldInput(cmd))
	if err != nil {
		return err
	}

	path := exportOutput
	if path == "" {
		path = a.Exporter().FileName()
	}

	sess := form.NewSession("cli")
	sess.Replace(fields)
	if err := exportToFile(cmd.Context(), a, sess, fp, path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "PDF saved as %s\n", path)
	return nil
}

// exportToFile writes the session as PDF to path, removing a partial file on failure
func exportToFile(ctx context.Context, a *assistant.Assistant, sess *form.Session, fp *common.FileProcessor, path string) (err error) {
	if err := fp.ValidateOutputFile(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeExportFailed, fmt.Sprintf("Cannot create %s", path), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewIOError(errors.ErrCodeExportFailed, fmt.Sprintf("Cannot write %s", path), cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	return a.Export(ctx, sess, f)
}
