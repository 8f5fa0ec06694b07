package cli

import (
	"resumebuilder/internal/common"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the resume as it will be exported",
	Long: `Preview renders every field of the form, showing "Not provided" for
empty ones. The result can be printed as text, markdown, html or json.`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

var (
	previewConfig common.CommandConfig
	previewFields *fieldFlags
)

func init() {
	previewFields = addFieldFlags(previewCmd)
	formatFlag(previewCmd, &previewConfig)
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	a, _, closeAI, err := newAssistant(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeAI()

	return common.RunFormCommand(cmd.Context(), logger, commandConfig(cmd, previewConfig),
		previewFields.fieldInput(cmd), "preview", a.Preview)
}
