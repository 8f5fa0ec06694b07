package cli

import (
	"fmt"

	"resumebuilder/internal/common"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Estimate the ATS score of the resume",
	Long: `Score asks the AI model for an applicant tracking system score between
0 and 100 with an explanation. When the reply carries no usable score the
result is "N/A" with the raw reply as explanation.`,
	Args: cobra.NoArgs,
	RunE: runScore,
}

var (
	scoreConfig common.CommandConfig
	scoreFields *fieldFlags
)

func init() {
	scoreFields = addFieldFlags(scoreCmd)
	formatFlag(scoreCmd, &scoreConfig)
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	a, _, closeAI, err := newAssistant(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}
	defer closeAI()

	if err := common.RunFormCommand(cmd.Context(), logger, commandConfig(cmd, scoreConfig),
		scoreFields.fieldInput(cmd), "score", a.Score); err != nil {
		return fmt.Errorf("failed to score resume: %w", err)
	}
	return nil
}
