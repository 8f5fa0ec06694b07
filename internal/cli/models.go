package cli

import (
	"fmt"

	"resumebuilder/internal/common"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models offered by the AI provider",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

var modelsConfig common.CommandConfig

func init() {
	formatFlag(modelsCmd, &modelsConfig)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	a, _, closeAI, err := newAssistant(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}
	defer closeAI()

	if err := common.RunFormCommand(cmd.Context(), logger, commandConfig(cmd, modelsConfig),
		common.FieldInput{}, "models", a.ListModels); err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	return nil
}
