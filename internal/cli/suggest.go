package cli

import (
	"fmt"

	"resumebuilder/internal/common"

	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Ask the AI model how to improve the resume",
	Long: `Suggest sends the current fields to the configured AI provider and prints
its improvement suggestions. A failed request is reported in the output as
"Error with <provider> API: <message>".`,
	Args: cobra.NoArgs,
	RunE: runSuggest,
}

var (
	suggestConfig common.CommandConfig
	suggestFields *fieldFlags
)

func init() {
	suggestFields = addFieldFlags(suggestCmd)
	formatFlag(suggestCmd, &suggestConfig)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	a, _, closeAI, err := newAssistant(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}
	defer closeAI()

	if err := common.RunFormCommand(cmd.Context(), logger, commandConfig(cmd, suggestConfig),
		suggestFields.fieldInput(cmd), "suggest", a.Suggest); err != nil {
		return fmt.Errorf("failed to get suggestions: %w", err)
	}
	return nil
}
