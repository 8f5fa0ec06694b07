package cli

import (
	"context"

	"resumebuilder/internal/ai"
	"resumebuilder/internal/assistant"
	"resumebuilder/internal/common"
	"resumebuilder/internal/config"
	"resumebuilder/internal/errors"
	"resumebuilder/internal/export"
	"resumebuilder/internal/formatters"
	"resumebuilder/internal/observability"

	"github.com/spf13/cobra"
)

type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "resumebuilder",
	Short: "Build a resume, export it to PDF and get AI feedback",
	Long: `resumebuilder keeps a seven-field resume form (name, email, phone,
summary, experience, education and skills). It previews the form, exports it
as a one-page PDF, asks an AI model for improvement suggestions and an ATS
score, and lists the models the configured provider offers.

Fields come from a JSON or YAML file (--input), from a previously exported
PDF, or from the per-field flags, which override the file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		return common.ValidateConfiguredFormats(cfg.App.SupportedFormats, formatters.GlobalRegistry)
	},
}

// Execute runs the command line with cfg and logger available to every subcommand
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context")
}

func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context")
}

// newAssistant wires the AI client and exporter for one command run. The
// returned close function releases the AI providers.
func newAssistant(cfg *config.Config, logger *errors.Logger, om *observability.ObservabilityManager) (*assistant.Assistant, *ai.Client, func(), error) {
	prompts, err := config.NewPromptStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return newAssistantWithPrompts(cfg, prompts, logger, om)
}

// newAssistantWithPrompts is newAssistant with a prompt store the caller keeps,
// so reloading the store changes the prompts of later requests
func newAssistantWithPrompts(cfg *config.Config, prompts *config.PromptStore, logger *errors.Logger, om *observability.ObservabilityManager) (*assistant.Assistant, *ai.Client, func(), error) {
	client, err := ai.NewClient(cfg, prompts, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	a := assistant.New(client, client.Label(), export.New(cfg.Export), logger, assistant.WithObservability(om))
	return a, client, client.Close, nil
}

func init() {
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
