package cli

import (
	"fmt"

	"resumebuilder/internal/common"
	"resumebuilder/internal/types"

	"github.com/spf13/cobra"
)

// fieldFlags binds --input and one flag per resume field
type fieldFlags struct {
	input  string
	values map[types.Field]*string
}

func addFieldFlags(cmd *cobra.Command) *fieldFlags {
	ff := &fieldFlags{values: make(map[types.Field]*string)}
	cmd.Flags().StringVarP(&ff.input, "input", "i", "", "JSON, YAML or exported PDF file with the resume fields")
	for _, f := range types.AllFields {
		ff.values[f] = cmd.Flags().String(string(f), "", fmt.Sprintf("%s (overrides --input)", f.Label()))
	}
	return ff
}

// fieldInput returns the input described by the flags. Only flags set on the
// command line override the file, so --phone="" clears a phone from the file.
func (ff *fieldFlags) fieldInput(cmd *cobra.Command) common.FieldInput {
	in := common.FieldInput{Path: ff.input, Overrides: make(map[types.Field]string)}
	for f, v := range ff.values {
		if cmd.Flags().Changed(string(f)) {
			in.Overrides[f] = *v
		}
	}
	return in
}

// formatFlag registers --format and -o the way every result command uses them
func formatFlag(cmd *cobra.Command, cfg *common.CommandConfig) {
	cmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cfg.OutputFormat, "format", "", "Output format: json, text, markdown or html")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return getConfigFromContext(cmd.Context()).App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// commandConfig fills the defaults of a result command from the app config
func commandConfig(cmd *cobra.Command, base common.CommandConfig) common.CommandConfig {
	cfg := getConfigFromContext(cmd.Context())
	if base.OutputFormat == "" {
		base.OutputFormat = cfg.App.DefaultFormat
	}
	base.SupportedFormats = cfg.App.SupportedFormats
	base.MaxFileSize = cfg.App.MaxFileSize
	return base
}
