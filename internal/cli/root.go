package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the discovery CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "discovery",
		Short:         "Parse API discovery documents into a service model",
		Long:          "discovery parses 0.3 and 1.0 API discovery documents into resources, methods and parameters, and exports them as OpenAPI.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	flagErr := func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	}
	cmd.SetFlagErrorFunc(flagErr)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error); defaults to info")
	cmd.PersistentFlags().String("log-format", "", "Log format (text|json); defaults to text")

	for _, sub := range []*cobra.Command{newInspectCmd(), newExportCmd(), newInitCmd()} {
		sub.SetFlagErrorFunc(flagErr)
		cmd.AddCommand(sub)
	}

	return cmd
}
