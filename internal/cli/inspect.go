package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pileo/discovery/internal/discovery"
	"github.com/pileo/discovery/internal/output"
)

var inspectRunner = runInspect

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Parse a discovery document and print its service model",
		Long: "Parse a discovery document with the parser for the given generation and print " +
			"the resulting resources, methods and parameters as a tree or as JSON.",
		Example: strings.TrimSpace(`  discovery inspect --input adsense.json --service v1beta1
  discovery inspect --input legacy.json --version 0.3 --output json
  cat doc.json | discovery inspect --input - --strict`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, "inspect")
			if err != nil {
				return err
			}
			return inspectRunner(cmd.Context(), cfg)
		},
	}

	addParseFlags(cmd)
	flags := cmd.Flags()
	flags.String("output", "", "Output style (tree|json); defaults to tree")
	flags.Bool("pretty", false, "Force pretty output even when stdout is not a terminal")
	flags.Bool("compact", false, "Force compact output")
	cmd.MarkFlagsMutuallyExclusive("pretty", "compact")

	return cmd
}

// addParseFlags registers the flags shared by every command that parses a
// discovery document.
func addParseFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("input", "", "Path to the discovery document (- for stdin)")
	flags.String("version", "", "Discovery generation (1.0|0.3); defaults to 1.0")
	flags.String("service", "", "API version label of the requested service, e.g. v1beta1")
	flags.Bool("strict", false, "Validate 1.0 documents against the restDescription schema first")
	flags.Bool("allow-duplicate-keys", false, "Keep the first of repeated object keys instead of failing")
	flags.Bool("require-version-match", false, "Fail when the document declares a different version than --service")
	flags.Int("max-depth", 0, "Maximum nesting depth of the document (0 = default)")
	flags.String("default-http-method", "", "HTTP method for 0.3 methods that omit one; defaults to GET")
}

func runInspect(ctx context.Context, cfg *Config) error {
	svc, err := loadService(ctx, cfg)
	if err != nil {
		return err
	}

	p := output.NewPrinter(cfg.stdout, cfg.stderr, cfg.printerOptions)
	if cfg.Output == "json" {
		return p.PrintJSON(svc)
	}
	return p.PrintTree(svc)
}

// loadService opens cfg.Input and runs it through the factory for cfg.version.
// It gives up before opening the input and before parsing once ctx is done.
func loadService(ctx context.Context, cfg *Config) (*discovery.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var r io.Reader
	if cfg.Input == "-" {
		r = cfg.stdin
	} else {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return nil, newUsageError(fmt.Sprintf("read input %q: %v", cfg.Input, err))
		}
		defer f.Close()
		r = f
	}

	factory, err := discovery.CreateServiceFactory(r, cfg.version, cfg.factoryParams())
	if err != nil {
		return nil, describeError(err, cfg.Input)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	svc, err := factory.GetService(cfg.Service)
	if err != nil {
		return nil, describeError(err, cfg.Input)
	}
	return svc, nil
}
