package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pileo/discovery/internal/emitter"
)

var exportRunner = runExport

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a discovery document as OpenAPI 3 or Swagger 2.0",
		Long: "Parse a discovery document and write an OpenAPI 3 (or Swagger 2.0) description, " +
			"the parsed model as JSON and a Markdown reference to an output directory. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  discovery export --input adsense.json --out ./adsense
  discovery export --input legacy.json --version 0.3 --format swagger2 --encoding yaml
  discovery --config discovery.yaml export --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, "export")
			if err != nil {
				return err
			}
			return exportRunner(cmd.Context(), cfg)
		},
	}

	addParseFlags(cmd)
	flags := cmd.Flags()
	flags.String("out", "", "Output directory (derived from the service name when omitted)")
	flags.String("format", "", "Description format (openapi3|swagger2); defaults to openapi3")
	flags.String("encoding", "", "Description encoding (json|yaml); defaults to json")
	flags.String("server-url", "", "Override the server URL derived from rootUrl and basePath")
	flags.Bool("service-parameters", false, "Copy service-wide query parameters onto every operation")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func runExport(ctx context.Context, cfg *Config) error {
	svc, err := loadService(ctx, cfg)
	if err != nil {
		return err
	}

	outDir := cfg.Out
	if outDir == "" {
		outDir = deriveOutDir(svc.Name, svc.Version)
	}
	absOut := outDir
	if ap, err := filepath.Abs(outDir); err == nil {
		absOut = ap
	}

	res, err := emitter.Emit(ctx, svc, emitter.Options{
		OutDir:            outDir,
		Format:            emitter.Format(cfg.Format),
		Encoding:          emitter.Encoding(cfg.Encoding),
		ServerURL:         cfg.ServerURL,
		ServiceParameters: cfg.ServiceParameters,
		Force:             cfg.Force,
		DryRun:            cfg.DryRun,
		Verbose:           cfg.Verbose,
		Logger:            cfg.logger,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}

	paths := make([]string, 0, len(res.Planned))
	for _, p := range res.Planned {
		paths = append(paths, p.RelPath)
	}
	if cfg.DryRun {
		printPlan(cfg.stdout, "Planned writes to", absOut, paths)
		return nil
	}
	printPlan(cfg.stdout, "Wrote", absOut, paths)
	return nil
}

func printPlan(w io.Writer, verb, outDir string, relPaths []string) {
	fmt.Fprintf(w, "%s %s (%d files):\n", verb, outDir, len(relPaths))
	for _, p := range relPaths {
		fmt.Fprintf(w, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

// deriveOutDir builds a directory name such as "adsense-v1beta1".
func deriveOutDir(name, version string) string {
	t := strings.ToLower(strings.TrimSpace(name + " " + version))
	repl := strings.NewReplacer("/", " ", "_", " ", ".", " ", ",", " ", ":", " ")
	parts := strings.Fields(repl.Replace(t))
	if len(parts) == 0 {
		return "discovery-export"
	}
	return strings.Join(parts, "-")
}
