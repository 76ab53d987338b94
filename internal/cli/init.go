package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool

	stdout io.Writer
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample discovery configuration file",
		Long:  "Scaffold a commented discovery configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
				stdout:     cmd.OutOrStdout(),
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", "discovery.yaml", "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = "discovery.yaml"
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	// Atomic write via temp + rename
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	w := cfg.stdout
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# discovery configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Path to the discovery document; - reads stdin.
# input: ./adsense.json

# Discovery generation of the document (1.0|0.3). Defaults to 1.0.
# version: "1.0"

# API version label of the requested service, e.g. v1beta1.
# service: v1beta1

# Validate 1.0 documents against the restDescription schema before parsing.
# strict: false

# Keep the first of repeated object keys instead of failing.
# allowDuplicateKeys: false

# Fail when the document declares a different version than requested.
# requireVersionMatch: false

# Maximum nesting depth of the document (0 = default of 128).
# maxDepth: 0

# HTTP method for 0.3 methods that omit one.
# defaultHttpMethod: GET

# inspect: output style (tree|json).
# output: tree

# export: output directory. When omitted, derived from the service name.
# out: ./out

# export: description format (openapi3|swagger2) and encoding (json|yaml).
# format: openapi3
# encoding: json

# export: override the server URL and copy service-wide parameters.
# serverUrl: https://www.googleapis.com/adsense/v1beta1/
# serviceParameters: false

# export: preview planned outputs without writing files.
# dryRun: false

# export: overwrite non-empty output directory.
# force: false

# Logging.
# verbose: false
# logLevel: info
# logFormat: text
`
