package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/pileo/discovery/internal/discovery"
	"github.com/pileo/discovery/internal/logging"
	"github.com/pileo/discovery/internal/output"
)

// Config captures all inputs that influence inspect and export after merging
// defaults, config file values, and CLI overrides. One config file serves
// both commands; fields a command has no flag for keep their file value.
type Config struct {
	Input               string
	Version             string
	Service             string
	Strict              bool
	AllowDuplicateKeys  bool
	RequireVersionMatch bool
	MaxDepth            int
	DefaultHTTPMethod   string

	// inspect
	Output string

	// export
	Out               string
	Format            string
	Encoding          string
	ServerURL         string
	ServiceParameters bool
	DryRun            bool
	Force             bool

	ConfigPath string
	Verbose    bool
	LogLevel   string
	LogFormat  string

	version        discovery.Version
	printerOptions output.PrinterOptions
	logger         *slog.Logger
	stdin          io.Reader
	stdout         io.Writer
	stderr         io.Writer
}

func defaultConfig() Config {
	return Config{
		Version:   "1.0",
		Output:    "tree",
		Format:    "openapi3",
		Encoding:  "json",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// resolveConfig merges defaults, the --config file and explicit flags, then
// normalizes and validates the result for the named command.
func resolveConfig(cmd *cobra.Command, command string) (*Config, error) {
	cfg := defaultConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(command); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	cfg.logger, err = logging.New(cmd.ErrOrStderr(), cfg.LogFormat, level)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("%s: %v", command, err))
	}
	cfg.stdin = cmd.InOrStdin()
	cfg.stdout = cmd.OutOrStdout()
	cfg.stderr = cmd.ErrOrStderr()
	return &cfg, nil
}

func applyFlagOverrides(flags *pflag.FlagSet, cfg *Config) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"input", &cfg.Input},
		{"version", &cfg.Version},
		{"service", &cfg.Service},
		{"default-http-method", &cfg.DefaultHTTPMethod},
		{"output", &cfg.Output},
		{"out", &cfg.Out},
		{"format", &cfg.Format},
		{"encoding", &cfg.Encoding},
		{"server-url", &cfg.ServerURL},
		{"log-level", &cfg.LogLevel},
		{"log-format", &cfg.LogFormat},
	}
	for _, s := range strs {
		if !changed(flags, s.name) {
			continue
		}
		value, err := flags.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = strings.TrimSpace(value)
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"strict", &cfg.Strict},
		{"allow-duplicate-keys", &cfg.AllowDuplicateKeys},
		{"require-version-match", &cfg.RequireVersionMatch},
		{"service-parameters", &cfg.ServiceParameters},
		{"dry-run", &cfg.DryRun},
		{"force", &cfg.Force},
		{"verbose", &cfg.Verbose},
		{"pretty", &cfg.printerOptions.ForcePretty},
		{"compact", &cfg.printerOptions.ForceCompact},
	}
	for _, b := range bools {
		if !changed(flags, b.name) {
			continue
		}
		value, err := flags.GetBool(b.name)
		if err != nil {
			return err
		}
		*b.dst = value
	}

	if changed(flags, "max-depth") {
		value, err := flags.GetInt("max-depth")
		if err != nil {
			return err
		}
		cfg.MaxDepth = value
	}
	return nil
}

// changed reports whether the flag exists on this command and was set.
func changed(flags *pflag.FlagSet, name string) bool {
	return flags.Lookup(name) != nil && flags.Changed(name)
}

func (c *Config) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Version = strings.TrimSpace(c.Version)
	c.Service = strings.TrimSpace(c.Service)
	c.DefaultHTTPMethod = strings.ToUpper(strings.TrimSpace(c.DefaultHTTPMethod))
	c.Output = strings.ToLower(strings.TrimSpace(c.Output))
	c.Out = strings.TrimSpace(c.Out)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Encoding = strings.ToLower(strings.TrimSpace(c.Encoding))
	c.ServerURL = strings.TrimSpace(c.ServerURL)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.Encoding == "yml" {
		c.Encoding = "yaml"
	}
}

func (c *Config) validate(command string) error {
	if c.Input == "" {
		return newUsageError(fmt.Sprintf("%s: --input is required (set via flag or config file; use - for stdin)", command))
	}

	v, err := discovery.ParseVersion(c.Version)
	if err != nil {
		return newUsageError(fmt.Sprintf("%s: unsupported --version %q (allowed: %s)", command, c.Version, strings.Join(versionTags(), ", ")))
	}
	c.version = v

	if c.MaxDepth < 0 {
		return newUsageError(fmt.Sprintf("%s: --max-depth must not be negative", command))
	}
	if c.Strict && v != discovery.Version10 {
		return newUsageError(fmt.Sprintf("%s: --strict applies to version 1.0 documents only", command))
	}

	switch command {
	case "inspect":
		switch c.Output {
		case "tree", "json":
		default:
			return newUsageError(fmt.Sprintf("inspect: unsupported --output %q (allowed: tree, json)", c.Output))
		}
	case "export":
		switch c.Format {
		case "openapi3", "swagger2":
		default:
			return newUsageError(fmt.Sprintf("export: unsupported --format %q (allowed: openapi3, swagger2)", c.Format))
		}
		switch c.Encoding {
		case "json", "yaml":
		default:
			return newUsageError(fmt.Sprintf("export: unsupported --encoding %q (allowed: json, yaml)", c.Encoding))
		}
	}
	return nil
}

// factoryParams builds the generation-specific parameters for c.version.
func (c *Config) factoryParams() discovery.FactoryParameter {
	opts := []discovery.Option{
		discovery.WithRequireVersionMatch(c.RequireVersionMatch),
		discovery.WithAllowDuplicateKeys(c.AllowDuplicateKeys),
		discovery.WithMaxDepth(c.MaxDepth),
		discovery.WithLogger(c.logger),
		discovery.WithStrict(c.Strict),
		discovery.WithDefaultHTTPMethod(c.DefaultHTTPMethod),
	}
	return discovery.NewParams(c.version, opts...)
}

func versionTags() []string {
	vs := discovery.SupportedVersions()
	tags := make([]string, 0, len(vs))
	for _, v := range vs {
		tags = append(tags, v.String())
	}
	return tags
}

func applyConfigFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	strs := map[string]*string{
		"input":             &cfg.Input,
		"version":           &cfg.Version,
		"service":           &cfg.Service,
		"defaulthttpmethod": &cfg.DefaultHTTPMethod,
		"output":            &cfg.Output,
		"out":               &cfg.Out,
		"format":            &cfg.Format,
		"encoding":          &cfg.Encoding,
		"serverurl":         &cfg.ServerURL,
		"loglevel":          &cfg.LogLevel,
		"logformat":         &cfg.LogFormat,
	}
	bools := map[string]*bool{
		"strict":              &cfg.Strict,
		"allowduplicatekeys":  &cfg.AllowDuplicateKeys,
		"requireversionmatch": &cfg.RequireVersionMatch,
		"serviceparameters":   &cfg.ServiceParameters,
		"dryrun":              &cfg.DryRun,
		"force":               &cfg.Force,
		"verbose":             &cfg.Verbose,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := strs[normalized]; ok {
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = str
			continue
		}
		if dst, ok := bools[normalized]; ok {
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = val
			continue
		}
		if normalized == "maxdepth" {
			val, err := valueAsInt(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.MaxDepth = val
			continue
		}
		return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case int:
		return fmt.Sprint(val), nil
	case float64:
		// version: 1.0 parses as a float
		return strings.TrimSpace(fmt.Sprintf("%.1f", val)), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
