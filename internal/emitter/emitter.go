package emitter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pileo/discovery/internal/discovery"
	"github.com/pileo/discovery/internal/openapi"
)

// Format selects the exported API description dialect.
type Format string

const (
	FormatOpenAPI3 Format = "openapi3"
	FormatSwagger2 Format = "swagger2"
)

// Encoding selects the serialization of the exported description.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingYAML Encoding = "yaml"
)

// Options controls how a service is exported.
type Options struct {
	OutDir   string // required; target directory
	Name     string // file stem; defaults to the service name
	Format   Format
	Encoding Encoding
	// ServerURL overrides the server derived from the document.
	ServerURL string
	// ServiceParameters copies service-wide query parameters onto every operation.
	ServiceParameters bool
	Force             bool // overwrite existing files
	DryRun            bool // don't write, only plan
	Verbose           bool
	Logger            *slog.Logger
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and the resolved file stem.
type Result struct {
	Name    string
	Planned []PlannedFile
}

// Emit renders the API description, the model JSON and a Markdown reference
// for svc, and writes them under opts.OutDir unless DryRun is set.
func Emit(ctx context.Context, svc *discovery.Service, opts Options) (*Result, error) {
	if svc == nil {
		return nil, fmt.Errorf("emitter: nil Service")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("emitter: OutDir is required")
	}
	format := opts.Format
	if format == "" {
		format = FormatOpenAPI3
	}
	enc := opts.Encoding
	if enc == "" {
		enc = EncodingJSON
	}
	name := sanitizeName(opts.Name)
	if name == "" {
		name = sanitizeName(svc.Name)
		if name == "" {
			name = "service"
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := openapi.FromService(ctx, svc, openapi.Options{
		ServerURL:                opts.ServerURL,
		IncludeServiceParameters: opts.ServiceParameters,
		Logger:                   logger,
	})
	if err != nil {
		return nil, err
	}

	files := map[string][]byte{}
	var described any = doc
	switch format {
	case FormatOpenAPI3:
	case FormatSwagger2:
		v2, err := openapi.ToSwagger2(doc)
		if err != nil {
			return nil, err
		}
		described = v2
	default:
		return nil, fmt.Errorf("emitter: unknown format %q", format)
	}
	body, err := encode(described, enc)
	if err != nil {
		return nil, err
	}
	files[descriptionFile(name, format, enc)] = body

	modelJSON, err := marshalIndent(svc)
	if err != nil {
		return nil, fmt.Errorf("marshal model.json: %w", err)
	}
	files["model.json"] = modelJSON
	files["REFERENCE.md"] = []byte(renderReference(svc))

	// Plan in deterministic order
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}
	if opts.Verbose {
		for _, pf := range planned {
			logger.Debug("emitter: planned file", slog.String("path", pf.RelPath), slog.Int("size", pf.Size))
		}
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return &Result{Name: name, Planned: planned}, nil
}

func descriptionFile(name string, format Format, enc Encoding) string {
	kind := "openapi"
	if format == FormatSwagger2 {
		kind = "swagger"
	}
	return name + "." + kind + "." + string(enc)
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("emitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}

func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	b := strings.Builder{}
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '/' || r == '.':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
