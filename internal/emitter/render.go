package emitter

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/pileo/discovery/internal/discovery"
)

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func encode(v any, enc Encoding) ([]byte, error) {
	data, err := marshalIndent(v)
	if err != nil {
		return nil, fmt.Errorf("marshal description: %w", err)
	}
	switch enc {
	case EncodingJSON:
		return data, nil
	case EncodingYAML:
		return jsonToYAML(data)
	}
	return nil, fmt.Errorf("emitter: unknown encoding %q", enc)
}

// jsonToYAML re-encodes JSON as block-style YAML. Going through yaml.Node
// keeps the key order of the JSON input.
func jsonToYAML(data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("convert to yaml: %w", err)
	}
	clearStyle(&root)
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("convert to yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

// renderReference writes a Markdown page listing every method in document
// order, grouped by resource.
func renderReference(svc *discovery.Service) string {
	var b strings.Builder
	title := svc.Title
	if title == "" {
		title = svc.Name
	}
	fmt.Fprintf(&b, "# %s", title)
	if svc.Version != "" {
		fmt.Fprintf(&b, " (%s)", svc.Version)
	}
	b.WriteString("\n\n")
	if svc.Description != "" {
		b.WriteString(svc.Description + "\n\n")
	}
	fmt.Fprintf(&b, "Discovery generation %s.", svc.Generation)
	if svc.BasePath != "" {
		fmt.Fprintf(&b, " Base path `%s`.", svc.BasePath)
	}
	b.WriteString("\n")

	group := "\x00"
	svc.WalkMethods(func(path []string, m *discovery.Method) bool {
		g := strings.Join(path, ".")
		if g != group {
			group = g
			if g == "" {
				b.WriteString("\n## Service methods\n")
			} else {
				fmt.Fprintf(&b, "\n## %s\n", g)
			}
		}
		fmt.Fprintf(&b, "\n### `%s %s`\n\n", m.HTTPMethod, m.Path)
		if m.ID != "" {
			fmt.Fprintf(&b, "Method `%s`.\n\n", m.ID)
		}
		if m.Description != "" {
			b.WriteString(m.Description + "\n\n")
		}
		if m.Parameters.Len() > 0 {
			b.WriteString("| parameter | type | location | required | description |\n")
			b.WriteString("|---|---|---|---|---|\n")
			for name, p := range m.Parameters.All() {
				req := ""
				if p.Required {
					req = "yes"
				}
				fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", name, p.Type, p.Location, req, tableCell(p.Description))
			}
			b.WriteString("\n")
		}
		return true
	})
	return b.String()
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
