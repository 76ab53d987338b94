package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/pileo/discovery/internal/discovery"
)

type PrinterOptions struct {
	ForcePretty  bool
	ForceCompact bool
}

type Printer struct {
	out io.Writer
	err io.Writer

	pretty bool
}

func NewPrinter(out io.Writer, err io.Writer, opts PrinterOptions) *Printer {
	pretty := false
	if opts.ForcePretty {
		pretty = true
	} else if opts.ForceCompact {
		pretty = false
	} else {
		// auto
		if f, ok := out.(*os.File); ok {
			pretty = term.IsTerminal(int(f.Fd()))
		}
	}
	return &Printer{out: out, err: err, pretty: pretty}
}

func (p *Printer) Out() io.Writer { return p.out }
func (p *Printer) Err() io.Writer { return p.err }
func (p *Printer) Pretty() bool   { return p.pretty }

// PrintJSON writes v as JSON, indented when the printer is pretty.
func (p *Printer) PrintJSON(v any) error {
	var (
		data []byte
		err  error
	)
	if p.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = p.out.Write(data)
	return err
}

// PrintTree writes an indented outline of the service: resources, methods
// and their parameters in document order.
func (p *Printer) PrintTree(svc *discovery.Service) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", svc.Name)
	if svc.Version != "" {
		fmt.Fprintf(&b, " %s", svc.Version)
	}
	fmt.Fprintf(&b, " (discovery %s)\n", svc.Generation)
	if svc.BasePath != "" {
		fmt.Fprintf(&b, "  base path: %s\n", svc.BasePath)
	}
	if svc.Scopes.Len() > 0 {
		fmt.Fprintf(&b, "  scopes: %d\n", svc.Scopes.Len())
	}
	for name, m := range svc.Methods.All() {
		p.writeMethod(&b, 1, name, m)
	}
	for name, r := range svc.Resources.All() {
		p.writeResource(&b, 1, name, r)
	}
	_, err := io.WriteString(p.out, b.String())
	return err
}

func (p *Printer) writeResource(b *strings.Builder, depth int, name string, r *discovery.Resource) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s/\n", indent, name)
	for mname, m := range r.Methods.All() {
		p.writeMethod(b, depth+1, mname, m)
	}
	for sub, child := range r.Resources.All() {
		p.writeResource(b, depth+1, sub, child)
	}
}

func (p *Printer) writeMethod(b *strings.Builder, depth int, name string, m *discovery.Method) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s  %s %s\n", indent, name, m.HTTPMethod, m.Path)
	if !p.pretty {
		return
	}
	for pname, param := range m.Parameters.All() {
		flag := ""
		if param.Required {
			flag = " required"
		}
		fmt.Fprintf(b, "%s  - %s (%s, %s%s)\n", indent, pname, param.Type, param.Location, flag)
	}
}
