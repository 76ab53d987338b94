// Package openapi converts a parsed discovery Service into an OpenAPI 3
// document, and optionally into Swagger 2.0.
package openapi

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/pileo/discovery/internal/discovery"
)

// ErrorCode categorizes conversion errors.
type ErrorCode string

const (
	ConflictError   ErrorCode = "ConflictError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
)

// ExportError is a structured conversion error.
type ExportError struct {
	Code    ErrorCode
	Message string
	Method  string // dotted method name, when one is involved
	Cause   error
}

func (e *ExportError) Error() string { return e.Message }
func (e *ExportError) Unwrap() error { return e.Cause }

const (
	openAPIVersion     = "3.0.3"
	defaultInfoVersion = "unversioned"
	oauth2Scheme       = "oauth2"

	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
)

// Options tunes FromService.
type Options struct {
	// ServerURL replaces the server derived from rootUrl and basePath.
	ServerURL string
	// IncludeServiceParameters appends service-wide query parameters to every
	// operation that does not declare a parameter of the same name.
	IncludeServiceParameters bool
	Logger                   *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// FromService builds an OpenAPI 3 document with one operation per method, in
// document order, and validates it.
func FromService(ctx context.Context, svc *discovery.Service, opts Options) (*openapi3.T, error) {
	if svc == nil {
		return nil, &ExportError{Code: ConversionError, Message: "openapi: service is nil"}
	}
	b := &builder{
		svc:     svc,
		opts:    opts,
		log:     opts.logger(),
		doc:     newDocument(svc, opts),
		opIDs:   map[string]string{},
		schemas: map[string]*openapi3.Schema{},
	}
	for _, name := range svc.Schemas {
		b.schemaRef(name)
	}
	if svc.Scopes.Len() > 0 {
		b.addOAuth2()
	}

	var convErr error
	svc.WalkMethods(func(path []string, m *discovery.Method) bool {
		convErr = b.addMethod(path, m)
		return convErr == nil
	})
	if convErr != nil {
		return nil, convErr
	}

	if err := b.doc.Validate(ctx); err != nil {
		return nil, &ExportError{Code: ValidationError, Message: fmt.Sprintf("openapi: generated document is invalid: %v", err), Cause: err}
	}
	return b.doc, nil
}

// ToSwagger2 converts a document produced by FromService to Swagger 2.0.
func ToSwagger2(doc *openapi3.T) (*openapi2.T, error) {
	v2, err := openapi2conv.FromV3(doc)
	if err != nil {
		return nil, &ExportError{Code: ConversionError, Message: fmt.Sprintf("openapi: convert to swagger 2.0: %v", err), Cause: err}
	}
	return v2, nil
}

func newDocument(svc *discovery.Service, opts Options) *openapi3.T {
	title := svc.Title
	if title == "" {
		title = svc.Name
	}
	version := svc.Version
	if version == "" {
		version = defaultInfoVersion
	}
	doc := &openapi3.T{
		OpenAPI: openAPIVersion,
		Info: &openapi3.Info{
			Title:       title,
			Version:     version,
			Description: svc.Description,
		},
		Paths: openapi3.Paths{},
		Components: openapi3.Components{
			Schemas: openapi3.Schemas{},
		},
	}
	if url := serverURL(svc, opts); url != "" {
		doc.Servers = openapi3.Servers{&openapi3.Server{URL: url}}
	}
	return doc
}

func serverURL(svc *discovery.Service, opts Options) string {
	if opts.ServerURL != "" {
		return opts.ServerURL
	}
	if svc.RootURL != "" {
		return strings.TrimRight(svc.RootURL, "/") + "/" + strings.TrimLeft(svc.BasePath, "/")
	}
	return svc.BasePath
}

type builder struct {
	svc     *discovery.Service
	opts    Options
	log     *slog.Logger
	doc     *openapi3.T
	opIDs   map[string]string // operationId -> dotted method name
	schemas map[string]*openapi3.Schema
	tags    map[string]struct{}
}

func (b *builder) addOAuth2() {
	scopes := make(map[string]string, b.svc.Scopes.Len())
	for scope, desc := range b.svc.Scopes.All() {
		scopes[scope] = desc
	}
	b.doc.Components.SecuritySchemes = openapi3.SecuritySchemes{
		oauth2Scheme: &openapi3.SecuritySchemeRef{Value: &openapi3.SecurityScheme{
			Type: "oauth2",
			Flows: &openapi3.OAuthFlows{
				AuthorizationCode: &openapi3.OAuthFlow{
					AuthorizationURL: googleAuthURL,
					TokenURL:         googleTokenURL,
					Scopes:           scopes,
				},
			},
		}},
	}
}

var httpMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true, "TRACE": true,
}

var schemaNameInvalid = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// schemaRef returns a reference to the named component schema, declaring a
// generic object schema the first time a name is seen. Discovery schema
// bodies are not modelled, so only their names survive.
func (b *builder) schemaRef(name string) *openapi3.SchemaRef {
	key := schemaNameInvalid.ReplaceAllString(name, "_")
	s, ok := b.schemas[key]
	if !ok {
		s = openapi3.NewObjectSchema()
		s.Title = name
		b.schemas[key] = s
		b.doc.Components.Schemas[key] = openapi3.NewSchemaRef("", s)
	}
	return openapi3.NewSchemaRef("#/components/schemas/"+key, s)
}

func (b *builder) addMethod(resourcePath []string, m *discovery.Method) error {
	dotted := strings.Join(append(append([]string{}, resourcePath...), m.Name), ".")
	opID := operationID(b.svc, m, dotted)
	if prev, dup := b.opIDs[opID]; dup {
		return &ExportError{Code: ConflictError, Method: dotted,
			Message: fmt.Sprintf("openapi: methods %s and %s share operation id %q", prev, dotted, opID)}
	}
	b.opIDs[opID] = dotted

	if !httpMethods[m.HTTPMethod] {
		return &ExportError{Code: ConversionError, Method: dotted,
			Message: fmt.Sprintf("openapi: method %s uses unsupported HTTP method %q", dotted, m.HTTPMethod)}
	}
	path, vars := normalizePath(m.Path)
	item := b.doc.Paths[path]
	if item == nil {
		item = &openapi3.PathItem{}
		b.doc.Paths[path] = item
	}
	if item.GetOperation(m.HTTPMethod) != nil {
		return &ExportError{Code: ConflictError, Method: dotted,
			Message: fmt.Sprintf("openapi: method %s duplicates %s %s", dotted, m.HTTPMethod, path)}
	}

	op := &openapi3.Operation{
		OperationID: opID,
		Summary:     firstLine(m.Description),
		Description: m.Description,
		Parameters:  b.parameters(dotted, m, vars),
	}
	if len(resourcePath) > 0 {
		tag := strings.Join(resourcePath, ".")
		op.Tags = []string{tag}
		b.addTag(tag)
	}
	if m.Request != "" {
		op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchemaRef(b.schemaRef(m.Request))}
	}
	resp := openapi3.NewResponse().WithDescription("Successful response")
	if m.Response != "" {
		resp.WithJSONSchemaRef(b.schemaRef(m.Response))
	}
	op.Responses = openapi3.Responses{"200": &openapi3.ResponseRef{Value: resp}}
	if len(m.Scopes) > 0 && b.doc.Components.SecuritySchemes != nil {
		op.Security = openapi3.NewSecurityRequirements().
			With(openapi3.NewSecurityRequirement().Authenticate(oauth2Scheme, m.Scopes...))
	}
	if m.SupportsMediaUpload {
		op.Extensions = map[string]interface{}{"x-discovery-media-upload": true}
	}
	item.SetOperation(m.HTTPMethod, op)
	return nil
}

func (b *builder) addTag(name string) {
	if b.tags == nil {
		b.tags = map[string]struct{}{}
	}
	if _, ok := b.tags[name]; ok {
		return
	}
	b.tags[name] = struct{}{}
	b.doc.Tags = append(b.doc.Tags, &openapi3.Tag{Name: name})
}

// parameters lists parameterOrder entries first, then the remaining method
// parameters in document order, then (optionally) service-wide ones. Template
// variables without a declaration become required string path parameters.
func (b *builder) parameters(dotted string, m *discovery.Method, vars []string) openapi3.Parameters {
	inTemplate := make(map[string]bool, len(vars))
	for _, v := range vars {
		inTemplate[v] = true
	}
	seen := map[string]bool{}
	var out openapi3.Parameters
	add := func(p *discovery.Parameter) {
		if p == nil || seen[p.Name] {
			return
		}
		seen[p.Name] = true
		switch {
		case p.Location == discovery.LocationPath && !inTemplate[p.Name]:
			b.log.Warn("openapi: path parameter missing from template, exporting as query",
				slog.String("method", dotted), slog.String("parameter", p.Name))
			q := *p
			q.Location = discovery.LocationQuery
			p = &q
		case p.Location != discovery.LocationPath && inTemplate[p.Name]:
			q := *p
			q.Location = discovery.LocationPath
			p = &q
		}
		out = append(out, &openapi3.ParameterRef{Value: convertParameter(p)})
	}

	for _, name := range m.ParameterOrder {
		p, _ := m.Parameters.Lookup(name)
		add(p)
	}
	for _, p := range m.Parameters.All() {
		add(p)
	}
	for _, v := range vars {
		if !seen[v] {
			add(&discovery.Parameter{Name: v, Type: "string", Required: true, Location: discovery.LocationPath})
		}
	}
	if b.opts.IncludeServiceParameters {
		for _, p := range b.svc.Parameters.All() {
			if p.Location == discovery.LocationQuery {
				add(p)
			}
		}
	}
	return out
}

func convertParameter(p *discovery.Parameter) *openapi3.Parameter {
	var param *openapi3.Parameter
	if p.Location == discovery.LocationPath {
		param = openapi3.NewPathParameter(p.Name)
	} else {
		param = openapi3.NewQueryParameter(p.Name).WithRequired(p.Required)
	}
	if p.Description != "" {
		param = param.WithDescription(p.Description)
	}
	schema := parameterSchema(p)
	if p.Repeated {
		schema = openapi3.NewArraySchema().WithItems(schema)
	}
	return param.WithSchema(schema)
}

func parameterSchema(p *discovery.Parameter) *openapi3.Schema {
	var s *openapi3.Schema
	switch p.Type {
	case "integer":
		s = openapi3.NewIntegerSchema()
	case "number":
		s = openapi3.NewFloat64Schema()
	case "boolean":
		s = openapi3.NewBoolSchema()
	case "object":
		s = openapi3.NewObjectSchema()
	case "array":
		s = openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
	case "any":
		return openapi3.NewSchema()
	default:
		s = openapi3.NewStringSchema()
	}

	if s.Type == "string" {
		if len(p.Enum) > 0 {
			values := make([]interface{}, len(p.Enum))
			for i, v := range p.Enum {
				values[i] = v
			}
			s.Enum = values
		}
		if p.Pattern != "" {
			if _, err := regexp.Compile(p.Pattern); err == nil {
				s.Pattern = p.Pattern
			}
		}
	}
	if s.Type == "integer" || s.Type == "number" {
		if f, err := strconv.ParseFloat(p.Minimum, 64); err == nil {
			s.Min = &f
		}
		if f, err := strconv.ParseFloat(p.Maximum, 64); err == nil {
			s.Max = &f
		}
	}
	if d, ok := typedDefault(s.Type, p.Default); ok {
		s.Default = d
	}
	return s
}

// typedDefault converts a discovery default, always a string in the model, to
// the value type the schema validates against. Unconvertible defaults are
// dropped.
func typedDefault(typ, raw string) (interface{}, bool) {
	if raw == "" {
		return nil, false
	}
	switch typ {
	case "string":
		return raw, true
	case "integer":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		return float64(n), true
	case "number":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case "boolean":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

var templateVar = regexp.MustCompile(`\{\+?([^{}]+)\}`)

// normalizePath roots the template and rewrites reserved expansions {+name}
// to {name}. It returns the path variables in template order.
func normalizePath(p string) (string, []string) {
	p = "/" + strings.TrimLeft(p, "/")
	var vars []string
	p = templateVar.ReplaceAllStringFunc(p, func(m string) string {
		name := templateVar.FindStringSubmatch(m)[1]
		vars = append(vars, name)
		return "{" + name + "}"
	})
	return p, vars
}

func operationID(svc *discovery.Service, m *discovery.Method, dotted string) string {
	if m.ID == "" {
		return dotted
	}
	if svc.Name != "" && strings.HasPrefix(m.ID, svc.Name+".") {
		return strings.TrimPrefix(m.ID, svc.Name+".")
	}
	return m.ID
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
