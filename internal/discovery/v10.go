package discovery

import (
	"strconv"
	"strings"
)

// FactoryV10 builds services from 1.0 restDescription documents
// ("kind": "discovery#restDescription").
type FactoryV10 struct {
	src    *source
	params ParamsV10
}

func (f *FactoryV10) Version() Version { return Version10 }

// Params returns a copy of the parameters the factory was created with.
func (f *FactoryV10) Params() ParamsV10 { return f.params }

func (f *FactoryV10) GetService(name string) (*Service, error) {
	root, err := f.src.parse(f.params.readOptions())
	if err != nil {
		return nil, err
	}
	if f.params.Strict {
		if err := validateRestDescription(root); err != nil {
			return nil, err
		}
	}
	svc, err := buildServiceV10(root)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(svc, name, f.params.Settings); err != nil {
		return nil, err
	}
	logParsed(f.params.Settings, svc)
	return svc, nil
}

func buildServiceV10(root *Node) (*Service, error) {
	svc := newService(Version10)
	var err error
	if svc.Name, err = root.RequiredString("name"); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"kind", &svc.Kind},
		{"id", &svc.ID},
		{"version", &svc.Version},
		{"title", &svc.Title},
		{"description", &svc.Description},
		{"protocol", &svc.Protocol},
		{"basePath", &svc.BasePath},
		{"rootUrl", &svc.RootURL},
	} {
		if *f.dst, err = root.String(f.key); err != nil {
			return nil, err
		}
	}
	if svc.BasePath == "" {
		if svc.BasePath, err = root.String("servicePath"); err != nil {
			return nil, err
		}
	}
	if svc.Labels, err = root.StringList("labels"); err != nil {
		return nil, err
	}
	if err := buildScopes(root, svc.Scopes); err != nil {
		return nil, err
	}

	params, err := root.Object("parameters")
	if err != nil {
		return nil, err
	}
	if err := buildParameters(params, svc.Parameters, "location"); err != nil {
		return nil, err
	}

	methods, err := root.Object("methods")
	if err != nil {
		return nil, err
	}
	if err := buildMethodsV10(methods, svc.Methods); err != nil {
		return nil, err
	}

	resources, err := root.Object("resources")
	if err != nil {
		return nil, err
	}
	if err := buildResourcesV10(resources, svc.Resources); err != nil {
		return nil, err
	}

	schemas, err := root.Object("schemas")
	if err != nil {
		return nil, err
	}
	if schemas != nil {
		for _, m := range schemas.Members {
			svc.Schemas = append(svc.Schemas, m.Key)
		}
	}
	return svc, nil
}

// buildScopes reads auth.oauth2.scopes.
func buildScopes(root *Node, into *OrderedMap[string]) error {
	auth, err := root.Object("auth")
	if err != nil || auth == nil {
		return err
	}
	oauth2, err := auth.Object("oauth2")
	if err != nil || oauth2 == nil {
		return err
	}
	scopes, err := oauth2.Object("scopes")
	if err != nil || scopes == nil {
		return err
	}
	for _, m := range scopes.Members {
		if m.Value.Kind != KindObject {
			return m.Value.typeError("scope object")
		}
		desc, err := m.Value.String("description")
		if err != nil {
			return err
		}
		into.set(m.Key, desc)
	}
	return nil
}

func buildResourcesV10(n *Node, into *OrderedMap[*Resource]) error {
	if n == nil {
		return nil
	}
	for _, m := range n.Members {
		if m.Value.Kind != KindObject {
			return m.Value.typeError("resource object")
		}
		res := newResource(m.Key)
		methods, err := m.Value.Object("methods")
		if err != nil {
			return err
		}
		if err := buildMethodsV10(methods, res.Methods); err != nil {
			return err
		}
		sub, err := m.Value.Object("resources")
		if err != nil {
			return err
		}
		if err := buildResourcesV10(sub, res.Resources); err != nil {
			return err
		}
		into.set(m.Key, res)
	}
	return nil
}

func buildMethodsV10(n *Node, into *OrderedMap[*Method]) error {
	if n == nil {
		return nil
	}
	for _, m := range n.Members {
		method, err := buildMethodV10(m.Key, m.Value)
		if err != nil {
			return err
		}
		into.set(m.Key, method)
	}
	return nil
}

func buildMethodV10(name string, n *Node) (*Method, error) {
	if n.Kind != KindObject {
		return nil, n.typeError("method object")
	}
	m := newMethod(name)
	var err error
	if m.ID, err = n.String("id"); err != nil {
		return nil, err
	}
	if m.Path, err = n.RequiredString("path"); err != nil {
		return nil, err
	}
	if m.HTTPMethod, err = n.RequiredString("httpMethod"); err != nil {
		return nil, err
	}
	m.HTTPMethod = strings.ToUpper(m.HTTPMethod)
	if m.Description, err = n.String("description"); err != nil {
		return nil, err
	}
	params, err := n.Object("parameters")
	if err != nil {
		return nil, err
	}
	if err := buildParameters(params, m.Parameters, "location"); err != nil {
		return nil, err
	}
	if m.ParameterOrder, err = n.StringList("parameterOrder"); err != nil {
		return nil, err
	}
	if err := checkParameterOrder(n, m); err != nil {
		return nil, err
	}
	if err := checkPathParameters(n, m); err != nil {
		return nil, err
	}
	if m.Request, err = schemaRef(n, "request"); err != nil {
		return nil, err
	}
	if m.Response, err = schemaRef(n, "response"); err != nil {
		return nil, err
	}
	if m.Scopes, err = n.StringList("scopes"); err != nil {
		return nil, err
	}
	if m.SupportsMediaUpload, err = n.BoolField("supportsMediaUpload"); err != nil {
		return nil, err
	}
	return m, nil
}

func newMethod(name string) *Method {
	return &Method{
		Name:           name,
		Parameters:     newOrderedMap[*Parameter](),
		ParameterOrder: []string{},
		Scopes:         []string{},
	}
}

func schemaRef(n *Node, key string) (string, error) {
	obj, err := n.Object(key)
	if err != nil || obj == nil {
		return "", err
	}
	return obj.String("$ref")
}

// checkParameterOrder rejects parameterOrder entries that are undeclared or
// repeated.
func checkParameterOrder(n *Node, m *Method) error {
	seen := make(map[string]struct{}, len(m.ParameterOrder))
	for i, name := range m.ParameterOrder {
		ptr := n.Pointer + "/parameterOrder/" + strconv.Itoa(i)
		if _, ok := m.Parameters.Lookup(name); !ok {
			return integrity(ptr, "parameterOrder references undeclared parameter %q in method %q", name, m.Name)
		}
		if _, dup := seen[name]; dup {
			return integrity(ptr, "parameterOrder lists %q more than once in method %q", name, m.Name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// checkPathParameters requires every path parameter to appear in the path
// template as {name} or {+name}.
func checkPathParameters(n *Node, m *Method) error {
	for name, p := range m.Parameters.All() {
		if p.Location != LocationPath {
			continue
		}
		if !strings.Contains(m.Path, "{"+name+"}") && !strings.Contains(m.Path, "{+"+name+"}") {
			return integrity(n.Pointer+"/parameters/"+escapePointer(name),
				"path parameter %q does not appear in path %q", name, m.Path)
		}
	}
	return nil
}

// buildParameters reads a name-to-parameter object mapping. locationKeys are
// tried in order; the first non-empty value wins.
func buildParameters(n *Node, into *OrderedMap[*Parameter], locationKeys ...string) error {
	if n == nil {
		return nil
	}
	for _, m := range n.Members {
		p, err := buildParameter(m.Key, m.Value, locationKeys)
		if err != nil {
			return err
		}
		into.set(m.Key, p)
	}
	return nil
}

func buildParameter(name string, n *Node, locationKeys []string) (*Parameter, error) {
	if n.Kind != KindObject {
		return nil, n.typeError("parameter object")
	}
	p := &Parameter{Name: name}
	var err error
	if p.Type, err = n.String("type"); err != nil {
		return nil, err
	}
	if p.Type == "" {
		p.Type = "string"
	}
	if p.Description, err = n.String("description"); err != nil {
		return nil, err
	}
	if p.Required, err = n.BoolField("required"); err != nil {
		return nil, err
	}
	var loc string
	for _, key := range locationKeys {
		if loc, err = n.String(key); err != nil {
			return nil, err
		}
		if loc != "" {
			break
		}
	}
	switch Location(strings.ToLower(loc)) {
	case "", LocationQuery:
		p.Location = LocationQuery
	case LocationPath:
		p.Location = LocationPath
	default:
		return nil, integrity(n.Pointer, "parameter %q has unsupported location %q", name, loc)
	}
	if p.Default, err = n.Scalar("default"); err != nil {
		return nil, err
	}
	if p.Pattern, err = n.String("pattern"); err != nil {
		return nil, err
	}
	if p.Enum, err = n.StringList("enum"); err != nil {
		return nil, err
	}
	if p.Minimum, err = n.Scalar("minimum"); err != nil {
		return nil, err
	}
	if p.Maximum, err = n.Scalar("maximum"); err != nil {
		return nil, err
	}
	if p.Repeated, err = n.BoolField("repeated"); err != nil {
		return nil, err
	}
	return p, nil
}
