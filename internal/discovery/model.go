package discovery

import (
	"bytes"
	"iter"
	"strings"

	"github.com/goccy/go-json"
)

// Service is the root of a parsed discovery document. It is built once per
// GetService call and never mutated afterwards.
type Service struct {
	Generation  Version  `json:"generation"`
	Kind        string   `json:"kind,omitempty"`
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Protocol    string   `json:"protocol,omitempty"`
	BasePath    string   `json:"basePath,omitempty"`
	RootURL     string   `json:"rootUrl,omitempty"`
	Labels      []string `json:"labels"`
	// Scopes maps OAuth2 scope URLs to their descriptions.
	Scopes     *OrderedMap[string]     `json:"scopes"`
	Parameters *OrderedMap[*Parameter] `json:"parameters"`
	Methods    *OrderedMap[*Method]    `json:"methods"`
	Resources  *OrderedMap[*Resource]  `json:"resources"`
	// Schemas lists declared schema ids in document order.
	Schemas []string `json:"schemas"`
}

// Resource groups methods and nested sub-resources.
type Resource struct {
	Name      string                 `json:"name,omitempty"`
	Methods   *OrderedMap[*Method]   `json:"methods"`
	Resources *OrderedMap[*Resource] `json:"resources"`
}

// Method is a single callable operation.
type Method struct {
	ID          string                  `json:"id,omitempty"`
	Name        string                  `json:"name"`
	HTTPMethod  string                  `json:"httpMethod"`
	Path        string                  `json:"path"`
	Description string                  `json:"description,omitempty"`
	Parameters  *OrderedMap[*Parameter] `json:"parameters"`
	// ParameterOrder is the call order of positional parameters.
	ParameterOrder      []string `json:"parameterOrder"`
	Request             string   `json:"request,omitempty"`  // schema $ref of the request body, if any
	Response            string   `json:"response,omitempty"` // schema $ref of the response, if any
	Scopes              []string `json:"scopes"`
	SupportsMediaUpload bool     `json:"supportsMediaUpload,omitempty"`
}

// Location says where a parameter travels in the HTTP request.
type Location string

const (
	LocationPath  Location = "path"
	LocationQuery Location = "query"
)

// Parameter describes one method or service-wide parameter.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Location    Location `json:"location"`
	Default     string   `json:"default,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     string   `json:"minimum,omitempty"`
	Maximum     string   `json:"maximum,omitempty"`
	Repeated    bool     `json:"repeated,omitempty"`
}

func newService(gen Version) *Service {
	return &Service{
		Generation: gen,
		Labels:     []string{},
		Scopes:     newOrderedMap[string](),
		Parameters: newOrderedMap[*Parameter](),
		Methods:    newOrderedMap[*Method](),
		Resources:  newOrderedMap[*Resource](),
		Schemas:    []string{},
	}
}

func newResource(name string) *Resource {
	return &Resource{
		Name:      name,
		Methods:   newOrderedMap[*Method](),
		Resources: newOrderedMap[*Resource](),
	}
}

// Resource walks nested resources by name, e.g. Resource("mgmt", "a").
func (s *Service) Resource(path ...string) (*Resource, error) {
	if len(path) == 0 {
		return nil, newError(NotFound, "", "empty resource path")
	}
	res, err := s.Resources.Get(path[0])
	if err != nil {
		return nil, err
	}
	for i, name := range path[1:] {
		child, ok := res.Resources.Lookup(name)
		if !ok {
			return nil, newError(NotFound, "", "resource %q not found", strings.Join(path[:i+2], "."))
		}
		res = child
	}
	return res, nil
}

// Method resolves a dotted name such as "adunits.list". A name without a
// dot refers to a service-level method.
func (s *Service) Method(dotted string) (*Method, error) {
	parts := strings.Split(dotted, ".")
	name := parts[len(parts)-1]
	if len(parts) == 1 {
		return s.Methods.Get(name)
	}
	res, err := s.Resource(parts[:len(parts)-1]...)
	if err != nil {
		return nil, err
	}
	m, ok := res.Methods.Lookup(name)
	if !ok {
		return nil, newError(NotFound, "", "method %q not found", dotted)
	}
	return m, nil
}

// WalkMethods calls fn for every method in document order: service-level
// methods first, then each resource depth-first. resourcePath is empty for
// service-level methods. Returning false stops the walk.
func (s *Service) WalkMethods(fn func(resourcePath []string, m *Method) bool) {
	for _, m := range s.Methods.All() {
		if !fn(nil, m) {
			return
		}
	}
	type frame struct {
		path []string
		res  *Resource
	}
	var stack []frame
	keys := s.Resources.Keys()
	for i := len(keys) - 1; i >= 0; i-- {
		r, _ := s.Resources.Lookup(keys[i])
		stack = append(stack, frame{path: []string{keys[i]}, res: r})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range f.res.Methods.All() {
			if !fn(f.path, m) {
				return
			}
		}
		sub := f.res.Resources.Keys()
		for i := len(sub) - 1; i >= 0; i-- {
			r, _ := f.res.Resources.Lookup(sub[i])
			p := append(append([]string{}, f.path...), sub[i])
			stack = append(stack, frame{path: p, res: r})
		}
	}
}

// OrderedMap is a read-only string-keyed map that iterates in insertion
// (document) order.
type OrderedMap[V any] struct {
	keys  []string
	index map[string]V
}

func newOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{keys: []string{}, index: map[string]V{}}
}

func (m *OrderedMap[V]) set(key string, v V) {
	if _, ok := m.index[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.index[key] = v
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in document order.
func (m *OrderedMap[V]) Keys() []string {
	if m == nil {
		return []string{}
	}
	return append(make([]string, 0, len(m.keys)), m.keys...)
}

// Lookup is the safe accessor: ok is false when key is absent.
func (m *OrderedMap[V]) Lookup(key string) (v V, ok bool) {
	if m == nil {
		return v, false
	}
	v, ok = m.index[key]
	return v, ok
}

// Get returns the value for key or a NotFound error.
func (m *OrderedMap[V]) Get(key string) (V, error) {
	v, ok := m.Lookup(key)
	if !ok {
		return v, newError(NotFound, "", "%q not found", key)
	}
	return v, nil
}

// All iterates entries in document order.
func (m *OrderedMap[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.index[k]) {
				return
			}
		}
	}
}

// MarshalJSON encodes the map as a JSON object in document order.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.index[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
