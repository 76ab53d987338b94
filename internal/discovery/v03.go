package discovery

import "strings"

// FactoryV03 builds services from legacy 0.3 documents, where resources
// carry their own name and nest through "resources" to any depth.
type FactoryV03 struct {
	src    *source
	params ParamsV03
}

func (f *FactoryV03) Version() Version { return Version03 }

// Params returns a copy of the parameters the factory was created with.
func (f *FactoryV03) Params() ParamsV03 { return f.params }

func (f *FactoryV03) GetService(name string) (*Service, error) {
	root, err := f.src.parse(f.params.readOptions())
	if err != nil {
		return nil, err
	}
	svc, err := buildServiceV03(root, f.params.defaultHTTPMethod())
	if err != nil {
		return nil, err
	}
	if err := checkVersion(svc, name, f.params.Settings); err != nil {
		return nil, err
	}
	logParsed(f.params.Settings, svc)
	return svc, nil
}

func buildServiceV03(root *Node, defaultVerb string) (*Service, error) {
	svc := newService(Version03)
	var err error
	if svc.Name, err = root.RequiredString("name"); err != nil {
		return nil, err
	}
	if svc.Version, err = root.String("version"); err != nil {
		return nil, err
	}
	if svc.Description, err = root.String("description"); err != nil {
		return nil, err
	}
	if svc.BasePath, err = root.String("restBasePath"); err != nil {
		return nil, err
	}
	resources, err := root.Object("resources")
	if err != nil {
		return nil, err
	}
	if err := buildResourcesV03(resources, svc.Resources, defaultVerb); err != nil {
		return nil, err
	}
	return svc, nil
}

// buildResourcesV03 keeps every entry, including empty objects, keyed by its
// mapping key. The declared "name" may be absent.
func buildResourcesV03(n *Node, into *OrderedMap[*Resource], defaultVerb string) error {
	if n == nil {
		return nil
	}
	for _, m := range n.Members {
		if m.Value.Kind != KindObject {
			return m.Value.typeError("resource object")
		}
		name, err := m.Value.String("name")
		if err != nil {
			return err
		}
		res := newResource(name)
		methods, err := m.Value.Object("methods")
		if err != nil {
			return err
		}
		if methods != nil {
			for _, mm := range methods.Members {
				method, err := buildMethodV03(mm.Key, mm.Value, defaultVerb)
				if err != nil {
					return err
				}
				res.Methods.set(mm.Key, method)
			}
		}
		sub, err := m.Value.Object("resources")
		if err != nil {
			return err
		}
		if err := buildResourcesV03(sub, res.Resources, defaultVerb); err != nil {
			return err
		}
		into.set(m.Key, res)
	}
	return nil
}

func buildMethodV03(name string, n *Node, defaultVerb string) (*Method, error) {
	if n.Kind != KindObject {
		return nil, n.typeError("method object")
	}
	m := newMethod(name)
	var err error
	if m.ID, err = firstString(n, "rpcName", "id"); err != nil {
		return nil, err
	}
	if m.Path, err = firstString(n, "restPath", "path"); err != nil {
		return nil, err
	}
	if m.HTTPMethod, err = n.String("httpMethod"); err != nil {
		return nil, err
	}
	if m.HTTPMethod == "" {
		m.HTTPMethod = defaultVerb
	}
	m.HTTPMethod = strings.ToUpper(m.HTTPMethod)
	if m.Description, err = n.String("description"); err != nil {
		return nil, err
	}
	params, err := n.Object("parameters")
	if err != nil {
		return nil, err
	}
	if err := buildParameters(params, m.Parameters, "restParameterType", "location"); err != nil {
		return nil, err
	}
	m.ParameterOrder = m.Parameters.Keys()
	return m, nil
}

func firstString(n *Node, keys ...string) (string, error) {
	for _, key := range keys {
		s, err := n.String(key)
		if err != nil || s != "" {
			return s, err
		}
	}
	return "", nil
}
