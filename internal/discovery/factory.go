package discovery

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ServiceFactory builds Service models from one discovery document. The
// document is read on the first GetService call; every call returns a fresh,
// independent graph.
type ServiceFactory interface {
	// GetService parses the document and returns the service named by its
	// API version label, e.g. "v1beta1".
	GetService(name string) (*Service, error)
	// Version reports which generation's parser backs this factory.
	Version() Version
}

// strategy registers one generation's parser. Entries are never mutated after
// package initialization.
type strategy struct {
	newFactory func(src *source, p FactoryParameter) ServiceFactory
	newParams  func(opts ...Option) FactoryParameter
}

var generations = map[Version]strategy{
	Version03: {
		newFactory: func(src *source, p FactoryParameter) ServiceFactory {
			return &FactoryV03{src: src, params: asParamsV03(p)}
		},
		newParams: func(opts ...Option) FactoryParameter { return NewParamsV03(opts...) },
	},
	Version10: {
		newFactory: func(src *source, p FactoryParameter) ServiceFactory {
			return &FactoryV10{src: src, params: asParamsV10(p)}
		},
		newParams: func(opts ...Option) FactoryParameter { return NewParamsV10(opts...) },
	},
}

// CreateServiceFactory selects the parser for version and binds it to r and
// params. It does not read r.
//
// A nil r or params fails with ErrInvalidArgument; an unknown version fails
// with ErrUnsupportedVersion; params of another generation fail with
// ErrInvalidArgument.
func CreateServiceFactory(r io.Reader, version Version, params FactoryParameter) (ServiceFactory, error) {
	if isNil(r) {
		return nil, newError(InvalidArgument, "", "stream must not be nil")
	}
	if isNil(params) {
		return nil, newError(InvalidArgument, "", "factory parameters must not be nil")
	}
	g, ok := generations[version]
	if !ok {
		return nil, newError(UnsupportedVersion, "", "discovery version %s is not supported", version)
	}
	if got := params.generation(); got != version {
		return nil, newError(InvalidArgument, "", "factory parameters for version %s cannot configure version %s", got, version)
	}
	return g.newFactory(&source{r: r}, params), nil
}

// source reads the caller's stream at most once and keeps the bytes for
// repeated GetService calls on the same factory.
type source struct {
	r    io.Reader
	once sync.Once
	data []byte
	err  error
}

func (s *source) load() ([]byte, error) {
	s.once.Do(func() {
		s.data, s.err = io.ReadAll(s.r)
		if s.err != nil {
			s.err = &Error{Code: MalformedDocument, Message: "discovery: read document: " + s.err.Error(), Cause: s.err}
		}
	})
	return s.data, s.err
}

func (s *source) parse(opts ReadOptions) (*Node, error) {
	data, err := s.load()
	if err != nil {
		return nil, err
	}
	root, err := Read(bytes.NewReader(data), opts)
	if err != nil {
		return nil, err
	}
	if root.Kind != KindObject {
		return nil, root.typeError("object at document root")
	}
	return root, nil
}

// checkVersion applies the version mismatch policy. A document that declares
// no version matches any request.
func checkVersion(svc *Service, requested string, set Settings) error {
	if requested == "" || svc.Version == "" || svc.Version == requested {
		return nil
	}
	if set.RequireVersionMatch {
		return newError(NotFound, "/version", "service %s not found; document declares %s", requested, svc.Version)
	}
	set.logger().Warn("discovery: document version differs from requested service",
		slog.String("service", svc.Name),
		slog.String("requested", requested),
		slog.String("declared", svc.Version))
	return nil
}

func logParsed(set Settings, svc *Service) {
	set.logger().Debug("discovery: parsed service",
		slog.String("generation", svc.Generation.String()),
		slog.String("service", svc.Name),
		slog.String("version", svc.Version),
		slog.Int("resources", svc.Resources.Len()))
}

func asParamsV10(p FactoryParameter) ParamsV10 {
	switch v := p.(type) {
	case ParamsV10:
		return v
	case *ParamsV10:
		return *v
	}
	panic(fmt.Sprintf("discovery: unexpected parameter type %T", p))
}

func asParamsV03(p FactoryParameter) ParamsV03 {
	switch v := p.(type) {
	case ParamsV03:
		return v
	case *ParamsV03:
		return *v
	}
	panic(fmt.Sprintf("discovery: unexpected parameter type %T", p))
}
