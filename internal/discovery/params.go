package discovery

import (
	"log/slog"
	"reflect"
	"strings"
)

// DefaultMaxDepth bounds object/array nesting when Settings.MaxDepth is zero.
const DefaultMaxDepth = 128

// Settings holds the behavior shared by every generation's parameters.
type Settings struct {
	// RequireVersionMatch makes GetService fail with NotFound when the
	// document declares a version different from the requested one. When
	// false the mismatch is logged and ignored.
	RequireVersionMatch bool
	// AllowDuplicateKeys keeps the first occurrence of a repeated object key
	// instead of rejecting the document.
	AllowDuplicateKeys bool
	// MaxDepth limits nesting of the document tree. Zero means DefaultMaxDepth.
	MaxDepth int
	// Logger receives parse diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

func (s Settings) readOptions() ReadOptions {
	return ReadOptions{AllowDuplicateKeys: s.AllowDuplicateKeys, MaxDepth: s.MaxDepth}
}

func (s Settings) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// FactoryParameter configures one generation's parser. It is implemented
// only by ParamsV03 and ParamsV10; pass the one matching the Version handed
// to CreateServiceFactory.
type FactoryParameter interface {
	generation() Version
	settings() Settings
}

// ParamsV10 configures parsing of 1.0 restDescription documents.
type ParamsV10 struct {
	Settings
	// Strict validates the document against the restDescription schema
	// before the model is built.
	Strict bool
}

func (p ParamsV10) generation() Version { return Version10 }
func (p ParamsV10) settings() Settings  { return p.Settings }

// ParamsV03 configures parsing of legacy 0.3 documents.
type ParamsV03 struct {
	Settings
	// DefaultHTTPMethod applies to methods that omit httpMethod. Empty means GET.
	DefaultHTTPMethod string
}

func (p ParamsV03) generation() Version { return Version03 }
func (p ParamsV03) settings() Settings  { return p.Settings }

func (p ParamsV03) defaultHTTPMethod() string {
	if m := strings.ToUpper(strings.TrimSpace(p.DefaultHTTPMethod)); m != "" {
		return m
	}
	return "GET"
}

// Option mutates parameters built by NewParamsV10 and NewParamsV03.
type Option func(*options)

type options struct {
	Settings
	strict     bool
	httpMethod string
}

func WithRequireVersionMatch(v bool) Option { return func(o *options) { o.RequireVersionMatch = v } }
func WithAllowDuplicateKeys(v bool) Option  { return func(o *options) { o.AllowDuplicateKeys = v } }
func WithMaxDepth(n int) Option             { return func(o *options) { o.MaxDepth = n } }
func WithLogger(l *slog.Logger) Option      { return func(o *options) { o.Logger = l } }

// WithStrict enables schema validation; only 1.0 parameters honor it.
func WithStrict(v bool) Option { return func(o *options) { o.strict = v } }

// WithDefaultHTTPMethod sets the legacy verb fallback; only 0.3 parameters honor it.
func WithDefaultHTTPMethod(m string) Option { return func(o *options) { o.httpMethod = m } }

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewParamsV10 returns 1.0 parameters with the given options applied.
func NewParamsV10(opts ...Option) *ParamsV10 {
	o := collect(opts)
	return &ParamsV10{Settings: o.Settings, Strict: o.strict}
}

// NewParamsV03 returns 0.3 parameters with the given options applied.
func NewParamsV03(opts ...Option) *ParamsV03 {
	o := collect(opts)
	return &ParamsV03{Settings: o.Settings, DefaultHTTPMethod: o.httpMethod}
}

// NewParams returns default parameters for v, or nil when v is unsupported.
func NewParams(v Version, opts ...Option) FactoryParameter {
	g, ok := generations[v]
	if !ok {
		return nil
	}
	return g.newParams(opts...)
}

// isNil reports whether v is nil or an interface holding a nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
