package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// Version tags a discovery document generation. The zero value is not a
// supported generation.
type Version int

const (
	Version03 Version = iota + 1 // legacy "0.3" documents
	Version10                    // "1.0" restDescription documents
)

func (v Version) String() string {
	switch v {
	case Version03:
		return "0.3"
	case Version10:
		return "1.0"
	default:
		return fmt.Sprintf("Version(%d)", int(v))
	}
}

// Supported reports whether a parser is registered for v.
func (v Version) Supported() bool {
	_, ok := generations[v]
	return ok
}

// ParseVersion maps a user-facing tag such as "1.0", "v1" or "0.3" to a
// Version. Unknown tags fail with an UnsupportedVersion error.
func ParseVersion(s string) (Version, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.TrimPrefix(t, "v")
	switch t {
	case "0.3":
		return Version03, nil
	case "1", "1.0":
		return Version10, nil
	}
	return 0, newError(UnsupportedVersion, "", "unknown discovery version %q (supported: %s)", s, strings.Join(versionNames(), ", "))
}

// SupportedVersions lists the registered generations, oldest first.
func SupportedVersions() []Version {
	out := make([]Version, 0, len(generations))
	for v := range generations {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func versionNames() []string {
	vs := SupportedVersions()
	names := make([]string, 0, len(vs))
	for _, v := range vs {
		names = append(names, v.String())
	}
	return names
}

// MarshalText renders the user-facing tag, so model JSON carries "1.0"
// rather than an integer.
func (v Version) MarshalText() ([]byte, error) {
	if !v.Supported() {
		return nil, newError(UnsupportedVersion, "", "discovery version %s is not supported", v)
	}
	return []byte(v.String()), nil
}

func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
