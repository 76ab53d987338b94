package discovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParse_PreservesOrderAndKinds(t *testing.T) {
	t.Parallel()
	root, err := Parse([]byte(`{"z": 1, "a": "x", "m": [true, null, 2.5], "q": {"k": 'v'}}`), ReadOptions{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var keys []string
	for _, m := range root.Members {
		keys = append(keys, m.Key)
	}
	if got := strings.Join(keys, ","); got != "z,a,m,q" {
		t.Fatalf("expected document order z,a,m,q, got %s", got)
	}
	if n := root.Field("z"); n.Kind != KindNumber || n.Text != "1" {
		t.Fatalf("unexpected z: %+v", n)
	}
	arr := root.Field("m")
	if arr.Kind != KindArray || arr.Len() != 3 {
		t.Fatalf("unexpected m: %+v", arr)
	}
	if arr.Items[0].Kind != KindBool || !arr.Items[0].Bool {
		t.Fatalf("expected true, got %+v", arr.Items[0])
	}
	if arr.Items[1].Kind != KindNull {
		t.Fatalf("expected null, got %+v", arr.Items[1])
	}
	if arr.Items[2].Pointer != "/m/2" {
		t.Fatalf("unexpected pointer %q", arr.Items[2].Pointer)
	}
	if s, err := root.Field("q").String("k"); err != nil || s != "v" {
		t.Fatalf("expected single-quoted value v, got %q (%v)", s, err)
	}
}

func TestParse_QuotedScalarsStayStrings(t *testing.T) {
	t.Parallel()
	root, err := Parse([]byte(`{"n": "42", "b": "true", "z": "null"}`), ReadOptions{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, key := range []string{"n", "b", "z"} {
		if k := root.Field(key).Kind; k != KindString {
			t.Fatalf("%s: expected string, got %s", key, k)
		}
	}
}

func TestParse_InvalidUTF8(t *testing.T) {
	t.Parallel()
	_, err := Parse([]byte{'{', '"', 'a', '"', ':', '"', 0xff, 0xfe, '"', '}'}, ReadOptions{})
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestParse_DuplicateKeys(t *testing.T) {
	t.Parallel()
	doc := []byte(`{"resources": {"a": {"name": "first"}, "a": {"name": "second"}}}`)
	_, err := Parse(doc, ReadOptions{})
	if !errors.Is(err, ErrDataIntegrity) {
		t.Fatalf("expected ErrDataIntegrity, got %v", err)
	}
	var de *Error
	if !errors.As(err, &de) || de.Pointer != "/resources/a" {
		t.Fatalf("expected pointer /resources/a, got %v", err)
	}

	root, err := Parse(doc, ReadOptions{AllowDuplicateKeys: true})
	if err != nil {
		t.Fatalf("parse with duplicates allowed: %v", err)
	}
	res := root.Field("resources")
	if res.Len() != 1 {
		t.Fatalf("expected 1 member, got %d", res.Len())
	}
	if name, _ := res.Field("a").String("name"); name != "first" {
		t.Fatalf("expected first occurrence to win, got %q", name)
	}
}

func TestParse_MaxDepth(t *testing.T) {
	t.Parallel()
	deep := strings.Repeat(`{"r":`, 10) + `{}` + strings.Repeat(`}`, 10)
	if _, err := Parse([]byte(deep), ReadOptions{MaxDepth: 20}); err != nil {
		t.Fatalf("expected depth 11 to pass limit 20: %v", err)
	}
	_, err := Parse([]byte(deep), ReadOptions{MaxDepth: 5})
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestParse_RejectsNonJSONSyntax(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"block yaml":     "name: yamlsvc\nresources:\n  r: {}\n",
		"yaml alias":     "a: &x {b: 1}\nc: *x\n",
		"missing comma":  `{"a": 1 "b": 2}`,
		"missing colon":  `{"a" 1}`,
		"trailing comma": `{"a": 1,}`,
		"two values":     `{"a": 1} {"b": 2}`,
		"bare word":      `{"a": yes}`,
		"open string":    `{'a': 'b}`,
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc), ReadOptions{}); !errors.Is(err, ErrMalformedDocument) {
			t.Fatalf("%s: expected ErrMalformedDocument, got %v", name, err)
		}
	}
}

func TestParse_JSONEscapesAndLongKeys(t *testing.T) {
	t.Parallel()
	longKey := strings.Repeat("k", 1100)
	doc := `{"rootUrl": "https:\/\/www.googleapis.com\/", "tab": "a\tb\u00e9",` +
		"\n\"" + longKey + "\"\n: 1}"
	root, err := Parse([]byte(doc), ReadOptions{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s, _ := root.String("rootUrl"); s != "https://www.googleapis.com/" {
		t.Fatalf("unexpected rootUrl %q", s)
	}
	if s, _ := root.String("tab"); s != "a\tb\u00e9" {
		t.Fatalf("unexpected escaped value %q", s)
	}
	if n := root.Field(longKey); n == nil || n.Kind != KindNumber || n.Text != "1" {
		t.Fatalf("expected long key with value 1, got %+v", n)
	}
}

func TestParse_SingleQuotedStrings(t *testing.T) {
	t.Parallel()
	root, err := Parse([]byte(`{'say': 'he said "hi"', 'its': 'it\'s', "keep": "Google's"}`), ReadOptions{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for key, want := range map[string]string{"say": `he said "hi"`, "its": "it's", "keep": "Google's"} {
		if got, _ := root.String(key); got != want {
			t.Fatalf("%s: expected %q, got %q", key, want, got)
		}
	}
}

func TestNode_TypeMismatchIsMalformed(t *testing.T) {
	t.Parallel()
	root, err := Parse([]byte(`{"name": 3, "labels": "x", "flag": "yes"}`), ReadOptions{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := root.String("name"); !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("String: expected ErrMalformedDocument, got %v", err)
	}
	if _, err := root.StringList("labels"); !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("StringList: expected ErrMalformedDocument, got %v", err)
	}
	if _, err := root.BoolField("flag"); !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("BoolField: expected ErrMalformedDocument, got %v", err)
	}
	if s, err := root.Scalar("name"); err != nil || s != "3" {
		t.Fatalf("Scalar: expected 3, got %q (%v)", s, err)
	}
	if list, err := root.StringList("missing"); err != nil || list == nil || len(list) != 0 {
		t.Fatalf("StringList on missing key: expected empty slice, got %#v (%v)", list, err)
	}
}

func TestNode_Interface(t *testing.T) {
	t.Parallel()
	root, err := Parse([]byte(`{"a": [1, "b", false, null]}`), ReadOptions{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m, ok := root.Interface().(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", root.Interface())
	}
	arr := m["a"].([]any)
	if arr[0] != json.Number("1") || arr[1] != "b" || arr[2] != false || arr[3] != nil {
		t.Fatalf("unexpected values: %#v", arr)
	}
}

func TestRead_NilReader(t *testing.T) {
	t.Parallel()
	if _, err := Read(nil, ReadOptions{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	var br *bytes.Reader
	if _, err := Read(br, ReadOptions{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("typed nil reader: expected ErrInvalidArgument, got %v", err)
	}
}
