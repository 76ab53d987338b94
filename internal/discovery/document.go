package discovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	gojson "github.com/goccy/go-json"
)

// Kind enumerates the generic document node variants.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Member is one key/value pair of an object node.
type Member struct {
	Key   string
	Value *Node
}

// Node is a generic, loosely typed document tree with no knowledge of
// discovery semantics. Objects keep their members in document order.
type Node struct {
	Kind    Kind
	Text    string // string value, or number literal as written
	Bool    bool
	Items   []*Node
	Members []Member
	Pointer string // JSON Pointer of this node within the document

	index map[string]int
}

// ReadOptions controls how raw bytes become a Node tree.
type ReadOptions struct {
	AllowDuplicateKeys bool
	MaxDepth           int
}

// Read consumes r to EOF and parses it. r is neither closed nor reset.
func Read(r io.Reader, opts ReadOptions) (*Node, error) {
	if isNil(r) {
		return nil, newError(InvalidArgument, "", "nil document reader")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Code: MalformedDocument, Message: "discovery: read document: " + err.Error(), Cause: err}
	}
	return Parse(data, opts)
}

// Parse decodes UTF-8 JSON text into a Node tree. Single-quoted strings, as
// found in hand-written discovery fixtures, are accepted.
func Parse(data []byte, opts ReadOptions) (*Node, error) {
	if !utf8.Valid(data) {
		return nil, malformed("", "document is not valid UTF-8")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, malformed("", "document is empty")
	}

	text, err := requote(data)
	if err != nil {
		return nil, err
	}
	if !gojson.Valid(text) {
		var v any
		msg := "document is not valid JSON"
		if err := gojson.Unmarshal(text, &v); err != nil {
			msg += ": " + err.Error()
		}
		return nil, malformed("", "%s", msg)
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	dec := gojson.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	t := &tokenReader{dec: dec, opts: opts, maxDepth: maxDepth}

	tok, err := t.next("")
	if err != nil {
		return nil, err
	}
	root, err := t.value(tok, "", 1)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("", "document contains more than one value")
	}
	return root, nil
}

// requote rewrites single-quoted strings as JSON strings. Text inside
// double-quoted strings is copied unchanged.
func requote(data []byte) ([]byte, error) {
	if bytes.IndexByte(data, '\'') < 0 {
		return data, nil
	}
	out := make([]byte, 0, len(data)+8)
	var quote byte
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case quote == 0:
			if c == '\'' {
				quote = c
				out = append(out, '"')
				continue
			}
			if c == '"' {
				quote = c
			}
			out = append(out, c)
		case c == '\\':
			if i+1 >= len(data) {
				return nil, malformed("", "unterminated string")
			}
			i++
			if quote == '\'' && data[i] == '\'' {
				out = append(out, '\'')
				continue
			}
			out = append(out, c, data[i])
		case c == quote:
			quote = 0
			out = append(out, '"')
		case quote == '\'' && c == '"':
			out = append(out, '\\', '"')
		default:
			out = append(out, c)
		}
	}
	if quote != 0 {
		return nil, malformed("", "unterminated string")
	}
	return out, nil
}

// tokenReader builds a Node tree from a validated JSON token stream.
type tokenReader struct {
	dec      *gojson.Decoder
	opts     ReadOptions
	maxDepth int
}

func (t *tokenReader) next(pointer string) (gojson.Token, error) {
	tok, err := t.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, malformed(pointer, "unexpected end of document")
	}
	if err != nil {
		return nil, &Error{Code: MalformedDocument, Pointer: pointer, Message: "discovery: parse document: " + err.Error(), Cause: err}
	}
	return tok, nil
}

func (t *tokenReader) value(tok gojson.Token, pointer string, depth int) (*Node, error) {
	if depth > t.maxDepth {
		return nil, malformed(pointer, "document nesting exceeds %d levels", t.maxDepth)
	}
	switch v := tok.(type) {
	case gojson.Delim:
		switch v {
		case '{':
			return t.object(pointer, depth)
		case '[':
			return t.array(pointer, depth)
		}
		return nil, malformed(pointer, "unexpected %q", rune(v))
	case string:
		return &Node{Kind: KindString, Text: v, Pointer: pointer}, nil
	case gojson.Number:
		return &Node{Kind: KindNumber, Text: string(v), Pointer: pointer}, nil
	case float64:
		return &Node{Kind: KindNumber, Text: strconv.FormatFloat(v, 'g', -1, 64), Pointer: pointer}, nil
	case bool:
		return &Node{Kind: KindBool, Bool: v, Text: strconv.FormatBool(v), Pointer: pointer}, nil
	case nil:
		return &Node{Kind: KindNull, Pointer: pointer}, nil
	}
	return nil, malformed(pointer, "unexpected token %v", tok)
}

func (t *tokenReader) object(pointer string, depth int) (*Node, error) {
	n := &Node{Kind: KindObject, Pointer: pointer, index: map[string]int{}}
	for {
		tok, err := t.next(pointer)
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(gojson.Delim); ok && d == '}' {
			return n, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, malformed(pointer, "object keys must be strings")
		}
		childPtr := pointer + "/" + escapePointer(key)
		tok, err = t.next(childPtr)
		if err != nil {
			return nil, err
		}
		child, err := t.value(tok, childPtr, depth+1)
		if err != nil {
			return nil, err
		}
		if _, dup := n.index[key]; dup {
			if t.opts.AllowDuplicateKeys {
				continue
			}
			return nil, integrity(childPtr, "duplicate key %q", key)
		}
		n.index[key] = len(n.Members)
		n.Members = append(n.Members, Member{Key: key, Value: child})
	}
}

func (t *tokenReader) array(pointer string, depth int) (*Node, error) {
	n := &Node{Kind: KindArray, Pointer: pointer, Items: []*Node{}}
	for {
		childPtr := pointer + "/" + strconv.Itoa(len(n.Items))
		tok, err := t.next(childPtr)
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(gojson.Delim); ok && d == ']' {
			return n, nil
		}
		child, err := t.value(tok, childPtr, depth+1)
		if err != nil {
			return nil, err
		}
		n.Items = append(n.Items, child)
	}
}

func escapePointer(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

// Field returns the member named key, or nil when n is not an object or has
// no such member.
func (n *Node) Field(key string) *Node {
	if n == nil || n.Kind != KindObject {
		return nil
	}
	if i, ok := n.index[key]; ok {
		return n.Members[i].Value
	}
	return nil
}

// Has reports whether an object node declares key, even as null.
func (n *Node) Has(key string) bool {
	if n == nil || n.Kind != KindObject {
		return false
	}
	_, ok := n.index[key]
	return ok
}

// Len returns the number of members or items.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case KindObject:
		return len(n.Members)
	case KindArray:
		return len(n.Items)
	}
	return 0
}

func (n *Node) typeError(want string) *Error {
	return malformed(n.Pointer, "expected %s, found %s", want, n.Kind)
}

// Object returns the object member key. A missing or null member yields
// (nil, nil); any other non-object value is a MalformedDocument error.
func (n *Node) Object(key string) (*Node, error) {
	v := n.Field(key)
	if v == nil || v.Kind == KindNull {
		return nil, nil
	}
	if v.Kind != KindObject {
		return nil, v.typeError("object")
	}
	return v, nil
}

// Array returns the array member key with the same absence rules as Object.
func (n *Node) Array(key string) (*Node, error) {
	v := n.Field(key)
	if v == nil || v.Kind == KindNull {
		return nil, nil
	}
	if v.Kind != KindArray {
		return nil, v.typeError("array")
	}
	return v, nil
}

// String returns the string member key, or "" when absent or null.
func (n *Node) String(key string) (string, error) {
	v := n.Field(key)
	if v == nil || v.Kind == KindNull {
		return "", nil
	}
	if v.Kind != KindString {
		return "", v.typeError("string")
	}
	return v.Text, nil
}

// Scalar returns the literal text of a string, number or boolean member.
func (n *Node) Scalar(key string) (string, error) {
	v := n.Field(key)
	if v == nil || v.Kind == KindNull {
		return "", nil
	}
	switch v.Kind {
	case KindString, KindNumber:
		return v.Text, nil
	case KindBool:
		return strconv.FormatBool(v.Bool), nil
	}
	return "", v.typeError("scalar")
}

// RequiredString is String, failing when the member is absent or empty.
func (n *Node) RequiredString(key string) (string, error) {
	s, err := n.String(key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", malformed(n.Pointer, "missing required field %q", key)
	}
	return s, nil
}

// BoolField returns the boolean member key, false when absent or null.
func (n *Node) BoolField(key string) (bool, error) {
	v := n.Field(key)
	if v == nil || v.Kind == KindNull {
		return false, nil
	}
	if v.Kind != KindBool {
		return false, v.typeError("boolean")
	}
	return v.Bool, nil
}

// StringList returns the array-of-strings member key. Absent yields an
// empty, non-nil slice.
func (n *Node) StringList(key string) ([]string, error) {
	arr, err := n.Array(key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, arr.Len())
	if arr == nil {
		return out, nil
	}
	for _, item := range arr.Items {
		if item.Kind != KindString {
			return nil, item.typeError("string")
		}
		out = append(out, item.Text)
	}
	return out, nil
}

// Interface converts the tree into plain Go values: map[string]any, []any,
// string, json.Number, bool and nil.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindObject:
		m := make(map[string]any, len(n.Members))
		for _, mem := range n.Members {
			m[mem.Key] = mem.Value.Interface()
		}
		return m
	case KindArray:
		a := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			a = append(a, item.Interface())
		}
		return a
	case KindString:
		return n.Text
	case KindNumber:
		return json.Number(n.Text)
	case KindBool:
		return n.Bool
	}
	return nil
}
