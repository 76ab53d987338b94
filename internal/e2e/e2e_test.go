package e2e

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	cli "github.com/pileo/discovery/internal/cli"
)

// 1.0 document with nested resources, a body and a repeated query parameter
const sampleDiscovery = `{
 "kind": "discovery#restDescription",
 "id": "library:v2",
 "name": "library",
 "version": "v2",
 "title": "Library API",
 "description": "Shelves and the books on them.",
 "protocol": "rest",
 "rootUrl": "https://library.example.com/",
 "servicePath": "library/v2/",
 "parameters": {
  "fields": {"type": "string", "location": "query", "description": "Selector specifying a subset of fields."}
 },
 "auth": {"oauth2": {"scopes": {"https://library.example.com/auth/read": {"description": "Read shelves"}}}},
 "schemas": {
  "Shelf": {"id": "Shelf", "type": "object", "properties": {"name": {"type": "string"}}},
  "Book": {"id": "Book", "type": "object", "properties": {"title": {"type": "string"}}}
 },
 "resources": {
  "shelves": {
   "methods": {
    "list": {
     "id": "library.shelves.list",
     "path": "shelves",
     "httpMethod": "GET",
     "parameters": {
      "theme": {"type": "string", "location": "query", "repeated": true, "enum": ["fiction", "science"]}
     },
     "response": {"$ref": "Shelf"},
     "scopes": ["https://library.example.com/auth/read"]
    }
   },
   "resources": {
    "books": {
     "methods": {
      "insert": {
       "id": "library.shelves.books.insert",
       "path": "shelves/{shelf}/books",
       "httpMethod": "POST",
       "parameters": {
        "shelf": {"type": "string", "required": true, "location": "path"}
       },
       "parameterOrder": ["shelf"],
       "request": {"$ref": "Book"},
       "response": {"$ref": "Book"}
      }
     }
    }
   }
  }
 }
}`

func writeTempDoc(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "library.json")
	if err := os.WriteFile(p, []byte(sampleDiscovery), 0o600); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return p
}

func runCLI(t *testing.T, args ...string) {
	t.Helper()
	root := cli.NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("cli execute %v: %v", args, err)
	}
}

func digestDir(t *testing.T, dir string) (files []string, sum string) {
	t.Helper()
	var list []string
	h := sha256.New()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(dir, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		list = append(list, rel)
		_, _ = h.Write([]byte(rel))
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		_, _ = h.Write(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	sort.Strings(list)
	return list, hex.EncodeToString(h.Sum(nil))
}

func TestE2E_Export_OpenAPI_Deterministic(t *testing.T) {
	t.Parallel()
	doc := writeTempDoc(t)
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	runCLI(t, "export", "--input", doc, "--service", "v2", "--out", dir1, "--service-parameters", "--force")
	runCLI(t, "export", "--input", doc, "--service", "v2", "--out", dir2, "--service-parameters", "--force")

	files1, sum1 := digestDir(t, dir1)
	files2, sum2 := digestDir(t, dir2)
	if !slices.Equal(files1, files2) || sum1 != sum2 {
		t.Fatalf("exported outputs differ between runs\nfiles1=%v\nfiles2=%v\nsum1=%s\nsum2=%s", files1, files2, sum1, sum2)
	}
	want := []string{"REFERENCE.md", "library.openapi.json", "model.json"}
	if !slices.Equal(files1, want) {
		t.Fatalf("unexpected files: %v", files1)
	}

	raw, err := os.ReadFile(filepath.Join(dir1, "library.openapi.json"))
	if err != nil {
		t.Fatalf("read description: %v", err)
	}
	var described struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(raw, &described); err != nil {
		t.Fatalf("decode description: %v", err)
	}
	if described.OpenAPI != "3.0.3" {
		t.Fatalf("unexpected openapi version %q", described.OpenAPI)
	}
	if _, ok := described.Paths["/shelves/{shelf}/books"]["post"]; !ok {
		t.Fatalf("missing nested insert operation: %v", described.Paths)
	}
	if _, ok := described.Paths["/shelves"]["get"]; !ok {
		t.Fatalf("missing list operation: %v", described.Paths)
	}

	// model.json keeps document order
	model, err := os.ReadFile(filepath.Join(dir1, "model.json"))
	if err != nil {
		t.Fatalf("read model: %v", err)
	}
	var parsed struct {
		Generation string   `json:"generation"`
		Schemas    []string `json:"schemas"`
	}
	if err := json.Unmarshal(model, &parsed); err != nil {
		t.Fatalf("decode model: %v", err)
	}
	if parsed.Generation != "1.0" || !slices.Equal(parsed.Schemas, []string{"Shelf", "Book"}) {
		t.Fatalf("unexpected model header: %+v", parsed)
	}

	ref, err := os.ReadFile(filepath.Join(dir1, "REFERENCE.md"))
	if err != nil {
		t.Fatalf("read reference: %v", err)
	}
	if !strings.HasPrefix(string(ref), "# Library API") {
		t.Fatalf("unexpected reference heading:\n%s", ref)
	}
}

func TestE2E_Export_Swagger_YAML_Deterministic(t *testing.T) {
	t.Parallel()
	doc := writeTempDoc(t)
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	runCLI(t, "export", "--input", doc, "--out", dir1, "--format", "swagger2", "--encoding", "yaml", "--force")
	runCLI(t, "export", "--input", doc, "--out", dir2, "--format", "swagger2", "--encoding", "yaml", "--force")

	files1, sum1 := digestDir(t, dir1)
	files2, sum2 := digestDir(t, dir2)
	if !slices.Equal(files1, files2) || sum1 != sum2 {
		t.Fatalf("exported outputs differ between runs\nsum1=%s\nsum2=%s", sum1, sum2)
	}
	mustExist(t, filepath.Join(dir1, "library.swagger.yaml"))
}

func TestE2E_Export_LegacyGeneration(t *testing.T) {
	t.Parallel()
	legacy := `{"name": "library", "version": "v1",
 "restBasePath": "/library/v1/",
 "resources": {"shelves": {"methods": {"get": {
   "rpcName": "library.shelves.get",
   "restPath": "shelves/{shelf}",
   "httpMethod": "GET",
   "parameters": {"shelf": {"type": "string", "required": true, "restParameterType": "path"}}
 }}}}}`
	p := filepath.Join(t.TempDir(), "legacy.json")
	if err := os.WriteFile(p, []byte(legacy), 0o600); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	out := t.TempDir()
	runCLI(t, "export", "--input", p, "--version", "0.3", "--service", "v1", "--out", out, "--force")
	mustExist(t, filepath.Join(out, "library.openapi.json"))
	mustExist(t, filepath.Join(out, "model.json"))
}

func mustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %s: %v", path, err)
	}
}
