package openapi

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pileo/discovery/internal/discovery"
	"github.com/pileo/discovery/internal/logging"
)

const storageDoc = `{"kind": "discovery#restDescription", "name": "storage", "version": "v1",
 "title": "Cloud Storage", "rootUrl": "https://storage.googleapis.com/", "basePath": "/storage/v1/",
 "auth": {"oauth2": {"scopes": {"https://www.googleapis.com/auth/devstorage.read_only": {"description": "Read"}}}},
 "parameters": {"fields": {"type": "string", "location": "query"}},
 "schemas": {"Bucket": {"id": "Bucket"}},
 "resources": {
  "buckets": {"methods": {
   "get": {"id": "storage.buckets.get", "path": "b/{bucket}", "httpMethod": "GET",
    "description": "Returns a bucket.\nMore detail.",
    "parameters": {"bucket": {"type": "string", "location": "path", "required": true},
                   "maxResults": {"type": "integer", "location": "query", "default": "10", "minimum": "0"},
                   "tags": {"type": "string", "location": "query", "repeated": true}},
    "parameterOrder": ["bucket"],
    "response": {"$ref": "Bucket"},
    "scopes": ["https://www.googleapis.com/auth/devstorage.read_only"]},
   "insert": {"id": "storage.buckets.insert", "path": "b", "httpMethod": "POST",
    "request": {"$ref": "Bucket"}, "response": {"$ref": "Bucket"}}},
   "resources": {"objects": {"methods": {
    "get": {"id": "storage.objects.get", "path": "b/{bucket}/o/{+object}", "httpMethod": "GET",
     "parameters": {"bucket": {"location": "path", "required": true},
                    "object": {"location": "path", "required": true}},
     "parameterOrder": ["bucket", "object"]}}}}}}}`

func mustParse(t *testing.T, doc string) *discovery.Service {
	t.Helper()
	f, err := discovery.CreateServiceFactory(strings.NewReader(doc), discovery.Version10,
		discovery.NewParamsV10(discovery.WithLogger(logging.Discard())))
	if err != nil {
		t.Fatalf("create factory: %v", err)
	}
	svc, err := f.GetService("")
	if err != nil {
		t.Fatalf("get service: %v", err)
	}
	return svc
}

func TestFromService(t *testing.T) {
	t.Parallel()
	svc := mustParse(t, storageDoc)
	doc, err := FromService(context.Background(), svc, Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("from service: %v", err)
	}

	if doc.Info.Title != "Cloud Storage" || doc.Info.Version != "v1" {
		t.Fatalf("unexpected info: %+v", doc.Info)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "https://storage.googleapis.com/storage/v1/" {
		t.Fatalf("unexpected servers: %+v", doc.Servers)
	}

	get := doc.Paths["/b/{bucket}"].Get
	if get == nil || get.OperationID != "buckets.get" {
		t.Fatalf("expected buckets.get operation, got %+v", get)
	}
	if get.Summary != "Returns a bucket." {
		t.Fatalf("unexpected summary %q", get.Summary)
	}
	if len(get.Tags) != 1 || get.Tags[0] != "buckets" {
		t.Fatalf("unexpected tags: %v", get.Tags)
	}
	if get.Parameters[0].Value.Name != "bucket" || get.Parameters[0].Value.In != "path" {
		t.Fatalf("expected positional parameter first, got %+v", get.Parameters[0].Value)
	}
	maxResults := get.Parameters.GetByInAndName("query", "maxResults")
	if maxResults == nil || maxResults.Schema.Value.Default != float64(10) {
		t.Fatalf("expected typed integer default, got %+v", maxResults)
	}
	tags := get.Parameters.GetByInAndName("query", "tags")
	if tags == nil || tags.Schema.Value.Type != "array" {
		t.Fatalf("expected repeated parameter as array, got %+v", tags)
	}
	if get.Security == nil || len(*get.Security) != 1 {
		t.Fatalf("expected oauth2 security requirement")
	}
	if ref := get.Responses["200"].Value.Content.Get("application/json").Schema.Ref; ref != "#/components/schemas/Bucket" {
		t.Fatalf("unexpected response ref %q", ref)
	}

	insert := doc.Paths["/b"].Post
	if insert == nil || insert.RequestBody == nil || !insert.RequestBody.Value.Required {
		t.Fatalf("expected required request body on insert, got %+v", insert)
	}

	objects := doc.Paths["/b/{bucket}/o/{object}"]
	if objects == nil || objects.Get == nil {
		t.Fatalf("expected reserved expansion to be normalized, paths: %v", doc.Paths)
	}
	if objects.Get.Tags[0] != "buckets.objects" {
		t.Fatalf("unexpected nested tag %v", objects.Get.Tags)
	}

	if _, ok := doc.Components.SecuritySchemes["oauth2"]; !ok {
		t.Fatalf("expected oauth2 security scheme")
	}
}

func TestFromServiceServiceParameters(t *testing.T) {
	t.Parallel()
	svc := mustParse(t, storageDoc)
	doc, err := FromService(context.Background(), svc, Options{IncludeServiceParameters: true, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("from service: %v", err)
	}
	if doc.Paths["/b"].Post.Parameters.GetByInAndName("query", "fields") == nil {
		t.Fatalf("expected service-wide parameter on insert")
	}
}

func TestFromServiceUndeclaredTemplateVariable(t *testing.T) {
	t.Parallel()
	svc := mustParse(t, `{"name": "x", "methods": {"get": {"id": "x.get", "path": "items/{itemId}", "httpMethod": "GET"}}}`)
	doc, err := FromService(context.Background(), svc, Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("from service: %v", err)
	}
	p := doc.Paths["/items/{itemId}"].Get.Parameters.GetByInAndName("path", "itemId")
	if p == nil || !p.Required {
		t.Fatalf("expected synthesized path parameter, got %+v", p)
	}
	if doc.Info.Version != "unversioned" {
		t.Fatalf("expected placeholder version, got %q", doc.Info.Version)
	}
}

func TestFromServiceConflicts(t *testing.T) {
	t.Parallel()
	dupID := `{"name": "x", "resources": {
	  "a": {"methods": {"get": {"id": "x.get", "path": "a", "httpMethod": "GET"}}},
	  "b": {"methods": {"get": {"id": "x.get", "path": "b", "httpMethod": "GET"}}}}}`
	dupRoute := `{"name": "x", "resources": {
	  "a": {"methods": {"get": {"id": "x.a.get", "path": "same", "httpMethod": "GET"}}},
	  "b": {"methods": {"get": {"id": "x.b.get", "path": "same", "httpMethod": "GET"}}}}}`
	for name, doc := range map[string]string{"operation id": dupID, "route": dupRoute} {
		_, err := FromService(context.Background(), mustParse(t, doc), Options{Logger: logging.Discard()})
		var ee *ExportError
		if !errors.As(err, &ee) || ee.Code != ConflictError {
			t.Fatalf("%s: expected ConflictError, got %v", name, err)
		}
		if ee.Method != "b.get" {
			t.Fatalf("%s: expected offending method b.get, got %q", name, ee.Method)
		}
	}
}

func TestFromServiceNil(t *testing.T) {
	t.Parallel()
	if _, err := FromService(context.Background(), nil, Options{}); err == nil {
		t.Fatalf("expected error for nil service")
	}
}

func TestToSwagger2(t *testing.T) {
	t.Parallel()
	doc, err := FromService(context.Background(), mustParse(t, storageDoc), Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("from service: %v", err)
	}
	v2, err := ToSwagger2(doc)
	if err != nil {
		t.Fatalf("to swagger2: %v", err)
	}
	if v2.Swagger != "2.0" {
		t.Fatalf("expected swagger 2.0, got %q", v2.Swagger)
	}
	if _, ok := v2.Paths["/b/{bucket}"]; !ok {
		t.Fatalf("expected converted path, got %v", v2.Paths)
	}
	if _, ok := v2.Definitions["Bucket"]; !ok {
		t.Fatalf("expected Bucket definition")
	}
}
