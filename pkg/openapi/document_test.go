package openapi

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formcheck/pkg/constraint"
)

const signupDocument = `{
  "openapi": "3.0.3",
  "info": { "title": "Accounts", "version": "1.0.0" },
  "paths": {
    "/signup": {
      "post": {
        "operationId": "createSignup",
        "requestBody": {
          "content": {
            "application/json": { "schema": { "$ref": "#/components/schemas/Signup" } }
          }
        },
        "responses": { "201": { "description": "created" } }
      }
    },
    "/health": {
      "get": {
        "responses": { "200": { "description": "ok" } }
      }
    }
  },
  "components": {
    "schemas": {
      "Signup": {
        "type": "object",
        "required": ["email", "terms", "age"],
        "properties": {
          "id": { "type": "string", "readOnly": true },
          "email": { "type": "string", "title": "Email", "minLength": 5, "maxLength": 254 },
          "age": { "type": "integer", "minimum": 18, "maximum": 120 },
          "terms": { "type": "boolean" },
          "score": { "type": "number", "minimum": 0.5 },
          "tags": { "type": "array", "items": { "type": "string" }, "minItems": 1, "maxItems": 5 },
          "nickname": { "type": "string" },
          "address": {
            "type": "object",
            "required": ["city"],
            "properties": {
              "city": { "type": "string", "maxLength": 40 },
              "zip": { "type": "string", "x-validation": "min:length.5" }
            }
          }
        }
      }
    }
  }
}`

func TestDocumentForm(t *testing.T) {
	t.Parallel()

	doc, err := Parse(context.Background(), []byte(signupDocument), "accounts.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	form, err := doc.Form("createSignup")
	if err != nil {
		t.Fatalf("form: %v", err)
	}

	got := make(map[string]constraint.Declaration, len(form.Fields))
	for name, field := range form.Fields {
		got[name] = field.Declaration
	}
	want := map[string]constraint.Declaration{
		"email":        {"required", "min:length", "5", "max:length", "254"},
		"age":          {"required", "min", "18", "max", "120"},
		"terms":        {"checked"},
		"score":        {"min", "0.5"},
		"tags":         {"min:length", "1", "max:length", "5"},
		"nickname":     {},
		"address.city": {"required", "max:length", "40"},
		"address.zip":  {"min:length", "5"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("declarations mismatch (-want +got):\n%s", diff)
	}

	wantOrder := []string{"address.city", "address.zip", "age", "email", "nickname", "score", "tags", "terms"}
	if diff := cmp.Diff(wantOrder, form.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if form.Fields["email"].Label != "Email" {
		t.Fatalf("title should become the label: %+v", form.Fields["email"])
	}
	if form.Source != "accounts.json" {
		t.Fatalf("source = %q", form.Source)
	}
}

func TestDocumentOperations(t *testing.T) {
	t.Parallel()

	doc, err := Parse(context.Background(), []byte(signupDocument), "accounts.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []Operation{
		{ID: "createSignup", Method: "POST", Path: "/signup"},
		{ID: "get:/health", Method: "GET", Path: "/health"},
	}
	if diff := cmp.Diff(want, doc.Operations()); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}

	if _, err := doc.Form("get:/health"); !errors.Is(err, ErrNoRequestSchema) {
		t.Fatalf("expected ErrNoRequestSchema, got %v", err)
	}
	if _, err := doc.Form("missing"); !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}

	store := doc.Forms()
	if diff := cmp.Diff([]string{"createSignup"}, store.IDs()); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromFS(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{"specs/accounts.json": {Data: []byte(signupDocument)}}
	doc, err := Load(context.Background(), SourceFromFS("specs/accounts.json"), WithFileSystem(files))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Location() != "specs/accounts.json" {
		t.Fatalf("location = %q", doc.Location())
	}

	if _, err := Load(context.Background(), SourceFromFS("specs/accounts.json")); err == nil {
		t.Fatalf("fs source without a filesystem should fail")
	}
	if _, err := Load(context.Background(), nil); err == nil {
		t.Fatalf("nil source should fail")
	}
	url, err := SourceFromURL("https://example.com/openapi.json")
	if err != nil {
		t.Fatalf("url source: %v", err)
	}
	if _, err := Load(context.Background(), url); err == nil {
		t.Fatalf("url source without an http client should fail")
	}
}

func TestParseRejectsEmptyAndCancelled(t *testing.T) {
	t.Parallel()

	if _, err := Parse(context.Background(), nil, "empty.json"); err == nil {
		t.Fatalf("empty document should fail")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Parse(ctx, []byte(signupDocument), "accounts.json"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSourceFor(t *testing.T) {
	t.Parallel()

	src, err := SourceFor("https://example.com/api.yaml")
	if err != nil || src.Kind() != SourceKindURL {
		t.Fatalf("https location = (%v, %v)", src, err)
	}
	src, err = SourceFor("./specs/../api.yaml")
	if err != nil || src.Kind() != SourceKindFile || src.Location() != "api.yaml" {
		t.Fatalf("file location = (%v, %v)", src, err)
	}
	if _, err := SourceFor("  "); err == nil {
		t.Fatalf("blank location should fail")
	}
}

func TestDeclarationWithoutSchema(t *testing.T) {
	t.Parallel()

	if diff := cmp.Diff(constraint.Declaration{"required"}, Declaration(nil, true)); diff != "" {
		t.Fatalf("nil schema mismatch (-want +got):\n%s", diff)
	}
	max := uint64(3)
	schema := &openapi3.Schema{
		Type:       &openapi3.Types{openapi3.TypeString},
		MaxLength:  &max,
		Extensions: map[string]any{"x-validation": []any{"required", "min:length", float64(2)}},
	}
	want := constraint.Declaration{"max:length", "3", "required", "min:length", "2"}
	if diff := cmp.Diff(want, Declaration(schema, false)); diff != "" {
		t.Fatalf("extension mismatch (-want +got):\n%s", diff)
	}
}
