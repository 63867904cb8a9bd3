// Package testsupport holds fixture and golden-file helpers shared by the
// package tests. Goldens are rewritten when UPDATE_GOLDENS is set.
package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formcheck/pkg/openapi"
	"github.com/goliatone/go-formcheck/pkg/rules"
)

// LoadDocument loads an OpenAPI fixture from path, failing the test on error.
func LoadDocument(t *testing.T, path string) *openapi.Document {
	t.Helper()

	doc, err := LoadDocumentFromPath(path)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return doc
}

// LoadDocumentFromPath loads an OpenAPI fixture without a testing.T.
func LoadDocumentFromPath(path string) (*openapi.Document, error) {
	if path == "" {
		return nil, errors.New("testsupport: document path is required")
	}
	doc, err := openapi.Load(context.Background(), openapi.SourceFromFile(path))
	if err != nil {
		return nil, fmt.Errorf("testsupport: load document: %w", err)
	}
	return doc, nil
}

// MustLoadForm reads a JSON golden into a rules.Form.
func MustLoadForm(t *testing.T, path string) rules.Form {
	t.Helper()

	form, err := LoadForm(path)
	if err != nil {
		t.Fatalf("load form: %v", err)
	}
	return form
}

// LoadForm reads a JSON golden into a rules.Form.
func LoadForm(path string) (rules.Form, error) {
	if path == "" {
		return rules.Form{}, errors.New("testsupport: form path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rules.Form{}, fmt.Errorf("testsupport: read form: %w", err)
	}
	var out rules.Form
	if err := json.Unmarshal(data, &out); err != nil {
		return rules.Form{}, fmt.Errorf("testsupport: unmarshal form: %w", err)
	}
	return out, nil
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set and
// reports whether it did.
func WriteGolden(t *testing.T, path string, value any) bool {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CompareGolden returns a diff between want and got. Nil and empty
// collections compare equal so goldens need not spell out empty fields.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got, cmpopts.EquateEmpty())
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}
