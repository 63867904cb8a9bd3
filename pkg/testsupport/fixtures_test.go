package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-formcheck/pkg/constraint"
	"github.com/goliatone/go-formcheck/pkg/rules"
)

func TestLoadFormRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "form.json")
	payload := `{"ID":"signup","Order":["email"],"Fields":{"email":{"Name":"email","Declaration":["required"]}}}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := MustLoadForm(t, path)
	want := rules.Form{
		ID:    "signup",
		Order: []string{"email"},
		Fields: map[string]rules.Field{
			"email": {Name: "email", Declaration: constraint.NewDeclaration("required")},
		},
	}
	if diff := CompareGolden(want, got); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	if _, err := LoadForm(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := LoadForm(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadDocumentFromPath(""); err == nil {
		t.Fatalf("expected error for empty document path")
	}
}
