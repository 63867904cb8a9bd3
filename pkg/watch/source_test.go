package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestReloadPublishesChangedFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "values.yaml")
	writeFile(t, path, "email: ab\nage: 21\naddress:\n  city: Oslo\ntags: [go, forms]\n")

	src := NewFileSource(path)
	var mu sync.Mutex
	got := map[string][]any{}
	for _, name := range []string{"email", "age", "address.city", "tags.1", "missing"} {
		name := name
		src.Field(name).Subscribe(func(value any) {
			mu.Lock()
			defer mu.Unlock()
			got[name] = append(got[name], value)
		})
	}

	changed, err := src.Reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff([]string{"address.city", "age", "email", "missing", "tags.1"}, changed); diff != "" {
		t.Fatalf("first reload mismatch (-want +got):\n%s", diff)
	}

	writeFile(t, path, "email: ada@example.com\nage: 21\naddress:\n  city: Oslo\ntags: [go, forms]\n")
	changed, err = src.Reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff([]string{"email"}, changed); diff != "" {
		t.Fatalf("second reload mismatch (-want +got):\n%s", diff)
	}

	want := map[string][]any{
		"email":        {"ab", "ada@example.com"},
		"age":          {21},
		"address.city": {"Oslo"},
		"tags.1":       {"forms"},
		"missing":      {nil},
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("deliveries mismatch (-want +got):\n%s", diff)
	}
}

func TestReloadJSONAndLookup(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "values.json")
	writeFile(t, path, `{"terms": true, "profile": {"nick": "ada"}, "profile.flat": 1}`)

	src := NewFileSource(path)
	if _, ok := src.Lookup("terms"); ok {
		t.Fatalf("nothing is loaded before Reload")
	}
	if _, err := src.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if v, ok := src.Lookup("profile.nick"); !ok || v != "ada" {
		t.Fatalf("nested lookup = (%v, %v)", v, ok)
	}
	if v, ok := src.Lookup("profile.flat"); !ok || v != float64(1) {
		t.Fatalf("literal dotted key = (%v, %v)", v, ok)
	}
	if v := src.Value("terms").Get(); v != true {
		t.Fatalf("field created after reload starts from the document, got %v", v)
	}
}

func TestReloadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := NewFileSource(filepath.Join(dir, "absent.yaml")).Reload(); err == nil {
		t.Fatalf("missing file should fail")
	}
	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, "{nope")
	if _, err := NewFileSource(bad).Reload(); err == nil {
		t.Fatalf("invalid json should fail")
	}
	empty := filepath.Join(dir, "empty.yaml")
	writeFile(t, empty, "")
	if _, err := NewFileSource(empty).Reload(); err != nil {
		t.Fatalf("empty file is an empty document: %v", err)
	}
}

func TestDebouncerCollapsesBursts(t *testing.T) {
	t.Parallel()

	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
	}
	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("callback ran %d times, want 1", n)
	}

	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(80 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("stopped debouncer ran callbacks, count %d", n)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "values.yaml")
	writeFile(t, path, "email: ab\n")

	src := NewFileSource(path, WithDebounce(10*time.Millisecond))
	value := src.Value("email")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- src.Watch(ctx, nil)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for value.Get() != "ada@example.com" {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("watch never reloaded, value %v", value.Get())
		}
		writeFile(t, path, "email: ada@example.com\n")
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watch did not stop after cancel")
	}
}
