package validation

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recordingObserver struct {
	evaluated []string
	reset     []string
	states    []State
}

func (r *recordingObserver) Evaluated(id string, st State) {
	r.evaluated = append(r.evaluated, id)
	r.states = append(r.states, st)
}

func (r *recordingObserver) Reset(id string) {
	r.reset = append(r.reset, id)
}

func TestStoreGateWritesNothing(t *testing.T) {
	t.Parallel()

	rec := &recordingObserver{}
	store := NewStore(rec)

	if _, ran := store.Evaluate("email", decl("required"), "", false); ran {
		t.Fatalf("expected gate to skip")
	}
	if _, ok := store.Get("email"); ok {
		t.Fatalf("no state should be written")
	}
	if len(rec.evaluated) != 0 {
		t.Fatalf("observers must not be notified for skipped evaluations")
	}
}

func TestStoreEvaluateAndReset(t *testing.T) {
	t.Parallel()

	rec := &recordingObserver{}
	store := NewStore(rec)

	st, ran := store.Evaluate("email", decl("required"), "", true)
	if !ran || st.Valid {
		t.Fatalf("unexpected state: %+v", st)
	}
	got, ok := store.Get("email")
	if !ok || !got.Dirty || got.Reason != "required" {
		t.Fatalf("stored state mismatch: %+v", got)
	}

	// dirty elements keep evaluating with falsy values
	if _, ran := store.Evaluate("email", decl("required"), "", false); !ran {
		t.Fatalf("dirty element should evaluate")
	}

	store.Reset("email")
	if _, ok := store.Get("email"); ok {
		t.Fatalf("reset must remove state")
	}
	if _, ran := store.Evaluate("email", decl("required"), "", false); ran {
		t.Fatalf("gate applies again after reset")
	}

	if diff := cmp.Diff([]string{"email", "email"}, rec.evaluated); diff != "" {
		t.Fatalf("evaluated notifications mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"email"}, rec.reset); diff != "" {
		t.Fatalf("reset notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreResetIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Reset("ghost")
	_, onceOK := store.Get("ghost")
	store.Reset("ghost")
	store.Reset("ghost")
	_, twiceOK := store.Get("ghost")
	if onceOK || twiceOK || store.Len() != 0 {
		t.Fatalf("reset on clean element must leave it absent")
	}
}

func TestStoreObserverSeesCompleteState(t *testing.T) {
	t.Parallel()

	rec := &recordingObserver{}
	store := NewStore(rec)

	store.Evaluate("age", decl("min", "18", "max", "99"), "12", false)
	store.Evaluate("age", decl("min", "18", "max", "99"), "40", false)

	if len(rec.states) != 2 {
		t.Fatalf("expected two notifications, got %d", len(rec.states))
	}
	if rec.states[0].Valid || rec.states[0].Reason != "min" {
		t.Fatalf("first state mismatch: %+v", rec.states[0])
	}
	if !rec.states[1].Valid || rec.states[1].Reason != "" {
		t.Fatalf("second state mismatch: %+v", rec.states[1])
	}
}

func TestStoreSnapshotAndIDs(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Evaluate("b", decl("required"), "x", false)
	store.Evaluate("a", decl("required"), "y", false)

	if diff := cmp.Diff([]string{"a", "b"}, store.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	snap := store.Snapshot()
	delete(snap, "a")
	if store.Len() != 2 {
		t.Fatalf("snapshot must be a copy")
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	t.Parallel()

	var store *Store
	if _, ran := store.Evaluate("x", decl("required"), "v", true); ran {
		t.Fatalf("nil store should not evaluate")
	}
	store.Reset("x")
	if store.Len() != 0 || store.Snapshot() != nil {
		t.Fatalf("nil store should be empty")
	}
}

func TestEventObserver(t *testing.T) {
	t.Parallel()

	var events []Event
	store := NewStore(EventObserver(func(e Event) { events = append(events, e) }))
	store.Evaluate("terms", decl("checked"), false, true)
	store.Reset("terms")

	want := []Event{{Element: "terms", Valid: false, Reason: "checked", Status: `{"checked":false}`}}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestLogObserver(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := NewStore(NewLogObserver(logger))

	store.Evaluate("name", decl("required"), "", true)
	store.Reset("name")

	out := buf.String()
	for _, want := range []string{"validation evaluated", "element=name", "reason=required", "validation reset"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}
