package validation

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event mirrors the notification dispatched after every evaluation: the
// element id and its serialized status.
type Event struct {
	Element string
	Valid   bool
	Reason  string
	Status  string
}

// EventObserver delivers an Event for every evaluation. Resets produce no
// event.
type EventObserver func(Event)

// Evaluated implements Observer.
func (fn EventObserver) Evaluated(id string, state State) {
	if fn == nil {
		return
	}
	raw, err := json.Marshal(state.Status)
	if err != nil {
		raw = []byte("{}")
	}
	fn(Event{
		Element: id,
		Valid:   state.Valid,
		Reason:  state.Reason,
		Status:  string(raw),
	})
}

// Reset implements Observer.
func (EventObserver) Reset(string) {}

// LogObserver logs state changes at debug level.
type LogObserver struct {
	Logger *slog.Logger
}

// NewLogObserver falls back to slog.Default when logger is nil.
func NewLogObserver(logger *slog.Logger) LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return LogObserver{Logger: logger}
}

// Evaluated implements Observer.
func (o LogObserver) Evaluated(id string, state State) {
	o.logger().LogAttrs(context.Background(), slog.LevelDebug, "validation evaluated",
		slog.String("element", id),
		slog.Bool("valid", state.Valid),
		slog.String("reason", state.Reason),
		slog.Int("constraints", state.Options.Len()),
	)
}

// Reset implements Observer.
func (o LogObserver) Reset(id string) {
	o.logger().LogAttrs(context.Background(), slog.LevelDebug, "validation reset",
		slog.String("element", id),
	)
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
