package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formcheck/pkg/binding"
)

const defaultDebounce = 100 * time.Millisecond

// Option configures a FileSource.
type Option func(*FileSource)

// WithDebounce sets the quiet interval between a file event and the reload.
func WithDebounce(interval time.Duration) Option {
	return func(s *FileSource) {
		if interval > 0 {
			s.debounce = interval
		}
	}
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// FileSource publishes the values held in a JSON or YAML document to one
// binding.Value per field. Field names are dotted paths into the document
// ("address.city", "tags.0"). Only values that changed since the last
// reload are published.
type FileSource struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	data      map[string]any
	fields    map[string]*binding.Value
	published map[string]any
}

// NewFileSource creates a source for path. Nothing is read until Reload or
// Watch runs.
func NewFileSource(path string, options ...Option) *FileSource {
	s := &FileSource{
		path:      filepath.Clean(path),
		debounce:  defaultDebounce,
		logger:    slog.Default(),
		fields:    make(map[string]*binding.Value),
		published: make(map[string]any),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Path returns the watched file.
func (s *FileSource) Path() string {
	return s.path
}

// Field returns the value source for name, creating it on first use.
func (s *FileSource) Field(name string) binding.Source {
	return s.value(name)
}

// Value is Field with the concrete type, for callers that also read the
// current value.
func (s *FileSource) Value(name string) *binding.Value {
	return s.value(name)
}

func (s *FileSource) value(name string) *binding.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.fields[name]; ok {
		return v
	}
	current, _ := lookup(s.data, name)
	v := binding.NewValue(current)
	s.fields[name] = v
	return v
}

// Lookup returns the value at the dotted path name in the last loaded
// document.
func (s *FileSource) Lookup(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookup(s.data, name)
}

// Reload reads the file and publishes every field whose value changed. It
// returns the names of the published fields, sorted.
func (s *FileSource) Reload() ([]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("watch: read %s: %w", s.path, err)
	}
	data, err := decode(raw, s.path)
	if err != nil {
		return nil, err
	}

	type change struct {
		name  string
		value any
		dest  *binding.Value
	}
	var changes []change

	s.mu.Lock()
	s.data = data
	for name, dest := range s.fields {
		value, _ := lookup(data, name)
		previous, seen := s.published[name]
		if seen && reflect.DeepEqual(previous, value) {
			continue
		}
		s.published[name] = value
		changes = append(changes, change{name: name, value: value, dest: dest})
	}
	s.mu.Unlock()

	sort.Slice(changes, func(i, j int) bool { return changes[i].name < changes[j].name })
	names := make([]string, 0, len(changes))
	for _, c := range changes {
		c.dest.Set(c.value)
		names = append(names, c.name)
	}
	s.logger.Debug("values reloaded", "path", s.path, "changed", names)
	return names, nil
}

// Watch reloads the file whenever it changes until ctx is cancelled. The
// parent directory is watched so editors that replace the file are seen.
// onReload, when set, runs after each reload with its result.
func (s *FileSource) Watch(ctx context.Context, onReload func(changed []string, err error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch: add %s: %w", filepath.Dir(s.path), err)
	}

	debouncer := NewDebouncer(s.debounce)
	defer debouncer.Stop()

	s.logger.Info("watching values file", "path", s.path, "debounce_ms", s.debounce.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("values watcher stopped", "path", s.path)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watch: events channel closed")
			}
			if !s.relevant(event) {
				continue
			}
			s.logger.Debug("values file event", "path", event.Name, "op", event.Op.String())
			debouncer.Trigger(func() {
				changed, err := s.Reload()
				if err != nil {
					s.logger.Error("values reload failed", "path", s.path, "error", err)
				}
				if onReload != nil {
					onReload(changed, err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watch: errors channel closed")
			}
			s.logger.Error("values watcher error", "error", err)
		}
	}
}

func (s *FileSource) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == s.path
}

func decode(raw []byte, path string) (map[string]any, error) {
	data := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("watch: parse %s: %w", path, err)
		}
		return data, nil
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("watch: parse %s: %w", path, err)
	}
	return data, nil
}

func lookup(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	if value, ok := root[path]; ok {
		return value, true
	}
	current := any(root)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
