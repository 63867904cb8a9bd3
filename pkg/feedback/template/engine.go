package template

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
)

const extension = ".tpl"

// Engine is a pongo2 backed TemplateRenderer reading "<name>.tpl" files from
// an fs.FS. Parsed files are cached by name.
type Engine struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
}

var _ TemplateRenderer = (*Engine)(nil)

// New constructs an Engine over files.
func New(files fs.FS) (*Engine, error) {
	if files == nil {
		return nil, errors.New("template: fs.FS is required")
	}
	registerFilters()
	return &Engine{
		set:       pongo2.NewSet("formcheck", pongo2.NewFSLoader(files)),
		templates: make(map[string]*pongo2.Template),
	}, nil
}

// RenderTemplate renders the file name, appending ".tpl" when missing.
func (e *Engine) RenderTemplate(name string, data map[string]any) (string, error) {
	if !strings.HasSuffix(name, extension) {
		name += extension
	}
	tmpl, err := e.lookup(name)
	if err != nil {
		return "", err
	}
	out, err := execute(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("template: execute %q: %w", name, err)
	}
	return out, nil
}

// RenderString renders inline template content with autoescaping on.
func (e *Engine) RenderString(content string, data map[string]any) (string, error) {
	tmpl, err := e.set.FromString(content)
	if err != nil {
		return "", fmt.Errorf("template: parse template string: %w", err)
	}
	out, err := execute(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("template: execute template string: %w", err)
	}
	return out, nil
}

// RenderText renders inline content as plain text: values are not HTML
// escaped, so the result must be escaped wherever it lands in markup.
func (e *Engine) RenderText(content string, data map[string]any) (string, error) {
	return e.RenderString("{% autoescape off %}"+content+"{% endautoescape %}", data)
}

func (e *Engine) lookup(name string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.templates[name]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.templates[name]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("template: load %q: %w", name, err)
	}
	e.templates[name] = tmpl
	return tmpl, nil
}

func execute(tmpl *pongo2.Template, data map[string]any) (string, error) {
	ctx, err := toContext(data)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// toContext passes data through JSON so struct values are seen under their
// json names.
func toContext(data map[string]any) (pongo2.Context, error) {
	if len(data) == 0 {
		return pongo2.Context{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("template: encode data: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("template: decode data: %w", err)
	}
	return pongo2.Context(out), nil
}

var filtersOnce sync.Once

func registerFilters() {
	filtersOnce.Do(func() {
		if !pongo2.FilterExists("trim") {
			_ = pongo2.RegisterFilter("trim", filterTrim)
		}
		if !pongo2.FilterExists("lowerfirst") {
			_ = pongo2.RegisterFilter("lowerfirst", filterLowerFirst)
		}
	})
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

// filterLowerFirst lowercases the first non-space rune, so a message can
// follow a label ("Email: must be ...").
func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	t := in.String()
	for i, r := range t {
		if strings.ContainsRune(" \t\n\r", r) {
			continue
		}
		return pongo2.AsValue(t[:i] + strings.ToLower(string(r)) + t[i+utf8.RuneLen(r):]), nil
	}
	return pongo2.AsValue(t), nil
}
