package feedback

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formcheck/pkg/constraint"
	"github.com/goliatone/go-formcheck/pkg/feedback/template"
	"github.com/goliatone/go-formcheck/pkg/rules"
	"github.com/goliatone/go-formcheck/pkg/validation"
)

//go:embed templates/*.tpl
var embeddedTemplates embed.FS

const (
	bannerTemplate = "banner"
	hintTemplate   = "hint"
	defaultTitle   = "Please correct the highlighted fields."
)

// FieldReport describes one failing field as handed to the templates.
type FieldReport struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Element string `json:"element"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Class   string `json:"class"`
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithEngine replaces the embedded template engine.
func WithEngine(engine template.TemplateRenderer) Option {
	return func(r *Renderer) {
		if engine != nil {
			r.engine = engine
		}
	}
}

// WithTemplates loads banner.tpl and hint.tpl from files instead of the
// embedded set.
func WithTemplates(files fs.FS) Option {
	return func(r *Renderer) {
		r.templates = files
	}
}

// WithMessages overlays messages on the defaults.
func WithMessages(messages Messages) Option {
	return func(r *Renderer) {
		r.messages = r.messages.Merge(messages)
	}
}

// WithTitle sets the banner heading.
func WithTitle(title string) Option {
	return func(r *Renderer) {
		if trimmed := strings.TrimSpace(title); trimmed != "" {
			r.title = trimmed
		}
	}
}

// WithTheme resolves classes from selection.
func WithTheme(selection *theme.Selection) Option {
	return func(r *Renderer) {
		r.selection = selection
	}
}

// WithThemeSelector resolves the theme selection through selector when the
// renderer is built.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return func(r *Renderer) {
		r.selector = selector
		r.themeName = name
		r.themeVariant = variant
	}
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Renderer turns field states into an error banner and per-field hints.
// Output is sanitised before it is returned.
type Renderer struct {
	engine    template.TemplateRenderer
	templates fs.FS
	messages  Messages
	title     string
	logger    *slog.Logger

	selection    *theme.Selection
	selector     theme.ThemeSelector
	themeName    string
	themeVariant string
}

// NewRenderer builds a Renderer.
func NewRenderer(options ...Option) (*Renderer, error) {
	r := &Renderer{
		messages: DefaultMessages(),
		title:    defaultTitle,
		logger:   slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}

	if r.selector != nil && r.selection == nil {
		selection, err := r.selector.Select(r.themeName, r.themeVariant)
		if err != nil {
			return nil, fmt.Errorf("feedback: select theme %q/%q: %w", r.themeName, r.themeVariant, err)
		}
		r.selection = selection
	}

	if r.engine == nil {
		files := r.templates
		if files == nil {
			files = TemplatesFS()
		}
		engine, err := template.New(files)
		if err != nil {
			return nil, fmt.Errorf("feedback: template engine: %w", err)
		}
		r.engine = engine
	}
	return r, nil
}

// TemplatesFS returns the embedded banner and hint templates, rooted so that
// banner.tpl sits at the top level.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// Selection returns the theme selection in use, if any.
func (r *Renderer) Selection() *theme.Selection {
	return r.selection
}

// Message resolves the text for the failing reason of state on field name.
// Field and form messages from rules take precedence over the renderer's.
// It returns "" for a valid state.
func (r *Renderer) Message(form rules.Form, name string, state validation.State) (string, error) {
	reason := state.Reason
	if state.Valid || reason == "" {
		return "", nil
	}

	text, ok := form.Message(name, reason)
	if !ok {
		text, ok = r.messages[reason]
	}
	if !ok || text == "" {
		text = reason
	}
	if !strings.Contains(text, "{{") && !strings.Contains(text, "{%") {
		return text, nil
	}

	data := map[string]any{
		"field":  name,
		"label":  fieldLabel(form, name),
		"reason": reason,
		"param":  "",
	}
	if kind, ok := constraint.Lookup(reason); ok {
		if param, ok := state.Options.Param(kind); ok {
			data["param"] = strconv.FormatFloat(param, 'f', -1, 64)
		}
	}
	out, err := r.engine.RenderText(text, data)
	if err != nil {
		return "", fmt.Errorf("feedback: message %q for %s: %w", reason, name, err)
	}
	return out, nil
}

// Report lists the invalid fields of form in field order. states is keyed by
// element id (Form.ElementID).
func (r *Renderer) Report(form rules.Form, states map[string]validation.State) ([]FieldReport, error) {
	var reports []FieldReport
	for _, field := range form.OrderedFields() {
		state, ok := states[form.ElementID(field.Name)]
		if !ok || !state.Dirty || state.Valid {
			continue
		}
		report, err := r.report(form, field.Name, state)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (r *Renderer) report(form rules.Form, name string, state validation.State) (FieldReport, error) {
	message, err := r.Message(form, name, state)
	if err != nil {
		return FieldReport{}, err
	}
	return FieldReport{
		Name:    name,
		Label:   fieldLabel(form, name),
		Element: form.ElementID(name),
		Reason:  state.Reason,
		Message: message,
		Class:   Classes(&state, r.selection),
	}, nil
}

// RenderBanner renders the error banner for form. It returns "" when no
// field is failing.
func (r *Renderer) RenderBanner(form rules.Form, states map[string]validation.State) (string, error) {
	reports, err := r.Report(form, states)
	if err != nil {
		return "", err
	}
	if len(reports) == 0 {
		return "", nil
	}

	out, err := r.engine.RenderTemplate(bannerTemplate, map[string]any{
		"form":   form.ID,
		"title":  r.title,
		"class":  themeToken(r.selection, TokenBanner),
		"fields": reports,
	})
	if err != nil {
		return "", fmt.Errorf("feedback: render banner for %s: %w", form.ID, err)
	}
	r.logger.Debug("feedback banner rendered", "form", form.ID, "failures", len(reports))
	return sanitize(out), nil
}

// RenderHint renders the inline hint for one field. It returns "" unless the
// field is dirty and invalid.
func (r *Renderer) RenderHint(form rules.Form, name string, state validation.State) (string, error) {
	if !state.Dirty || state.Valid {
		return "", nil
	}
	report, err := r.report(form, name, state)
	if err != nil {
		return "", err
	}
	out, err := r.engine.RenderTemplate(hintTemplate, map[string]any{
		"class": strings.TrimSpace(themeToken(r.selection, TokenHint) + " " + report.Class),
		"field": report,
	})
	if err != nil {
		return "", fmt.Errorf("feedback: render hint for %s: %w", report.Element, err)
	}
	return sanitize(out), nil
}

func fieldLabel(form rules.Form, name string) string {
	if field, ok := form.Fields[name]; ok && field.Label != "" {
		return field.Label
	}
	return name
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func sanitize(markup string) string {
	policyOnce.Do(func() {
		p := bluemonday.StrictPolicy()
		p.AllowElements("div", "p", "ul", "li", "strong", "em", "span")
		p.AllowAttrs("class", "role", "id", "aria-live").Globally()
		p.AllowDataAttributes()
		policy = p
	})
	return strings.TrimSpace(policy.Sanitize(markup))
}
