package feedback

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formcheck/pkg/constraint"
	"github.com/goliatone/go-formcheck/pkg/rules"
	"github.com/goliatone/go-formcheck/pkg/validation"
)

func signupForm() rules.Form {
	return rules.Form{
		ID:    "signup",
		Order: []string{"email", "age", "terms"},
		Fields: map[string]rules.Field{
			"email": {Name: "email", Label: "Email", Declaration: constraint.ParseDirective("required.min:length.5")},
			"age":   {Name: "age", Declaration: constraint.ParseDirective("min.18")},
			"terms": {Name: "terms", Label: "Terms", Declaration: constraint.ParseDirective("checked")},
		},
		Messages: map[string]string{"checked": "Accept the terms to continue."},
	}
}

func evaluate(t *testing.T, form rules.Form, values map[string]any) map[string]validation.State {
	t.Helper()
	states := make(map[string]validation.State, len(values))
	for name, value := range values {
		state, _ := validation.Evaluate(nil, form.Fields[name].Declaration, value, true)
		states[form.ElementID(name)] = state
	}
	return states
}

func TestRenderBanner(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	form := signupForm()
	states := evaluate(t, form, map[string]any{"email": "ab", "age": 21, "terms": false})

	out, err := renderer.RenderBanner(form, states)
	if err != nil {
		t.Fatalf("render banner: %v", err)
	}
	for _, fragment := range []string{
		`role="alert"`,
		`data-form="signup"`,
		`data-field="signup.email"`,
		`data-reason="minLength"`,
		`Email: must be at least 5 characters long.`,
		`Terms: accept the terms to continue.`,
		defaultTitle,
	} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("banner missing %q:\n%s", fragment, out)
		}
	}
	if strings.Contains(out, `data-field="signup.age"`) {
		t.Fatalf("valid field listed in banner:\n%s", out)
	}
	if strings.Index(out, "signup.email") > strings.Index(out, "signup.terms") {
		t.Fatalf("banner should follow field order:\n%s", out)
	}
}

func TestRenderBannerEmptyWhenNothingFails(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	form := signupForm()
	states := evaluate(t, form, map[string]any{"email": "ada@example.com", "age": 30, "terms": true})
	out, err := renderer.RenderBanner(form, states)
	if err != nil || out != "" {
		t.Fatalf("banner = (%q, %v), want empty", out, err)
	}
}

func TestRenderHint(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer(WithMessages(Messages{"required": "Tell us your {{ label }}."}))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	form := signupForm()
	states := evaluate(t, form, map[string]any{"email": ""})

	out, err := renderer.RenderHint(form, "email", states["signup.email"])
	if err != nil {
		t.Fatalf("render hint: %v", err)
	}
	for _, fragment := range []string{`id="signup.email-hint"`, `class="validation-hint is-invalid"`, `Tell us your Email.`} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("hint missing %q:\n%s", fragment, out)
		}
	}

	out, err = renderer.RenderHint(form, "email", validation.State{})
	if err != nil || out != "" {
		t.Fatalf("pristine hint = (%q, %v), want empty", out, err)
	}
}

func TestRenderSanitisesMarkup(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"banner.tpl": {Data: []byte(`<div class="{{ class }}" onclick="steal()">{% for f in fields %}{{ f.message|safe }}{% endfor %}</div>`)},
		"hint.tpl":   {Data: []byte(`<span>{{ field.label }}</span>`)},
	}
	renderer, err := NewRenderer(WithTemplates(files), WithMessages(Messages{"required": "<script>alert(1)</script>missing"}))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	form := rules.Form{ID: "f", Fields: map[string]rules.Field{
		"x": {Name: "x", Label: "<b>X</b>", Declaration: constraint.ParseDirective("required")},
	}}
	states := evaluate(t, form, map[string]any{"x": nil})

	banner, err := renderer.RenderBanner(form, states)
	if err != nil {
		t.Fatalf("render banner: %v", err)
	}
	if strings.Contains(banner, "<script") || strings.Contains(banner, "onclick") {
		t.Fatalf("banner not sanitised: %s", banner)
	}
	if !strings.Contains(banner, "missing") {
		t.Fatalf("text content should survive: %s", banner)
	}

	hint, err := renderer.RenderHint(form, "x", states["f.x"])
	if err != nil {
		t.Fatalf("render hint: %v", err)
	}
	if strings.Contains(hint, "<b>") {
		t.Fatalf("label must be escaped: %s", hint)
	}
}

func TestMessageResolution(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	form := signupForm()
	form.Fields["age"] = rules.Field{Name: "age", Declaration: constraint.ParseDirective("min.18"), Messages: map[string]string{"min": "Adults only ({{ param }}+)."}}

	states := evaluate(t, form, map[string]any{"age": 12, "terms": nil})
	cases := []struct {
		name string
		want string
	}{
		{"age", "Adults only (18+)."},
		{"terms", "Accept the terms to continue."},
	}
	for _, tc := range cases {
		got, err := renderer.Message(form, tc.name, states[form.ElementID(tc.name)])
		if err != nil {
			t.Fatalf("message %s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("message %s = %q, want %q", tc.name, got, tc.want)
		}
	}

	unknown := validation.State{Dirty: true, Reason: "pattern"}
	if got, _ := renderer.Message(form, "age", unknown); got != "pattern" {
		t.Fatalf("unknown reason falls back to the reason, got %q", got)
	}
}

func TestTemplatedMessagesAreEscapedOnce(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	form := rules.Form{
		ID:       "faq",
		Order:    []string{"question"},
		Fields:   map[string]rules.Field{"question": {Name: "question", Label: "Q&A", Declaration: constraint.ParseDirective("required")}},
		Messages: map[string]string{"required": "{{ label }} is required"},
	}
	states := evaluate(t, form, map[string]any{"question": ""})

	msg, err := renderer.Message(form, "question", states[form.ElementID("question")])
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if msg != "Q&A is required" {
		t.Fatalf("message = %q, want plain text", msg)
	}

	banner, err := renderer.RenderBanner(form, states)
	if err != nil {
		t.Fatalf("render banner: %v", err)
	}
	if !strings.Contains(banner, "Q&amp;A: q&amp;A is required") {
		t.Fatalf("banner should escape the message once:\n%s", banner)
	}
	if strings.Contains(banner, "&amp;amp;") {
		t.Fatalf("banner escaped twice:\n%s", banner)
	}
}

func TestClasses(t *testing.T) {
	t.Parallel()

	selection := &theme.Selection{
		Theme:   "acme",
		Variant: "dark",
		Manifest: &theme.Manifest{
			Name:    "acme",
			Version: "1.0.0",
			Tokens: map[string]string{
				TokenInvalid: "border-red",
				TokenValid:   "border-green",
			},
			Variants: map[string]theme.Variant{
				"dark": {Tokens: map[string]string{TokenInvalid: "border-rose"}},
			},
		},
	}
	invalid := &validation.State{Dirty: true, Reason: "required"}
	valid := &validation.State{Dirty: true, Valid: true}

	cases := []struct {
		name      string
		state     *validation.State
		selection *theme.Selection
		want      string
	}{
		{"nil state", nil, selection, ""},
		{"pristine", &validation.State{}, nil, ""},
		{"default invalid", invalid, nil, "is-invalid"},
		{"default valid", valid, nil, "is-valid"},
		{"variant override", invalid, selection, "border-rose"},
		{"manifest token", valid, selection, "border-green"},
		{"no variant", invalid, &theme.Selection{Manifest: selection.Manifest}, "border-red"},
	}
	for _, tc := range cases {
		if got := Classes(tc.state, tc.selection); got != tc.want {
			t.Fatalf("%s: Classes = %q, want %q", tc.name, got, tc.want)
		}
	}
}

type stubThemeSelector struct {
	selection *theme.Selection
	err       error
	calls     []string
}

func (s *stubThemeSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.calls = append(s.calls, name+"/"+variant)
	return s.selection, s.err
}

func TestThemeSelector(t *testing.T) {
	t.Parallel()

	selection := &theme.Selection{Theme: "acme", Manifest: &theme.Manifest{Tokens: map[string]string{TokenBanner: "alert alert-danger"}}}
	selector := &stubThemeSelector{selection: selection}
	renderer, err := NewRenderer(WithThemeSelector(selector, "acme", "light"))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if len(selector.calls) != 1 || selector.calls[0] != "acme/light" {
		t.Fatalf("unexpected selector calls: %v", selector.calls)
	}
	if renderer.Selection() != selection {
		t.Fatalf("selection not stored")
	}

	form := signupForm()
	banner, err := renderer.RenderBanner(form, evaluate(t, form, map[string]any{"email": nil}))
	if err != nil {
		t.Fatalf("render banner: %v", err)
	}
	if !strings.Contains(banner, `class="alert alert-danger"`) {
		t.Fatalf("banner class not themed: %s", banner)
	}

	failing := &stubThemeSelector{err: errors.New("no such theme")}
	if _, err := NewRenderer(WithThemeSelector(failing, "ghost", "")); err == nil {
		t.Fatalf("selector errors should surface")
	}
}
