package template

// TemplateRenderer is the seam the feedback renderer draws markup through.
type TemplateRenderer interface {
	RenderTemplate(name string, data map[string]any) (string, error)
	RenderString(content string, data map[string]any) (string, error)
	RenderText(content string, data map[string]any) (string, error)
}
