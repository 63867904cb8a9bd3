package formcheck

import (
	"io/fs"

	"github.com/goliatone/go-formcheck/pkg/feedback"
)

// EmbeddedTemplates exposes the built-in banner and hint templates so callers
// can copy or extend them and pass the result to feedback.WithTemplates.
func EmbeddedTemplates() fs.FS {
	return feedback.TemplatesFS()
}
