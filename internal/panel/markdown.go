package panel

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders AI output as terminal markdown. The glamour
// renderer is rebuilt only when the wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{}
}

// Render returns content as rendered markdown, or content unchanged when
// glamour fails or panics.
func (r *markdownRenderer) Render(content string, width int) (result string) {
	if r == nil || content == "" {
		return content
	}
	defer func() {
		if rec := recover(); rec != nil {
			result = content
		}
	}()

	if width < 20 {
		width = 20
	}
	if r.renderer == nil || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		r.renderer, r.width = tr, width
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
