package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const defaultWrap = 100

func newRenderer(width int) *glamour.TermRenderer {
	if width <= 0 {
		width = defaultWrap
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown renders doc for the terminal, falling back to the raw text.
func renderMarkdown(r *glamour.TermRenderer, doc string) string {
	if r == nil {
		return doc
	}

	out, err := r.Render(doc)
	if err != nil {
		return doc
	}
	return strings.TrimRight(out, "\n")
}
