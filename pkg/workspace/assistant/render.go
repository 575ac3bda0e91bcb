package assistant

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown replies into terminal text, caching one glamour
// renderer per wrap width.
type Renderer struct {
	mu    sync.Mutex
	style string
	byW   map[int]*glamour.TermRenderer
}

// NewRenderer returns a renderer using a glamour standard style name such
// as "dark" or "notty". An empty style picks one from the terminal
// background.
func NewRenderer(style string) *Renderer {
	return &Renderer{style: style, byW: map[int]*glamour.TermRenderer{}}
}

// Render formats md wrapped at width columns.
func (r *Renderer) Render(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tr, ok := r.byW[width]
	if !ok {
		styleOpt := glamour.WithAutoStyle()
		if r.style != "" {
			styleOpt = glamour.WithStandardStyle(r.style)
		}
		var err error
		tr, err = glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
		if err != nil {
			return "", fmt.Errorf("markdown renderer: %w", err)
		}
		r.byW[width] = tr
	}

	out, err := tr.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}
