package tui

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/atelier/pkg/workspace/tabs"
)

const highlightStyle = "monokai"

// Editor edits the buffer of the active tab. While focused it is a
// textarea; otherwise it shows a syntax highlighted preview.
type Editor struct {
	area     textarea.Model
	tabID    string
	language string
	focused  bool
	width    int
	height   int

	// Highlighting is cached until the buffer or language changes.
	hlSource string
	hlLang   string
	hlOut    []string
}

// NewEditor returns an empty, unfocused editor.
func NewEditor() *Editor {
	area := textarea.New()
	area.ShowLineNumbers = true
	area.CharLimit = 0
	area.MaxHeight = 0
	area.MaxWidth = 0
	area.Prompt = ""
	area.Placeholder = "Empty file"
	area.Blur()
	return &Editor{area: area}
}

// TabID returns the tab being edited, or "" when no tab is loaded.
func (e *Editor) TabID() string {
	return e.tabID
}

// Value returns the editor buffer.
func (e *Editor) Value() string {
	return e.area.Value()
}

// Load shows a tab, replacing the buffer and moving the cursor to the top.
func (e *Editor) Load(t tabs.Tab) {
	e.tabID = t.ID
	e.language = t.Language
	e.area.SetValue(t.Content)
	e.area.CursorStart()
	for e.area.Line() > 0 {
		e.area.CursorUp()
	}
}

// Sync brings the buffer in line with t after a change made elsewhere, such
// as an undo. It reports whether the buffer changed.
func (e *Editor) Sync(t tabs.Tab) bool {
	if t.ID != e.tabID {
		e.Load(t)
		return true
	}
	e.language = t.Language
	if t.Content == e.area.Value() {
		return false
	}
	line := e.area.Line()
	e.area.SetValue(t.Content)
	for e.area.Line() > line {
		e.area.CursorUp()
	}
	return true
}

// Clear unloads the current tab.
func (e *Editor) Clear() {
	e.tabID = ""
	e.language = ""
	e.area.SetValue("")
}

// Focus gives the textarea keyboard input.
func (e *Editor) Focus() tea.Cmd {
	e.focused = true
	return e.area.Focus()
}

// Blur returns to the preview.
func (e *Editor) Blur() {
	e.focused = false
	e.area.Blur()
}

// SetSize sets the editing area, excluding borders.
func (e *Editor) SetSize(width, height int) {
	e.width, e.height = width, height
	e.area.SetWidth(width)
	e.area.SetHeight(max(height, 1))
}

// Update forwards a message to the textarea and reports whether the buffer
// changed.
func (e *Editor) Update(msg tea.Msg) (bool, tea.Cmd) {
	if e.tabID == "" {
		return false, nil
	}
	before := e.area.Value()
	var cmd tea.Cmd
	e.area, cmd = e.area.Update(msg)
	return e.area.Value() != before, cmd
}

// View renders the editor.
func (e *Editor) View() string {
	if e.tabID == "" {
		return center(mutedTextStyle.Render("Select a file in the tree and press Enter"), e.width)
	}
	if e.focused {
		return e.area.View()
	}
	lines := e.highlighted()
	start := min(e.area.Line(), max(len(lines)-e.height, 0))
	end := min(start+e.height, len(lines))
	return strings.Join(lines[start:end], "\n")
}

func (e *Editor) highlighted() []string {
	src := e.area.Value()
	if e.hlOut != nil && src == e.hlSource && e.language == e.hlLang {
		return e.hlOut
	}
	var b strings.Builder
	if err := quick.Highlight(&b, src, e.language, "terminal256", highlightStyle); err != nil {
		b.Reset()
		b.WriteString(src)
	}
	e.hlSource, e.hlLang = src, e.language
	e.hlOut = strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	return e.hlOut
}
