package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/atelier/pkg/workspace/shell"
)

// maxTerminalLines bounds the scrollback of the terminal panel.
const maxTerminalLines = 500

// Terminal runs shell commands against the workspace and keeps their
// output as scrollback.
type Terminal struct {
	sh      *shell.Shell
	input   textinput.Model
	lines   []string
	histPos int // index into the shell history while browsing, -1 otherwise
}

// NewTerminal returns a terminal over sh.
func NewTerminal(sh *shell.Shell) *Terminal {
	in := textinput.New()
	in.Placeholder = "help"
	in.Prompt = sh.Prompt()
	return &Terminal{sh: sh, input: in, histPos: -1}
}

// Focus gives the prompt keyboard input.
func (t *Terminal) Focus() tea.Cmd {
	return t.input.Focus()
}

// Blur releases keyboard input.
func (t *Terminal) Blur() {
	t.input.Blur()
}

// Lines returns the scrollback.
func (t *Terminal) Lines() []string {
	return t.lines
}

func (t *Terminal) appendOutput(s string) {
	if s == "" {
		return
	}
	t.lines = append(t.lines, strings.Split(strings.TrimRight(s, "\n"), "\n")...)
	if len(t.lines) > maxTerminalLines {
		t.lines = t.lines[len(t.lines)-maxTerminalLines:]
	}
}

// Submit runs the typed line.
func (t *Terminal) Submit() {
	line := t.input.Value()
	t.input.Reset()
	t.histPos = -1
	t.appendOutput(mutedTextStyle.Render(t.sh.Prompt()) + line)

	out, err := t.sh.Exec(line)
	switch {
	case errors.Is(err, shell.ErrClear):
		t.lines = nil
	case err != nil:
		t.appendOutput(out)
		t.appendOutput(errorTextStyle.Render(err.Error()))
	default:
		t.appendOutput(out)
	}
	t.input.Prompt = t.sh.Prompt()
}

// Complete extends the last word of the line when exactly one candidate
// matches, and lists the candidates otherwise.
func (t *Terminal) Complete() {
	line := t.input.Value()
	candidates := t.sh.Complete(line)
	switch len(candidates) {
	case 0:
	case 1:
		t.input.SetValue(completeLine(line, candidates[0]))
		t.input.CursorEnd()
	default:
		t.appendOutput(mutedTextStyle.Render(strings.Join(candidates, "  ")))
	}
}

// completeLine replaces the word being typed with candidate.
func completeLine(line, candidate string) string {
	if line == "" || strings.HasSuffix(line, " ") {
		return line + candidate + suffixFor(candidate)
	}
	i := strings.LastIndex(line, " ")
	return line[:i+1] + candidate + suffixFor(candidate)
}

func suffixFor(candidate string) string {
	if strings.HasSuffix(candidate, "/") {
		return ""
	}
	return " "
}

// HistoryPrev recalls the previous command.
func (t *Terminal) HistoryPrev() {
	hist := t.sh.History()
	if len(hist) == 0 {
		return
	}
	if t.histPos < 0 {
		t.histPos = len(hist)
	}
	if t.histPos > 0 {
		t.histPos--
	}
	t.input.SetValue(hist[t.histPos])
	t.input.CursorEnd()
}

// HistoryNext recalls the next command, or clears the line past the end.
func (t *Terminal) HistoryNext() {
	hist := t.sh.History()
	if t.histPos < 0 {
		return
	}
	t.histPos++
	if t.histPos >= len(hist) {
		t.histPos = -1
		t.input.Reset()
		return
	}
	t.input.SetValue(hist[t.histPos])
	t.input.CursorEnd()
}

// Update forwards a message to the prompt.
func (t *Terminal) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	t.input, cmd = t.input.Update(msg)
	return cmd
}

// View renders the scrollback tail above the prompt.
func (t *Terminal) View(width, height int) string {
	rows := max(height-1, 0)
	start := max(len(t.lines)-rows, 0)

	var b strings.Builder
	for _, l := range t.lines[start:] {
		b.WriteString(truncateStyled(l, width))
		b.WriteString("\n")
	}
	for i := len(t.lines) - start; i < rows; i++ {
		b.WriteString("\n")
	}
	t.input.Width = max(width-len(t.input.Prompt)-1, 1)
	b.WriteString(t.input.View())
	return b.String()
}
