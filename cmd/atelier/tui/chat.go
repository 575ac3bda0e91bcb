package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/atelier/pkg/workspace/assistant"
)

// chatTimeout bounds one assistant reply.
const chatTimeout = 2 * time.Minute

// chatReplyMsg carries an assistant reply back to the model.
type chatReplyMsg struct {
	reply assistant.Message
	err   error
}

// Chat is the assistant panel: a transcript above a prompt.
type Chat struct {
	conv     *assistant.Conversation
	renderer *assistant.Renderer
	input    textinput.Model
	pending  bool
	err      error

	// Rendered transcript, reused until it changes or the width does.
	cacheLen   int
	cacheWidth int
	cache      []string
}

// NewChat returns a chat panel, or nil when no responder is configured.
func NewChat(r assistant.Responder, style string) *Chat {
	if r == nil {
		return nil
	}
	in := textinput.New()
	in.Prompt = "› "
	in.Placeholder = "Ask about the workspace"
	return &Chat{
		conv:     assistant.NewConversation(r),
		renderer: assistant.NewRenderer(style),
		input:    in,
	}
}

// Focus gives the prompt keyboard input.
func (c *Chat) Focus() tea.Cmd {
	return c.input.Focus()
}

// Blur releases keyboard input.
func (c *Chat) Blur() {
	c.input.Blur()
}

// Pending reports whether a reply is outstanding.
func (c *Chat) Pending() bool {
	return c.pending
}

// Submit sends the typed prompt. It returns nil while a reply is pending
// or the prompt is empty.
func (c *Chat) Submit() tea.Cmd {
	prompt := strings.TrimSpace(c.input.Value())
	if prompt == "" || c.pending {
		return nil
	}
	c.input.Reset()
	c.pending = true
	c.err = nil
	conv := c.conv
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()
		reply, err := conv.Ask(ctx, prompt)
		return chatReplyMsg{reply: reply, err: err}
	}
}

// Receive records the outcome of Submit.
func (c *Chat) Receive(msg chatReplyMsg) {
	c.pending = false
	c.err = msg.err
}

// Clear empties the transcript.
func (c *Chat) Clear() {
	if c.pending {
		return
	}
	c.conv.Clear()
	c.err = nil
	c.cache = nil
	c.cacheLen = 0
}

// Update forwards a message to the prompt.
func (c *Chat) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return cmd
}

func (c *Chat) transcript(width int) []string {
	msgs := c.conv.Messages()
	if c.cache != nil && c.cacheLen == len(msgs) && c.cacheWidth == width {
		return c.cache
	}
	var lines []string
	for _, m := range msgs {
		if m.Role == assistant.RoleUser {
			lines = append(lines, accentTextStyle.Render("you: ")+m.Text)
			continue
		}
		text, err := c.renderer.Render(m.Text, width)
		if err != nil {
			text = m.Text
		}
		lines = append(lines, strings.Split(text, "\n")...)
	}
	c.cache, c.cacheLen, c.cacheWidth = lines, len(msgs), width
	return lines
}

// View renders the transcript tail above the prompt.
func (c *Chat) View(width, height int) string {
	lines := append([]string(nil), c.transcript(width)...)
	if c.pending {
		lines = append(lines, mutedTextStyle.Render("thinking..."))
	}
	if c.err != nil {
		lines = append(lines, errorTextStyle.Render(c.err.Error()))
	}

	rows := max(height-1, 0)
	start := max(len(lines)-rows, 0)
	var b strings.Builder
	for _, l := range lines[start:] {
		b.WriteString(truncateStyled(l, width))
		b.WriteString("\n")
	}
	for i := len(lines) - start; i < rows; i++ {
		b.WriteString("\n")
	}
	c.input.Width = max(width-3, 1)
	b.WriteString(c.input.View())
	return b.String()
}
