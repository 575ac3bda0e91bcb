package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/workspace"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

// maxContextPaths caps the file listing sent with each prompt.
const maxContextPaths = 200

var errEmptyReply = errors.New("model returned no choices")

// LLMResponder asks a language model, falling back when the call fails.
type LLMResponder struct {
	llm      llms.Model
	ws       *workspace.Workspace
	fallback Responder
	opts     []llms.CallOption
	log      *logging.Logger
}

// NewLLMResponder wraps llm. fallback answers when the model errors; it may
// be nil, in which case the error is returned.
func NewLLMResponder(llm llms.Model, ws *workspace.Workspace, fallback Responder, opts ...llms.CallOption) *LLMResponder {
	if len(opts) == 0 {
		opts = []llms.CallOption{llms.WithTemperature(0.2), llms.WithMaxTokens(800)}
	}
	return &LLMResponder{
		llm:      llm,
		ws:       ws,
		fallback: fallback,
		opts:     opts,
		log:      logging.Get("assistant"),
	}
}

// Reply sends the workspace summary as a system message followed by prompt.
func (r *LLMResponder) Reply(ctx context.Context, prompt string) (string, error) {
	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, r.systemPrompt()),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := r.llm.GenerateContent(ctx, msgs, r.opts...)
	if err == nil && (resp == nil || len(resp.Choices) == 0) {
		err = errEmptyReply
	}
	if err != nil {
		r.log.Warn("model call failed", "error", err)
		if r.fallback == nil || ctx.Err() != nil {
			return "", fmt.Errorf("assistant: %w", err)
		}
		r.ws.Activity.Warnf("Assistant unavailable: %v", err)
		return r.fallback.Reply(ctx, prompt)
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func (r *LLMResponder) systemPrompt() string {
	var sb strings.Builder
	root := r.ws.Tree.Root()
	st := r.ws.Tree.Stats()
	sb.WriteString("You are a coding assistant inside a browser IDE. Answer in markdown, briefly.\n")
	fmt.Fprintf(&sb, "Workspace %q has %d files in %d folders.\n", root.Name, st.Files, st.Folders)

	sb.WriteString("Files:\n")
	n := 0
	r.ws.Tree.Walk(func(node tree.Node, _ int) bool {
		if n > maxContextPaths {
			return false
		}
		if node.IsFolder() {
			return true
		}
		n++
		if n > maxContextPaths {
			sb.WriteString("...\n")
			return false
		}
		sb.WriteString(node.Path + "\n")
		return true
	})

	if tab, ok := r.ws.Tabs.Active(); ok {
		fmt.Fprintf(&sb, "The active tab is %s (%s).\n", tab.Path, tab.Language)
	}
	return sb.String()
}
