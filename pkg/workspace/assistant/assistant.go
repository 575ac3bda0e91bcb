// Package assistant answers chat prompts about the workspace, either from
// built-in rules or through an OpenAI-compatible model.
package assistant

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/jamesainslie/atelier/pkg/atelier/config"
	"github.com/jamesainslie/atelier/pkg/workspace"
)

// Responder turns a prompt into a markdown reply.
type Responder interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

// Role identifies who wrote a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Conversation keeps the chat transcript shown in the chat panel.
type Conversation struct {
	mu        sync.Mutex
	responder Responder
	messages  []Message
	now       func() time.Time
}

// NewConversation starts an empty transcript answered by r.
func NewConversation(r Responder) *Conversation {
	return &Conversation{responder: r, now: time.Now}
}

// Ask records prompt, asks the responder and records the reply. The
// transcript is not locked while the responder runs.
func (c *Conversation) Ask(ctx context.Context, prompt string) (Message, error) {
	prompt = strings.TrimSpace(prompt)
	c.mu.Lock()
	c.messages = append(c.messages, Message{Role: RoleUser, Text: prompt, Time: c.now()})
	c.mu.Unlock()

	text, err := c.responder.Reply(ctx, prompt)
	if err != nil {
		return Message{}, err
	}

	reply := Message{Role: RoleAssistant, Text: text, Time: c.now()}
	c.mu.Lock()
	c.messages = append(c.messages, reply)
	c.mu.Unlock()
	return reply, nil
}

// Messages returns the transcript, oldest first.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Clear empties the transcript.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// FromConfig picks a responder for cfg. The openai provider needs an API
// key from the config or OPENAI_API_KEY; without one the rule responder is
// used.
func FromConfig(cfg config.AssistantConfig, ws *workspace.Workspace) (Responder, error) {
	rules := NewRuleResponder(ws)
	if cfg.Provider != "openai" {
		return rules, nil
	}

	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		ws.Activity.Warnf("Assistant provider openai has no API key, using built-in answers")
		return rules, nil
	}

	opts := []openai.Option{openai.WithToken(key)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	return NewLLMResponder(llm, ws, rules), nil
}
