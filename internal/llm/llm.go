package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Roles for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged chat message.
type Message struct {
	Role    string
	Content string
}

// Usage reports provider token counts for a single call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Add returns the element-wise sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Client abstracts language model providers. Complete returns free text;
// CompleteJSON requests a JSON-object response and returns the raw payload.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, Usage, error)
	CompleteJSON(ctx context.Context, messages []Message) (json.RawMessage, Usage, error)
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, messages []Message) (string, Usage, error) {
	_ = ctx
	_ = messages
	return "", Usage{}, ErrNotImplemented
}

// CompleteJSON returns ErrNotImplemented.
func (PlaceholderClient) CompleteJSON(ctx context.Context, messages []Message) (json.RawMessage, Usage, error) {
	_ = ctx
	_ = messages
	return nil, Usage{}, ErrNotImplemented
}

var _ Client = PlaceholderClient{}
