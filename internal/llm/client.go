package llm

import (
	"context"
	"errors"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrRequestFailed = errors.New("request failed")
	ErrEmptyResponse = errors.New("empty response")
	ErrRateLimit     = errors.New("rate limit exceeded")
)

// Client - chat-completion клиент. Chat нужен агенту с tool calling,
// CompleteWithSystem - простым one-shot запросам.
type Client interface {
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*Message, error)
}

type ChatOptions struct {
	Tools      []Tool
	ToolChoice string // "auto", "none" или пусто
}
