package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/leadscout/internal/llm"
)

// Client - скриптуемый мок. Для Chat можно задать последовательность
// ответов (Script) - очередной вызов снимает следующий; когда скрипт
// кончился, повторяется последний ответ.
type Client struct {
	Response string
	Error    error
	Delay    time.Duration

	Script []llm.Message

	CallCount   int
	LastSystem  string
	LastPrompt  string
	LastOptions llm.ChatOptions
	AllMessages [][]llm.Message

	mu sync.Mutex
}

func New() *Client {
	return &Client{
		Response: "mock response",
	}
}

func (c *Client) WithResponse(response string) *Client {
	c.Response = response
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithScript(script ...llm.Message) *Client {
	c.Script = script
	return c
}

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastSystem = system
	c.LastPrompt = prompt
	delay := c.Delay
	err := c.Error
	resp := c.Response
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return "", err
	}

	return resp, nil
}

func (c *Client) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CallCount++
	c.LastOptions = opts
	copied := make([]llm.Message, len(messages))
	copy(copied, messages)
	c.AllMessages = append(c.AllMessages, copied)

	if c.Error != nil {
		return nil, c.Error
	}

	if len(c.Script) == 0 {
		return &llm.Message{Role: llm.RoleAssistant, Content: c.Response}, nil
	}

	idx := c.CallCount - 1
	if idx >= len(c.Script) {
		idx = len(c.Script) - 1
	}
	msg := c.Script[idx]
	return &msg, nil
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastSystem = ""
	c.LastPrompt = ""
	c.AllMessages = nil
}

var _ llm.Client = (*Client)(nil)
