package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/leadscout/internal/search"
)

// Client - настраиваемый фейковый провайдер для тестов
type Client struct {
	ProviderName string
	Results      []search.SearchResult
	Error        error
	AvailableErr error
	Delay        time.Duration

	ExtractContent string
	ExtractErr     error

	CallCount        int
	ExtractCallCount int
	AvailableCalls   int
	LastRequest      search.SearchRequest
	AllRequests      []search.SearchRequest

	mu sync.Mutex
}

func New(name string) *Client {
	return &Client{ProviderName: name}
}

func (c *Client) WithResults(results []search.SearchResult) *Client {
	c.Results = results
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithAvailableError(err error) *Client {
	c.AvailableErr = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) Name() string { return c.ProviderName }

func (c *Client) Available() error {
	c.mu.Lock()
	c.AvailableCalls++
	err := c.AvailableErr
	c.mu.Unlock()
	return err
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastRequest = req
	c.AllRequests = append(c.AllRequests, req)
	delay := c.Delay
	err := c.Error
	results := c.Results
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}

	return &search.SearchResponse{
		Query:        req.Query,
		Provider:     c.ProviderName,
		Results:      results,
		ResponseTime: 0.1,
	}, nil
}

func (c *Client) Extract(ctx context.Context, url string) (*search.ExtractResult, error) {
	c.mu.Lock()
	c.ExtractCallCount++
	err := c.ExtractErr
	content := c.ExtractContent
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return &search.ExtractResult{URL: url, RawContent: content}, nil
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.ExtractCallCount = 0
	c.AvailableCalls = 0
	c.LastRequest = search.SearchRequest{}
	c.AllRequests = nil
}

var (
	_ search.Provider  = (*Client)(nil)
	_ search.Extractor = (*Client)(nil)
)
