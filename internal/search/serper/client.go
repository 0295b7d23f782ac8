package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/leadscout/internal/search"
)

const Name = "serper"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client - гугловский индекс через serper.dev (JSON POST, ключ в заголовке)
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://google.serper.dev"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Available() error {
	if c.apiKey == "" {
		return search.ErrNoCredential
	}
	return nil
}

type serperRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num,omitempty"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	if req.MaxResults == 0 {
		req.MaxResults = 10
	}

	body, err := json.Marshal(serperRequest{Query: req.Query, Num: req.MaxResults})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapError(resp.StatusCode, respBody)
	}

	var serperResp serperResponse
	if err := json.Unmarshal(respBody, &serperResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]search.SearchResult, len(serperResp.Organic))
	for i, r := range serperResp.Organic {
		results[i] = search.SearchResult{
			Title:   r.Title,
			URL:     r.Link,
			Content: r.Snippet,
		}
	}

	return &search.SearchResponse{
		Query:    req.Query,
		Provider: Name,
		Results:  results,
	}, nil
}

func (c *Client) mapError(status int, body []byte) error {
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}

	sentinel := search.ErrSearchFailed
	switch {
	// serper отдает 400 с "Not enough credits" когда квота кончилась
	case strings.Contains(strings.ToLower(msg), "not enough credits"):
		sentinel = search.ErrQuotaExhausted
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		sentinel = search.ErrUnauthorized
	case status == http.StatusTooManyRequests:
		sentinel = search.ErrRateLimit
	case status == http.StatusPaymentRequired:
		sentinel = search.ErrQuotaExhausted
	case status == http.StatusBadRequest:
		sentinel = search.ErrInvalidRequest
	}

	return &search.ProviderError{
		Provider: Name,
		Status:   status,
		Message:  msg,
		Err:      sentinel,
	}
}

var _ search.Provider = (*Client)(nil)
