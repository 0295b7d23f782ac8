package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/leadscout/internal/search"
)

const Name = "tavily"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
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

type tavilyRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty"`
	MaxResults        int      `json:"max_results,omitempty"`
	SearchDepth       string   `json:"search_depth,omitempty"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeRawContent bool     `json:"include_raw_content"`
}

type tavilyResponse struct {
	Query        string         `json:"query"`
	Results      []tavilyResult `json:"results"`
	ResponseTime float64        `json:"response_time"`
}

type tavilyResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent string  `json:"raw_content"`
	Score      float64 `json:"score"`
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	if req.MaxResults == 0 {
		req.MaxResults = 5
	}
	if req.SearchDepth == "" {
		req.SearchDepth = "basic"
	}

	tavilyReq := tavilyRequest{
		APIKey:            c.apiKey,
		Query:             req.Query,
		IncludeDomains:    req.IncludeDomains,
		ExcludeDomains:    req.ExcludeDomains,
		MaxResults:        req.MaxResults,
		SearchDepth:       req.SearchDepth,
		IncludeAnswer:     false,
		IncludeRawContent: false,
	}

	body, err := json.Marshal(tavilyReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, "/search", body)
	if err != nil {
		return nil, err
	}

	var tavilyResp tavilyResponse
	if err := json.Unmarshal(respBody, &tavilyResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return c.toSearchResponse(&tavilyResp), nil
}

// Extract вытаскивает сырое содержимое страницы через /extract
func (c *Client) Extract(ctx context.Context, url string) (*search.ExtractResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"api_key": c.apiKey,
		"urls":    []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, "/extract", body)
	if err != nil {
		return nil, err
	}

	var extractResp struct {
		Results []struct {
			URL        string `json:"url"`
			RawContent string `json:"raw_content"`
		} `json:"results"`
	}
	if err := json.Unmarshal(respBody, &extractResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(extractResp.Results) == 0 {
		return nil, search.ErrEmptyResults
	}

	return &search.ExtractResult{
		URL:        extractResp.Results[0].URL,
		RawContent: extractResp.Results[0].RawContent,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	var lastErr error
	backoff := []time.Duration{1 * time.Second, 2 * time.Second}

	for attempt := 0; attempt <= len(backoff); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff[attempt-1]):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("do request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return respBody, nil

		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, c.providerErr(resp.StatusCode, respBody, search.ErrUnauthorized)

		case http.StatusTooManyRequests:
			return nil, c.providerErr(resp.StatusCode, respBody, search.ErrRateLimit)

		// 432/433 - план исчерпан (tavily-специфичные коды)
		case http.StatusPaymentRequired, 432, 433:
			return nil, c.providerErr(resp.StatusCode, respBody, search.ErrQuotaExhausted)

		case http.StatusBadRequest:
			return nil, c.providerErr(resp.StatusCode, respBody, search.ErrInvalidRequest)

		default:
			if resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
				continue
			}
			return nil, c.providerErr(resp.StatusCode, respBody, search.ErrSearchFailed)
		}
	}

	return nil, &search.ProviderError{
		Provider: Name,
		Message:  fmt.Sprint(lastErr),
		Err:      search.ErrSearchFailed,
	}
}

func (c *Client) providerErr(status int, body []byte, sentinel error) error {
	msg := extractAPIMessage(body)
	return &search.ProviderError{
		Provider: Name,
		Status:   status,
		Message:  msg,
		Err:      sentinel,
	}
}

func extractAPIMessage(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	if e.Detail != "" {
		return e.Detail
	}
	return e.Error
}

func (c *Client) toSearchResponse(resp *tavilyResponse) *search.SearchResponse {
	results := make([]search.SearchResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = search.SearchResult{
			Title:      r.Title,
			URL:        r.URL,
			Content:    r.Content,
			RawContent: r.RawContent,
			Score:      r.Score,
		}
	}

	return &search.SearchResponse{
		Query:        resp.Query,
		Provider:     Name,
		Results:      results,
		ResponseTime: resp.ResponseTime,
	}
}

var (
	_ search.Provider  = (*Client)(nil)
	_ search.Extractor = (*Client)(nil)
)
