package searchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/leadscout/internal/search"
)

const Name = "searchapi"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client - гугловский индекс через searchapi.io (GET, Bearer-авторизация)
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.searchapi.io"
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

type searchapiResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	if req.MaxResults == 0 {
		req.MaxResults = 10
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", req.Query)
	params.Set("num", strconv.Itoa(req.MaxResults))
	endpoint := c.baseURL + "/api/v1/search?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

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

	var apiResp searchapiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]search.SearchResult, len(apiResp.OrganicResults))
	for i, r := range apiResp.OrganicResults {
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
	var apiErr struct {
		Error string `json:"error"`
	}
	json.Unmarshal(body, &apiErr)

	sentinel := search.ErrSearchFailed
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = search.ErrUnauthorized
	case http.StatusTooManyRequests:
		sentinel = search.ErrRateLimit
	case http.StatusPaymentRequired:
		sentinel = search.ErrQuotaExhausted
	case http.StatusBadRequest:
		sentinel = search.ErrInvalidRequest
	}

	return &search.ProviderError{
		Provider: Name,
		Status:   status,
		Message:  apiErr.Error,
		Err:      sentinel,
	}
}

var _ search.Provider = (*Client)(nil)
