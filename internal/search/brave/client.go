package brave

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

const Name = "brave"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client - независимый индекс Brave Search (GET, X-Subscription-Token)
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.search.brave.com"
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

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	if req.MaxResults == 0 {
		req.MaxResults = 10
	}

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("count", strconv.Itoa(req.MaxResults))
	endpoint := c.baseURL + "/res/v1/web/search?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", c.apiKey)

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

	var braveResp braveResponse
	if err := json.Unmarshal(respBody, &braveResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]search.SearchResult, 0, len(braveResp.Web.Results))
	for _, r := range braveResp.Web.Results {
		results = append(results, search.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Description,
		})
		if len(results) >= req.MaxResults {
			break
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
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = search.ErrUnauthorized
	case http.StatusTooManyRequests:
		sentinel = search.ErrRateLimit
	case http.StatusPaymentRequired:
		sentinel = search.ErrQuotaExhausted
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
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
