package search

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnauthorized    = errors.New("invalid API key")
	ErrRateLimit       = errors.New("rate limit exceeded")
	ErrQuotaExhausted  = errors.New("usage limit exceeded")
	ErrInvalidRequest  = errors.New("invalid request parameters")
	ErrSearchFailed    = errors.New("search request failed")
	ErrEmptyResults    = errors.New("no results found")
	ErrNoCredential    = errors.New("API key is not configured")
	ErrNotSupported    = errors.New("capability not supported")
)

// Provider - единый интерфейс над поисковыми бэкендами.
// Available - легковесная проверка (ключ на месте), без сетевых вызовов:
// квоты платные, реальная ошибка всплывет на первом же поиске.
type Provider interface {
	Name() string
	Available() error
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// Extractor умеет вытаскивать содержимое страницы по URL.
// Реализует только основной провайдер (tavily).
type Extractor interface {
	Extract(ctx context.Context, url string) (*ExtractResult, error)
}

type SearchRequest struct {
	Query          string
	IncludeDomains []string
	ExcludeDomains []string
	MaxResults     int
	SearchDepth    string // basic|advanced, имеет смысл только для tavily
}

type SearchResponse struct {
	Query        string
	Provider     string
	Results      []SearchResult
	ResponseTime float64
}

type SearchResult struct {
	Title      string
	URL        string
	Content    string
	RawContent string
	Score      float64
}

type ExtractResult struct {
	URL        string
	RawContent string
}

// ProviderError - ошибка конкретного провайдера с HTTP-статусом и его
// сообщением. Unwrap отдает сентинел, чтобы errors.Is работал через
// агрегированную ошибку оркестратора.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v (status %d: %s)", e.Provider, e.Err, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %v (status %d)", e.Provider, e.Err, e.Status)
}

func (e *ProviderError) Unwrap() error { return e.Err }
