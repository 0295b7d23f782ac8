package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/leadscout/internal/metrics"
	"github.com/kitbuilder587/leadscout/internal/search"
	"github.com/kitbuilder587/leadscout/internal/search/brave"
	"github.com/kitbuilder587/leadscout/internal/search/searchapi"
	"github.com/kitbuilder587/leadscout/internal/search/serper"
	"github.com/kitbuilder587/leadscout/internal/search/tavily"
)

var (
	ErrNoProviders        = errors.New("no search providers configured")
	ErrExtractUnavailable = errors.New("extract capability unavailable")
)

type Config struct {
	TavilyAPIKey    string
	SerperAPIKey    string
	BraveAPIKey     string
	SearchAPIAPIKey string
	HealthTTL       time.Duration
}

type ProviderStats struct {
	Name      string
	Searches  int
	Failures  int
	LastUsed  time.Time
	LastError string
}

// Orchestrator - единый search/extract API поверх настроенных провайдеров.
// Порядок фиксированный: tavily, serper, brave, searchapi. Первый успех
// выигрывает, дальше по приоритету никто не вызывается.
type Orchestrator struct {
	providers []search.Provider
	extractor search.Extractor
	health    *HealthCache

	mu    sync.Mutex
	stats map[string]*ProviderStats

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New собирает провайдеров, у которых задан ключ. Ноль провайдеров -
// фатальная ошибка конфигурации, не ретраится.
func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Orchestrator, error) {
	var providers []search.Provider
	var extractor search.Extractor

	if cfg.TavilyAPIKey != "" {
		t := tavily.New(tavily.Config{APIKey: cfg.TavilyAPIKey}, logger)
		providers = append(providers, t)
		extractor = t
	}
	if cfg.SerperAPIKey != "" {
		providers = append(providers, serper.New(serper.Config{APIKey: cfg.SerperAPIKey}, logger))
	}
	if cfg.BraveAPIKey != "" {
		providers = append(providers, brave.New(brave.Config{APIKey: cfg.BraveAPIKey}, logger))
	}
	if cfg.SearchAPIAPIKey != "" {
		providers = append(providers, searchapi.New(searchapi.Config{APIKey: cfg.SearchAPIAPIKey}, logger))
	}

	return NewWithProviders(providers, extractor, NewHealthCache(cfg.HealthTTL), logger, m)
}

// NewWithProviders - конструктор для тестов и кастомных наборов.
// Приоритет = порядок в слайсе.
func NewWithProviders(providers []search.Provider, extractor search.Extractor, health *HealthCache, logger *zap.Logger, m *metrics.Metrics) (*Orchestrator, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	if health == nil {
		health = NewHealthCache(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stats := make(map[string]*ProviderStats, len(providers))
	names := make([]string, len(providers))
	for i, p := range providers {
		stats[p.Name()] = &ProviderStats{Name: p.Name()}
		names[i] = p.Name()
	}

	logger.Info("search orchestrator ready", zap.Strings("providers", names))

	return &Orchestrator{
		providers: providers,
		extractor: extractor,
		health:    health,
		stats:     stats,
		logger:    logger,
		metrics:   m,
	}, nil
}

// Search перебирает провайдеров по приоритету. Нездоровые по кешу скипаются
// без сетевого вызова. Если все упали - агрегированная ошибка с причиной
// по каждому провайдеру.
func (o *Orchestrator) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	var attemptErrs []error

	for _, p := range o.providers {
		name := p.Name()

		healthy, msg := o.health.Check(name, p.Available)
		if !healthy {
			attemptErrs = append(attemptErrs, fmt.Errorf("%s: skipped, unhealthy: %s", name, msg))
			continue
		}

		start := time.Now()
		resp, err := p.Search(ctx, req)
		duration := time.Since(start)

		o.mu.Lock()
		st := o.stats[name]
		st.Searches++
		st.LastUsed = time.Now()
		o.mu.Unlock()

		if err != nil {
			o.mu.Lock()
			st.Failures++
			st.LastError = err.Error()
			o.mu.Unlock()

			o.health.MarkUnhealthy(name, err.Error())
			if o.metrics != nil {
				o.metrics.RecordSearchRequest(name, "error", duration)
			}
			o.logger.Warn("provider search failed",
				zap.String("provider", name),
				zap.String("query", truncate(req.Query, 100)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)

			attemptErrs = append(attemptErrs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		o.health.MarkHealthy(name)
		if o.metrics != nil {
			o.metrics.RecordSearchRequest(name, "success", duration)
		}
		o.logger.Info("search completed",
			zap.String("provider", name),
			zap.String("query", truncate(req.Query, 100)),
			zap.Int("results", len(resp.Results)),
			zap.Duration("duration", duration),
		)

		resp.Provider = name
		return resp, nil
	}

	return nil, fmt.Errorf("all search providers failed: %w", errors.Join(attemptErrs...))
}

// Extract работает только через основной провайдер. Fallback не имеет
// смысла - больше никто extract не умеет.
func (o *Orchestrator) Extract(ctx context.Context, url string) (*search.ExtractResult, error) {
	if o.extractor == nil {
		return nil, ErrExtractUnavailable
	}

	start := time.Now()
	result, err := o.extractor.Extract(ctx, url)
	duration := time.Since(start)

	if err != nil {
		if o.metrics != nil {
			o.metrics.RecordSearchRequest("extract", "error", duration)
		}
		o.logger.Warn("extract failed",
			zap.String("url", truncate(url, 100)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.RecordSearchRequest("extract", "success", duration)
	}
	o.logger.Info("extract completed",
		zap.String("url", truncate(url, 100)),
		zap.Int("content_length", len(result.RawContent)),
		zap.Duration("duration", duration),
	)

	return result, nil
}

// Stats - снапшот статистики по провайдерам в порядке приоритета
func (o *Orchestrator) Stats() []ProviderStats {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]ProviderStats, 0, len(o.providers))
	for _, p := range o.providers {
		out = append(out, *o.stats[p.Name()])
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
