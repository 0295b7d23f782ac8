package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kitbuilder587/leadscout/internal/agent"
	"github.com/kitbuilder587/leadscout/internal/cache/memory"
	"github.com/kitbuilder587/leadscout/internal/config"
	"github.com/kitbuilder587/leadscout/internal/llm/openrouter"
	"github.com/kitbuilder587/leadscout/internal/metrics"
	"github.com/kitbuilder587/leadscout/internal/orchestrator"
	"github.com/kitbuilder587/leadscout/internal/service"
	"github.com/kitbuilder587/leadscout/internal/telegram"
	"github.com/kitbuilder587/leadscout/internal/validate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "leadscout: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env опционален, в проде переменные приходят из окружения
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	metricsSrv := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: metrics.Handler(),
	}
	go func() {
		logger.Info("metrics server started", zap.String("addr", cfg.Metrics.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	orch, err := orchestrator.New(orchestrator.Config{
		TavilyAPIKey:    cfg.Providers.TavilyAPIKey,
		SerperAPIKey:    cfg.Providers.SerperAPIKey,
		BraveAPIKey:     cfg.Providers.BraveAPIKey,
		SearchAPIAPIKey: cfg.Providers.SearchAPIAPIKey,
		HealthTTL:       cfg.Providers.HealthTTL,
	}, logger, m)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	analysisCache := memory.New(memory.Config{
		Capacity:   cfg.Cache.Capacity,
		DefaultTTL: cfg.Cache.TTL,
		OnEviction: m.RecordCacheEviction,
	})
	defer analysisCache.Stop()

	llmClient := openrouter.New(openrouter.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	financeAgent := agent.New(llmClient, orch, agent.Config{
		MaxIterations: cfg.Agent.MaxIterations,
	}, logger, m)

	validator := validate.New(validate.Config{}, logger)

	analyzer := service.NewAnalyzerService(service.AnalyzerDeps{
		Search:    orch,
		LLM:       llmClient,
		Cache:     analysisCache,
		Finance:   financeAgent,
		Validator: validator,
		Logger:    logger,
		Metrics:   m,
		Config: service.AnalyzerConfig{
			CacheTTL:      cfg.Cache.TTL,
			SearchTimeout: cfg.Timeouts.Search,
			TotalTimeout:  cfg.Timeouts.Total,
		},
	})

	bot, err := telegram.New(telegram.BotConfig{
		Token:             cfg.Telegram.Token,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
	}, analyzer, logger, m)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	err = bot.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}
