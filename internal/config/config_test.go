package config

import (
	"errors"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("OPENROUTER_API_KEY", "llm-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LLM.Model != "deepseek/deepseek-chat" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.Providers.HealthTTL != 5*time.Minute {
		t.Errorf("HealthTTL = %v, want 5m", cfg.Providers.HealthTTL)
	}
	if cfg.Cache.Capacity != 100 || cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache = %+v, want 100/1h", cfg.Cache)
	}
	if cfg.Agent.MaxIterations != 5 {
		t.Errorf("MaxIterations = %d, want 5", cfg.Agent.MaxIterations)
	}
	if cfg.RateLimit.RequestsPerMinute != 10 {
		t.Errorf("RequestsPerMinute = %d, want 10", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TAVILY_API_KEY", "tv")
	t.Setenv("CACHE_CAPACITY", "50")
	t.Setenv("SEARCH_TIMEOUT_SEC", "30")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Providers.TavilyAPIKey != "tv" {
		t.Errorf("TavilyAPIKey = %q", cfg.Providers.TavilyAPIKey)
	}
	if cfg.Cache.Capacity != 50 {
		t.Errorf("Cache.Capacity = %d, want 50", cfg.Cache.Capacity)
	}
	if cfg.Timeouts.Search != 30*time.Second {
		t.Errorf("Timeouts.Search = %v, want 30s", cfg.Timeouts.Search)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("OPENROUTER_API_KEY", "llm-key")

	if _, err := Load(); !errors.Is(err, ErrMissingToken) {
		t.Errorf("Load() error = %v, want ErrMissingToken", err)
	}

	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("OPENROUTER_API_KEY", "")

	if _, err := Load(); !errors.Is(err, ErrMissingLLMKey) {
		t.Errorf("Load() error = %v, want ErrMissingLLMKey", err)
	}
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CACHE_CAPACITY", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.Capacity != 100 {
		t.Errorf("Cache.Capacity = %d, want default 100", cfg.Cache.Capacity)
	}
}
