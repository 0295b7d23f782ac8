package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

var (
	ErrMissingToken  = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrMissingLLMKey = errors.New("OPENROUTER_API_KEY is required")
)

type Config struct {
	Telegram  TelegramConfig
	LLM       LLMConfig
	Providers ProvidersConfig
	Log       LogConfig
	Cache     CacheConfig
	Agent     AgentConfig
	Timeouts  TimeoutConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

type TelegramConfig struct {
	Token string
}

type LLMConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// ProvidersConfig - ключи поисковых провайдеров. Активны те, у кого ключ
// задан; приоритет фиксированный: tavily, serper, brave, searchapi.
type ProvidersConfig struct {
	TavilyAPIKey    string
	SerperAPIKey    string
	BraveAPIKey     string
	SearchAPIAPIKey string
	HealthTTL       time.Duration
}

type LogConfig struct {
	Level string
}

type CacheConfig struct {
	Capacity int
	TTL      time.Duration
}

type AgentConfig struct {
	MaxIterations int
}

type TimeoutConfig struct {
	Search time.Duration
	Total  time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type MetricsConfig struct {
	Addr string
}

func Load() (*Config, error) {
	cfg := &Config{
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("OPENROUTER_API_KEY"),
			Model:   getEnvOrDefault("OPENROUTER_MODEL", "deepseek/deepseek-chat"),
			BaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Timeout: time.Duration(getEnvIntOrDefault("OPENROUTER_TIMEOUT_SEC", 60)) * time.Second,
		},
		Providers: ProvidersConfig{
			TavilyAPIKey:    os.Getenv("TAVILY_API_KEY"),
			SerperAPIKey:    os.Getenv("SERPER_API_KEY"),
			BraveAPIKey:     os.Getenv("BRAVE_API_KEY"),
			SearchAPIAPIKey: os.Getenv("SEARCHAPI_API_KEY"),
			HealthTTL:       time.Duration(getEnvIntOrDefault("HEALTH_TTL_SEC", 300)) * time.Second,
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
		Cache: CacheConfig{
			Capacity: getEnvIntOrDefault("CACHE_CAPACITY", 100),
			TTL:      time.Duration(getEnvIntOrDefault("CACHE_TTL_SEC", 3600)) * time.Second,
		},
		Agent: AgentConfig{
			MaxIterations: getEnvIntOrDefault("AGENT_MAX_ITERATIONS", 5),
		},
		Timeouts: TimeoutConfig{
			Search: time.Duration(getEnvIntOrDefault("SEARCH_TIMEOUT_SEC", 45)) * time.Second,
			Total:  time.Duration(getEnvIntOrDefault("TOTAL_TIMEOUT_SEC", 180)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 10),
		},
		Metrics: MetricsConfig{
			Addr: getEnvOrDefault("METRICS_ADDR", ":9090"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	if c.LLM.APIKey == "" {
		return ErrMissingLLMKey
	}
	// отсутствие поисковых ключей ловит оркестратор при сборке
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
