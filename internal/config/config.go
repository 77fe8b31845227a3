package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds every tunable for the chat service. Values come from the
// environment, with defaults matching production.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Rate limiting
	RateLimitWindow      time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"10s"`
	RateLimitBudget      int           `env:"RATE_LIMIT_BUDGET" envDefault:"10"`
	RateLimitAnonymousID string        `env:"RATE_LIMIT_ANONYMOUS_ID" envDefault:"anonymous"`

	// LLM settings
	GeminiAPIKey   string        `env:"GEMINI_API_KEY,required"`
	GeminiModel    string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	EmbeddingModel string        `env:"EMBEDDING_MODEL" envDefault:"text-embedding-004"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"10s"`

	// Search index
	QdrantHost           string        `env:"QDRANT_HOST" envDefault:"localhost"`
	QdrantPort           int           `env:"QDRANT_PORT" envDefault:"6334"`
	QdrantAPIKey         string        `env:"QDRANT_API_KEY"`
	QdrantCollection     string        `env:"QDRANT_COLLECTION" envDefault:"products"`
	VectorSize           uint64        `env:"VECTOR_SIZE" envDefault:"768"`
	SearchTimeout        time.Duration `env:"SEARCH_TIMEOUT" envDefault:"5s"`
	SearchScoreThreshold float32       `env:"SEARCH_SCORE_THRESHOLD" envDefault:"0.55"`

	// Conversation history
	RedisURL         string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	MaxChatHistory   int           `env:"MAX_CHAT_HISTORY" envDefault:"10"`
	HistoryTTL       time.Duration `env:"HISTORY_TTL" envDefault:"24h"`
	HistoryCacheTTL  time.Duration `env:"HISTORY_CACHE_TTL" envDefault:"5m"`
	HistoryCacheSize int           `env:"HISTORY_CACHE_SIZE" envDefault:"1000"`
	ResponseCacheTTL time.Duration `env:"RESPONSE_CACHE_TTL" envDefault:"1h"`

	// Storefront admin API
	ShopDomain          string        `env:"SHOP_DOMAIN"`
	ShopAdminToken      string        `env:"SHOP_ADMIN_TOKEN"`
	CatalogTimeout      time.Duration `env:"CATALOG_TIMEOUT" envDefault:"5s"`
	PriceConversionRate float64       `env:"PRICE_CONVERSION_RATE" envDefault:"20"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.RateLimitBudget <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_BUDGET must be positive, got %d", cfg.RateLimitBudget)
	}
	if cfg.MaxChatHistory <= 0 {
		return nil, fmt.Errorf("MAX_CHAT_HISTORY must be positive, got %d", cfg.MaxChatHistory)
	}
	return cfg, nil
}
