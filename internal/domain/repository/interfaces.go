package repository

import (
	"context"
	"time"

	"shopchat/internal/domain/entity"
)

// RateLimiter admits or rejects a request for the given caller identity.
type RateLimiter interface {
	Admit(ctx context.Context, identity string) (entity.AdmitResult, error)
}

// KeyValueStore is a small string KV surface backed by Redis in production.
// Get reports a miss with found=false rather than an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// SearchIndex answers free-text queries against the product catalog.
type SearchIndex interface {
	Query(ctx context.Context, text string, topK int) ([]entity.SearchMatch, error)
	Upsert(ctx context.Context, records []entity.ProductRecord) error
}

// LLMProvider generates a completion for a fully assembled prompt.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a dense vector for the search index.
type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CatalogAPI is the storefront admin API, used for index fallback and
// catalog sync.
type CatalogAPI interface {
	FetchProducts(ctx context.Context, cursor string, limit int, filter string) ([]entity.ProductRecord, entity.PageInfo, error)
}
