package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shopchat/internal/domain/entity"
	"shopchat/internal/domain/repository"
)

// Ingestor pages the full catalog out of the storefront API and
// upserts it into the search index. Transient upsert failures are
// retried with backoff, halving the batch when retries run out.
type Ingestor struct {
	catalog    repository.CatalogAPI
	index      repository.SearchIndex
	mappings   *KeywordMappings
	pageSize   int
	maxRetries int
	baseDelay  time.Duration
	log        zerolog.Logger
}

func NewIngestor(catalog repository.CatalogAPI, index repository.SearchIndex, mappings *KeywordMappings, log zerolog.Logger) *Ingestor {
	return &Ingestor{
		catalog:    catalog,
		index:      index,
		mappings:   mappings,
		pageSize:   50,
		maxRetries: 2,
		baseDelay:  500 * time.Millisecond,
		log:        log,
	}
}

// SyncResult summarizes one catalog sync run.
type SyncResult struct {
	Fetched int `json:"fetched"`
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// Sync walks every catalog page and indexes it. A page that cannot be
// indexed even in single-record batches is counted and skipped.
func (i *Ingestor) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult
	cursor := ""

	for {
		products, pageInfo, err := i.catalog.FetchProducts(ctx, cursor, i.pageSize, "status:active")
		if err != nil {
			return result, fmt.Errorf("fetch catalog page: %w", err)
		}
		result.Fetched += len(products)

		indexed, failed := i.indexBatch(ctx, products)
		result.Indexed += indexed
		result.Failed += failed

		if !pageInfo.HasNextPage || pageInfo.EndCursor == "" {
			break
		}
		cursor = pageInfo.EndCursor

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}
	}

	i.log.Info().
		Int("fetched", result.Fetched).
		Int("indexed", result.Indexed).
		Int("failed", result.Failed).
		Msg("catalog sync finished")

	if i.mappings != nil {
		i.mappings.Build(ctx, i.index, i.log)
	}
	return result, nil
}

// indexBatch upserts with retries, splitting the batch in half when a
// full batch keeps failing.
func (i *Ingestor) indexBatch(ctx context.Context, batch []entity.ProductRecord) (indexed, failed int) {
	if len(batch) == 0 {
		return 0, 0
	}

	var lastErr error
	for attempt := 0; attempt <= i.maxRetries; attempt++ {
		err := i.index.Upsert(ctx, batch)
		if err == nil {
			return len(batch), 0
		}
		lastErr = err

		if !isTransient(err) || attempt == i.maxRetries {
			break
		}
		select {
		case <-time.After(i.backoff(attempt)):
		case <-ctx.Done():
			return 0, len(batch)
		}
	}

	if len(batch) == 1 {
		i.log.Error().Err(lastErr).Str("product_id", batch[0].ID).Msg("product could not be indexed")
		return 0, 1
	}

	i.log.Warn().Err(lastErr).Int("batch", len(batch)).Msg("batch upsert failed, splitting")
	mid := len(batch) / 2
	leftIndexed, leftFailed := i.indexBatch(ctx, batch[:mid])
	rightIndexed, rightFailed := i.indexBatch(ctx, batch[mid:])
	return leftIndexed + rightIndexed, leftFailed + rightFailed
}

func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "deadline") ||
		strings.Contains(msg, "timeout")
}

func (i *Ingestor) backoff(attempt int) time.Duration {
	base := float64(i.baseDelay) * float64(int(1)<<attempt)
	jitter := rand.Float64() * 0.2 * base
	return time.Duration(base + jitter)
}
