package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shopchat/internal/domain/entity"
	"shopchat/internal/domain/repository"
)

// Orchestrator runs the full chat pipeline: admission, triage,
// classification, validation, retrieval and assembly, with history
// persisted around every turn.
type Orchestrator struct {
	limiter    repository.RateLimiter
	gibberish  *GibberishFilter
	classifier *Classifier
	validator  *IntentValidator
	retriever  *Retriever
	history    *HistoryStore
	assembler  *Assembler
	cache      repository.KeyValueStore
	cacheTTL   time.Duration
	log        zerolog.Logger
}

func NewOrchestrator(
	limiter repository.RateLimiter,
	gibberish *GibberishFilter,
	classifier *Classifier,
	validator *IntentValidator,
	retriever *Retriever,
	history *HistoryStore,
	assembler *Assembler,
	cache repository.KeyValueStore,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		limiter:    limiter,
		gibberish:  gibberish,
		classifier: classifier,
		validator:  validator,
		retriever:  retriever,
		history:    history,
		assembler:  assembler,
		cache:      cache,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

// Chat handles one turn. identity scopes rate limiting, userID scopes
// conversation history.
func (o *Orchestrator) Chat(ctx context.Context, identity, userID string, req entity.ChatRequest) (entity.ChatResponse, error) {
	admit, err := o.limiter.Admit(ctx, identity)
	if err != nil {
		return entity.ChatResponse{}, fmt.Errorf("admission check: %w", err)
	}
	if !admit.Allowed {
		return entity.ChatResponse{}, &entity.RateLimitError{Limit: admit.Limit, Remaining: admit.Remaining}
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return entity.ChatResponse{}, entity.ErrInvalidQuery
	}

	if o.gibberish.IsGibberish(query) {
		o.log.Info().Str("query", query).Msg("query flagged as gibberish, skipping model")
		resp := entity.ChatResponse{
			AIUnderstanding: GibberishUnderstanding,
			Advice:          GibberishReply,
		}
		resp.History = o.history.Save(ctx, userID, req.History.AppendTurn(query, resp.Advice))
		return resp, nil
	}

	history := o.history.Load(ctx, userID, req.History)

	if cached, ok := o.cachedResponse(ctx, userID, query); ok {
		o.log.Info().Str("user_id", userID).Msg("serving cached chat response")
		cached.History = o.history.Save(ctx, userID, history.AppendTurn(query, cached.Advice))
		return cached, nil
	}

	intent := o.classifier.Classify(ctx, query, history)
	intent = o.validator.Validate(query, intent)

	var (
		cards []entity.ProductCard
		note  string
	)
	if intent.IsProductQuery {
		cards, note = o.retriever.Retrieve(ctx, query, intent)
	}

	resp := o.assembler.Assemble(intent, cards, note, nil)
	resp.History = o.history.Save(ctx, userID, history.AppendTurn(query, resp.Advice))

	o.storeResponse(userID, query, resp)
	return resp, nil
}

func responseCacheKey(userID, query string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("resp:%s:%s", userID, hex.EncodeToString(sum[:]))
}

// cachedResponse returns a previously assembled answer for the same
// query. History is never cached, callers refresh it per turn.
func (o *Orchestrator) cachedResponse(ctx context.Context, userID, query string) (entity.ChatResponse, bool) {
	if o.cache == nil || o.cacheTTL <= 0 {
		return entity.ChatResponse{}, false
	}
	raw, found, err := o.cache.Get(ctx, responseCacheKey(userID, query))
	if err != nil {
		o.log.Warn().Err(err).Msg("response cache lookup failed")
		return entity.ChatResponse{}, false
	}
	if !found {
		return entity.ChatResponse{}, false
	}
	var resp entity.ChatResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return entity.ChatResponse{}, false
	}
	return resp, true
}

func (o *Orchestrator) storeResponse(userID, query string, resp entity.ChatResponse) {
	if o.cache == nil || o.cacheTTL <= 0 {
		return
	}
	resp.History = nil
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	// Background write, the user already has their answer.
	go func() {
		if err := o.cache.Set(context.Background(), responseCacheKey(userID, query), string(raw), o.cacheTTL); err != nil {
			o.log.Warn().Err(err).Msg("response cache store failed")
		}
	}()
}
