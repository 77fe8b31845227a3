package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"shopchat/internal/domain/entity"
	"shopchat/internal/domain/repository"
)

// HistoryStore keeps per-user conversation history in a small
// in-process LRU in front of the KV store. Writes go through to both.
type HistoryStore struct {
	kv         repository.KeyValueStore
	cache      *expirable.LRU[string, entity.ChatHistory]
	maxHistory int
	ttl        time.Duration
	log        zerolog.Logger
}

func NewHistoryStore(kv repository.KeyValueStore, cacheSize int, cacheTTL, ttl time.Duration, maxHistory int, log zerolog.Logger) *HistoryStore {
	return &HistoryStore{
		kv:         kv,
		cache:      expirable.NewLRU[string, entity.ChatHistory](cacheSize, nil, cacheTTL),
		maxHistory: maxHistory,
		ttl:        ttl,
		log:        log,
	}
}

func historyKey(userID string) string {
	return fmt.Sprintf("user:%s:chatHistory", userID)
}

// Load returns the user's history, falling back to the client-supplied
// copy when neither cache nor store has one. Cached histories are cloned
// on the way out: callers append to what they get back, and a shared
// backing array would let concurrent requests for one user write the
// same memory.
func (h *HistoryStore) Load(ctx context.Context, userID string, clientHistory entity.ChatHistory) entity.ChatHistory {
	if cached, ok := h.cache.Get(userID); ok {
		h.log.Debug().Str("user_id", userID).Str("source", "lru").Msg("chat history loaded")
		return slices.Clone(cached)
	}

	raw, found, err := h.kv.Get(ctx, historyKey(userID))
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("history lookup failed, using client history")
		return clientHistory
	}
	if !found {
		return clientHistory
	}

	var history entity.ChatHistory
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("stored history unreadable, using client history")
		return clientHistory
	}
	if len(history) > 0 {
		h.cache.Add(userID, slices.Clone(history))
	}
	h.log.Debug().Str("user_id", userID).Str("source", "redis").Msg("chat history loaded")
	return history
}

// Save truncates to the retention bound and writes through to the KV
// store and the cache. Concurrent saves for one user are last-write-wins.
func (h *HistoryStore) Save(ctx context.Context, userID string, history entity.ChatHistory) entity.ChatHistory {
	history = history.Truncate(h.maxHistory)

	raw, err := json.Marshal(history)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to encode chat history")
		return history
	}
	if err := h.kv.Set(ctx, historyKey(userID), string(raw), h.ttl); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to persist chat history")
	}
	h.cache.Add(userID, slices.Clone(history))
	return history
}
