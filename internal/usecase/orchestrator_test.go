package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopchat/internal/domain/entity"
)

type fakeLimiter struct {
	allowed bool
	err     error
}

func (f *fakeLimiter) Admit(context.Context, string) (entity.AdmitResult, error) {
	if f.err != nil {
		return entity.AdmitResult{}, f.err
	}
	return entity.AdmitResult{Allowed: f.allowed, Limit: 10, Remaining: 5}, nil
}

type chatFixture struct {
	orchestrator *Orchestrator
	limiter      *fakeLimiter
	llm          *fakeLLM
	index        *fakeIndex
	kv           *fakeKV
}

func newChatFixture() *chatFixture {
	limiter := &fakeLimiter{allowed: true}
	llm := &fakeLLM{response: productIntentJSON}
	index := &fakeIndex{matches: []entity.SearchMatch{
		match("1", "Vegan Lipstick", "250.00", 0.9),
	}}
	kv := newFakeKV()
	log := zerolog.Nop()

	mappings := NewKeywordMappings()
	classifier := NewClassifier(llm, kv, mappings, log)
	retriever := NewRetriever(index, &fakeCatalog{}, mappings, 0.55, 20, time.Second, log)
	history := NewHistoryStore(kv, 10, time.Minute, time.Hour, 10, log)

	return &chatFixture{
		orchestrator: NewOrchestrator(
			limiter,
			NewGibberishFilter(log),
			classifier,
			NewIntentValidator(log),
			retriever,
			history,
			NewAssembler(),
			nil, 0,
			log,
		),
		limiter: limiter,
		llm:     llm,
		index:   index,
		kv:      kv,
	}
}

func TestChatProductQueryEndToEnd(t *testing.T) {
	fx := newChatFixture()

	resp, err := fx.orchestrator.Chat(context.Background(), "203.0.113.7", "user-1", entity.ChatRequest{
		Query: "find me a vegan lipstick",
	})
	require.NoError(t, err)

	assert.True(t, resp.IsProductQuery)
	require.NotNil(t, resp.ProductCard)
	assert.Equal(t, "Vegan Lipstick", resp.ProductCard.Title)
	assert.Contains(t, resp.Advice, "great options")
	require.Len(t, resp.History, 2)
	assert.Equal(t, entity.RoleUser, resp.History[0].Role)
	assert.Equal(t, entity.RoleBot, resp.History[1].Role)
}

func TestChatRateLimited(t *testing.T) {
	fx := newChatFixture()
	fx.limiter.allowed = false

	_, err := fx.orchestrator.Chat(context.Background(), "203.0.113.7", "user-1", entity.ChatRequest{
		Query: "hello",
	})

	var rateErr *entity.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 10, rateErr.Limit)
	// The model must never be consulted for rejected requests.
	assert.Empty(t, fx.llm.prompts)
}

func TestChatEmptyQueryRejected(t *testing.T) {
	fx := newChatFixture()

	_, err := fx.orchestrator.Chat(context.Background(), "203.0.113.7", "user-1", entity.ChatRequest{
		Query: "   ",
	})
	assert.ErrorIs(t, err, entity.ErrInvalidQuery)
}

func TestChatGibberishShortCircuitsModel(t *testing.T) {
	fx := newChatFixture()

	resp, err := fx.orchestrator.Chat(context.Background(), "203.0.113.7", "user-1", entity.ChatRequest{
		Query: "asdasdasd",
	})
	require.NoError(t, err)

	assert.Equal(t, GibberishReply, resp.Advice)
	assert.Empty(t, fx.llm.prompts)
	// The turn is still recorded.
	require.Len(t, resp.History, 2)
	assert.Equal(t, "asdasdasd", resp.History[0].Text)
}

func TestChatGreetingSkipsSearch(t *testing.T) {
	fx := newChatFixture()
	fx.llm.response = `{
		"is_product_query": false,
		"search_keywords": "",
		"product_types": [],
		"advice": "Hi! How can I assist you today?",
		"requested_product_count": 0,
		"ai_understanding": "greeting"
	}`

	resp, err := fx.orchestrator.Chat(context.Background(), "203.0.113.7", "user-1", entity.ChatRequest{
		Query: "hello",
	})
	require.NoError(t, err)

	assert.False(t, resp.IsProductQuery)
	assert.Nil(t, resp.ProductCard)
	assert.Empty(t, fx.index.queries)
	assert.Equal(t, "Hi! How can I assist you today?", resp.Advice)
}

func TestChatHistoryAccumulatesAcrossTurns(t *testing.T) {
	fx := newChatFixture()
	ctx := context.Background()

	_, err := fx.orchestrator.Chat(ctx, "203.0.113.7", "user-1", entity.ChatRequest{Query: "find me a vegan lipstick"})
	require.NoError(t, err)

	resp, err := fx.orchestrator.Chat(ctx, "203.0.113.7", "user-1", entity.ChatRequest{Query: "find me a vegan lipstick please"})
	require.NoError(t, err)

	require.Len(t, resp.History, 4)
	assert.Equal(t, "find me a vegan lipstick", resp.History[0].Text)
}

func TestChatAdmissionErrorSurfaces(t *testing.T) {
	fx := newChatFixture()
	fx.limiter.err = errors.New("redis down")

	_, err := fx.orchestrator.Chat(context.Background(), "203.0.113.7", "user-1", entity.ChatRequest{Query: "hello"})
	assert.Error(t, err)
}

func TestChatResponseCacheServesRepeatQuery(t *testing.T) {
	fx := newChatFixture()
	cacheKV := newFakeKV()
	fx.orchestrator.cache = cacheKV
	fx.orchestrator.cacheTTL = time.Hour
	ctx := context.Background()

	_, err := fx.orchestrator.Chat(ctx, "203.0.113.7", "user-1", entity.ChatRequest{Query: "find me a vegan lipstick"})
	require.NoError(t, err)

	// The cache write is asynchronous.
	require.Eventually(t, func() bool {
		_, found, _ := cacheKV.Get(ctx, responseCacheKey("user-1", "find me a vegan lipstick"))
		return found
	}, time.Second, 10*time.Millisecond)

	firstCalls := len(fx.llm.prompts)
	resp, err := fx.orchestrator.Chat(ctx, "203.0.113.7", "user-1", entity.ChatRequest{Query: "find me a vegan lipstick"})
	require.NoError(t, err)

	assert.Len(t, fx.llm.prompts, firstCalls, "cached response should not call the model")
	require.NotNil(t, resp.ProductCard)
	require.Len(t, resp.History, 4)
}
