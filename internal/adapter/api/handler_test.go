package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopchat/internal/domain/entity"
	"shopchat/internal/usecase"
)

type stubLimiter struct {
	allowed bool
}

func (s *stubLimiter) Admit(context.Context, string) (entity.AdmitResult, error) {
	return entity.AdmitResult{Allowed: s.allowed, Limit: 10, Remaining: 3}, nil
}

type stubLLM struct {
	response string
}

func (s *stubLLM) Generate(context.Context, string) (string, error) {
	return s.response, nil
}

type stubKV struct {
	data map[string]string
}

func (s *stubKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *stubKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.data[key] = value
	return nil
}

type stubIndex struct {
	matches []entity.SearchMatch
}

func (s *stubIndex) Query(context.Context, string, int) ([]entity.SearchMatch, error) {
	return s.matches, nil
}

func (s *stubIndex) Upsert(context.Context, []entity.ProductRecord) error { return nil }

type stubCatalog struct{}

func (stubCatalog) FetchProducts(context.Context, string, int, string) ([]entity.ProductRecord, entity.PageInfo, error) {
	return nil, entity.PageInfo{}, nil
}

const stubIntentJSON = `{
	"is_product_query": true,
	"search_keywords": "vegan lipstick",
	"product_types": ["lipstick"],
	"advice": "Looking for vegan lipsticks!",
	"requested_product_count": 1,
	"ai_understanding": "product query for vegan lipstick",
	"usage_instructions": "Apply to lips."
}`

type testApp struct {
	app     *fiber.App
	limiter *stubLimiter
	llm     *stubLLM
}

func newTestApp() *testApp {
	log := zerolog.Nop()
	limiter := &stubLimiter{allowed: true}
	llm := &stubLLM{response: stubIntentJSON}
	kv := &stubKV{data: make(map[string]string)}
	index := &stubIndex{matches: []entity.SearchMatch{{
		ID:    "1",
		Score: 0.9,
		Record: entity.ProductRecord{
			ID:    "1",
			Title: "Vegan Lipstick",
			Price: "250.00",
		},
	}}}

	mappings := usecase.NewKeywordMappings()
	orch := usecase.NewOrchestrator(
		limiter,
		usecase.NewGibberishFilter(log),
		usecase.NewClassifier(llm, kv, mappings, log),
		usecase.NewIntentValidator(log),
		usecase.NewRetriever(index, stubCatalog{}, mappings, 0.55, 20, time.Second, log),
		usecase.NewHistoryStore(kv, 10, time.Minute, time.Hour, 10, log),
		usecase.NewAssembler(),
		nil, 0,
		log,
	)
	suggester := usecase.NewQuestionSuggester(llm, log)
	ingestor := usecase.NewIngestor(stubCatalog{}, index, mappings, log)

	app := fiber.New()
	SetupRouter(app, NewChatHandler(orch, suggester, ingestor, "anonymous", log))
	return &testApp{app: app, limiter: limiter, llm: llm}
}

func postJSON(t *testing.T, app *fiber.App, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, payload
}

func TestChatEndpointReturnsProductCard(t *testing.T) {
	ta := newTestApp()

	res, body := postJSON(t, ta.app, "/v1/chat", entity.ChatRequest{Query: "find me a vegan lipstick"}, map[string]string{
		"X-User-Id": "user-1",
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var resp entity.ChatResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.ProductCard)
	assert.Equal(t, "Vegan Lipstick", resp.ProductCard.Title)
	assert.True(t, resp.IsProductQuery)
	assert.Len(t, resp.History, 2)
}

func TestChatEndpointRejectsEmptyQuery(t *testing.T) {
	ta := newTestApp()

	res, _ := postJSON(t, ta.app, "/v1/chat", entity.ChatRequest{Query: "  "}, nil)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestChatEndpointRateLimit(t *testing.T) {
	ta := newTestApp()
	ta.limiter.allowed = false

	res, body := postJSON(t, ta.app, "/v1/chat", entity.ChatRequest{Query: "hello"}, nil)
	assert.Equal(t, fiber.StatusTooManyRequests, res.StatusCode)
	assert.Equal(t, "Too Many Requests", string(body))
	assert.Equal(t, "10", res.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "3", res.Header.Get("X-RateLimit-Remaining"))
}

func TestSuggestedQuestionsEndpointInitial(t *testing.T) {
	ta := newTestApp()
	ta.llm.response = `["Q1?", "Q2?", "Q3?", "Q4?"]`

	res, body := postJSON(t, ta.app, "/v1/chat/suggested-questions", entity.SuggestedQuestionsRequest{Type: "initial"}, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var resp entity.SuggestedQuestionsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Len(t, resp.Questions, 4)
}

func TestSuggestedQuestionsEndpointFallsBack(t *testing.T) {
	ta := newTestApp()
	ta.llm.response = "not json at all"

	res, body := postJSON(t, ta.app, "/v1/chat/suggested-questions", entity.SuggestedQuestionsRequest{Type: "initial"}, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var resp entity.SuggestedQuestionsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Questions, 4)
	assert.Contains(t, resp.Questions[0], "moisturizer")
}

func TestSyncProductsEndpoint(t *testing.T) {
	ta := newTestApp()

	res, body := postJSON(t, ta.app, "/v1/sync-products", fiber.Map{}, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var result usecase.SyncResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Zero(t, result.Failed)
}
