package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopchat/internal/domain/entity"
)

type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestClassifier(llm *fakeLLM, kv *fakeKV) *Classifier {
	return NewClassifier(llm, kv, NewKeywordMappings(), zerolog.Nop())
}

const productIntentJSON = `{
	"is_product_query": true,
	"search_keywords": "vegan lipstick",
	"product_types": ["lipstick"],
	"advice": "Looking for vegan lipsticks! Here are some great options.",
	"requested_product_count": 1,
	"ai_understanding": "product query for vegan lipstick",
	"usage_instructions": "Apply to lips as desired.",
	"price_filter": null,
	"sort_by_price": false,
	"vendor": "",
	"attributes": ["vegan"]
}`

func TestClassifyParsesPlainJSON(t *testing.T) {
	llm := &fakeLLM{response: productIntentJSON}
	c := newTestClassifier(llm, newFakeKV())

	intent := c.Classify(context.Background(), "find me a vegan lipstick", nil)

	assert.True(t, intent.IsProductQuery)
	assert.Equal(t, "vegan lipstick", intent.SearchKeywords)
	assert.Equal(t, []string{"lipstick"}, intent.ProductTypes)
	assert.Equal(t, 1, intent.RequestedProductCount)
}

func TestClassifyStripsCodeFence(t *testing.T) {
	llm := &fakeLLM{response: "```json\n" + productIntentJSON + "\n```"}
	c := newTestClassifier(llm, newFakeKV())

	intent := c.Classify(context.Background(), "find me a vegan lipstick", nil)
	assert.True(t, intent.IsProductQuery)
}

func TestClassifySlicesBracesFromProse(t *testing.T) {
	llm := &fakeLLM{response: "Sure, here is the analysis you asked for: " + productIntentJSON + " hope that helps!"}
	c := newTestClassifier(llm, newFakeKV())

	intent := c.Classify(context.Background(), "find me a vegan lipstick", nil)
	assert.True(t, intent.IsProductQuery)
}

func TestClassifyAcceptsNumericPriceFilter(t *testing.T) {
	llm := &fakeLLM{response: `{
		"is_product_query": true,
		"search_keywords": "serum",
		"product_types": ["serum"],
		"advice": "Here are serums under $50.",
		"requested_product_count": 1,
		"ai_understanding": "product query",
		"price_filter": 50
	}`}
	c := newTestClassifier(llm, newFakeKV())

	intent := c.Classify(context.Background(), "serum under $50", nil)
	require.NotNil(t, intent.PriceFilter)
	assert.InDelta(t, 50, intent.PriceFilter.MaxPrice, 0.001)
	assert.Equal(t, "USD", intent.PriceFilter.Currency)
}

func TestClassifyFallsBackToHeuristicsOnModelError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model unavailable")}
	c := newTestClassifier(llm, newFakeKV())

	intent := c.Classify(context.Background(), "find me a vegan lipstick", nil)

	// Heuristic path still recognizes the product query.
	assert.True(t, intent.IsProductQuery)
	assert.Contains(t, intent.ProductTypes, "lipstick")
}

func TestClassifyFallsBackToHeuristicsOnGarbageOutput(t *testing.T) {
	llm := &fakeLLM{response: "I cannot answer that."}
	c := newTestClassifier(llm, newFakeKV())

	intent := c.Classify(context.Background(), "what is skincare?", nil)
	assert.False(t, intent.IsProductQuery)
	assert.Equal(t, "general question", intent.AIUnderstanding)
}

func TestClassifyComboDefaultsTypes(t *testing.T) {
	llm := &fakeLLM{response: `{
		"is_product_query": true,
		"search_keywords": "skincare set",
		"product_types": [],
		"advice": "Looking for a skincare set!",
		"requested_product_count": 1,
		"ai_understanding": "product query for a skincare set"
	}`}
	c := newTestClassifier(llm, newFakeKV())

	intent := c.Classify(context.Background(), "I need a skincare set", nil)

	assert.True(t, intent.IsComboSetQuery)
	assert.Equal(t, seedComboTypes, intent.ProductTypes)
	assert.Equal(t, len(seedComboTypes), intent.RequestedProductCount)
}

func TestClassifyPromptIncludesHistoryTail(t *testing.T) {
	llm := &fakeLLM{response: productIntentJSON}
	c := newTestClassifier(llm, newFakeKV())

	var history entity.ChatHistory
	for i := 0; i < 5; i++ {
		history = history.AppendTurn("question", "answer")
	}
	c.Classify(context.Background(), "and a toner?", history)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], `User Query: "and a toner?"`)
	assert.Contains(t, llm.prompts[0], "Chat History:")
}

func TestClassifyUsesCachedBasePrompt(t *testing.T) {
	kv := newFakeKV()
	kv.data[entity.BaseSystemPromptKey] = "CUSTOM PROMPT"
	llm := &fakeLLM{response: productIntentJSON}
	c := newTestClassifier(llm, kv)

	c.Classify(context.Background(), "find me a vegan lipstick", nil)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "CUSTOM PROMPT")
	assert.NotContains(t, llm.prompts[0], "Analyze the user query and provided chat history")
}

func TestClassifyServesKnowledgebaseEntry(t *testing.T) {
	kv := newFakeKV()
	entry := entity.KnowledgebaseEntry{Answer: "Skincare is a routine of caring for your skin.", Confidence: 0.9}
	raw, err := json.Marshal(entry)
	require.NoError(t, err)
	kv.data[knowledgebaseKey("what is skincare?")] = string(raw)

	llm := &fakeLLM{response: productIntentJSON}
	c := newTestClassifier(llm, kv)

	intent := c.Classify(context.Background(), "what is skincare?", nil)

	assert.Empty(t, llm.prompts, "knowledgebase hits skip the model")
	assert.False(t, intent.IsProductQuery)
	assert.Equal(t, entry.Answer, intent.Advice)
}

func TestClassifyIgnoresLowConfidenceKnowledgebaseEntry(t *testing.T) {
	kv := newFakeKV()
	entry := entity.KnowledgebaseEntry{Answer: "Maybe this.", Confidence: 0.4}
	raw, err := json.Marshal(entry)
	require.NoError(t, err)
	kv.data[knowledgebaseKey("what is skincare?")] = string(raw)

	llm := &fakeLLM{response: productIntentJSON}
	c := newTestClassifier(llm, kv)

	c.Classify(context.Background(), "what is skincare?", nil)
	assert.NotEmpty(t, llm.prompts)
}

func TestClassifyRepairsBareKeysAndSmartQuotes(t *testing.T) {
	llm := &fakeLLM{response: "{is_product_query: true, search_keywords: “serum”, product_types: [\"serum\"], advice: \"Serums coming up.\", requested_product_count: 1, ai_understanding: \"product query\"}"}
	c := newTestClassifier(llm, newFakeKV())

	intent := c.Classify(context.Background(), "find me a serum", nil)
	assert.True(t, intent.IsProductQuery)
	assert.Equal(t, "serum", intent.SearchKeywords)
}

func TestClassifyAlwaysReturnsCompleteIntent(t *testing.T) {
	cases := []struct {
		name  string
		llm   *fakeLLM
		query string
	}{
		{
			// Parsed path with every optional field omitted.
			name:  "sparse model JSON",
			llm:   &fakeLLM{response: `{"is_product_query": true, "ai_understanding": "product query", "search_keywords": "serum"}`},
			query: "find me a serum",
		},
		{
			name:  "heuristic fallback",
			llm:   &fakeLLM{err: errors.New("model unavailable")},
			query: "what is skincare?",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClassifier(tc.llm, newFakeKV())
			intent := c.Classify(context.Background(), tc.query, nil)

			assert.NotNil(t, intent.ProductTypes)
			assert.NotNil(t, intent.Attributes)
			assert.NotNil(t, intent.SuggestedFollowUps)
			assert.NotEmpty(t, intent.AIUnderstanding)
			assert.NotEmpty(t, intent.QueryLanguage)
			assert.GreaterOrEqual(t, intent.RequestedProductCount, 0)
		})
	}
}
