package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shopchat/internal/domain/entity"
	"shopchat/internal/domain/repository"
)

// Classifier turns a raw query plus recent history into a structured
// intent. The model is asked for strict JSON; anything unparseable
// falls back to heuristic classification.
type Classifier struct {
	llm        repository.LLMProvider
	kv         repository.KeyValueStore
	mappings   *KeywordMappings
	historyLen int
	log        zerolog.Logger
}

func NewClassifier(llm repository.LLMProvider, kv repository.KeyValueStore, mappings *KeywordMappings, log zerolog.Logger) *Classifier {
	return &Classifier{
		llm:        llm,
		kv:         kv,
		mappings:   mappings,
		historyLen: 6,
		log:        log,
	}
}

var (
	fencedJSONPattern = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")
	bracedJSONPattern = regexp.MustCompile(`(?s)\{.*\}`)
	bareKeyPattern    = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	smartQuotes       = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// repairJSON fixes the two malformations the model produces most often,
// smart quotes and unquoted object keys.
func repairJSON(s string) string {
	s = smartQuotes.Replace(s)
	return bareKeyPattern.ReplaceAllString(s, `$1"$2"$3`)
}

func (c *Classifier) Classify(ctx context.Context, query string, history entity.ChatHistory) entity.Intent {
	if intent, ok := c.knowledgebaseAnswer(ctx, query); ok {
		c.log.Info().Str("query", query).Msg("answered from knowledgebase")
		return intent
	}

	prompt := c.buildPrompt(ctx, query, history)

	raw, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		c.log.Error().Err(err).Msg("intent model call failed, using heuristic classification")
		return ClassifyHeuristically(query, history)
	}

	intent, err := c.parseIntent(raw)
	if err != nil {
		c.log.Error().Err(err).Str("raw", truncate(raw, 200)).Msg("intent response unparseable, using heuristic classification")
		return ClassifyHeuristically(query, history)
	}

	c.adjustCounts(&intent, query)
	c.captureKnowledgebase(query, intent)
	return intent
}

func (c *Classifier) buildPrompt(ctx context.Context, query string, history entity.ChatHistory) string {
	base := c.basePrompt(ctx)
	turns := history.Normalized().Tail(c.historyLen)
	historyJSON, err := json.Marshal(turns)
	if err != nil {
		historyJSON = []byte("[]")
	}
	return fmt.Sprintf("%s\n\nUser Query: %q\nChat History: %s", base, query, historyJSON)
}

// basePrompt prefers the cached copy so prompt updates roll out without
// a deploy. A miss seeds the cache in the background.
func (c *Classifier) basePrompt(ctx context.Context) string {
	cached, found, err := c.kv.Get(ctx, entity.BaseSystemPromptKey)
	if err != nil {
		c.log.Error().Err(err).Msg("base prompt lookup failed, using static prompt")
		return entity.StaticBasePrompt
	}
	if found && cached != "" {
		return cached
	}

	go func() {
		if err := c.kv.Set(context.Background(), entity.BaseSystemPromptKey, entity.StaticBasePrompt, 0); err != nil {
			c.log.Error().Err(err).Msg("failed to seed base prompt cache")
		}
	}()
	return entity.StaticBasePrompt
}

const (
	knowledgebaseMinConfidence = 0.8
	knowledgebaseTTL           = 7 * 24 * time.Hour
)

func knowledgebaseKey(query string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(query))))
	return "kb:" + hex.EncodeToString(sum[:])
}

// knowledgebaseAnswer serves repeat general questions from the captured
// answer store without an LLM call.
func (c *Classifier) knowledgebaseAnswer(ctx context.Context, query string) (entity.Intent, bool) {
	raw, found, err := c.kv.Get(ctx, knowledgebaseKey(query))
	if err != nil || !found {
		return entity.Intent{}, false
	}
	var entry entity.KnowledgebaseEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return entity.Intent{}, false
	}
	if entry.Confidence < knowledgebaseMinConfidence || entry.Answer == "" {
		return entity.Intent{}, false
	}
	intent := entity.Intent{
		AIUnderstanding:    "general question",
		Advice:             entry.Answer,
		ProductTypes:       entry.ProductTypes,
		Attributes:         entry.Attributes,
		ResponseConfidence: entry.Confidence,
	}
	intent.FillDefaults()
	return intent, true
}

// captureKnowledgebase saves confident general-question answers for
// future reuse. Product queries are excluded, their answers depend on
// live inventory.
func (c *Classifier) captureKnowledgebase(query string, intent entity.Intent) {
	if intent.IsProductQuery || intent.Advice == "" {
		return
	}
	if !strings.Contains(strings.ToLower(intent.AIUnderstanding), "general question") {
		return
	}
	entry := entity.KnowledgebaseEntry{
		Answer:       intent.Advice,
		Confidence:   0.9,
		ProductTypes: intent.ProductTypes,
		Attributes:   intent.Attributes,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	go func() {
		if err := c.kv.Set(context.Background(), knowledgebaseKey(query), string(raw), knowledgebaseTTL); err != nil {
			c.log.Warn().Err(err).Msg("knowledgebase capture failed")
		}
	}()
}

type priceFilterWire struct {
	MaxPrice float64 `json:"max_price"`
	Currency string  `json:"currency"`
}

// UnmarshalJSON accepts both the documented object form and a bare
// number, which the model occasionally emits.
func (p *priceFilterWire) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		var amount float64
		if err := json.Unmarshal(data, &amount); err != nil {
			return err
		}
		p.MaxPrice = amount
		p.Currency = "USD"
		return nil
	}
	type alias priceFilterWire
	return json.Unmarshal(data, (*alias)(p))
}

type intentWire struct {
	AIUnderstanding       string           `json:"ai_understanding"`
	SearchKeywords        string           `json:"search_keywords"`
	Advice                string           `json:"advice"`
	RequestedProductCount int              `json:"requested_product_count"`
	ProductTypes          []string         `json:"product_types"`
	UsageInstructions     string           `json:"usage_instructions"`
	PriceFilter           *priceFilterWire `json:"price_filter"`
	SortByPrice           bool             `json:"sort_by_price"`
	Vendor                string           `json:"vendor"`
	Attributes            []string         `json:"attributes"`
	IsProductQuery        bool             `json:"is_product_query"`
}

func (c *Classifier) parseIntent(raw string) (entity.Intent, error) {
	jsonText := strings.TrimSpace(raw)
	if m := fencedJSONPattern.FindStringSubmatch(jsonText); m != nil {
		jsonText = strings.TrimSpace(m[1])
	} else if m := bracedJSONPattern.FindString(jsonText); m != "" {
		jsonText = m
	}

	var wire intentWire
	if err := json.Unmarshal([]byte(jsonText), &wire); err != nil {
		repaired := repairJSON(jsonText)
		if repairErr := json.Unmarshal([]byte(repaired), &wire); repairErr != nil {
			return entity.Intent{}, fmt.Errorf("decode intent JSON: %w", err)
		}
	}
	if wire.AIUnderstanding == "" || (wire.Advice == "" && !wire.IsProductQuery) {
		return entity.Intent{}, fmt.Errorf("intent JSON missing required fields")
	}

	intent := entity.Intent{
		AIUnderstanding:       wire.AIUnderstanding,
		SearchKeywords:        wire.SearchKeywords,
		Advice:                wire.Advice,
		RequestedProductCount: wire.RequestedProductCount,
		ProductTypes:          wire.ProductTypes,
		UsageInstructions:     wire.UsageInstructions,
		SortByPrice:           wire.SortByPrice,
		Vendor:                wire.Vendor,
		Attributes:            wire.Attributes,
		IsProductQuery:        wire.IsProductQuery,
	}
	if wire.PriceFilter != nil && wire.PriceFilter.MaxPrice > 0 {
		intent.PriceFilter = &entity.PriceFilter{
			MaxPrice: wire.PriceFilter.MaxPrice,
			Currency: wire.PriceFilter.Currency,
		}
	}
	intent.FillDefaults()
	return intent, nil
}

// adjustCounts reconciles the requested product count with the query
// shape after parsing.
func (c *Classifier) adjustCounts(intent *entity.Intent, query string) {
	lower := strings.ToLower(query)
	switch {
	case len(intent.ProductTypes) > 0:
		intent.RequestedProductCount = len(intent.ProductTypes)
	case strings.Contains(lower, "set") || strings.Contains(lower, "combo"):
		intent.ProductTypes = c.mappings.DefaultComboTypes()
		intent.RequestedProductCount = len(intent.ProductTypes)
		intent.IsComboSetQuery = true
	case strings.Contains(lower, "top 4 cheapest"):
		intent.RequestedProductCount = 4
	case strings.Contains(lower, "list"):
		if intent.RequestedProductCount <= 0 || intent.RequestedProductCount > 10 {
			intent.RequestedProductCount = 10
		}
	}
	if strings.Contains(lower, "set") || strings.Contains(lower, "combo") {
		intent.IsComboSetQuery = true
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
