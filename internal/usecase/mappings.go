package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"shopchat/internal/domain/repository"
)

// KeywordMappings holds catalog-derived vocabulary used for query
// expansion and combo defaults. Built at startup from the index and
// refreshed after each catalog sync.
type KeywordMappings struct {
	mu                sync.RWMutex
	typeToKeywords    map[string]string
	synonyms          map[string][]string
	defaultComboTypes []string
}

// seedComboTypes covers the cold-start case before any catalog data is
// indexed.
var seedComboTypes = []string{"cleanser", "moisturizer", "treatment"}

func NewKeywordMappings() *KeywordMappings {
	return &KeywordMappings{
		typeToKeywords: make(map[string]string),
		synonyms:       make(map[string][]string),
	}
}

// Build scans the index and derives type keywords and synonyms from
// product titles and tags. Failures leave the previous mappings intact.
func (m *KeywordMappings) Build(ctx context.Context, index repository.SearchIndex, log zerolog.Logger) {
	matches, err := index.Query(ctx, "all products", 1000)
	if err != nil {
		log.Error().Err(err).Msg("failed to build keyword mappings")
		return
	}
	if len(matches) == 0 {
		log.Warn().Msg("no products found for keyword mappings")
		return
	}

	typeToKeywords := make(map[string]string)
	synonyms := make(map[string][]string)
	seenTypes := make([]string, 0)

	for _, match := range matches {
		rec := match.Record
		normalizedType := rec.NormalizedType()
		if normalizedType == "" {
			continue
		}
		if _, ok := typeToKeywords[normalizedType]; !ok {
			seenTypes = append(seenTypes, normalizedType)
		}

		tags := make([]string, 0, len(rec.Tags))
		for _, t := range rec.Tags {
			tags = append(tags, strings.ToLower(strings.TrimSpace(t)))
		}

		titleWords := strings.Fields(strings.ToLower(rec.Title))
		keywords := append([]string{normalizedType}, tags...)
		if len(titleWords) > 3 {
			titleWords = titleWords[:3]
		}
		keywords = append(keywords, titleWords...)
		typeToKeywords[normalizedType] = strings.Join(keywords, " ")

		longWords := make([]string, 0)
		for _, w := range strings.Fields(strings.ToLower(rec.Title)) {
			if len(w) > 3 {
				longWords = append(longWords, w)
			}
		}
		synonyms[normalizedType] = dedupe(append(append(synonyms[normalizedType], tags...), longWords...))
	}

	combo := seenTypes
	if len(combo) > 3 {
		combo = combo[:3]
	}

	m.mu.Lock()
	m.typeToKeywords = typeToKeywords
	m.synonyms = synonyms
	m.defaultComboTypes = combo
	m.mu.Unlock()

	log.Info().
		Int("types", len(typeToKeywords)).
		Strs("default_combo_types", combo).
		Msg("keyword mappings built")
}

// ExpandKeywords appends known synonyms for any type name mentioned in
// the text.
func (m *KeywordMappings) ExpandKeywords(text string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lower := strings.ToLower(text)
	expanded := strings.Fields(lower)
	keys := make([]string, 0, len(m.synonyms))
	for key := range m.synonyms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.Contains(lower, key) {
			expanded = append(expanded, m.synonyms[key]...)
		}
	}
	return strings.Join(dedupe(expanded), " ")
}

// TypeKeywords returns the derived keywords for a product type, or the
// type itself when unknown.
func (m *KeywordMappings) TypeKeywords(productType string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if kw, ok := m.typeToKeywords[strings.ToLower(productType)]; ok {
		return kw
	}
	return productType
}

// DefaultComboTypes returns the fallback component types for set and
// combo queries.
func (m *KeywordMappings) DefaultComboTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.defaultComboTypes) > 0 {
		return append([]string(nil), m.defaultComboTypes...)
	}
	return append([]string(nil), seedComboTypes...)
}

func dedupe(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
