package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shopchat/internal/domain/entity"
	"shopchat/internal/domain/repository"
)

// Search notes appended to the advice when retrieval had to degrade.
const (
	noteFallbackMethod    = "\n(Note: Searching products via alternative method due to a temporary issue with primary search.)"
	noteSearchImpaired    = "\n(Note: Product search is currently experiencing issues.)"
	noteRelatedProducts   = "\n(Sorry, we couldn't find exact matches for your request, but here are some related products you might like.)"
	noteNothingFound      = "\n(I couldn't find specific products matching your request.)"
	descDirectMatch       = "Found product related to your query."
	descRelatedSuggestion = "Related product suggestion."
)

var setTitlePattern = regexp.MustCompile(`(?i)set|kit|bundle|combo`)

// Retriever runs the tiered product search. Each tier narrows or
// broadens the query until enough products are found, with the catalog
// API as a last resort when the index itself fails.
type Retriever struct {
	index          repository.SearchIndex
	catalog        repository.CatalogAPI
	mappings       *KeywordMappings
	scoreThreshold float32
	conversionRate float64
	searchTimeout  time.Duration
	log            zerolog.Logger
}

func NewRetriever(index repository.SearchIndex, catalog repository.CatalogAPI, mappings *KeywordMappings, scoreThreshold float32, conversionRate float64, searchTimeout time.Duration, log zerolog.Logger) *Retriever {
	return &Retriever{
		index:          index,
		catalog:        catalog,
		mappings:       mappings,
		scoreThreshold: scoreThreshold,
		conversionRate: conversionRate,
		searchTimeout:  searchTimeout,
		log:            log,
	}
}

// Retrieve finds product cards for a validated product intent. The
// returned note, when non-empty, is appended to the advice.
func (r *Retriever) Retrieve(ctx context.Context, query string, intent entity.Intent) ([]entity.ProductCard, string) {
	requestedCount := intent.RequestedProductCount
	if requestedCount < 1 {
		requestedCount = 1
	}
	topK := requestedCount * 2
	if topK < 10 {
		topK = 10
	}

	lowerQuery := strings.ToLower(query)
	understanding := strings.ToLower(intent.AIUnderstanding)
	isComboOrSet := intent.IsComboSetQuery ||
		strings.Contains(lowerQuery, "set") || strings.Contains(lowerQuery, "combo") ||
		strings.Contains(understanding, "set") || strings.Contains(understanding, "combo")

	var (
		matches []entity.SearchMatch
		usedIDs = make(map[string]bool)
		note    string
		stage   = "none"
	)

	if isComboOrSet {
		comboKeywords := "set kit combo bundle " + firstNonEmpty(intent.SearchKeywords, query)
		kitLimit := topK
		if kitLimit > 3 {
			kitLimit = 3
		}
		kits, kitNote := r.queryIndex(ctx, comboKeywords, kitLimit, query, intent)
		if kitNote != "" {
			note = kitNote
		}
		for _, kit := range kits {
			if !setTitlePattern.MatchString(kit.Record.Title) {
				continue
			}
			if len(matches) >= requestedCount || usedIDs[kit.ID] {
				continue
			}
			matches = append(matches, kit)
			usedIDs[kit.ID] = true
		}
		if len(matches) > 0 {
			stage = "explicit set"
			r.log.Info().Int("kits", len(matches)).Msg("explicit set/kit products found")
		}
	}

	if len(intent.ProductTypes) > 0 && len(matches) < requestedCount {
		for _, productType := range intent.ProductTypes {
			if len(matches) >= requestedCount {
				break
			}
			keywords := componentKeywords(productType, intent.Attributes)
			results, tierNote := r.queryIndex(ctx, keywords, topK, query, intent)
			if tierNote != "" && note == "" {
				note = tierNote
			}
			if len(results) == 0 && keywords != productType {
				results, tierNote = r.queryIndex(ctx, productType, topK, query, intent)
				if tierNote != "" && note == "" {
					note = tierNote
				}
			}

			// One of each type when assembling a set, otherwise allow a
			// few picks for price-sorted queries.
			itemsToTake := 1
			if intent.SortByPrice && !(isComboOrSet && len(intent.ProductTypes) > 1) {
				itemsToTake = 4
			}
			taken := 0
			for _, res := range results {
				if taken >= itemsToTake {
					break
				}
				if usedIDs[res.ID] {
					continue
				}
				matches = append(matches, res)
				usedIDs[res.ID] = true
				taken++
			}
			r.log.Debug().Str("product_type", productType).Int("taken", taken).Msg("component search complete")
		}
		stage = "per-type"
	} else if len(matches) < requestedCount {
		if strings.TrimSpace(intent.SearchKeywords) != "" {
			results, tierNote := r.queryIndex(ctx, intent.SearchKeywords, topK, query, intent)
			if tierNote != "" {
				note = tierNote
			}
			if len(results) > 0 {
				matches = results
				stage = "model keywords"
			}
		}
		if len(matches) < requestedCount || !r.anyAboveThreshold(matches) {
			results, tierNote := r.queryIndex(ctx, query, topK, query, intent)
			if tierNote != "" && note == "" {
				note = tierNote
			}
			if len(results) > 0 {
				matches = results
				stage = "direct query"
			}
		}
	}

	if len(matches) == 0 || !r.anyAboveThreshold(matches) {
		fallbackTypes := intent.ProductTypes
		if len(fallbackTypes) == 0 {
			fallbackTypes = r.mappings.DefaultComboTypes()
		}
		keywords := make([]string, 0, len(fallbackTypes))
		for _, t := range fallbackTypes {
			keywords = append(keywords, r.mappings.TypeKeywords(t))
		}
		results, tierNote := r.queryIndex(ctx, strings.Join(keywords, " "), topK, query, intent)
		if tierNote != "" && note == "" {
			note = tierNote
		}
		if len(results) > 0 {
			matches = results
			stage = "related fallback"
			note = noteRelatedProducts
		}
	}

	cards, direct := r.buildCards(matches, requestedCount, intent, stage)
	if len(cards) > 0 && direct {
		note = ""
	}
	if len(cards) == 0 && note == "" {
		note = noteNothingFound
	}
	r.log.Info().Str("stage", stage).Int("cards", len(cards)).Msg("product retrieval finished")
	return cards, note
}

// queryIndex expands the search text, queries the index with per-call
// timeout, and applies the intent's attribute, vendor and price
// filters. On a hard index error it falls through to the catalog API.
func (r *Retriever) queryIndex(ctx context.Context, searchText string, topK int, originalQuery string, intent entity.Intent) ([]entity.SearchMatch, string) {
	if strings.TrimSpace(searchText) == "" {
		return nil, ""
	}
	expanded := r.mappings.ExpandKeywords(searchText)

	queryCtx, cancel := context.WithTimeout(ctx, r.searchTimeout)
	defer cancel()

	results, err := r.index.Query(queryCtx, expanded, topK)
	if err != nil {
		r.log.Warn().Err(err).Str("search_text", truncate(expanded, 70)).Msg("index query failed, trying catalog fallback")
		fallback, fbErr := r.catalogFallback(ctx, expanded, topK, originalQuery, intent)
		if fbErr != nil {
			r.log.Error().Err(fbErr).Msg("catalog fallback failed")
			return nil, noteSearchImpaired
		}
		return fallback, noteFallbackMethod
	}

	filtered := results[:0]
	for _, res := range results {
		if r.matchesIntent(res.Record, intent) {
			filtered = append(filtered, res)
		}
	}
	if intent.SortByPrice {
		sort.SliceStable(filtered, func(i, j int) bool {
			return entity.ParsePrice(filtered[i].Record.Price) < entity.ParsePrice(filtered[j].Record.Price)
		})
	}
	return filtered, ""
}

func (r *Retriever) matchesIntent(rec entity.ProductRecord, intent entity.Intent) bool {
	titleLower := strings.ToLower(rec.Title)

	if len(intent.Attributes) > 0 {
		tagSet := make(map[string]bool, len(rec.Tags))
		for _, t := range rec.Tags {
			tagSet[strings.ToLower(t)] = true
		}
		blob := strings.ToLower(rec.TextForBM25)
		found := false
		for _, attr := range intent.Attributes {
			a := strings.ToLower(attr)
			if tagSet[a] || strings.Contains(titleLower, a) || strings.Contains(blob, a) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if v := strings.TrimSpace(intent.Vendor); v != "" {
		if !strings.EqualFold(rec.Vendor, v) {
			return false
		}
	}

	if intent.PriceFilter != nil {
		// Catalog prices are in Pesos while the filter arrives in USD.
		limit := intent.PriceFilter.MaxPrice * r.conversionRate
		if entity.ParsePrice(rec.Price) > limit {
			return false
		}
	}
	return true
}

// catalogFallback rebuilds the search as a storefront admin query
// filter and fetches live products.
func (r *Retriever) catalogFallback(ctx context.Context, baseSearchText string, limit int, originalQuery string, intent entity.Intent) ([]entity.SearchMatch, error) {
	filter := buildCatalogFilter(baseSearchText, originalQuery, intent)
	r.log.Info().Str("filter", filter).Msg("querying catalog API as search fallback")

	products, _, err := r.catalog.FetchProducts(ctx, "", limit, filter)
	if err != nil {
		return nil, err
	}
	matches := make([]entity.SearchMatch, 0, len(products))
	for _, p := range products {
		matches = append(matches, entity.SearchMatch{
			ID: p.ID,
			// Catalog hits carry no similarity score, use a midpoint.
			Score:  0.5,
			Record: p,
		})
	}
	return matches, nil
}

func buildCatalogFilter(baseSearchText, originalQuery string, intent entity.Intent) string {
	var clauses []string
	var titleSearches []string
	var tagSearches []string

	keywordsToUse := firstNonEmpty(intent.SearchKeywords, baseSearchText)
	var keywords []string
	for _, kw := range strings.Fields(keywordsToUse) {
		if len(kw) > 2 {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) > 0 {
		parts := make([]string, len(keywords))
		for i, kw := range keywords {
			parts[i] = fmt.Sprintf("title:*%s*", kw)
		}
		titleSearches = append(titleSearches, strings.Join(parts, " OR "))
	}

	if len(intent.ProductTypes) > 0 {
		parts := make([]string, len(intent.ProductTypes))
		for i, pt := range intent.ProductTypes {
			parts[i] = fmt.Sprintf("(product_type:*%s* OR title:*%s*)", pt, pt)
		}
		titleSearches = append(titleSearches, "("+strings.Join(parts, " OR ")+")")
	}

	if len(intent.Attributes) > 0 {
		parts := make([]string, len(intent.Attributes))
		for i, attr := range intent.Attributes {
			parts[i] = fmt.Sprintf("tag:%q", strings.ToLower(attr))
		}
		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
	}

	if v := strings.TrimSpace(intent.Vendor); v != "" {
		clauses = append(clauses, fmt.Sprintf("vendor:%q", v))
	}

	lowerQuery := strings.ToLower(originalQuery)
	understanding := strings.ToLower(intent.AIUnderstanding)
	if strings.Contains(lowerQuery, "set") || strings.Contains(lowerQuery, "combo") ||
		strings.Contains(understanding, "set") || strings.Contains(understanding, "combo") {
		comboKeywords := []string{"set", "kit", "combo", "bundle"}
		titleParts := make([]string, len(comboKeywords))
		tagParts := make([]string, len(comboKeywords))
		for i, kw := range comboKeywords {
			titleParts[i] = fmt.Sprintf("title:*%s*", kw)
			tagParts[i] = "tag:" + kw
		}
		titleSearches = append(titleSearches, strings.Join(titleParts, " OR "))
		tagSearches = append(tagSearches, strings.Join(tagParts, " OR "))
	}

	combinedTitle := ""
	if len(titleSearches) > 0 {
		combinedTitle = "(" + strings.Join(titleSearches, " OR ") + ")"
	}
	switch {
	case combinedTitle != "" && len(tagSearches) > 0:
		clauses = append(clauses, "("+combinedTitle+" OR ("+strings.Join(tagSearches, " OR ")+"))")
	case combinedTitle != "":
		clauses = append(clauses, combinedTitle)
	case len(tagSearches) > 0:
		clauses = append(clauses, "("+strings.Join(tagSearches, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "status:active"
	}
	return "(" + strings.Join(clauses, " AND ") + ") AND status:active"
}

// buildCards selects up to requestedCount matches. It reports whether
// the cards are direct above-threshold hits, since below-threshold
// suggestions keep their degraded-search note.
func (r *Retriever) buildCards(matches []entity.SearchMatch, requestedCount int, intent entity.Intent, stage string) ([]entity.ProductCard, bool) {
	if len(matches) == 0 {
		return nil, false
	}
	valid := matches
	if len(valid) > requestedCount {
		valid = valid[:requestedCount]
	}
	if intent.SortByPrice {
		sort.SliceStable(valid, func(i, j int) bool {
			return entity.ParsePrice(valid[i].Record.Price) < entity.ParsePrice(valid[j].Record.Price)
		})
	}

	var cards []entity.ProductCard
	if stage != "related fallback" {
		for _, m := range valid {
			if m.Score < r.scoreThreshold {
				continue
			}
			cards = append(cards, cardFromMatch(m, descDirectMatch))
		}
	}
	if len(cards) > 0 {
		return cards, true
	}
	for _, m := range valid {
		cards = append(cards, cardFromMatch(m, descRelatedSuggestion))
	}
	return cards, false
}

func cardFromMatch(m entity.SearchMatch, description string) entity.ProductCard {
	rec := m.Record
	variant := rec.VariantID
	if variant == "" {
		variant = firstNonEmpty(rec.ID, m.ID)
	}
	return entity.ProductCard{
		Title:       rec.Title,
		Description: description,
		Price:       entity.ParsePrice(rec.Price),
		Image:       rec.ImageURL,
		LandingPage: rec.ProductURL,
		VariantID:   entity.NumericIDFromGID(variant),
	}
}

func (r *Retriever) anyAboveThreshold(matches []entity.SearchMatch) bool {
	for _, m := range matches {
		if m.Score >= r.scoreThreshold {
			return true
		}
	}
	return false
}

func componentKeywords(productType string, attributes []string) string {
	parts := []string{productType}
	for _, attr := range attributes {
		if strings.TrimSpace(attr) != "" {
			parts = append(parts, attr)
		}
	}
	return strings.Join(dedupe(strings.Fields(strings.ToLower(strings.Join(parts, " ")))), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
