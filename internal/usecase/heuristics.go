package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"shopchat/internal/domain/entity"
)

// Heuristic classification used when the model is unavailable or its
// answer cannot be parsed. Pattern lists mirror the catalog's domain.

var fictionalTerms = []string{"unobtainium", "unicorn", "dragon", "stardust", "mythril", "elixir", "phoenix"}

var (
	knownTypePattern      = regexp.MustCompile(`(?i)(lipstick|moisturizer|serum|sunscreen|mascara|cleanser|toner|set|combo)`)
	typeExtractPattern    = regexp.MustCompile(`(?i)lipstick|moisturizer|serum|sunscreen|mascara|cleanser|toner`)
	attributePattern      = regexp.MustCompile(`(?i)vegan|cruelty-free|paraben-free`)
	keywordExtractPattern = regexp.MustCompile(`(?i)vegan|cruelty-free|cheap|lipstick|moisturizer|serum|sunscreen|mascara|cleanser|toner`)
	vendorPattern         = regexp.MustCompile(`(?i)guinot|clinique`)
	pricePattern          = regexp.MustCompile(`(?i)(under|below|less than|around|about)\s*\$?(\d+(\.\d+)?)`)
	listPattern           = regexp.MustCompile(`(?i)show me|any good|what are|recommend some|list of`)
	cheapPattern          = regexp.MustCompile(`(?i)cheap|cheapest`)
	followUpPattern       = regexp.MustCompile(`(?i)\b(part of a kit|is that|does it|are they)\b`)
	priorProductPattern   = regexp.MustCompile(`(?i)\b(recommend|products?|find|show|best-selling|serum|eye cream|mascara|skincare|lipstick|sunscreen|cleanser|toner)\b`)
	ingredientPattern     = regexp.MustCompile(`(?i)retinol|paraben|vegan`)
	comparisonPattern     = regexp.MustCompile(`(?i)vs|compare`)
)

// ClassifyHeuristically approximates the model's JSON answer from
// regular expressions over the query text.
func ClassifyHeuristically(query string, history entity.ChatHistory) entity.Intent {
	normalized := strings.ToLower(strings.TrimSpace(query))

	isProduct := knownTypePattern.MatchString(normalized)
	isFictional := looksFictional(normalized)
	isClarification := looksLikeFollowUp(normalized, history)

	intent := entity.Intent{
		IsProductQuery:          isProduct && !isFictional && !isClarification,
		PriceFilter:             extractPriceFilter(normalized),
		SortByPrice:             cheapPattern.MatchString(normalized),
		IsComboSetQuery:         strings.Contains(normalized, "set") || strings.Contains(normalized, "combo"),
		IsFictionalProductQuery: isFictional,
		IsClarificationNeeded:   isClarification,
		IsIngredientQuery:       ingredientPattern.MatchString(normalized),
		IsComparisonQuery:       comparisonPattern.MatchString(normalized),
		QueryLanguage:           "en",
	}

	switch {
	case isFictional:
		intent.AIUnderstanding = "query for fictional product"
		intent.ResponseConfidence = 0.3
		intent.Advice = "That product doesn't appear to be real. If you're looking for something with specific benefits, I can help with that!"
	case isClarification:
		intent.AIUnderstanding = "follow-up clarification"
		intent.ResponseConfidence = 0.7
		intent.Advice = "Please specify the product or brand you're asking about."
	case isProduct:
		intent.AIUnderstanding = "product query"
		intent.ResponseConfidence = 0.9
	default:
		intent.AIUnderstanding = "general question"
		intent.ResponseConfidence = 0.5
		intent.Advice = "Sorry, I had trouble understanding your request."
	}

	if !intent.IsProductQuery {
		intent.FillDefaults()
		return intent
	}

	intent.SearchKeywords = strings.Join(dedupe(lowerAll(keywordExtractPattern.FindAllString(normalized, -1))), " ")
	intent.ProductTypes = dedupe(lowerAll(typeExtractPattern.FindAllString(normalized, -1)))
	intent.Attributes = dedupe(lowerAll(attributePattern.FindAllString(normalized, -1)))
	if v := vendorPattern.FindString(normalized); v != "" {
		intent.Vendor = v
	}

	switch {
	case listPattern.MatchString(normalized):
		intent.RequestedProductCount = 10
	case strings.Contains(normalized, "set"):
		intent.RequestedProductCount = 3
	case strings.Contains(normalized, "combo") || strings.Contains(normalized, "and"):
		intent.RequestedProductCount = 2
	default:
		intent.RequestedProductCount = 1
	}

	switch {
	case containsString(intent.ProductTypes, "serum"):
		intent.UsageInstructions = "Apply to clean skin before moisturizer."
	case containsString(intent.ProductTypes, "sunscreen"):
		intent.UsageInstructions = "Apply generously 15 minutes before sun exposure."
	default:
		intent.UsageInstructions = "Apply to clean skin."
	}

	if intent.Advice == "" {
		intent.Advice = "Let me find some options for you."
	}
	intent.SuggestedFollowUps = []string{"Any specific brands?", "Want vegan options?"}
	intent.FillDefaults()
	return intent
}

func looksFictional(normalized string) bool {
	for _, term := range fictionalTerms {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

func looksLikeFollowUp(normalized string, history entity.ChatHistory) bool {
	if !followUpPattern.MatchString(normalized) {
		return false
	}
	for _, msg := range history.Tail(4) {
		if msg.NormalizedRole() == entity.RoleUser && priorProductPattern.MatchString(strings.ToLower(msg.Body())) {
			return true
		}
	}
	return false
}

func extractPriceFilter(normalized string) *entity.PriceFilter {
	m := pricePattern.FindStringSubmatch(normalized)
	if m == nil {
		return nil
	}
	price, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil
	}
	return &entity.PriceFilter{MaxPrice: price, Currency: "USD"}
}

func lowerAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}

func containsString(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
