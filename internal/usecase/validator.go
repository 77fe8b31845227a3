package usecase

import (
	"strings"

	"github.com/rs/zerolog"

	"shopchat/internal/domain/entity"
)

// IntentValidator repairs model misclassifications with a short list of
// ordered rules. Later rules see the result of earlier ones.
type IntentValidator struct {
	log zerolog.Logger
}

func NewIntentValidator(log zerolog.Logger) *IntentValidator {
	return &IntentValidator{log: log}
}

var greetingWords = []string{"hello", "hi", "hey", "thanks", "thank you", "good morning", "good afternoon", "good evening"}

var fictionalAdviceMarkers = []string{
	"fictional",
	"doesn't exist",
	"not real",
	"sounds magical but",
	"unable to find a product made from",
	"seems to be a fictional material",
}

const defaultGreetingReply = "Hi! How can I assist you today?"

func (v *IntentValidator) Validate(query string, intent entity.Intent) entity.Intent {
	lower := strings.ToLower(query)
	isGreeting := isGreetingQuery(lower, query)

	if isGreeting {
		wasProductQuery := intent.IsProductQuery ||
			strings.TrimSpace(intent.SearchKeywords) != "" ||
			len(intent.ProductTypes) > 0
		originalAdvice := intent.Advice

		intent.ClearSearchFields()
		intent.AIUnderstanding = "greeting"
		if wasProductQuery || strings.TrimSpace(originalAdvice) == "" || strings.Contains(strings.ToLower(originalAdvice), "looking for") {
			intent.Advice = defaultGreetingReply
		} else {
			intent.Advice = originalAdvice
		}
		v.log.Debug().Str("query", query).Msg("validation: greeting query normalized")
	} else if intent.IsProductQuery && !intent.HasSearchSubject() {
		// A product query with nothing to search for is not a product query.
		intent.IsProductQuery = false
		v.log.Debug().Str("query", query).Msg("validation: product query without subject demoted")
	}

	understanding := strings.ToLower(intent.AIUnderstanding)

	if strings.Contains(understanding, "follow-up clarification") || strings.Contains(understanding, "memory query") {
		if !intent.IsProductQuery {
			intent.ClearSearchFields()
		}
	}

	if strings.Contains(understanding, "conversational follow-up") && !isGreeting {
		intent.AIUnderstanding = "conversational follow-up"
		intent.ClearSearchFields()
		v.log.Debug().Str("query", query).Msg("validation: conversational follow-up preserved")
	}

	if intent.IsProductQuery && intent.Advice != "" {
		adviceLower := strings.ToLower(intent.Advice)
		for _, marker := range fictionalAdviceMarkers {
			if strings.Contains(adviceLower, marker) {
				// The advice already explains the product is fictional, so
				// keep it and just suppress the search.
				intent.ClearSearchFields()
				intent.IsFictionalProductQuery = true
				v.log.Debug().Str("query", query).Str("marker", marker).Msg("validation: fictional product detected in advice")
				break
			}
		}
	}

	return intent
}

func isGreetingQuery(lower, original string) bool {
	if len(strings.Fields(original)) > 3 {
		return false
	}
	for _, g := range greetingWords {
		if strings.Contains(lower, g) {
			return true
		}
	}
	return false
}
