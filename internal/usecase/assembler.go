package usecase

import (
	"regexp"
	"strings"

	"shopchat/internal/domain/entity"
)

// Assembler shapes the final chat response: merges advice with usage
// instructions and search notes, rewrites negative phrasing, and slots
// product cards into the right field.
type Assembler struct{}

func NewAssembler() *Assembler {
	return &Assembler{}
}

func (a *Assembler) Assemble(intent entity.Intent, cards []entity.ProductCard, searchNote string, history entity.ChatHistory) entity.ChatResponse {
	advice := intent.Advice
	if intent.IsProductQuery {
		usage := intent.UsageInstructions
		if usage == "" {
			usage = entity.DefaultUsageInstructions
		}
		advice = strings.TrimSpace(advice) + "\n\n" + usage + searchNote
	}

	resp := entity.ChatResponse{
		Advice:                  RewriteNegativePhrasing(strings.TrimSpace(advice)),
		IsProductQuery:          intent.IsProductQuery,
		AIUnderstanding:         intent.AIUnderstanding,
		IsFictionalProductQuery: intent.IsFictionalProductQuery,
		IsClarificationNeeded:   intent.IsClarificationNeeded,
		History:                 history,
	}

	switch {
	case len(cards) == 1:
		card := cards[0]
		resp.ProductCard = &card
	case len(cards) > 1:
		resp.ComplementaryProducts = cards
	}
	return resp
}

type rewriteRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Ordered rewrites that turn apologies and dead ends into forward
// suggestions. Specific phrases come before the catch-alls.
var rewriteRules = []rewriteRule{
	{regexp.MustCompile(`(?i)\bI don['’]t have\b.*?\.`), "Here are some great alternatives!"},
	{regexp.MustCompile(`(?i)\bI couldn['’]t find specific products matching your request\b[.,]?`), "While I couldn't find that exact item, perhaps these related products might interest you:"},
	{regexp.MustCompile(`(?i)\bI couldn['’]t find a specific\b.*?\.`), "While I couldn't find that specific item, here are some other options you might like:"},
	{regexp.MustCompile(`(?i)\bI couldn['’]t find an exact match\b[.,]?`), "While I couldn't find an exact match, here are some related suggestions:"},
	{regexp.MustCompile(`(?i)\bI couldn['’]t find\b.*?\.`), "While I couldn't find that, here are some other options:"},
	{regexp.MustCompile(`(?i)\bI apologize that my previous responses? haven['’]t been helpful\b[.,]?`), "Let's find exactly what you need. To clarify,"},
	{regexp.MustCompile(`(?i)\bI apologize that the previous suggestion wasn['’]t suitable\b[.,]?`), "Okay, let's find a better match. To clarify,"},
	{regexp.MustCompile(`(?i)\bI apologize, but\b`), "Certainly, let's try this:"},
	{regexp.MustCompile(`(?i)\bMy apologies for any confusion\b[.,]?`), "Let me clarify that for you."},
}

const alternativesPrefix = "Here are some great alternatives! "

// RewriteNegativePhrasing replaces dead-end wording with positive
// phrasing that points at the suggestions being shown.
func RewriteNegativePhrasing(advice string) string {
	out := advice
	for _, rule := range rewriteRules {
		out = rule.pattern.ReplaceAllString(out, rule.replacement)
	}

	// Drop the alternatives prefix when the rest of the sentence is a
	// clarification rather than a recommendation.
	lower := strings.ToLower(out)
	if !strings.Contains(lower, "couldn't find") && !strings.Contains(lower, "don't have") {
		if rest, ok := strings.CutPrefix(out, alternativesPrefix); ok {
			restLower := strings.ToLower(rest)
			if strings.HasPrefix(restLower, "my responses are based on") || strings.HasPrefix(restLower, "let me clarify") {
				out = rest
			}
		}
	}
	return out
}
