package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"shopchat/internal/domain/entity"
	"shopchat/internal/domain/repository"
)

const (
	SuggestionTypeInitial    = "initial"
	SuggestionTypeContextual = "contextual"
)

var initialFallbackQuestions = []string{
	"What's the best moisturizer for dry skin?",
	"Can you recommend a sulfate-free shampoo?",
	"Show me vegan lipsticks under $20.",
	"Are there any products for sensitive skin?",
}

var contextualFallbackQuestions = []string{
	"What other products do you recommend?",
	"Tell me more about the first product.",
	"Are there any special offers currently?",
}

const initialQuestionsPrompt = `You are an AI assistant for a beauty products e-commerce site.
Your task is to generate exactly 4 diverse and engaging sample questions that a new user might ask.
These questions should cover a range of common user intents, such as:
- Seeking product recommendations for specific skin types or concerns (e.g., "best moisturizer for dry skin", "products for acne").
- Asking about product attributes (e.g., "vegan lipsticks", "sulfate-free shampoo").
- Inquiring about product categories or sets (e.g., "skincare sets", "organic hair care").
- Requesting general beauty advice or tips.
- Price-related queries (e.g., "lipsticks under $20").

Please ensure the questions are concise, user-friendly, and sound natural.
Return ONLY a valid JSON array of 4 strings, where each string is a question.
Example format:
["What's a good serum for anti-aging?", "Show me cruelty-free foundations.", "Any recommendations for oily skin cleansers?", "What are popular gift sets?"]`

const contextualQuestionsPromptFormat = `You are an AI assistant for a beauty products e-commerce site.
Analyze the following recent conversation history:
--- START OF CONVERSATION HISTORY ---
%s
--- END OF CONVERSATION HISTORY ---

Based on this conversation, generate exactly 3 distinct, relevant, and concise follow-up questions that the user might ask next to continue the conversation productively or explore related topics.
The questions should be natural and encourage further interaction. Strictly avoid generating questions about ratings, trials, sizing, and not related to beauty products and wellness.
Avoid questions that have already been clearly answered or are too generic if the context is specific.

Return ONLY a valid JSON array of 3 strings, where each string is a question.
Example format:
["Can you tell me more about its ingredients?", "Are there other shades available?", "What's the return policy for this item?"]`

// QuestionSuggester produces conversation starters and follow-up
// prompts for the chat widget.
type QuestionSuggester struct {
	llm repository.LLMProvider
	log zerolog.Logger
}

func NewQuestionSuggester(llm repository.LLMProvider, log zerolog.Logger) *QuestionSuggester {
	return &QuestionSuggester{llm: llm, log: log}
}

// Suggest generates questions of the requested type. Model failures
// degrade to the static fallback set, never to an error.
func (s *QuestionSuggester) Suggest(ctx context.Context, req entity.SuggestedQuestionsRequest) entity.SuggestedQuestionsResponse {
	suggestionType := req.Type
	if suggestionType != SuggestionTypeContextual || len(req.ConversationHistory) == 0 {
		suggestionType = SuggestionTypeInitial
	}

	var prompt string
	var expected int
	var fallback []string
	if suggestionType == SuggestionTypeContextual {
		prompt = fmt.Sprintf(contextualQuestionsPromptFormat, formatHistory(req.ConversationHistory))
		expected = 3
		fallback = contextualFallbackQuestions
	} else {
		prompt = initialQuestionsPrompt
		expected = 4
		fallback = initialFallbackQuestions
	}

	raw, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		s.log.Error().Err(err).Str("type", suggestionType).Msg("question generation failed, serving fallback")
		return entity.SuggestedQuestionsResponse{Questions: fallback}
	}

	questions, err := parseQuestionList(raw, expected)
	if err != nil {
		s.log.Error().Err(err).Str("type", suggestionType).Str("raw", truncate(raw, 200)).Msg("question list unparseable, serving fallback")
		return entity.SuggestedQuestionsResponse{Questions: fallback}
	}
	return entity.SuggestedQuestionsResponse{Questions: questions}
}

func formatHistory(history entity.ChatHistory) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		speaker := "Assistant"
		if msg.NormalizedRole() == entity.RoleUser {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+msg.Body())
	}
	return strings.Join(lines, "\n")
}

func parseQuestionList(raw string, expected int) ([]string, error) {
	cleaned := strings.TrimSpace(raw)
	if m := fencedJSONPattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}

	var questions []string
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, fmt.Errorf("decode question list: %w", err)
	}
	if len(questions) != expected {
		return nil, fmt.Errorf("expected %d questions, got %d", expected, len(questions))
	}
	for _, q := range questions {
		if strings.TrimSpace(q) == "" {
			return nil, fmt.Errorf("question list contains an empty entry")
		}
	}
	return questions, nil
}
