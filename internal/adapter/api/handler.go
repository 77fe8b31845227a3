package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"shopchat/internal/domain/entity"
	"shopchat/internal/usecase"
)

type ChatHandler struct {
	orchestrator *usecase.Orchestrator
	suggester    *usecase.QuestionSuggester
	ingestor     *usecase.Ingestor
	anonymousID  string
	log          zerolog.Logger
}

func NewChatHandler(orch *usecase.Orchestrator, suggester *usecase.QuestionSuggester, ingestor *usecase.Ingestor, anonymousID string, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator: orch,
		suggester:    suggester,
		ingestor:     ingestor,
		anonymousID:  anonymousID,
		log:          log,
	}
}

// callerIdentity picks the rate-limit bucket for the request: first
// forwarded address, then the direct peer address, then the user ID.
func (h *ChatHandler) callerIdentity(c *fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if ip := c.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	return h.userID(c)
}

func (h *ChatHandler) userID(c *fiber.Ctx) string {
	if id := c.Get("X-User-Id"); id != "" {
		return id
	}
	return h.anonymousID
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req entity.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to parse request body"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid query provided"})
	}

	resp, err := h.orchestrator.Chat(c.Context(), h.callerIdentity(c), h.userID(c), req)
	if err != nil {
		var rateErr *entity.RateLimitError
		switch {
		case errors.As(err, &rateErr):
			c.Set("X-RateLimit-Limit", strconv.Itoa(rateErr.Limit))
			c.Set("X-RateLimit-Remaining", strconv.Itoa(rateErr.Remaining))
			return c.Status(fiber.StatusTooManyRequests).SendString("Too Many Requests")
		case errors.Is(err, entity.ErrInvalidQuery):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid query provided"})
		default:
			h.log.Error().Err(err).Msg("chat pipeline failed")
			return c.Status(fiber.StatusInternalServerError).JSON(errorEnvelope(err))
		}
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *ChatHandler) HandleSuggestedQuestions(c *fiber.Ctx) error {
	var req entity.SuggestedQuestionsRequest
	if err := c.BodyParser(&req); err != nil {
		// An unreadable body falls back to initial suggestions.
		req = entity.SuggestedQuestionsRequest{Type: usecase.SuggestionTypeInitial}
	}
	return c.Status(fiber.StatusOK).JSON(h.suggester.Suggest(c.Context(), req))
}

func (h *ChatHandler) HandleSyncProducts(c *fiber.Ctx) error {
	result, err := h.ingestor.Sync(c.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("catalog sync failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "Catalog sync failed",
			"result": result,
		})
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// errorEnvelope keeps the chat widget functional on server errors by
// answering in the normal response shape, with a truncated reference.
func errorEnvelope(err error) entity.ChatResponse {
	ref := err.Error()
	if len(ref) > 100 {
		ref = ref[:100]
	}
	return entity.ChatResponse{
		AIUnderstanding: "An error occurred.",
		Advice:          "Sorry, I encountered a problem processing your request. (Ref: " + ref + ")",
		History:         entity.ChatHistory{},
	}
}
