package entity

// Chat message roles. Bot and Model are legacy synonyms of Assistant kept
// for compatibility with histories written by older clients.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleBot       = "bot"
	RoleModel     = "model"
)

// ChatMessage is a single conversation turn. Older payloads carry the body
// in "text", newer ones in "content"; Body resolves whichever is set.
type ChatMessage struct {
	Role    string `json:"role"`
	Text    string `json:"text,omitempty"`
	Content string `json:"content,omitempty"`
}

// Body returns the message body, preferring Content over Text.
func (m ChatMessage) Body() string {
	if m.Content != "" {
		return m.Content
	}
	return m.Text
}

// NormalizedRole maps legacy roles onto the canonical set.
func (m ChatMessage) NormalizedRole() string {
	switch m.Role {
	case RoleBot, RoleModel:
		return RoleAssistant
	case RoleSystem:
		return RoleSystem
	case RoleAssistant:
		return RoleAssistant
	default:
		return RoleUser
	}
}

// ChatHistory is an ordered, oldest-first sequence of turns.
type ChatHistory []ChatMessage

// Truncate keeps the most recent max messages, dropping the oldest.
func (h ChatHistory) Truncate(max int) ChatHistory {
	if max <= 0 || len(h) <= max {
		return h
	}
	return h[len(h)-max:]
}

// Tail returns the last n messages without copying.
func (h ChatHistory) Tail(n int) ChatHistory {
	if n <= 0 || len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}

// Normalized returns a copy with legacy roles rewritten and empty-bodied
// messages removed, suitable for feeding to the LLM.
func (h ChatHistory) Normalized() ChatHistory {
	out := make(ChatHistory, 0, len(h))
	for _, m := range h {
		body := m.Body()
		if body == "" {
			continue
		}
		out = append(out, ChatMessage{Role: m.NormalizedRole(), Content: body})
	}
	return out
}

// AppendTurn appends a user query and the assistant reply as a pair.
// The user message is skipped when the history already ends with it,
// clients commonly echo the pending query in the history they send.
func (h ChatHistory) AppendTurn(query, reply string) ChatHistory {
	out := h
	if !h.EndsWithUser(query) {
		out = append(out, ChatMessage{Role: RoleUser, Text: query})
	}
	return append(out, ChatMessage{Role: RoleBot, Text: reply})
}

// EndsWithUser reports whether the last message is a user turn with the
// given body. Used to avoid duplicating a turn the client already sent.
func (h ChatHistory) EndsWithUser(body string) bool {
	if len(h) == 0 {
		return false
	}
	last := h[len(h)-1]
	return last.NormalizedRole() == RoleUser && last.Body() == body
}
