package entity

// ChatRequest is the body of POST /v1/chat. History is an optional
// client-supplied seed used when the server has no persisted history.
type ChatRequest struct {
	Query   string      `json:"query"`
	History ChatHistory `json:"history,omitempty"`
}

// ChatResponse is the assembled answer for one chat turn. ProductCard is
// set when exactly one product survived retrieval; ComplementaryProducts
// when more than one did; neither when the query found nothing or was not
// a product query.
type ChatResponse struct {
	Advice                  string        `json:"advice"`
	ProductCard             *ProductCard  `json:"product_card,omitempty"`
	ComplementaryProducts   []ProductCard `json:"complementary_products,omitempty"`
	IsProductQuery          bool          `json:"is_product_query"`
	AIUnderstanding         string        `json:"ai_understanding"`
	IsFictionalProductQuery bool          `json:"is_fictional_product_query"`
	IsClarificationNeeded   bool          `json:"is_clarification_needed"`
	History                 ChatHistory   `json:"history"`
}

// SuggestedQuestionsRequest is the body of POST /v1/chat/suggested-questions.
type SuggestedQuestionsRequest struct {
	Type                string      `json:"type"`
	ConversationHistory ChatHistory `json:"conversation_history,omitempty"`
}

// SuggestedQuestionsResponse carries generated follow-up questions.
type SuggestedQuestionsResponse struct {
	Questions []string `json:"questions"`
}

// AdmitResult is the rate limiter's verdict for one request.
type AdmitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
}

// KnowledgebaseEntry is a cached non-product answer, keyed by normalized
// query and consulted before spending an LLM call.
type KnowledgebaseEntry struct {
	Answer       string   `json:"answer"`
	Confidence   float64  `json:"confidence"`
	ProductTypes []string `json:"product_types,omitempty"`
	Attributes   []string `json:"attributes,omitempty"`
}
