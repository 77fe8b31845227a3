package entity

import (
	"errors"
	"fmt"
)

// Standard domain errors
var (
	ErrInvalidQuery      = errors.New("invalid or empty query")
	ErrSearchUnavailable = errors.New("product search is unavailable")
	ErrLLMUnavailable    = errors.New("language model is unavailable")
)

// RateLimitError carries the budget metadata the HTTP layer exposes as
// X-RateLimit headers on a 429.
type RateLimitError struct {
	Limit     int
	Remaining int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per window", e.Limit)
}
