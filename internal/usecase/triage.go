package usecase

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// GibberishFilter screens queries cheaply before any model call. The
// rules are ordered and the first match wins.
type GibberishFilter struct {
	log zerolog.Logger
}

func NewGibberishFilter(log zerolog.Logger) *GibberishFilter {
	return &GibberishFilter{log: log}
}

var commonShortWords = map[string]bool{
	"hi": true, "hey": true, "ok": true, "yes": true, "no": true,
	"bye": true, "faq": true, "gel": true, "oil": true, "kit": true,
	"men": true, "man": true,
}

var (
	vowelPattern        = regexp.MustCompile(`[aeiou]`)
	vowelYPattern       = regexp.MustCompile(`[aeiouy]`)
	numericPattern      = regexp.MustCompile(`^\d+$`)
	acronymPattern      = regexp.MustCompile(`^[A-Z0-9]+$`)
	alnumPattern        = regexp.MustCompile(`[a-z0-9]`)
	letterPattern       = regexp.MustCompile(`[a-z]`)
	symbolPattern       = regexp.MustCompile("[!@#$%^&*(),.?\":{}|<>_+\\-=\\[\\]\\\\';/~`]")
	trailingPunctuation = regexp.MustCompile(`[;,.!?]$`)
)

// IsGibberish reports whether the query looks like keyboard noise
// rather than a real message. Lengths and slices are in runes, not
// bytes, so accented text is measured per character.
func (f *GibberishFilter) IsGibberish(query string) bool {
	lower := strings.ToLower(query)
	runes := []rune(lower)
	n := len(runes)
	if n == 0 {
		return true
	}

	// Rule 1: very short, no vowels, not a known short word.
	if n <= 4 && !commonShortWords[lower] && !vowelPattern.MatchString(lower) {
		f.log.Debug().Str("query", query).Int("rule", 1).Msg("gibberish: short with no vowels")
		return true
	}

	// Rule 2: 4 to 8 chars with no vowels at all (y included), unless
	// numeric or acronym-like.
	if n >= 4 && n <= 8 {
		core := trailingPunctuation.ReplaceAllString(lower, "")
		if !vowelYPattern.MatchString(core) && !numericPattern.MatchString(core) && !acronymPattern.MatchString(query) {
			f.log.Debug().Str("query", query).Int("rule", 2).Msg("gibberish: no vowels, not numeric or acronym")
			return true
		}
	}

	// Rule 3: low alphanumeric ratio.
	if n > 3 {
		alnum := len(alnumPattern.FindAllString(lower, -1))
		if float64(alnum)/float64(n) < 0.3 {
			f.log.Debug().Str("query", query).Int("rule", 3).Msg("gibberish: low alphanumeric ratio")
			return true
		}
	}

	// Rule 4: three or more identical consecutive characters.
	if hasTripleRun(runes) {
		f.log.Debug().Str("query", query).Int("rule", 4).Msg("gibberish: repeated character run")
		return true
	}

	// Rules 4.2 to 4.5: short repeating patterns like "asdasdasd".
	if n > 5 && n < 15 {
		if triple := string(runes[:3]); strings.HasPrefix(string(runes[3:]), triple) && n >= 9 && strings.HasPrefix(string(runes[6:]), triple) {
			f.log.Debug().Str("query", query).Str("pattern", triple).Msg("gibberish: 3-char pattern repeated three times")
			return true
		}
		if pair := string(runes[:2]); strings.HasPrefix(string(runes[2:]), pair) && strings.HasPrefix(string(runes[4:]), pair) && n >= 8 && strings.HasPrefix(string(runes[6:]), pair) {
			f.log.Debug().Str("query", query).Str("pattern", pair).Msg("gibberish: 2-char pattern repeated four times")
			return true
		}
		if n == 6 && string(runes[:3]) == string(runes[3:]) && !vowelYPattern.MatchString(string(runes[:3])) {
			f.log.Debug().Str("query", query).Msg("gibberish: doubled 3-char pattern with no vowels")
			return true
		}
		if n == 8 && string(runes[:4]) == string(runes[4:]) {
			if len(vowelYPattern.FindAllString(string(runes[:4]), -1)) <= 1 {
				f.log.Debug().Str("query", query).Msg("gibberish: doubled 4-char pattern with few vowels")
				return true
			}
		}
	}

	// Rule 5: mostly symbols with almost no letters.
	if n > 2 {
		symbols := len(symbolPattern.FindAllString(lower, -1))
		letters := len(letterPattern.FindAllString(lower, -1))
		if float64(symbols)/float64(n) > 0.6 && letters < 3 {
			f.log.Debug().Str("query", query).Int("rule", 5).Msg("gibberish: mostly symbols")
			return true
		}
	}

	return false
}

func hasTripleRun(runes []rune) bool {
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= 3 {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// GibberishReply is the canned apology returned without consulting the
// model.
const GibberishReply = "I'm sorry, I didn't understand your message. Could you please rephrase it or provide more details?"

// GibberishUnderstanding labels the intent for gibberish turns.
const GibberishUnderstanding = "Unable to understand the query."
