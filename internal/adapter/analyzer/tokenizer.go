package analyzer

import (
	"strings"
	"unicode"
)

// tokensPerWord is the average number of model tokens per word of English text.
const tokensPerWord = 1.3

// TokenCounter estimates LLM token usage for prompt budgeting.
type TokenCounter struct {
	perMessage int
}

// NewTokenCounter creates a counter that charges perMessage extra tokens for
// the role and separators of every chat message.
func NewTokenCounter(perMessage int) *TokenCounter {
	if perMessage < 0 {
		perMessage = 0
	}
	return &TokenCounter{perMessage: perMessage}
}

// CountTokens returns an approximate token count for text.
func (t *TokenCounter) CountTokens(text string) int {
	words := splitWords(text)
	if len(words) == 0 {
		return 0
	}
	return int(float64(len(words))*tokensPerWord + 0.5)
}

// CountMessage returns the approximate cost of one chat message.
func (t *TokenCounter) CountMessage(content string) int {
	return t.CountTokens(content) + t.perMessage
}

// splitWords splits text into words using unicode word boundaries. Each
// punctuation rune counts as a word of its own.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '\'':
			current.WriteRune(r)
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			flush()
		}
	}
	flush()

	return words
}
