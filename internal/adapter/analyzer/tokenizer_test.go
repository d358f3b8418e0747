package analyzer

import (
	"strings"
	"testing"
)

func TestTokenCounter_CountTokens(t *testing.T) {
	tc := NewTokenCounter(0)

	count := tc.CountTokens("hello world this is a test")
	if count < 6 {
		t.Errorf("expected count >= 6 words, got %d", count)
	}

	long := strings.Repeat("word ", 100)
	if got := tc.CountTokens(long); got != 130 {
		t.Errorf("expected 130 tokens for 100 words, got %d", got)
	}
}

func TestTokenCounter_EmptyInput(t *testing.T) {
	tc := NewTokenCounter(4)

	if count := tc.CountTokens(""); count != 0 {
		t.Errorf("expected 0 count for empty input, got %d", count)
	}
	if count := tc.CountMessage(""); count != 4 {
		t.Errorf("expected message overhead 4, got %d", count)
	}
}

func TestTokenCounter_NegativeOverhead(t *testing.T) {
	tc := NewTokenCounter(-3)
	if got := tc.CountMessage("hi"); got != tc.CountTokens("hi") {
		t.Errorf("expected no overhead, got %d", got)
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello world", 2},
		{"hello_world", 1},
		{"hello-world", 3},
		{"What's up?", 3},
		{"func(x, y)", 6},
		{"123numbers456", 1},
		{"   ", 0},
	}

	for _, tt := range tests {
		words := splitWords(tt.input)
		if len(words) != tt.expected {
			t.Errorf("splitWords(%q) = %d words, want %d: %v", tt.input, len(words), tt.expected, words)
		}
	}
}
