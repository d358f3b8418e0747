package usecase

import (
	"supportbot/internal/adapter/analyzer"
	"supportbot/internal/domain"
)

// DefaultHistoryBudget is the default token budget for conversation history.
const DefaultHistoryBudget = 4000

// ConversationMemory keeps the turns of one conversation. When the
// estimated token count exceeds the budget, the oldest turns are dropped;
// the newest message is always kept.
type ConversationMemory struct {
	messages  []domain.Message
	maxTokens int
	counter   *analyzer.TokenCounter
	tokens    int
}

func NewConversationMemory(maxTokens int, counter *analyzer.TokenCounter) *ConversationMemory {
	if maxTokens <= 0 {
		maxTokens = DefaultHistoryBudget
	}
	if counter == nil {
		counter = analyzer.NewTokenCounter(4)
	}
	return &ConversationMemory{
		maxTokens: maxTokens,
		counter:   counter,
	}
}

// Add appends a message and trims the history to the budget.
func (m *ConversationMemory) Add(role domain.Role, content string) {
	m.messages = append(m.messages, domain.Message{Role: role, Content: content})
	m.tokens += m.counter.CountMessage(content)

	trimmed := false
	for m.tokens > m.maxTokens && len(m.messages) > 1 {
		m.dropOldest()
		trimmed = true
	}
	// A trimmed history restarts on a user turn.
	for trimmed && len(m.messages) > 1 && m.messages[0].Role != domain.RoleUser {
		m.dropOldest()
	}
}

func (m *ConversationMemory) dropOldest() {
	m.tokens -= m.counter.CountMessage(m.messages[0].Content)
	m.messages = m.messages[1:]
}

// Messages returns a copy of the history, oldest first.
func (m *ConversationMemory) Messages() []domain.Message {
	return append([]domain.Message(nil), m.messages...)
}

// Tokens returns the estimated token count of the history.
func (m *ConversationMemory) Tokens() int {
	return m.tokens
}

func (m *ConversationMemory) Len() int {
	return len(m.messages)
}

func (m *ConversationMemory) Reset() {
	m.messages = nil
	m.tokens = 0
}
