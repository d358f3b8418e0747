package port

import (
	"context"

	"supportbot/internal/domain"
)

// ChatModel generates a completion for a conversation.
type ChatModel interface {
	// Complete answers the last user message in history, guided by the system prompt.
	Complete(ctx context.Context, system string, history []domain.Message) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// Splitter cuts text into overlapping chunks.
type Splitter interface {
	Split(text string) []string
}
