package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"supportbot/internal/domain"
	"supportbot/internal/port"
)

// AnthropicChat generates answers with the Anthropic Messages API.
type AnthropicChat struct {
	client *anthropic.Client
	cfg    Config
}

func NewAnthropicChat(cfg Config) (*AnthropicChat, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic chat: %w", port.ErrMissingCredential)
	}
	cfg = cfg.withDefaults(string(anthropic.ModelClaude3_5HaikuLatest))

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicChat{
		client: &client,
		cfg:    cfg,
	}, nil
}

func (c *AnthropicChat) Complete(ctx context.Context, system string, history []domain.Message) (string, error) {
	turns := userFirst(history)
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, m := range turns {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case domain.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(block))
		case domain.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.Model),
		MaxTokens:   int64(c.cfg.MaxTokens),
		Messages:    messages,
		System:      []anthropic.TextBlockParam{{Text: system}},
		Temperature: anthropic.Float(c.cfg.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create message: %w", err)
	}

	var sb strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("message contained no text")
	}
	return sb.String(), nil
}

// userFirst drops assistant turns preceding the first user turn; the
// Messages API rejects conversations that do not open with the user.
func userFirst(history []domain.Message) []domain.Message {
	for i, m := range history {
		if m.Role == domain.RoleUser {
			return history[i:]
		}
	}
	return nil
}

func (c *AnthropicChat) ModelName() string {
	return c.cfg.Model
}
