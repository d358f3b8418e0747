package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/google/uuid"

	"supportbot/internal/adapter/analyzer"
	"supportbot/internal/adapter/llm"
	"supportbot/internal/domain"
	"supportbot/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

// DefaultContextBudget is the default token budget for retrieved context.
const DefaultContextBudget = 2000

// ChatbotConfig holds chatbot settings.
type ChatbotConfig struct {
	Company       string
	HistoryBudget int
	ContextBudget int
}

// PromptData is the input of the system prompt template.
type PromptData struct {
	Company string
	Context string
}

// Reply is one answer of the chatbot.
type Reply struct {
	ConversationID string         `json:"conversation_id"`
	Answer         string         `json:"answer"`
	Model          string         `json:"model"`
	Fallback       bool           `json:"fallback"`
	Sources        []domain.Chunk `json:"sources"`
}

// Chatbot answers support questions from retrieved context and conversation
// history. Retrieval is optional and its failures only empty the context;
// completion failures fall back to keyword answers.
type Chatbot struct {
	id        string
	retriever port.Retriever
	model     port.ChatModel
	fallback  *llm.KeywordResponder
	memory    *ConversationMemory
	counter   *analyzer.TokenCounter
	prompt    *template.Template
	cfg       ChatbotConfig
	base      *slog.Logger
	logger    *slog.Logger
}

// NewChatbot creates a chatbot. retriever and model may be nil: without a
// retriever the context is empty, without a model every answer comes from
// the keyword table.
func NewChatbot(retriever port.Retriever, model port.ChatModel, cfg ChatbotConfig, logger *slog.Logger) (*Chatbot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Company == "" {
		cfg.Company = "Able"
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = DefaultContextBudget
	}

	tmplContent, err := promptTemplates.ReadFile("templates/system_prompt.txt")
	if err != nil {
		return nil, fmt.Errorf("template not found: %w", err)
	}
	tmpl, err := template.New("system").Parse(string(tmplContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	counter := analyzer.NewTokenCounter(4)
	id := uuid.NewString()

	return &Chatbot{
		id:        id,
		retriever: retriever,
		model:     model,
		fallback:  llm.NewKeywordResponder(),
		memory:    NewConversationMemory(cfg.HistoryBudget, counter),
		counter:   counter,
		prompt:    tmpl,
		cfg:       cfg,
		base:      logger,
		logger:    logger.With("conversation", id),
	}, nil
}

// ID returns the conversation id.
func (c *Chatbot) ID() string {
	return c.id
}

// GetResponse records query, answers it and records the answer.
func (c *Chatbot) GetResponse(ctx context.Context, query string) string {
	return c.Respond(ctx, query).Answer
}

// Respond is GetResponse with the sources and provider details.
func (c *Chatbot) Respond(ctx context.Context, query string) Reply {
	c.memory.Add(domain.RoleUser, query)

	docs := c.retrieve(ctx, query)
	answer, model, fallback := c.generate(ctx, query, c.FormatContext(docs))

	c.memory.Add(domain.RoleAssistant, answer)

	return Reply{
		ConversationID: c.id,
		Answer:         answer,
		Model:          model,
		Fallback:       fallback,
		Sources:        docs,
	}
}

// SystemPrompt renders the system prompt for query without calling the model
// or touching the history.
func (c *Chatbot) SystemPrompt(ctx context.Context, query string) (string, error) {
	return c.render(c.FormatContext(c.retrieve(ctx, query)))
}

func (c *Chatbot) retrieve(ctx context.Context, query string) []domain.Chunk {
	if c.retriever == nil {
		return nil
	}
	docs, err := c.retriever.GetRelevant(ctx, query)
	if err != nil {
		c.logger.Error("error retrieving context", "error", err)
		return nil
	}
	return docs
}

// FormatContext renders retrieved chunks for the prompt, stopping once the
// context token budget is used. The first chunk is always included.
func (c *Chatbot) FormatContext(docs []domain.Chunk) string {
	parts := make([]string, 0, len(docs))
	used := 0
	for _, doc := range docs {
		part := fmt.Sprintf("Source: %s (Section: %s)\nContent: %s\n",
			metaOrUnknown(doc.Metadata, domain.MetaSource),
			metaOrUnknown(doc.Metadata, domain.MetaSection),
			doc.Content)

		tokens := c.counter.CountTokens(part)
		if len(parts) > 0 && used+tokens > c.cfg.ContextBudget {
			c.logger.Debug("context budget reached", "included", len(parts), "retrieved", len(docs))
			break
		}
		parts = append(parts, part)
		used += tokens
	}
	return strings.Join(parts, "\n")
}

func metaOrUnknown(m domain.Metadata, key string) string {
	if v, ok := m[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return "unknown"
}

func (c *Chatbot) render(contextText string) (string, error) {
	var buf bytes.Buffer
	if err := c.prompt.Execute(&buf, PromptData{Company: c.cfg.Company, Context: contextText}); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

func (c *Chatbot) generate(ctx context.Context, query, contextText string) (answer, model string, fallback bool) {
	if c.model == nil {
		c.logger.Info("no chat model configured, using fallback responses")
		return c.fallback.Respond(query), c.fallback.ModelName(), true
	}

	system, err := c.render(contextText)
	if err != nil {
		c.logger.Error("error generating response", "error", err)
		return c.fallback.Respond(query), c.fallback.ModelName(), true
	}

	history := c.memory.Messages()
	history = append(history[:len(history)-1], domain.Message{Role: domain.RoleUser, Content: query})

	answer, err = c.model.Complete(ctx, system, history)
	if err != nil {
		c.logger.Warn("error generating response", "model", c.model.ModelName(), "error", err)
		return c.fallback.Respond(query), c.fallback.ModelName(), true
	}
	return answer, c.model.ModelName(), false
}

// History returns the conversation so far, oldest first.
func (c *Chatbot) History() []domain.Message {
	return c.memory.Messages()
}

// Reset clears the history and starts a new conversation id.
func (c *Chatbot) Reset() {
	c.memory.Reset()
	c.id = uuid.NewString()
	c.logger = c.base.With("conversation", c.id)
}
