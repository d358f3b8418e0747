package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"supportbot/internal/adapter/chunker"
	"supportbot/internal/adapter/dataset"
	"supportbot/internal/adapter/embedding"
	"supportbot/internal/adapter/llm"
	"supportbot/internal/adapter/store"
	"supportbot/internal/domain"
)

type fakeRetriever struct {
	docs  []domain.Chunk
	err   error
	calls int
}

func (r *fakeRetriever) GetRelevant(_ context.Context, _ string) ([]domain.Chunk, error) {
	r.calls++
	return r.docs, r.err
}

type fakeChatModel struct {
	answer  string
	err     error
	system  string
	history []domain.Message
}

func (m *fakeChatModel) Complete(_ context.Context, system string, history []domain.Message) (string, error) {
	m.system = system
	m.history = history
	return m.answer, m.err
}

func (m *fakeChatModel) ModelName() string { return "fake-chat" }

func aboutChunk() domain.Chunk {
	return domain.Chunk{
		Content: "Able is headquartered in New York City.",
		Metadata: domain.Metadata{
			domain.MetaSource:  "https://able.co/about",
			domain.MetaSection: "about",
			domain.MetaType:    TypeParagraph,
			domain.MetaIndex:   4,
		},
	}
}

func TestBuildDocuments(t *testing.T) {
	sections := []domain.RawSection{
		{Name: "about", URL: "https://able.co/about", Headings: []string{"About Able", "Our Mission"}, Paragraphs: []string{"p0", "", "p2"}},
		{Name: "teams", Paragraphs: []string{"t0"}},
	}

	docs := BuildDocuments(sections)
	if len(docs) != 4 {
		t.Fatalf("expected 4 documents, got %d", len(docs))
	}

	if docs[0].Content != "About Able Our Mission" || docs[0].Metadata.String(domain.MetaType) != TypeHeadings {
		t.Errorf("unexpected headings doc %+v", docs[0])
	}
	if _, ok := docs[0].Metadata[domain.MetaIndex]; ok {
		t.Error("headings doc must not carry an index")
	}
	if idx, _ := docs[2].Metadata.Int(domain.MetaIndex); idx != 2 {
		t.Errorf("expected paragraph index 2 after empty paragraph, got %d", idx)
	}
	if docs[3].Metadata.String(domain.MetaSource) != "teams" {
		t.Errorf("expected section name as source, got %s", docs[3].Metadata.String(domain.MetaSource))
	}
}

func TestPrepareUseCase_Fallback(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "data", "processed_data.json")

	loader := dataset.NewLoader(filepath.Join(dir, "missing.json"), "", nil, nil)
	uc := NewPrepareUseCase(loader, chunker.NewTextSplitter(1000, 200), out, nil)

	result, err := uc.Prepare()
	if err != nil {
		t.Fatal(err)
	}
	if result.Origin != dataset.OriginFallback || result.Sections != 5 {
		t.Errorf("expected 5 fallback sections, got %s/%d", result.Origin, result.Sections)
	}
	// about(1+5) services(1+5) teams(5) industries(5) locations(3)
	if result.Documents != 25 || len(result.Chunks) != 25 {
		t.Errorf("expected 25 documents and chunks, got %d/%d", result.Documents, len(result.Chunks))
	}

	written, err := dataset.ReadProcessed(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != len(result.Chunks) {
		t.Errorf("expected %d chunks on disk, got %d", len(result.Chunks), len(written))
	}
}

func newMockEmbedder() *embedding.Batcher {
	return embedding.NewBatcher(embedding.NewMockEmbedder(16), 20, nil)
}

func TestIndexUseCase_BuildAndReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed_data.json")
	snapshot := filepath.Join(dir, "vector_store.db")

	if err := dataset.WriteProcessed(processed, []domain.Chunk{aboutChunk()}); err != nil {
		t.Fatal(err)
	}

	uc := NewIndexUseCase(newMockEmbedder(), snapshot, processed, nil)
	s, result, err := uc.BuildStore(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Loaded || s.Len() != 1 {
		t.Errorf("expected fresh build with 1 document, got loaded=%v len=%d", result.Loaded, s.Len())
	}
	if _, err := os.Stat(snapshot); err != nil {
		t.Fatalf("expected snapshot written: %v", err)
	}

	s, result, err = uc.BuildStore(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Loaded || s.Len() != 1 {
		t.Errorf("expected snapshot reload, got %+v", result)
	}

	s, result, err = uc.BuildStore(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Rebuilt || s.Len() != 1 {
		t.Errorf("expected forced rebuild, got %+v", result)
	}
}

func TestIndexUseCase_ModelChangeRebuilds(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed_data.json")
	snapshot := filepath.Join(dir, "vector_store.db")

	if err := dataset.WriteProcessed(processed, []domain.Chunk{aboutChunk()}); err != nil {
		t.Fatal(err)
	}

	old := store.New(&renamedEmbedder{newMockEmbedder()}, snapshot, nil)
	if err := old.AddDocuments(ctx, []domain.Chunk{aboutChunk(), aboutChunk()}); err != nil {
		t.Fatal(err)
	}

	s, result, err := NewIndexUseCase(newMockEmbedder(), snapshot, processed, nil).BuildStore(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Rebuilt || !strings.Contains(result.Reason, "model changed") {
		t.Errorf("expected rebuild for model change, got %+v", result)
	}
	if s.Len() != 1 {
		t.Errorf("expected store rebuilt from processed data, got %d", s.Len())
	}
}

type renamedEmbedder struct{ *embedding.Batcher }

func (renamedEmbedder) ModelName() string { return "older-model" }

func TestIndexUseCase_MissingProcessedFile(t *testing.T) {
	dir := t.TempDir()
	uc := NewIndexUseCase(newMockEmbedder(), filepath.Join(dir, "vector_store.db"), filepath.Join(dir, "missing.json"), nil)

	s, result, err := uc.BuildStore(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 || result.Documents != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}

func TestChatbot_UsesContextAndHistory(t *testing.T) {
	ctx := context.Background()
	model := &fakeChatModel{answer: "New York City."}
	retriever := &fakeRetriever{docs: []domain.Chunk{aboutChunk()}}

	bot, err := NewChatbot(retriever, model, ChatbotConfig{Company: "Able"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if got := bot.GetResponse(ctx, "hi"); got != "New York City." {
		t.Errorf("unexpected answer %q", got)
	}
	reply := bot.Respond(ctx, "where is able located?")
	if reply.Fallback || reply.Model != "fake-chat" || len(reply.Sources) != 1 {
		t.Errorf("unexpected reply %+v", reply)
	}
	if reply.ConversationID != bot.ID() {
		t.Errorf("expected conversation id %s, got %s", bot.ID(), reply.ConversationID)
	}

	wantContext := "Source: https://able.co/about (Section: about)\nContent: Able is headquartered in New York City.\n"
	if !strings.Contains(model.system, "customer support chatbot for Able") {
		t.Errorf("system prompt missing company: %q", model.system)
	}
	if !strings.HasSuffix(model.system, "Context about Able:\n"+wantContext) {
		t.Errorf("system prompt missing context: %q", model.system)
	}

	// hi, answer, query
	if len(model.history) != 3 {
		t.Fatalf("expected 3 history messages, got %d", len(model.history))
	}
	last := model.history[len(model.history)-1]
	if last.Role != domain.RoleUser || last.Content != "where is able located?" {
		t.Errorf("expected query last, got %+v", last)
	}

	if n := len(bot.History()); n != 4 {
		t.Errorf("expected 4 remembered messages, got %d", n)
	}
}

func TestChatbot_RetrievalFailureContinues(t *testing.T) {
	model := &fakeChatModel{answer: "ok"}
	retriever := &fakeRetriever{err: errors.New("index unavailable")}

	bot, err := NewChatbot(retriever, model, ChatbotConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	reply := bot.Respond(context.Background(), "services?")
	if reply.Answer != "ok" || reply.Fallback {
		t.Errorf("expected model answer despite retrieval error, got %+v", reply)
	}
	if !strings.HasSuffix(model.system, "Context about Able:\n") {
		t.Errorf("expected empty context, got %q", model.system)
	}
}

func TestChatbot_FallbacksToKeywords(t *testing.T) {
	ctx := context.Background()

	noModel, err := NewChatbot(nil, nil, ChatbotConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	reply := noModel.Respond(ctx, "What services do you offer?")
	if !reply.Fallback || reply.Answer != llm.DefaultTopics[0].Answer {
		t.Errorf("expected services fallback, got %+v", reply)
	}

	failing := &fakeChatModel{err: errors.New("503")}
	bot, err := NewChatbot(&fakeRetriever{}, failing, ChatbotConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := bot.GetResponse(ctx, "hello"); got != llm.DefaultGreeting {
		t.Errorf("expected greeting fallback, got %q", got)
	}
	if n := len(bot.History()); n != 2 {
		t.Errorf("expected fallback answer remembered, got %d messages", n)
	}
}

func TestChatbot_ContextBudget(t *testing.T) {
	long := strings.Repeat("word ", 100)
	docs := []domain.Chunk{
		{Content: long, Metadata: domain.Metadata{domain.MetaSource: "a"}},
		{Content: long, Metadata: domain.Metadata{domain.MetaSource: "b"}},
	}

	bot, err := NewChatbot(nil, nil, ChatbotConfig{ContextBudget: 150}, nil)
	if err != nil {
		t.Fatal(err)
	}

	got := bot.FormatContext(docs)
	if strings.Count(got, "Source: ") != 1 {
		t.Errorf("expected only the first chunk within budget, got %d", strings.Count(got, "Source: "))
	}
	if !strings.Contains(got, "(Section: unknown)") {
		t.Errorf("expected unknown section placeholder, got %q", got[:60])
	}
}

func TestChatbot_ResetAndPrompt(t *testing.T) {
	ctx := context.Background()
	retriever := &fakeRetriever{docs: []domain.Chunk{aboutChunk()}}
	bot, err := NewChatbot(retriever, nil, ChatbotConfig{Company: "Acme"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	bot.GetResponse(ctx, "hello")
	id := bot.ID()
	bot.Reset()
	if bot.ID() == id || len(bot.History()) != 0 {
		t.Error("expected new conversation after reset")
	}

	prompt, err := bot.SystemPrompt(ctx, "where?")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "Context about Acme:") || !strings.Contains(prompt, "New York City") {
		t.Errorf("unexpected prompt %q", prompt)
	}
	if len(bot.History()) != 0 {
		t.Error("rendering the prompt must not touch history")
	}
}

func TestConversationMemory_TrimsOldest(t *testing.T) {
	m := NewConversationMemory(30, nil)

	m.Add(domain.RoleUser, strings.Repeat("one ", 10))
	m.Add(domain.RoleAssistant, strings.Repeat("two ", 10))
	if m.Len() != 1 {
		t.Fatalf("expected oldest message dropped, have %d", m.Len())
	}
	if m.Messages()[0].Role != domain.RoleAssistant {
		t.Errorf("expected newest kept, got %+v", m.Messages()[0])
	}

	m.Add(domain.RoleUser, strings.Repeat("huge ", 100))
	if m.Len() != 1 || m.Messages()[0].Role != domain.RoleUser {
		t.Errorf("expected only the oversized newest message kept, got %d", m.Len())
	}

	m.Reset()
	if m.Len() != 0 || m.Tokens() != 0 {
		t.Error("expected empty memory after reset")
	}
}

func TestConversationMemory_TrimmedHistoryStartsWithUser(t *testing.T) {
	// each message costs 11 tokens
	m := NewConversationMemory(35, nil)
	turn := "a b c d e"

	m.Add(domain.RoleUser, turn)
	m.Add(domain.RoleAssistant, turn)
	m.Add(domain.RoleUser, turn)
	m.Add(domain.RoleAssistant, turn)

	if m.Len() != 2 || m.Messages()[0].Role != domain.RoleUser {
		t.Fatalf("expected history to restart on a user turn, got %+v", m.Messages())
	}
	if m.Tokens() != 22 {
		t.Errorf("expected 22 tokens, got %d", m.Tokens())
	}

	m.Add(domain.RoleUser, turn)
	m.Add(domain.RoleAssistant, turn)
	if got := m.Messages(); got[0].Role != domain.RoleUser || got[len(got)-1].Role != domain.RoleAssistant {
		t.Errorf("expected user first and newest last, got %+v", got)
	}
}

func TestChatbot_TrimmedHistorySentToModelStartsWithUser(t *testing.T) {
	ctx := context.Background()
	model := &fakeChatModel{answer: "ok"}

	bot, err := NewChatbot(nil, model, ChatbotConfig{HistoryBudget: 40}, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 6; i++ {
		bot.Respond(ctx, "where is your office located")
		if len(model.history) == 0 || model.history[0].Role != domain.RoleUser {
			t.Fatalf("turn %d: expected history to start with a user message, got %+v", i, model.history)
		}
		if last := model.history[len(model.history)-1]; last.Role != domain.RoleUser {
			t.Fatalf("turn %d: expected the question last, got %+v", i, last)
		}
	}
}

func TestIndexUseCase_FirstRunPreparesFallbackData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	processed := filepath.Join(dir, "data", "processed_data.json")
	snapshot := filepath.Join(dir, "data", "vector_store.db")

	loader := dataset.NewLoader(filepath.Join(dir, "data", "scraped_data.json"), "", nil, nil)
	preparer := NewPrepareUseCase(loader, chunker.NewTextSplitter(1000, 200), processed, nil)

	uc := NewIndexUseCase(newMockEmbedder(), snapshot, processed, nil).WithPreparer(preparer)
	s, result, err := uc.BuildStore(ctx, false)
	if err != nil {
		t.Fatal(err)
	}

	if result.Prepared != dataset.OriginFallback {
		t.Errorf("expected data prepared from the fallback, got %q", result.Prepared)
	}
	if s.Len() != 25 || result.Documents != 25 {
		t.Errorf("expected 25 documents, got store=%d result=%d", s.Len(), result.Documents)
	}
	if _, err := os.Stat(processed); err != nil {
		t.Errorf("expected processed data written: %v", err)
	}
	if _, err := os.Stat(snapshot); err != nil {
		t.Errorf("expected snapshot written: %v", err)
	}

	s, result, err = uc.BuildStore(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Loaded || result.Prepared != "" || s.Len() != 25 {
		t.Errorf("expected second run to reload the snapshot, got %+v", result)
	}
}
