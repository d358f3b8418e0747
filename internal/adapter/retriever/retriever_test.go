package retriever

import (
	"context"
	"errors"
	"testing"

	"supportbot/internal/domain"
)

type recordingSearcher struct {
	chunks []domain.Chunk
	lastK  int
	calls  int
}

func (s *recordingSearcher) SimilaritySearch(_ context.Context, _ string, k int) []domain.Chunk {
	s.calls++
	s.lastK = k
	if k > len(s.chunks) {
		k = len(s.chunks)
	}
	return s.chunks[:k]
}

func TestRetriever_DefaultK(t *testing.T) {
	s := &recordingSearcher{chunks: make([]domain.Chunk, 5)}
	r := New(s, 0)

	got, err := r.GetRelevant(context.Background(), "what does able do")
	if err != nil {
		t.Fatal(err)
	}
	if s.lastK != DefaultK || len(got) != DefaultK {
		t.Errorf("expected k=%d, searcher saw %d and returned %d", DefaultK, s.lastK, len(got))
	}
}

func TestRetriever_FixedK(t *testing.T) {
	s := &recordingSearcher{chunks: make([]domain.Chunk, 2)}
	r := New(s, 4)

	got, err := r.GetRelevant(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if r.K() != 4 || s.lastK != 4 {
		t.Errorf("expected k=4, got K()=%d searcher=%d", r.K(), s.lastK)
	}
	if len(got) != 2 {
		t.Errorf("expected at most store size, got %d", len(got))
	}
}

func TestRetriever_CanceledContext(t *testing.T) {
	s := &recordingSearcher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(s, 3).GetRelevant(ctx, "q"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if s.calls != 0 {
		t.Errorf("expected no search on canceled context, got %d calls", s.calls)
	}
}
