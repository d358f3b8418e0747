package cache

import (
	"context"
	"testing"
	"time"

	"supportbot/internal/domain"
)

type countingRetriever struct {
	calls int
	gen   uint64
}

func (r *countingRetriever) GetRelevant(_ context.Context, query string) ([]domain.Chunk, error) {
	r.calls++
	return []domain.Chunk{{Content: query}}, nil
}

func (r *countingRetriever) K() int             { return 3 }
func (r *countingRetriever) Generation() uint64 { return r.gen }

func TestQueryCache_HitAndMiss(t *testing.T) {
	c := NewQueryCache(4, time.Minute)

	if _, ok := c.Get("q", 3, 0); ok {
		t.Error("expected miss on empty cache")
	}

	c.Put("q", 3, 0, []domain.Chunk{{Content: "a"}})
	got, ok := c.Get("q", 3, 0)
	if !ok || len(got) != 1 || got[0].Content != "a" {
		t.Errorf("expected hit with one chunk, got %v %v", got, ok)
	}

	if _, ok := c.Get("q", 5, 0); ok {
		t.Error("expected miss for different k")
	}
}

func TestQueryCache_KeyUsesFullK(t *testing.T) {
	c := NewQueryCache(4, time.Minute)

	c.Put("q", 3, 0, []domain.Chunk{{Content: "a"}})
	if _, ok := c.Get("q", 1<<16+3, 0); ok {
		t.Error("expected miss for a k that differs above the low 16 bits")
	}
	if cacheKey("q", 1<<16+3) == cacheKey("q", 3) {
		t.Error("expected distinct keys")
	}
	if cacheKey("ab", 1) == cacheKey("a", 1) || cacheKey("", 0) == cacheKey("\x00", 0) {
		t.Error("expected distinct keys for distinct queries")
	}
}

func TestQueryCache_GenerationInvalidates(t *testing.T) {
	c := NewQueryCache(4, time.Minute)
	c.Put("q", 3, 1, []domain.Chunk{{Content: "a"}})

	if _, ok := c.Get("q", 3, 2); ok {
		t.Error("expected miss after store generation changed")
	}
	if c.Size() != 0 {
		t.Errorf("expected stale entry removed, size %d", c.Size())
	}
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(4, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("q", 3, 0, []domain.Chunk{{Content: "a"}})
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("q", 3, 0); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestQueryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("a", 3, 0, nil)
	c.Put("b", 3, 0, nil)
	c.Get("a", 3, 0)
	c.Put("c", 3, 0, nil)

	if _, ok := c.Get("b", 3, 0); ok {
		t.Error("expected b evicted")
	}
	if _, ok := c.Get("a", 3, 0); !ok {
		t.Error("expected a retained")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}

	c.Invalidate()
	if c.Size() != 0 {
		t.Errorf("expected empty cache after Invalidate, got %d", c.Size())
	}
}

func TestCachedRetriever(t *testing.T) {
	inner := &countingRetriever{}
	r := NewCachedRetriever(inner, inner, NewQueryCache(8, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.GetRelevant(ctx, "services"); err != nil {
			t.Fatal(err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 underlying call, got %d", inner.calls)
	}

	inner.gen++
	if _, err := r.GetRelevant(ctx, "services"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("expected recompute after store change, got %d calls", inner.calls)
	}
	if r.K() != 3 {
		t.Errorf("expected K 3, got %d", r.K())
	}
}
