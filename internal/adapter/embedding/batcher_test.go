package embedding

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("document %d %s", i, strings.Repeat("x", i%3))
	}
	return out
}

func TestBatcherSplitsIntoFixedBatches(t *testing.T) {
	fake := &fakeEmbedder{dim: 4}
	b := NewBatcher(fake, 20, nil)

	var progress []int
	b.OnProgress(func(done, total int) {
		if total != 45 {
			t.Errorf("expected total 45, got %d", total)
		}
		progress = append(progress, done)
	})

	vectors := b.EmbedDocuments(context.Background(), texts(45))

	if len(vectors) != 45 {
		t.Fatalf("expected 45 vectors, got %d", len(vectors))
	}
	if fake.calls != 3 {
		t.Errorf("expected 3 provider calls, got %d", fake.calls)
	}
	if len(fake.batches[0]) != 20 || len(fake.batches[1]) != 20 || len(fake.batches[2]) != 5 {
		t.Errorf("unexpected batch sizes: %d %d %d", len(fake.batches[0]), len(fake.batches[1]), len(fake.batches[2]))
	}
	if !reflect.DeepEqual(progress, []int{20, 40, 45}) {
		t.Errorf("unexpected progress %v", progress)
	}
}

func TestBatcherBoundariesDoNotAffectOutput(t *testing.T) {
	input := texts(23)

	small := NewBatcher(&fakeEmbedder{dim: 4}, 5, nil).EmbedDocuments(context.Background(), input)
	single := NewBatcher(&fakeEmbedder{dim: 4}, 100, nil).EmbedDocuments(context.Background(), input)

	if !reflect.DeepEqual(small, single) {
		t.Error("expected identical output regardless of batch size")
	}
}

func TestBatcherFailedBatchYieldsZeroVectors(t *testing.T) {
	fake := &fakeEmbedder{dim: 3, failOn: map[int]bool{2: true}}
	b := NewBatcher(fake, 5, nil)

	vectors := b.EmbedDocuments(context.Background(), texts(12))

	if len(vectors) != 12 {
		t.Fatalf("expected 12 vectors, got %d", len(vectors))
	}
	for i, v := range vectors {
		if len(v) != 3 {
			t.Errorf("vector %d has dimension %d", i, len(v))
		}
		failed := i >= 5 && i < 10
		if failed != v.IsZero() {
			t.Errorf("vector %d: zero=%v, expected zero=%v", i, v.IsZero(), failed)
		}
	}
}

func TestBatcherRejectsMalformedResponse(t *testing.T) {
	b := NewBatcher(shortEmbedder{}, 5, nil)

	vectors := b.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, v := range vectors {
		if !v.IsZero() || len(v) != 2 {
			t.Errorf("vector %d should be a zero placeholder of dimension 2, got %v", i, v)
		}
	}
}

func TestBatcherEmbedQuery(t *testing.T) {
	fake := &fakeEmbedder{dim: 4, failOn: map[int]bool{1: true}}
	b := NewBatcher(fake, 20, nil)

	v := b.EmbedQuery(context.Background(), "hello")
	if len(v) != 4 || !v.IsZero() {
		t.Errorf("expected zero vector on failure, got %v", v)
	}

	v = b.EmbedQuery(context.Background(), "hello")
	if v.IsZero() {
		t.Error("expected non-zero vector on success")
	}
}

func TestBatcherEmptyInput(t *testing.T) {
	fake := &fakeEmbedder{dim: 4}
	vectors := NewBatcher(fake, 20, nil).EmbedDocuments(context.Background(), nil)
	if len(vectors) != 0 {
		t.Errorf("expected no vectors, got %d", len(vectors))
	}
	if fake.calls != 0 {
		t.Errorf("expected no provider calls, got %d", fake.calls)
	}
}

// shortEmbedder returns fewer vectors than requested.
type shortEmbedder struct{}

func (shortEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1, 1}}, nil
}
func (shortEmbedder) Dimension() int    { return 2 }
func (shortEmbedder) ModelName() string { return "short" }
