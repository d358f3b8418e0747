package embedding

import (
	"context"
	"errors"
)

// fakeEmbedder returns one-hot style vectors and fails on selected calls.
type fakeEmbedder struct {
	dim     int
	calls   int
	failOn  map[int]bool // 1-based call numbers that fail
	batches [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	if f.failOn[f.calls] {
		return nil, errors.New("simulated provider failure")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dim)
		v[len(t)%f.dim] = 1
		v[0] += float32(len(t))
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return f.dim }
func (f *fakeEmbedder) ModelName() string { return "fake" }
