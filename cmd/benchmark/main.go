package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"supportbot/config"
	"supportbot/internal/adapter/embedding"
	"supportbot/internal/adapter/retriever"
	"supportbot/internal/adapter/store"
	"supportbot/internal/domain"
)

// labeledQuery is one entry of a -labels file. Relevant ids have the form
// "<source>#<index>".
type labeledQuery struct {
	Query    string   `json:"query"`
	Relevant []string `json:"relevant"`
}

func main() {
	dir := flag.String("dir", ".", "Directory holding supportbot.yaml and data/")
	query := flag.String("q", "", "Query to test")
	labelsPath := flag.String("labels", "", "JSON file of labeled queries")
	topK := flag.Int("k", 3, "Number of results")
	runs := flag.Int("n", 100, "Searches per query for latency")
	flag.Parse()

	if *query == "" && *labelsPath == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\" [-k 3] [-n 100]")
		fmt.Println("       go run ./cmd/benchmark -dir . -labels labels.json")
		fmt.Println("\nReports:")
		fmt.Println("  1. Search latency over the stored snapshot")
		fmt.Println("  2. Similarity of the top results")
		fmt.Println("  3. Precision, recall, MRR and nDCG for labeled queries")
		os.Exit(1)
	}

	root, err := filepath.Abs(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid directory: %v\n", err)
		os.Exit(1)
	}
	if err := config.LoadEnv(root); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromDir(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.Resolve(root)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	embedder, err := setupEmbedding(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding not available: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Load(cfg.Data.SnapshotFile, embedder, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening snapshot: %v\n", err)
		os.Exit(1)
	}
	if st.Len() == 0 {
		fmt.Fprintln(os.Stderr, "No embeddings - run 'supportbot prepare' and 'supportbot index' first")
		os.Exit(1)
	}

	ctx := context.Background()

	fmt.Println("VECTOR SEARCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Documents indexed: %d\n", st.Len())
	fmt.Printf("Model: %s (%s)\n", st.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", st.Dimension())
	fmt.Println()

	if *query != "" {
		benchmarkQuery(ctx, st, embedder, *query, *topK, *runs)
	}

	if *labelsPath != "" {
		labels, err := readLabels(*labelsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading labels: %v\n", err)
			os.Exit(1)
		}
		evaluate(ctx, st, labels, *topK)
	}
}

func benchmarkQuery(ctx context.Context, st *store.VectorStore, embedder *embedding.Batcher, query string, topK, runs int) {
	fmt.Printf("Query: \"%s\"\n", query)
	fmt.Println(strings.Repeat("-", 70))

	start := time.Now()
	queryVec := embedder.EmbedQuery(ctx, query)
	embedTook := time.Since(start)
	if queryVec.IsZero() {
		fmt.Println("Warning: query embedding failed, all scores will be 0")
	}

	if runs <= 0 {
		runs = 1
	}
	latencies := make([]time.Duration, runs)
	var results []domain.ScoredChunk
	for i := 0; i < runs; i++ {
		t := time.Now()
		results = st.SearchVector(queryVec, topK)
		latencies[i] = time.Since(t)
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Printf("Query embedding: %s\n", embedTook)
	fmt.Printf("Linear scan over %d vectors, %d runs:\n", st.Len(), runs)
	fmt.Printf("  p50: %s\n", latencies[runs/2])
	fmt.Printf("  p95: %s\n", latencies[runs*95/100])
	fmt.Printf("  max: %s\n\n", latencies[runs-1])

	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}

	fmt.Printf("Top %d matches:\n\n", len(results))

	totalScore := 0.0
	for i, r := range results {
		preview := r.Chunk.Content
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}
		preview = strings.ReplaceAll(preview, "\n", " ")

		totalScore += r.Score

		rating := "LOW"
		if r.Score > 0.7 {
			rating = "HIGH"
		} else if r.Score > 0.5 {
			rating = "GOOD"
		} else if r.Score > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating, r.Score, chunkID(r.Chunk))
		fmt.Printf("   %s\n\n", preview)
	}

	avgScore := totalScore / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - retrieval working well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - may need better embeddings or re-indexing")
	}
	fmt.Println()
}

func evaluate(ctx context.Context, st *store.VectorStore, labels []labeledQuery, topK int) {
	fmt.Printf("LABELED EVALUATION (%d queries, k=%d)\n", len(labels), topK)
	fmt.Println(strings.Repeat("-", 70))

	var precision, recall, mrr, ndcg float64
	for _, l := range labels {
		var retrieved []string
		for _, c := range st.SimilaritySearch(ctx, l.Query, topK) {
			retrieved = append(retrieved, chunkID(c))
		}

		p := retriever.PrecisionAtK(retrieved, l.Relevant)
		r := retriever.RecallAtK(retrieved, l.Relevant)
		rr := 0.0
		for _, rel := range l.Relevant {
			rr = max(rr, retriever.ReciprocalRank(retrieved, rel))
		}
		n := retriever.NDCG(gains(retrieved, l.Relevant), idealGains(len(l.Relevant), topK))

		precision += p
		recall += r
		mrr += rr
		ndcg += n

		fmt.Printf("  P=%.2f R=%.2f RR=%.2f nDCG=%.2f  %s\n", p, r, rr, n, l.Query)
	}

	count := float64(max(len(labels), 1))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("  Precision@%d: %.3f\n", topK, precision/count)
	fmt.Printf("  Recall@%d:    %.3f\n", topK, recall/count)
	fmt.Printf("  MRR:         %.3f\n", mrr/count)
	fmt.Printf("  nDCG@%d:      %.3f\n", topK, ndcg/count)
}

func readLabels(path string) ([]labeledQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var labels []labeledQuery
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return labels, nil
}

// chunkID identifies a chunk as "<source>#<index>". Heading chunks have no
// index and use "headings".
func chunkID(c domain.Chunk) string {
	source := c.Metadata.String(domain.MetaSource)
	if i, ok := c.Metadata.Int(domain.MetaIndex); ok {
		return fmt.Sprintf("%s#%d", source, i)
	}
	return source + "#" + c.Metadata.String(domain.MetaType)
}

func gains(retrieved, relevant []string) []float64 {
	set := make(map[string]bool, len(relevant))
	for _, r := range relevant {
		set[r] = true
	}
	out := make([]float64, len(retrieved))
	for i, r := range retrieved {
		if set[r] {
			out[i] = 1
		}
	}
	return out
}

func idealGains(relevant, k int) []float64 {
	out := make([]float64, min(relevant, k))
	for i := range out {
		out[i] = 1
	}
	return out
}

func setupEmbedding(cfg *config.Config, logger *slog.Logger) (*embedding.Batcher, error) {
	ec := cfg.Embedding
	oc := embedding.OpenAIConfig{
		APIKey:    config.Credential(ec.APIKeyEnv),
		Model:     ec.Model,
		BaseURL:   ec.BaseURL,
		Dimension: ec.Dimension,
		Timeout:   ec.Timeout,
	}

	switch ec.Provider {
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(oc)
		if err != nil {
			return nil, fmt.Errorf("embedder init failed: %w", err)
		}
		return embedding.NewBatcher(e, ec.BatchSize, logger), nil
	case "ollama":
		return embedding.NewBatcher(embedding.NewOllamaEmbedder(oc), ec.BatchSize, logger), nil
	case "mock":
		return embedding.NewBatcher(embedding.NewMockEmbedder(ec.Dimension), ec.BatchSize, logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ec.Provider)
	}
}
