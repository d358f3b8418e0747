package retriever

import "math"

// Retrieval quality metrics over chunk identifiers, used by the benchmark
// command to score a labeled query set.

// PrecisionAtK is the share of retrieved items that are relevant.
func PrecisionAtK(retrieved, relevant []string) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	return float64(countHits(retrieved, relevant)) / float64(len(retrieved))
}

// RecallAtK is the share of relevant items that were retrieved.
func RecallAtK(retrieved, relevant []string) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(countHits(retrieved, relevant)) / float64(len(relevant))
}

func countHits(retrieved, relevant []string) int {
	relevantSet := make(map[string]bool, len(relevant))
	for _, r := range relevant {
		relevantSet[r] = true
	}
	hits := 0
	for _, r := range retrieved {
		if relevantSet[r] {
			hits++
		}
	}
	return hits
}

// ReciprocalRank returns 1/rank of the first relevant item, or 0.
func ReciprocalRank(retrieved []string, relevant string) float64 {
	for i, r := range retrieved {
		if r == relevant {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// NDCG compares the discounted gain of scores against the ideal ordering.
func NDCG(scores, ideal []float64) float64 {
	idcg := calculateDCG(ideal)
	if idcg == 0 {
		return 0
	}
	return calculateDCG(scores) / idcg
}

func calculateDCG(scores []float64) float64 {
	dcg := 0.0
	for i, score := range scores {
		dcg += score / math.Log2(float64(i+2))
	}
	return dcg
}
