// Package eval computes ranking-quality metrics (NDCG, hit rate) against a
// relevance judgement map, the pieces an evaluation harness needs without
// pulling in a benchmark dataset downloader.
package eval

import "math"

// Judgments maps a document id to its relevance grade (0 = not relevant).
type Judgments map[string]float64

// NDCG computes normalized discounted cumulative gain at rank k for one
// ranked list of document ids against its judgments.
func NDCG(ranked []string, judgments Judgments, k int) float64 {
	if k > len(ranked) {
		k = len(ranked)
	}
	dcg := 0.0
	for i := 0; i < k; i++ {
		rel := judgments[ranked[i]]
		if rel == 0 {
			continue
		}
		dcg += (math.Pow(2, rel) - 1) / math.Log2(float64(i+2))
	}

	idealGains := make([]float64, 0, len(judgments))
	for _, rel := range judgments {
		if rel > 0 {
			idealGains = append(idealGains, rel)
		}
	}
	sortDescending(idealGains)
	if len(idealGains) > k {
		idealGains = idealGains[:k]
	}
	idcg := 0.0
	for i, rel := range idealGains {
		idcg += (math.Pow(2, rel) - 1) / math.Log2(float64(i+2))
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// Hits reports 1 if any of the top-k ranked ids is relevant, else 0 —
// hits@k as used for the scifact-style sanity checks.
func Hits(ranked []string, judgments Judgments, k int) float64 {
	if k > len(ranked) {
		k = len(ranked)
	}
	for i := 0; i < k; i++ {
		if judgments[ranked[i]] > 0 {
			return 1
		}
	}
	return 0
}

// MeanNDCG and MeanHits average a per-query metric across many queries,
// the form "ndcg@10 > 0.68" sanity thresholds are actually checked against.
func MeanNDCG(ranked map[string][]string, judgments map[string]Judgments, k int) float64 {
	return mean(ranked, judgments, k, NDCG)
}

func MeanHits(ranked map[string][]string, judgments map[string]Judgments, k int) float64 {
	return mean(ranked, judgments, k, Hits)
}

func mean(ranked map[string][]string, judgments map[string]Judgments, k int, metric func([]string, Judgments, int) float64) float64 {
	if len(ranked) == 0 {
		return 0
	}
	sum := 0.0
	for queryID, list := range ranked {
		sum += metric(list, judgments[queryID], k)
	}
	return sum / float64(len(ranked))
}

func sortDescending(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] < xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
