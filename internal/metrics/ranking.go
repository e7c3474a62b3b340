package metrics

import "math"

// Ranking scores a predicted document ranking against an expected
// relevance ordering. Relevance is graded by position in the expected
// list: the first expected document carries the highest grade.
//
// Conventions follow BEIR and TREC: NDCG@k, MAP@k, MRR, Precision@k,
// Recall@k. All metrics are 0.0 when the expected list is empty.
type Ranking struct {
	K int
}

func NewRanking(k int) *Ranking {
	if k <= 0 {
		k = 10
	}
	return &Ranking{K: k}
}

func (r *Ranking) Evaluate(predicted, expected []string) map[string]float64 {
	relevance := make(map[string]int, len(expected))
	for i, id := range expected {
		relevance[id] = len(expected) - i
	}

	return map[string]float64{
		"ndcg_at_k":      r.ndcgAtK(predicted, relevance),
		"map_at_k":       r.averagePrecisionAtK(predicted, relevance),
		"mrr":            mrr(predicted, relevance),
		"precision_at_k": r.precisionAtK(predicted, relevance),
		"recall_at_k":    r.recallAtK(predicted, relevance),
	}
}

// EvaluateBatch macro-averages per-query scores. Zero queries yield a
// map of zeros.
func (r *Ranking) EvaluateBatch(predicted, expected [][]string) map[string]float64 {
	if len(predicted) == 0 || len(predicted) != len(expected) {
		return map[string]float64{
			"ndcg_at_k": 0, "map_at_k": 0, "mrr": 0,
			"precision_at_k": 0, "recall_at_k": 0,
		}
	}
	results := make([]map[string]float64, len(predicted))
	for i := range predicted {
		results[i] = r.Evaluate(predicted[i], expected[i])
	}
	return averageMaps(results)
}

func dcg(relevances []int, k int) float64 {
	total := 0.0
	for i, rel := range relevances {
		if i >= k {
			break
		}
		total += float64(rel) / math.Log2(float64(i+2))
	}
	return total
}

func (r *Ranking) ndcgAtK(predicted []string, relevance map[string]int) float64 {
	predictedRels := make([]int, 0, r.K)
	for i, id := range predicted {
		if i >= r.K {
			break
		}
		predictedRels = append(predictedRels, relevance[id])
	}

	// Ideal ordering: the relevance grades sorted descending. Grades are
	// the contiguous range len(expected)..1, so walk it directly.
	idealRels := make([]int, 0, r.K)
	for g := len(relevance); g >= 1 && len(idealRels) < r.K; g-- {
		idealRels = append(idealRels, g)
	}

	idcg := dcg(idealRels, r.K)
	if idcg == 0 {
		return 0.0
	}
	return dcg(predictedRels, r.K) / idcg
}

func mrr(predicted []string, relevance map[string]int) float64 {
	for i, id := range predicted {
		if _, ok := relevance[id]; ok {
			return 1.0 / float64(i+1)
		}
	}
	return 0.0
}

func (r *Ranking) precisionAtK(predicted []string, relevance map[string]int) float64 {
	topK := predicted
	if len(topK) > r.K {
		topK = topK[:r.K]
	}
	if len(topK) == 0 {
		return 0.0
	}
	hits := 0
	for _, id := range topK {
		if _, ok := relevance[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(min(r.K, len(topK)))
}

func (r *Ranking) recallAtK(predicted []string, relevance map[string]int) float64 {
	if len(relevance) == 0 {
		return 0.0
	}
	seen := make(map[string]struct{})
	hits := 0
	for i, id := range predicted {
		if i >= r.K {
			break
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := relevance[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(relevance))
}

// averagePrecisionAtK follows the TREC convention: mean of the precision
// at each hit position, normalized by min(|relevant|, k).
func (r *Ranking) averagePrecisionAtK(predicted []string, relevance map[string]int) float64 {
	if len(relevance) == 0 {
		return 0.0
	}
	hits := 0
	sumPrecisions := 0.0
	for i, id := range predicted {
		if i >= r.K {
			break
		}
		if _, ok := relevance[id]; ok {
			hits++
			sumPrecisions += float64(hits) / float64(i+1)
		}
	}
	denom := min(len(relevance), r.K)
	if denom == 0 {
		return 0.0
	}
	return sumPrecisions / float64(denom)
}
