package metrics

import (
	"context"
	"math"
)

// Embedder turns text into a dense vector. Implementations live in
// internal/semantic; a nil Embedder simply disables the semantic
// similarity metric.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Similarity scores generated text against a reference with surface
// n-gram metrics, plus embedding cosine similarity when an Embedder is
// configured. Embedding failures drop the metric rather than erroring.
type Similarity struct {
	Embedder Embedder
	BLEUMaxN int
}

func NewSimilarity(embedder Embedder) *Similarity {
	return &Similarity{Embedder: embedder, BLEUMaxN: 4}
}

func (s *Similarity) Evaluate(ctx context.Context, predicted, reference string) map[string]float64 {
	maxN := s.BLEUMaxN
	if maxN <= 0 {
		maxN = 4
	}
	out := map[string]float64{
		"bleu":    bleu(predicted, reference, maxN),
		"rouge_1": rougeN(predicted, reference, 1),
		"rouge_2": rougeN(predicted, reference, 2),
		"rouge_l": rougeL(predicted, reference),
	}
	if sim, ok := s.semanticSimilarity(ctx, predicted, reference); ok {
		out["semantic_similarity"] = sim
	}
	return out
}

func (s *Similarity) EvaluateBatch(ctx context.Context, predicted, reference []string) map[string]float64 {
	if len(predicted) == 0 || len(predicted) != len(reference) {
		return map[string]float64{"bleu": 0, "rouge_1": 0, "rouge_2": 0, "rouge_l": 0}
	}
	results := make([]map[string]float64, len(predicted))
	for i := range predicted {
		results[i] = s.Evaluate(ctx, predicted[i], reference[i])
	}
	return averageMaps(results)
}

// bleu is sentence-level BLEU without smoothing: geometric mean of
// clipped n-gram precisions times the brevity penalty. Any zero
// precision zeroes the score.
func bleu(hypothesis, reference string, maxN int) float64 {
	hyp := fields(hypothesis)
	ref := fields(reference)
	if len(hyp) == 0 || len(ref) == 0 {
		return 0.0
	}

	logSum := 0.0
	for n := 1; n <= maxN; n++ {
		hypNgrams := ngrams(hyp, n)
		refNgrams := ngrams(ref, n)
		total := countTotal(hypNgrams)
		if total == 0 {
			return 0.0
		}
		clipped := clippedOverlap(hypNgrams, refNgrams)
		if clipped == 0 {
			return 0.0
		}
		logSum += math.Log(float64(clipped) / float64(total))
	}

	bp := 1.0
	if len(hyp) < len(ref) {
		bp = math.Exp(1.0 - float64(len(ref))/float64(len(hyp)))
	}
	return bp * math.Exp(logSum/float64(maxN))
}

func rougeN(hypothesis, reference string, n int) float64 {
	hyp := fields(hypothesis)
	ref := fields(reference)
	if len(hyp) == 0 || len(ref) == 0 {
		return 0.0
	}
	hypNgrams := ngrams(hyp, n)
	refNgrams := ngrams(ref, n)
	hypTotal := countTotal(hypNgrams)
	refTotal := countTotal(refNgrams)
	if hypTotal == 0 || refTotal == 0 {
		return 0.0
	}
	overlap := clippedOverlap(hypNgrams, refNgrams)
	return f1(float64(overlap)/float64(hypTotal), float64(overlap)/float64(refTotal))
}

func rougeL(hypothesis, reference string) float64 {
	hyp := fields(hypothesis)
	ref := fields(reference)
	if len(hyp) == 0 || len(ref) == 0 {
		return 0.0
	}
	lcs := lcsLength(hyp, ref)
	return f1(float64(lcs)/float64(len(hyp)), float64(lcs)/float64(len(ref)))
}

// lcsLength uses the space-optimized two-row DP table.
func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
		for j := range curr {
			curr[j] = 0
		}
	}
	return prev[len(b)]
}

func (s *Similarity) semanticSimilarity(ctx context.Context, hypothesis, reference string) (float64, bool) {
	if s.Embedder == nil {
		return 0, false
	}
	a, err := s.Embedder.Embed(ctx, hypothesis)
	if err != nil {
		return 0, false
	}
	b, err := s.Embedder.Embed(ctx, reference)
	if err != nil {
		return 0, false
	}
	return cosineSimilarity(a, b), true
}

func cosineSimilarity(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, x := range a {
		normA += x * x
	}
	for _, y := range b {
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
