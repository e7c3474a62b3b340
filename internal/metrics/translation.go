package metrics

import "context"

// QualityScorer is an optional learned-metric provider in the style of
// COMET: it judges a translation given source, hypothesis, and
// reference. When absent or failing, the quality_estimate metric is
// simply not reported.
type QualityScorer interface {
	Score(ctx context.Context, source, hypothesis, reference string) (float64, error)
}

// Translation scores machine-translation output with BLEU, chrF++ and
// TER, plus an optional provider-backed quality estimate.
type Translation struct {
	Quality  QualityScorer
	BLEUMaxN int
	CharN    int
	WordN    int
	Beta     float64
}

func NewTranslation(quality QualityScorer) *Translation {
	return &Translation{Quality: quality, BLEUMaxN: 4, CharN: 6, WordN: 2, Beta: 2.0}
}

// Input is one translation sample. Source is only needed by the quality
// provider.
type TranslationInput struct {
	Hypothesis string
	Reference  string
	Source     string
}

func (t *Translation) Evaluate(ctx context.Context, in TranslationInput) map[string]float64 {
	maxN := t.BLEUMaxN
	if maxN <= 0 {
		maxN = 4
	}
	out := map[string]float64{
		"bleu":           bleu(in.Hypothesis, in.Reference, maxN),
		"chrf_plus_plus": t.chrFPlusPlus(in.Hypothesis, in.Reference),
		"ter":            ter(in.Hypothesis, in.Reference),
	}
	if t.Quality != nil && in.Source != "" {
		if score, err := t.Quality.Score(ctx, in.Source, in.Hypothesis, in.Reference); err == nil {
			out["quality_estimate"] = score
		}
	}
	return out
}

func (t *Translation) EvaluateBatch(ctx context.Context, inputs []TranslationInput) map[string]float64 {
	if len(inputs) == 0 {
		return map[string]float64{"bleu": 0, "chrf_plus_plus": 0, "ter": 1.0}
	}
	results := make([]map[string]float64, len(inputs))
	for i, in := range inputs {
		results[i] = t.Evaluate(ctx, in)
	}
	return averageMaps(results)
}

// chrFPlusPlus follows Popovic (2017): character n-grams 1..CharN plus
// word n-grams 1..WordN, with precision and recall pooled across orders
// and combined into an F-beta score (beta 2, recall-weighted).
func (t *Translation) chrFPlusPlus(hypothesis, reference string) float64 {
	charN := t.CharN
	if charN <= 0 {
		charN = 6
	}
	wordN := t.WordN
	if wordN <= 0 {
		wordN = 2
	}
	beta := t.Beta
	if beta == 0 {
		beta = 2.0
	}

	if hypothesis == "" && reference == "" {
		return 1.0
	}
	if hypothesis == "" || reference == "" {
		return 0.0
	}

	var precNum, precDen, recNum, recDen int
	add := func(hypGrams, refGrams map[string]int) {
		overlap := clippedOverlap(hypGrams, refGrams)
		precNum += overlap
		precDen += max(countTotal(hypGrams), 1)
		recNum += overlap
		recDen += max(countTotal(refGrams), 1)
	}

	for n := 1; n <= charN; n++ {
		add(charNgrams(hypothesis, n), charNgrams(reference, n))
	}
	hypWords := fields(hypothesis)
	refWords := fields(reference)
	for n := 1; n <= wordN; n++ {
		add(ngrams(hypWords, n), ngrams(refWords, n))
	}

	precision := float64(precNum) / float64(precDen)
	recall := float64(recNum) / float64(recDen)
	if precision+recall == 0 {
		return 0.0
	}
	betaSq := beta * beta
	return (1.0 + betaSq) * precision * recall / (betaSq*precision + recall)
}

// ter is word-level Levenshtein distance over reference length. Lower
// is better; 0.0 is a perfect translation.
func ter(hypothesis, reference string) float64 {
	hyp := fields(hypothesis)
	ref := fields(reference)
	if len(ref) == 0 {
		if len(hyp) == 0 {
			return 0.0
		}
		return 1.0
	}

	dp := make([]int, len(ref)+1)
	for j := range dp {
		dp[j] = j
	}
	for i := 1; i <= len(hyp); i++ {
		prev := dp[0]
		dp[0] = i
		for j := 1; j <= len(ref); j++ {
			tmp := dp[j]
			if hyp[i-1] == ref[j-1] {
				dp[j] = prev
			} else {
				dp[j] = 1 + min(prev, min(dp[j], dp[j-1]))
			}
			prev = tmp
		}
	}
	return float64(dp[len(ref)]) / float64(len(ref))
}
