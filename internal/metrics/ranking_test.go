package metrics

import (
	"math"
	"testing"
)

func TestRankingEvaluate(t *testing.T) {

	r := NewRanking(10)

	tests := []struct {
		name      string
		predicted []string
		expected  []string
		ndcg      float64
		mrr       float64
		precision float64
		recall    float64
		mapAtK    float64
	}{
		{
			name:      "Perfect ranking",
			predicted: []string{"a", "b", "c"},
			expected:  []string{"a", "b", "c"},
			ndcg:      1.0,
			mrr:       1.0,
			precision: 1.0,
			recall:    1.0,
			mapAtK:    1.0,
		},
		{
			name:      "Empty expected list",
			predicted: []string{"a", "b"},
			expected:  nil,
			ndcg:      0.0,
			mrr:       0.0,
			precision: 0.0,
			recall:    0.0,
			mapAtK:    0.0,
		},
		{
			name:      "No relevant results",
			predicted: []string{"x", "y", "z"},
			expected:  []string{"a", "b"},
			ndcg:      0.0,
			mrr:       0.0,
			precision: 0.0,
			recall:    0.0,
			mapAtK:    0.0,
		},
		{
			name:      "First predicted item is relevant",
			predicted: []string{"b", "x"},
			expected:  []string{"a", "b"},
			ndcg:      (1.0) / (2.0 + 1.0/math.Log2(3)),
			mrr:       1.0,
			precision: 0.5,
			recall:    0.5,
			mapAtK:    0.5,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := r.Evaluate(test.predicted, test.expected)

			checks := map[string]float64{
				"ndcg_at_k":      test.ndcg,
				"mrr":            test.mrr,
				"precision_at_k": test.precision,
				"recall_at_k":    test.recall,
				"map_at_k":       test.mapAtK,
			}
			for name, want := range checks {
				if math.Abs(result[name]-want) > 1e-9 {
					t.Errorf("%s: %f, want: %f", name, result[name], want)
				}
			}
		})
	}
}

func TestRankingOrderMismatch(t *testing.T) {

	// The first predicted item is relevant even though it was expected
	// lower, so MRR is perfect while NDCG is penalized.
	r := NewRanking(10)
	result := r.Evaluate(
		[]string{"doc-012", "doc-001", "doc-005"},
		[]string{"doc-001", "doc-012"},
	)

	if math.Abs(result["mrr"]-1.0) > 1e-9 {
		t.Errorf("mrr: %f, want: 1.0", result["mrr"])
	}
	if result["ndcg_at_k"] >= 1.0 {
		t.Errorf("ndcg_at_k: %f, want < 1.0", result["ndcg_at_k"])
	}
	if result["ndcg_at_k"] <= 0.0 {
		t.Errorf("ndcg_at_k: %f, want > 0.0", result["ndcg_at_k"])
	}
}

func TestRankingNDCGBounds(t *testing.T) {

	r := NewRanking(5)
	inputs := [][2][]string{
		{{"a"}, {"a", "b", "c"}},
		{{"c", "b", "a"}, {"a", "b", "c"}},
		{{"a", "a", "a"}, {"a"}},
		{{}, {"a"}},
	}
	for _, in := range inputs {
		got := r.Evaluate(in[0], in[1])["ndcg_at_k"]
		if got < 0.0 || got > 1.0 {
			t.Errorf("ndcg_at_k out of bounds: %f for %v vs %v", got, in[0], in[1])
		}
	}
}

func TestRankingBatch(t *testing.T) {

	r := NewRanking(10)
	result := r.EvaluateBatch(
		[][]string{{"a", "b"}, {"x"}},
		[][]string{{"a", "b"}, {"a"}},
	)

	if math.Abs(result["mrr"]-0.5) > 1e-9 {
		t.Errorf("mrr: %f, want: 0.5", result["mrr"])
	}
	if math.Abs(result["recall_at_k"]-0.5) > 1e-9 {
		t.Errorf("recall_at_k: %f, want: 0.5", result["recall_at_k"])
	}
}
