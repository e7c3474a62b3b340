package metrics

import (
	"math"
	"testing"
)

func TestRAGEvaluate(t *testing.T) {

	r := RAG{}

	in := RAGInput{
		Query:  "What is the capital of France?",
		Answer: "The capital of France is Paris.",
		Contexts: []string{
			"Paris is the capital and largest city of France.",
		},
		GroundTruth: "Paris is the capital of France.",
	}

	result := r.Evaluate(in)

	// Every answer content word (capital, france, paris) appears in the
	// context.
	if math.Abs(result["faithfulness"]-1.0) > 1e-9 {
		t.Errorf("faithfulness: %f, want: 1.0", result["faithfulness"])
	}
	if math.Abs(result["answer_relevancy"]-1.0) > 1e-9 {
		t.Errorf("answer_relevancy: %f, want: 1.0", result["answer_relevancy"])
	}
	if math.Abs(result["context_precision"]-1.0) > 1e-9 {
		t.Errorf("context_precision: %f, want: 1.0", result["context_precision"])
	}
	if math.Abs(result["context_recall"]-1.0) > 1e-9 {
		t.Errorf("context_recall: %f, want: 1.0", result["context_recall"])
	}
}

func TestRAGNoContexts(t *testing.T) {

	r := RAG{}
	result := r.Evaluate(RAGInput{
		Query:  "anything",
		Answer: "some answer",
	})

	if result["faithfulness"] != 0.0 {
		t.Errorf("faithfulness: %f, want: 0.0", result["faithfulness"])
	}
	if result["context_precision"] != 0.0 {
		t.Errorf("context_precision: %f, want: 0.0", result["context_precision"])
	}
	if _, ok := result["context_recall"]; ok {
		t.Error("context_recall should be absent without ground truth")
	}
}

func TestRAGContextPrecisionRankWeighted(t *testing.T) {

	r := RAG{}
	result := r.Evaluate(RAGInput{
		Query:  "python sorting",
		Answer: "Use sort().",
		Contexts: []string{
			"Cooking recipes for winter soups and stews.",
			"Python lists can be sorted with the sort method.",
		},
		GroundTruth: "Python lists are sorted with the sort method.",
	})

	// Only the second context is relevant: precision at its position is
	// 1/2, averaged over one hit.
	if math.Abs(result["context_precision"]-0.5) > 1e-9 {
		t.Errorf("context_precision: %f, want: 0.5", result["context_precision"])
	}
}

func TestRAGBatchAveraging(t *testing.T) {

	r := RAG{}
	batch := r.EvaluateBatch([]RAGInput{
		{Query: "q", Answer: "paris", Contexts: []string{"paris"}},
		{Query: "q", Answer: "tokyo", Contexts: []string{"paris"}},
	})

	if math.Abs(batch["faithfulness"]-0.5) > 1e-9 {
		t.Errorf("faithfulness: %f, want: 0.5", batch["faithfulness"])
	}
	if _, ok := batch["context_recall"]; ok {
		t.Error("context_recall should be absent when no sample has ground truth")
	}
}
