package metrics

// RAG computes heuristic retrieval-augmented-generation scores from
// content-word overlap. These are cheap reference-free stand-ins for
// judge-based scoring: good enough to gate on, deterministic, and free
// of model calls.
type RAG struct{}

// RAGInput is one RAG sample. GroundTruth is optional; context_recall
// is only reported when it is present.
type RAGInput struct {
	Query       string
	Answer      string
	Contexts    []string
	GroundTruth string
}

// Evaluate reports faithfulness, answer_relevancy and context_precision
// for every sample, and context_recall when ground truth exists.
func (RAG) Evaluate(in RAGInput) map[string]float64 {
	out := map[string]float64{
		"faithfulness":      faithfulness(in.Answer, in.Contexts),
		"answer_relevancy":  answerRelevancy(in.Query, in.Answer),
		"context_precision": contextPrecision(in.Query, in.GroundTruth, in.Contexts),
	}
	if in.GroundTruth != "" {
		out["context_recall"] = contextRecall(in.GroundTruth, in.Contexts)
	}
	return out
}

func (r RAG) EvaluateBatch(inputs []RAGInput) map[string]float64 {
	results := make([]map[string]float64, len(inputs))
	for i, in := range inputs {
		results[i] = r.Evaluate(in)
	}
	return averageMaps(results)
}

// faithfulness is the fraction of the answer's content words supported
// by the retrieved contexts. No contexts means nothing is supported.
func faithfulness(answer string, contexts []string) float64 {
	if len(contexts) == 0 {
		return 0.0
	}
	var contextTokens []string
	for _, c := range contexts {
		contextTokens = append(contextTokens, tokenize(c)...)
	}
	return contentWordRecall(tokenize(answer), contextTokens)
}

// answerRelevancy measures how much of the query's content the answer
// addresses.
func answerRelevancy(query, answer string) float64 {
	return contentWordRecall(tokenize(query), tokenize(answer))
}

// contextPrecision is rank-weighted average precision over the
// retrieved contexts: a context counts as relevant when it covers at
// least a fifth of the reference's content words. The reference is the
// ground truth when present, the query otherwise.
func contextPrecision(query, groundTruth string, contexts []string) float64 {
	if len(contexts) == 0 {
		return 0.0
	}
	reference := groundTruth
	if reference == "" {
		reference = query
	}
	refTokens := tokenize(reference)

	hits := 0
	sumPrecisions := 0.0
	for i, c := range contexts {
		if contentWordRecall(refTokens, tokenize(c)) >= 0.2 {
			hits++
			sumPrecisions += float64(hits) / float64(i+1)
		}
	}
	if hits == 0 {
		return 0.0
	}
	return sumPrecisions / float64(hits)
}

// contextRecall is the fraction of the ground truth's content words
// present anywhere in the retrieved contexts.
func contextRecall(groundTruth string, contexts []string) float64 {
	var contextTokens []string
	for _, c := range contexts {
		contextTokens = append(contextTokens, tokenize(c)...)
	}
	return contentWordRecall(tokenize(groundTruth), contextTokens)
}
