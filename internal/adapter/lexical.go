package adapter

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// stopwords excluded from lexical matching. Question scaffolding would
// otherwise dominate overlap scores.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {},
	"how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "many": {}, "me": {},
	"much": {}, "of": {}, "on": {}, "or": {}, "tell": {}, "that": {},
	"the": {}, "to": {}, "was": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "with": {}, "you": {},
}

func tokenize(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	kept := words[:0]
	for _, w := range words {
		if _, skip := stopwords[w]; !skip {
			kept = append(kept, w)
		}
	}
	return kept
}

// lexicalScore is the fraction of distinct query terms found in the
// candidate text. Deterministic, so demo runs are reproducible without
// an embedding backend.
func lexicalScore(query, candidate string) float64 {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return 0
	}
	candidateTerms := map[string]struct{}{}
	for _, w := range tokenize(candidate) {
		candidateTerms[w] = struct{}{}
	}

	distinct := map[string]struct{}{}
	hits := 0
	for _, term := range queryTerms {
		if _, seen := distinct[term]; seen {
			continue
		}
		distinct[term] = struct{}{}
		if _, ok := candidateTerms[term]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(distinct))
}
