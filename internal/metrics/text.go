package metrics

import (
	"math"
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`[a-z0-9]+(?:'[a-z]+)?`)

// tokenize lowercases and splits text into alphanumeric word tokens.
func tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// fields is the simpler whitespace tokenizer used by the n-gram metrics.
func fields(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func ngrams(tokens []string, n int) map[string]int {
	out := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		out[strings.Join(tokens[i:i+n], "\x1f")]++
	}
	return out
}

func charNgrams(text string, n int) map[string]int {
	out := make(map[string]int)
	runes := []rune(text)
	for i := 0; i+n <= len(runes); i++ {
		out[string(runes[i:i+n])]++
	}
	return out
}

func countTotal(grams map[string]int) int {
	total := 0
	for _, c := range grams {
		total += c
	}
	return total
}

func clippedOverlap(a, b map[string]int) int {
	overlap := 0
	for g, c := range a {
		if bc, ok := b[g]; ok {
			overlap += min(c, bc)
		}
	}
	return overlap
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the a an is are was were be been being
		have has had do does did will would could
		should may might shall can need must
		i me my we our you your he she it
		its they them their this that these those
		what which who whom when where why how
		in on at to for of with by from about
		and or but not if so no yes all any
		hi hello hey thanks thank please just also
		very too only more most some than then
		up out off over own same other each such`) {
		stopWords[w] = struct{}{}
	}
}

// stemMatch is a lightweight prefix-based stem comparison so that
// "laptop" matches "laptops" and "return" matches "returning".
func stemMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) > 3 && len(b) > 3 {
		short, long := a, b
		if len(short) > len(long) {
			short, long = long, short
		}
		return strings.HasPrefix(long, short)
	}
	return false
}

func contentWords(tokens []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tokens {
		if len(t) <= 1 {
			continue
		}
		if _, stop := stopWords[t]; stop {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// contentWordRecall measures what fraction of the source's content words
// reappear in the target, with stem-tolerant matching. A source with no
// content words scores 1.0.
func contentWordRecall(source, target []string) float64 {
	src := contentWords(source)
	if len(src) == 0 {
		return 1.0
	}
	tgtSeen := make(map[string]struct{})
	var tgt []string
	for _, t := range target {
		if _, dup := tgtSeen[t]; !dup {
			tgtSeen[t] = struct{}{}
			tgt = append(tgt, t)
		}
	}
	found := 0
	for _, w := range src {
		for _, rt := range tgt {
			if stemMatch(w, rt) {
				found++
				break
			}
		}
	}
	return float64(found) / float64(len(src))
}

// tokenSet returns the unique whitespace tokens of text, lowercased.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range fields(text) {
		set[t] = struct{}{}
	}
	return set
}

// overlapCascade scores answer text against an expectation: exact match,
// then containment, then a scaled token-overlap ratio.
func overlapCascade(answer, expected string, containScore, overlapScale float64) float64 {
	a := strings.ToLower(strings.TrimSpace(answer))
	e := strings.ToLower(strings.TrimSpace(expected))
	if a == e {
		return 1.0
	}
	if e != "" && strings.Contains(a, e) {
		return containScore
	}
	expTokens := tokenSet(e)
	if len(expTokens) == 0 {
		return 0.0
	}
	ansTokens := tokenSet(a)
	overlap := 0
	for t := range ansTokens {
		if _, ok := expTokens[t]; ok {
			overlap++
		}
	}
	ratio := float64(overlap) / float64(len(expTokens))
	return math.Min(ratio, 1.0) * overlapScale
}

// averageFinite averages the values present under name in each map,
// skipping samples that omit the key or carry a non-finite value.
// The second return is false when nothing finite was observed.
func averageFinite(maps []map[string]float64, name string) (float64, bool) {
	sum := 0.0
	n := 0
	for _, m := range maps {
		v, ok := m[name]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// averageMaps macro-averages a list of metric maps key by key, dropping
// keys with no finite observations.
func averageMaps(maps []map[string]float64) map[string]float64 {
	names := make(map[string]struct{})
	for _, m := range maps {
		for k := range m {
			names[k] = struct{}{}
		}
	}
	out := make(map[string]float64, len(names))
	for name := range names {
		if avg, ok := averageFinite(maps, name); ok {
			out[name] = avg
		}
	}
	return out
}
