package metrics

import (
	"sort"
	"strings"
)

// Classification scores predicted label sets against expected label
// sets. Single-label and multi-label samples share the same code path;
// a bare label is a one-element set.
type Classification struct{}

// BatchInput carries parallel per-sample labels plus optional binary
// probability outputs for the curve metrics.
type BatchInput struct {
	Predicted [][]string
	Expected  [][]string
	// PredictedProbs and TrueBinary enable AUC-ROC and PR-AUC when both
	// are present and non-degenerate.
	PredictedProbs []float64
	TrueBinary     []int
}

func labelSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			set[l] = struct{}{}
		}
	}
	return set
}

func setIntersection(a, b map[string]struct{}) int {
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func setPrecision(predicted, expected map[string]struct{}) float64 {
	if len(predicted) == 0 {
		return 0.0
	}
	return float64(setIntersection(predicted, expected)) / float64(len(predicted))
}

func setRecall(predicted, expected map[string]struct{}) float64 {
	if len(expected) == 0 {
		return 0.0
	}
	return float64(setIntersection(predicted, expected)) / float64(len(expected))
}

func exactMatch(predicted, expected map[string]struct{}) float64 {
	if len(predicted) != len(expected) {
		return 0.0
	}
	if setIntersection(predicted, expected) != len(expected) {
		return 0.0
	}
	return 1.0
}

// Evaluate scores one sample.
func (Classification) Evaluate(predicted, expected []string) map[string]float64 {
	p := labelSet(predicted)
	e := labelSet(expected)
	precision := setPrecision(p, e)
	recall := setRecall(p, e)
	return map[string]float64{
		"precision": precision,
		"recall":    recall,
		"f1":        f1(precision, recall),
		"accuracy":  exactMatch(p, e),
	}
}

// EvaluateBatch scores a batch with the per-sample averages plus the
// batch-only metrics. auc_roc and pr_auc are omitted when probability
// inputs are missing or degenerate.
func (c Classification) EvaluateBatch(in BatchInput) map[string]float64 {
	if len(in.Predicted) == 0 || len(in.Predicted) != len(in.Expected) {
		return map[string]float64{
			"precision": 0, "recall": 0, "f1": 0, "accuracy": 0,
			"macro_f1": 0, "micro_f1": 0, "weighted_f1": 0, "cohens_kappa": 0,
		}
	}

	predSets := make([]map[string]struct{}, len(in.Predicted))
	expSets := make([]map[string]struct{}, len(in.Expected))
	var totalP, totalR, totalF, totalA float64
	for i := range in.Predicted {
		predSets[i] = labelSet(in.Predicted[i])
		expSets[i] = labelSet(in.Expected[i])
		p := setPrecision(predSets[i], expSets[i])
		r := setRecall(predSets[i], expSets[i])
		totalP += p
		totalR += r
		totalF += f1(p, r)
		totalA += exactMatch(predSets[i], expSets[i])
	}

	n := float64(len(in.Predicted))
	out := map[string]float64{
		"precision":    totalP / n,
		"recall":       totalR / n,
		"f1":           totalF / n,
		"accuracy":     totalA / n,
		"macro_f1":     macroF1(predSets, expSets),
		"micro_f1":     microF1(predSets, expSets),
		"weighted_f1":  weightedF1(predSets, expSets),
		"cohens_kappa": cohensKappa(predSets, expSets),
	}
	if auc, ok := aucROC(in.PredictedProbs, in.TrueBinary); ok {
		out["auc_roc"] = auc
	}
	if auc, ok := prAUC(in.PredictedProbs, in.TrueBinary); ok {
		out["pr_auc"] = auc
	}
	return out
}

func allLabels(predSets, expSets []map[string]struct{}) []string {
	seen := make(map[string]struct{})
	for i := range predSets {
		for l := range predSets[i] {
			seen[l] = struct{}{}
		}
		for l := range expSets[i] {
			seen[l] = struct{}{}
		}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func perLabelCounts(label string, predSets, expSets []map[string]struct{}) (tp, fp, fn int) {
	for i := range predSets {
		_, inPred := predSets[i][label]
		_, inExp := expSets[i][label]
		switch {
		case inPred && inExp:
			tp++
		case inPred:
			fp++
		case inExp:
			fn++
		}
	}
	return tp, fp, fn
}

func prf(tp, fp, fn int) float64 {
	var precision, recall float64
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	return f1(precision, recall)
}

func macroF1(predSets, expSets []map[string]struct{}) float64 {
	labels := allLabels(predSets, expSets)
	if len(labels) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, label := range labels {
		sum += prf(perLabelCounts(label, predSets, expSets))
	}
	return sum / float64(len(labels))
}

func microF1(predSets, expSets []map[string]struct{}) float64 {
	var tp, fp, fn int
	for i := range predSets {
		inter := setIntersection(predSets[i], expSets[i])
		tp += inter
		fp += len(predSets[i]) - inter
		fn += len(expSets[i]) - inter
	}
	return prf(tp, fp, fn)
}

func weightedF1(predSets, expSets []map[string]struct{}) float64 {
	labels := allLabels(predSets, expSets)
	if len(labels) == 0 {
		return 0.0
	}
	totalSupport := 0
	weightedSum := 0.0
	for _, label := range labels {
		tp, fp, fn := perLabelCounts(label, predSets, expSets)
		support := tp + fn
		weightedSum += prf(tp, fp, fn) * float64(support)
		totalSupport += support
	}
	if totalSupport == 0 {
		return 0.0
	}
	return weightedSum / float64(totalSupport)
}

// cohensKappa flattens multi-label samples to their lexically first
// label, then applies the standard single-label formula.
func cohensKappa(predSets, expSets []map[string]struct{}) float64 {
	n := len(predSets)
	if n == 0 {
		return 0.0
	}
	first := func(set map[string]struct{}) string {
		if len(set) == 0 {
			return ""
		}
		labels := make([]string, 0, len(set))
		for l := range set {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		return labels[0]
	}

	predLabels := make([]string, n)
	expLabels := make([]string, n)
	agree := 0
	for i := range predSets {
		predLabels[i] = first(predSets[i])
		expLabels[i] = first(expSets[i])
		if predLabels[i] == expLabels[i] {
			agree++
		}
	}
	po := float64(agree) / float64(n)

	labels := make(map[string]struct{})
	for i := range predLabels {
		labels[predLabels[i]] = struct{}{}
		labels[expLabels[i]] = struct{}{}
	}
	pe := 0.0
	for label := range labels {
		pCount, tCount := 0, 0
		for i := range predLabels {
			if predLabels[i] == label {
				pCount++
			}
			if expLabels[i] == label {
				tCount++
			}
		}
		pe += (float64(pCount) / float64(n)) * (float64(tCount) / float64(n))
	}
	if pe == 1.0 {
		return 1.0
	}
	return (po - pe) / (1.0 - pe)
}

// aucROC integrates the ROC curve with the trapezoidal rule over
// probability-sorted thresholds. Degenerate inputs (all one class,
// length mismatch) yield no value.
func aucROC(probs []float64, truth []int) (float64, bool) {
	pairs, totalPos, totalNeg, ok := sortedPairs(probs, truth)
	if !ok || totalPos == 0 || totalNeg == 0 {
		return 0, false
	}
	tp, fp := 0, 0
	prevFPR, prevTPR := 0.0, 0.0
	auc := 0.0
	for _, pair := range pairs {
		if pair.label == 1 {
			tp++
		} else {
			fp++
		}
		tpr := float64(tp) / float64(totalPos)
		fpr := float64(fp) / float64(totalNeg)
		auc += (fpr - prevFPR) * (tpr + prevTPR) / 2.0
		prevFPR, prevTPR = fpr, tpr
	}
	return auc, true
}

func prAUC(probs []float64, truth []int) (float64, bool) {
	pairs, totalPos, _, ok := sortedPairs(probs, truth)
	if !ok || totalPos == 0 {
		return 0, false
	}
	tp, fp := 0, 0
	prevRecall := 0.0
	auc := 0.0
	for _, pair := range pairs {
		if pair.label == 1 {
			tp++
		} else {
			fp++
		}
		precision := float64(tp) / float64(tp+fp)
		recall := float64(tp) / float64(totalPos)
		auc += (recall - prevRecall) * precision
		prevRecall = recall
	}
	return auc, true
}

type probPair struct {
	prob  float64
	label int
}

func sortedPairs(probs []float64, truth []int) (pairs []probPair, totalPos, totalNeg int, ok bool) {
	if len(probs) == 0 || len(probs) != len(truth) {
		return nil, 0, 0, false
	}
	pairs = make([]probPair, len(probs))
	for i := range probs {
		pairs[i] = probPair{prob: probs[i], label: truth[i]}
		if truth[i] == 1 {
			totalPos++
		} else {
			totalNeg++
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].prob > pairs[j].prob })
	return pairs, totalPos, totalNeg, true
}
