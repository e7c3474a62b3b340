package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ToolCall is the metric-side view of one tool invocation.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// Trace is one agent execution to score.
type Trace struct {
	Predicted       []ToolCall
	Expected        []ToolCall
	FinalAnswer     string
	ExpectedAnswer  string
	MinSteps        *int
	ActualSteps     *int
	ErrorStates     *int
	RecoveredStates *int
}

// Agent scores tool selection, argument passing, and goal completion
// for tool-use systems.
//
// MatchArguments extends tool-call matching keys with the serialized,
// key-sorted argument map. Ordered makes tool_call_accuracy require the
// exact call sequence instead of the multiset.
type Agent struct {
	MatchArguments bool
	Ordered        bool
}

// Evaluate scores one trace. error_recovery_rate is omitted from the
// map when no error states occurred.
func (a *Agent) Evaluate(t Trace) map[string]float64 {
	precision, recall, f := a.toolCallF1(t.Predicted, t.Expected)
	out := map[string]float64{
		"tool_call_precision": precision,
		"tool_call_recall":    recall,
		"tool_call_f1":        f,
		"tool_call_accuracy":  a.toolCallAccuracy(t.Predicted, t.Expected),
		"argument_accuracy":   a.argumentAccuracy(t.Predicted, t.Expected),
		"goal_accuracy":       goalAccuracy(t.FinalAnswer, t.ExpectedAnswer),
		"step_efficiency":     stepEfficiency(t.MinSteps, t.ActualSteps),
	}
	if rate, ok := errorRecovery(t.ErrorStates, t.RecoveredStates); ok {
		out["error_recovery_rate"] = rate
	}
	return out
}

// EvaluateBatch averages metrics over traces; error_recovery_rate
// averages only the traces where it is defined.
func (a *Agent) EvaluateBatch(traces []Trace) map[string]float64 {
	if len(traces) == 0 {
		return map[string]float64{
			"tool_call_precision": 0, "tool_call_recall": 0,
			"tool_call_f1": 0, "tool_call_accuracy": 0,
			"argument_accuracy": 0, "goal_accuracy": 0,
			"step_efficiency": 0,
		}
	}
	results := make([]map[string]float64, len(traces))
	for i, t := range traces {
		results[i] = a.Evaluate(t)
	}
	return averageMaps(results)
}

func (a *Agent) callKey(c ToolCall) string {
	if a.MatchArguments && len(c.Arguments) > 0 {
		keys := make([]string, 0, len(c.Arguments))
		for k := range c.Arguments {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(c.Name)
		b.WriteByte(':')
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%v;", k, c.Arguments[k])
		}
		return b.String()
	}
	return c.Name
}

// toolCallF1 computes precision/recall/F1 over call-key multisets, so
// exact-duplicate calls count multiply.
func (a *Agent) toolCallF1(predicted, expected []ToolCall) (float64, float64, float64) {
	if len(predicted) == 0 && len(expected) == 0 {
		return 1.0, 1.0, 1.0
	}
	if len(predicted) == 0 || len(expected) == 0 {
		return 0.0, 0.0, 0.0
	}

	predCounts := make(map[string]int)
	for _, c := range predicted {
		predCounts[a.callKey(c)]++
	}
	expCounts := make(map[string]int)
	for _, c := range expected {
		expCounts[a.callKey(c)]++
	}

	tp := 0
	for k, pc := range predCounts {
		if ec, ok := expCounts[k]; ok {
			tp += min(pc, ec)
		}
	}
	precision := float64(tp) / float64(len(predicted))
	recall := float64(tp) / float64(len(expected))
	return precision, recall, f1(precision, recall)
}

func (a *Agent) toolCallAccuracy(predicted, expected []ToolCall) float64 {
	if len(predicted) == 0 && len(expected) == 0 {
		return 1.0
	}
	predKeys := make([]string, len(predicted))
	for i, c := range predicted {
		predKeys[i] = a.callKey(c)
	}
	expKeys := make([]string, len(expected))
	for i, c := range expected {
		expKeys[i] = a.callKey(c)
	}
	if !a.Ordered {
		sort.Strings(predKeys)
		sort.Strings(expKeys)
	}
	if len(predKeys) != len(expKeys) {
		return 0.0
	}
	for i := range predKeys {
		if predKeys[i] != expKeys[i] {
			return 0.0
		}
	}
	return 1.0
}

// argumentAccuracy checks expected argument key/value pairs for tools
// that were called, matching same-name calls positionally.
func (a *Agent) argumentAccuracy(predicted, expected []ToolCall) float64 {
	if len(expected) == 0 {
		return 1.0
	}

	expByName := make(map[string][]map[string]any)
	for _, c := range expected {
		expByName[c.Name] = append(expByName[c.Name], c.Arguments)
	}
	predByName := make(map[string][]map[string]any)
	for _, c := range predicted {
		predByName[c.Name] = append(predByName[c.Name], c.Arguments)
	}

	totalArgs := 0
	matchingArgs := 0
	for name, expArgList := range expByName {
		predArgList := predByName[name]
		for i, expArgs := range expArgList {
			if len(expArgs) == 0 {
				continue
			}
			var predArgs map[string]any
			if i < len(predArgList) {
				predArgs = predArgList[i]
			}
			for key, val := range expArgs {
				totalArgs++
				if pv, ok := predArgs[key]; ok && valuesMatch(pv, val) {
					matchingArgs++
				}
			}
		}
	}
	if totalArgs == 0 {
		return 1.0
	}
	return float64(matchingArgs) / float64(totalArgs)
}

// valuesMatch compares argument values tolerantly: equality, then
// numeric-cast equality, then case-insensitive string equality.
func valuesMatch(a, b any) bool {
	if fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b) {
		return true
	}
	af, aerr := strconv.ParseFloat(strings.TrimSpace(fmt.Sprintf("%v", a)), 64)
	bf, berr := strconv.ParseFloat(strings.TrimSpace(fmt.Sprintf("%v", b)), 64)
	if aerr == nil && berr == nil {
		return af == bf
	}
	return strings.EqualFold(
		strings.TrimSpace(fmt.Sprintf("%v", a)),
		strings.TrimSpace(fmt.Sprintf("%v", b)),
	)
}

// goalAccuracy scores the final answer with the exact/containment/token
// overlap cascade. No expectation means the goal is trivially met.
func goalAccuracy(finalAnswer, expectedAnswer string) float64 {
	if expectedAnswer == "" {
		return 1.0
	}
	if finalAnswer == "" {
		return 0.0
	}
	return overlapCascade(finalAnswer, expectedAnswer, 0.9, 0.7)
}

func stepEfficiency(minSteps, actualSteps *int) float64 {
	if minSteps == nil || actualSteps == nil {
		return 1.0
	}
	if *actualSteps == 0 {
		if *minSteps == 0 {
			return 1.0
		}
		return 0.0
	}
	ratio := float64(*minSteps) / float64(*actualSteps)
	if ratio > 1.0 {
		return 1.0
	}
	return ratio
}

func errorRecovery(errorStates, recoveredStates *int) (float64, bool) {
	if errorStates == nil || recoveredStates == nil || *errorStates == 0 {
		return 0, false
	}
	rate := float64(*recoveredStates) / float64(*errorStates)
	if rate > 1.0 {
		rate = 1.0
	}
	return rate, true
}
