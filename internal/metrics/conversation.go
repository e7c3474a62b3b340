package metrics

import (
	"strings"

	"github.com/evalgate/evalgate/internal/models"
)

// Conversation scores multi-turn chatbot transcripts. Coherence and
// relevance use content-word recall rather than raw n-gram F1: the bot
// is expected to introduce new information, not echo the query, so only
// coverage of the other side's key terms is measured.
type Conversation struct {
	RequiredKeywords   []string
	DisallowedKeywords []string
}

// Dialogue is one conversation to score.
type Dialogue struct {
	Turns                 []models.Turn
	ExpectedFinalResponse string
	EntitiesToRetain      []string
}

func (c *Conversation) Evaluate(d Dialogue) map[string]float64 {
	coherence := c.coherence(d.Turns)
	relevance := c.responseRelevance(d.Turns)
	return map[string]float64{
		"coherence":               coherence,
		"knowledge_retention":     knowledgeRetention(d.Turns, d.EntitiesToRetain),
		"role_adherence":          c.roleAdherence(d.Turns),
		"response_relevance":      relevance,
		"conversation_completion": completion(d.Turns, d.ExpectedFinalResponse),
		"avg_turn_quality":        (coherence + relevance) / 2.0,
	}
}

func (c *Conversation) EvaluateBatch(dialogues []Dialogue) map[string]float64 {
	if len(dialogues) == 0 {
		return map[string]float64{
			"coherence": 0, "knowledge_retention": 0, "role_adherence": 0,
			"response_relevance": 0, "conversation_completion": 0, "avg_turn_quality": 0,
		}
	}
	results := make([]map[string]float64, len(dialogues))
	for i, d := range dialogues {
		results[i] = c.Evaluate(d)
	}
	return averageMaps(results)
}

// coherence averages, over assistant turns, the fraction of the
// accumulated context's content words that the response picks up.
func (c *Conversation) coherence(turns []models.Turn) float64 {
	if len(turns) < 2 {
		return 1.0
	}
	var scores []float64
	var contextTokens []string
	for _, turn := range turns {
		tokens := tokenize(turn.Content)
		if turn.Role == "assistant" && len(contextTokens) > 0 {
			scores = append(scores, contentWordRecall(contextTokens, tokens))
		}
		contextTokens = append(contextTokens, tokens...)
	}
	if len(scores) == 0 {
		return 1.0
	}
	return mean(scores)
}

func knowledgeRetention(turns []models.Turn, entities []string) float64 {
	if len(entities) == 0 {
		return 1.0
	}
	botText := assistantText(turns)
	found := 0
	for _, e := range entities {
		if strings.Contains(botText, strings.ToLower(e)) {
			found++
		}
	}
	return float64(found) / float64(len(entities))
}

// roleAdherence deducts one check's worth per missing required keyword
// or present disallowed keyword, floored at zero.
func (c *Conversation) roleAdherence(turns []models.Turn) float64 {
	if len(c.RequiredKeywords) == 0 && len(c.DisallowedKeywords) == 0 {
		return 1.0
	}
	botText := assistantText(turns)
	total := len(c.RequiredKeywords) + len(c.DisallowedKeywords)
	violations := 0
	for _, kw := range c.RequiredKeywords {
		if !strings.Contains(botText, strings.ToLower(kw)) {
			violations++
		}
	}
	for _, kw := range c.DisallowedKeywords {
		if strings.Contains(botText, strings.ToLower(kw)) {
			violations++
		}
	}
	score := float64(total-violations) / float64(total)
	if score < 0 {
		return 0.0
	}
	return score
}

func (c *Conversation) responseRelevance(turns []models.Turn) float64 {
	var scores []float64
	var lastUserTokens []string
	for _, turn := range turns {
		switch turn.Role {
		case "user":
			lastUserTokens = tokenize(turn.Content)
		case "assistant":
			if len(lastUserTokens) > 0 {
				scores = append(scores, contentWordRecall(lastUserTokens, tokenize(turn.Content)))
			}
		}
	}
	if len(scores) == 0 {
		return 0.0
	}
	return mean(scores)
}

// completion compares the last assistant turn to the expected outcome,
// capping partial token overlap at 0.6.
func completion(turns []models.Turn, expected string) float64 {
	if expected == "" {
		return 1.0
	}
	var last string
	found := false
	for _, turn := range turns {
		if turn.Role == "assistant" {
			last = turn.Content
			found = true
		}
	}
	if !found {
		return 0.0
	}
	return overlapCascade(last, expected, 0.8, 0.6)
}

func assistantText(turns []models.Turn) string {
	var parts []string
	for _, t := range turns {
		if t.Role == "assistant" {
			parts = append(parts, strings.ToLower(t.Content))
		}
	}
	return strings.Join(parts, " ")
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
