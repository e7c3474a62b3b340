// Package batch loads test-set definition files for the offline CLI.
package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/evalgate/evalgate/internal/models"
)

// File is a test set authored as YAML.
type File struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	SystemType  string     `yaml:"system_type"`
	Cases       []CaseSpec `yaml:"cases"`
}

// CaseSpec mirrors the authoring fields of a test case.
type CaseSpec struct {
	Query             string         `yaml:"query"`
	ExpectedOutput    string         `yaml:"expected_output"`
	GroundTruth       string         `yaml:"ground_truth"`
	Context           []string       `yaml:"context"`
	FailureRules      []RuleSpec     `yaml:"failure_rules"`
	Tags              []string       `yaml:"tags"`
	ExpectedLabels    []string       `yaml:"expected_labels"`
	ExpectedRanking   []string       `yaml:"expected_ranking"`
	ConversationTurns []TurnSpec     `yaml:"conversation_turns"`
	ExpectedToolCalls []ToolCallSpec `yaml:"expected_tool_calls"`
	MinSteps          *int           `yaml:"min_steps"`
	EntitiesToRetain  []string       `yaml:"entities_to_retain"`
}

type RuleSpec struct {
	Type       string         `yaml:"type"`
	Value      string         `yaml:"value"`
	Tool       string         `yaml:"tool"`
	Pattern    string         `yaml:"pattern"`
	Threshold  *float64       `yaml:"threshold"`
	Labels     []string       `yaml:"labels"`
	Schema     map[string]any `yaml:"schema"`
	MaxTokens  *int           `yaml:"max_tokens"`
	Expected   string         `yaml:"expected"`
	Identifier string         `yaml:"identifier"`
	Params     map[string]any `yaml:"params"`
}

type TurnSpec struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

type ToolCallSpec struct {
	Tool string         `yaml:"tool"`
	Args map[string]any `yaml:"args"`
}

// Read parses a YAML test-set definition and materializes it with fresh
// IDs. Validation failures name the offending case by its position.
func Read(r io.Reader) (*models.TestSet, []models.TestCase, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading test set failed: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("parsing test set failed: %w", err)
	}

	if file.Name == "" {
		return nil, nil, fmt.Errorf("test set name is required")
	}

	systemType := models.SystemTypeCustom
	if file.SystemType != "" {
		systemType, err = models.ParseSystemType(file.SystemType)
		if err != nil {
			return nil, nil, err
		}
	}

	now := time.Now().UTC()
	set := &models.TestSet{
		ID:          uuid.New(),
		Name:        file.Name,
		Description: file.Description,
		SystemType:  systemType,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	cases := make([]models.TestCase, 0, len(file.Cases))
	for i, spec := range file.Cases {
		if spec.Query == "" {
			return nil, nil, fmt.Errorf("case %d: query is required", i+1)
		}
		tc := models.TestCase{
			ID:               uuid.New(),
			TestSetID:        set.ID,
			Query:            spec.Query,
			ExpectedOutput:   spec.ExpectedOutput,
			GroundTruth:      spec.GroundTruth,
			Context:          spec.Context,
			Tags:             spec.Tags,
			ExpectedLabels:   spec.ExpectedLabels,
			ExpectedRanking:  spec.ExpectedRanking,
			MinSteps:         spec.MinSteps,
			EntitiesToRetain: spec.EntitiesToRetain,
			CreatedAt:        now,
		}
		for _, rule := range spec.FailureRules {
			if rule.Type == "" {
				return nil, nil, fmt.Errorf("case %d: rule type is required", i+1)
			}
			tc.FailureRules = append(tc.FailureRules, models.Rule{
				Type:       models.RuleType(rule.Type),
				Value:      rule.Value,
				Tool:       rule.Tool,
				Pattern:    rule.Pattern,
				Threshold:  rule.Threshold,
				Labels:     rule.Labels,
				Schema:     rule.Schema,
				MaxTokens:  rule.MaxTokens,
				Expected:   rule.Expected,
				Identifier: rule.Identifier,
				Params:     rule.Params,
			})
		}
		for _, turn := range spec.ConversationTurns {
			tc.ConversationTurns = append(tc.ConversationTurns, models.Turn{Role: turn.Role, Content: turn.Content})
		}
		for _, call := range spec.ExpectedToolCalls {
			tc.ExpectedToolCalls = append(tc.ExpectedToolCalls, models.ToolCall{Tool: call.Tool, Args: call.Args})
		}
		cases = append(cases, tc)
	}

	return set, cases, nil
}

// ReadFile is Read against a path.
func ReadFile(path string) (*models.TestSet, []models.TestCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening test set %s failed: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
