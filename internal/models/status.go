package models

import (
	"database/sql/driver"
	"fmt"
)

// RunStatus is the lifecycle state of an EvaluationRun.
//
// Transitions: PENDING -> RUNNING -> {COMPLETED, GATE_BLOCKED, FAILED}.
// The three terminal states are never left.
type RunStatus int

const (
	RunStatusPending RunStatus = iota
	RunStatusRunning
	RunStatusCompleted
	RunStatusGateBlocked
	RunStatusFailed
)

// Wire values are persisted and exposed over the API; they are fixed
// independently of the Go identifier names.
var runStatusWire = map[RunStatus]string{
	RunStatusPending:     "pending",
	RunStatusRunning:     "running",
	RunStatusCompleted:   "completed",
	RunStatusGateBlocked: "gate_blocked",
	RunStatusFailed:      "failed",
}

var runStatusParse = map[string]RunStatus{}

func init() {
	for s, w := range runStatusWire {
		runStatusParse[w] = s
	}
	for t, w := range systemTypeWire {
		systemTypeParse[w] = t
	}
}

func (s RunStatus) String() string {
	if w, ok := runStatusWire[s]; ok {
		return w
	}
	return fmt.Sprintf("RunStatus(%d)", int(s))
}

// Terminal reports whether the status is one of the three final states.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusGateBlocked, RunStatusFailed:
		return true
	}
	return false
}

func (s RunStatus) MarshalText() ([]byte, error) {
	w, ok := runStatusWire[s]
	if !ok {
		return nil, fmt.Errorf("unknown run status %d", int(s))
	}
	return []byte(w), nil
}

func (s *RunStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseRunStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the wire string, keeping status columns readable in SQL.
func (s RunStatus) Value() (driver.Value, error) {
	w, ok := runStatusWire[s]
	if !ok {
		return nil, fmt.Errorf("unknown run status %d", int(s))
	}
	return w, nil
}

func (s *RunStatus) Scan(v any) error {
	switch raw := v.(type) {
	case string:
		return s.UnmarshalText([]byte(raw))
	case []byte:
		return s.UnmarshalText(raw)
	default:
		return fmt.Errorf("cannot scan %T into RunStatus", v)
	}
}

func ParseRunStatus(v string) (RunStatus, error) {
	s, ok := runStatusParse[v]
	if !ok {
		return 0, fmt.Errorf("unknown run status %q", v)
	}
	return s, nil
}

// SystemType identifies the kind of AI system a test set targets and
// therefore which metric family scores its cases.
type SystemType int

const (
	SystemTypeRAG SystemType = iota
	SystemTypeAgent
	SystemTypeChatbot
	SystemTypeCodeGen
	SystemTypeSearch
	SystemTypeClassification
	SystemTypeSummarization
	SystemTypeTranslation
	SystemTypeCustom
)

var systemTypeWire = map[SystemType]string{
	SystemTypeRAG:            "rag",
	SystemTypeAgent:          "agent",
	SystemTypeChatbot:        "chatbot",
	SystemTypeCodeGen:        "code_gen",
	SystemTypeSearch:         "search",
	SystemTypeClassification: "classification",
	SystemTypeSummarization:  "summarization",
	SystemTypeTranslation:    "translation",
	SystemTypeCustom:         "custom",
}

var systemTypeParse = map[string]SystemType{}

func (t SystemType) String() string {
	if w, ok := systemTypeWire[t]; ok {
		return w
	}
	return fmt.Sprintf("SystemType(%d)", int(t))
}

func (t SystemType) MarshalText() ([]byte, error) {
	w, ok := systemTypeWire[t]
	if !ok {
		return nil, fmt.Errorf("unknown system type %d", int(t))
	}
	return []byte(w), nil
}

func (t *SystemType) UnmarshalText(b []byte) error {
	parsed, err := ParseSystemType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t SystemType) Value() (driver.Value, error) {
	w, ok := systemTypeWire[t]
	if !ok {
		return nil, fmt.Errorf("unknown system type %d", int(t))
	}
	return w, nil
}

func (t *SystemType) Scan(v any) error {
	switch raw := v.(type) {
	case string:
		return t.UnmarshalText([]byte(raw))
	case []byte:
		return t.UnmarshalText(raw)
	default:
		return fmt.Errorf("cannot scan %T into SystemType", v)
	}
}

func ParseSystemType(v string) (SystemType, error) {
	t, ok := systemTypeParse[v]
	if !ok {
		return 0, fmt.Errorf("unknown system type %q", v)
	}
	return t, nil
}
