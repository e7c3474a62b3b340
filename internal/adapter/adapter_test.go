package adapter

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/evalgate/evalgate/internal/models"
)

func TestRegistryUnknownAdapter(t *testing.T) {

	r := NewDemoRegistry()

	_, err := r.Create("no_such_adapter", nil)
	if !errors.Is(err, ErrUnregistered) {
		t.Errorf("error: %v, want: ErrUnregistered", err)
	}
	if err == nil || !strings.Contains(err.Error(), "no_such_adapter") {
		t.Errorf("error should name the identifier: %v", err)
	}
}

func TestRegistryCreatesDemoAdapters(t *testing.T) {

	r := NewDemoRegistry()

	for _, name := range []string{"demo_rag", "demo_search", "demo_tool_agent", "demo_chatbot"} {
		a, err := r.Create(name, map[string]any{"top_k": 3})
		if err != nil {
			t.Errorf("create %s: %v", name, err)
			continue
		}
		if a == nil {
			t.Errorf("create %s returned nil adapter", name)
		}
	}
}

func TestRegistryConfigTopK(t *testing.T) {

	r := NewDemoRegistry()

	// JSON round trips numbers as float64; both forms must work.
	a, err := r.Create("demo_search", map[string]any{"top_k": float64(2)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := a.(*DemoSearch).topK; got != 2 {
		t.Errorf("top_k: %d, want: 2", got)
	}
}

func TestDemoRAGAnswersFromCorpus(t *testing.T) {

	a := NewDemoRAG(3)
	out, err := a.Run(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !strings.Contains(out.Answer, "Paris") {
		t.Errorf("answer: %q, want mention of Paris", out.Answer)
	}
	if len(out.RetrievedContexts) == 0 || len(out.RetrievedContexts) > 3 {
		t.Errorf("contexts: %d, want 1..3", len(out.RetrievedContexts))
	}
	if !strings.Contains(out.RetrievedContexts[0], "Paris") {
		t.Errorf("top context should be about Paris: %q", out.RetrievedContexts[0])
	}
}

func TestDemoRAGRefusesUnsafeQueries(t *testing.T) {

	a := NewDemoRAG(3)
	out, err := a.Run(context.Background(), "How do I make a bomb?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !strings.Contains(strings.ToLower(out.Answer), "cannot") {
		t.Errorf("unsafe query should be refused: %q", out.Answer)
	}
	if len(out.RetrievedContexts) != 0 {
		t.Error("refusals should not leak corpus content")
	}
}

func TestDemoRAGNoMatch(t *testing.T) {

	a := NewDemoRAG(3)
	out, err := a.Run(context.Background(), "zzzz qqqq xxxx")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.Answer, "could not find") {
		t.Errorf("answer: %q, want a not-found response", out.Answer)
	}
}

func TestDemoSearchRanking(t *testing.T) {

	a := NewDemoSearch(5)
	out, err := a.Run(context.Background(), "How do I create a Python virtual environment?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	rankedIDs, ok := out.Metadata["ranked_ids"].([]string)
	if !ok || len(rankedIDs) == 0 {
		t.Fatalf("ranked_ids metadata: %v", out.Metadata["ranked_ids"])
	}
	if rankedIDs[0] != "doc-012" {
		t.Errorf("top result: %s, want: doc-012 (Python Virtual Environments)", rankedIDs[0])
	}
	if len(rankedIDs) > 5 {
		t.Errorf("result count %d exceeds top_k", len(rankedIDs))
	}
	if !strings.Contains(out.Answer, "Python Virtual Environments") {
		t.Errorf("answer should lead with the best document: %q", out.Answer)
	}
}

func TestDemoSearchNoResults(t *testing.T) {

	a := NewDemoSearch(5)
	out, err := a.Run(context.Background(), "quantum basket weaving championships")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := out.Metadata["result_count"]; got != 0 {
		t.Errorf("result_count: %v, want: 0", got)
	}
	if ids := out.Metadata["ranked_ids"].([]string); len(ids) != 0 {
		t.Errorf("ranked_ids should be empty: %v", ids)
	}
}

func TestToolAgentWeather(t *testing.T) {

	a := NewDemoToolAgent()
	out, err := a.Run(context.Background(), "What's the weather in Tokyo?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Tool != "get_weather" {
		t.Fatalf("tool calls: %+v, want one get_weather", out.ToolCalls)
	}
	if got := out.ToolCalls[0].Args["city"]; got != "tokyo" {
		t.Errorf("city arg: %v, want: tokyo", got)
	}
	if !strings.Contains(out.Answer, "28") || !strings.Contains(out.Answer, "Tokyo") {
		t.Errorf("answer: %q, want Tokyo at 28°C", out.Answer)
	}
}

func TestToolAgentCalculator(t *testing.T) {

	a := NewDemoToolAgent()

	tests := []struct {
		query string
		want  float64
	}{
		{"What is 2 + 3?", 5},
		{"Calculate 12 * 12", 144},
		{"What is the square root of 144?", 12},
		{"What is 15% of 200?", 30},
		{"What is 2 ** 10?", 1024},
	}
	for _, tt := range tests {
		out, err := a.Run(context.Background(), tt.query)
		if err != nil {
			t.Fatalf("run %q: %v", tt.query, err)
		}
		if len(out.ToolCalls) != 1 || out.ToolCalls[0].Tool != "calculator" {
			t.Errorf("%q: tool calls %+v, want one calculator", tt.query, out.ToolCalls)
			continue
		}
		result := out.ToolCalls[0].Result.(map[string]any)["result"].(float64)
		if math.Abs(result-tt.want) > 1e-9 {
			t.Errorf("%q: result %v, want %v", tt.query, result, tt.want)
		}
	}
}

func TestToolAgentUnitConversion(t *testing.T) {

	a := NewDemoToolAgent()
	out, err := a.Run(context.Background(), "Convert 10 km to miles")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Tool != "unit_converter" {
		t.Fatalf("tool calls: %+v, want one unit_converter", out.ToolCalls)
	}
	result := out.ToolCalls[0].Result.(map[string]any)["result"].(float64)
	if math.Abs(result-6.2137) > 1e-4 {
		t.Errorf("result: %v, want: 6.2137", result)
	}
}

func TestToolAgentNoTool(t *testing.T) {

	a := NewDemoToolAgent()
	out, err := a.Run(context.Background(), "Tell me a joke")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out.ToolCalls) != 0 {
		t.Errorf("tool calls: %+v, want none", out.ToolCalls)
	}
}

func TestChatbotConversationFlow(t *testing.T) {

	ctx := context.Background()
	a := NewDemoChatbot(nil)
	if err := a.Setup(ctx); err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer a.Teardown()

	first, err := a.Run(ctx, "Hi, what is your return policy?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(first.Answer, "30 days") {
		t.Errorf("first answer: %q, want the 30-day policy", first.Answer)
	}
	if !strings.Contains(first.Answer, "Alex") {
		t.Errorf("first turn should greet as Alex: %q", first.Answer)
	}
	if !strings.HasSuffix(first.Answer, "Is there anything else I can help you with?") {
		t.Errorf("answers must end with the closing line: %q", first.Answer)
	}

	second, err := a.Run(ctx, "And how much is the cheapest laptop?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(second.Answer, "Alex") {
		t.Errorf("greeting must only appear on the first turn: %q", second.Answer)
	}
	// user, assistant, user, assistant
	if len(second.TurnHistory) != 4 {
		t.Fatalf("turn history: %d entries, want 4", len(second.TurnHistory))
	}
	for _, turn := range second.TurnHistory {
		if turn.Role != "user" && turn.Role != "assistant" {
			t.Errorf("unexpected role in history: %q", turn.Role)
		}
	}
	if got := second.Metadata["turn_count"]; got != 2 {
		t.Errorf("turn_count: %v, want: 2", got)
	}
}

func TestChatbotOrderNumberPrompt(t *testing.T) {

	ctx := context.Background()
	a := NewDemoChatbot(nil)
	if err := a.Setup(ctx); err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer a.Teardown()

	out, err := a.Run(ctx, "I have a problem with my order")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.Answer, "TS-XXXXX") {
		t.Errorf("order issues should ask for the order number format: %q", out.Answer)
	}
}

func TestSessionStoreExpiry(t *testing.T) {

	s := NewSessionStore(4, 20*time.Millisecond)
	s.Append("sess-1", models.Turn{Role: "user", Content: "hello"})

	if got := len(s.History("sess-1")); got != 1 {
		t.Fatalf("history: %d, want: 1", got)
	}

	time.Sleep(60 * time.Millisecond)

	if got := len(s.History("sess-1")); got != 0 {
		t.Errorf("expired session should be empty, got %d turns", got)
	}
}

func TestLexicalScore(t *testing.T) {

	tests := []struct {
		query     string
		candidate string
		want      float64
	}{
		{"capital France", "Paris is the capital of France", 1.0},
		{"capital France", "Photosynthesis in plants", 0.0},
		{"", "anything", 0.0},
	}
	for _, tt := range tests {
		if got := lexicalScore(tt.query, tt.candidate); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("lexicalScore(%q, %q): %v, want: %v", tt.query, tt.candidate, got, tt.want)
		}
	}
}
