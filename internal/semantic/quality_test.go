package semantic

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/llm"
)

type fakeClient struct {
	content string
	err     error
}

func (f *fakeClient) Invoke(_ context.Context, _ llm.Request) (*llm.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content, StopReason: "end_turn"}, nil
}

func (f *fakeClient) InvokeWithRetry(ctx context.Context, request llm.Request) (*llm.Response, error) {
	return f.Invoke(ctx, request)
}

func TestQualityScorer(t *testing.T) {

	ctx := context.Background()

	tests := []struct {
		name    string
		content string
		err     error
		want    float64
		wantErr bool
	}{
		{
			name:    "Plain JSON response",
			content: `{"score": 0.85, "reason": "accurate and fluent"}`,
			want:    0.85,
		},
		{
			name:    "Fenced JSON response",
			content: "```json\n{\"score\": 0.4, \"reason\": \"mistranslated the verb\"}\n```",
			want:    0.4,
		},
		{
			name:    "Score out of range",
			content: `{"score": 7.0, "reason": "confused"}`,
			wantErr: true,
		},
		{
			name:    "Not JSON",
			content: "the translation is fine",
			wantErr: true,
		},
		{
			name:    "Client failure",
			err:     errors.New("throttled"),
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			scorer := NewQualityScorer(&fakeClient{content: test.content, err: test.err}, zerolog.Nop())
			got, err := scorer.Score(ctx, "guten morgen", "good morning", "good morning")

			if test.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-test.want) > 1e-9 {
				t.Errorf("score: %f, want: %f", got, test.want)
			}
		})
	}
}

func TestStripMarkdownCodeBlock(t *testing.T) {

	got := stripMarkdownCodeBlock("```json\n{\"score\": 1.0}\n```")
	if !strings.HasPrefix(got, "{") {
		t.Errorf("stripped content: %q, want bare JSON", got)
	}

	// Content without fences passes through untouched.
	if got := stripMarkdownCodeBlock(`{"score": 1.0}`); got != `{"score": 1.0}` {
		t.Errorf("stripped content: %q", got)
	}
}
