package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/evalgate/evalgate/internal/models"
)

// ragChunk is one retrievable passage in the demo corpus.
type ragChunk struct {
	ID    string
	Topic string
	Text  string
}

var ragCorpus = []ragChunk{
	{ID: "geo-001", Topic: "geography", Text: "Paris is the capital and largest city of France. It is located in the north-central part of the country on the Seine River."},
	{ID: "geo-002", Topic: "geography", Text: "France is a country in Western Europe. Its capital is Paris, which is known for landmarks like the Eiffel Tower and the Louvre."},
	{ID: "geo-003", Topic: "geography", Text: "The Seine River flows through Paris, dividing the city into the Left Bank and the Right Bank."},

	{ID: "bio-001", Topic: "biology", Text: "Photosynthesis is the process by which green plants convert sunlight, water, and carbon dioxide into glucose and oxygen."},
	{ID: "bio-002", Topic: "biology", Text: "Chlorophyll is the green pigment in plant cells that absorbs light energy for photosynthesis. It is found in chloroplasts."},
	{ID: "bio-003", Topic: "biology", Text: "Plants release oxygen as a byproduct of photosynthesis, which is essential for most life on Earth."},

	{ID: "med-001", Topic: "medicine", Text: "Type 2 diabetes is a chronic condition where the body becomes resistant to insulin or does not produce enough insulin."},
	{ID: "med-002", Topic: "medicine", Text: "Common symptoms of type 2 diabetes include increased thirst, frequent urination, fatigue, and blurred vision."},
	{ID: "med-003", Topic: "medicine", Text: "Type 2 diabetes can often be managed through diet, exercise, and medications such as metformin."},

	{ID: "tech-001", Topic: "technology", Text: "RAM (Random Access Memory) is volatile memory that temporarily stores data a computer is actively using."},
	{ID: "tech-002", Topic: "technology", Text: "ROM (Read-Only Memory) is non-volatile memory that retains its contents even when the computer is powered off."},
	{ID: "tech-003", Topic: "technology", Text: "The key difference between RAM and ROM is that RAM is volatile and writable while ROM is non-volatile and primarily read-only."},

	{ID: "phy-001", Topic: "physics", Text: "The speed of light in a vacuum is approximately 299,792 kilometers per second, often rounded to 300,000 km/s."},
	{ID: "phy-002", Topic: "physics", Text: "According to Einstein's theory of relativity, nothing with mass can travel faster than the speed of light."},
	{ID: "phy-003", Topic: "physics", Text: "Light from the Sun takes about 8 minutes and 20 seconds to reach Earth."},

	{ID: "lit-001", Topic: "literature", Text: "Pride and Prejudice is a novel by Jane Austen, published in 1813. It follows Elizabeth Bennet and Mr. Darcy."},
	{ID: "lit-002", Topic: "literature", Text: "Jane Austen was an English novelist known for works including Sense and Sensibility, Emma, and Pride and Prejudice."},
	{ID: "lit-003", Topic: "literature", Text: "Pride and Prejudice explores themes of class, marriage, and first impressions in Georgian-era England."},

	{ID: "ml-001", Topic: "machine learning", Text: "Supervised learning trains models on labeled data, where each example has an input and a known correct output."},
	{ID: "ml-002", Topic: "machine learning", Text: "Unsupervised learning finds patterns in unlabeled data, for example through clustering or dimensionality reduction."},
	{ID: "ml-003", Topic: "machine learning", Text: "The main difference between supervised and unsupervised learning is whether the training data includes labels."},
}

// DemoRAG answers from a fixed in-memory corpus with deterministic
// lexical retrieval and an extractive answer, so the full evaluation
// loop works without any external model.
type DemoRAG struct {
	topK int
}

func NewDemoRAG(topK int) *DemoRAG {
	if topK <= 0 {
		topK = 3
	}
	return &DemoRAG{topK: topK}
}

func (a *DemoRAG) Setup(ctx context.Context) error { return nil }
func (a *DemoRAG) Teardown() error                 { return nil }

func (a *DemoRAG) Run(ctx context.Context, query string) (*models.PipelineOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if isUnsafeQuery(query) {
		return &models.PipelineOutput{
			Answer:   "I cannot help with that request. I can only answer questions about the topics in my knowledge base.",
			Metadata: map[string]any{"adapter": "demo_rag", "refused": true},
		}, nil
	}

	type scored struct {
		chunk ragChunk
		score float64
	}
	ranked := make([]scored, 0, len(ragCorpus))
	for _, chunk := range ragCorpus {
		if s := lexicalScore(query, chunk.Text); s > 0 {
			ranked = append(ranked, scored{chunk: chunk, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > a.topK {
		ranked = ranked[:a.topK]
	}

	contexts := make([]string, 0, len(ranked))
	scores := make([]float64, 0, len(ranked))
	for _, r := range ranked {
		contexts = append(contexts, r.chunk.Text)
		scores = append(scores, r.score)
	}

	answer := "I could not find relevant information in my knowledge base to answer that question."
	if len(ranked) > 0 {
		answer = a.compose(query, ranked[0].chunk)
	}

	return &models.PipelineOutput{
		Answer:            answer,
		RetrievedContexts: contexts,
		Metadata: map[string]any{
			"adapter":          "demo_rag",
			"top_k":            a.topK,
			"retrieval_scores": scores,
		},
	}, nil
}

// compose builds an extractive answer grounded in the best chunk. The
// leading sentence keeps answer wording close to the source text so
// faithfulness scoring behaves like a real grounded pipeline.
func (a *DemoRAG) compose(query string, best ragChunk) string {
	sentence := best.Text
	if idx := strings.Index(sentence, ". "); idx > 0 {
		// Prefer the sentence with the highest query overlap.
		bestScore := -1.0
		for _, candidate := range strings.SplitAfter(best.Text, ". ") {
			candidate = strings.TrimSpace(candidate)
			if candidate == "" {
				continue
			}
			if s := lexicalScore(query, candidate); s > bestScore {
				bestScore = s
				sentence = candidate
			}
		}
	}
	return fmt.Sprintf("Based on the available information: %s", sentence)
}

var unsafeMarkers = []string{
	"hack into", "steal", "make a bomb", "build a bomb", "how to harm",
	"illegal drugs", "bypass security",
}

func isUnsafeQuery(query string) bool {
	lowered := strings.ToLower(query)
	for _, marker := range unsafeMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
