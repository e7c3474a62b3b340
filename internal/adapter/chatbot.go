package adapter

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/evalgate/evalgate/internal/models"
)

// chatbotKnowledge grounds the support agent's responses.
var chatbotKnowledge = []string{
	"TechStore offers free shipping on orders over $50. Standard shipping takes 3-5 business days.",
	"Our return policy allows returns within 30 days of purchase. Items must be unused and in original packaging. Refunds are processed within 5-7 business days.",
	"TechStore's laptop lineup: Budget Pro ($499), WorkStation X ($899), UltraBook Air ($1299), Gaming Beast ($1599), Creator Studio ($1999).",
	"Headphones catalog: BudgetBuds ($29), DailyDriver ($79), NoiseMaster Pro ($199), StudioElite ($349).",
	"Smartwatch models: FitTrack Basic ($199), FitTrack Pro ($299), LuxWatch ($499).",
	"Tablet lineup: TabLite ($299), TabPro ($599), TabMax ($899).",
	"Phone chargers: BasicCharge ($15), FastCharge 20W ($25), SuperCharge 65W ($35), MegaCharge 100W ($45).",
	"TechStore warranty: All products come with a 1-year manufacturer warranty. Extended 2-year warranty available for $49.",
	"Order tracking: Customers can track orders at techstore.com/track or by contacting support with order number (format: TS-XXXXX).",
	"Payment methods accepted: Visa, Mastercard, Amex, PayPal, Apple Pay, Google Pay. Financing available on orders over $500.",
}

const chatbotClosing = "Is there anything else I can help you with?"

// DemoChatbot plays Alex, a TechStore support agent, over a canned
// knowledge base. Dialogue state lives in a SessionStore so multi-turn
// cases evaluated sequentially share history, and sessions age out on
// their own.
type DemoChatbot struct {
	sessions  *SessionStore
	sessionID string
}

// NewDemoChatbot uses the given session store, or a private one when
// nil.
func NewDemoChatbot(sessions *SessionStore) *DemoChatbot {
	if sessions == nil {
		sessions = NewSessionStore(0, 0)
	}
	return &DemoChatbot{sessions: sessions}
}

func (a *DemoChatbot) Setup(ctx context.Context) error {
	a.sessionID = uuid.NewString()
	return nil
}

func (a *DemoChatbot) Teardown() error {
	if a.sessionID != "" {
		a.sessions.Reset(a.sessionID)
	}
	return nil
}

func (a *DemoChatbot) Run(ctx context.Context, query string) (*models.PipelineOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	history := a.sessions.History(a.sessionID)
	firstTurn := len(history) == 0

	knowledge := retrieveKnowledge(query)
	answer := a.respond(query, knowledge, firstTurn)

	a.sessions.Append(a.sessionID,
		models.Turn{Role: "user", Content: query},
		models.Turn{Role: "assistant", Content: answer},
	)

	history = a.sessions.History(a.sessionID)
	userTurns := 0
	for _, turn := range history {
		if turn.Role == "user" {
			userTurns++
		}
	}

	return &models.PipelineOutput{
		Answer:            answer,
		RetrievedContexts: knowledge,
		TurnHistory:       history,
		Metadata: map[string]any{
			"adapter":               "demo_chatbot",
			"turn_count":            userTurns,
			"knowledge_chunks_used": len(knowledge),
		},
	}, nil
}

// respond builds a grounded persona reply. First turns greet, unknowns
// defer to a specialist, everything closes with the standard line.
func (a *DemoChatbot) respond(query string, knowledge []string, firstTurn bool) string {
	var sb strings.Builder
	if firstTurn {
		sb.WriteString("Hi there, welcome to TechStore! I'm Alex. ")
	}

	lowered := strings.ToLower(query)
	switch {
	case strings.Contains(lowered, "order") && !strings.Contains(lowered, "ts-"):
		sb.WriteString("I'd be happy to help with your order. Could you share your order number? It starts with TS- followed by five digits (format: TS-XXXXX). ")
	case len(knowledge) > 0:
		sb.WriteString(knowledge[0])
		sb.WriteString(" ")
	case containsAny(lowered, "discount", "coupon", "promo code"):
		sb.WriteString("I'm sorry, I can't share internal pricing or discount codes. ")
	case containsAny(lowered, "thank", "thanks", "bye", "goodbye"):
		sb.WriteString("You're very welcome! ")
	default:
		sb.WriteString("Let me connect you with a specialist. ")
	}

	sb.WriteString(chatbotClosing)
	return sb.String()
}

// retrieveKnowledge is keyword-overlap retrieval, at least two shared
// terms, top three chunks.
func retrieveKnowledge(query string) []string {
	queryWords := map[string]struct{}{}
	for _, w := range tokenize(query) {
		queryWords[w] = struct{}{}
	}

	type scored struct {
		overlap int
		chunk   string
	}
	var matches []scored
	for _, chunk := range chatbotKnowledge {
		chunkWords := map[string]struct{}{}
		for _, w := range tokenize(chunk) {
			chunkWords[w] = struct{}{}
		}
		overlap := 0
		for w := range queryWords {
			if _, ok := chunkWords[w]; ok {
				overlap++
			}
		}
		if overlap >= 2 {
			matches = append(matches, scored{overlap: overlap, chunk: chunk})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].overlap > matches[j].overlap })
	if len(matches) > 3 {
		matches = matches[:3]
	}

	chunks := make([]string, len(matches))
	for i, m := range matches {
		chunks[i] = m.chunk
	}
	return chunks
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
