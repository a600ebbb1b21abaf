package insight

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/callsight/models"
)

// Ad-hoc retrieval defaults. Looser than category contracts is not needed
// here; these are documented as part of the ask endpoint's behaviour.
const (
	AskTopK  = 10
	AskFloor = 0.35
)

// NoRelevantAnswer is returned verbatim when retrieval comes back empty so
// the model is never asked to answer from nothing.
const NoRelevantAnswer = "No relevant conversations found in this range."

// Answer is the response to one ad-hoc question.
type Answer struct {
	ID        string           `json:"id"`
	Question  string           `json:"question"`
	Range     models.DateRange `json:"range"`
	Answer    string           `json:"answer"`
	SourceIDs []string         `json:"source_ids"`
	CreatedAt time.Time        `json:"created_at"`
}

// AskService answers one-shot free-text questions over a date-range-scoped
// retrieval. Deliberately uncached: ad-hoc questions are not expected to
// repeat, so the recompute cost is accepted per request.
type AskService struct {
	retriever  retrievalService
	provider   textGenerator
	timeout    time.Duration
	charBudget int
	logger     *log.Logger
}

// NewAskService builds the ad-hoc query service.
func NewAskService(retriever retrievalService, provider textGenerator, timeout time.Duration, charBudget int, logger *log.Logger) *AskService {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if charBudget <= 0 {
		charBudget = 2000
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ASK] ", log.LstdFlags)
	}
	return &AskService{retriever: retriever, provider: provider, timeout: timeout, charBudget: charBudget, logger: logger}
}

// Ask retrieves context for the question and generates a cited answer.
// Errors surface directly to the caller; there is no cache layer here.
func (a *AskService) Ask(ctx context.Context, rng models.DateRange, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("question required")
	}
	if err := rng.Validate(); err != nil {
		return Answer{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ret, err := a.retriever.Retrieve(ctx, rng, question, AskTopK, AskFloor)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve context: %w", err)
	}

	answer := Answer{
		ID:        uuid.NewString(),
		Question:  question,
		Range:     rng,
		CreatedAt: time.Now().UTC(),
	}
	if len(ret.Hits) == 0 {
		answer.Answer = NoRelevantAnswer
		answer.SourceIDs = []string{}
		return answer, nil
	}

	prompt := buildAskPrompt(question, rng, ret.Hits, a.charBudget)
	text, _, _, err := a.provider.GenerateWithTokens(ctx, prompt)
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}
	answer.Answer = strings.TrimSpace(text)
	answer.SourceIDs = ret.SourceIDs()
	return answer, nil
}
