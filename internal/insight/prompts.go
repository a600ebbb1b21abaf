package insight

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/callsight/models"
)

// promptContext renders the retrieved conversations into the context block
// shared by every category prompt. Long transcripts fall back to the
// ingestion-time summary to respect model input limits.
func promptContext(hits []Hit, charBudget int) string {
	if charBudget <= 0 {
		charBudget = 2000
	}
	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "Conversation %s (started %s, similarity %.2f):\n", h.ID, h.StartedAt.Format("2006-01-02"), h.Similarity)
		text := h.Record.TranscriptText()
		if len(text) > charBudget && h.Record.Summary != "" {
			b.WriteString("Summary: ")
			b.WriteString(strings.TrimSpace(h.Record.Summary))
			b.WriteString("\n")
		} else {
			if len(text) > charBudget {
				text = text[:charBudget]
			}
			b.WriteString(strings.TrimSpace(text))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func buildPrompt(category Category, rng models.DateRange, hits []Hit, charBudget int) string {
	header := fmt.Sprintf(`You are an analyst reviewing recorded conversations between callers and an automated phone agent.
Date range: %s. You are given %d conversations selected for relevance to this analysis.

CONVERSATIONS:
%s`, rng.Key(), len(hits), promptContext(hits, charBudget))

	var task string
	switch category {
	case CategoryOverallSentiment:
		task = `Assess the overall sentiment of these conversations.

RESPONSE FORMAT:
Respond ONLY with valid JSON in the following format:
{
  "overall": "positive|neutral|negative",
  "caller": "positive|neutral|negative",
  "agent": "positive|neutral|negative",
  "score": 0.0,
  "distribution": {"positive": 0, "neutral": 0, "negative": 0}
}
"score" must be a number between -1 and 1. "distribution" must count each conversation exactly once.
Do not include any other text or explanation.`
	case CategoryTopThemes:
		task = `Identify the main themes discussed, ranked by how often they come up.

RESPONSE FORMAT:
Respond ONLY with valid JSON in the following format:
{"themes": [{"name": "theme name", "mentions": 0, "sentiment": "positive|neutral|negative"}]}
Order themes by mentions, highest first. Do not include any other text or explanation.`
	case CategorySentimentTrends:
		task = `Estimate how caller sentiment changed over the date range, one data point per day that has conversations.

RESPONSE FORMAT:
Respond ONLY with valid JSON in the following format:
{"points": [{"day": "YYYY-MM-DD", "score": 0.0, "volume": 0}]}
"score" must be between -1 and 1; "volume" is the number of sampled conversations that day.
Order points by day ascending. Do not include any other text or explanation.`
	case CategoryThemeSentimentCorrelation:
		task = `Correlate discussed themes with caller sentiment.

RESPONSE FORMAT:
Respond ONLY with valid JSON in the following format:
{"correlations": [{"theme": "theme name", "sentiment": "positive|neutral|negative", "score": 0.0, "mentions": 0}]}
"score" must be between -1 and 1. Order by absolute score, strongest first.
Do not include any other text or explanation.`
	case CategoryCommonQuestions:
		task = `Extract the questions callers asked most, quoting them verbatim.

RESPONSE FORMAT:
Respond ONLY with valid JSON in the following format:
{"quotes": [{"text": "verbatim question", "speaker": "caller", "conversation_id": "id"}]}
"conversation_id" must be one of the conversation ids shown above.
Do not include any other text or explanation.`
	case CategoryConcernsSkepticism:
		task = `Extract quotes where callers expressed doubts, concerns or skepticism.

RESPONSE FORMAT:
Respond ONLY with valid JSON in the following format:
{"quotes": [{"text": "verbatim quote", "speaker": "caller", "conversation_id": "id"}]}
"conversation_id" must be one of the conversation ids shown above.
Do not include any other text or explanation.`
	case CategoryPositiveInteractions:
		task = `Extract quotes showing positive moments: satisfaction, gratitude, enthusiasm.

RESPONSE FORMAT:
Respond ONLY with valid JSON in the following format:
{"quotes": [{"text": "verbatim quote", "speaker": "caller|agent", "conversation_id": "id"}]}
"conversation_id" must be one of the conversation ids shown above.
Do not include any other text or explanation.`
	}
	return header + "\n" + task
}

// buildAskPrompt renders the ad-hoc question prompt with retrieved context.
func buildAskPrompt(question string, rng models.DateRange, hits []Hit, charBudget int) string {
	return fmt.Sprintf(`You are an analyst reviewing recorded conversations between callers and an automated phone agent.
Date range: %s. Answer the question using ONLY the conversations below. If they do not contain the answer, say so.

CONVERSATIONS:
%s
QUESTION: %s

Answer concisely in plain text.`, rng.Key(), promptContext(hits, charBudget), question)
}
