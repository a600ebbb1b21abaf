package insight

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// stripCodeFence removes a surrounding markdown fence when the model wraps
// its JSON despite instructions.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// normalizeScore maps model-reported sentiment onto [-1, 1]. Values that
// look like a -100..100 scale are divided down first.
func normalizeScore(v float64) float64 {
	if math.Abs(v) > 1 && math.Abs(v) <= 100 {
		v = v / 100
	}
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return v
}

// parseResponse decodes the model output for a category into its content
// shape. sourceIDs is the retrieval set: quote attributions outside it are
// dropped so every citation stays traceable to a retrieved transcript.
func parseResponse(category Category, raw string, sourceIDs []string) (Content, error) {
	payload := stripCodeFence(raw)

	switch category {
	case CategoryOverallSentiment:
		var out SentimentSummary
		if err := json.Unmarshal([]byte(payload), &out); err != nil {
			return Content{}, fmt.Errorf("parse sentiment: %w", err)
		}
		if out.Overall == "" {
			return Content{}, fmt.Errorf("parse sentiment: missing overall label")
		}
		out.Score = normalizeScore(out.Score)
		return Content{Sentiment: &out}, nil

	case CategoryTopThemes:
		var out struct {
			Themes []Theme `json:"themes"`
		}
		if err := json.Unmarshal([]byte(payload), &out); err != nil {
			return Content{}, fmt.Errorf("parse themes: %w", err)
		}
		if out.Themes == nil {
			return Content{}, fmt.Errorf("parse themes: missing themes list")
		}
		return Content{Themes: out.Themes}, nil

	case CategorySentimentTrends:
		var out struct {
			Points []TrendPoint `json:"points"`
		}
		if err := json.Unmarshal([]byte(payload), &out); err != nil {
			return Content{}, fmt.Errorf("parse trends: %w", err)
		}
		if out.Points == nil {
			return Content{}, fmt.Errorf("parse trends: missing points list")
		}
		for i := range out.Points {
			if _, err := time.Parse("2006-01-02", out.Points[i].Day); err != nil {
				return Content{}, fmt.Errorf("parse trends: bad day %q", out.Points[i].Day)
			}
			out.Points[i].Score = normalizeScore(out.Points[i].Score)
		}
		series := &TrendSeries{
			Points:     out.Points,
			SampleSize: len(sourceIDs),
			Note:       fmt.Sprintf("Estimated from a sample of %d conversations, not an aggregate over all conversations in range.", len(sourceIDs)),
		}
		return Content{Trends: series}, nil

	case CategoryThemeSentimentCorrelation:
		var out struct {
			Correlations []ThemeSentiment `json:"correlations"`
		}
		if err := json.Unmarshal([]byte(payload), &out); err != nil {
			return Content{}, fmt.Errorf("parse correlations: %w", err)
		}
		if out.Correlations == nil {
			return Content{}, fmt.Errorf("parse correlations: missing correlations list")
		}
		for i := range out.Correlations {
			out.Correlations[i].Score = normalizeScore(out.Correlations[i].Score)
		}
		return Content{Correlations: out.Correlations}, nil

	case CategoryCommonQuestions, CategoryConcernsSkepticism, CategoryPositiveInteractions:
		var out struct {
			Quotes []Quote `json:"quotes"`
		}
		if err := json.Unmarshal([]byte(payload), &out); err != nil {
			return Content{}, fmt.Errorf("parse quotes: %w", err)
		}
		if out.Quotes == nil {
			return Content{}, fmt.Errorf("parse quotes: missing quotes list")
		}
		known := make(map[string]struct{}, len(sourceIDs))
		for _, id := range sourceIDs {
			known[id] = struct{}{}
		}
		kept := out.Quotes[:0]
		for _, q := range out.Quotes {
			if _, ok := known[q.ConversationID]; ok && strings.TrimSpace(q.Text) != "" {
				kept = append(kept, q)
			}
		}
		return Content{Quotes: kept}, nil
	}
	return Content{}, fmt.Errorf("unknown category %q", category)
}
