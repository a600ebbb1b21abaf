package insight

import (
	"time"
)

// Category is one of the fixed analytical dimensions computed per date
// range. The set is closed: each category carries a contractual retrieval
// size and similarity floor that are surfaced to end users as tooltips and
// must not drift from the implementation.
type Category string

const (
	CategoryOverallSentiment         Category = "overall_sentiment"
	CategoryTopThemes                Category = "top_themes"
	CategorySentimentTrends          Category = "sentiment_trends"
	CategoryThemeSentimentCorrelation Category = "theme_sentiment_correlation"
	CategoryCommonQuestions          Category = "common_questions"
	CategoryConcernsSkepticism       Category = "concerns_skepticism"
	CategoryPositiveInteractions     Category = "positive_interactions"
)

// Categories returns all categories in stable dashboard order.
func Categories() []Category {
	return []Category{
		CategoryOverallSentiment,
		CategoryTopThemes,
		CategorySentimentTrends,
		CategoryThemeSentimentCorrelation,
		CategoryCommonQuestions,
		CategoryConcernsSkepticism,
		CategoryPositiveInteractions,
	}
}

// Spec is the public retrieval contract of a category.
type Spec struct {
	Title string  `json:"title"`
	K     int     `json:"k"`
	Floor float64 `json:"floor"`
	// Probe is the canonical text embedded to select conversations for
	// this category's analysis.
	Probe string `json:"-"`
}

var categorySpecs = map[Category]Spec{
	CategoryOverallSentiment: {
		Title: "Overall Sentiment",
		K:     10,
		Floor: 0.35,
		Probe: "overall emotional tone and sentiment of the conversation between the caller and the agent",
	},
	CategoryTopThemes: {
		Title: "Top Themes",
		K:     10,
		Floor: 0.35,
		Probe: "main topics, subjects and themes discussed during the conversation",
	},
	CategorySentimentTrends: {
		Title: "Sentiment Trends",
		K:     15,
		Floor: 0.35,
		Probe: "how caller sentiment and satisfaction evolved over time across conversations",
	},
	CategoryThemeSentimentCorrelation: {
		Title: "Theme / Sentiment Correlation",
		K:     10,
		Floor: 0.35,
		Probe: "which discussed topics correlate with positive or negative caller sentiment",
	},
	CategoryCommonQuestions: {
		Title: "Common Questions",
		K:     12,
		Floor: 0.35,
		Probe: "questions the caller asked the agent and information requests",
	},
	CategoryConcernsSkepticism: {
		Title: "Concerns & Skepticism",
		K:     12,
		Floor: 0.35,
		Probe: "caller doubts, concerns, objections, frustration and skepticism",
	},
	CategoryPositiveInteractions: {
		Title: "Positive Interactions",
		K:     10,
		Floor: 0.35,
		Probe: "moments where the caller expressed satisfaction, gratitude or enthusiasm",
	},
}

// Valid reports whether c is one of the seven known categories.
func (c Category) Valid() bool {
	_, ok := categorySpecs[c]
	return ok
}

// Spec returns the category's contractual K, floor and probe text.
func (c Category) Spec() Spec { return categorySpecs[c] }

// Contracts exposes the per-category retrieval contracts for the UI
// tooltips endpoint, keyed by category name.
func Contracts() map[Category]Spec {
	out := make(map[Category]Spec, len(categorySpecs))
	for c, s := range categorySpecs {
		out[c] = s
	}
	return out
}

// SentimentSummary is the overall_sentiment content shape.
type SentimentSummary struct {
	Overall string `json:"overall"`
	Caller  string `json:"caller"`
	Agent   string `json:"agent"`
	// Score is normalized to [-1, 1].
	Score        float64        `json:"score"`
	Distribution map[string]int `json:"distribution"`
}

// Theme is one ranked entry in top_themes.
type Theme struct {
	Name      string `json:"name"`
	Mentions  int    `json:"mentions"`
	Sentiment string `json:"sentiment,omitempty"`
}

// TrendPoint is one per-day aggregate in sentiment_trends.
type TrendPoint struct {
	Day    string  `json:"day"` // YYYY-MM-DD
	Score  float64 `json:"score"`
	Volume int     `json:"volume"`
}

// TrendSeries is the sentiment_trends content shape. The series is an
// estimate over the sampled conversations, not a population aggregate.
type TrendSeries struct {
	Points     []TrendPoint `json:"points"`
	SampleSize int          `json:"sample_size"`
	Note       string       `json:"note"`
}

// ThemeSentiment is one entry in theme_sentiment_correlation.
type ThemeSentiment struct {
	Theme     string  `json:"theme"`
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
	Mentions  int     `json:"mentions"`
}

// Quote is one attributed quote for questions/concerns/positive categories.
// ConversationID always references a retrieved conversation so the UI can
// open the originating transcript.
type Quote struct {
	Text           string `json:"text"`
	Speaker        string `json:"speaker"`
	ConversationID string `json:"conversation_id"`
}

// Content carries the category-specific payload. Exactly one group of
// fields is populated depending on the category.
type Content struct {
	Sentiment    *SentimentSummary `json:"sentiment,omitempty"`
	Themes       []Theme           `json:"themes,omitempty"`
	Trends       *TrendSeries      `json:"trends,omitempty"`
	Correlations []ThemeSentiment  `json:"correlations,omitempty"`
	Quotes       []Quote           `json:"quotes,omitempty"`
}

// Result is one generated insight.
type Result struct {
	Category    Category  `json:"category"`
	Content     Content   `json:"content"`
	SourceIDs   []string  `json:"source_ids"`
	GeneratedAt time.Time `json:"generated_at"`
	// Cached is true when the result was served from a still-valid cache
	// entry rather than computed for this request.
	Cached bool `json:"cached"`
}
