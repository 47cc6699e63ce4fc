// Package analysis implements the per-message chat analysis pipeline and the
// conversation-level aggregation that follows it. All stages are deterministic
// pure functions of their input; repeated runs over the same transcript yield
// identical results.
package analysis

import (
	"time"
)

// Sentiment labels shared by every place a score is turned into a label.
const (
	LabelPositive = "Positive"
	LabelNegative = "Negative"
	LabelNeutral  = "Neutral"
)

// LanguageResult is the language detector's output for one message body.
type LanguageResult struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
}

// SentimentResult holds the per-scorer scores, the ensemble combination, and
// the derived label and confidence for one message body.
type SentimentResult struct {
	VaderScore    float64 `json:"vader_score"`
	VaderLabel    string  `json:"vader_label"`
	PolarityScore float64 `json:"polarity_score"`
	PolarityLabel string  `json:"polarity_label"`
	EnsembleScore float64 `json:"ensemble_score"`
	EnsembleLabel string  `json:"ensemble_label"`
	Confidence    float64 `json:"confidence"`
}

// Keyword is one extracted term with its in-message frequency.
type Keyword struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
}

// MediaType classifies media/link/document indicators found in a message.
type MediaType string

// Known media categories. A message may carry several.
const (
	MediaImage   MediaType = "image"
	MediaVideo   MediaType = "video"
	MediaAudio   MediaType = "audio"
	MediaDoc     MediaType = "document"
	MediaLink    MediaType = "link"
	MediaGeneric MediaType = "media_generic"
)

// MessageAnalysis is the full per-message analysis record. It is created once
// during pipeline execution and never mutated afterwards.
type MessageAnalysis struct {
	Language   LanguageResult     `json:"language"`
	Sentiment  SentimentResult    `json:"sentiment"`
	Emotions   map[string]float64 `json:"emotions"`
	Keywords   []Keyword          `json:"keywords"`
	Emojis     []string           `json:"emojis"`
	MediaFlags []MediaType        `json:"media_flags"`
}

// Message joins one parsed transcript entry with its analysis.
type Message struct {
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	RawTimestamp string     `json:"raw_timestamp"`
	Sender       string     `json:"sender"`
	Body         string     `json:"body"`

	MessageAnalysis
}

// FailedLine is an unparseable transcript line surfaced in results and
// error payloads.
type FailedLine struct {
	LineNumber int    `json:"line"`
	Text       string `json:"text"`
}

// OverallSentiment is the conversation-level sentiment aggregate.
type OverallSentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// RankedSender is one entry of the most-active-senders ranking.
type RankedSender struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}

// RankedEmoji is one entry of the top-emojis ranking, counted over raw
// occurrences across the whole transcript.
type RankedEmoji struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// Result is the conversation-level analysis for one job. Field names and
// nesting are a stable contract surface consumed verbatim by callers.
type Result struct {
	TotalMessages    int                `json:"total_messages"`
	MatchedMessages  int                `json:"matched_messages"`
	FailedLines      []FailedLine       `json:"failed_lines"`
	FailedLineCount  int                `json:"failed_line_count"`
	OverallSentiment OverallSentiment   `json:"overall_sentiment"`
	LanguageDist     map[string]float64 `json:"language_distribution"`
	EmotionDist      map[string]float64 `json:"emotion_distribution"`
	MostActive       []RankedSender     `json:"most_active_senders"`
	TopEmojis        []RankedEmoji      `json:"top_emojis"`
	Summary          string             `json:"summary"`
	Messages         []Message          `json:"messages"`
}

// labelFor derives a sentiment label from a score using the shared thresholds.
func labelFor(score, positiveThreshold, negativeThreshold float64) string {
	switch {
	case score >= positiveThreshold:
		return LabelPositive
	case score <= negativeThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
