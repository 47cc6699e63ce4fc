package analysis_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/chatlens/chatlens/internal/analysis"
)

func newTestPipeline() *analysis.Pipeline {
	return analysis.NewPipeline(analysis.Options{}, nil)
}

func TestAnalyzeTranscriptEmptyInput(t *testing.T) {
	t.Parallel()

	p := newTestPipeline()

	result, err := p.AnalyzeTranscript(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalMessages != 0 || result.MatchedMessages != 0 {
		t.Errorf("expected zero messages, got total=%d matched=%d", result.TotalMessages, result.MatchedMessages)
	}
	if result.OverallSentiment.Label != analysis.LabelNeutral || result.OverallSentiment.Score != 0 {
		t.Errorf("overall sentiment = %+v, want neutral zero", result.OverallSentiment)
	}
	want := "Analyzed 0 messages with Neutral overall sentiment"
	if result.Summary != want {
		t.Errorf("summary = %q, want %q", result.Summary, want)
	}
}

func TestAnalyzeTranscriptParseQualityFailure(t *testing.T) {
	t.Parallel()

	p := newTestPipeline()

	raw := strings.Join([]string{
		"garbage line one",
		"garbage line two",
		"garbage line three",
		"garbage line four",
		"garbage line five",
	}, "\n")

	result, err := p.AnalyzeTranscript(context.Background(), raw)
	if result != nil {
		t.Fatalf("expected nil result, got %+v", result)
	}

	var qualityErr *analysis.ParseQualityError
	if !errors.As(err, &qualityErr) {
		t.Fatalf("expected ParseQualityError, got %v", err)
	}
	if qualityErr.TotalLinesRead != 5 {
		t.Errorf("total lines read = %d, want 5", qualityErr.TotalLinesRead)
	}
	if qualityErr.MatchedLines != 0 {
		t.Errorf("matched lines = %d, want 0", qualityErr.MatchedLines)
	}
	if len(qualityErr.FailedLines) != 5 {
		t.Errorf("failed line sample = %d, want 5", len(qualityErr.FailedLines))
	}
	wantMsg := "no usable messages found: total_lines_read=5, matched_lines=0"
	if qualityErr.Error() != wantMsg {
		t.Errorf("error = %q, want %q", qualityErr.Error(), wantMsg)
	}
}

func TestAnalyzeTranscriptFailedLineSampleCapped(t *testing.T) {
	t.Parallel()

	p := newTestPipeline()

	var lines []string
	for i := 0; i < 25; i++ {
		lines = append(lines, fmt.Sprintf("unparseable line %d", i))
	}

	_, err := p.AnalyzeTranscript(context.Background(), strings.Join(lines, "\n"))

	var qualityErr *analysis.ParseQualityError
	if !errors.As(err, &qualityErr) {
		t.Fatalf("expected ParseQualityError, got %v", err)
	}
	if qualityErr.TotalLinesRead != 25 {
		t.Errorf("total lines read = %d, want 25", qualityErr.TotalLinesRead)
	}
	if len(qualityErr.FailedLines) != 10 {
		t.Errorf("failed line sample = %d, want 10", len(qualityErr.FailedLines))
	}
}

func TestAnalyzeTranscriptAggregation(t *testing.T) {
	t.Parallel()

	p := newTestPipeline()

	raw := strings.Join([]string{
		"8/15/2024, 10:30 PM - Alice: I love this plan, it is awesome! 🎉🎉",
		"8/15/2024, 10:31 PM - Bob: sounds good to me",
		"8/15/2024, 10:32 PM - Alice: see everyone tomorrow at the meeting 🎉",
		"8/15/2024, 10:33 PM - Alice: bringing the project documents",
	}, "\n")

	result, err := p.AnalyzeTranscript(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalMessages != 4 || result.MatchedMessages != 4 {
		t.Errorf("totals = %d/%d, want 4/4", result.TotalMessages, result.MatchedMessages)
	}
	if result.FailedLineCount != 0 {
		t.Errorf("failed line count = %d, want 0", result.FailedLineCount)
	}
	if len(result.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(result.Messages))
	}

	// Language distribution percentages must sum to 100.
	var langSum float64
	for _, pct := range result.LanguageDist {
		langSum += pct
	}
	if math.Abs(langSum-100) > 1e-6 {
		t.Errorf("language distribution sums to %v, want 100", langSum)
	}

	// Emotion distribution sums to 100 when any emotion matched, 0 otherwise.
	var emotionSum float64
	for _, pct := range result.EmotionDist {
		emotionSum += pct
	}
	if emotionSum != 0 && math.Abs(emotionSum-100) > 1e-6 {
		t.Errorf("emotion distribution sums to %v, want 0 or 100", emotionSum)
	}

	if len(result.MostActive) == 0 {
		t.Fatal("expected sender ranking")
	}
	if result.MostActive[0].Sender != "Alice" || result.MostActive[0].Count != 3 {
		t.Errorf("top sender = %+v, want Alice with 3", result.MostActive[0])
	}

	if len(result.TopEmojis) == 0 {
		t.Fatal("expected emoji ranking")
	}
	if result.TopEmojis[0].Emoji != "🎉" || result.TopEmojis[0].Count != 3 {
		t.Errorf("top emoji = %+v, want 🎉 with 3", result.TopEmojis[0])
	}

	wantSummary := fmt.Sprintf("Analyzed 4 messages with %s overall sentiment", result.OverallSentiment.Label)
	if result.Summary != wantSummary {
		t.Errorf("summary = %q, want %q", result.Summary, wantSummary)
	}
}

func TestAnalyzeTranscriptDeterministic(t *testing.T) {
	t.Parallel()

	p := newTestPipeline()

	raw := strings.Join([]string{
		"8/15/2024, 10:30 PM - Alice: great work everyone 😊",
		"8/15/2024, 10:31 PM - Bob: thanks, happy with the result",
		"8/15/2024, 10:32 PM - Carol: terrible weather today though",
	}, "\n")

	first, err := p.AnalyzeTranscript(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.AnalyzeTranscript(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Summary != second.Summary {
		t.Errorf("summaries differ: %q vs %q", first.Summary, second.Summary)
	}
	if first.OverallSentiment != second.OverallSentiment {
		t.Errorf("overall sentiment differs: %+v vs %+v", first.OverallSentiment, second.OverallSentiment)
	}
	for i := range first.Messages {
		if first.Messages[i].Sentiment != second.Messages[i].Sentiment {
			t.Errorf("message %d sentiment differs between runs", i)
		}
	}
}

func TestAnalyzeTranscriptMixedFailedLines(t *testing.T) {
	t.Parallel()

	p := newTestPipeline()

	raw := strings.Join([]string{
		"orphan line before any message",
		"8/15/2024, 10:30 PM - Alice: hello",
	}, "\n")

	result, err := p.AnalyzeTranscript(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MatchedMessages != 1 {
		t.Errorf("matched = %d, want 1", result.MatchedMessages)
	}
	if result.FailedLineCount != 1 {
		t.Errorf("failed line count = %d, want 1", result.FailedLineCount)
	}
	if len(result.FailedLines) != 1 || result.FailedLines[0].LineNumber != 1 {
		t.Errorf("failed lines = %+v", result.FailedLines)
	}
}
