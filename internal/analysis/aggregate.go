package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chatlens/chatlens/internal/parser"
)

// aggregate rolls per-message analyses into the conversation-level result.
// Every ranking uses first-appearance order as the tie-break so output is
// stable across runs.
func (p *Pipeline) aggregate(messages []Message, failedLines []parser.FailedLine) *Result {
	result := &Result{
		TotalMessages:   len(messages),
		MatchedMessages: len(messages),
		FailedLines:     sampleFailedLines(failedLines, p.opts.FailedLineSample),
		FailedLineCount: len(failedLines),
		LanguageDist:    make(map[string]float64),
		EmotionDist:     make(map[string]float64),
		Messages:        messages,
	}

	if len(messages) == 0 {
		result.OverallSentiment = OverallSentiment{Score: 0, Label: LabelNeutral}
		result.Summary = fmt.Sprintf("Analyzed 0 messages with %s overall sentiment", LabelNeutral)
		return result
	}

	n := float64(len(messages))

	// Overall sentiment: arithmetic mean of ensemble scores, labeled with the
	// same thresholds the per-message scorers use.
	var sentimentSum float64
	for _, m := range messages {
		sentimentSum += m.Sentiment.EnsembleScore
	}
	overall := sentimentSum / n
	result.OverallSentiment = OverallSentiment{
		Score: overall,
		Label: labelFor(overall, p.opts.PositiveThreshold, p.opts.NegativeThreshold),
	}

	// Language distribution: percentage of messages per detected code.
	langCounts := make(map[string]int)
	for _, m := range messages {
		langCounts[m.Language.Code]++
	}
	for code, count := range langCounts {
		result.LanguageDist[code] = float64(count) / n * 100
	}

	// Emotion distribution: each emotion's share of the total accumulated
	// emotion mass. All-zero (not fabricated) when nothing matched.
	emotionSums := make(map[string]float64, len(EmotionNames))
	var emotionMass float64
	for _, m := range messages {
		for _, name := range EmotionNames {
			score := m.Emotions[name]
			emotionSums[name] += score
			emotionMass += score
		}
	}
	for _, name := range EmotionNames {
		if emotionMass > 0 {
			result.EmotionDist[name] = emotionSums[name] / emotionMass * 100
		} else {
			result.EmotionDist[name] = 0
		}
	}

	result.MostActive = rankSenders(messages, p.opts.TopSenders)
	result.TopEmojis = rankEmojis(messages, p.opts.TopEmojis)

	result.Summary = fmt.Sprintf("Analyzed %d messages with %s overall sentiment",
		len(messages), result.OverallSentiment.Label)

	return result
}

// rankSenders ranks senders by message count descending, ties broken by
// first appearance in the transcript, truncated to topN.
func rankSenders(messages []Message, topN int) []RankedSender {
	counts := make(map[string]int)
	var order []string
	for _, m := range messages {
		if _, seen := counts[m.Sender]; !seen {
			order = append(order, m.Sender)
		}
		counts[m.Sender]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topN {
		order = order[:topN]
	}

	ranked := make([]RankedSender, len(order))
	for i, sender := range order {
		ranked[i] = RankedSender{Sender: sender, Count: counts[sender]}
	}
	return ranked
}

// rankEmojis tallies raw emoji occurrences across all messages (the
// per-message lists are deduplicated, so counts come from the bodies) and
// ranks them descending with the first-seen tie-break.
func rankEmojis(messages []Message, topN int) []RankedEmoji {
	counts := make(map[string]int)
	var order []string
	for _, m := range messages {
		for _, e := range m.Emojis {
			if _, seen := counts[e]; !seen {
				order = append(order, e)
			}
			counts[e] += strings.Count(m.Body, e)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topN {
		order = order[:topN]
	}

	ranked := make([]RankedEmoji, len(order))
	for i, e := range order {
		ranked[i] = RankedEmoji{Emoji: e, Count: counts[e]}
	}
	return ranked
}
