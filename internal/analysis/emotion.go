package analysis

import "strings"

// EmotionNames is the fixed 5-way emotion set, in canonical order.
var EmotionNames = []string{"joy", "anger", "sadness", "fear", "surprise"}

// emotionScale is the number of matched terms that saturates an emotion
// score at 1.0.
const emotionScale = 3.0

// emotionLexicon maps each emotion to its trigger terms. Terms include the
// emoji commonly used for the emotion. Read-only after init.
var emotionLexicon = map[string][]string{
	"joy":      {"happy", "glad", "awesome", "great", "fantastic", "love", "excellent", "😊", "😄", "🎉"},
	"anger":    {"angry", "mad", "furious", "hate", "terrible", "worst", "😠", "🤬", "😤"},
	"sadness":  {"sad", "sorry", "hurt", "upset", "down", "depressed", "😢", "😭", "😔"},
	"fear":     {"afraid", "scared", "worried", "anxious", "nervous", "😨", "😰", "😟"},
	"surprise": {"wow", "amazing", "shocking", "unexpected", "😲", "🤯", "😯"},
}

// ClassifyEmotions counts lexicon term occurrences per emotion and scales
// each count by a fixed constant, clamped to [0,1]. An unmatched or empty
// body yields an all-zero map. Scores need not sum to 1.
func ClassifyEmotions(body string) map[string]float64 {
	scores := make(map[string]float64, len(EmotionNames))
	for _, name := range EmotionNames {
		scores[name] = 0
	}

	if strings.TrimSpace(body) == "" {
		return scores
	}

	lower := strings.ToLower(body)
	for name, terms := range emotionLexicon {
		count := 0
		for _, term := range terms {
			count += strings.Count(lower, term)
		}
		scores[name] = clamp01(float64(count) / emotionScale)
	}

	return scores
}
