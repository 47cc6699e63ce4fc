package analysis

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bbalet/stopwords"
	"github.com/forPelevin/gomoji"
)

var (
	keywordTokenRE = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	keywordURLRE   = regexp.MustCompile(`https?://\S+|www\.\S+|\S+@\S+`)
)

// minKeywordLength drops short filler tokens the stopword list misses.
const minKeywordLength = 4

// ExtractKeywords returns the top-k terms of body by in-message frequency.
// Text is lowercased and tokenized on non-alphanumeric boundaries after URLs,
// emails, and emoji are stripped; stopwords and short tokens are removed.
// Ties are broken by first occurrence order. Bodies with no surviving tokens
// yield an empty list.
func ExtractKeywords(body string, k int) []Keyword {
	if k <= 0 || strings.TrimSpace(body) == "" {
		return nil
	}

	clean := keywordURLRE.ReplaceAllString(body, " ")
	clean = gomoji.RemoveEmojis(clean)

	tokens := keywordTokenRE.FindAllString(strings.ToLower(clean), -1)
	if len(tokens) == 0 {
		return nil
	}

	counts := make(map[string]int, len(tokens))
	var order []string
	for _, tok := range tokens {
		if len([]rune(tok)) < minKeywordLength {
			continue
		}
		if strings.TrimSpace(stopwords.CleanString(tok, "en", false)) == "" {
			continue
		}
		if _, seen := counts[tok]; !seen {
			order = append(order, tok)
		}
		counts[tok]++
	}

	if len(order) == 0 {
		return nil
	}

	// Stable sort over first-occurrence order gives the documented tie-break.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > k {
		order = order[:k]
	}

	keywords := make([]Keyword, len(order))
	for i, term := range order {
		keywords[i] = Keyword{Term: term, Frequency: counts[term]}
	}
	return keywords
}
