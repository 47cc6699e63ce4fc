package analysis

import (
	"regexp"
	"strings"
)

// The polarity scorer is the ensemble's second, VADER-independent signal: a
// fixed valence lexicon averaged over the words it recognizes, with simple
// negation and intensifier handling. The lexicon is process-wide read-only
// state, never mutated after init.

var polarityTokenRE = regexp.MustCompile(`[\p{L}']+`)

// negators flip and dampen the valence of the word they precede.
var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "neither": {}, "nor": {}, "cannot": {},
	"don't": {}, "doesn't": {}, "didn't": {}, "isn't": {}, "aren't": {},
	"wasn't": {}, "weren't": {}, "won't": {}, "wouldn't": {}, "shouldn't": {},
	"couldn't": {}, "can't": {}, "ain't": {}, "hardly": {}, "barely": {},
	"scarcely": {},
}

// intensifiers strengthen the valence of the word they precede.
var intensifiers = map[string]float64{
	"very": 1.25, "really": 1.25, "extremely": 1.5, "so": 1.15,
	"totally": 1.25, "absolutely": 1.5, "incredibly": 1.5, "super": 1.25,
}

// polarityLexicon assigns word valences in [-1, 1].
var polarityLexicon = map[string]float64{
	// positive
	"good": 0.7, "great": 0.8, "excellent": 1.0, "awesome": 1.0,
	"amazing": 0.9, "fantastic": 0.9, "wonderful": 0.9, "perfect": 1.0,
	"love": 0.9, "loved": 0.9, "loves": 0.9, "lovely": 0.8, "like": 0.4,
	"liked": 0.4, "likes": 0.4, "enjoy": 0.6, "enjoyed": 0.6, "happy": 0.8,
	"happiest": 1.0, "glad": 0.7, "pleased": 0.6, "delighted": 0.9,
	"excited": 0.7, "exciting": 0.7, "fun": 0.6, "funny": 0.5, "cool": 0.5,
	"nice": 0.6, "best": 1.0, "better": 0.5, "beautiful": 0.8, "brilliant": 0.9,
	"superb": 0.9, "fabulous": 0.9, "impressive": 0.7, "outstanding": 0.9,
	"positive": 0.5, "win": 0.6, "won": 0.6, "winner": 0.7, "success": 0.7,
	"successful": 0.7, "thanks": 0.5, "thank": 0.5, "thankful": 0.7,
	"grateful": 0.7, "congratulations": 0.8, "congrats": 0.8, "welcome": 0.4,
	"yes": 0.3, "yay": 0.8, "hooray": 0.8, "sweet": 0.5, "kind": 0.5,
	"helpful": 0.6, "smart": 0.6, "clever": 0.6, "easy": 0.4, "safe": 0.4,
	"proud": 0.7, "adorable": 0.8, "awesomely": 0.9, "favorite": 0.7,
	"favourite": 0.7, "blessed": 0.7, "interesting": 0.5, "celebrate": 0.7,

	// negative
	"bad": -0.7, "terrible": -1.0, "horrible": -1.0, "awful": -0.9,
	"worst": -1.0, "worse": -0.6, "hate": -0.9, "hated": -0.9, "hates": -0.9,
	"dislike": -0.6, "angry": -0.7, "mad": -0.6, "furious": -0.9,
	"annoying": -0.6, "annoyed": -0.6, "sad": -0.7, "unhappy": -0.7,
	"miserable": -0.9, "depressed": -0.8, "depressing": -0.8, "upset": -0.6,
	"hurt": -0.6, "pain": -0.6, "painful": -0.7, "cry": -0.6, "crying": -0.6,
	"fail": -0.7, "failed": -0.7, "failure": -0.8, "lose": -0.5, "lost": -0.5,
	"loser": -0.7, "broken": -0.5, "broke": -0.4, "wrong": -0.5, "problem": -0.4,
	"problems": -0.4, "issue": -0.3, "issues": -0.3, "ugly": -0.7,
	"disgusting": -0.9, "gross": -0.7, "nasty": -0.7, "stupid": -0.8,
	"dumb": -0.7, "idiot": -0.8, "boring": -0.5, "bored": -0.5, "tired": -0.4,
	"sick": -0.5, "scared": -0.6, "afraid": -0.6, "worried": -0.5,
	"anxious": -0.5, "nervous": -0.4, "sorry": -0.3, "unfortunately": -0.4,
	"disappointed": -0.7, "disappointing": -0.7, "no": -0.2, "never": -0.3,
	"poor": -0.5, "cheap": -0.3, "slow": -0.3, "difficult": -0.4, "hard": -0.3,
	"impossible": -0.6, "danger": -0.6, "dangerous": -0.6, "dead": -0.7,
	"die": -0.7, "died": -0.7, "kill": -0.8, "killed": -0.8, "crap": -0.6,
	"damn": -0.4, "hell": -0.4, "sucks": -0.7, "suck": -0.7, "trash": -0.6,
	"garbage": -0.6, "useless": -0.7, "worthless": -0.8, "liar": -0.7,
	"lie": -0.5, "lies": -0.5, "fake": -0.5, "scam": -0.8, "fraud": -0.8,
}

// scorePolarity averages the valences of recognized words, flipping and
// dampening words preceded by a negator and boosting words preceded by an
// intensifier. Bodies with no recognized words score 0. The result is always
// in [-1, 1].
func scorePolarity(body string) float64 {
	tokens := polarityTokenRE.FindAllString(strings.ToLower(body), -1)
	if len(tokens) == 0 {
		return 0
	}

	var sum float64
	var matched int
	for i, tok := range tokens {
		valence, ok := polarityLexicon[tok]
		if !ok {
			continue
		}

		factor := 1.0
		for back := 1; back <= 2 && i-back >= 0; back++ {
			prev := tokens[i-back]
			if _, neg := negators[prev]; neg {
				factor *= -0.5
				break
			}
			if boost, isBoost := intensifiers[prev]; isBoost && back == 1 {
				factor *= boost
			}
		}

		sum += valence * factor
		matched++
	}

	if matched == 0 {
		return 0
	}

	score := sum / float64(matched)
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
