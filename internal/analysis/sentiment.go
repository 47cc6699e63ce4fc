package analysis

import (
	"math"
	"strings"

	"github.com/jonreiter/govader"
)

// SentimentEnsemble runs two independent lexicon scorers over a message body
// and combines them with fixed weights. The VADER analyzer is read-only after
// construction, so one ensemble may be shared across goroutines.
type SentimentEnsemble struct {
	vader *govader.SentimentIntensityAnalyzer

	vaderWeight       float64
	polarityWeight    float64
	positiveThreshold float64
	negativeThreshold float64
}

// NewSentimentEnsemble builds an ensemble with the given weights and label
// thresholds. The stock configuration is 0.6/0.4 and ±0.05.
func NewSentimentEnsemble(vaderWeight, polarityWeight, positiveThreshold, negativeThreshold float64) *SentimentEnsemble {
	return &SentimentEnsemble{
		vader:             govader.NewSentimentIntensityAnalyzer(),
		vaderWeight:       vaderWeight,
		polarityWeight:    polarityWeight,
		positiveThreshold: positiveThreshold,
		negativeThreshold: negativeThreshold,
	}
}

// Score analyzes body with both scorers and returns the combined result.
// An empty body yields all-zero scores with a Neutral label, not an error.
func (e *SentimentEnsemble) Score(body string) SentimentResult {
	if strings.TrimSpace(body) == "" {
		return SentimentResult{
			VaderLabel:    LabelNeutral,
			PolarityLabel: LabelNeutral,
			EnsembleLabel: LabelNeutral,
		}
	}

	vaderScore := e.vader.PolarityScores(body).Compound
	polarityScore := scorePolarity(body)

	ensemble := e.vaderWeight*vaderScore + e.polarityWeight*polarityScore

	return SentimentResult{
		VaderScore:    vaderScore,
		VaderLabel:    labelFor(vaderScore, e.positiveThreshold, e.negativeThreshold),
		PolarityScore: polarityScore,
		PolarityLabel: labelFor(polarityScore, e.positiveThreshold, e.negativeThreshold),
		EnsembleScore: ensemble,
		EnsembleLabel: labelFor(ensemble, e.positiveThreshold, e.negativeThreshold),
		Confidence:    e.confidence(vaderScore, polarityScore, ensemble),
	}
}

// confidence scales |ensemble| by scorer agreement: full agreement keeps the
// magnitude, maximal disagreement zeroes it. The value reaches 1 only when
// both scorers report ±1 in the same direction.
func (e *SentimentEnsemble) confidence(vaderScore, polarityScore, ensemble float64) float64 {
	agreement := clamp01(1 - math.Abs(vaderScore-polarityScore)/2)
	return math.Min(math.Abs(ensemble)*agreement, 1)
}
