package analysis_test

import (
	"testing"
)

func TestPolarityScorer(t *testing.T) {
	t.Parallel()

	e := newTestEnsemble()

	testCases := []struct {
		name     string
		body     string
		wantSign int
	}{
		{name: "positive word", body: "good", wantSign: 1},
		{name: "negative word", body: "awful", wantSign: -1},
		{name: "negated positive flips", body: "not good", wantSign: -1},
		{name: "negated negative flips", body: "not bad", wantSign: 1},
		{name: "intensifier keeps sign", body: "very good", wantSign: 1},
		{name: "no recognized words", body: "zxqv flrm grxl", wantSign: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := e.Score(tc.body).PolarityScore
			switch {
			case tc.wantSign > 0 && got <= 0:
				t.Errorf("polarity = %v, want positive", got)
			case tc.wantSign < 0 && got >= 0:
				t.Errorf("polarity = %v, want negative", got)
			case tc.wantSign == 0 && got != 0:
				t.Errorf("polarity = %v, want 0", got)
			}
		})
	}
}

func TestPolarityIntensifierBoosts(t *testing.T) {
	t.Parallel()

	e := newTestEnsemble()

	plain := e.Score("good").PolarityScore
	boosted := e.Score("very good").PolarityScore
	if boosted <= plain {
		t.Errorf("intensified score %v not greater than plain %v", boosted, plain)
	}
}
