package analysis

import (
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
)

// LanguageDetector wraps whatlanggo with the fallback policy the pipeline
// needs: short bodies and inconclusive detections yield the configured
// default code with confidence 0 instead of an error.
type LanguageDetector struct {
	DefaultCode string
	MinLength   int
}

// Detect returns the best-guess ISO 639-1 code for body with the detector's
// native confidence normalized to [0,1]. Detection failure is never a
// message-analysis failure.
func (d LanguageDetector) Detect(body string) LanguageResult {
	trimmed := strings.TrimSpace(body)
	if utf8.RuneCountInString(trimmed) < d.MinLength {
		return LanguageResult{Code: d.DefaultCode, Confidence: 0}
	}

	info := whatlanggo.Detect(trimmed)
	code := info.Lang.Iso6391()
	if code == "" {
		return LanguageResult{Code: d.DefaultCode, Confidence: 0}
	}

	return LanguageResult{Code: code, Confidence: clamp01(info.Confidence)}
}
