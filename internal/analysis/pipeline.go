package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chatlens/chatlens/internal/parser"
)

// Options carries the pipeline tunables. Zero values are replaced with the
// built-in defaults by NewPipeline.
type Options struct {
	KeywordTopK     int
	TopSenders      int
	TopEmojis       int
	DefaultLanguage string
	MinDetectLength int
	// MinMatchRatio is the minimum matched/total line ratio below which a
	// transcript is rejected as a parse-quality failure. Zero means only
	// fully unmatched input is rejected.
	MinMatchRatio    float64
	FailedLineSample int

	VaderWeight       float64
	PolarityWeight    float64
	PositiveThreshold float64
	NegativeThreshold float64
}

// ParseQualityError reports a transcript whose line match rate was too low to
// analyze. It carries the diagnostics callers need to fix their export format.
type ParseQualityError struct {
	TotalLinesRead int
	MatchedLines   int
	FailedLines    []FailedLine
}

func (e *ParseQualityError) Error() string {
	return fmt.Sprintf("no usable messages found: total_lines_read=%d, matched_lines=%d",
		e.TotalLinesRead, e.MatchedLines)
}

// Pipeline runs the full per-message analysis and aggregation for one
// transcript. All components it holds are read-only after construction, so
// one Pipeline is safe for concurrent use across jobs.
type Pipeline struct {
	logger    *slog.Logger
	opts      Options
	sentiment *SentimentEnsemble
	language  LanguageDetector
}

// NewPipeline constructs a Pipeline, applying built-in defaults for any
// zero-valued option.
func NewPipeline(opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.KeywordTopK <= 0 {
		opts.KeywordTopK = 3
	}
	if opts.TopSenders <= 0 {
		opts.TopSenders = 5
	}
	if opts.TopEmojis <= 0 {
		opts.TopEmojis = 10
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "en"
	}
	if opts.FailedLineSample <= 0 {
		opts.FailedLineSample = 10
	}
	if opts.VaderWeight == 0 && opts.PolarityWeight == 0 {
		opts.VaderWeight, opts.PolarityWeight = 0.6, 0.4
	}
	if opts.PositiveThreshold == 0 {
		opts.PositiveThreshold = 0.05
	}
	if opts.NegativeThreshold == 0 {
		opts.NegativeThreshold = -0.05
	}

	return &Pipeline{
		logger: logger.With("component", "pipeline"),
		opts:   opts,
		sentiment: NewSentimentEnsemble(
			opts.VaderWeight, opts.PolarityWeight,
			opts.PositiveThreshold, opts.NegativeThreshold),
		language: LanguageDetector{
			DefaultCode: opts.DefaultLanguage,
			MinLength:   opts.MinDetectLength,
		},
	}
}

// AnalyzeTranscript parses raw transcript text, analyzes every message, and
// aggregates the conversation-level result. It returns a *ParseQualityError
// when input lines exist but too few matched a known header format. An empty
// transcript is not an error: it yields an empty result.
func (p *Pipeline) AnalyzeTranscript(ctx context.Context, raw string) (*Result, error) {
	messages, failedLines, linesRead := parser.Parse(raw)

	if linesRead > 0 {
		matched := len(messages)
		if matched == 0 || float64(matched)/float64(linesRead) < p.opts.MinMatchRatio {
			return nil, &ParseQualityError{
				TotalLinesRead: linesRead,
				MatchedLines:   matched,
				FailedLines:    sampleFailedLines(failedLines, p.opts.FailedLineSample),
			}
		}
	}

	analyzed := make([]Message, len(messages))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, msg := range messages {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			analyzed[i] = p.analyzeMessage(msg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := p.aggregate(analyzed, failedLines)
	p.logger.Debug("transcript analyzed",
		"messages", result.MatchedMessages,
		"failed_lines", result.FailedLineCount)
	return result, nil
}

// analyzeMessage runs every per-message stage over one parsed message. Each
// stage is isolated: a panicking stage degrades to its documented neutral
// default and the other stages' outputs are kept.
func (p *Pipeline) analyzeMessage(msg parser.RawMessage) Message {
	out := Message{
		Timestamp:    msg.Timestamp,
		RawTimestamp: msg.RawTimestamp,
		Sender:       msg.Sender,
		Body:         msg.Body,
	}

	p.runStage("language", func() {
		out.Language = p.language.Detect(msg.Body)
	}, func() {
		out.Language = LanguageResult{Code: p.opts.DefaultLanguage, Confidence: 0}
	})

	p.runStage("sentiment", func() {
		out.Sentiment = p.sentiment.Score(msg.Body)
	}, func() {
		out.Sentiment = SentimentResult{
			VaderLabel:    LabelNeutral,
			PolarityLabel: LabelNeutral,
			EnsembleLabel: LabelNeutral,
		}
	})

	p.runStage("emotions", func() {
		out.Emotions = ClassifyEmotions(msg.Body)
	}, func() {
		out.Emotions = ClassifyEmotions("")
	})

	p.runStage("keywords", func() {
		out.Keywords = ExtractKeywords(msg.Body, p.opts.KeywordTopK)
	}, func() {
		out.Keywords = nil
	})

	p.runStage("emoji_media", func() {
		em := DetectEmojiMedia(msg.Body)
		out.Emojis = em.Emojis
		out.MediaFlags = em.MediaFlags
	}, func() {
		out.Emojis = nil
		out.MediaFlags = nil
	})

	return out
}

// runStage executes one analysis stage, converting a panic into the stage's
// fallback so a single message's analyzer fault never fails the whole job.
func (p *Pipeline) runStage(name string, stage func(), fallback func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("analysis stage recovered, using default result",
				"stage", name, "panic", r)
			fallback()
		}
	}()
	stage()
}

func sampleFailedLines(failed []parser.FailedLine, max int) []FailedLine {
	if len(failed) > max {
		failed = failed[:max]
	}
	out := make([]FailedLine, len(failed))
	for i, f := range failed {
		out[i] = FailedLine{LineNumber: f.LineNumber, Text: f.Text}
	}
	return out
}
