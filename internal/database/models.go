package database

import (
	"time"

	"github.com/chatlens/chatlens/internal/analysis"
)

// JobStatus enumerates the job state machine. Transitions are monotonic:
// pending -> running -> completed|failed; terminal states never change.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrorDetail carries the diagnostics attached to a parse-quality failure.
type ErrorDetail struct {
	TotalLinesRead int                   `json:"total_lines_read"`
	MatchedLines   int                   `json:"matched_lines"`
	FailedLines    []analysis.FailedLine `json:"failed_lines,omitempty"`
}

// Job tracks one analysis request end-to-end. Result is present iff
// status is completed; Error (and optionally ErrorDetail) iff failed.
type Job struct {
	ID          string           `json:"job_id"`
	Status      JobStatus        `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Error       string           `json:"error,omitempty"`
	ErrorDetail *ErrorDetail     `json:"error_detail,omitempty"`
	Result      *analysis.Result `json:"result,omitempty"`
}

// StoredMessage is the per-message record persisted for filtering and
// pagination after a job completes.
type StoredMessage struct {
	JobID         string             `json:"job_id"`
	Seq           int                `json:"seq"`
	Timestamp     *time.Time         `json:"timestamp,omitempty"`
	RawTimestamp  string             `json:"raw_timestamp"`
	Sender        string             `json:"sender"`
	Body          string             `json:"body"`
	Language      string             `json:"language"`
	VaderScore    float64            `json:"vader_score"`
	PolarityScore float64            `json:"polarity_score"`
	EnsembleScore float64            `json:"ensemble_score"`
	EnsembleLabel string             `json:"ensemble_label"`
	Emotions      map[string]float64 `json:"emotions"`
	Keywords      []string           `json:"keywords"`
}

// MessageFilter narrows QueryMessages results. Zero-valued fields are
// ignored; Limit and Offset paginate.
type MessageFilter struct {
	Sender    string
	Sentiment string
	Language  string
	Keyword   string
	Limit     int
	Offset    int
}
