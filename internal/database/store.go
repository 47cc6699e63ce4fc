package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chatlens/chatlens/internal/analysis"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrJobNotFound is returned for lookups of unknown job ids.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidTransition is returned when a status update would violate
	// the pending -> running -> completed|failed state machine.
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// Store defines the persistence boundary for jobs and analyzed messages.
// Status updates are atomic with respect to concurrent readers: a reader
// never observes a completed job without its result. Methods accept
// context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	// CreateJob inserts a new job in pending state.
	CreateJob(ctx context.Context, job *Job) error

	// GetJob returns a snapshot of the job, or ErrJobNotFound.
	GetJob(ctx context.Context, id string) (*Job, error)

	// MarkJobRunning transitions pending -> running.
	MarkJobRunning(ctx context.Context, id string) error

	// CompleteJob transitions running -> completed and attaches the result.
	CompleteJob(ctx context.Context, id string, result *analysis.Result, completedAt time.Time) error

	// FailJob transitions running -> failed and attaches the error payload.
	// detail may be nil for failures with no structured diagnostics.
	FailJob(ctx context.Context, id string, errMsg string, detail *ErrorDetail, completedAt time.Time) error

	// SaveMessages persists the analyzed messages of a completed job.
	SaveMessages(ctx context.Context, jobID string, messages []analysis.Message) error

	// QueryMessages returns filtered, paginated messages for a job together
	// with the total match count before pagination.
	QueryMessages(ctx context.Context, jobID string, filter MessageFilter) ([]StoredMessage, int, error)

	// DeleteJobsBefore removes terminal jobs (and their messages) completed
	// before cutoff, returning the number of jobs deleted.
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// RunSQLMaintenance performs backend maintenance such as VACUUM.
	// It is a no-op for backends with nothing to maintain.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// jobRow is the sqlx row shape for the jobs table. JSON payload columns are
// decoded into the exported Job on read.
type jobRow struct {
	ID          string         `db:"id"`
	Status      string         `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
	CompletedAt sql.NullTime   `db:"completed_at"`
	Error       sql.NullString `db:"error"`
	ErrorDetail sql.NullString `db:"error_detail"`
	Result      sql.NullString `db:"result"`
}

func (r *jobRow) toJob() (*Job, error) {
	job := &Job{
		ID:        r.ID,
		Status:    JobStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		job.CompletedAt = &t
	}
	if r.Error.Valid {
		job.Error = r.Error.String
	}
	if r.ErrorDetail.Valid && r.ErrorDetail.String != "" {
		detail := &ErrorDetail{}
		if err := json.Unmarshal([]byte(r.ErrorDetail.String), detail); err != nil {
			return nil, fmt.Errorf("failed to decode error detail for job %s: %w", r.ID, err)
		}
		job.ErrorDetail = detail
	}
	if r.Result.Valid && r.Result.String != "" {
		result := &analysis.Result{}
		if err := json.Unmarshal([]byte(r.Result.String), result); err != nil {
			return nil, fmt.Errorf("failed to decode result for job %s: %w", r.ID, err)
		}
		job.Result = result
	}
	return job, nil
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateJob inserts a new job record in pending state.
func (s *sqlxStore) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return fmt.Errorf("cannot create nil job")
	}
	if job.ID == "" {
		return fmt.Errorf("job must have a non-empty id")
	}
	if job.Status == "" {
		job.Status = StatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO jobs (id, status, created_at)
        VALUES (?, ?, ?);
    `
	if _, err := s.db.ExecContext(ctx, query, job.ID, string(job.Status), job.CreatedAt); err != nil {
		s.logger.ErrorContext(ctx, "Error creating job", "job_id", job.ID, "error", err)
		return fmt.Errorf("failed to create job %s: %w", job.ID, err)
	}

	s.logger.DebugContext(ctx, "Job created", "job_id", job.ID)
	return nil
}

// GetJob returns the current snapshot of a job.
func (s *sqlxStore) GetJob(ctx context.Context, id string) (*Job, error) {
	var row jobRow
	query := `
        SELECT id, status, created_at, completed_at, error, error_detail, result
        FROM jobs
        WHERE id = ?;
    `
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting job", "job_id", id, "error", err)
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}

	return row.toJob()
}

// MarkJobRunning transitions a pending job to running. The guarded UPDATE
// makes the transition atomic: a second writer or an out-of-order call
// affects zero rows and gets ErrInvalidTransition.
func (s *sqlxStore) MarkJobRunning(ctx context.Context, id string) error {
	query := `UPDATE jobs SET status = ? WHERE id = ? AND status = ?;`
	res, err := s.db.ExecContext(ctx, query, string(StatusRunning), id, string(StatusPending))
	if err != nil {
		s.logger.ErrorContext(ctx, "Error marking job running", "job_id", id, "error", err)
		return fmt.Errorf("failed to mark job %s running: %w", id, err)
	}
	return s.checkTransition(ctx, id, res)
}

// CompleteJob transitions a running job to completed with its result in the
// same statement, so readers never see completed without a result.
func (s *sqlxStore) CompleteJob(ctx context.Context, id string, result *analysis.Result, completedAt time.Time) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result for job %s: %w", id, err)
	}

	query := `
        UPDATE jobs SET status = ?, result = ?, completed_at = ?
        WHERE id = ? AND status = ?;
    `
	res, err := s.db.ExecContext(ctx, query,
		string(StatusCompleted), string(payload), completedAt, id, string(StatusRunning))
	if err != nil {
		s.logger.ErrorContext(ctx, "Error completing job", "job_id", id, "error", err)
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	return s.checkTransition(ctx, id, res)
}

// FailJob transitions a running job to failed with its error payload.
func (s *sqlxStore) FailJob(ctx context.Context, id string, errMsg string, detail *ErrorDetail, completedAt time.Time) error {
	var detailJSON sql.NullString
	if detail != nil {
		payload, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("failed to encode error detail for job %s: %w", id, err)
		}
		detailJSON = sql.NullString{String: string(payload), Valid: true}
	}

	query := `
        UPDATE jobs SET status = ?, error = ?, error_detail = ?, completed_at = ?
        WHERE id = ? AND status = ?;
    `
	res, err := s.db.ExecContext(ctx, query,
		string(StatusFailed), errMsg, detailJSON, completedAt, id, string(StatusRunning))
	if err != nil {
		s.logger.ErrorContext(ctx, "Error failing job", "job_id", id, "error", err)
		return fmt.Errorf("failed to fail job %s: %w", id, err)
	}
	return s.checkTransition(ctx, id, res)
}

// checkTransition distinguishes "job missing" from "wrong source state" after
// a guarded status UPDATE affected zero rows.
func (s *sqlxStore) checkTransition(ctx context.Context, id string, res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for job %s: %w", id, err)
	}
	if affected == 1 {
		return nil
	}

	var exists int
	if err := s.db.GetContext(ctx, &exists, `SELECT COUNT(1) FROM jobs WHERE id = ?;`, id); err != nil {
		return fmt.Errorf("failed to check job %s existence: %w", id, err)
	}
	if exists == 0 {
		return ErrJobNotFound
	}
	return fmt.Errorf("%w: job %s", ErrInvalidTransition, id)
}

// SaveMessages persists analyzed messages for a job in one transaction.
func (s *sqlxStore) SaveMessages(ctx context.Context, jobID string, messages []analysis.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving messages",
			"job_id", jobID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	query := `
        INSERT INTO messages (
            job_id, seq, timestamp, raw_timestamp, sender, body, language,
            vader_score, polarity_score, ensemble_score, ensemble_label,
            emotions, keywords
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
    `

	for seq, m := range messages {
		emotions, err := json.Marshal(m.Emotions)
		if err != nil {
			return fmt.Errorf("failed to encode emotions for job %s seq %d: %w", jobID, seq, err)
		}
		terms := make([]string, len(m.Keywords))
		for i, kw := range m.Keywords {
			terms[i] = kw.Term
		}
		keywords, err := json.Marshal(terms)
		if err != nil {
			return fmt.Errorf("failed to encode keywords for job %s seq %d: %w", jobID, seq, err)
		}

		var ts sql.NullTime
		if m.Timestamp != nil {
			ts = sql.NullTime{Time: *m.Timestamp, Valid: true}
		}

		if _, err := tx.ExecContext(ctx, query,
			jobID, seq, ts, m.RawTimestamp, m.Sender, m.Body, m.Language.Code,
			m.Sentiment.VaderScore, m.Sentiment.PolarityScore,
			m.Sentiment.EnsembleScore, m.Sentiment.EnsembleLabel,
			string(emotions), string(keywords)); err != nil {
			s.logger.ErrorContext(ctx, "Error saving message", "job_id", jobID, "seq", seq, "error", err)
			return fmt.Errorf("failed to save message %d for job %s: %w", seq, jobID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit messages transaction", "job_id", jobID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Messages saved", "job_id", jobID, "count", len(messages))
	return nil
}

// messageRow is the sqlx row shape for the messages table.
type messageRow struct {
	JobID         string       `db:"job_id"`
	Seq           int          `db:"seq"`
	Timestamp     sql.NullTime `db:"timestamp"`
	RawTimestamp  string       `db:"raw_timestamp"`
	Sender        string       `db:"sender"`
	Body          string       `db:"body"`
	Language      string       `db:"language"`
	VaderScore    float64      `db:"vader_score"`
	PolarityScore float64      `db:"polarity_score"`
	EnsembleScore float64      `db:"ensemble_score"`
	EnsembleLabel string       `db:"ensemble_label"`
	Emotions      string       `db:"emotions"`
	Keywords      string       `db:"keywords"`
}

// QueryMessages returns filtered, paginated messages for a job.
func (s *sqlxStore) QueryMessages(ctx context.Context, jobID string, filter MessageFilter) ([]StoredMessage, int, error) {
	where := []string{"job_id = ?"}
	args := []any{jobID}

	if filter.Sender != "" {
		where = append(where, "sender = ?")
		args = append(args, filter.Sender)
	}
	if filter.Sentiment != "" {
		where = append(where, "ensemble_label = ?")
		args = append(args, filter.Sentiment)
	}
	if filter.Language != "" {
		where = append(where, "language = ?")
		args = append(args, filter.Language)
	}
	if filter.Keyword != "" {
		where = append(where, "body LIKE ?")
		args = append(args, "%"+filter.Keyword+"%")
	}
	clause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(1) FROM messages WHERE ` + clause + `;`
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error counting messages", "job_id", jobID, "error", err)
		return nil, 0, fmt.Errorf("failed to count messages for job %s: %w", jobID, err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	} else if limit > 500 {
		limit = 500
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var rows []messageRow
	query := `
        SELECT job_id, seq, timestamp, raw_timestamp, sender, body, language,
               vader_score, polarity_score, ensemble_score, ensemble_label,
               emotions, keywords
        FROM messages
        WHERE ` + clause + `
        ORDER BY seq ASC
        LIMIT ? OFFSET ?;
    `
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error querying messages", "job_id", jobID, "error", err)
		return nil, 0, fmt.Errorf("failed to query messages for job %s: %w", jobID, err)
	}

	messages := make([]StoredMessage, len(rows))
	for i, row := range rows {
		m := StoredMessage{
			JobID:         row.JobID,
			Seq:           row.Seq,
			RawTimestamp:  row.RawTimestamp,
			Sender:        row.Sender,
			Body:          row.Body,
			Language:      row.Language,
			VaderScore:    row.VaderScore,
			PolarityScore: row.PolarityScore,
			EnsembleScore: row.EnsembleScore,
			EnsembleLabel: row.EnsembleLabel,
		}
		if row.Timestamp.Valid {
			t := row.Timestamp.Time
			m.Timestamp = &t
		}
		if row.Emotions != "" {
			if err := json.Unmarshal([]byte(row.Emotions), &m.Emotions); err != nil {
				return nil, 0, fmt.Errorf("failed to decode emotions for job %s seq %d: %w", jobID, row.Seq, err)
			}
		}
		if row.Keywords != "" {
			if err := json.Unmarshal([]byte(row.Keywords), &m.Keywords); err != nil {
				return nil, 0, fmt.Errorf("failed to decode keywords for job %s seq %d: %w", jobID, row.Seq, err)
			}
		}
		messages[i] = m
	}

	return messages, total, nil
}

// DeleteJobsBefore removes terminal jobs completed before cutoff together
// with their messages, in one transaction.
func (s *sqlxStore) DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, `
        DELETE FROM messages WHERE job_id IN (
            SELECT id FROM jobs
            WHERE status IN (?, ?) AND completed_at IS NOT NULL AND completed_at < ?
        );
    `, string(StatusCompleted), string(StatusFailed), cutoff); err != nil {
		return 0, fmt.Errorf("failed to delete expired messages: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
        DELETE FROM jobs
        WHERE status IN (?, ?) AND completed_at IS NOT NULL AND completed_at < ?;
    `, string(StatusCompleted), string(StatusFailed), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired jobs: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	if deleted > 0 {
		s.logger.InfoContext(ctx, "Expired jobs deleted", "count", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

// RunSQLMaintenance vacuums and re-analyzes the sqlite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "ANALYZE;"); err != nil {
		return fmt.Errorf("failed to analyze database: %w", err)
	}
	s.logger.InfoContext(ctx, "SQL maintenance completed")
	return nil
}
