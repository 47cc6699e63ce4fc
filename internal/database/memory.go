package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chatlens/chatlens/internal/analysis"
)

// memoryStore is an in-process Store for tests and single-node deployments
// that do not need durability. All reads return copies so callers cannot
// mutate shared state.
type memoryStore struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	messages map[string][]StoredMessage
}

// NewMemoryStore creates a Store backed by process memory.
func NewMemoryStore() Store {
	return &memoryStore{
		jobs:     make(map[string]*Job),
		messages: make(map[string][]StoredMessage),
	}
}

func (s *memoryStore) Ping(_ context.Context) error {
	return nil
}

func (s *memoryStore) CreateJob(_ context.Context, job *Job) error {
	if job == nil {
		return fmt.Errorf("cannot create nil job")
	}
	if job.ID == "" {
		return fmt.Errorf("job must have a non-empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	stored := *job
	if stored.Status == "" {
		stored.Status = StatusPending
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.jobs[job.ID] = &stored
	return nil
}

func (s *memoryStore) GetJob(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return copyJob(job), nil
}

func (s *memoryStore) MarkJobRunning(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != StatusPending {
		return fmt.Errorf("%w: job %s", ErrInvalidTransition, id)
	}
	job.Status = StatusRunning
	return nil
}

func (s *memoryStore) CompleteJob(_ context.Context, id string, result *analysis.Result, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != StatusRunning {
		return fmt.Errorf("%w: job %s", ErrInvalidTransition, id)
	}
	job.Status = StatusCompleted
	job.Result = result
	t := completedAt
	job.CompletedAt = &t
	return nil
}

func (s *memoryStore) FailJob(_ context.Context, id string, errMsg string, detail *ErrorDetail, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != StatusRunning {
		return fmt.Errorf("%w: job %s", ErrInvalidTransition, id)
	}
	job.Status = StatusFailed
	job.Error = errMsg
	job.ErrorDetail = detail
	t := completedAt
	job.CompletedAt = &t
	return nil
}

func (s *memoryStore) SaveMessages(_ context.Context, jobID string, messages []analysis.Message) error {
	if len(messages) == 0 {
		return nil
	}

	stored := make([]StoredMessage, len(messages))
	for seq, m := range messages {
		terms := make([]string, len(m.Keywords))
		for i, kw := range m.Keywords {
			terms[i] = kw.Term
		}
		sm := StoredMessage{
			JobID:         jobID,
			Seq:           seq,
			RawTimestamp:  m.RawTimestamp,
			Sender:        m.Sender,
			Body:          m.Body,
			Language:      m.Language.Code,
			VaderScore:    m.Sentiment.VaderScore,
			PolarityScore: m.Sentiment.PolarityScore,
			EnsembleScore: m.Sentiment.EnsembleScore,
			EnsembleLabel: m.Sentiment.EnsembleLabel,
			Emotions:      copyEmotions(m.Emotions),
			Keywords:      terms,
		}
		if m.Timestamp != nil {
			t := *m.Timestamp
			sm.Timestamp = &t
		}
		stored[seq] = sm
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[jobID] = stored
	return nil
}

func (s *memoryStore) QueryMessages(_ context.Context, jobID string, filter MessageFilter) ([]StoredMessage, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []StoredMessage
	for _, m := range s.messages[jobID] {
		if filter.Sender != "" && m.Sender != filter.Sender {
			continue
		}
		if filter.Sentiment != "" && m.EnsembleLabel != filter.Sentiment {
			continue
		}
		if filter.Language != "" && m.Language != filter.Language {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(m.Body, filter.Keyword) {
			continue
		}
		matched = append(matched, m)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Seq < matched[j].Seq })

	total := len(matched)

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
	if offset >= len(matched) {
		return []StoredMessage{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]StoredMessage, end-offset)
	for i, m := range matched[offset:end] {
		page[i] = copyStoredMessage(m)
	}
	return page, total, nil
}

func (s *memoryStore) DeleteJobsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, job := range s.jobs {
		if !job.Status.Terminal() || job.CompletedAt == nil || !job.CompletedAt.Before(cutoff) {
			continue
		}
		delete(s.jobs, id)
		delete(s.messages, id)
		deleted++
	}
	return deleted, nil
}

func (s *memoryStore) RunSQLMaintenance(_ context.Context) error {
	return nil
}

func copyJob(job *Job) *Job {
	out := *job
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		out.CompletedAt = &t
	}
	if job.ErrorDetail != nil {
		detail := *job.ErrorDetail
		detail.FailedLines = append([]analysis.FailedLine(nil), job.ErrorDetail.FailedLines...)
		out.ErrorDetail = &detail
	}
	return &out
}

func copyStoredMessage(m StoredMessage) StoredMessage {
	out := m
	if m.Timestamp != nil {
		t := *m.Timestamp
		out.Timestamp = &t
	}
	out.Emotions = copyEmotions(m.Emotions)
	out.Keywords = append([]string(nil), m.Keywords...)
	return out
}

func copyEmotions(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
