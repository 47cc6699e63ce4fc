// Package jobs runs transcript analyses asynchronously and tracks their
// lifecycle in the store. Callers submit raw transcripts, receive a job id
// immediately, and poll for the terminal status.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatlens/chatlens/internal/analysis"
	"github.com/chatlens/chatlens/internal/database"
)

// Orchestrator owns the submit-then-poll job lifecycle. Each submitted
// transcript is analyzed on its own goroutine; a failure in one job never
// affects another.
type Orchestrator struct {
	logger   *slog.Logger
	store    database.Store
	pipeline *analysis.Pipeline
	wg       sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator using the given store and pipeline.
func NewOrchestrator(store database.Store, pipeline *analysis.Pipeline, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		logger:   logger.With("component", "jobs"),
		store:    store,
		pipeline: pipeline,
	}
}

// Submit records a new pending job for the transcript and starts its analysis
// in the background. It returns the job id as soon as the job is persisted.
// Submitted work is detached from the caller's context: cancelling the
// submitting request does not cancel the analysis.
func (o *Orchestrator) Submit(ctx context.Context, transcript string) (string, error) {
	job := &database.Job{
		ID:        uuid.New().String(),
		Status:    database.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	o.logger.InfoContext(ctx, "Job submitted", "job_id", job.ID, "transcript_bytes", len(transcript))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(context.WithoutCancel(ctx), job.ID, transcript)
	}()

	return job.ID, nil
}

// Status returns the current snapshot of a job.
func (o *Orchestrator) Status(ctx context.Context, id string) (*database.Job, error) {
	return o.store.GetJob(ctx, id)
}

// Wait blocks until all in-flight jobs have reached a terminal state.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, jobID, transcript string) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.ErrorContext(ctx, "Job panicked", "job_id", jobID, "panic", r)
			o.fail(ctx, jobID, fmt.Sprintf("internal error: %v", r), nil)
		}
	}()

	if err := o.store.MarkJobRunning(ctx, jobID); err != nil {
		o.logger.ErrorContext(ctx, "Failed to mark job running", "job_id", jobID, "error", err)
		return
	}

	started := time.Now()
	result, err := o.pipeline.AnalyzeTranscript(ctx, transcript)
	if err != nil {
		var qualityErr *analysis.ParseQualityError
		if errors.As(err, &qualityErr) {
			o.fail(ctx, jobID, err.Error(), &database.ErrorDetail{
				TotalLinesRead: qualityErr.TotalLinesRead,
				MatchedLines:   qualityErr.MatchedLines,
				FailedLines:    qualityErr.FailedLines,
			})
			return
		}
		o.fail(ctx, jobID, err.Error(), nil)
		return
	}

	// Message persistence is best effort: the result already embeds the
	// per-message analyses, so a save failure must not fail the job.
	if err := o.store.SaveMessages(ctx, jobID, result.Messages); err != nil {
		o.logger.WarnContext(ctx, "Failed to save messages", "job_id", jobID, "error", err)
	}

	if err := o.store.CompleteJob(ctx, jobID, result, time.Now().UTC()); err != nil {
		o.logger.ErrorContext(ctx, "Failed to complete job", "job_id", jobID, "error", err)
		return
	}

	o.logger.InfoContext(ctx, "Job completed",
		"job_id", jobID,
		"messages", result.TotalMessages,
		"duration", time.Since(started))
}

func (o *Orchestrator) fail(ctx context.Context, jobID, errMsg string, detail *database.ErrorDetail) {
	if err := o.store.FailJob(ctx, jobID, errMsg, detail, time.Now().UTC()); err != nil {
		o.logger.ErrorContext(ctx, "Failed to mark job failed", "job_id", jobID, "error", err)
		return
	}
	o.logger.WarnContext(ctx, "Job failed", "job_id", jobID, "reason", errMsg)
}
