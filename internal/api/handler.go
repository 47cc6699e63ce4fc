// Package api exposes the HTTP surface: transcript submission, result
// polling, message queries, and health.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chatlens/chatlens/internal/database"
	"github.com/chatlens/chatlens/internal/jobs"
)

// Handler bundles the dependencies shared by all HTTP endpoints.
type Handler struct {
	logger       *slog.Logger
	orchestrator *jobs.Orchestrator
	store        database.Store
	maxBodyBytes int64
}

// NewHandler creates a Handler.
func NewHandler(orchestrator *jobs.Orchestrator, store database.Store, maxBodyBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		logger:       logger.With("component", "api"),
		orchestrator: orchestrator,
		store:        store,
		maxBodyBytes: maxBodyBytes,
	}
}

// JSON writes v as a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error body with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, msg string) {
	h.JSON(w, status, map[string]string{"error": msg})
}

// Analyze accepts a transcript as a raw request body or as a multipart
// upload under the "file" field, submits it for analysis, and returns the
// job id with 202 Accepted.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	transcript, err := h.readTranscript(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Error(w, http.StatusRequestEntityTooLarge, "transcript exceeds the maximum upload size")
			return
		}
		h.Error(w, http.StatusBadRequest, "could not read transcript: "+err.Error())
		return
	}

	transcript = strings.ToValidUTF8(transcript, "�")
	if strings.TrimSpace(transcript) == "" {
		h.Error(w, http.StatusBadRequest, "transcript is empty")
		return
	}

	jobID, err := h.orchestrator.Submit(r.Context(), transcript)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to submit job", "error", err)
		h.Error(w, http.StatusInternalServerError, "failed to submit analysis job")
		return
	}

	h.JSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(database.StatusPending),
	})
}

func (h *Handler) readTranscript(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return "", err
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// resultResponse is the polling payload. Fields beyond job_id and status are
// populated only when the job has reached the matching terminal state.
type resultResponse struct {
	JobID       string                `json:"job_id"`
	Status      database.JobStatus    `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Error       string                `json:"error,omitempty"`
	ErrorDetail *database.ErrorDetail `json:"error_detail,omitempty"`
	Result      any                   `json:"result,omitempty"`
}

// Results returns the current state of a job, including the full analysis
// result once the job has completed.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.orchestrator.Status(r.Context(), jobID)
	if errors.Is(err, database.ErrJobNotFound) {
		h.Error(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to get job", "job_id", jobID, "error", err)
		h.Error(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	resp := resultResponse{
		JobID:       job.ID,
		Status:      job.Status,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	switch job.Status {
	case database.StatusCompleted:
		resp.Result = job.Result
	case database.StatusFailed:
		resp.Error = job.Error
		resp.ErrorDetail = job.ErrorDetail
	}

	h.JSON(w, http.StatusOK, resp)
}

// messagesResponse is the paginated message query payload.
type messagesResponse struct {
	JobID    string                   `json:"job_id"`
	Total    int                      `json:"total"`
	Page     int                      `json:"page"`
	Limit    int                      `json:"limit"`
	Messages []database.StoredMessage `json:"messages"`
}

// Messages returns the persisted per-message analyses of a job, filtered by
// the user, sentiment, language, and keyword query parameters and paginated
// with limit and page.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if _, err := h.store.GetJob(r.Context(), jobID); err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			h.Error(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to get job", "job_id", jobID, "error", err)
		h.Error(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	q := r.URL.Query()
	limit := queryInt(q.Get("limit"), 50)
	page := queryInt(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}

	filter := database.MessageFilter{
		Sender:    q.Get("user"),
		Sentiment: q.Get("sentiment"),
		Language:  q.Get("language"),
		Keyword:   q.Get("keyword"),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}

	messages, total, err := h.store.QueryMessages(r.Context(), jobID, filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to query messages", "job_id", jobID, "error", err)
		h.Error(w, http.StatusInternalServerError, "failed to query messages")
		return
	}
	if messages == nil {
		messages = []database.StoredMessage{}
	}

	h.JSON(w, http.StatusOK, messagesResponse{
		JobID:    jobID,
		Total:    total,
		Page:     page,
		Limit:    limit,
		Messages: messages,
	})
}

// Health reports service liveness and store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.Error(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
