package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chatlens/chatlens/internal/analysis"
	"github.com/chatlens/chatlens/internal/api"
	"github.com/chatlens/chatlens/internal/database"
	"github.com/chatlens/chatlens/internal/jobs"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	router http.Handler
	orch   *jobs.Orchestrator
	store  database.Store
}

func newTestEnv() *testEnv {
	store := database.NewMemoryStore()
	pipeline := analysis.NewPipeline(analysis.Options{}, nil)
	orch := jobs.NewOrchestrator(store, pipeline, nil)
	handler := api.NewHandler(orch, store, 1<<20, nil)
	return &testEnv{
		router: api.NewRouter(handler, newDiscardLogger()),
		orch:   orch,
		store:  store,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body=%q)", err, rec.Body.String())
	}
}

const sampleTranscript = "8/15/2024, 10:30 PM - Alice: this is wonderful news!\n" +
	"8/15/2024, 10:31 PM - Bob: agreed, fantastic"

func TestAnalyzeAcceptsRawBody(t *testing.T) {
	t.Parallel()

	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(sampleTranscript))
	req.Header.Set("Content-Type", "text/plain")
	rec := env.do(t, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body=%q)", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if resp["job_id"] == "" {
		t.Error("response has no job_id")
	}
	if resp["status"] != string(database.StatusPending) {
		t.Errorf("status = %q, want pending", resp["status"])
	}
}

func TestAnalyzeAcceptsMultipartUpload(t *testing.T) {
	t.Parallel()

	env := newTestEnv()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "chat.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(sampleTranscript)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := env.do(t, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body=%q)", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeRejectsEmptyBody(t *testing.T) {
	t.Parallel()

	env := newTestEnv()

	testCases := []struct {
		name string
		body string
	}{
		{name: "empty", body: ""},
		{name: "whitespace", body: "   \n\t"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(tc.body))
			rec := env.do(t, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestResultsLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(sampleTranscript))
	rec := env.do(t, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d", rec.Code)
	}

	var submitResp map[string]string
	decodeJSON(t, rec, &submitResp)
	jobID := submitResp["job_id"]

	env.orch.Wait()

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/results/"+jobID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("results status = %d (body=%q)", rec.Code, rec.Body.String())
	}

	var resp struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
		Result *struct {
			TotalMessages int    `json:"total_messages"`
			Summary       string `json:"summary"`
		} `json:"result"`
	}
	decodeJSON(t, rec, &resp)

	if resp.JobID != jobID {
		t.Errorf("job_id = %q, want %q", resp.JobID, jobID)
	}
	if resp.Status != string(database.StatusCompleted) {
		t.Fatalf("status = %q, want completed", resp.Status)
	}
	if resp.Result == nil {
		t.Fatal("completed response has no result")
	}
	if resp.Result.TotalMessages != 2 {
		t.Errorf("total_messages = %d, want 2", resp.Result.TotalMessages)
	}
	if !strings.Contains(resp.Result.Summary, "Analyzed 2 messages") {
		t.Errorf("summary = %q", resp.Result.Summary)
	}
}

func TestResultsFailedJobCarriesDetail(t *testing.T) {
	t.Parallel()

	env := newTestEnv()

	garbage := "not a header line one\nnot a header line two"
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(garbage))
	rec := env.do(t, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d", rec.Code)
	}

	var submitResp map[string]string
	decodeJSON(t, rec, &submitResp)

	env.orch.Wait()

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/results/"+submitResp["job_id"], nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("results status = %d", rec.Code)
	}

	var resp struct {
		Status      string `json:"status"`
		Error       string `json:"error"`
		ErrorDetail *struct {
			TotalLinesRead int `json:"total_lines_read"`
			MatchedLines   int `json:"matched_lines"`
		} `json:"error_detail"`
	}
	decodeJSON(t, rec, &resp)

	if resp.Status != string(database.StatusFailed) {
		t.Fatalf("status = %q, want failed", resp.Status)
	}
	if !strings.Contains(resp.Error, "no usable messages found") {
		t.Errorf("error = %q", resp.Error)
	}
	if resp.ErrorDetail == nil {
		t.Fatal("failed response has no error_detail")
	}
	if resp.ErrorDetail.TotalLinesRead != 2 || resp.ErrorDetail.MatchedLines != 0 {
		t.Errorf("error_detail = %+v", resp.ErrorDetail)
	}
}

func TestResultsUnknownJob(t *testing.T) {
	t.Parallel()

	env := newTestEnv()

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/results/no-such-job", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if resp["error"] == "" {
		t.Error("404 response has no error field")
	}
}

func TestMessagesEndpointFilters(t *testing.T) {
	t.Parallel()

	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(sampleTranscript))
	rec := env.do(t, req)
	var submitResp map[string]string
	decodeJSON(t, rec, &submitResp)
	jobID := submitResp["job_id"]

	env.orch.Wait()

	testCases := []struct {
		name      string
		query     string
		wantTotal int
	}{
		{name: "all messages", query: "", wantTotal: 2},
		{name: "filter by user", query: "?user=Alice", wantTotal: 1},
		{name: "filter by missing user", query: "?user=Nobody", wantTotal: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := env.do(t, httptest.NewRequest(http.MethodGet, "/jobs/"+jobID+"/messages"+tc.query, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d (body=%q)", rec.Code, rec.Body.String())
			}

			var resp struct {
				JobID    string `json:"job_id"`
				Total    int    `json:"total"`
				Messages []struct {
					Sender string `json:"sender"`
				} `json:"messages"`
			}
			decodeJSON(t, rec, &resp)

			if resp.Total != tc.wantTotal {
				t.Errorf("total = %d, want %d", resp.Total, tc.wantTotal)
			}
			if len(resp.Messages) != tc.wantTotal {
				t.Errorf("messages = %d, want %d", len(resp.Messages), tc.wantTotal)
			}
		})
	}
}

func TestMessagesEndpointUnknownJob(t *testing.T) {
	t.Parallel()

	env := newTestEnv()

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/jobs/no-such-job/messages", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv()

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status field = %q, want ok", resp["status"])
	}
}
