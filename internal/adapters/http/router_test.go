package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/factoid-qa/internal/config"
	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

type classifierFake struct {
	err error
}

func (f classifierFake) Classify(_ context.Context, raw string) (domain.Question, error) {
	if f.err != nil {
		return domain.Question{}, f.err
	}
	return domain.Question{Raw: raw, Text: raw, Type: domain.SimpleFact}, nil
}

type reformulatorFake struct{}

func (reformulatorFake) Reformulate(context.Context, domain.Question) []domain.SearchQuery {
	return []domain.SearchQuery{domain.NewSearchQuery(domain.POSBased, []string{"eiffel", "tower"})}
}

type answererFake struct {
	err error
}

func (f answererFake) Answer(_ context.Context, question string) (*domain.AnswerReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AnswerReport{
		Question: domain.Question{Raw: question},
		Answers:  []domain.AggregatedAnswer{{Text: "1889", Probability: 0.9}},
	}, nil
}

type jobsFake struct {
	submitted []string
	limit     int
	err       error
}

func (f *jobsFake) Submit(_ context.Context, question, labeled string) (*domain.QuestionJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, question+"|"+labeled)
	return &domain.QuestionJob{ID: "job-1", Question: question, LabeledAnswer: labeled, Status: domain.JobQueued}, nil
}

func (f *jobsFake) Get(_ context.Context, id string) (*domain.QuestionJob, error) {
	if id != "job-1" {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", errors.New(id))
	}
	return &domain.QuestionJob{ID: id, Status: domain.JobDone}, nil
}

func (f *jobsFake) ListRecent(_ context.Context, limit int) ([]domain.QuestionJob, error) {
	f.limit = limit
	return nil, nil
}

func newTestRouter(cfg config.Config, answerer answererFake, jobs *jobsFake) http.Handler {
	if jobs == nil {
		jobs = &jobsFake{}
	}
	return NewRouter(cfg, classifierFake{}, reformulatorFake{}, answerer, jobs, nil).Handler()
}

func newTestHandler(cfg config.Config) http.Handler {
	return newTestRouter(cfg, answererFake{}, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestAnswerReturnsReport(t *testing.T) {
	handler := newTestHandler(config.Config{})
	res := doJSON(t, handler, http.MethodPost, "/v1/qa/answer", map[string]any{"question": "When was the Eiffel Tower built?"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var report domain.AnswerReport
	if err := json.Unmarshal(res.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Answers) != 1 || report.Answers[0].Text != "1889" {
		t.Fatalf("unexpected answers: %+v", report.Answers)
	}
	if res.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestClassifyAndReformulate(t *testing.T) {
	handler := newTestHandler(config.Config{})

	res := doJSON(t, handler, http.MethodPost, "/v1/qa/classify", map[string]any{"question": "Who wrote Hamlet?"})
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), `"simple_fact"`) {
		t.Fatalf("classify: %d %s", res.Code, res.Body.String())
	}

	res = doJSON(t, handler, http.MethodPost, "/v1/qa/reformulate", map[string]any{"question": "Who wrote Hamlet?"})
	if res.Code != http.StatusOK {
		t.Fatalf("reformulate: %d %s", res.Code, res.Body.String())
	}
	var payload struct {
		Queries []domain.SearchQuery `json:"queries"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode queries: %v", err)
	}
	if len(payload.Queries) != 1 {
		t.Fatalf("expected one query, got %+v", payload.Queries)
	}
}

func TestSchemaViolationReturns422(t *testing.T) {
	handler := newTestHandler(config.Config{})
	res := doJSON(t, handler, http.MethodPost, "/v1/qa/answer", map[string]any{"question": ""})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.Code, res.Body.String())
	}
}

func TestMalformedBodyReturns400(t *testing.T) {
	handler := newTestHandler(config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/qa/answer", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
	}
}

func TestAnswerErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("bad")), http.StatusBadRequest},
		{"unauthorized", domain.WrapError(domain.ErrUnauthorized, "search", errors.New("token")), http.StatusUnauthorized},
		{"temporary", domain.WrapError(domain.ErrTemporary, "search", errors.New("down")), http.StatusServiceUnavailable},
		{"malformed", domain.WrapError(domain.ErrMalformedResponse, "extract", errors.New("junk")), http.StatusBadGateway},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestRouter(config.Config{}, answererFake{err: tc.err}, nil)
			res := doJSON(t, handler, http.MethodPost, "/v1/qa/answer", map[string]any{"question": "Who?"})
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
			var payload map[string]string
			if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if payload["error"] == "" {
				t.Fatalf("expected error message")
			}
			if tc.want == http.StatusInternalServerError && payload["error"] != "internal error" {
				t.Fatalf("internal error leaked: %q", payload["error"])
			}
		})
	}
}

func TestJobsLifecycle(t *testing.T) {
	jobs := &jobsFake{}
	handler := newTestRouter(config.Config{}, answererFake{}, jobs)

	res := doJSON(t, handler, http.MethodPost, "/v1/qa/jobs", map[string]any{"question": "Who?", "labeled_answer": "Shakespeare"})
	if res.Code != http.StatusAccepted {
		t.Fatalf("submit: expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if len(jobs.submitted) != 1 || jobs.submitted[0] != "Who?|Shakespeare" {
		t.Fatalf("unexpected submissions: %v", jobs.submitted)
	}

	res = doJSON(t, handler, http.MethodGet, "/v1/qa/jobs/job-1", nil)
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), `"done"`) {
		t.Fatalf("get: %d %s", res.Code, res.Body.String())
	}

	res = doJSON(t, handler, http.MethodGet, "/v1/qa/jobs/missing", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("missing job: expected 404, got %d", res.Code)
	}

	res = doJSON(t, handler, http.MethodGet, "/v1/qa/jobs?limit=5", nil)
	if res.Code != http.StatusOK || jobs.limit != 5 {
		t.Fatalf("list: %d limit=%d", res.Code, jobs.limit)
	}
	if !strings.Contains(res.Body.String(), `"jobs":[]`) {
		t.Fatalf("expected empty jobs array, got %s", res.Body.String())
	}

	res = doJSON(t, handler, http.MethodGet, "/v1/qa/jobs", nil)
	if res.Code != http.StatusOK || jobs.limit != defaultJobLimit {
		t.Fatalf("default limit: %d limit=%d", res.Code, jobs.limit)
	}

	res = doJSON(t, handler, http.MethodGet, "/v1/qa/jobs?limit=500", nil)
	if res.Code != http.StatusUnprocessableEntity && res.Code != http.StatusBadRequest {
		t.Fatalf("out of range limit: expected 4xx, got %d", res.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	handler := newTestHandler(config.Config{})
	res := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", res.Code)
	}
	doJSON(t, handler, http.MethodPost, "/v1/qa/answer", map[string]any{"question": "Who?"})
	res = doJSON(t, handler, http.MethodGet, "/metrics", nil)
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "fqa_qa_answers_total") {
		t.Fatalf("metrics: %d missing answers counter", res.Code)
	}
}
