package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/factoid-qa/internal/config"
	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
	"github.com/kirillkom/factoid-qa/internal/observability/metrics"
)

const (
	serviceName     = "api"
	defaultJobLimit = 20
)

type Router struct {
	cfg          config.Config
	classifier   ports.QuestionClassifier
	reformulator ports.QueryReformulator
	answerer     ports.QuestionAnswerer
	jobs         ports.QuestionJobService
	metrics      *metrics.HTTPServerMetrics
	validator    *requestValidator
	logger       *slog.Logger
}

func NewRouter(
	cfg config.Config,
	classifier ports.QuestionClassifier,
	reformulator ports.QueryReformulator,
	answerer ports.QuestionAnswerer,
	jobs ports.QuestionJobService,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	validator, err := newRequestValidator()
	if err != nil {
		// The document is embedded at build time.
		panic(err)
	}
	if httpMetrics == nil {
		httpMetrics = metrics.NewHTTPServerMetrics(serviceName)
	}
	return &Router{
		cfg:          cfg,
		classifier:   classifier,
		reformulator: reformulator,
		answerer:     answerer,
		jobs:         jobs,
		metrics:      httpMetrics,
		validator:    validator,
		logger:       slog.Default().With("component", "http_router"),
	}
}

func (rt *Router) Handler() http.Handler {
	v := rt.validator
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.Handle("GET /metrics", rt.metrics.Handler())
	mux.HandleFunc("POST /v1/qa/classify", v.validated(http.MethodPost, "/v1/qa/classify", nil, rt.classify))
	mux.HandleFunc("POST /v1/qa/reformulate", v.validated(http.MethodPost, "/v1/qa/reformulate", nil, rt.reformulate))
	mux.HandleFunc("POST /v1/qa/answer", v.validated(http.MethodPost, "/v1/qa/answer", nil, rt.answer))
	mux.HandleFunc("POST /v1/qa/jobs", v.validated(http.MethodPost, "/v1/qa/jobs", nil, rt.submitJob))
	mux.HandleFunc("GET /v1/qa/jobs", v.validated(http.MethodGet, "/v1/qa/jobs", nil, rt.listJobs))
	mux.HandleFunc("GET /v1/qa/jobs/{id}", v.validated(http.MethodGet, "/v1/qa/jobs/{id}", []string{"id"}, rt.getJob))

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait, func(r *http.Request) {
		rt.metrics.RecordBackpressureReject(serviceName, r.URL.Path)
	})
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, func(r *http.Request) {
		rt.metrics.RecordRateLimited(serviceName, r.URL.Path)
	})
	handler = rt.metrics.Middleware(serviceName, handler)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type questionRequest struct {
	Question      string `json:"question"`
	LabeledAnswer string `json:"labeled_answer"`
}

func decodeQuestion(r *http.Request) (questionRequest, error) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, domain.WrapError(domain.ErrInvalidInput, "decode request", err)
	}
	return req, nil
}

func (rt *Router) classify(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuestion(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := rt.classifier.Classify(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (rt *Router) reformulate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuestion(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := rt.classifier.Classify(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	queries := rt.reformulator.Reformulate(r.Context(), q)
	writeJSON(w, http.StatusOK, map[string]any{
		"question": q,
		"queries":  queries,
	})
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuestion(r)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := rt.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	_, answered := report.TopAnswer()
	rt.metrics.RecordAnswer(serviceName, "/v1/qa/answer", answered)
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) submitJob(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuestion(r)
	if err != nil {
		writeError(w, err)
		return
	}
	job, err := rt.jobs.Submit(r.Context(), req.Question, req.LabeledAnswer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := rt.jobs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultJobLimit
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "bind limit", err))
		return
	}
	jobs, err := rt.jobs.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []domain.QuestionJob{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("http_internal_error", "error", err)
		message = "internal error"
	}
	if errors.Is(err, domain.ErrTemporary) {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, map[string]string{"error": message})
}
