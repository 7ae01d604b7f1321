// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/riskprofiler/internal/adapters/export"
	"github.com/okian/riskprofiler/internal/adapters/mq/queue"
	"github.com/okian/riskprofiler/internal/adapters/repository"
	service "github.com/okian/riskprofiler/internal/app"
	"github.com/okian/riskprofiler/internal/domain/classify"
	"github.com/okian/riskprofiler/internal/domain/model"
	"github.com/okian/riskprofiler/internal/domain/profiler"
	"github.com/okian/riskprofiler/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ResolveScheme(raw string) (classify.Scheme, error)

	PutCohort(ctx context.Context, c *model.Cohort) error
	Cohorts(ctx context.Context) []model.CohortInfo
	DeleteCohort(ctx context.Context, id string) error

	AnalyzeCohort(ctx context.Context, cohortID string, scheme classify.Scheme) (model.Summary, error)
	AnalyzeCohorts(ctx context.Context, ids []string, scheme classify.Scheme) ([]model.Summary, error)
	AnalyzeSubject(ctx context.Context, cohortID, subjectID string, scheme classify.Scheme) (model.Profile, error)
	Chart(ctx context.Context, cohortID string, scheme classify.Scheme) (model.Chart, error)
	Export(ctx context.Context, cohortID string, scheme classify.Scheme) ([]model.Row, error)

	// SubmitJob returns the job and whether it was a duplicate submission.
	SubmitJob(ctx context.Context, cohortID string, scheme classify.Scheme, idempotencyKey string) (model.Job, bool, error)
	Job(ctx context.Context, id string) (model.Job, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	cohortHandler *CohortHandler
	jobHandler    *JobHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	log := logger.Get().Named("api")
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		cohortHandler: NewCohortHandler(deps, log),
		jobHandler:    NewJobHandler(deps, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /cohorts", MetricsMiddleware(s.cohortHandler.HandleList, "cohorts"))
	mux.HandleFunc("POST /cohorts", MetricsMiddleware(s.cohortHandler.HandleCreate, "cohorts"))
	mux.HandleFunc("DELETE /cohorts/{cohort}", MetricsMiddleware(s.cohortHandler.HandleDelete, "cohort"))
	mux.HandleFunc("GET /cohorts/{cohort}/summary", MetricsMiddleware(s.cohortHandler.HandleSummary, "summary"))
	mux.HandleFunc("GET /cohorts/{cohort}/chart", MetricsMiddleware(s.cohortHandler.HandleChart, "chart"))
	mux.HandleFunc("GET /cohorts/{cohort}/export", MetricsMiddleware(s.cohortHandler.HandleExport, "export"))
	mux.HandleFunc("GET /cohorts/{cohort}/subjects/{subject}", MetricsMiddleware(s.cohortHandler.HandleSubject, "subject"))
	mux.HandleFunc("GET /summaries", MetricsMiddleware(s.cohortHandler.HandleSummaries, "summaries"))

	mux.HandleFunc("POST /jobs", MetricsMiddleware(s.jobHandler.HandleSubmit, "jobs"))
	mux.HandleFunc("GET /jobs/{id}", MetricsMiddleware(s.jobHandler.HandleGet, "job"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps upstream errors to a status code and an error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, classify.ErrUnknownScheme),
		errors.Is(err, repository.ErrInvalidCohort),
		errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrCohortNotFound),
		errors.Is(err, repository.ErrJobNotFound),
		errors.Is(err, profiler.ErrSubjectNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, profiler.ErrNoQualifyingData):
		return http.StatusUnprocessableEntity, "no_qualifying_data"
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, queue.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail writes the error response for err, logging server-side failures.
func fail(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error(ctx, "request failed", logger.Error(err))
	}
	writeError(w, status, code, err)
}
