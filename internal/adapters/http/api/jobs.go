package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/riskprofiler/internal/domain/model"
	"github.com/okian/riskprofiler/pkg/logger"
)

// IdempotencyHeader carries the client's deduplication key for POST /jobs.
const IdempotencyHeader = "Idempotency-Key"

// jobRequest mirrors the OpenAPI schema for POST /jobs.
type jobRequest struct {
	CohortID string `json:"cohort_id"`
	Scheme   string `json:"scheme"`
}

func (j jobRequest) validate() error {
	if strings.TrimSpace(j.CohortID) == "" {
		return errors.New("missing cohort_id")
	}
	return nil
}

type jobResponse struct {
	model.Job
	Duplicate bool `json:"duplicate"`
}

// JobHandler serves background analysis jobs.
type JobHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(deps Dependencies, log logger.Logger) *JobHandler {
	return &JobHandler{deps: deps, log: log}
}

// HandleSubmit handles POST /jobs. New jobs answer 202; a repeated
// Idempotency-Key answers 200 with the original job.
func (h *JobHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_job"
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(r.Context(), w, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		fail(r.Context(), w, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	sc, err := h.deps.ResolveScheme(req.Scheme)
	if err != nil {
		fail(r.Context(), w, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	job, dup, err := h.deps.SubmitJob(r.Context(), req.CohortID, sc, key)
	if err != nil {
		fail(r.Context(), w, h.log, Wrap(op, err))
		return
	}

	w.Header().Set("Location", "/jobs/"+job.ID)
	status := http.StatusAccepted
	if dup {
		status = http.StatusOK
	}
	writeJSON(w, status, jobResponse{Job: job, Duplicate: dup})
}

// HandleGet handles GET /jobs/{id}.
func (h *JobHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	job, err := h.deps.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(r.Context(), w, h.log, Wrap("api.get_job", err))
		return
	}
	writeJSON(w, http.StatusOK, job)
}
