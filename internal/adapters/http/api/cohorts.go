package api

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/okian/riskprofiler/internal/adapters/export"
	"github.com/okian/riskprofiler/internal/domain/classify"
	"github.com/okian/riskprofiler/internal/domain/model"
	"github.com/okian/riskprofiler/pkg/logger"
)

// maxCohortBody caps the size of an uploaded cohort document.
const maxCohortBody = 32 << 20

// CohortHandler serves cohort storage and analysis routes.
type CohortHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewCohortHandler creates a new cohort handler.
func NewCohortHandler(deps Dependencies, log logger.Logger) *CohortHandler {
	return &CohortHandler{deps: deps, log: log}
}

// scheme reads the optional scheme query parameter.
func (h *CohortHandler) scheme(r *http.Request) (classify.Scheme, error) {
	return h.deps.ResolveScheme(r.URL.Query().Get("scheme"))
}

// HandleList handles GET /cohorts.
func (h *CohortHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Cohorts(r.Context()))
}

// HandleCreate handles POST /cohorts. A cohort with an existing id
// replaces the stored one.
func (h *CohortHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_cohort"
	var c model.Cohort
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCohortBody))
	if err := dec.Decode(&c); err != nil {
		fail(r.Context(), w, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.PutCohort(r.Context(), &c); err != nil {
		fail(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/cohorts/"+c.ID+"/summary")
	writeJSON(w, http.StatusCreated, c.Info())
}

// HandleDelete handles DELETE /cohorts/{cohort}.
func (h *CohortHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteCohort(r.Context(), r.PathValue("cohort")); err != nil {
		fail(r.Context(), w, h.log, Wrap("api.delete_cohort", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSummary handles GET /cohorts/{cohort}/summary.
func (h *CohortHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.summary"
	sc, err := h.scheme(r)
	if err != nil {
		fail(r.Context(), w, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	sum, err := h.deps.AnalyzeCohort(r.Context(), r.PathValue("cohort"), sc)
	if err != nil {
		fail(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleChart handles GET /cohorts/{cohort}/chart.
func (h *CohortHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.chart"
	sc, err := h.scheme(r)
	if err != nil {
		fail(r.Context(), w, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	chart, err := h.deps.Chart(r.Context(), r.PathValue("cohort"), sc)
	if err != nil {
		fail(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

// HandleExport handles GET /cohorts/{cohort}/export?format=csv|json.
func (h *CohortHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	sc, err := h.scheme(r)
	if err != nil {
		fail(r.Context(), w, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		fail(r.Context(), w, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	cohortID := r.PathValue("cohort")
	rows, err := h.deps.Export(r.Context(), cohortID, sc)
	if err != nil {
		fail(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": cohortID + "." + format})
	if disposition == "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", disposition)
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, format, rows); err != nil {
		h.log.Warn(r.Context(), "export write failed", logger.String("cohort_id", cohortID), logger.Error(err))
	}
}

// HandleSubject handles GET /cohorts/{cohort}/subjects/{subject}.
func (h *CohortHandler) HandleSubject(w http.ResponseWriter, r *http.Request) {
	const op = "api.subject"
	sc, err := h.scheme(r)
	if err != nil {
		fail(r.Context(), w, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.AnalyzeSubject(r.Context(), r.PathValue("cohort"), r.PathValue("subject"), sc)
	if err != nil {
		fail(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleSummaries handles GET /summaries?cohort=a&cohort=b. Comma
// separated ids are accepted too.
func (h *CohortHandler) HandleSummaries(w http.ResponseWriter, r *http.Request) {
	const op = "api.summaries"
	sc, err := h.scheme(r)
	if err != nil {
		fail(r.Context(), w, h.log, WrapKind(op, ErrBadRequest, err))
		return
	}
	var ids []string
	for _, v := range r.URL.Query()["cohort"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		fail(r.Context(), w, h.log, NewKind(op, ErrBadRequest))
		return
	}
	sums, err := h.deps.AnalyzeCohorts(r.Context(), ids, sc)
	if err != nil {
		fail(r.Context(), w, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sums)
}
