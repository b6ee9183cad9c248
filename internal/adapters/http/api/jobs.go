package api

import (
	"net/http"
	"strings"

	"github.com/okian/fitbert/internal/domain/model"
)

// IdempotencyHeader carries the client key that makes job submission safe
// to retry.
const IdempotencyHeader = "Idempotency-Key"

// JobsHandler serves asynchronous job submission and lookup.
type JobsHandler struct {
	deps Jobs
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps Jobs) *JobsHandler {
	return &JobsHandler{deps: deps}
}

// HandleSubmit handles POST /jobs requests.
func (h *JobsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_job"
	req, ok := readRankRequest(w, r, op)
	if !ok {
		return
	}
	mode := model.JobMode(req.Mode)
	if mode == "" {
		mode = model.JobModeRank
	}
	id, err := h.deps.SubmitJob(r.Context(), mode,
		model.RankRequest{Sentence: req.Sentence, Options: req.Options},
		r.Header.Get(IdempotencyHeader),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/jobs/"+id)
	writeJSON(w, http.StatusAccepted, submitResponse{ID: id, Status: string(model.JobPending)})
}

// HandleGet handles GET /jobs/{id} requests.
func (h *JobsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	job, err := h.deps.Job(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(job))
}
