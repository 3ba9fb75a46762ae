package api

import (
	"fmt"
	"net/http"
	"strings"
)

const runsPrefix = "/runs/"

// RunsHandler serves finished evaluations from the run history.
type RunsHandler struct {
	deps Dependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps Dependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

// HandleRun handles GET /runs/{run_id}. The format query parameter works as
// for /thresholds.
func (h *RunsHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	runID := strings.TrimPrefix(r.URL.Path, runsPrefix)
	if runID == "" || strings.Contains(runID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: run id %q", ErrBadRequest, runID))
		return
	}
	if err := checkFormat(r); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ev, err := h.deps.Run(r.Context(), runID)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	writeEvaluation(w, r, ev)
}
