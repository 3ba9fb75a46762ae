package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/cutline/internal/adapters/mq/queue"
	"github.com/okian/cutline/internal/adapters/render"
	service "github.com/okian/cutline/internal/app"
	"github.com/okian/cutline/internal/domain/registry"
	"github.com/okian/cutline/internal/domain/threshold"
	"github.com/okian/cutline/internal/scenario"
)

// thresholdRequest is the body of POST /thresholds. Without a scenario the
// configured season is evaluated.
type thresholdRequest struct {
	Scenario        *scenario.Document `json:"scenario,omitempty"`
	EliminationRank int                `json:"elimination_rank,omitempty"`
	Competitors     []string           `json:"competitors,omitempty"`
}

type thresholdResponse struct {
	RunID           string        `json:"run_id"`
	Season          string        `json:"season"`
	EliminationRank int           `json:"elimination_rank"`
	Found           bool          `json:"found"`
	Threshold       int64         `json:"threshold"`
	Best            string        `json:"best,omitempty"`
	WallTimeMS      int64         `json:"wall_time_ms"`
	Outcomes        []outcomeView `json:"outcomes"`
	Scenario        *scenarioView `json:"scenario,omitempty"`
}

type outcomeView struct {
	Competitor string `json:"competitor"`
	Status     string `json:"status"`
	Value      int64  `json:"value"`
	Solutions  int64  `json:"solutions"`
	WallTimeMS int64  `json:"wall_time_ms"`
}

type scenarioView struct {
	Columns   []columnView   `json:"columns"`
	Standings []standingView `json:"standings"`
}

type columnView struct {
	Step  string `json:"step"`
	Stage string `json:"stage,omitempty"`
	Kind  string `json:"kind"`
}

type standingView struct {
	Competitor string     `json:"competitor"`
	Rank       int        `json:"rank"`
	Total      int64      `json:"total"`
	Cells      []cellView `json:"cells"`
}

type cellView struct {
	Place  int   `json:"place,omitempty"`
	Points int64 `json:"points"`
}

// ThresholdsHandler evaluates qualification thresholds.
type ThresholdsHandler struct {
	deps            Dependencies
	maxRequestBytes int64
}

// NewThresholdsHandler creates a new thresholds handler.
func NewThresholdsHandler(deps Dependencies, maxRequestBytes int64) *ThresholdsHandler {
	return &ThresholdsHandler{deps: deps, maxRequestBytes: maxRequestBytes}
}

// HandleThresholds handles GET and POST /thresholds requests. The optional
// format query parameter selects json (default), text or wiki output of the
// best scenario.
func (h *ThresholdsHandler) HandleThresholds(w http.ResponseWriter, r *http.Request) {
	var (
		req service.Request
		err error
	)
	switch r.Method {
	case http.MethodGet:
		req, err = requestFromQuery(r)
	case http.MethodPost:
		req, err = h.requestFromBody(w, r)
	default:
		http.NotFound(w, r)
		return
	}
	if err == nil {
		err = checkFormat(r)
	}
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ev, err := h.deps.Evaluate(r.Context(), req)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}

	writeEvaluation(w, r, ev)
}

func checkFormat(r *http.Request) error {
	switch format := r.URL.Query().Get("format"); format {
	case "", "json", "text", "wiki":
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", ErrBadRequest, format)
	}
}

// writeEvaluation answers in the format named by the format query
// parameter: json (default), text or wiki.
func writeEvaluation(w http.ResponseWriter, r *http.Request, ev *service.Evaluation) {
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, newThresholdResponse(ev))
	default:
		writeTable(w, ev, format)
	}
}

func requestFromQuery(r *http.Request) (service.Request, error) {
	q := r.URL.Query()
	req := service.Request{Competitors: q["competitor"]}
	if v := q.Get("elimination_rank"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, fmt.Errorf("%w: elimination_rank %q", ErrBadRequest, v)
		}
		req.EliminationRank = n
	}
	return req, nil
}

func (h *ThresholdsHandler) requestFromBody(w http.ResponseWriter, r *http.Request) (service.Request, error) {
	var body thresholdRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.Request{}, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, tooLarge.Limit)
		}
		return service.Request{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if body.EliminationRank < 0 {
		return service.Request{}, fmt.Errorf("%w: elimination_rank %d", ErrBadRequest, body.EliminationRank)
	}
	req := service.Request{EliminationRank: body.EliminationRank, Competitors: body.Competitors}
	if body.Scenario != nil {
		season, err := body.Scenario.Build()
		if err != nil {
			return req, err
		}
		req.Season = season
	}
	return req, nil
}

// classify maps evaluation errors to HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, scenario.ErrInvalidScenario),
		errors.Is(err, registry.ErrUnknownCompetitor),
		errors.Is(err, threshold.ErrInvalidEliminationRank),
		errors.Is(err, service.ErrNoSeason):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrBusy), errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrRunNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, threshold.ErrSolverTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "solver_timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeTable(w http.ResponseWriter, ev *service.Evaluation, format string) {
	if !ev.Result.Found {
		writeError(w, http.StatusUnprocessableEntity, "no_scenario", render.ErrNoScenario)
		return
	}
	tbl, err := render.FromOutcome(ev.Result.Best)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "no_scenario", err)
		return
	}
	var buf bytes.Buffer
	if format == "wiki" {
		err = tbl.WriteWiki(&buf)
	} else {
		err = tbl.WriteText(&buf)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func newThresholdResponse(ev *service.Evaluation) thresholdResponse {
	res := ev.Result
	out := thresholdResponse{
		RunID:           ev.RunID,
		Season:          ev.Season,
		EliminationRank: res.EliminationRank,
		Found:           res.Found,
		Threshold:       res.Value,
		WallTimeMS:      ev.WallTime.Milliseconds(),
		Outcomes:        make([]outcomeView, len(res.Outcomes)),
	}
	for i, o := range res.Outcomes {
		out.Outcomes[i] = outcomeView{
			Competitor: o.Name,
			Status:     o.Status.String(),
			Value:      o.Value,
			Solutions:  o.Solutions,
			WallTimeMS: o.WallTime.Milliseconds(),
		}
	}
	if res.Found {
		out.Best = res.Best.Name
		out.Scenario = newScenarioView(res.Best.Scenario)
	}
	return out
}

func newScenarioView(sc *threshold.Scenario) *scenarioView {
	if sc == nil {
		return nil
	}
	v := &scenarioView{Columns: make([]columnView, len(sc.Columns))}
	for i, c := range sc.Columns {
		v.Columns[i] = columnView{Step: c.Step, Stage: c.Stage, Kind: c.Kind.String()}
	}
	for _, st := range sc.Sorted() {
		row := standingView{Competitor: st.Name, Rank: st.Rank, Total: st.Total, Cells: make([]cellView, len(st.Cells))}
		for i, c := range st.Cells {
			row.Cells[i] = cellView{Place: c.Place, Points: c.Points}
		}
		v.Standings = append(v.Standings, row)
	}
	return v
}
