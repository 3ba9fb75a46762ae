// Package threshold answers qualification threshold queries: the highest
// total a competitor can reach while still finishing outside the top N of a
// circuit, together with a full standing that attains it.
package threshold

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/cutline/internal/cpsolver"
	"github.com/okian/cutline/internal/domain/circuit"
	"github.com/okian/cutline/internal/domain/registry"
	"github.com/okian/cutline/pkg/logger"
	"github.com/okian/cutline/pkg/metrics"
)

// Status classifies the answer of one query.
type Status int

const (
	// Optimal means Value is the proven maximum.
	Optimal Status = iota
	// Feasible means the budget ran out after a scenario was found; Value is
	// a lower bound.
	Feasible
	// NoEliminationScenario means the competitor qualifies in every valid
	// standing.
	NoEliminationScenario
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case NoEliminationScenario:
		return "no_elimination_scenario"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the answer for one competitor.
type Outcome struct {
	Competitor      registry.Index
	Name            string
	EliminationRank int
	Status          Status
	Value           int64
	Scenario        *Scenario
	Solutions       int64
	WallTime        time.Duration
}

// HasScenario reports whether the outcome carries a solved standing.
func (o Outcome) HasScenario() bool {
	return o.Scenario != nil
}

// Result is the answer over the whole field.
type Result struct {
	EliminationRank int
	// Found is false when no competitor can be eliminated at all.
	Found bool
	// Value is the qualification threshold: the best total any competitor
	// can reach and still miss the cut.
	Value    int64
	Best     Outcome
	Outcomes []Outcome
}

// Optimizer runs threshold queries against one circuit. It is safe for
// concurrent use as long as the circuit is not modified; every query builds
// its own model.
type Optimizer struct {
	circuit             *circuit.Circuit
	solver              cpsolver.Solver
	logger              logger.Logger
	bigM                int64
	timeoutAsNoScenario bool
}

// New validates c and creates an optimizer for it.
func New(c *circuit.Circuit, opts ...Option) (*Optimizer, error) {
	if c == nil {
		return nil, ErrNilCircuit
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	o := &Optimizer{
		circuit: c,
		solver:  cpsolver.NewPseudoBoolean(),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Circuit returns the circuit the optimizer answers for.
func (o *Optimizer) Circuit() *circuit.Circuit {
	return o.circuit
}

// OptimizeFor returns the highest total competitor can reach while ranking
// worse than eliminationRank.
func (o *Optimizer) OptimizeFor(ctx context.Context, competitor registry.Index, eliminationRank int) (Outcome, error) {
	reg := o.circuit.Registry
	if !reg.Valid(competitor) {
		return Outcome{}, fmt.Errorf("%w: %d", registry.ErrUnknownCompetitor, competitor)
	}
	if eliminationRank < 1 {
		return Outcome{}, fmt.Errorf("%w: %d", ErrInvalidEliminationRank, eliminationRank)
	}
	if eliminationRank >= reg.Len() {
		// Nobody finishes outside a cut that covers the whole field.
		metrics.RecordNoScenario()
		return Outcome{
			Competitor:      competitor,
			Name:            reg.Name(competitor),
			EliminationRank: eliminationRank,
			Status:          NoEliminationScenario,
		}, nil
	}

	metrics.IncActiveQueries()
	defer metrics.DecActiveQueries()

	sm, err := o.build(competitor)
	if err != nil {
		return Outcome{}, err
	}
	sm.target(competitor, eliminationRank)
	m, err := sm.cp.Model()
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrSolver, err)
	}

	resp, err := o.solver.Solve(ctx, m)
	out := Outcome{
		Competitor:      competitor,
		Name:            reg.Name(competitor),
		EliminationRank: eliminationRank,
		Solutions:       resp.Solutions,
		WallTime:        resp.WallTime,
	}
	if resp.HasSolution() {
		out.Value = resp.ObjectiveValue
		out.Scenario = sm.scenario(reg, resp)
	}
	out, err = o.classify(out, resp, err)

	fields := []logger.Field{
		logger.String("competitor", out.Name),
		logger.Int("elimination_rank", eliminationRank),
		logger.String("solver_status", resp.Status.String()),
		logger.Int64("value", out.Value),
		logger.Int64("solutions", resp.Solutions),
		logger.Duration("wall_time", resp.WallTime),
	}
	if err != nil {
		o.logger.Warn(ctx, "threshold query failed", append(fields, logger.Error(err))...)
		return out, err
	}
	if out.Status == NoEliminationScenario {
		metrics.RecordNoScenario()
	}
	o.logger.Debug(ctx, "threshold query finished", append(fields, logger.String("status", out.Status.String()))...)
	return out, nil
}

func (o *Optimizer) classify(out Outcome, resp cpsolver.Response, solveErr error) (Outcome, error) {
	if solveErr != nil {
		if errors.Is(solveErr, context.DeadlineExceeded) {
			return o.timedOut(out, resp)
		}
		return out, fmt.Errorf("%w: %w", ErrSolver, solveErr)
	}
	switch resp.Status {
	case cpsolver.Optimal:
		out.Status = Optimal
	case cpsolver.Infeasible:
		out.Status = NoEliminationScenario
	default:
		return o.timedOut(out, resp)
	}
	return out, nil
}

func (o *Optimizer) timedOut(out Outcome, resp cpsolver.Response) (Outcome, error) {
	if resp.HasSolution() {
		out.Status = Feasible
	} else {
		out.Status = NoEliminationScenario
	}
	if o.timeoutAsNoScenario {
		return out, nil
	}
	return out, fmt.Errorf("%w: %s after %s", ErrSolverTimeout, resp.Status, resp.WallTime)
}

// OptimizeAll queries every competitor in registry order, each against a
// fresh model, and returns the highest value found. The first error stops
// the run.
func (o *Optimizer) OptimizeAll(ctx context.Context, eliminationRank int) (Result, error) {
	start := time.Now()
	res := Result{EliminationRank: eliminationRank}
	for _, comp := range o.circuit.Registry.All() {
		out, err := o.OptimizeFor(ctx, comp.Index, eliminationRank)
		if err != nil {
			return res, fmt.Errorf("%s: %w", comp.Name, err)
		}
		res.Add(out)
	}
	if res.Found {
		metrics.RecordEvaluation(res.Value, float64(time.Since(start).Milliseconds()))
	}
	return res, nil
}

// Add folds one outcome into the result. Outcomes may be added in any order;
// the best value wins and ties keep the earlier competitor index.
func (r *Result) Add(out Outcome) {
	r.Outcomes = append(r.Outcomes, out)
	if out.Status == NoEliminationScenario {
		return
	}
	better := !r.Found || out.Value > r.Value ||
		(out.Value == r.Value && out.Competitor < r.Best.Competitor)
	if better {
		r.Found = true
		r.Value = out.Value
		r.Best = out
	}
}
