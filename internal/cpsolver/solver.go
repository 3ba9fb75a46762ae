// Package cpsolver solves cpmodel models exactly with a pseudo-Boolean
// solver.
//
// Boolean variables map one to one onto solver variables. Integer variables
// are substituted by the equality that defines them, so totals and ranks
// become weighted sums of placement literals; the remaining ones are
// encoded in binary. Decision strategies are not used by this backend.
package cpsolver

import (
	"context"
	"fmt"
	"time"

	"github.com/crillab/gophersat/solver"

	"github.com/okian/cutline/internal/cpmodel"
	"github.com/okian/cutline/pkg/logger"
	"github.com/okian/cutline/pkg/metrics"
)

// Status is the outcome class of a solve.
type Status int

const (
	// Unknown means the budget ran out before any solution was found.
	Unknown Status = iota
	// Optimal means the returned solution is proven optimal, or feasible for
	// models without objective.
	Optimal
	// Feasible means a solution was found but the budget ran out before the
	// proof of optimality.
	Feasible
	// Infeasible means the model has no solution.
	Infeasible
)

func (s Status) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Response carries the result of one Solve call.
type Response struct {
	Status         Status
	ObjectiveValue int64
	Solution       []int64
	// Solutions counts the improving solutions found on the way.
	Solutions int64
	WallTime  time.Duration
}

// HasSolution reports whether Solution holds an assignment.
func (r Response) HasSolution() bool {
	return r.Status == Optimal || r.Status == Feasible
}

// Value evaluates a linear argument on the solution.
func (r Response) Value(la cpmodel.LinearArgument) int64 {
	return cpmodel.Evaluate(la, r.Solution)
}

// BoolValue returns the value of a literal in the solution.
func (r Response) BoolValue(b cpmodel.BoolVar) bool {
	return cpmodel.Evaluate(b, r.Solution) == 1
}

// Solver solves a model.
type Solver interface {
	Solve(ctx context.Context, m *cpmodel.Model) (Response, error)
}

// PseudoBoolean solves models with gophersat. It is safe for concurrent use;
// every Solve call owns its solver instance.
type PseudoBoolean struct {
	timeLimit time.Duration
	logger    logger.Logger
}

// NewPseudoBoolean creates a solver.
func NewPseudoBoolean(opts ...Option) *PseudoBoolean {
	s := &PseudoBoolean{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve searches m. A budget hit is not an error: the response status tells
// whether a solution was found. Context cancellation returns the context error
// together with the best response so far.
func (s *PseudoBoolean) Solve(ctx context.Context, m *cpmodel.Model) (Response, error) {
	if m == nil {
		return Response{}, ErrNilModel
	}
	if err := m.Validate(); err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrModelInvalid, err)
	}
	if err := ctx.Err(); err != nil {
		return Response{Status: Unknown}, err
	}
	if s.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeLimit)
		defer cancel()
	}

	start := time.Now()
	enc, err := encode(m)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrModelInvalid, err)
	}
	p := newProblem(enc)

	var (
		resp   Response
		ctxErr error
	)
	switch {
	case enc.infeasible:
		resp.Status = Infeasible
	case len(p.constrs) == 0:
		resp.Status = Optimal
		resp.Solution = p.solution(nil)
		resp.Solutions = 1
	default:
		resp, ctxErr = p.run(ctx)
	}
	if resp.HasSolution() && m.Objective != nil {
		resp.ObjectiveValue = m.Objective.Offset
		for k, v := range m.Objective.Vars {
			resp.ObjectiveValue += m.Objective.Coeffs[k] * resp.Solution[v]
		}
	}
	resp.WallTime = time.Since(start)

	metrics.RecordSolve(resp.Status.String(), float64(resp.WallTime.Microseconds())/1000, resp.Solutions)
	s.logger.Debug(ctx, "solve finished",
		logger.String("status", resp.Status.String()),
		logger.Int64("solutions", resp.Solutions),
		logger.Duration("wall_time", resp.WallTime),
		logger.Int("variables", m.NumVariables()),
		logger.Int("pb_variables", len(p.vars)),
		logger.Int("pb_constraints", len(p.constrs)),
	)
	return resp, ctxErr
}

// problem is an encoding whose solver variables are renumbered densely over
// the variables that occur in constraints.
type problem struct {
	enc     *encoding
	constrs []solver.PBConstr
	// vars maps an encoding variable to its solver variable, 0 when free.
	vars map[int]int
}

func newProblem(enc *encoding) *problem {
	p := &problem{enc: enc, vars: make(map[int]int)}
	for _, c := range enc.constr {
		lits := make([]int, len(c.Lits))
		for i, l := range c.Lits {
			v := abs(l)
			n, ok := p.vars[v]
			if !ok {
				n = len(p.vars) + 1
				p.vars[v] = n
			}
			if l < 0 {
				n = -n
			}
			lits[i] = n
		}
		p.constrs = append(p.constrs, solver.PBConstr{Lits: lits, Weights: c.Weights, AtLeast: c.AtLeast})
	}
	return p
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// solution maps a solver model back to model variable values. Free variables
// take the value that lowers the cost.
func (p *problem) solution(model []bool) []int64 {
	value := func(v int) bool {
		if n, ok := p.vars[v]; ok {
			return n-1 < len(model) && model[n-1]
		}
		if p.enc.cost != nil {
			return p.enc.cost.terms[v] < 0
		}
		return false
	}
	out := make([]int64, len(p.enc.exprs))
	for i, x := range p.enc.exprs {
		out[i] = x.eval(value)
	}
	return out
}

func (p *problem) costFunc() ([]solver.Lit, []int) {
	if p.enc.cost == nil {
		return nil, nil
	}
	var (
		lits    []solver.Lit
		weights []int
	)
	for _, v := range p.enc.cost.vars() {
		n, ok := p.vars[v]
		if !ok {
			continue
		}
		w := p.enc.cost.terms[v]
		if w < 0 {
			n, w = -n, -w
		}
		lits = append(lits, solver.IntToLit(int32(n)))
		weights = append(weights, int(w))
	}
	return lits, weights
}

// run solves the problem on its own goroutine. When ctx ends first the best
// solution seen so far is returned and the solver is told to stop.
func (p *problem) run(ctx context.Context) (Response, error) {
	pb := solver.ParsePBConstrs(p.constrs)
	lits, weights := p.costFunc()
	optimize := len(lits) > 0
	if optimize {
		pb.SetCostFunc(lits, weights)
	}
	sv := solver.New(pb)

	results := make(chan solver.Result)
	final := make(chan solver.Result, 1)
	stop := make(chan struct{})
	go func() {
		if !optimize {
			res := solver.Result{Status: sv.Solve()}
			if res.Status == solver.Sat {
				res.Model = sv.Model()
			}
			close(results)
			final <- res
			return
		}
		final <- sv.Optimal(results, stop)
	}()

	var resp Response
	for {
		select {
		case r, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			if r.Status == solver.Sat {
				resp.Status = Feasible
				resp.Solution = p.solution(r.Model)
				resp.Solutions++
			}
		case r := <-final:
			switch r.Status {
			case solver.Sat:
				resp.Status = Optimal
				resp.Solution = p.solution(r.Model)
				if resp.Solutions == 0 {
					resp.Solutions = 1
				}
			case solver.Unsat:
				if resp.Solutions > 0 {
					resp.Status = Optimal
				} else {
					resp.Status = Infeasible
				}
			default:
				if resp.Solutions == 0 {
					resp.Status = Unknown
				}
			}
			return resp, nil
		case <-ctx.Done():
			close(stop)
			go drain(results, final)
			return resp, ctx.Err()
		}
	}
}

// drain keeps reading a stopped solver's channels so it can exit.
func drain(results <-chan solver.Result, final <-chan solver.Result) {
	for {
		select {
		case _, ok := <-results:
			if !ok {
				results = nil
			}
		case <-final:
			return
		}
	}
}
