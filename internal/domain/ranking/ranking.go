// Package ranking aggregates per-competitor point contributions into totals
// and derives a rank for every competitor by pairwise comparison.
//
// For every ordered pair (i, j) a literal ge(i, j) holds exactly when total_i
// <= total_j, linked with a big-M pair of inequalities:
//
//	total_i - total_j <= (1 - ge(i, j)) * M
//	total_j - total_i + 1 <= ge(i, j) * M
//
// rank_i is the number of competitors whose total is at least total_i, self
// included, so lower is better and tied competitors share the worse rank.
package ranking

import (
	"fmt"
	"slices"

	"github.com/okian/cutline/internal/cpmodel"
)

// Total is the contribution of one competitor: a linear expression over model
// variables plus the bounds it can take.
type Total struct {
	Expr *cpmodel.LinearExpr
	Min  int64
	Max  int64
}

// Standings holds the ranking variables of all competitors.
type Standings struct {
	Totals []cpmodel.IntVar
	// GE[i][j] holds when total_i <= total_j. GE[i][i] is the true constant.
	// GE[i] is nil for competitors left out by WithRows.
	GE [][]cpmodel.BoolVar
	// Ranks[i] is only meaningful when Ranked(i).
	Ranks []cpmodel.IntVar
	BigM  int64
}

// Ranked reports whether competitor i has comparison and rank variables.
func (s *Standings) Ranked(i int) bool {
	return s.GE[i] != nil
}

// RanksOf ranks solved totals the way the model does: each competitor's rank
// is the number of competitors scoring at least as much, self included.
func RanksOf(totals []int64) []int {
	out := make([]int, len(totals))
	for i, t := range totals {
		for _, u := range totals {
			if t <= u {
				out[i]++
			}
		}
	}
	return out
}

// BigM returns the smallest constant that keeps the comparison encoding exact
// for totals inside the given bounds.
func BigM(totals []Total) int64 {
	if len(totals) == 0 {
		return 1
	}
	lo, hi := totals[0].Min, totals[0].Max
	for _, t := range totals[1:] {
		lo = min(lo, t.Min)
		hi = max(hi, t.Max)
	}
	return hi - lo + 1
}

// Build adds totals, comparison literals and ranks for all competitors.
func Build(cp *cpmodel.Builder, totals []Total, opts ...Option) (*Standings, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	for i, t := range totals {
		if t.Min > t.Max {
			return nil, fmt.Errorf("%w: competitor %d [%d, %d]", ErrInvalidBounds, i, t.Min, t.Max)
		}
	}

	n := len(totals)
	s := &Standings{
		Totals: make([]cpmodel.IntVar, n),
		GE:     make([][]cpmodel.BoolVar, n),
		Ranks:  make([]cpmodel.IntVar, n),
		BigM:   BigM(totals),
	}
	if cfg.bigM > 0 {
		s.BigM = cfg.bigM
	}

	for i, t := range totals {
		s.Totals[i] = cp.NewIntVar(t.Min, t.Max).WithName(fmt.Sprintf("total_%d", i))
		cp.AddEquality(s.Totals[i], t.Expr)
	}

	rows := slices.Compact(slices.Sorted(slices.Values(cfg.rows)))
	if len(rows) == 0 {
		rows = make([]int, n)
		for i := range rows {
			rows[i] = i
		}
	}
	for _, i := range rows {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: row %d of %d competitors", ErrUnknownRow, i, n)
		}
	}

	for _, i := range rows {
		s.GE[i] = make([]cpmodel.BoolVar, n)
		for j := range n {
			if i == j {
				s.GE[i][j] = cp.TrueVar()
				continue
			}
			ge := cp.NewBoolVar().WithName(fmt.Sprintf("ge_%d_%d", i, j))
			s.GE[i][j] = ge
			diff := cpmodel.NewLinearExpr().Add(s.Totals[i]).AddTerm(s.Totals[j], -1)
			cp.AddLessOrEqual(
				cpmodel.NewLinearExpr().Add(diff).AddTerm(ge, s.BigM),
				cpmodel.NewConstant(s.BigM),
			)
			cp.AddLessOrEqual(
				cpmodel.NewLinearExpr().AddTerm(diff, -1).AddConstant(1).AddTerm(ge, -s.BigM),
				cpmodel.NewConstant(0),
			)
		}
	}

	for _, i := range rows {
		s.Ranks[i] = cp.NewIntVar(1, int64(n)).WithName(fmt.Sprintf("rank_%d", i))
		sum := cpmodel.NewLinearExpr()
		for j := range n {
			sum.Add(s.GE[i][j])
		}
		cp.AddEquality(s.Ranks[i], sum)
	}
	return s, nil
}
