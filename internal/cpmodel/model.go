package cpmodel

import (
	"fmt"
	"math"
)

// Domain is a closed integer interval.
type Domain struct {
	Min int64
	Max int64
}

// Fixed reports whether the domain holds a single value.
func (d Domain) Fixed() bool { return d.Min == d.Max }

// Unbounded limits used by one-sided linear constraints.
const (
	MinBound int64 = math.MinInt64
	MaxBound int64 = math.MaxInt64
)

// VariableProto describes one model variable.
type VariableProto struct {
	Name   string
	Domain Domain
}

// LinearProto is lb <= sum(coeffs[i] * vars[i]) <= ub. Vars are positive
// indices; negated literals are folded into the bounds when added.
type LinearProto struct {
	Vars   []VarIndex
	Coeffs []int64
	Lb     int64
	Ub     int64
}

// BoolArgumentProto lists literals; a negative index is a negated Boolean.
type BoolArgumentProto struct {
	Literals []VarIndex
}

// MatchingProto is the placement matching constraint. Rows[c][s] is the
// literal "competitor c takes slot s"; Present[c] is the literal "competitor c
// takes a slot". Every slot takes exactly one present competitor and every
// present competitor takes exactly one slot.
type MatchingProto struct {
	Rows    [][]VarIndex
	Present []VarIndex
}

// ConstraintProto holds exactly one constraint kind plus its enforcement
// literals. The constraint only applies when all enforcement literals are true.
type ConstraintProto struct {
	Name        string
	Enforcement []VarIndex

	Linear     *LinearProto
	AtMostOne  *BoolArgumentProto
	ExactlyOne *BoolArgumentProto
	Matching   *MatchingProto
}

// ObjectiveProto is a linear objective.
type ObjectiveProto struct {
	Vars     []VarIndex
	Coeffs   []int64
	Offset   int64
	Maximize bool
}

// VariableSelectionStrategy picks the next variable of a strategy.
type VariableSelectionStrategy int

const (
	// ChooseFirst picks the first unfixed variable in declaration order.
	ChooseFirst VariableSelectionStrategy = iota
)

// DomainReductionStrategy picks the first value tried for a variable.
type DomainReductionStrategy int

const (
	// SelectMinValue tries the smallest value first.
	SelectMinValue DomainReductionStrategy = iota
	// SelectMaxValue tries the largest value first.
	SelectMaxValue
)

// DecisionStrategyProto is a search hint. It never changes the optimum.
type DecisionStrategyProto struct {
	Variables         []VarIndex
	VariableSelection VariableSelectionStrategy
	DomainReduction   DomainReductionStrategy
}

// Model is a complete model snapshot handed to a solver.
type Model struct {
	Variables      []VariableProto
	Constraints    []ConstraintProto
	Objective      *ObjectiveProto
	SearchStrategy []DecisionStrategyProto
}

// NumVariables returns the number of variables.
func (m *Model) NumVariables() int { return len(m.Variables) }

// IsBoolean reports whether variable i has domain [0, 1].
func (m *Model) IsBoolean(i VarIndex) bool {
	d := m.Variables[i].Domain
	return d.Min >= 0 && d.Max <= 1
}

// Validate checks that every reference in the model points at a variable.
func (m *Model) Validate() error {
	for i, v := range m.Variables {
		if v.Domain.Min > v.Domain.Max {
			return fmt.Errorf("%w: variable %d [%d, %d]", ErrInvalidDomain, i, v.Domain.Min, v.Domain.Max)
		}
	}
	checkVar := func(ref VarIndex) error {
		if int(ref.positiveIndex()) >= len(m.Variables) {
			return fmt.Errorf("%w: %d", ErrUnknownVariable, ref)
		}
		return nil
	}
	checkLiteral := func(ref VarIndex) error {
		if err := checkVar(ref); err != nil {
			return err
		}
		if !m.IsBoolean(ref.positiveIndex()) {
			return fmt.Errorf("%w: literal %d is not Boolean", ErrInvalidArgument, ref)
		}
		return nil
	}
	for ci, c := range m.Constraints {
		for _, l := range c.Enforcement {
			if err := checkLiteral(l); err != nil {
				return fmt.Errorf("constraint %d: %w", ci, err)
			}
		}
		switch {
		case c.Linear != nil:
			if len(c.Linear.Vars) != len(c.Linear.Coeffs) {
				return fmt.Errorf("constraint %d: %w: %d vars, %d coeffs", ci, ErrInvalidArgument, len(c.Linear.Vars), len(c.Linear.Coeffs))
			}
			for _, v := range c.Linear.Vars {
				if v < 0 {
					return fmt.Errorf("constraint %d: %w: negative linear variable", ci, ErrInvalidArgument)
				}
				if err := checkVar(v); err != nil {
					return fmt.Errorf("constraint %d: %w", ci, err)
				}
			}
		case c.AtMostOne != nil, c.ExactlyOne != nil:
			arg := c.AtMostOne
			if arg == nil {
				arg = c.ExactlyOne
			}
			for _, l := range arg.Literals {
				if err := checkLiteral(l); err != nil {
					return fmt.Errorf("constraint %d: %w", ci, err)
				}
			}
		case c.Matching != nil:
			if len(c.Matching.Rows) != len(c.Matching.Present) {
				return fmt.Errorf("constraint %d: %w: %d rows, %d presence literals", ci, ErrInvalidArgument, len(c.Matching.Rows), len(c.Matching.Present))
			}
			if len(c.Enforcement) > 0 {
				return fmt.Errorf("constraint %d: %w: matching cannot be enforced", ci, ErrInvalidArgument)
			}
			width := -1
			for r, row := range c.Matching.Rows {
				if width >= 0 && len(row) != width {
					return fmt.Errorf("constraint %d: %w: ragged matching rows", ci, ErrInvalidArgument)
				}
				width = len(row)
				for _, l := range row {
					if err := checkLiteral(l); err != nil {
						return fmt.Errorf("constraint %d: %w", ci, err)
					}
				}
				if err := checkLiteral(c.Matching.Present[r]); err != nil {
					return fmt.Errorf("constraint %d: %w", ci, err)
				}
			}
		default:
			return fmt.Errorf("constraint %d: %w: empty constraint", ci, ErrInvalidArgument)
		}
	}
	if m.Objective != nil {
		for _, v := range m.Objective.Vars {
			if err := checkVar(v); err != nil {
				return fmt.Errorf("objective: %w", err)
			}
		}
	}
	for _, s := range m.SearchStrategy {
		for _, v := range s.Variables {
			if err := checkVar(v); err != nil {
				return fmt.Errorf("strategy: %w", err)
			}
		}
	}
	return nil
}
