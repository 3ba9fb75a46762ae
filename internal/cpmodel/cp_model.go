// Package cpmodel offers a builder API for discrete optimization models made of
// integer and Boolean variables, linear constraints with optional enforcement
// literals, at-most-one groups and placement matchings.
//
// The Builder hands out IntVar and BoolVar references and collects
// constraints; Model returns an immutable snapshot that a solver consumes.
// LinearExpr composes constraints and objectives from many terms.
package cpmodel

import (
	"fmt"
	"slices"
)

type (
	// VarIndex is the index of a variable in the model, if positive. A negative
	// value represents the negation of the Boolean variable at (-1*VarIndex-1).
	VarIndex int32
	// ConstrIndex is the index of a constraint in the model.
	ConstrIndex int32
)

func (v VarIndex) positiveIndex() VarIndex {
	if v >= 0 {
		return v
	}
	return -1*v - 1
}

// Positive returns the variable a literal refers to.
func (v VarIndex) Positive() VarIndex { return v.positiveIndex() }

// Negated reports whether the literal is a negation.
func (v VarIndex) Negated() bool { return v < 0 }

// LinearArgument is implemented by BoolVar, IntVar and LinearExpr.
type LinearArgument interface {
	addToLinearExpr(e *LinearExpr, c int64)
	evaluate(values []int64) int64
}

// Evaluate returns the value of la under a full assignment.
func Evaluate(la LinearArgument, values []int64) int64 {
	return la.evaluate(values)
}

// LinearExpr is a container for a linear expression.
type LinearExpr struct {
	varCoeffs []varCoeff
	offset    int64
}

type varCoeff struct {
	ind   VarIndex
	coeff int64
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant creates and returns a LinearExpr containing the constant c.
func NewConstant(c int64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add adds the linear argument with coefficient 1.
func (l *LinearExpr) Add(la LinearArgument) *LinearExpr {
	return l.AddTerm(la, 1)
}

// AddConstant adds a constant offset.
func (l *LinearExpr) AddConstant(c int64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm adds la scaled by coeff.
func (l *LinearExpr) AddTerm(la LinearArgument, coeff int64) *LinearExpr {
	la.addToLinearExpr(l, coeff)
	return l
}

// AddSum adds every argument with coefficient 1.
func (l *LinearExpr) AddSum(las ...LinearArgument) *LinearExpr {
	for _, la := range las {
		l.Add(la)
	}
	return l
}

// AddWeightedSum adds las[i] * coeffs[i]. Missing coefficients count as 0.
func (l *LinearExpr) AddWeightedSum(las []LinearArgument, coeffs []int64) *LinearExpr {
	for i, la := range las {
		if i >= len(coeffs) {
			break
		}
		l.AddTerm(la, coeffs[i])
	}
	return l
}

// Offset returns the constant part of the expression.
func (l *LinearExpr) Offset() int64 { return l.offset }

func (l *LinearExpr) addToLinearExpr(e *LinearExpr, c int64) {
	for _, vc := range l.varCoeffs {
		e.varCoeffs = append(e.varCoeffs, varCoeff{ind: vc.ind, coeff: vc.coeff * c})
	}
	e.offset += l.offset * c
}

func (l *LinearExpr) evaluate(values []int64) int64 {
	v := l.offset
	for _, vc := range l.varCoeffs {
		v += vc.coeff * values[vc.ind]
	}
	return v
}

// canonical merges duplicate variables and drops zero coefficients.
func (l *LinearExpr) canonical() ([]VarIndex, []int64) {
	merged := make(map[VarIndex]int64, len(l.varCoeffs))
	order := make([]VarIndex, 0, len(l.varCoeffs))
	for _, vc := range l.varCoeffs {
		if _, ok := merged[vc.ind]; !ok {
			order = append(order, vc.ind)
		}
		merged[vc.ind] += vc.coeff
	}
	vars := make([]VarIndex, 0, len(order))
	coeffs := make([]int64, 0, len(order))
	for _, v := range order {
		if c := merged[v]; c != 0 {
			vars = append(vars, v)
			coeffs = append(coeffs, c)
		}
	}
	return vars, coeffs
}

// IntVar is a reference to an integer variable.
type IntVar struct {
	ind VarIndex
	cpb *Builder
}

// Name returns the name of the variable.
func (i IntVar) Name() string {
	return i.cpb.model.Variables[i.ind].Name
}

// Domain returns the domain of the variable.
func (i IntVar) Domain() Domain {
	return i.cpb.model.Variables[i.ind].Domain
}

// Index returns the index of the variable.
func (i IntVar) Index() VarIndex {
	return i.ind
}

// WithName sets the name of the variable.
func (i IntVar) WithName(s string) IntVar {
	i.cpb.model.Variables[i.ind].Name = s
	return i
}

func (i IntVar) addToLinearExpr(e *LinearExpr, c int64) {
	e.varCoeffs = append(e.varCoeffs, varCoeff{ind: i.ind, coeff: c})
}

func (i IntVar) evaluate(values []int64) int64 {
	return values[i.ind]
}

// BoolVar is a reference to a Boolean variable or its negation.
type BoolVar struct {
	ind VarIndex
	cpb *Builder
}

// Not returns the logical negation of the Boolean variable.
func (b BoolVar) Not() BoolVar {
	return BoolVar{ind: -1*b.ind - 1, cpb: b.cpb}
}

// Name returns the name of the variable.
func (b BoolVar) Name() string {
	return b.cpb.model.Variables[b.ind.positiveIndex()].Name
}

// Index returns the literal index. If the variable is the negation of v, its
// index is -1*v.Index()-1.
func (b BoolVar) Index() VarIndex {
	return b.ind
}

// WithName sets the name of the variable.
func (b BoolVar) WithName(s string) BoolVar {
	b.cpb.model.Variables[b.ind.positiveIndex()].Name = s
	return b
}

func (b BoolVar) addToLinearExpr(e *LinearExpr, c int64) {
	if b.ind < 0 {
		e.varCoeffs = append(e.varCoeffs, varCoeff{ind: b.ind.positiveIndex(), coeff: -c})
		e.offset += c
	} else {
		e.varCoeffs = append(e.varCoeffs, varCoeff{ind: b.ind, coeff: c})
	}
}

func (b BoolVar) evaluate(values []int64) int64 {
	if b.ind < 0 {
		return 1 - values[b.ind.positiveIndex()]
	}
	return values[b.ind]
}

// Var is any variable reference usable in a decision strategy.
type Var interface {
	Index() VarIndex
}

// Constraint is a reference to a constraint in the model.
type Constraint struct {
	ind ConstrIndex
	cpb *Builder
}

// WithName sets the name of the constraint.
func (c Constraint) WithName(s string) Constraint {
	c.cpb.model.Constraints[c.ind].Name = s
	return c
}

// Name returns the name of the constraint.
func (c Constraint) Name() string {
	return c.cpb.model.Constraints[c.ind].Name
}

// Index returns the index of the constraint.
func (c Constraint) Index() ConstrIndex {
	return c.ind
}

// OnlyEnforceIf adds a condition on the constraint. The constraint is only
// enforced iff all given literals are true.
func (c Constraint) OnlyEnforceIf(bvs ...BoolVar) Constraint {
	ct := &c.cpb.model.Constraints[c.ind]
	for _, bv := range bvs {
		if !c.cpb.checkSameModelAndSetErrorf(bv.cpb, "BoolVar %v used to enforce constraint %v", bv.ind, c.ind) {
			return c
		}
		ct.Enforcement = append(ct.Enforcement, bv.ind)
	}
	return c
}

// Builder collects variables and constraints.
type Builder struct {
	model     Model
	constants map[int64]VarIndex
	// The first and only the first error is reported in Model.
	err error
}

// NewCpModelBuilder creates and returns a new Builder.
func NewCpModelBuilder() *Builder {
	return &Builder{constants: make(map[int64]VarIndex)}
}

func (cp *Builder) checkSameModelAndSetErrorf(cp2 *Builder, format string, a ...any) bool {
	if cp == cp2 {
		return true
	}
	args := make([]any, len(a)+1)
	copy(args, a)
	args[len(a)] = ErrMixedModels
	cp.setErr(fmt.Errorf(format+": %w", args...))
	return false
}

func (cp *Builder) setErr(err error) {
	if cp.err == nil {
		cp.err = err
	}
}

// NumVariables returns the number of variables created so far.
func (cp *Builder) NumVariables() int {
	return len(cp.model.Variables)
}

// NewIntVar creates a new integer variable with domain [lb, ub].
func (cp *Builder) NewIntVar(lb, ub int64) IntVar {
	if lb > ub {
		cp.setErr(fmt.Errorf("%w: [%d, %d]", ErrInvalidDomain, lb, ub))
	}
	iv := IntVar{cpb: cp, ind: VarIndex(len(cp.model.Variables))}
	cp.model.Variables = append(cp.model.Variables, VariableProto{Domain: Domain{Min: lb, Max: ub}})
	return iv
}

// NewIntVarFromDomain creates a new integer variable with domain d.
func (cp *Builder) NewIntVarFromDomain(d Domain) IntVar {
	return cp.NewIntVar(d.Min, d.Max)
}

// NewBoolVar creates a new Boolean variable.
func (cp *Builder) NewBoolVar() BoolVar {
	bv := BoolVar{cpb: cp, ind: VarIndex(len(cp.model.Variables))}
	cp.model.Variables = append(cp.model.Variables, VariableProto{Domain: Domain{Min: 0, Max: 1}})
	return bv
}

// NewConstant creates a constant variable. Repeated calls with the same value
// return the same variable.
func (cp *Builder) NewConstant(v int64) IntVar {
	if i, ok := cp.constants[v]; ok {
		return IntVar{cpb: cp, ind: i}
	}
	iv := cp.NewIntVar(v, v)
	cp.constants[v] = iv.ind
	return iv
}

// TrueVar returns an always true Boolean variable.
func (cp *Builder) TrueVar() BoolVar {
	return BoolVar{cpb: cp, ind: cp.NewConstant(1).ind}
}

// FalseVar returns an always false Boolean variable.
func (cp *Builder) FalseVar() BoolVar {
	return BoolVar{cpb: cp, ind: cp.NewConstant(0).ind}
}

func (cp *Builder) appendConstraint(ct ConstraintProto) Constraint {
	i := ConstrIndex(len(cp.model.Constraints))
	cp.model.Constraints = append(cp.model.Constraints, ct)
	return Constraint{cpb: cp, ind: i}
}

func (cp *Builder) literals(bvs []BoolVar) []VarIndex {
	out := make([]VarIndex, 0, len(bvs))
	for _, b := range bvs {
		cp.checkSameModelAndSetErrorf(b.cpb, "BoolVar %v added to constraint %v", b.ind, len(cp.model.Constraints))
		out = append(out, b.ind)
	}
	return out
}

func literalSum(bvs []BoolVar) *LinearExpr {
	e := NewLinearExpr()
	for _, b := range bvs {
		e.Add(b)
	}
	return e
}

// AddBoolOr adds the constraint that at least one of the literals is true.
func (cp *Builder) AddBoolOr(bvs ...BoolVar) Constraint {
	cp.literals(bvs)
	return cp.AddLinearConstraint(literalSum(bvs), 1, MaxBound)
}

// AddBoolAnd adds the constraint that all of the literals are true.
func (cp *Builder) AddBoolAnd(bvs ...BoolVar) Constraint {
	cp.literals(bvs)
	return cp.AddLinearConstraint(literalSum(bvs), int64(len(bvs)), MaxBound)
}

// AddImplication adds the constraint a => b.
func (cp *Builder) AddImplication(a, b BoolVar) Constraint {
	return cp.AddBoolOr(a.Not(), b)
}

// AddAtMostOne adds the constraint that at most one of the literals is true.
func (cp *Builder) AddAtMostOne(bvs ...BoolVar) Constraint {
	return cp.appendConstraint(ConstraintProto{AtMostOne: &BoolArgumentProto{Literals: cp.literals(bvs)}})
}

// AddExactlyOne adds the constraint that exactly one of the literals is true.
func (cp *Builder) AddExactlyOne(bvs ...BoolVar) Constraint {
	return cp.appendConstraint(ConstraintProto{ExactlyOne: &BoolArgumentProto{Literals: cp.literals(bvs)}})
}

// AddPlacementMatching adds the constraint that present rows and slots are in
// one-to-one correspondence: rows[c][s] is true for exactly one s when
// present[c] holds, for none otherwise, and every slot s has exactly one true
// rows[c][s].
func (cp *Builder) AddPlacementMatching(rows [][]BoolVar, present []BoolVar) Constraint {
	m := &MatchingProto{Rows: make([][]VarIndex, len(rows))}
	for i, row := range rows {
		m.Rows[i] = cp.literals(row)
	}
	m.Present = cp.literals(present)
	if len(rows) != len(present) {
		cp.setErr(fmt.Errorf("%w: %d rows, %d presence literals", ErrInvalidArgument, len(rows), len(present)))
	}
	return cp.appendConstraint(ConstraintProto{Matching: m})
}

func (cp *Builder) addLinearConstraint(le *LinearExpr, lb, ub int64) Constraint {
	vars, coeffs := le.canonical()
	for _, v := range vars {
		if int(v) >= len(cp.model.Variables) {
			cp.setErr(fmt.Errorf("%w: %d", ErrUnknownVariable, v))
		}
	}
	return cp.appendConstraint(ConstraintProto{Linear: &LinearProto{
		Vars:   vars,
		Coeffs: coeffs,
		Lb:     shift(lb, -le.offset),
		Ub:     shift(ub, -le.offset),
	}})
}

// shift moves a bound by delta, keeping the unbounded sentinels unbounded.
func shift(bound, delta int64) int64 {
	if bound == MinBound || bound == MaxBound {
		return bound
	}
	return bound + delta
}

// AddLinearConstraint adds the linear constraint lb <= expr <= ub.
func (cp *Builder) AddLinearConstraint(expr LinearArgument, lb, ub int64) Constraint {
	return cp.addLinearConstraint(NewLinearExpr().Add(expr), lb, ub)
}

// AddEquality adds the linear constraint lhs == rhs.
func (cp *Builder) AddEquality(lhs, rhs LinearArgument) Constraint {
	return cp.addLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), 0, 0)
}

// AddLessOrEqual adds the linear constraint lhs <= rhs.
func (cp *Builder) AddLessOrEqual(lhs, rhs LinearArgument) Constraint {
	return cp.addLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), MinBound, 0)
}

// AddLessThan adds the linear constraint lhs < rhs.
func (cp *Builder) AddLessThan(lhs, rhs LinearArgument) Constraint {
	return cp.addLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), MinBound, -1)
}

// AddGreaterOrEqual adds the linear constraint lhs >= rhs.
func (cp *Builder) AddGreaterOrEqual(lhs, rhs LinearArgument) Constraint {
	return cp.addLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), 0, MaxBound)
}

// AddGreaterThan adds the linear constraint lhs > rhs.
func (cp *Builder) AddGreaterThan(lhs, rhs LinearArgument) Constraint {
	return cp.addLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), 1, MaxBound)
}

func (cp *Builder) objective(obj LinearArgument, maximize bool) {
	o := NewLinearExpr().Add(obj)
	vars, coeffs := o.canonical()
	cp.model.Objective = &ObjectiveProto{Vars: vars, Coeffs: coeffs, Offset: o.offset, Maximize: maximize}
}

// Minimize sets a linear minimization objective.
func (cp *Builder) Minimize(obj LinearArgument) {
	cp.objective(obj, false)
}

// Maximize sets a linear maximization objective.
func (cp *Builder) Maximize(obj LinearArgument) {
	cp.objective(obj, true)
}

// AddDecisionStrategy adds a search hint over the given variables. Boolean
// literals may be negated; SelectMaxValue then tries the literal true first.
func (cp *Builder) AddDecisionStrategy(vars []Var, vs VariableSelectionStrategy, ds DomainReductionStrategy) {
	indices := make([]VarIndex, 0, len(vars))
	for _, v := range vars {
		if int(v.Index().positiveIndex()) >= len(cp.model.Variables) {
			cp.setErr(fmt.Errorf("%w: strategy variable %d", ErrUnknownVariable, v.Index()))
			return
		}
		indices = append(indices, v.Index())
	}
	cp.model.SearchStrategy = append(cp.model.SearchStrategy, DecisionStrategyProto{
		Variables:         indices,
		VariableSelection: vs,
		DomainReduction:   ds,
	})
}

// Model returns a snapshot of the built model. Later changes to the Builder do
// not affect the snapshot. Model returns the first error recorded while
// building.
func (cp *Builder) Model() (*Model, error) {
	if cp.err != nil {
		return nil, cp.err
	}
	m := &Model{
		Variables:      slices.Clone(cp.model.Variables),
		Constraints:    make([]ConstraintProto, len(cp.model.Constraints)),
		SearchStrategy: slices.Clone(cp.model.SearchStrategy),
	}
	for i, c := range cp.model.Constraints {
		c.Enforcement = slices.Clone(c.Enforcement)
		m.Constraints[i] = c
	}
	if cp.model.Objective != nil {
		o := *cp.model.Objective
		m.Objective = &o
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
