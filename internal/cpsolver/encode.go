package cpsolver

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/crillab/gophersat/solver"

	"github.com/okian/cutline/internal/cpmodel"
)

// maxDomainWidth bounds integer variables that have to be bit-encoded.
const maxDomainWidth = 1 << 40

// affine is sum(terms[p] * x_p) + offset over pseudo-Boolean variables x_p,
// numbered from 1.
type affine struct {
	terms  map[int]int64
	offset int64
}

func constant(v int64) *affine { return &affine{terms: map[int]int64{}, offset: v} }

func (a *affine) addScaled(b *affine, c int64) {
	if c == 0 {
		return
	}
	for p, w := range b.terms {
		a.terms[p] += w * c
		if a.terms[p] == 0 {
			delete(a.terms, p)
		}
	}
	a.offset += b.offset * c
}

func (a *affine) scaled(c int64) *affine {
	out := constant(0)
	out.addScaled(a, c)
	return out
}

// bounds returns the smallest and largest value a can take.
func (a *affine) bounds() (lo, hi int64) {
	lo, hi = a.offset, a.offset
	for _, w := range a.terms {
		if w < 0 {
			lo += w
		} else {
			hi += w
		}
	}
	return lo, hi
}

func (a *affine) vars() []int {
	out := make([]int, 0, len(a.terms))
	for p := range a.terms {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (a *affine) eval(value func(p int) bool) int64 {
	v := a.offset
	for p, w := range a.terms {
		if value(p) {
			v += w
		}
	}
	return v
}

// encoding is a model rewritten as pseudo-Boolean constraints. Boolean
// variables map to one solver variable each; integer variables are either
// substituted by the equality that defines them or encoded in binary.
type encoding struct {
	m      *cpmodel.Model
	exprs  []*affine
	nvars  int
	constr []solver.PBConstr
	// infeasible is set when a constraint can never hold.
	infeasible bool
	cost       *affine
}

func encode(m *cpmodel.Model) (*encoding, error) {
	e := &encoding{m: m, exprs: make([]*affine, len(m.Variables))}
	for i, v := range m.Variables {
		switch {
		case v.Domain.Fixed():
			e.exprs[i] = constant(v.Domain.Min)
		case m.IsBoolean(cpmodel.VarIndex(i)):
			e.exprs[i] = e.newVar()
		}
	}

	used := e.substitute()
	for i, v := range m.Variables {
		if e.exprs[i] != nil {
			continue
		}
		x, err := e.binary(v.Domain)
		if err != nil {
			return nil, fmt.Errorf("variable %d: %w", i, err)
		}
		e.exprs[i] = x
	}

	for ci, c := range m.Constraints {
		if used[ci] {
			continue
		}
		e.constraint(c)
	}
	if m.Objective != nil {
		obj := constant(m.Objective.Offset)
		for k, v := range m.Objective.Vars {
			obj.addScaled(e.exprs[v], m.Objective.Coeffs[k])
		}
		e.cost = obj
		if m.Objective.Maximize {
			e.cost = obj.scaled(-1)
		}
	}
	return e, nil
}

func (e *encoding) newVar() *affine {
	e.nvars++
	return &affine{terms: map[int]int64{e.nvars: 1}}
}

// substitute defines integer variables through unconditional equalities in
// which they are the only unknown with a unit coefficient, until no more can
// be defined. Defining equalities are marked used; the variable's domain is
// kept as a constraint on its definition.
func (e *encoding) substitute() []bool {
	used := make([]bool, len(e.m.Constraints))
	for changed := true; changed; {
		changed = false
		for ci, c := range e.m.Constraints {
			lin := c.Linear
			if used[ci] || lin == nil || len(c.Enforcement) > 0 || lin.Lb != lin.Ub ||
				lin.Lb == cpmodel.MinBound || lin.Lb == cpmodel.MaxBound {
				continue
			}
			unknown := -1
			for k, v := range lin.Vars {
				if e.exprs[v] != nil {
					continue
				}
				if unknown >= 0 || (lin.Coeffs[k] != 1 && lin.Coeffs[k] != -1) {
					unknown = -2
					break
				}
				unknown = k
			}
			if unknown < 0 {
				continue
			}
			// a*v + rest = K, so v = a * (K - rest) for a in {-1, 1}.
			a := lin.Coeffs[unknown]
			def := constant(lin.Lb)
			for k, v := range lin.Vars {
				if k != unknown {
					def.addScaled(e.exprs[v], -lin.Coeffs[k])
				}
			}
			def = def.scaled(a)
			v := lin.Vars[unknown]
			e.exprs[v] = def
			e.domain(def, e.m.Variables[v].Domain)
			used[ci] = true
			changed = true
		}
	}
	return used
}

// domain keeps x inside d where the definition alone does not.
func (e *encoding) domain(x *affine, d cpmodel.Domain) {
	lo, hi := x.bounds()
	if lo < d.Min {
		e.atLeast(x, d.Min, nil)
	}
	if hi > d.Max {
		e.atLeast(x.scaled(-1), -d.Max, nil)
	}
}

// binary encodes an integer variable as d.Min plus a sum of weighted bits.
func (e *encoding) binary(d cpmodel.Domain) (*affine, error) {
	if d.Min == cpmodel.MinBound || d.Max == cpmodel.MaxBound || d.Max-d.Min > maxDomainWidth {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrUnbounded, d.Min, d.Max)
	}
	width := d.Max - d.Min
	x := constant(d.Min)
	for k := range bits.Len64(uint64(width)) {
		x.addScaled(e.newVar(), 1<<k)
	}
	if _, hi := x.bounds(); hi > d.Max {
		e.atLeast(x.scaled(-1), -d.Max, nil)
	}
	return x, nil
}

func (e *encoding) literal(ref cpmodel.VarIndex) *affine {
	x := e.exprs[ref.Positive()]
	if ref.Negated() {
		neg := constant(1)
		neg.addScaled(x, -1)
		return neg
	}
	return x
}

func (e *encoding) constraint(c cpmodel.ConstraintProto) {
	var enforce []int
	for _, ref := range c.Enforcement {
		l := e.literal(ref)
		if len(l.terms) == 0 {
			if l.offset == 0 {
				return
			}
			continue
		}
		enforce = append(enforce, boolLit(l))
	}

	sum := func(refs []cpmodel.VarIndex) *affine {
		s := constant(0)
		for _, ref := range refs {
			s.addScaled(e.literal(ref), 1)
		}
		return s
	}

	switch {
	case c.Linear != nil:
		x := constant(0)
		for k, v := range c.Linear.Vars {
			x.addScaled(e.exprs[v], c.Linear.Coeffs[k])
		}
		e.between(x, c.Linear.Lb, c.Linear.Ub, enforce)
	case c.AtMostOne != nil:
		e.between(sum(c.AtMostOne.Literals), cpmodel.MinBound, 1, enforce)
	case c.ExactlyOne != nil:
		e.between(sum(c.ExactlyOne.Literals), 1, 1, enforce)
	case c.Matching != nil:
		for r, row := range c.Matching.Rows {
			x := sum(row)
			x.addScaled(e.literal(c.Matching.Present[r]), -1)
			e.between(x, 0, 0, nil)
		}
		if len(c.Matching.Rows) == 0 {
			return
		}
		for s := range c.Matching.Rows[0] {
			col := make([]cpmodel.VarIndex, len(c.Matching.Rows))
			for r, row := range c.Matching.Rows {
				col[r] = row[s]
			}
			e.between(sum(col), 1, 1, nil)
		}
	}
}

// boolLit returns the solver literal of a single-variable Boolean expression
// x or 1 - x.
func boolLit(l *affine) int {
	for p, w := range l.terms {
		if w < 0 {
			return -p
		}
		return p
	}
	return 0
}

func (e *encoding) between(x *affine, lb, ub int64, enforce []int) {
	if lb != cpmodel.MinBound {
		e.atLeast(x, lb, enforce)
	}
	if ub != cpmodel.MaxBound {
		e.atLeast(x.scaled(-1), -ub, enforce)
	}
}

// atLeast adds x >= k, relaxed when any enforcement literal is false. The
// relaxation adds (k - min x) * not(l) for every enforcement literal l, which
// makes the constraint hold whatever x is.
func (e *encoding) atLeast(x *affine, k int64, enforce []int) {
	lo, _ := x.bounds()
	if lo >= k {
		return
	}
	if len(enforce) > 0 {
		relaxed := constant(0)
		relaxed.addScaled(x, 1)
		for _, l := range enforce {
			relaxed.addScaled(negation(l), k-lo)
		}
		x = relaxed
	}

	bound := k - x.offset
	var (
		lits    []int
		weights []int64
	)
	for _, p := range x.vars() {
		w := x.terms[p]
		if w < 0 {
			lits = append(lits, -p)
			weights = append(weights, -w)
			bound -= w
			continue
		}
		lits = append(lits, p)
		weights = append(weights, w)
	}
	if bound <= 0 {
		return
	}
	var total int64
	for i, w := range weights {
		weights[i] = min(w, bound)
		total += weights[i]
	}
	if total < bound {
		e.infeasible = true
		return
	}
	pb := solver.PBConstr{Lits: lits, Weights: make([]int, len(weights)), AtLeast: int(bound)}
	for i, w := range weights {
		pb.Weights[i] = int(w)
	}
	e.constr = append(e.constr, pb)
}

// negation returns the expression of the opposite of solver literal l.
func negation(l int) *affine {
	if l < 0 {
		return &affine{terms: map[int]int64{-l: 1}}
	}
	return &affine{terms: map[int]int64{l: -1}, offset: 1}
}
