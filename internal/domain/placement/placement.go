// Package placement turns a phase tree into placement variables: for every
// stage a competitor-by-slot indicator matrix, participation literals and the
// points each competitor earns there.
package placement

import (
	"fmt"

	"github.com/okian/cutline/internal/cpmodel"
	"github.com/okian/cutline/internal/domain/phase"
	"github.com/okian/cutline/internal/domain/qualifier"
	"github.com/okian/cutline/internal/domain/registry"
)

// Stage holds the variables of one phase. Rows of competitors that cannot
// take part are the model's false constant.
type Stage struct {
	Phase *phase.Phase
	// X[c][s] holds when competitor c finishes at 0-based slot s.
	X [][]cpmodel.BoolVar
	// In[c] holds when competitor c takes part in the stage.
	In []cpmodel.BoolVar
	// Points[c] is what competitor c earns in this stage alone.
	Points []cpmodel.IntVar

	GS1 *Stage
	GS2 *Stage

	possible []bool
}

// Build validates p and adds its placement model, group stages included, for
// competitors registered competitors.
func Build(cp *cpmodel.Builder, p *phase.Phase, competitors int) (*Stage, error) {
	if err := p.Validate(competitors); err != nil {
		return nil, err
	}

	root := newStage(cp, p, competitors, participation(cp, p.Entrants, competitors))
	root.constrainRows(cp, nil)
	root.finish(cp)

	if p.GroupStage1 != nil {
		gs1 := newStage(cp, p.GroupStage1, competitors, root.In)
		gs1.constrainRows(cp, nil)
		gs1.finish(cp)
		root.GS1 = gs1
		root.link(cp)
	}
	return root, nil
}

// participation creates the participation literals of a top-level phase.
func participation(cp *cpmodel.Builder, e *qualifier.Entrants, competitors int) []cpmodel.BoolVar {
	in := make([]cpmodel.BoolVar, competitors)
	for c := range competitors {
		switch e.StatusOf(registry.Index(c)) {
		case qualifier.Invited:
			in[c] = cp.TrueVar()
		case qualifier.Absent:
			in[c] = cp.FalseVar()
		default:
			in[c] = cp.NewBoolVar().WithName(fmt.Sprintf("in_%d", c))
		}
	}
	for _, pool := range e.Pools() {
		sum := cpmodel.NewLinearExpr()
		for _, c := range pool.Candidates {
			sum.Add(in[c])
		}
		cp.AddLinearConstraint(sum, int64(pool.NumQualified), int64(pool.NumQualified)).WithName("pool_" + pool.Region)
	}
	return in
}

func newStage(cp *cpmodel.Builder, p *phase.Phase, competitors int, in []cpmodel.BoolVar) *Stage {
	s := &Stage{
		Phase:    p,
		X:        make([][]cpmodel.BoolVar, competitors),
		In:       in,
		Points:   make([]cpmodel.IntVar, competitors),
		possible: make([]bool, competitors),
	}
	falseVar := cp.FalseVar()
	for c := range competitors {
		s.possible[c] = in[c].Index() != falseVar.Index()
		s.X[c] = make([]cpmodel.BoolVar, p.Slots)
		for slot := range p.Slots {
			if s.possible[c] {
				s.X[c][slot] = cp.NewBoolVar().WithName(fmt.Sprintf("%s_x_%d_%d", p.Name, c, slot))
			} else {
				s.X[c][slot] = falseVar
			}
		}
	}
	return s
}

// constrainRows adds the row sums. With enforce set, a row sums to one when
// enforce[c] holds and to zero otherwise; without, it sums to In[c].
func (s *Stage) constrainRows(cp *cpmodel.Builder, enforce []cpmodel.BoolVar) {
	for c, row := range s.X {
		if !s.possible[c] {
			continue
		}
		cp.AddAtMostOne(row...)
		sum := cpmodel.NewLinearExpr().AddSum(boolArgs(row)...)
		if enforce == nil {
			cp.AddEquality(sum, s.In[c])
			continue
		}
		cp.AddLinearConstraint(sum, 1, 1).OnlyEnforceIf(enforce[c])
		cp.AddLinearConstraint(sum, 0, 0).OnlyEnforceIf(enforce[c].Not())
	}
}

// finish adds the slot columns, the matching, points and the recorded facts.
func (s *Stage) finish(cp *cpmodel.Builder) {
	p := s.Phase
	var rows [][]cpmodel.BoolVar
	var present []cpmodel.BoolVar
	for c, row := range s.X {
		if s.possible[c] {
			rows = append(rows, row)
			present = append(present, s.In[c])
		}
	}
	for slot := range p.Slots {
		col := make([]cpmodel.BoolVar, len(rows))
		for r, row := range rows {
			col[r] = row[slot]
		}
		cp.AddExactlyOne(col...)
	}
	cp.AddLinearConstraint(cpmodel.NewLinearExpr().AddSum(boolArgs(present)...), int64(p.Slots), int64(p.Slots))
	cp.AddPlacementMatching(rows, present).WithName(p.Name + "_matching")

	for c, row := range s.X {
		if !s.possible[c] {
			s.Points[c] = cp.NewConstant(0)
			continue
		}
		s.Points[c] = cp.NewIntVar(0, p.MaxPoints()).WithName(fmt.Sprintf("%s_points_%d", p.Name, c))
		earned := cpmodel.NewLinearExpr()
		for slot, x := range row {
			if v := p.PointsAt(slot); v != 0 {
				earned.AddTerm(x, v)
			}
		}
		cp.AddEquality(s.Points[c], earned)
	}

	s.applySeeds(cp)
	s.applyFacts(cp)
}

func (s *Stage) applySeeds(cp *cpmodel.Builder) {
	forbid := func(c registry.Index, parity int) {
		sum := cpmodel.NewLinearExpr()
		for slot := parity; slot < len(s.X[c]); slot += 2 {
			sum.Add(s.X[c][slot])
		}
		cp.AddLinearConstraint(sum, 0, 0)
	}
	// A takes 1st, 3rd, ...; B takes 2nd, 4th, ...
	for _, c := range s.Phase.SeedA {
		forbid(c, 1)
	}
	for _, c := range s.Phase.SeedB {
		forbid(c, 0)
	}
}

func (s *Stage) applyFacts(cp *cpmodel.Builder) {
	p := s.Phase
	for _, r := range p.Ranges {
		cp.AddLinearConstraint(s.SlotRange(r.Competitor, r.Best-1, r.Worst), 1, 1).
			WithName(fmt.Sprintf("%s_range_%d", p.Name, r.Competitor))
	}
	for _, claim := range p.Claims {
		sum := cpmodel.NewLinearExpr()
		for _, c := range claim.Group {
			sum.Add(s.X[c][claim.Place-1])
		}
		cp.AddLinearConstraint(sum, 1, 1)
	}
	for _, group := range p.LowerBracket {
		sum := cpmodel.NewLinearExpr()
		for _, c := range group {
			sum.Add(s.X[c][0]).Add(s.X[c][1])
		}
		cp.AddLinearConstraint(sum, 0, 1)
	}
}

// link ties the group stages to the parent.
func (s *Stage) link(cp *cpmodel.Builder) {
	gs1 := s.GS1
	cut := s.Phase.Linkage.CutFor(gs1.Phase.Slots)

	// Below the cut the opening stage result is final.
	for c := range s.X {
		if !s.possible[c] {
			continue
		}
		for slot := cut; slot < gs1.Phase.Slots; slot++ {
			cp.AddEquality(gs1.X[c][slot], s.X[c][slot])
		}
	}

	if s.Phase.GroupStage2 == nil {
		for c := range s.X {
			if s.possible[c] {
				cp.AddEquality(gs1.SlotRange(registry.Index(c), 0, cut), s.SlotRange(registry.Index(c), 0, cut))
			}
		}
		return
	}

	advance := make([]cpmodel.BoolVar, len(s.X))
	for c := range s.X {
		if !s.possible[c] {
			advance[c] = cp.FalseVar()
			continue
		}
		top := cp.NewBoolVar().WithName(fmt.Sprintf("top_%d", c))
		cp.AddEquality(top, gs1.SlotRange(registry.Index(c), 0, cut))
		advance[c] = cp.NewBoolVar().WithName(fmt.Sprintf("advance_%d", c))
		cp.AddLessOrEqual(advance[c], s.In[c])
		cp.AddLessOrEqual(advance[c], top)
		cp.AddGreaterOrEqual(advance[c], cpmodel.NewLinearExpr().AddSum(s.In[c], top).AddConstant(-1))
	}

	gs2 := newStage(cp, s.Phase.GroupStage2, len(s.X), advance)
	gs2.constrainRows(cp, advance)
	gs2.finish(cp)
	s.GS2 = gs2

	playoff := s.Phase.Linkage.Playoff
	for c := range s.X {
		if !s.possible[c] {
			continue
		}
		idx := registry.Index(c)
		if playoff > 0 {
			inPlayoff := cp.NewBoolVar().WithName(fmt.Sprintf("playoff_%d", c))
			cp.AddEquality(gs2.SlotRange(idx, 0, playoff), inPlayoff)
			cp.AddEquality(s.SlotRange(idx, 0, playoff), inPlayoff)
		}
		for slot := playoff; slot < gs2.Phase.Slots; slot++ {
			cp.AddEquality(gs2.X[c][slot], s.X[c][slot])
		}
	}
}

// SlotRange is the sum of c's indicators over 0-based slots [from, to).
func (s *Stage) SlotRange(c registry.Index, from, to int) *cpmodel.LinearExpr {
	return cpmodel.NewLinearExpr().AddSum(boolArgs(s.X[c][from:to])...)
}

// Stages returns this stage followed by its group stages.
func (s *Stage) Stages() []*Stage {
	out := []*Stage{s}
	if s.GS1 != nil {
		out = append(out, s.GS1)
	}
	if s.GS2 != nil {
		out = append(out, s.GS2)
	}
	return out
}

// Possible reports whether c may take part in the stage at all.
func (s *Stage) Possible(c registry.Index) bool {
	return s.possible[c]
}

// PointsBounds returns the least and most c can earn across this stage and
// its group stages.
func (s *Stage) PointsBounds(c registry.Index) (int64, int64) {
	var hi int64
	for _, st := range s.Stages() {
		if st.possible[c] {
			hi += st.Phase.MaxPoints()
		}
	}
	return 0, hi
}

// Placement reads the 0-based slot of c from a solution; -1 when c did not
// take part.
func (s *Stage) Placement(value func(cpmodel.BoolVar) bool, c registry.Index) int {
	for slot, x := range s.X[c] {
		if value(x) {
			return slot
		}
	}
	return -1
}

func boolArgs(bvs []cpmodel.BoolVar) []cpmodel.LinearArgument {
	out := make([]cpmodel.LinearArgument, len(bvs))
	for i, b := range bvs {
		out[i] = b
	}
	return out
}
