package threshold

import (
	"fmt"

	"github.com/okian/cutline/internal/cpmodel"
	"github.com/okian/cutline/internal/domain/circuit"
	"github.com/okian/cutline/internal/domain/placement"
	"github.com/okian/cutline/internal/domain/ranking"
	"github.com/okian/cutline/internal/domain/registry"
)

// Stage column labels, in the order placement.Stage.Stages returns them.
var stageLabels = []string{"Overall", "GS1", "GS2"}

// seasonModel is the model of every valid final standing of a circuit. It is
// built fresh for each query and only ranks the queried competitor.
type seasonModel struct {
	cp        *cpmodel.Builder
	steps     []*circuit.Step
	stages    map[string]*placement.Stage
	standings *ranking.Standings
	columns   []Column
}

func (o *Optimizer) build(c registry.Index) (*seasonModel, error) {
	steps, err := o.circuit.Steps()
	if err != nil {
		return nil, err
	}
	n := o.circuit.Registry.Len()
	sm := &seasonModel{
		cp:     cpmodel.NewCpModelBuilder(),
		steps:  steps,
		stages: make(map[string]*placement.Stage),
	}

	totals := make([]ranking.Total, n)
	for c := range totals {
		totals[c].Expr = cpmodel.NewLinearExpr()
	}
	for _, step := range steps {
		switch step.Kind {
		case circuit.Event:
			st, err := placement.Build(sm.cp, step.Phase, n)
			if err != nil {
				return nil, fmt.Errorf("event %s: %w", step.Name, err)
			}
			sm.stages[step.Name] = st
			for i, s := range st.Stages() {
				sm.columns = append(sm.columns, Column{
					Step:  step.Name,
					Stage: stageLabels[i],
					Kind:  step.Kind,
					Icon:  step.Phase.Icon,
					Link:  step.Phase.Link,
				})
				for c := range totals {
					totals[c].Expr.Add(s.Points[c])
				}
			}
			for c := range totals {
				lo, hi := st.PointsBounds(registry.Index(c))
				totals[c].Min += lo
				totals[c].Max += hi
			}
		default:
			sm.columns = append(sm.columns, Column{Step: step.Name, Kind: step.Kind})
			for c := range totals {
				v := step.PointsOf(registry.Index(c))
				totals[c].Expr.AddConstant(v)
				totals[c].Min += v
				totals[c].Max += v
			}
		}
	}

	opts := []ranking.Option{ranking.WithRows(int(c))}
	if o.bigM > 0 {
		opts = append(opts, ranking.WithBigM(o.bigM))
	}
	sm.standings, err = ranking.Build(sm.cp, totals, opts...)
	if err != nil {
		return nil, err
	}
	return sm, nil
}

// target restricts the model to standings where c ranks worse than
// eliminationRank and maximizes c's total. The decision strategies record
// c's best placements, then its comparisons, as a search hint.
func (sm *seasonModel) target(c registry.Index, eliminationRank int) {
	total := sm.standings.Totals[c]
	sm.cp.AddGreaterThan(sm.standings.Ranks[c], cpmodel.NewConstant(int64(eliminationRank))).WithName("eliminated")
	sm.cp.Maximize(total)

	var placements []cpmodel.Var
	for _, step := range sm.steps {
		st, ok := sm.stages[step.Name]
		if !ok {
			continue
		}
		for _, s := range st.Stages() {
			if !s.Possible(c) {
				continue
			}
			for _, x := range s.X[c] {
				placements = append(placements, x)
			}
		}
	}
	sm.cp.AddDecisionStrategy(placements, cpmodel.ChooseFirst, cpmodel.SelectMaxValue)

	var comparisons []cpmodel.Var
	for j, ge := range sm.standings.GE[c] {
		if registry.Index(j) != c {
			comparisons = append(comparisons, ge)
		}
	}
	sm.cp.AddDecisionStrategy(comparisons, cpmodel.ChooseFirst, cpmodel.SelectMaxValue)
}
