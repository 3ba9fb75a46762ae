package threshold

import (
	"cmp"
	"slices"

	"github.com/okian/cutline/internal/cpsolver"
	"github.com/okian/cutline/internal/domain/circuit"
	"github.com/okian/cutline/internal/domain/ranking"
	"github.com/okian/cutline/internal/domain/registry"
)

// Column describes one points column of a scenario: a stage of an event, a
// resolved event or a transfer window.
type Column struct {
	Step  string
	Stage string
	Kind  circuit.Kind
	Icon  string
	Link  string
}

// Cell is one competitor's result in one column. Place is 1-based and 0 when
// the competitor did not take part or the column has no places.
type Cell struct {
	Place  int
	Points int64
}

// Standing is one competitor's line in a scenario.
type Standing struct {
	Competitor registry.Index
	Name       string
	Cells      []Cell
	Total      int64
	Rank       int
}

// Scenario is a full solved standing of the circuit, in registry order.
type Scenario struct {
	Columns   []Column
	Standings []Standing
}

// Sorted returns the standings by total, best first, ties in registry order.
func (s *Scenario) Sorted() []Standing {
	out := slices.Clone(s.Standings)
	slices.SortStableFunc(out, func(a, b Standing) int {
		return cmp.Compare(b.Total, a.Total)
	})
	return out
}

// Column returns the column index of the given step and stage label, or -1.
func (s *Scenario) Column(step, stage string) int {
	return slices.IndexFunc(s.Columns, func(c Column) bool {
		return c.Step == step && c.Stage == stage
	})
}

func (sm *seasonModel) scenario(reg *registry.Registry, resp cpsolver.Response) *Scenario {
	sc := &Scenario{Columns: slices.Clone(sm.columns)}
	totals := make([]int64, reg.Len())
	for c, t := range sm.standings.Totals {
		totals[c] = resp.Value(t)
	}
	ranks := ranking.RanksOf(totals)
	for _, comp := range reg.All() {
		c := comp.Index
		row := Standing{
			Competitor: c,
			Name:       comp.Name,
			Total:      totals[c],
			Rank:       ranks[c],
		}
		for _, step := range sm.steps {
			st, ok := sm.stages[step.Name]
			if !ok {
				row.Cells = append(row.Cells, Cell{Points: step.PointsOf(c)})
				continue
			}
			for _, s := range st.Stages() {
				row.Cells = append(row.Cells, Cell{
					Place:  s.Placement(resp.BoolValue, c) + 1,
					Points: resp.Value(s.Points[c]),
				})
			}
		}
		sc.Standings = append(sc.Standings, row)
	}
	return sc
}
