package threshold

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/cutline/internal/cpmodel"
	"github.com/okian/cutline/internal/cpsolver"
	"github.com/okian/cutline/internal/domain/circuit"
	"github.com/okian/cutline/internal/domain/phase"
	"github.com/okian/cutline/internal/domain/qualifier"
	"github.com/okian/cutline/internal/domain/registry"
	. "github.com/smartystreets/goconvey/convey"
)

var majorPoints = []int64{3000, 2500, 2000, 1600, 1200, 1000, 600, 400, 250, 250, 125, 125, 70, 70, 30, 30}

// invitedEvent registers n competitors, all invited to one event.
func invitedEvent(n int, points []int64, opts ...phase.Option) (*circuit.Circuit, *phase.Phase) {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("team %02d", i+1)
	}
	reg, err := registry.New(names...)
	So(err, ShouldBeNil)
	e := qualifier.New()
	all := make([]registry.Index, n)
	for i := range all {
		all[i] = registry.Index(i)
	}
	So(e.DeclareInvited(all...), ShouldBeNil)
	ev, err := phase.New("major", n, points, append(opts, phase.WithEntrants(e))...)
	So(err, ShouldBeNil)
	c := circuit.New(reg)
	So(c.AddEvent(ev), ShouldBeNil)
	return c, ev
}

func TestThresholdScenario(t *testing.T) {
	Convey("Given sixteen invited competitors and a top eight cut", t, func() {
		c, ev := invitedEvent(16, majorPoints)

		Convey("When the first competitor is optimized", func() {
			opt, err := New(c)
			So(err, ShouldBeNil)
			out, err := opt.OptimizeFor(context.Background(), 0, 8)
			So(err, ShouldBeNil)

			Convey("Then the best eliminated total is a shared ninth place", func() {
				So(out.Status, ShouldEqual, Optimal)
				So(out.Value, ShouldEqual, 250)
			})

			Convey("Then the scenario ranks the competitor outside the top eight", func() {
				So(out.HasScenario(), ShouldBeTrue)
				row := out.Scenario.Standings[0]
				So(row.Total, ShouldEqual, 250)
				So(row.Rank, ShouldBeGreaterThan, 8)
				So(row.Cells[0].Place, ShouldBeBetweenOrEqual, 9, 10)

				sorted := out.Scenario.Sorted()
				for i := 1; i < len(sorted); i++ {
					So(sorted[i-1].Total, ShouldBeGreaterThanOrEqualTo, sorted[i].Total)
				}
				So(out.Scenario.Columns[0].Stage, ShouldEqual, "Overall")
			})
		})

		Convey("When the competitor is known to win the event", func() {
			So(ev.ConstrainRange(0, 1, 1), ShouldBeNil)
			opt, err := New(c)
			So(err, ShouldBeNil)
			out, err := opt.OptimizeFor(context.Background(), 0, 8)
			So(err, ShouldBeNil)

			Convey("Then no elimination scenario exists", func() {
				So(out.Status, ShouldEqual, NoEliminationScenario)
				So(out.HasScenario(), ShouldBeFalse)
			})
		})
	})
}

func TestBigMBoundary(t *testing.T) {
	Convey("Given two invited competitors and a winner-takes-all table", t, func() {
		c, _ := invitedEvent(2, []int64{10, 0})

		Convey("When the derived constant is used", func() {
			opt, err := New(c)
			So(err, ShouldBeNil)
			out, err := opt.OptimizeFor(context.Background(), 0, 1)
			So(err, ShouldBeNil)

			Convey("Then losing is possible with nothing", func() {
				So(out.Status, ShouldEqual, Optimal)
				So(out.Value, ShouldEqual, 0)
			})
		})

		Convey("When the constant is one too small", func() {
			opt, err := New(c, WithBigM(10))
			So(err, ShouldBeNil)
			out, err := opt.OptimizeFor(context.Background(), 0, 1)
			So(err, ShouldBeNil)

			Convey("Then the answer turns into a spurious infeasibility", func() {
				So(out.Status, ShouldEqual, NoEliminationScenario)
			})
		})
	})
}

// openCup is a four-slot event open to every registered competitor. The
// top two of the opening stage play a second stage whose winner takes the
// event, so a participant can total 125, 115, 80, 70, 30 or 10.
func openCup(name string) *phase.Phase {
	gs1, err := phase.New("gs1", 4, []int64{20, 10})
	So(err, ShouldBeNil)
	gs2, err := phase.New("gs2", 2, []int64{5})
	So(err, ShouldBeNil)
	ev, err := phase.New(name, 4, []int64{100, 60, 30, 10},
		phase.WithGroupStages(gs1, gs2, phase.HalfSplit(1)))
	So(err, ShouldBeNil)
	return ev
}

func TestOpenGroupStageEvent(t *testing.T) {
	Convey("Given six competitors and an open event with two group stages", t, func() {
		reg, err := registry.New("A", "B", "C", "D", "E", "F")
		So(err, ShouldBeNil)
		c := circuit.New(reg)
		So(c.AddEvent(openCup("cup")), ShouldBeNil)

		Convey("When the first competitor must miss the top spot", func() {
			opt, err := New(c)
			So(err, ShouldBeNil)
			out, err := opt.OptimizeFor(context.Background(), 0, 1)
			So(err, ShouldBeNil)

			Convey("Then it tops the opening stage and loses the final", func() {
				So(out.Status, ShouldEqual, Optimal)
				So(out.Value, ShouldEqual, 80)

				row := out.Scenario.Standings[0]
				So(row.Rank, ShouldEqual, 2)
				So(len(row.Cells), ShouldEqual, 3)
				So(row.Cells[0].Place, ShouldEqual, 2)
				So(row.Cells[1].Place, ShouldEqual, 1)
				So(out.Scenario.Sorted()[0].Total, ShouldEqual, 115)
			})
		})

		Convey("When the first competitor must finish outside the top three", func() {
			opt, err := New(c)
			So(err, ShouldBeNil)
			out, err := opt.OptimizeFor(context.Background(), 0, 3)
			So(err, ShouldBeNil)

			Convey("Then fourth place is the best it can do", func() {
				So(out.Status, ShouldEqual, Optimal)
				So(out.Value, ShouldEqual, 10)
			})
		})
	})
}

func TestTwoEventCircuit(t *testing.T) {
	Convey("Given four competitors, an invited league and a two-slot open final after it", t, func() {
		reg, err := registry.New("A", "B", "C", "D")
		So(err, ShouldBeNil)
		c := circuit.New(reg)
		e := qualifier.New()
		So(e.DeclareInvited(0, 1, 2, 3), ShouldBeNil)
		league, err := phase.New("league", 4, []int64{50, 30, 10}, phase.WithEntrants(e))
		So(err, ShouldBeNil)
		So(c.AddEvent(league), ShouldBeNil)
		final, err := phase.New("final", 2, []int64{40, 20})
		So(err, ShouldBeNil)
		So(c.AddEvent(final, "league"), ShouldBeNil)

		Convey("When the first competitor is optimized with a top two cut", func() {
			opt, err := New(c)
			So(err, ShouldBeNil)
			out, err := opt.OptimizeFor(context.Background(), 0, 2)
			So(err, ShouldBeNil)

			Convey("Then winning the league alone is caught by two split results", func() {
				So(out.Status, ShouldEqual, Optimal)
				So(out.Value, ShouldEqual, 50)
				So(out.Scenario.Standings[0].Rank, ShouldBeGreaterThan, 2)
				above := 0
				for _, row := range out.Scenario.Standings[1:] {
					if row.Total >= 50 {
						above++
					}
				}
				So(above, ShouldBeGreaterThanOrEqualTo, 2)
			})
		})

		Convey("When every competitor is optimized", func() {
			opt, err := New(c)
			So(err, ShouldBeNil)
			res, err := opt.OptimizeAll(context.Background(), 2)
			So(err, ShouldBeNil)

			Convey("Then the season threshold is the same for all", func() {
				So(res.Found, ShouldBeTrue)
				So(res.Value, ShouldEqual, 50)
				for _, o := range res.Outcomes {
					So(o.Value, ShouldEqual, 50)
				}
			})
		})
	})
}

// smallSeason is a four competitor season: a resolved opener, a transfer
// window docking the last competitor and a four slot event.
func smallSeason() *circuit.Circuit {
	reg, err := registry.New("A", "B", "C", "D")
	So(err, ShouldBeNil)
	c := circuit.New(reg)
	So(c.AddResolvedEvent("opener", map[registry.Index]int64{0: 200}), ShouldBeNil)
	So(c.AddTransferWindow("window", map[registry.Index]int64{3: -10}), ShouldBeNil)
	e := qualifier.New()
	So(e.DeclareInvited(0, 1, 2, 3), ShouldBeNil)
	ev, err := phase.New("finale", 4, []int64{100, 50, 20}, phase.WithEntrants(e))
	So(err, ShouldBeNil)
	So(c.AddEvent(ev), ShouldBeNil)
	return c
}

func TestOptimizeAll(t *testing.T) {
	Convey("Given a season with a resolved leader and a top two cut", t, func() {
		opt, err := New(smallSeason())
		So(err, ShouldBeNil)
		res, err := opt.OptimizeAll(context.Background(), 2)
		So(err, ShouldBeNil)

		Convey("Then the leader cannot be eliminated", func() {
			So(res.Outcomes[0].Status, ShouldEqual, NoEliminationScenario)
		})

		Convey("Then each other competitor needs somebody above", func() {
			So(res.Outcomes[1].Value, ShouldEqual, 50)
			So(res.Outcomes[2].Value, ShouldEqual, 50)
			So(res.Outcomes[3].Value, ShouldEqual, 40)
		})

		Convey("Then the threshold is the best eliminated total", func() {
			So(res.Found, ShouldBeTrue)
			So(res.Value, ShouldEqual, 50)
			So(res.Best.Name, ShouldEqual, "B")
		})

		Convey("Then scenario columns follow the season", func() {
			sc := res.Best.Scenario
			So(len(sc.Columns), ShouldEqual, 3)
			So(sc.Column("opener", ""), ShouldEqual, 0)
			So(sc.Column("finale", "Overall"), ShouldEqual, 2)
			So(sc.Standings[0].Cells[0].Points, ShouldEqual, 200)
			So(sc.Standings[3].Cells[1].Points, ShouldEqual, -10)
		})
	})
}

// stalledSolver answers like a solver whose budget ended before the first
// solution, optionally through the context deadline.
type stalledSolver struct {
	err error
}

func (s stalledSolver) Solve(context.Context, *cpmodel.Model) (cpsolver.Response, error) {
	return cpsolver.Response{Status: cpsolver.Unknown}, s.err
}

func TestBudget(t *testing.T) {
	Convey("Given a solver that runs out of budget before any solution", t, func() {
		stopped := stalledSolver{}

		Convey("When timeouts are errors", func() {
			opt, err := New(smallSeason(), WithSolver(stopped))
			So(err, ShouldBeNil)
			_, err = opt.OptimizeFor(context.Background(), 1, 2)

			Convey("Then the query reports the exhausted budget", func() {
				So(errors.Is(err, ErrSolverTimeout), ShouldBeTrue)
			})
		})

		Convey("When timeouts count as no scenario", func() {
			opt, err := New(smallSeason(), WithSolver(stopped), WithTimeoutAsNoScenario(true))
			So(err, ShouldBeNil)
			out, err := opt.OptimizeFor(context.Background(), 1, 2)

			Convey("Then the query answers without error", func() {
				So(err, ShouldBeNil)
				So(out.Status, ShouldEqual, NoEliminationScenario)
			})
		})

		Convey("When the deadline ends the solve", func() {
			opt, err := New(smallSeason(), WithSolver(stalledSolver{err: context.DeadlineExceeded}))
			So(err, ShouldBeNil)
			_, err = opt.OptimizeFor(context.Background(), 1, 2)
			So(errors.Is(err, ErrSolverTimeout), ShouldBeTrue)
		})
	})
}

func TestArguments(t *testing.T) {
	Convey("Given an optimizer", t, func() {
		opt, err := New(smallSeason())
		So(err, ShouldBeNil)

		Convey("When the competitor is unknown", func() {
			_, err := opt.OptimizeFor(context.Background(), 9, 2)
			So(errors.Is(err, registry.ErrUnknownCompetitor), ShouldBeTrue)
		})

		Convey("When the cut leaves nobody to eliminate", func() {
			out, err := opt.OptimizeFor(context.Background(), 1, 4)
			So(err, ShouldBeNil)
			So(out.Status, ShouldEqual, NoEliminationScenario)
			So(out.HasScenario(), ShouldBeFalse)

			res, err := opt.OptimizeAll(context.Background(), 5)
			So(err, ShouldBeNil)
			So(res.Found, ShouldBeFalse)
			So(len(res.Outcomes), ShouldEqual, 4)
		})

		Convey("When the cut is below one", func() {
			_, err := opt.OptimizeFor(context.Background(), 1, 0)
			So(errors.Is(err, ErrInvalidEliminationRank), ShouldBeTrue)
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := opt.OptimizeAll(ctx, 2)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given no circuit", t, func() {
		_, err := New(nil)
		So(errors.Is(err, ErrNilCircuit), ShouldBeTrue)
	})

	Convey("Status names are stable", t, func() {
		So(NoEliminationScenario.String(), ShouldEqual, "no_elimination_scenario")
	})
}
