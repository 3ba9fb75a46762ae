package cpsolver

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/cutline/internal/cpmodel"
	. "github.com/smartystreets/goconvey/convey"
)

func solve(cp *cpmodel.Builder, opts ...Option) Response {
	m, err := cp.Model()
	So(err, ShouldBeNil)
	resp, err := NewPseudoBoolean(opts...).Solve(context.Background(), m)
	So(err, ShouldBeNil)
	return resp
}

func TestSolveLinear(t *testing.T) {
	Convey("Given x + y == 5 with both in [0, 3]", t, func() {
		cp := cpmodel.NewCpModelBuilder()
		x := cp.NewIntVar(0, 3)
		y := cp.NewIntVar(0, 3)
		cp.AddEquality(cpmodel.NewLinearExpr().AddSum(x, y), cpmodel.NewConstant(5))

		Convey("When maximizing x", func() {
			cp.Maximize(x)
			resp := solve(cp)

			Convey("Then x is 3 and y makes up the rest", func() {
				So(resp.Status, ShouldEqual, Optimal)
				So(resp.ObjectiveValue, ShouldEqual, 3)
				So(resp.Value(y), ShouldEqual, 2)
			})
		})

		Convey("When minimizing 2x minus 1", func() {
			cp.Minimize(cpmodel.NewLinearExpr().AddTerm(x, 2).AddConstant(-1))
			resp := solve(cp)

			Convey("Then x takes its smallest feasible value", func() {
				So(resp.Status, ShouldEqual, Optimal)
				So(resp.Value(x), ShouldEqual, 2)
				So(resp.ObjectiveValue, ShouldEqual, 3)
			})
		})

		Convey("When x must also exceed 3", func() {
			cp.AddGreaterThan(x, cpmodel.NewConstant(3))
			resp := solve(cp)

			Convey("Then the model is infeasible", func() {
				So(resp.Status, ShouldEqual, Infeasible)
				So(resp.HasSolution(), ShouldBeFalse)
			})
		})
	})
}

func TestSolveBoolean(t *testing.T) {
	Convey("Given two Boolean variables", t, func() {
		cp := cpmodel.NewCpModelBuilder()
		a := cp.NewBoolVar()
		b := cp.NewBoolVar()

		Convey("When exactly one must hold but both are required", func() {
			cp.AddExactlyOne(a, b)
			cp.AddBoolAnd(a, b)
			resp := solve(cp)

			Convey("Then the model is infeasible", func() {
				So(resp.Status, ShouldEqual, Infeasible)
			})
		})

		Convey("When a constraint is only enforced by a", func() {
			x := cp.NewIntVar(0, 10)
			cp.AddGreaterOrEqual(x, cpmodel.NewConstant(5)).OnlyEnforceIf(a)
			cp.AddLessOrEqual(x, cpmodel.NewConstant(2))
			cp.Maximize(cpmodel.NewLinearExpr().AddTerm(a, 10).Add(x))
			resp := solve(cp)

			Convey("Then a is forced false", func() {
				So(resp.Status, ShouldEqual, Optimal)
				So(resp.BoolValue(a), ShouldBeFalse)
				So(resp.ObjectiveValue, ShouldEqual, 2)
			})
		})

		Convey("When only an implication links them", func() {
			cp.AddImplication(a, b)
			cp.AddBoolOr(b.Not())

			Convey("Then the first solution respects it", func() {
				resp := solve(cp)
				So(resp.Status, ShouldEqual, Optimal)
				So(resp.BoolValue(a), ShouldBeFalse)
				So(resp.BoolValue(b), ShouldBeFalse)
			})
		})

		Convey("When a defined sum is narrower than its terms", func() {
			c := cp.NewBoolVar()
			used := cp.NewIntVar(0, 1)
			cp.AddEquality(used, cpmodel.NewLinearExpr().AddSum(a, b, c))
			cp.Maximize(cpmodel.NewLinearExpr().Add(a).AddTerm(b, 2).AddTerm(c, 3))
			resp := solve(cp)

			Convey("Then the domain of the sum still binds", func() {
				So(resp.Status, ShouldEqual, Optimal)
				So(resp.ObjectiveValue, ShouldEqual, 3)
				So(resp.Value(used), ShouldEqual, 1)
				So(resp.BoolValue(a), ShouldBeFalse)
			})
		})
	})
}

// placement builds a rows x slots assignment where row r occupies one slot
// when in[r] holds and every slot holds exactly one row.
func placement(cp *cpmodel.Builder, rows, slots int) ([][]cpmodel.BoolVar, []cpmodel.BoolVar) {
	x := make([][]cpmodel.BoolVar, rows)
	in := make([]cpmodel.BoolVar, rows)
	for r := range rows {
		in[r] = cp.NewBoolVar()
		x[r] = make([]cpmodel.BoolVar, slots)
		for s := range slots {
			x[r][s] = cp.NewBoolVar()
		}
		cp.AddAtMostOne(x[r]...)
		sum := cpmodel.NewLinearExpr()
		for _, v := range x[r] {
			sum.Add(v)
		}
		cp.AddEquality(sum, in[r])
	}
	for s := range slots {
		col := make([]cpmodel.BoolVar, rows)
		for r := range rows {
			col[r] = x[r][s]
		}
		cp.AddExactlyOne(col...)
	}
	cp.AddPlacementMatching(x, in)
	return x, in
}

func TestSolveMatching(t *testing.T) {
	Convey("Given three rows competing for two slots", t, func() {
		cp := cpmodel.NewCpModelBuilder()
		x, in := placement(cp, 3, 2)

		Convey("When every row must take part", func() {
			for _, b := range in {
				cp.AddBoolOr(b)
			}
			resp := solve(cp)

			Convey("Then no assignment exists", func() {
				So(resp.Status, ShouldEqual, Infeasible)
			})
		})

		Convey("When the first row must win and points are maximized for the last", func() {
			cp.AddBoolOr(in[0])
			cp.AddBoolOr(x[0][0])
			points := []int64{5, 1}
			obj := cpmodel.NewLinearExpr()
			for s, p := range points {
				obj.AddTerm(x[2][s], p)
			}
			cp.Maximize(obj)
			resp := solve(cp)

			Convey("Then the last row takes the second slot and the middle row sits out", func() {
				So(resp.Status, ShouldEqual, Optimal)
				So(resp.ObjectiveValue, ShouldEqual, 1)
				So(resp.BoolValue(x[2][1]), ShouldBeTrue)
				So(resp.BoolValue(in[1]), ShouldBeFalse)
			})
		})
	})
}

func TestSolveRanking(t *testing.T) {
	Convey("Given four rows on four slots worth 10, 6, 3 and 0 and a rank for row 0", t, func() {
		cp := cpmodel.NewCpModelBuilder()
		x, in := placement(cp, 4, 4)
		points := []int64{10, 6, 3, 0}
		totals := make([]cpmodel.IntVar, 4)
		for r := range 4 {
			cp.AddBoolOr(in[r])
			totals[r] = cp.NewIntVar(0, 10)
			sum := cpmodel.NewLinearExpr()
			for s, p := range points {
				sum.AddTerm(x[r][s], p)
			}
			cp.AddEquality(totals[r], sum)
		}
		rank := cpmodel.NewLinearExpr().AddConstant(1)
		for j := 1; j < 4; j++ {
			ge := cp.NewBoolVar()
			diff := cpmodel.NewLinearExpr().Add(totals[0]).AddTerm(totals[j], -1)
			cp.AddLessOrEqual(diff, cpmodel.NewConstant(0)).OnlyEnforceIf(ge)
			cp.AddGreaterThan(diff, cpmodel.NewConstant(0)).OnlyEnforceIf(ge.Not())
			rank.Add(ge)
		}

		Convey("When row 0 must rank worse than second", func() {
			cp.AddGreaterThan(rank, cpmodel.NewConstant(2))
			cp.Maximize(totals[0])
			resp := solve(cp)

			Convey("Then it takes third place at best", func() {
				So(resp.Status, ShouldEqual, Optimal)
				So(resp.ObjectiveValue, ShouldEqual, 3)
				So(resp.BoolValue(x[0][2]), ShouldBeTrue)
				So(resp.Solutions, ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When row 0 must rank worse than fourth", func() {
			cp.AddGreaterThan(rank, cpmodel.NewConstant(4))
			cp.Maximize(totals[0])

			Convey("Then no assignment exists", func() {
				So(solve(cp).Status, ShouldEqual, Infeasible)
			})
		})
	})
}

func TestSolveErrors(t *testing.T) {
	Convey("Given a solver", t, func() {
		s := NewPseudoBoolean()

		Convey("When the model is nil", func() {
			_, err := s.Solve(context.Background(), nil)
			So(errors.Is(err, ErrNilModel), ShouldBeTrue)
		})

		Convey("When the model has an empty domain", func() {
			m := &cpmodel.Model{Variables: []cpmodel.VariableProto{{Domain: cpmodel.Domain{Min: 2, Max: 1}}}}
			_, err := s.Solve(context.Background(), m)
			So(errors.Is(err, ErrModelInvalid), ShouldBeTrue)
		})

		Convey("When an integer variable has no bounds", func() {
			cp := cpmodel.NewCpModelBuilder()
			cp.NewIntVar(cpmodel.MinBound, cpmodel.MaxBound)
			m, err := cp.Model()
			So(err, ShouldBeNil)
			_, err = s.Solve(context.Background(), m)
			So(errors.Is(err, ErrModelInvalid), ShouldBeTrue)
			So(errors.Is(err, ErrUnbounded), ShouldBeTrue)
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			resp, err := s.Solve(ctx, &cpmodel.Model{})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(resp.Status, ShouldEqual, Unknown)
		})
	})

	Convey("Status names are stable", t, func() {
		So(Optimal.String(), ShouldEqual, "optimal")
		So(Infeasible.String(), ShouldEqual, "infeasible")
		So(Status(9).String(), ShouldEqual, "Status(9)")
	})
}
