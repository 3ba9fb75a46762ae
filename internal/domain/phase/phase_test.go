package phase

import (
	"errors"
	"testing"

	"github.com/okian/cutline/internal/domain/registry"
	. "github.com/smartystreets/goconvey/convey"
)

var majorPoints = []int64{3000, 2500, 2000, 1600, 1200, 1000, 600, 400, 250, 250, 125, 125, 70, 70, 30, 30}

func TestPointTables(t *testing.T) {
	Convey("Given point tables", t, func() {
		Convey("When the table never increases", func() {
			So(ValidatePointTable(majorPoints), ShouldBeNil)

			Convey("Then adjacent slots are ordered", func() {
				for i := 0; i+1 < len(majorPoints); i++ {
					So(majorPoints[i], ShouldBeGreaterThanOrEqualTo, majorPoints[i+1])
				}
			})
		})

		Convey("When a later slot awards more", func() {
			err := ValidatePointTable([]int64{100, 50, 60})
			So(errors.Is(err, ErrPointTableNotMonotonic), ShouldBeTrue)
		})

		Convey("When a slot awards negative points", func() {
			So(errors.Is(ValidatePointTable([]int64{10, -1}), ErrNegativePoints), ShouldBeTrue)
		})

		Convey("When a phase is built from an invalid table", func() {
			_, err := New("bad", 3, []int64{1, 2})
			So(errors.Is(err, ErrPointTableNotMonotonic), ShouldBeTrue)

			_, err = New("long", 1, []int64{2, 1})
			So(errors.Is(err, ErrPointTableTooLong), ShouldBeTrue)

			_, err = New("empty", 0, nil)
			So(errors.Is(err, ErrInvalidSlots), ShouldBeTrue)
		})
	})
}

func TestGroupPointExpansion(t *testing.T) {
	Convey("Given a per-position group table", t, func() {
		expanded := ExpandGroupPoints([]int64{300, 150, 75}, 2)

		Convey("Then each position fills one slot per group", func() {
			So(expanded, ShouldResemble, []int64{300, 300, 150, 150, 75, 75})
		})

		Convey("And short tables pad with zero", func() {
			p, err := New("gs1", 16, expanded)
			So(err, ShouldBeNil)
			So(p.PointsAt(5), ShouldEqual, 75)
			So(p.PointsAt(6), ShouldEqual, 0)
			So(p.PointsAt(15), ShouldEqual, 0)
			So(p.MinPoints(), ShouldEqual, 0)
			So(p.MaxPoints(), ShouldEqual, 300)
		})
	})
}

func TestLinkage(t *testing.T) {
	Convey("Given an event with two group stages", t, func() {
		gs1, _ := New("gs1", 16, ExpandGroupPoints([]int64{300, 150, 75}, 2))
		gs2, _ := New("gs2", 8, []int64{300})
		ev, err := New("event", 16, majorPoints, WithGroupStages(gs1, gs2, HalfSplit(4)))
		So(err, ShouldBeNil)

		Convey("Then the half split cuts at eight", func() {
			So(ev.Linkage.CutFor(16), ShouldEqual, 8)
			So(ev.Validate(16), ShouldBeNil)
			So(ev.ScoringPhases(), ShouldEqual, 3)
		})

		Convey("When the cut does not match the second stage", func() {
			ev.Linkage = SplitAtCount(6, 4)
			So(errors.Is(ev.Validate(16), ErrInvalidLinkage), ShouldBeTrue)
		})

		Convey("When the playoff exceeds the second stage", func() {
			ev.Linkage = HalfSplit(9)
			So(errors.Is(ev.Validate(16), ErrInvalidLinkage), ShouldBeTrue)
		})

		Convey("When the opening stage size differs from the event", func() {
			ev.GroupStage1.Slots = 12
			So(errors.Is(ev.Validate(16), ErrInvalidLinkage), ShouldBeTrue)
		})
	})

	Convey("Given an event with a second stage only", t, func() {
		gs2, _ := New("gs2", 8, nil)
		ev, _ := New("event", 16, majorPoints, WithGroupStages(nil, gs2, HalfSplit(4)))
		So(errors.Is(ev.Validate(16), ErrInvalidLinkage), ShouldBeTrue)
	})

	Convey("Given a split at a configured playoff count", t, func() {
		gs1, _ := New("gs1", 12, ExpandGroupPoints([]int64{480}, 2))
		ev, _ := New("event", 12, majorPoints[:12], WithGroupStages(gs1, nil, SplitAtCount(8, 0)))
		So(ev.Linkage.CutFor(12), ShouldEqual, 8)
		So(ev.Validate(12), ShouldBeNil)
		So(ev.Linkage.Policy.String(), ShouldEqual, "split_at")
	})
}

func TestPartialKnowledge(t *testing.T) {
	Convey("Given a phase", t, func() {
		p, _ := New("event", 4, []int64{4, 3, 2, 1}, WithSeeds([]registry.Index{0}, []registry.Index{1}))

		Convey("Then ranges inside the slots are recorded", func() {
			So(p.ConstrainRange(0, 1, 2), ShouldBeNil)
			So(p.Ranges, ShouldResemble, []Range{{Competitor: 0, Best: 1, Worst: 2}})
		})

		Convey("Then ranges outside the slots are rejected", func() {
			So(errors.Is(p.ConstrainRange(0, 0, 2), ErrInvalidRange), ShouldBeTrue)
			So(errors.Is(p.ConstrainRange(0, 3, 2), ErrInvalidRange), ShouldBeTrue)
			So(errors.Is(p.ConstrainRange(0, 1, 5), ErrInvalidRange), ShouldBeTrue)
		})

		Convey("Then slot claims and bracket facts are recorded", func() {
			So(p.ClaimSlot(3, 1, 2), ShouldBeNil)
			So(p.GuaranteedLowerBracketOrEliminated(0, 1, 2), ShouldBeNil)
			So(len(p.Claims), ShouldEqual, 1)
			So(len(p.LowerBracket), ShouldEqual, 1)
			So(errors.Is(p.ClaimSlot(5, 1), ErrInvalidRange), ShouldBeTrue)
		})

		Convey("Then facts about unknown competitors fail validation", func() {
			So(p.ConstrainRange(7, 1, 1), ShouldBeNil)
			So(errors.Is(p.Validate(3), registry.ErrUnknownCompetitor), ShouldBeTrue)
		})

		Convey("Then a competitor seeded on both sides fails validation", func() {
			p.SeedB = append(p.SeedB, 0)
			So(errors.Is(p.Validate(3), ErrInvalidSeeding), ShouldBeTrue)
		})
	})
}
