package qualifier

import (
	"errors"
	"testing"

	"github.com/okian/cutline/internal/domain/registry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntrants(t *testing.T) {
	Convey("Given a declaration with invites and pools", t, func() {
		e := New()
		So(e.Open(), ShouldBeTrue)
		So(e.DeclareInvited(0, 1), ShouldBeNil)
		So(e.DeclareQualifierPool("WEU", []registry.Index{2, 3, 4}, 2), ShouldBeNil)
		So(e.DeclareQualifierPool("SEA", []registry.Index{5}, 1), ShouldBeNil)

		Convey("Then the slot count adds invites and qualified", func() {
			So(e.Open(), ShouldBeFalse)
			So(e.SlotCount(), ShouldEqual, 5)
			So(e.Validate(5), ShouldBeNil)
		})

		Convey("Then a slot mismatch is an accounting error", func() {
			err := e.Validate(6)
			So(errors.Is(err, ErrInconsistentSlotAccounting), ShouldBeTrue)
		})

		Convey("Then statuses are classified", func() {
			So(e.StatusOf(0), ShouldEqual, Invited)
			So(e.StatusOf(3), ShouldEqual, Candidate)
			So(e.StatusOf(9), ShouldEqual, Absent)
		})

		Convey("When a competitor is declared twice", func() {
			So(errors.Is(e.DeclareInvited(2), ErrDuplicateEntrant), ShouldBeTrue)
			So(errors.Is(e.DeclareQualifierPool("NA", []registry.Index{6, 6}, 1), ErrDuplicateEntrant), ShouldBeTrue)
		})

		Convey("When a pool qualifies more than its candidates", func() {
			err := e.DeclareQualifierPool("NA", []registry.Index{7}, 2)
			So(errors.Is(err, ErrPoolOverSubscribed), ShouldBeTrue)
		})

		Convey("When a candidate is eliminated from its qualifier", func() {
			e.Eliminate(3)

			Convey("Then it is no longer a candidate", func() {
				So(e.StatusOf(3), ShouldEqual, Absent)
				So(e.Pools()[0].Candidates, ShouldResemble, []registry.Index{2, 4})
				So(e.Validate(5), ShouldBeNil)
			})

			Convey("And eliminating too many over-subscribes the pool", func() {
				e.Eliminate(4)
				So(errors.Is(e.Validate(5), ErrPoolOverSubscribed), ShouldBeTrue)
			})
		})
	})

	Convey("Given an open declaration", t, func() {
		e := New()

		Convey("Then every competitor is optional and validation passes", func() {
			So(e.StatusOf(42), ShouldEqual, Optional)
			So(e.Validate(16), ShouldBeNil)
		})
	})
}
