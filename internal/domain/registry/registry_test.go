package registry

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRegistry(t *testing.T) {
	Convey("Given a registry with three competitors", t, func() {
		r, err := New("Team Falcons", "BetBoom Team", "Team Liquid")
		So(err, ShouldBeNil)

		Convey("Then indices are dense and follow insertion order", func() {
			So(r.Len(), ShouldEqual, 3)
			for i, c := range r.All() {
				So(c.Index, ShouldEqual, Index(i))
			}
			So(r.Name(1), ShouldEqual, "BetBoom Team")
		})

		Convey("When looking up a registered identity", func() {
			idx, err := r.IndexOf("Team Liquid")

			Convey("Then its index is returned", func() {
				So(err, ShouldBeNil)
				So(idx, ShouldEqual, Index(2))
			})
		})

		Convey("When looking up an unknown identity", func() {
			_, err := r.IndexOf("OG")

			Convey("Then ErrUnknownCompetitor is returned", func() {
				So(errors.Is(err, ErrUnknownCompetitor), ShouldBeTrue)
				So(func() { r.MustIndexOf("OG") }, ShouldPanic)
			})
		})

		Convey("When adding a duplicate", func() {
			_, err := r.Add("Team Falcons")

			Convey("Then it is rejected and nothing changes", func() {
				So(errors.Is(err, ErrDuplicateCompetitor), ShouldBeTrue)
				So(r.Len(), ShouldEqual, 3)
			})
		})

		Convey("When resolving several identities", func() {
			idx, err := r.IndicesOf("Team Liquid", "Team Falcons")
			So(err, ShouldBeNil)
			So(idx, ShouldResemble, []Index{2, 0})

			_, err = r.IndicesOf("Team Liquid", "nobody")
			So(errors.Is(err, ErrUnknownCompetitor), ShouldBeTrue)
		})

		Convey("Then All returns a copy", func() {
			all := r.All()
			all[0].Name = "changed"
			So(r.Name(0), ShouldEqual, "Team Falcons")
		})

		Convey("Then empty identities are rejected", func() {
			_, err := r.Add("  ")
			So(errors.Is(err, ErrEmptyIdentity), ShouldBeTrue)
		})
	})
}
