package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns it", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := InitWithWriter(&bytes.Buffer{}, "xml")

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing JSON to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, "json"), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging at info with fields", func() {
			Get().Named("solver").With(Int("competitors", 16)).Info(ctx, "solve finished", String("status", "optimal"))

			Convey("Then the record carries message, group and fields", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, `"msg":"solve finished"`)
				So(out, ShouldContainSubstring, `"solver"`)
				So(out, ShouldContainSubstring, `"status":"optimal"`)
				So(out, ShouldContainSubstring, `"competitors":16`)
				So(out, ShouldContainSubstring, `"source"`)
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("ERROR"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Error(ctx, "shown", Error(errors.New("boom")))

			Convey("Then only the error record is written", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})

		Convey("When an unknown level is given", func() {
			err := SetLevelString("verbose")

			Convey("Then ErrUnknownLevel is returned", func() {
				So(errors.Is(err, ErrUnknownLevel), ShouldBeTrue)
			})
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()

		Convey("Then logging never panics", func() {
			So(func() {
				l.Debug(context.Background(), "x", Bool("b", true))
				l.Named("n").With(Int64("i", 1)).Warn(context.Background(), "y")
			}, ShouldNotPanic)
		})
	})
}
