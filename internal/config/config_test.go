package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/cutline/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.EliminationRank, convey.ShouldEqual, 8)
			convey.So(cfg.SolverTimeLimit(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.TimeoutAsNoScenario, convey.ShouldBeFalse)
			convey.So(cfg.HistorySize, convey.ShouldEqual, 64)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the elimination rank is zero", func() {
			cfg.EliminationRank = 0

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
