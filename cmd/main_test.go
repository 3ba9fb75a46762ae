package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/cutline/internal/adapters/http/api"
	"github.com/okian/cutline/internal/adapters/http/swagger"
	service "github.com/okian/cutline/internal/app"
	"github.com/okian/cutline/internal/config"
	"github.com/okian/cutline/internal/scenario"
	"github.com/okian/cutline/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When the service metrics updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startServiceMetricsUpdater(ctx, service.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("When metrics are refreshed once", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(service.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("When the write timeout is derived", func() {
			cfg := config.New(context.Background())
			convey.So(writeTimeout(cfg), convey.ShouldEqual, time.Minute+writeTimeoutSlack)

			cfg.SolverTimeLimitMS = 0
			convey.So(writeTimeout(cfg), convey.ShouldEqual, time.Duration(0))
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the application wired as main does", t, func() {
		_ = os.Setenv("CUTLINE_WORKER_COUNT", "2")
		_ = os.Setenv("CUTLINE_SCENARIO_PATH", "../internal/scenario/testdata/small.yaml")
		defer func() {
			_ = os.Unsetenv("CUTLINE_WORKER_COUNT")
			_ = os.Unsetenv("CUTLINE_SCENARIO_PATH")
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		season, err := scenario.Load(cfg.ScenarioPath)
		convey.So(err, convey.ShouldBeNil)

		svc := service.New(
			service.WithWorkerCount(cfg.WorkerCount),
			service.WithQueueSize(cfg.QueueSize),
			service.WithQueryTimeout(cfg.SolverTimeLimit()),
			service.WithEliminationRank(cfg.EliminationRank),
			service.WithSeason(season),
		)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		swagger.Register(ctx, mux)
		api.NewServer(svc, api.WithMaxRequestBytes(cfg.MaxRequestBytes)).Register(ctx, mux)

		convey.Convey("When the configured season is queried", func() {
			req := httptest.NewRequest(http.MethodGet, "/thresholds?format=text", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.Convey("Then the best scenario is rendered", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "B fails to qualify with 50 points")
			})
		})

		convey.Convey("When the API docs are requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(strings.Contains(w.Body.String(), "/thresholds:"), convey.ShouldBeTrue)
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given an invalid environment", t, func() {
		_ = os.Setenv("CUTLINE_ADDR", "")
		defer func() { _ = os.Unsetenv("CUTLINE_ADDR") }()

		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}
