package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/cutline/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1_000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
				convey.So(cfg.SolverTimeLimitMS, convey.ShouldEqual, 60_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CUTLINE_ADDR", ":8080")
			_ = os.Setenv("CUTLINE_WORKER_COUNT", "4")
			_ = os.Setenv("CUTLINE_SOLVER_TIME_LIMIT_MS", "1500")
			_ = os.Setenv("CUTLINE_TIMEOUT_AS_NO_SCENARIO", "true")
			_ = os.Setenv("CUTLINE_ELIMINATION_RANK", "12")
			_ = os.Setenv("CUTLINE_HISTORY_SIZE", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.SolverTimeLimit(), convey.ShouldEqual, 1500*time.Millisecond)
				convey.So(cfg.TimeoutAsNoScenario, convey.ShouldBeTrue)
				convey.So(cfg.EliminationRank, convey.ShouldEqual, 12)
				convey.So(cfg.HistorySize, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
# file values
addr: ":9090"
worker_count: 2
queue_size: 64
scenario_path: "testdata/season.yaml"
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CUTLINE_CONFIG", tmpFile)
			_ = os.Setenv("CUTLINE_WORKER_COUNT", "6")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env vars take precedence over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 6)
				convey.So(cfg.ScenarioPath, convey.ShouldEqual, "testdata/season.yaml")
				convey.So(cfg.EliminationRank, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("CUTLINE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("CUTLINE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("CUTLINE_WORKER_COUNT", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with zero workers", func() {
			_ = os.Setenv("CUTLINE_WORKER_COUNT", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"CUTLINE_CONFIG",
		"CUTLINE_ADDR",
		"CUTLINE_WORKER_COUNT",
		"CUTLINE_SOLVER_TIME_LIMIT_MS",
		"CUTLINE_TIMEOUT_AS_NO_SCENARIO",
		"CUTLINE_ELIMINATION_RANK",
		"CUTLINE_HISTORY_SIZE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "cutline-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
