// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and CUTLINE_ environment variables on top.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory threshold query queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of concurrent solver workers.
	WorkerCount int `koanf:"worker_count"`

	// SolverTimeLimitMS bounds the wall-clock time of one query. Zero disables it.
	SolverTimeLimitMS int `koanf:"solver_time_limit_ms"`

	// TimeoutAsNoScenario reports exhausted budgets as "no elimination
	// scenario" instead of an error.
	TimeoutAsNoScenario bool `koanf:"timeout_as_no_scenario"`

	// EliminationRank is the default size of the qualifying bracket.
	EliminationRank int `koanf:"elimination_rank"`

	// HistorySize bounds the finished runs served by GET /runs/{run_id}.
	// Zero disables the history.
	HistorySize int `koanf:"history_size"`

	// MaxRequestBytes caps the body of POST /thresholds.
	MaxRequestBytes int64 `koanf:"max_request_bytes"`

	// ScenarioPath optionally names a scenario file served by default.
	ScenarioPath string `koanf:"scenario_path"`
}

// New creates a Config with defaults. Context is accepted first to satisfy the
// project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		QueueSize:         1_000,
		WorkerCount:       1,
		SolverTimeLimitMS: 60_000,
		EliminationRank:   8,
		HistorySize:       64,
		MaxRequestBytes:   1 << 20,
	}
}

// SolverTimeLimit returns the per-query time budget.
func (c *Config) SolverTimeLimit() time.Duration {
	return time.Duration(c.SolverTimeLimitMS) * time.Millisecond
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.SolverTimeLimitMS < 0:
		return fmt.Errorf("%w: solver_time_limit_ms must not be negative", ErrInvalidConfig)
	case c.EliminationRank < 1:
		return fmt.Errorf("%w: elimination_rank must be at least 1, got %d", ErrInvalidConfig, c.EliminationRank)
	case c.HistorySize < 0:
		return fmt.Errorf("%w: history_size must not be negative", ErrInvalidConfig)
	case c.MaxRequestBytes <= 0:
		return fmt.Errorf("%w: max_request_bytes must be positive", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
