package service

import (
	"time"

	"github.com/okian/cutline/internal/scenario"
	"github.com/okian/cutline/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of solver workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of waiting queries.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithHistorySize bounds how many finished runs Run can return. Zero
// disables the history.
func WithHistorySize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.historySize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithQueryTimeout bounds the wall-clock time of each query. Zero disables it.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.queryTimeout = d
		}
	}
}

// WithTimeoutAsNoScenario reports exhausted budgets as "no elimination
// scenario" instead of failing the evaluation.
func WithTimeoutAsNoScenario(enabled bool) Option {
	return func(s *Service) {
		s.timeoutAsNoScenario = enabled
	}
}

// WithEliminationRank sets the cut used when neither request nor season name
// one.
func WithEliminationRank(rank int) Option {
	return func(s *Service) {
		if rank > 0 {
			s.eliminationRank = rank
		}
	}
}

// WithSeason sets the season answered when a request carries none.
func WithSeason(season *scenario.Season) Option {
	return func(s *Service) {
		s.season = season
	}
}
