// Package service provides the threshold evaluation service behind the HTTP
// API: it fans per-competitor queries out over the worker pool and folds the
// answers into the qualification threshold.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/okian/cutline/internal/adapters/mq/queue"
	workerpool "github.com/okian/cutline/internal/adapters/mq/worker"
	"github.com/okian/cutline/internal/adapters/repository"
	"github.com/okian/cutline/internal/cpsolver"
	"github.com/okian/cutline/internal/domain/registry"
	"github.com/okian/cutline/internal/domain/threshold"
	"github.com/okian/cutline/internal/scenario"
	"github.com/okian/cutline/pkg/logger"
	"github.com/okian/cutline/pkg/metrics"
)

const (
	defaultQueueSize       = 1000
	defaultHistorySize     = 64
	defaultEliminationRank = 8
	stopTimeout            = 30 * time.Second
)

// Request asks for the threshold of a season.
type Request struct {
	// Season is evaluated instead of the configured season when set.
	Season *scenario.Season
	// EliminationRank falls back to the season's, then the service default.
	EliminationRank int
	// Competitors restricts the queries; empty means the whole field.
	Competitors []string
}

// Evaluation is the answer to a Request.
type Evaluation struct {
	RunID    string
	Season   string
	Result   threshold.Result
	WallTime time.Duration
}

// Service implements the API dependencies for threshold evaluation.
type Service struct {
	mu sync.RWMutex

	jobs    jobqueue.Queue
	pool    *workerpool.Pool
	history repository.Store[Evaluation]

	workerCount         int
	queueSize           int
	historySize         int
	queryTimeout        time.Duration
	timeoutAsNoScenario bool
	eliminationRank     int
	season              *scenario.Season

	started     bool
	evaluations int64
	lastRunID   string
	lastValue   int64

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     1,
		queueSize:       defaultQueueSize,
		historySize:     defaultHistorySize,
		eliminationRank: defaultEliminationRank,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.jobs = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.jobs,
		workerpool.WithQueryTimeout(s.queryTimeout),
		workerpool.WithLogger(s.logger.Named("worker")),
	)
	s.pool.Start(ctx)
	if s.historySize > 0 && s.history == nil {
		s.history = repository.NewMemoryStore[Evaluation](repository.WithMaxSize(s.historySize))
	}

	s.started = true
	fields := []logger.Field{
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Duration("query_timeout", s.queryTimeout),
		logger.Int("history_size", s.historySize),
	}
	if s.season != nil {
		fields = append(fields, logger.String("season", s.season.Name))
	}
	s.logger.Info(ctx, "threshold service started", fields...)
	return nil
}

// Stop closes the queue and waits for running queries.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "threshold service stopped")
}

// Season returns the configured season, or nil.
func (s *Service) Season() *scenario.Season {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.season
}

// optimizer builds the per-evaluation optimizer with the service's budget.
func (s *Service) optimizer(season *scenario.Season) (*threshold.Optimizer, error) {
	solver := cpsolver.NewPseudoBoolean(cpsolver.WithLogger(s.logger.Named("solver")))
	return threshold.New(season.Circuit,
		threshold.WithSolver(solver),
		threshold.WithLogger(s.logger.Named("threshold")),
		threshold.WithTimeoutAsNoScenario(s.timeoutAsNoScenario),
	)
}

// Evaluate computes the qualification threshold of a season. Queries run on
// the worker pool; the first failing query fails the evaluation. Every run
// builds fresh models.
func (s *Service) Evaluate(ctx context.Context, req Request) (*Evaluation, error) {
	s.mu.RLock()
	started, jobs, history := s.started, s.jobs, s.history
	season := req.Season
	if season == nil {
		season = s.season
	}
	s.mu.RUnlock()

	if !started {
		return nil, ErrNotStarted
	}
	if season == nil {
		return nil, ErrNoSeason
	}

	rank := req.EliminationRank
	if rank == 0 {
		rank = season.EliminationRank
	}
	if rank == 0 {
		rank = s.eliminationRank
	}

	targets, err := s.targets(season.Registry(), req.Competitors)
	if err != nil {
		return nil, err
	}
	opt, err := s.optimizer(season)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", scenario.ErrInvalidScenario, err)
	}

	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.With(logger.String("run_id", runID), logger.String("season", season.Name))
	log.Info(ctx, "evaluation started",
		logger.Int("elimination_rank", rank),
		logger.Int("queries", len(targets)),
	)

	// Queued and running queries of this run stop once Evaluate returns.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	reply := make(chan jobqueue.Result, len(targets))
	for _, c := range targets {
		j := jobqueue.Job{Ctx: runCtx, RunID: runID, Competitor: c, EliminationRank: rank, Evaluator: opt, Reply: reply}
		if err := jobs.Enqueue(ctx, j); err != nil {
			if errors.Is(err, jobqueue.ErrFull) || errors.Is(err, jobqueue.ErrClosed) {
				return nil, fmt.Errorf("%w: %w", ErrBusy, err)
			}
			return nil, err
		}
	}

	results := make([]jobqueue.Result, 0, len(targets))
	for range targets {
		select {
		case r := <-reply:
			if r.Err != nil {
				return nil, fmt.Errorf("%s: %w", season.Registry().Name(r.Competitor), r.Err)
			}
			results = append(results, r)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	slices.SortFunc(results, func(a, b jobqueue.Result) int { return int(a.Competitor) - int(b.Competitor) })

	ev := &Evaluation{
		RunID:  runID,
		Season: season.Name,
		Result: threshold.Result{EliminationRank: rank},
	}
	for _, r := range results {
		ev.Result.Add(r.Outcome)
	}
	ev.WallTime = time.Since(start)

	if ev.Result.Found {
		metrics.RecordEvaluation(ev.Result.Value, float64(ev.WallTime.Milliseconds()))
	}
	if history != nil {
		history.Put(ctx, runID, *ev)
		metrics.UpdateStoredRuns(history.Count(ctx))
	}
	s.mu.Lock()
	s.evaluations++
	s.lastRunID = runID
	s.lastValue = ev.Result.Value
	s.mu.Unlock()

	log.Info(ctx, "evaluation finished",
		logger.Bool("found", ev.Result.Found),
		logger.Int64("threshold", ev.Result.Value),
		logger.String("best", ev.Result.Best.Name),
		logger.Duration("wall_time", ev.WallTime),
	)
	return ev, nil
}

// Run returns a finished evaluation by run ID from the bounded history.
func (s *Service) Run(ctx context.Context, runID string) (*Evaluation, error) {
	s.mu.RLock()
	history := s.history
	s.mu.RUnlock()

	if history == nil {
		metrics.RecordRunLookup(false)
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	ev, err := history.Get(ctx, runID)
	metrics.RecordRunLookup(err == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRunNotFound, err)
	}
	return &ev, nil
}

func (s *Service) targets(reg *registry.Registry, names []string) ([]registry.Index, error) {
	if len(names) == 0 {
		all := reg.All()
		out := make([]registry.Index, len(all))
		for i, c := range all {
			out[i] = c.Index
		}
		return out, nil
	}
	return reg.IndicesOf(names...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"evaluations":     s.evaluations,
		"eliminationRank": s.eliminationRank,
	}
	if s.season != nil {
		stats["season"] = s.season.Name
	}
	if s.evaluations > 0 {
		stats["lastRunID"] = s.lastRunID
		stats["lastThreshold"] = s.lastValue
	}
	if s.started {
		stats["queueLength"] = s.jobs.Len(context.Background())
	}
	if s.history != nil {
		stats["storedRuns"] = s.history.Count(context.Background())
	}
	return stats
}
