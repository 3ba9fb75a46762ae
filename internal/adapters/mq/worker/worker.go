package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/cutline/internal/adapters/mq/queue"
	"github.com/okian/cutline/pkg/logger"
	"github.com/okian/cutline/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker answers queued threshold queries.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current query.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for one goroutine.
type InMemoryWorker struct {
	queue        Queue
	name         string
	queryTimeout time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process answers one job and replies without blocking.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	res := queue.Result{RunID: j.RunID, Competitor: j.Competitor}
	qctx, cancel := w.queryContext(ctx, j)
	defer cancel()

	switch {
	case j.Evaluator == nil:
		res.Err = fmt.Errorf("job %s/%d has no evaluator", j.RunID, j.Competitor)
	case j.Ctx != nil && j.Ctx.Err() != nil:
		res.Err = j.Ctx.Err()
		metrics.RecordErrorByComponent("worker", "run_cancelled")
		w.logger.Debug(ctx, "run ended before its query started",
			logger.String("run_id", j.RunID),
			logger.Int("competitor", int(j.Competitor)),
		)
		w.reply(ctx, j, res)
		return
	default:
		res.Outcome, res.Err = j.Evaluator.OptimizeFor(qctx, j.Competitor, j.EliminationRank)
	}

	if res.Err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "query_error")
		w.logger.Error(ctx, "threshold query failed",
			logger.String("run_id", j.RunID),
			logger.Int("competitor", int(j.Competitor)),
			logger.Error(res.Err),
		)
	}

	w.reply(ctx, j, res)
}

// queryContext derives the context of one query from the job's run and the
// worker's own lifetime, bounded by the query timeout.
func (w *InMemoryWorker) queryContext(ctx context.Context, j queue.Job) (context.Context, context.CancelFunc) {
	if j.Ctx == nil {
		if w.queryTimeout > 0 {
			return context.WithTimeout(ctx, w.queryTimeout)
		}
		return context.WithCancel(ctx)
	}

	var qctx context.Context
	var cancel context.CancelFunc
	if w.queryTimeout > 0 {
		qctx, cancel = context.WithTimeout(j.Ctx, w.queryTimeout)
	} else {
		qctx, cancel = context.WithCancel(j.Ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return qctx, func() {
		stop()
		cancel()
	}
}

func (w *InMemoryWorker) reply(ctx context.Context, j queue.Job, res queue.Result) {
	select {
	case j.Reply <- res:
	default:
		metrics.RecordErrorByComponent("worker", "reply_dropped")
		w.logger.Warn(ctx, "reply channel full, result dropped",
			logger.String("run_id", j.RunID),
			logger.Int("competitor", int(j.Competitor)),
		)
	}
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a worker pool. A count below one uses one worker per CPU.
func NewPool(workerCount int, q Queue, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range workerCount {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for every worker to finish its
// current query.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
