// Package queue holds threshold queries waiting for a solver worker.
//
// The queue is bounded and never blocks producers: a full or closed queue
// rejects the job and the caller decides how to answer.
package queue

import (
	"context"
	"sync"

	"github.com/okian/cutline/internal/domain/registry"
	"github.com/okian/cutline/internal/domain/threshold"
	"github.com/okian/cutline/pkg/metrics"
)

const defaultQueueCapacity = 1000

// Evaluator answers a single threshold query.
type Evaluator interface {
	OptimizeFor(ctx context.Context, competitor registry.Index, eliminationRank int) (threshold.Outcome, error)
}

// Job is one threshold query. Reply must have room for the result; workers
// never block on it. Ctx belongs to the run that queued the job: once it is
// done the query is skipped or stopped. A nil Ctx leaves the job bound to
// the worker alone.
type Job struct {
	Ctx             context.Context
	RunID           string
	Competitor      registry.Index
	EliminationRank int
	Evaluator       Evaluator
	Reply           chan<- Result
}

// Result is the answer to a Job.
type Result struct {
	RunID      string
	Competitor registry.Index
	Outcome    threshold.Outcome
	Err        error
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It fails with ErrFull or ErrClosed without
	// blocking.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns a channel that receives jobs as they become
	// available. The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the number of waiting jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	default:
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.jobs))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	return size
}

// Close gracefully shuts down the queue. Jobs already queued are still
// delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
