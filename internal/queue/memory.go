package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is a channel-backed queue with the same retry and dead-letter
// semantics as RedisQueue. It backs unit tests and local development.
type MemoryQueue struct {
	jobs chan Job

	maxAttempts    int
	backoffBase    time.Duration
	handlerTimeout time.Duration

	sink    DeadLetterSink
	metrics *Metrics
	logger  *slog.Logger

	mu   sync.Mutex
	dead []DeadLetter
}

// MemoryOptions tunes the in-memory queue. Zero values fall back to defaults.
type MemoryOptions struct {
	Buffer         int
	MaxAttempts    int
	BackoffBase    time.Duration
	HandlerTimeout time.Duration
}

// NewMemory constructs the in-memory queue.
func NewMemory(sink DeadLetterSink, metrics *Metrics, logger *slog.Logger, opts MemoryOptions) *MemoryQueue {
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 10 * time.Second
	}
	return &MemoryQueue{
		jobs:           make(chan Job, opts.Buffer),
		maxAttempts:    opts.MaxAttempts,
		backoffBase:    opts.BackoffBase,
		handlerTimeout: opts.HandlerTimeout,
		sink:           sink,
		metrics:        metrics,
		logger:         logger,
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, listingID uuid.UUID) error {
	job := Job{
		ID:        uuid.NewString(),
		Kind:      KindListingReview,
		ListingID: listingID,
		Attempt:   1,
	}
	select {
	case q.jobs <- job:
		q.metrics.IncEnqueued()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume handles jobs until ctx is cancelled. Run from several goroutines
// for a worker pool; the shared channel distributes jobs between them.
func (q *MemoryQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-q.jobs:
			q.process(ctx, handler, job)
		}
	}
}

func (q *MemoryQueue) process(ctx context.Context, handler Handler, job Job) {
	handlerCtx, cancel := context.WithTimeout(ctx, q.handlerTimeout)
	err := handler(handlerCtx, job)
	cancel()

	if err == nil {
		q.metrics.IncHandled("success")
		return
	}
	if ctx.Err() != nil {
		return
	}

	q.metrics.IncHandled("failure")
	if job.Attempt >= q.maxAttempts {
		q.deadLetter(ctx, job, err.Error())
		return
	}

	next := job
	next.Attempt++
	q.metrics.IncRetries()
	time.AfterFunc(Backoff(q.backoffBase, next.Attempt), func() {
		select {
		case q.jobs <- next:
		default:
			// A full buffer must not lose the job silently; dead-letter it
			// so the failure stays visible.
			q.deadLetter(context.Background(), next, "retry dropped: queue buffer full")
		}
	})
}

func (q *MemoryQueue) deadLetter(ctx context.Context, job Job, lastError string) {
	letter := DeadLetter{
		ID:        uuid.New(),
		Channel:   ChannelModeration,
		Kind:      job.Kind,
		ListingID: job.ListingID,
		Attempts:  job.Attempt,
		LastError: lastError,
		CreatedAt: time.Now(),
	}
	q.mu.Lock()
	q.dead = append(q.dead, letter)
	q.mu.Unlock()
	if q.sink != nil {
		if sinkErr := q.sink.Record(ctx, letter); sinkErr != nil && q.logger != nil {
			q.logger.Error("dead letter sink failed", "listing_id", job.ListingID, "error", sinkErr)
		}
	}
	q.metrics.IncDeadLetters()
}

// DeadLetters returns recorded dead letters. Test helper.
func (q *MemoryQueue) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DeadLetter{}, q.dead...)
}

// Depth returns the number of buffered jobs. Test helper.
func (q *MemoryQueue) Depth() int {
	return len(q.jobs)
}
