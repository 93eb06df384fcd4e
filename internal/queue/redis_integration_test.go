//go:build integration

package queue_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"recompensa/internal/queue"
	"recompensa/pkg/testutil/containers"
)

type memorySink struct {
	mu      sync.Mutex
	letters []queue.DeadLetter
}

func (s *memorySink) Record(_ context.Context, letter queue.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.letters = append(s.letters, letter)
	return nil
}

func (s *memorySink) Letters() []queue.DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]queue.DeadLetter{}, s.letters...)
}

type RedisQueueSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	sink  *memorySink
}

func TestRedisQueueSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisQueueSuite))
}

func (s *RedisQueueSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisQueueSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.sink = &memorySink{}
}

func (s *RedisQueueSuite) newQueue(maxAttempts int) *queue.RedisQueue {
	return queue.NewRedis(s.redis.Client, s.sink, nil, slog.Default(), queue.RedisOptions{
		MaxAttempts:    maxAttempts,
		BackoffBase:    20 * time.Millisecond,
		HandlerTimeout: time.Second,
	})
}

func (s *RedisQueueSuite) consumeFor(q *queue.RedisQueue, handler queue.Handler, d time.Duration, workers int) {
	var wg sync.WaitGroup
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Consume(ctx, handler)
		}()
	}
	wg.Wait()
}

func (s *RedisQueueSuite) TestDeliverAndAck() {
	q := s.newQueue(3)
	listingID := uuid.New()
	s.Require().NoError(q.Enqueue(context.Background(), listingID))

	var handled atomic.Int32
	s.consumeFor(q, func(_ context.Context, job queue.Job) error {
		s.Equal(listingID, job.ListingID)
		s.Equal(queue.KindListingReview, job.Kind)
		handled.Add(1)
		return nil
	}, 2*time.Second, 1)

	s.Equal(int32(1), handled.Load())

	pending, err := s.redis.Client.XPending(context.Background(), "moderation", "moderation-workers").Result()
	s.Require().NoError(err)
	s.Zero(pending.Count, "acknowledged jobs must leave the pending list")
}

func (s *RedisQueueSuite) TestRetryThenDeadLetter() {
	q := s.newQueue(3)
	s.Require().NoError(q.Enqueue(context.Background(), uuid.New()))

	var attempts atomic.Int32
	s.consumeFor(q, func(_ context.Context, _ queue.Job) error {
		attempts.Add(1)
		return errors.New("listing store down")
	}, 3*time.Second, 1)

	s.Equal(int32(3), attempts.Load())

	letters := s.sink.Letters()
	s.Require().Len(letters, 1)
	s.Equal(3, letters[0].Attempts)
	s.Contains(letters[0].LastError, "listing store down")

	deadLen, err := s.redis.Client.XLen(context.Background(), "moderation.dead").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), deadLen)
}

func (s *RedisQueueSuite) TestConcurrentWorkersSplitJobs() {
	q := s.newQueue(3)
	ctx := context.Background()

	const jobs = 20
	for i := 0; i < jobs; i++ {
		s.Require().NoError(q.Enqueue(ctx, uuid.New()))
	}

	var handled atomic.Int32
	seen := sync.Map{}
	s.consumeFor(q, func(_ context.Context, job queue.Job) error {
		if _, dup := seen.LoadOrStore(job.ListingID, true); !dup {
			handled.Add(1)
		}
		return nil
	}, 3*time.Second, 4)

	s.Equal(int32(jobs), handled.Load())
}
