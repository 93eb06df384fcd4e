package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue implements the moderation channel on Redis Streams. A consumer
// group gives at-least-once delivery; failed jobs are re-scheduled through a
// sorted-set delay bucket with exponential backoff, and jobs that exhaust
// their attempts move to a dead-letter stream plus a durable sink record.
type RedisQueue struct {
	client *redis.Client
	logger *slog.Logger

	stream     string
	deadStream string
	retryKey   string
	group      string

	maxAttempts    int
	backoffBase    time.Duration
	handlerTimeout time.Duration
	claimIdle      time.Duration

	sink    DeadLetterSink
	metrics *Metrics
}

// RedisOptions tunes the queue. Zero values fall back to defaults.
type RedisOptions struct {
	MaxAttempts    int
	BackoffBase    time.Duration
	HandlerTimeout time.Duration
	ClaimIdle      time.Duration
}

// NewRedis constructs the Redis-backed queue.
func NewRedis(client *redis.Client, sink DeadLetterSink, metrics *Metrics, logger *slog.Logger, opts RedisOptions) *RedisQueue {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 10 * time.Second
	}
	if opts.ClaimIdle <= 0 {
		opts.ClaimIdle = time.Minute
	}
	return &RedisQueue{
		client:         client,
		logger:         logger,
		stream:         ChannelModeration,
		deadStream:     ChannelModeration + ".dead",
		retryKey:       ChannelModeration + ".retry",
		group:          "moderation-workers",
		maxAttempts:    opts.MaxAttempts,
		backoffBase:    opts.BackoffBase,
		handlerTimeout: opts.HandlerTimeout,
		claimIdle:      opts.ClaimIdle,
		sink:           sink,
		metrics:        metrics,
	}
}

// Enqueue appends a first-attempt job to the stream. Safe to call more than
// once for the same listing; the worker's conditional transition makes
// duplicate processing a no-op.
func (q *RedisQueue) Enqueue(ctx context.Context, listingID uuid.UUID) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: jobValues(listingID, 1),
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue moderation job: %w", err)
	}
	q.metrics.IncEnqueued()
	return nil
}

// Consume reads jobs for one consumer until ctx is cancelled. Run it from
// several goroutines to get a worker pool; each call registers a distinct
// consumer in the group.
func (q *RedisQueue) Consume(ctx context.Context, handler Handler) error {
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}
	consumer := "worker-" + uuid.NewString()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		q.pumpRetries(ctx)
		q.claimStalled(ctx, consumer, handler)

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    16,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.logger.Error("queue read failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.process(ctx, handler, msg)
			}
		}
	}
}

func (q *RedisQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// pumpRetries moves due entries from the delay bucket back onto the stream.
func (q *RedisQueue) pumpRetries(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := q.client.ZRangeByScore(ctx, q.retryKey, &redis.ZRangeBy{
		Min: "-inf", Max: now, Count: 32,
	}).Result()
	if err != nil || len(members) == 0 {
		return
	}
	for _, member := range members {
		removed, err := q.client.ZRem(ctx, q.retryKey, member).Result()
		if err != nil || removed == 0 {
			// Another consumer picked this retry up.
			continue
		}
		var payload retryPayload
		if err := json.Unmarshal([]byte(member), &payload); err != nil {
			q.logger.Error("malformed retry payload dropped", "payload", member, "error", err)
			continue
		}
		err = q.client.XAdd(ctx, &redis.XAddArgs{
			Stream: q.stream,
			Values: jobValues(payload.ListingID, payload.Attempt),
		}).Err()
		if err != nil {
			q.logger.Error("requeue retry failed", "listing_id", payload.ListingID, "error", err)
		}
	}
}

// claimStalled takes over deliveries whose consumer died mid-flight.
func (q *RedisQueue) claimStalled(ctx context.Context, consumer string, handler Handler) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    16,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			q.logger.Error("autoclaim failed", "error", err)
		}
		return
	}
	for _, msg := range msgs {
		q.process(ctx, handler, msg)
	}
}

func (q *RedisQueue) process(ctx context.Context, handler Handler, msg redis.XMessage) {
	job, err := parseJob(msg)
	if err != nil {
		// Unparseable entries can never succeed; acknowledge and drop.
		q.logger.Error("malformed job acknowledged and dropped", "message_id", msg.ID, "error", err)
		q.ack(ctx, msg.ID)
		return
	}

	handlerCtx, cancel := context.WithTimeout(ctx, q.handlerTimeout)
	err = handler(handlerCtx, job)
	cancel()

	if err == nil {
		q.metrics.IncHandled("success")
		q.ack(ctx, msg.ID)
		return
	}
	if ctx.Err() != nil {
		// Shutdown, not a handler verdict. Leave the delivery pending so the
		// group redelivers it.
		return
	}

	q.metrics.IncHandled("failure")
	q.logger.Warn("moderation job failed",
		"listing_id", job.ListingID,
		"attempt", job.Attempt,
		"error", err,
	)

	if job.Attempt >= q.maxAttempts {
		q.deadLetter(ctx, job, err)
	} else {
		q.scheduleRetry(ctx, job)
	}
	q.ack(ctx, msg.ID)
}

func (q *RedisQueue) scheduleRetry(ctx context.Context, job Job) {
	next := job.Attempt + 1
	payload, _ := json.Marshal(retryPayload{ListingID: job.ListingID, Attempt: next})
	ready := time.Now().Add(Backoff(q.backoffBase, next)).UnixMilli()
	err := q.client.ZAdd(ctx, q.retryKey, redis.Z{
		Score:  float64(ready),
		Member: string(payload),
	}).Err()
	if err != nil {
		q.logger.Error("schedule retry failed", "listing_id", job.ListingID, "error", err)
		return
	}
	q.metrics.IncRetries()
}

func (q *RedisQueue) deadLetter(ctx context.Context, job Job, cause error) {
	letter := DeadLetter{
		ID:        uuid.New(),
		Channel:   q.stream,
		Kind:      job.Kind,
		ListingID: job.ListingID,
		Attempts:  job.Attempt,
		LastError: cause.Error(),
		CreatedAt: time.Now(),
	}
	if q.sink != nil {
		if err := q.sink.Record(ctx, letter); err != nil {
			q.logger.Error("dead letter sink failed", "listing_id", job.ListingID, "error", err)
		}
	}
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.deadStream,
		Values: map[string]any{
			"kind":       job.Kind,
			"listing_id": job.ListingID.String(),
			"attempts":   job.Attempt,
			"last_error": cause.Error(),
		},
	}).Err()
	if err != nil {
		q.logger.Error("dead letter stream append failed", "listing_id", job.ListingID, "error", err)
	}
	q.metrics.IncDeadLetters()
}

func (q *RedisQueue) ack(ctx context.Context, messageID string) {
	if err := q.client.XAck(ctx, q.stream, q.group, messageID).Err(); err != nil && ctx.Err() == nil {
		q.logger.Error("ack failed", "message_id", messageID, "error", err)
	}
}

type retryPayload struct {
	ListingID uuid.UUID `json:"listing_id"`
	Attempt   int       `json:"attempt"`
}

func jobValues(listingID uuid.UUID, attempt int) map[string]any {
	return map[string]any{
		"kind":       KindListingReview,
		"listing_id": listingID.String(),
		"attempt":    attempt,
	}
}

func parseJob(msg redis.XMessage) (Job, error) {
	kind, _ := msg.Values["kind"].(string)
	rawID, _ := msg.Values["listing_id"].(string)
	listingID, err := uuid.Parse(rawID)
	if err != nil {
		return Job{}, fmt.Errorf("parse listing id %q: %w", rawID, err)
	}
	attempt := 1
	if rawAttempt, ok := msg.Values["attempt"].(string); ok {
		if n, err := strconv.Atoi(rawAttempt); err == nil && n > 0 {
			attempt = n
		}
	}
	return Job{ID: msg.ID, Kind: kind, ListingID: listingID, Attempt: attempt}, nil
}
