// Package worker consumes moderation jobs and drives the listing status
// state machine: PENDING_REVIEW moves to PUBLISHED or BANNED exactly once,
// with every decision recorded in the ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"recompensa/internal/listing/models"
	"recompensa/internal/listing/store"
	"recompensa/internal/moderation"
	"recompensa/internal/moderation/audit"
	"recompensa/internal/moderation/metrics"
	"recompensa/internal/queue"
	"recompensa/pkg/platform/sentinel"
	txcontext "recompensa/pkg/platform/tx"
)

// Worker evaluates one listing per job. All dependencies are injected; the
// worker owns no connections.
type Worker struct {
	listings store.Store
	ledger   *audit.Publisher
	scorer   *moderation.Scorer
	runner   txcontext.Runner
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New constructs a moderation worker.
func New(
	listings store.Store,
	ledger *audit.Publisher,
	scorer *moderation.Scorer,
	runner txcontext.Runner,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Worker {
	return &Worker{
		listings: listings,
		ledger:   ledger,
		scorer:   scorer,
		runner:   runner,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run consumes the queue with a pool of n concurrent handlers until ctx is
// cancelled.
func (w *Worker) Run(ctx context.Context, consumer queue.Consumer, n int) error {
	if n <= 0 {
		n = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return consumer.Consume(ctx, w.Handle)
		})
	}
	return g.Wait()
}

// Handle processes one job. Returning an error triggers the queue's retry
// policy; completing without effect (missing or already-decided listing) is
// success.
func (w *Worker) Handle(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() { w.metrics.ObserveJob(time.Since(start)) }()

	listing, err := w.listings.Get(ctx, job.ListingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Deletion race: discard the job without effect.
			w.metrics.IncNoOp("missing")
			return nil
		}
		return fmt.Errorf("load listing %s: %w", job.ListingID, err)
	}
	if listing.Status != models.StatusPendingReview {
		// Duplicate delivery after a terminal transition.
		w.metrics.IncNoOp("already_decided")
		return nil
	}

	score, flags := w.scorer.Evaluate(listing.Title + "\n" + listing.Description)
	decision := moderation.Decide(score, flags)

	// The transition and the ledger append are one unit of work: if either
	// fails, both roll back and the whole job retries.
	var lostRace bool
	err = w.runner.RunInTx(ctx, func(ctx context.Context) error {
		if decision.Transitions {
			ok, err := w.listings.Transition(ctx,
				listing.ID, models.StatusPendingReview, decision.ToStatus, decision.Score)
			if err != nil {
				return fmt.Errorf("transition listing %s: %w", listing.ID, err)
			}
			if !ok {
				// A concurrent delivery already decided this listing. Skip
				// the ledger append too: the winner recorded the decision.
				lostRace = true
				return nil
			}
		}
		err := w.ledger.Emit(ctx, audit.Event{
			ResourceID: listing.ID,
			Action:     string(decision.Action),
			Reason:     decision.Reason,
		})
		if err != nil {
			return fmt.Errorf("append moderation event for %s: %w", listing.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if lostRace {
		w.metrics.IncNoOp("lost_race")
		return nil
	}

	w.metrics.IncDecision(string(decision.Action))
	w.metrics.ObserveRiskScore(decision.Score)
	w.logger.InfoContext(ctx, "listing moderated",
		"listing_id", listing.ID,
		"action", decision.Action,
		"score", decision.Score,
		"attempt", job.Attempt,
	)
	return nil
}
