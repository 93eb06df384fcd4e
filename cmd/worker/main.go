// Command worker runs the moderation side: a pool of queue consumers that
// score pending listings and drive their status transitions, plus the Kafka
// consumer that materializes moderation events from the outbox pipeline.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	listingstore "recompensa/internal/listing/store"
	"recompensa/internal/moderation"
	"recompensa/internal/moderation/audit"
	auditconsumer "recompensa/internal/moderation/audit/consumer"
	auditpostgres "recompensa/internal/moderation/audit/store/postgres"
	modmetrics "recompensa/internal/moderation/metrics"
	"recompensa/internal/moderation/worker"
	"recompensa/internal/platform/config"
	"recompensa/internal/platform/httpserver"
	kafkaconsumer "recompensa/internal/platform/kafka/consumer"
	"recompensa/internal/platform/logger"
	"recompensa/internal/platform/postgres"
	platformredis "recompensa/internal/platform/redis"
	"recompensa/internal/queue"
	"recompensa/internal/queue/deadletter"
	"recompensa/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres.URL, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	jobs := queue.NewRedis(
		redisClient.Client,
		deadletter.NewPostgres(db),
		queue.NewMetrics(),
		log,
		queue.RedisOptions{
			MaxAttempts:    cfg.Worker.MaxAttempts,
			BackoffBase:    cfg.Worker.BackoffBase,
			HandlerTimeout: cfg.Worker.HandlerTimeout,
		},
	)

	auditStore := auditpostgres.New(db)
	mod := worker.New(
		listingstore.NewPostgres(db),
		audit.NewPublisher(auditStore),
		moderation.NewScorer(moderation.DefaultWordlists()),
		tx.NewSQLRunner(db),
		log,
		modmetrics.New(),
	)

	events, err := kafkaconsumer.New(
		cfg.Kafka.Brokers,
		cfg.Kafka.Group,
		cfg.Kafka.Topic,
		auditconsumer.New(auditStore, log),
		log,
	)
	if err != nil {
		log.Error("kafka consumer setup failed", "error", err)
		os.Exit(1)
	}
	defer events.Close()

	ops := http.NewServeMux()
	ops.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := redisClient.Health(r.Context()); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	ops.Handle("/metrics", promhttp.Handler())
	srv := httpserver.New(cfg.Worker.Addr, ops)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("moderation worker starting", "concurrency", cfg.Worker.Concurrency)
		err := mod.Run(ctx, jobs, cfg.Worker.Concurrency)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := events.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}
