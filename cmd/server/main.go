// Command server runs the listing API: intake endpoints, the public feed,
// and the outbox relay that ships moderation events to Kafka. Moderation
// itself runs in the worker process.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	listinghandler "recompensa/internal/listing/handler"
	listingmetrics "recompensa/internal/listing/metrics"
	"recompensa/internal/listing/service"
	listingstore "recompensa/internal/listing/store"
	"recompensa/internal/moderation/audit"
	auditpostgres "recompensa/internal/moderation/audit/store/postgres"
	"recompensa/internal/outbox"
	"recompensa/internal/platform/config"
	"recompensa/internal/platform/httpserver"
	kafkaproducer "recompensa/internal/platform/kafka/producer"
	"recompensa/internal/platform/logger"
	"recompensa/internal/platform/postgres"
	platformredis "recompensa/internal/platform/redis"
	"recompensa/internal/queue"
	"recompensa/internal/queue/deadletter"
	"recompensa/pkg/platform/middleware/requestid"
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

	kafka, err := kafkaproducer.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Error("kafka producer setup failed", "error", err)
		os.Exit(1)
	}
	defer kafka.Close()

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

	listings := listingstore.NewPostgres(db)
	ledger := audit.NewPublisher(auditpostgres.New(db))
	svc := service.New(listings, jobs, log, listingmetrics.New())
	relay := outbox.NewRelay(outbox.NewPostgres(db), kafka, log, 0, 0)

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
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
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	listinghandler.New(svc, ledger, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listing API listening", "addr", cfg.Addr)
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
	g.Go(func() error {
		err := relay.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := svc.RunSweep(ctx, cfg.Sweep.Interval, cfg.Sweep.OlderThan, cfg.Sweep.Limit)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
