package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"gestion/internal/audit"
	auditkafka "gestion/internal/audit/kafka"
	"gestion/internal/participation"
	participationhandler "gestion/internal/participation/handler"
	participationmetrics "gestion/internal/participation/metrics"
	"gestion/internal/participation/service"
	"gestion/internal/participation/store"
	"gestion/internal/platform/config"
	"gestion/internal/platform/httpserver"
	"gestion/internal/platform/logger"
	"gestion/internal/platform/metrics"
	"gestion/internal/platform/postgres"
	platformredis "gestion/internal/platform/redis"
	"gestion/internal/platform/tracing"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("gestion stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	tp, err := tracing.New(cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdown(log, "tracing", tp.Shutdown)

	checks := map[string]httpserver.Check{}

	stores, db, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checks["postgres"] = db.PingContext
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient.Health
		stores = stores.WithCache(redisClient.Client, cfg.Redis.CacheTTL, log)
		log.Info("person and project lookups cached in redis", "ttl", cfg.Redis.CacheTTL)
	}

	// Seed after the cache is wired so re-seeded rows evict stale entries.
	if err := seed(ctx, cfg.SeedFile, stores, db == nil, log); err != nil {
		return err
	}

	auditStore, closeAudit, err := buildAuditStore(ctx, cfg.Kafka, db, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	publisher := audit.NewPublisher(0)
	worker := audit.NewWorker(auditStore, publisher.Inbox(), log, audit.WithDrainTimeout(shutdownTimeout))

	svc := participation.NewService(stores,
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(participationmetrics.New()),
		service.WithTracer(tp.Tracer("gestion/participation")),
	)
	h := participation.NewHandler(svc, log, metrics.New(),
		participationhandler.WithRequestTimeout(cfg.RequestTimeout))

	r := chi.NewRouter()
	r.Get("/health", httpserver.Health(checks))
	r.Handle("/metrics", promhttp.Handler())
	h.Register(r)

	srv := httpserver.New(cfg.Addr, r)

	workerCtx, cancelWorker := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting gestion", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Stop the audit worker only once no handler can emit anymore.
		cancelWorker()
		return err
	})
	return g.Wait()
}

// buildStores selects Postgres when DATABASE_URL is set and in-memory stores
// otherwise. The returned db is nil in memory mode.
func buildStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*participation.Stores, *sql.DB, error) {
	if cfg.Database.URL == "" {
		return participation.NewInMemoryStores(), nil, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.Migrate {
		if err := postgres.Migrate(db, store.Migrations, store.MigrationsDir, log); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	stores := participation.NewPostgresStores(db)
	log.Info("using postgres stores", "driver", cfg.Database.Driver)
	return stores, db, nil
}

// seed loads SEED_FILE when set. Without one, in-memory stores get the
// bootstrap person and project so a fresh server is usable.
func seed(ctx context.Context, path string, stores *participation.Stores, inMemory bool, log *slog.Logger) error {
	if path == "" {
		if !inMemory {
			return nil
		}
		if err := store.SeedBootstrap(ctx, stores.PersonWriter, stores.ProjectWriter); err != nil {
			return err
		}
		log.Info("in-memory stores seeded with bootstrap person P1 and project X1")
		return nil
	}
	persons, projects, err := store.LoadSeedFile(ctx, path, stores.PersonWriter, stores.ProjectWriter)
	if err != nil {
		return err
	}
	log.Info("seed file loaded", "path", path, "persons", persons, "projects", projects)
	return nil
}

// buildAuditStore publishes to Kafka when brokers are configured, falls back to
// the audit_events table when a database is, and keeps events in memory otherwise.
func buildAuditStore(ctx context.Context, cfg config.KafkaConfig, db *sql.DB, log *slog.Logger) (audit.Store, func(), error) {
	if len(cfg.Brokers) == 0 {
		if db != nil {
			log.Info("audit events stored in postgres")
			return audit.NewPostgresStore(db), func() {}, nil
		}
		log.Info("audit events kept in memory")
		return audit.NewInMemoryStore(), func() {}, nil
	}

	client, err := auditkafka.NewClient(cfg.Brokers, kgo.DefaultProduceTopic(cfg.AuditTopic))
	if err != nil {
		return nil, nil, err
	}
	if err := auditkafka.EnsureTopic(ctx, client, cfg.AuditTopic, cfg.Partitions, cfg.ReplicationFactor); err != nil {
		client.Close()
		return nil, nil, err
	}
	log.Info("audit events published to kafka", "topic", cfg.AuditTopic, "brokers", cfg.Brokers)
	return auditkafka.NewSink(client, cfg.AuditTopic), client.Close, nil
}

func shutdown(log *slog.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn("shutdown failed", "component", name, "error", err)
	}
}
