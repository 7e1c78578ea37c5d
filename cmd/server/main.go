// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"nucleo/internal/access"
	accessmetrics "nucleo/internal/access/metrics"
	"nucleo/internal/audit"
	"nucleo/internal/auth"
	"nucleo/internal/platform/config"
	"nucleo/internal/platform/httpserver"
	"nucleo/internal/platform/logger"
	"nucleo/internal/platform/metrics"
	platformredis "nucleo/internal/platform/redis"
	"nucleo/internal/store"
	httptransport "nucleo/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		logger.New().Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Primary store: postgres when configured, in-memory otherwise.
	var (
		st store.Store = store.NewMemory()
		db *sql.DB
	)
	if cfg.Postgres.URL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()

		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate store: %w", err)
		}
		st = pg
		log.Info("using postgres store")
	} else {
		log.Warn("no postgres configured, using in-memory store")
	}

	sink, closeSinks, err := buildAuditSink(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	dispatcher := audit.NewDispatcher(sink, cfg.Audit.BufferSize, log)
	defer dispatcher.Close()

	tokens := auth.NewTokenService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	authService := auth.NewService(st, tokens, cfg.JWT.TTL, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Store:       st,
		Sink:        dispatcher,
		Auth:        authService,
		Validator:   tokens,
		Logger:      log,
		HTTPMetrics: metrics.New(),
		AccessOpts: []access.Option{
			access.WithLogger(log),
			access.WithMetrics(accessmetrics.New()),
		},
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// buildAuditSink fans out to every configured backend. With nothing
// configured the trail still lands somewhere visible: an in-memory sink
// suitable for development only.
func buildAuditSink(ctx context.Context, cfg config.Config, db *sql.DB, log *slog.Logger) (audit.Sink, func(), error) {
	var (
		sinks   []audit.Sink
		closers []func()
	)

	if db != nil {
		pgSink := audit.NewPostgresSink(db)
		if err := pgSink.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate audit sink: %w", err)
		}
		sinks = append(sinks, pgSink)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka sink: %w", err)
		}
		sinks = append(sinks, kafkaSink)
		closers = append(closers, kafkaSink.Close)
		log.Info("audit kafka sink enabled", "topic", cfg.Kafka.Topic)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		sinks = append(sinks, audit.NewRedisSink(redisClient.Client, cfg.Redis.Stream, cfg.Redis.MaxLen))
		closers = append(closers, func() { redisClient.Close() })
		log.Info("audit redis sink enabled", "stream", cfg.Redis.Stream)
	}

	if len(sinks) == 0 {
		log.Warn("no audit backend configured, records stay in process memory")
		sinks = append(sinks, audit.NewMemory())
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	return audit.Fanout(sinks...), closeAll, nil
}
