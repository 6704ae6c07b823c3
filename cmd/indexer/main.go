package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/indexer/handler"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/source"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
)

// All snapshot announcements share one key so they stay ordered.
const snapshotKey = "snapshot"

var startupRetry = resilience.RetryConfig{
	MaxAttempts:  5,
	InitialDelay: time.Second,
	MaxDelay:     15 * time.Second,
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer service",
		"port", cfg.Indexer.Port,
		"snapshot", cfg.Indexer.SnapshotPath(),
		"rebuild_interval", cfg.Indexer.RebuildInterval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	engine, err := indexer.NewEngine(cfg.Indexer, cfg.Dictionary, m, softdict.WithObserver(m))
	if err != nil {
		slog.Error("failed to create indexer engine", "error", err)
		os.Exit(1)
	}

	checker := health.NewChecker()
	checker.Register("dictionary", health.DictionaryCheck(func() (int, bool) {
		last := engine.Last()
		if last == nil {
			return 0, false
		}
		return last.Keys, true
	}))

	if cfg.Indexer.AliasFile != "" {
		if _, err := engine.Seed(ctx, source.File{Path: cfg.Indexer.AliasFile}); err != nil {
			slog.Error("failed to seed from alias file", "error", err)
			os.Exit(1)
		}
	}

	if cfg.Postgres.Enabled {
		pg, err := resilience.RetryValue(ctx, "postgres-connect", startupRetry, func(ctx context.Context) (*postgres.Client, error) {
			return postgres.New(ctx, cfg.Postgres)
		})
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		checker.Register("postgres", health.PingCheck(pg.Ping))

		aliases := source.NewPostgres(pg, cfg.Postgres.AliasTable)
		if _, err := engine.Seed(ctx, aliases); err != nil {
			slog.Error("failed to seed from postgres", "error", err)
			os.Exit(1)
		}
	}

	var announce indexer.AnnounceFunc
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SnapshotReady)
		defer producer.Close()
		announce = func(ctx context.Context, ev ingestion.SnapshotEvent) error {
			return producer.Publish(ctx, kafka.Event{Key: snapshotKey, Value: ev})
		}
	}

	// Searchers restore whatever file is on disk at start-up, so the first
	// snapshot is written before anything else runs.
	first, err := engine.Snapshot(ctx)
	if err != nil {
		slog.Error("initial snapshot failed", "error", err)
		os.Exit(1)
	}
	if announce != nil {
		if err := announce(ctx, *first); err != nil {
			slog.Warn("initial snapshot announcement failed", "error", err)
		}
	}

	mux := http.NewServeMux()
	handler.New(engine, announce).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Indexer.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Kafka.Enabled {
		aliasConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AliasEvents, cfg.Kafka.ConsumerGroup,
			consumer.HandleMessage(engine, m))
		g.Go(func() error {
			return aliasConsumer.Start(gctx)
		})
		slog.Info("consuming alias events",
			"topic", cfg.Kafka.Topics.AliasEvents,
			"group", cfg.Kafka.ConsumerGroup,
		)
	}

	g.Go(func() error {
		engine.RunRebuildLoop(gctx, announce)
		return nil
	})

	g.Go(func() error {
		slog.Info("indexer service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("indexer http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("indexer service error", "error", err)
		os.Exit(1)
	}

	slog.Info("indexer service stopped", "staged", engine.Len(), "pending", engine.Pending())
}
