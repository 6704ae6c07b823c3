// Command ingestion starts the alias ingestion HTTP service.
//
// The service accepts alias changes via POST /api/v1/aliases, validates them,
// persists them to PostgreSQL, and publishes them to Kafka for the indexer.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/source"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion service", "port", cfg.Ingestion.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()

	// Interface values stay nil unless the backend is configured.
	var store publisher.AliasStore
	var events publisher.EventPublisher

	if cfg.Postgres.Enabled {
		db, err := resilience.RetryValue(ctx, "postgres-connect", resilience.RetryConfig{
			MaxAttempts:  5,
			InitialDelay: time.Second,
			MaxDelay:     15 * time.Second,
		}, func(ctx context.Context) (*postgres.Client, error) {
			return postgres.New(ctx, cfg.Postgres)
		})
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		checker.Register("postgres", health.PingCheck(db.Ping))
		store = source.NewPostgres(db, cfg.Postgres.AliasTable)
		slog.Info("connected to postgres", "table", cfg.Postgres.AliasTable)
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AliasEvents)
		defer producer.Close()
		events = producer
		slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.AliasEvents)
	}

	if store == nil && events == nil {
		slog.Error("ingestion needs postgres or kafka enabled")
		os.Exit(1)
	}

	h := handler.New(publisher.New(store, events))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/aliases", h.Aliases)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Ingestion.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
