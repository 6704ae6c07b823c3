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

	"github.com/Adithya-Monish-Kumar-K/softdict/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/softdict/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/softdict/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
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
	slog.Info("starting search service", "port", cfg.Server.Port, "snapshot", cfg.Indexer.SnapshotPath())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	exec, err := executor.New(cfg.Search, restoreOptions(cfg, m)...)
	if err != nil {
		slog.Error("failed to create query executor", "error", err)
		os.Exit(1)
	}

	// The indexer may still be writing the first snapshot.
	snapshotPath := cfg.Indexer.SnapshotPath()
	info, err := resilience.RetryValue(ctx, "snapshot-restore", resilience.RetryConfig{
		MaxAttempts:  10,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	}, func(context.Context) (snapshot.Info, error) {
		return exec.Load(snapshotPath)
	})
	if err != nil {
		slog.Warn("no dictionary snapshot loaded, serving 503 until reload", "path", snapshotPath, "error", err)
	} else {
		m.SnapshotsTotal.WithLabelValues("loaded").Inc()
		slog.Info("dictionary snapshot loaded", "fingerprint", info.Fingerprint, "keys", info.Keys)
	}

	checker := health.NewChecker()
	checker.Register("dictionary", health.DictionaryCheck(exec.Entries))

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, lookup caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.RegisterOptional("redis", health.PingCheck(redisClient.Ping))
			slog.Info("lookup cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var lookupEvents analytics.EventPublisher
	if cfg.Kafka.Enabled && cfg.Kafka.Topics.LookupEvents != "" {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.LookupEvents)
		defer producer.Close()
		lookupEvents = producer
	}
	collector := analytics.NewCollector(aggregator, lookupEvents, analytics.CollectorConfig{})
	collector.Start(ctx)
	defer collector.Close()

	if cfg.Kafka.Enabled {
		hostname, _ := os.Hostname()
		group := cfg.Kafka.ConsumerGroup + "-searcher-" + hostname
		snapshots := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SnapshotReady, group,
			executor.HandleSnapshotEvent(exec, snapshotPath, m))
		go func() {
			if err := snapshots.Start(ctx); err != nil {
				slog.Error("snapshot consumer error", "error", err)
			}
		}()
		slog.Info("snapshot consumer started", "topic", cfg.Kafka.Topics.SnapshotReady, "group", group)
	}

	h := handler.New(exec, queryCache, collector, cfg.Search, snapshotPath)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Search.RequestTimeout)(chain)
	if cfg.Server.RateLimitRPS > 0 {
		chain = middleware.RateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

// restoreOptions carries the settings a snapshot file does not store onto
// every restored dictionary.
func restoreOptions(cfg *config.Config, m *metrics.Metrics) []softdict.Option {
	opts := []softdict.Option{softdict.WithBoundMerge(cfg.Dictionary.BoundMerge)}
	if m != nil {
		opts = append(opts, softdict.WithObserver(m))
	}
	return opts
}
