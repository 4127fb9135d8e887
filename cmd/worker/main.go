package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/project-tktt/hn-crawler/internal/common/cleaner"
	"github.com/project-tktt/hn-crawler/internal/common/indexer"
	"github.com/project-tktt/hn-crawler/internal/config"
	"github.com/project-tktt/hn-crawler/internal/logging"
	"github.com/project-tktt/hn-crawler/internal/metrics"
	"github.com/project-tktt/hn-crawler/internal/module/worker"
	"github.com/project-tktt/hn-crawler/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	dotenvErr := config.LoadDotEnv()
	cfg := config.Load()

	logger := logging.Setup(logging.Config{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
		Output:  os.Stderr,
		Service: "hn-worker",
	})
	if dotenvErr != nil {
		logger.Warn().Err(dotenvErr).Msg("Failed to load .env")
	}
	logger.Info().Msg("Starting post worker service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("Redis connection failed")
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connected")

	idx, closeIndexer := newIndexer(ctx, cfg, logger)
	defer closeIndexer()

	consumer := queue.NewConsumer(rdb, cfg.Redis.PostQueue, 5*time.Second, logging.NewLogger("consumer"))

	var srv *http.Server
	if cfg.Worker.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv = &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		logger.Info().Str("addr", cfg.Worker.MetricsAddr).Msg("Serving metrics")
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	// Start worker pool (queue -> clean -> index)
	wg.Add(1)
	go func() {
		defer wg.Done()
		w := worker.NewWorker(consumer, cleaner.NewCleaner(), idx, worker.Config{
			Concurrency: cfg.Worker.Concurrency,
			BatchSize:   cfg.Worker.BatchSize,
		}, logging.NewLogger("worker"))
		w.Run(ctx)
	}()

	<-sigChan
	logger.Info().Msg("Shutdown signal received, stopping...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("Graceful shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("Shutdown timeout, forcing exit")
	}

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Metrics server shutdown")
		}
	}
}

// newIndexer connects the configured storage backend
func newIndexer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (indexer.Indexer, func()) {
	switch cfg.Worker.Backend {
	case "elasticsearch":
		es, err := indexer.NewElasticsearchIndexer(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Index, logging.NewLogger("elasticsearch"))
		if err != nil {
			logger.Fatal().Err(err).Msg("Elasticsearch connection failed")
		}
		if err := es.EnsureIndex(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to ensure index")
		}
		logger.Info().Str("index", cfg.Elasticsearch.Index).Msg("Elasticsearch connected")
		return es, func() {}

	case "postgres":
		pg, err := indexer.NewPostgresIndexer(ctx, cfg.Postgres.ConnectionString, cfg.Postgres.TableName, logging.NewLogger("postgres"))
		if err != nil {
			logger.Fatal().Err(err).Msg("Postgres connection failed")
		}
		logger.Info().Str("table", cfg.Postgres.TableName).Msg("Postgres connected")
		return pg, func() { pg.Close() }

	default:
		logger.Fatal().Str("backend", cfg.Worker.Backend).Msg("Unknown storage backend")
		return nil, nil
	}
}
