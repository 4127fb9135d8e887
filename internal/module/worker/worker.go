package worker

import (
	"context"
	"sync"
	"time"

	"github.com/project-tktt/hn-crawler/internal/common/cleaner"
	"github.com/project-tktt/hn-crawler/internal/common/extractor"
	"github.com/project-tktt/hn-crawler/internal/common/indexer"
	"github.com/project-tktt/hn-crawler/internal/domain"
	"github.com/project-tktt/hn-crawler/internal/metrics"
	"github.com/rs/zerolog"
)

// BatchSource yields batches of collected posts; *queue.Consumer implements it
type BatchSource interface {
	ConsumeBatch(ctx context.Context, maxBatch int) ([]*domain.CollectedPost, error)
}

// Worker processes posts from the queue and indexes them to storage
type Worker struct {
	source  BatchSource
	cleaner *cleaner.Cleaner
	indexer indexer.Indexer
	logger  zerolog.Logger

	batchSize   int
	concurrency int
	retryDelay  time.Duration
}

// Config holds worker configuration
type Config struct {
	Concurrency int
	BatchSize   int
	// RetryDelay is the pause after a failed consume
	RetryDelay time.Duration
}

// NewWorker creates a new worker
func NewWorker(
	source BatchSource,
	clean *cleaner.Cleaner,
	idx indexer.Indexer,
	cfg Config,
	logger zerolog.Logger,
) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	return &Worker{
		source:      source,
		cleaner:     clean,
		indexer:     idx,
		logger:      logger,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		retryDelay:  cfg.RetryDelay,
	}
}

// Run starts the worker pool and blocks until ctx is cancelled and every worker has stopped
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info().
		Int("workers", w.concurrency).
		Str("backend", w.indexer.Name()).
		Msg("Starting worker pool")

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.runSingle(ctx, workerID)
		}(i)
	}
	wg.Wait()

	w.logger.Info().Msg("Worker pool stopped")
}

func (w *Worker) runSingle(ctx context.Context, workerID int) {
	logger := w.logger.With().Int("worker", workerID).Logger()
	logger.Debug().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Worker stopping")
			return
		default:
		}

		// ConsumeBatch blocks on BRPOP for the first item
		posts, err := w.source.ConsumeBatch(ctx, w.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("Consume error")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.retryDelay):
			}
			continue
		}

		if len(posts) == 0 {
			continue
		}

		w.process(ctx, logger, posts)
	}
}

func (w *Worker) process(ctx context.Context, logger zerolog.Logger, posts []*domain.CollectedPost) {
	cleaned := make([]*domain.CollectedPost, 0, len(posts))
	for _, post := range posts {
		post = w.cleaner.CleanPost(post)
		if !extractor.ValidText(post.Title) || !extractor.ValidText(post.Author) {
			logger.Warn().Str("id", post.ID).Str("uri", post.URI).Msg("Dropping post with invalid title or author")
			continue
		}
		cleaned = append(cleaned, post)
	}
	if len(cleaned) == 0 {
		return
	}

	backend := w.indexer.Name()
	if err := w.indexer.BulkIndex(ctx, cleaned); err != nil {
		metrics.IndexErrors.WithLabelValues(backend).Inc()
		logger.Error().Err(err).Int("count", len(cleaned)).Msg("Index error")
		return
	}

	metrics.PostsIndexed.WithLabelValues(backend).Add(float64(len(cleaned)))
	logger.Info().Int("count", len(cleaned)).Msg("Indexed posts")
}
