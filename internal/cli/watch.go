package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/project-tktt/hn-crawler/internal/common/dedup"
	"github.com/project-tktt/hn-crawler/internal/config"
	"github.com/project-tktt/hn-crawler/internal/domain"
	"github.com/project-tktt/hn-crawler/internal/metrics"
	"github.com/project-tktt/hn-crawler/internal/module"
	"github.com/project-tktt/hn-crawler/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type postChecker interface {
	CheckPost(ctx context.Context, post *domain.CollectedPost) (dedup.CheckResult, error)
	MarkSeen(ctx context.Context, post *domain.CollectedPost) error
}

type postPublisher interface {
	PublishBatch(ctx context.Context, posts []*domain.CollectedPost) error
	QueueLength(ctx context.Context) (int64, error)
}

// watcher runs a collection on every tick and forwards new or changed posts
type watcher struct {
	crawler   module.Crawler
	target    domain.Target
	checker   postChecker
	publisher postPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

func newWatchCmd(cfg *config.Config, newCrawler CrawlerFactory, opts *options, logger *zerolog.Logger) *cobra.Command {
	var (
		interval    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch [flags]",
		Short: "Collect periodically and publish new posts to Redis",
		Example: heredoc.Doc(`
			$ hncrawler watch -p 30
			$ hncrawler watch -p 100 --interval 10m --metrics-addr :9190
		`),
		RunE: func(c *cobra.Command, args []string) error {
			if opts.posts == "" {
				fmt.Fprintln(c.OutOrStdout(), usageHint)
				return nil
			}
			target, err := domain.ParseTarget(opts.posts)
			if err != nil {
				return err
			}
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}

			crawler, err := newCrawler(cfg, *logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer rdb.Close()

			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis connection failed: %w", err)
			}
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connected")

			if metricsAddr != "" {
				srv := &http.Server{Addr: metricsAddr, Handler: metricsMux()}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error().Err(err).Msg("Metrics server failed")
					}
				}()
				defer shutdownServer(srv, *logger)
				logger.Info().Str("addr", metricsAddr).Msg("Serving metrics")
			}

			w := &watcher{
				crawler:   crawler,
				target:    target,
				checker:   dedup.NewDeduplicator(rdb, cfg.Redis.DedupPrefix, cfg.Redis.DedupTTL),
				publisher: queue.NewPublisher(rdb, cfg.Redis.PostQueue),
				logger:    *logger,
				now:       time.Now,
			}
			w.loop(ctx, interval)

			logger.Info().Msg("Watch stopped")
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", cfg.Crawler.WatchInterval, "Time between collections")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", cfg.Worker.MetricsAddr, "Listen address for /metrics, empty disables it")
	return cmd
}

// loop collects immediately, then on every interval until ctx is done.
// Failed runs are logged and retried on the next tick.
func (w *watcher) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.runOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("Watch run failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runOnce collects one full result and publishes the posts that changed since they were last seen
func (w *watcher) runOnce(ctx context.Context) error {
	result, err := w.crawler.Collect(ctx, w.target)
	if err != nil {
		return err
	}

	at := w.now()
	fresh := make([]*domain.CollectedPost, 0, len(result.Posts))
	statuses := make([]dedup.CheckResult, 0, len(result.Posts))
	for _, p := range result.Posts {
		post := domain.NewCollectedPost(p, w.crawler.Source(), at)
		status, err := w.checker.CheckPost(ctx, post)
		if err != nil {
			return fmt.Errorf("check post %s: %w", post.ID, err)
		}
		if status == dedup.ResultUnchanged {
			continue
		}
		fresh = append(fresh, post)
		statuses = append(statuses, status)
	}

	if len(fresh) == 0 {
		w.logger.Info().Int("collected", len(result.Posts)).Msg("No new posts")
		return nil
	}

	if err := w.publisher.PublishBatch(ctx, fresh); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	for i, post := range fresh {
		metrics.PostsPublished.WithLabelValues(statuses[i].String()).Inc()
		if err := w.checker.MarkSeen(ctx, post); err != nil {
			w.logger.Warn().Err(err).Str("id", post.ID).Msg("Failed to mark post as seen")
		}
	}

	event := w.logger.Info().
		Int("collected", len(result.Posts)).
		Int("published", len(fresh))
	if backlog, err := w.publisher.QueueLength(ctx); err == nil {
		event = event.Int64("backlog", backlog)
	}
	event.Msg("Published posts")
	return nil
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func shutdownServer(srv *http.Server, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Metrics server shutdown")
	}
}
