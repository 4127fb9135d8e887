package hackernews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/project-tktt/hn-crawler/internal/common/extractor"
	"github.com/project-tktt/hn-crawler/internal/common/fetcher"
	"github.com/project-tktt/hn-crawler/internal/domain"
	"github.com/project-tktt/hn-crawler/internal/metrics"
	"github.com/project-tktt/hn-crawler/internal/module"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL     = "https://news.ycombinator.com"
	DefaultListingPath = "/news"
	DefaultMaxPages    = 20
)

// Config holds Hacker News specific configuration
type Config struct {
	BaseURL     string
	ListingPath string
	// MaxPages bounds the walk; exceeding it fails like an exhausted source
	MaxPages int
}

// Crawler collects front page posts from Hacker News
type Crawler struct {
	fetcher   fetcher.Fetcher
	extractor extractor.Extractor
	config    Config
	logger    zerolog.Logger
}

var _ module.Crawler = (*Crawler)(nil)

// NewCrawler creates a new Hacker News crawler
func NewCrawler(f fetcher.Fetcher, ex extractor.Extractor, cfg Config, logger zerolog.Logger) *Crawler {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ListingPath == "" {
		cfg.ListingPath = DefaultListingPath
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}

	return &Crawler{
		fetcher:   f,
		extractor: ex,
		config:    cfg,
		logger:    logger.With().Str("source", string(domain.SourceHackerNews)).Logger(),
	}
}

// runState is owned by a single Collect call
type runState struct {
	buf          *domain.PostBuffer
	currentPage  int
	pageCapacity int
}

// Collect probes the root page, then walks listing pages in order until
// target posts are gathered. Nothing partial is returned on failure.
func (c *Crawler) Collect(ctx context.Context, target domain.Target) (*module.Result, error) {
	start := time.Now()
	result, err := c.collect(ctx, target)
	recordOutcome(err)

	if err != nil {
		c.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Collection failed")
		return nil, err
	}

	c.logger.Info().
		Int("posts", len(result.Posts)).
		Int("pages", result.PagesWalked).
		Dur("elapsed", time.Since(start)).
		Msg("Collection finished")
	return result, nil
}

func (c *Crawler) collect(ctx context.Context, target domain.Target) (*module.Result, error) {
	if target.Count() < domain.MinTarget {
		return nil, &domain.Error{Kind: domain.KindInvalidConfiguration}
	}
	state := &runState{buf: domain.NewPostBuffer(target.Count())}

	capacity, err := c.probe(ctx)
	if err != nil {
		return nil, err
	}
	if capacity == 0 {
		return nil, domain.NoPostsFound(c.config.BaseURL)
	}
	state.pageCapacity = capacity
	c.logger.Debug().Int("capacity", capacity).Msg("Probed root page")

	for !state.buf.Full() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if state.currentPage >= c.config.MaxPages {
			c.logger.Warn().
				Int("max_pages", c.config.MaxPages).
				Int("found", state.buf.Len()).
				Msg("Page limit reached")
			return nil, domain.InsufficientResults(state.buf.Len(), target.Count())
		}

		state.currentPage++
		url := c.pageURL(state.currentPage)

		page, err := c.fetch(ctx, url, "page")
		if err != nil {
			return nil, err
		}

		stats, err := c.extractor.Extract(page.Body, state.buf)
		if err != nil {
			return nil, domain.SourceUnreachable(url, err)
		}

		if stats.Candidates == 0 {
			c.logger.Info().Int("page", state.currentPage).Msg("No more posts")
			return nil, domain.InsufficientResults(state.buf.Len(), target.Count())
		}

		c.logger.Info().
			Int("page", state.currentPage).
			Int("candidates", stats.Candidates).
			Int("accepted", stats.Accepted).
			Int("rejected", stats.Rejected).
			Int("total", state.buf.Len()).
			Msg("Page processed")
	}

	return &module.Result{
		Posts:        state.buf.Posts(),
		PageCapacity: state.pageCapacity,
		PagesWalked:  state.currentPage,
	}, nil
}

// probe fetches the root page and counts its candidate rows
func (c *Crawler) probe(ctx context.Context) (int, error) {
	page, err := c.fetch(ctx, c.config.BaseURL, "probe")
	if err != nil {
		return 0, err
	}

	n, err := c.extractor.CountCandidates(page.Body)
	if err != nil {
		return 0, domain.SourceUnreachable(c.config.BaseURL, err)
	}
	return n, nil
}

func (c *Crawler) fetch(ctx context.Context, url, kind string) (*fetcher.Page, error) {
	start := time.Now()
	page, err := c.fetcher.Fetch(ctx, url)
	metrics.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	metrics.PagesFetched.WithLabelValues(kind).Inc()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, domain.SourceUnreachable(url, err)
	}
	return page, nil
}

func (c *Crawler) pageURL(page int) string {
	return fmt.Sprintf("%s%s?p=%d", c.config.BaseURL, c.config.ListingPath, page)
}

// Source returns the source identifier
func (c *Crawler) Source() domain.Source {
	return domain.SourceHackerNews
}

func recordOutcome(err error) {
	outcome := "ok"
	var derr *domain.Error
	switch {
	case err == nil:
	case errors.As(err, &derr):
		outcome = derr.Kind.String()
	default:
		outcome = "aborted"
	}
	metrics.Runs.WithLabelValues(outcome).Inc()
}
