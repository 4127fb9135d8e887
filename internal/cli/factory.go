package cli

import (
	"fmt"

	"github.com/project-tktt/hn-crawler/internal/common/extractor"
	"github.com/project-tktt/hn-crawler/internal/common/fetcher"
	"github.com/project-tktt/hn-crawler/internal/config"
	"github.com/project-tktt/hn-crawler/internal/module"
	"github.com/project-tktt/hn-crawler/internal/module/hackernews"
	"github.com/rs/zerolog"
)

// CrawlerFactory builds the crawler a command runs against
type CrawlerFactory func(cfg *config.Config, logger zerolog.Logger) (module.Crawler, error)

// NewHackerNewsCrawler wires the colly transport, pacing and listing extractor
func NewHackerNewsCrawler(cfg *config.Config, logger zerolog.Logger) (module.Crawler, error) {
	base, err := fetcher.NewCollyFetcher(fetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		ProxyURL:  cfg.Crawler.ProxyURL,
		Timeout:   cfg.Crawler.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	ex := extractor.NewListingExtractor(
		extractor.DefaultSelectors(),
		extractor.WithLogger(logger.With().Str("component", "extractor").Logger()),
	)

	return hackernews.NewCrawler(
		fetcher.NewPacedFetcher(base, cfg.Crawler.RequestDelay),
		ex,
		hackernews.Config{
			BaseURL:  cfg.Crawler.BaseURL,
			MaxPages: cfg.Crawler.MaxPages,
		},
		logger.With().Str("component", "crawler").Logger(),
	), nil
}
