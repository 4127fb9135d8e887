package fetcher

import (
	"context"
	"fmt"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher implements Fetcher on top of a Colly collector
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher creates a fetcher; every Fetch runs on a clone of one base collector
func NewCollyFetcher(config Config) (*CollyFetcher, error) {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		// non-2xx bodies still reach OnResponse and map to StatusError in Fetch
		colly.ParseHTTPErrorResponse(),
	)
	if config.UserAgent != "" {
		c.UserAgent = config.UserAgent
	}

	if config.Timeout > 0 {
		c.SetRequestTimeout(config.Timeout)
	}

	if config.ProxyURL != "" {
		if err := c.SetProxy(config.ProxyURL); err != nil {
			return nil, fmt.Errorf("set proxy: %w", err)
		}
	}

	return &CollyFetcher{collector: c}, nil
}

func (f *CollyFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	var page *Page

	collector := f.collector.Clone()
	collector.Context = ctx

	collector.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:        url,
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})

	if err := collector.Visit(url); err != nil {
		return nil, err
	}

	if page == nil {
		return nil, fmt.Errorf("no response received")
	}

	if page.StatusCode < 200 || page.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: page.StatusCode}
	}

	return page, nil
}
