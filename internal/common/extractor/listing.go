package extractor

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/project-tktt/hn-crawler/internal/common/cleaner"
	"github.com/project-tktt/hn-crawler/internal/domain"
	"github.com/project-tktt/hn-crawler/internal/metrics"
	"github.com/rs/zerolog"
)

// ListingExtractor implements Extractor for two-row HTML listings using goquery
type ListingExtractor struct {
	selectors Selectors
	pair      PairFunc
	validURI  URIPredicate
	cleaner   *cleaner.Cleaner
	logger    zerolog.Logger
}

// Option customizes a ListingExtractor
type Option func(*ListingExtractor)

// WithPairFunc replaces the next-sibling pairing strategy
func WithPairFunc(fn PairFunc) Option {
	return func(e *ListingExtractor) {
		e.pair = fn
	}
}

// WithURIPredicate replaces IsWellFormedURI
func WithURIPredicate(fn URIPredicate) Option {
	return func(e *ListingExtractor) {
		e.validURI = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *ListingExtractor) {
		e.logger = logger
	}
}

// NewListingExtractor creates an extractor for the given selectors
func NewListingExtractor(selectors Selectors, opts ...Option) *ListingExtractor {
	e := &ListingExtractor{
		selectors: selectors,
		pair:      NextSibling,
		validURI:  IsWellFormedURI,
		cleaner:   cleaner.NewCleaner(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ListingExtractor) CountCandidates(body []byte) (int, error) {
	doc, err := parse(body)
	if err != nil {
		return 0, err
	}
	return doc.Find(e.selectors.Row).Length(), nil
}

// Pairs decomposes a page into its row pairs, in document order
func (e *ListingExtractor) Pairs(body []byte) ([]RowPair, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}

	rows := doc.Find(e.selectors.Row)
	pairs := make([]RowPair, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		pairs = append(pairs, e.pair(row))
	})
	return pairs, nil
}

func (e *ListingExtractor) Extract(body []byte, buf *domain.PostBuffer) (PageStats, error) {
	pairs, err := e.Pairs(body)
	if err != nil {
		return PageStats{}, err
	}

	stats := PageStats{Candidates: len(pairs)}
	for _, pair := range pairs {
		if buf.Full() {
			break
		}
		stats.Evaluated++
		metrics.Candidates.Inc()

		c := readCandidate(pair, e.selectors, e.cleaner)
		post, field := validate(c, e.validURI)
		if field != "" {
			stats.Rejected++
			metrics.PostsRejected.WithLabelValues(field).Inc()
			e.logger.Debug().
				Str("field", field).
				Str("title", c.title).
				Str("uri", c.uri).
				Msg("Dropping invalid candidate")
			continue
		}

		buf.Append(post)
		stats.Accepted++
		metrics.PostsAccepted.Inc()
	}

	return stats, nil
}

func parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
