package fetcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// PacedFetcher spaces out requests made through an underlying Fetcher
type PacedFetcher struct {
	base    Fetcher
	limiter *rate.Limiter
}

// NewPacedFetcher allows one request per interval; interval <= 0 disables pacing
func NewPacedFetcher(base Fetcher, interval time.Duration) *PacedFetcher {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &PacedFetcher{
		base:    base,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (p *PacedFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := p.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return p.base.Fetch(ctx, url)
}

// wait blocks until the next slot or until ctx is done.
// A deadline that falls before the slot surfaces as ctx.Err() once it passes.
func (p *PacedFetcher) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r := p.limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
