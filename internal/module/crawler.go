package module

import (
	"context"

	"github.com/project-tktt/hn-crawler/internal/domain"
)

// Result is the outcome of a successful collection run
type Result struct {
	// Posts holds exactly the requested number of posts, in source order
	Posts []domain.Post
	// PageCapacity is the candidate row count seen on the probed root page
	PageCapacity int
	// PagesWalked is the number of listing pages fetched after the probe
	PagesWalked int
}

// Crawler is the common interface for listing crawlers
type Crawler interface {
	// Collect walks the source until target posts are gathered or the source runs dry
	Collect(ctx context.Context, target domain.Target) (*Result, error)
	// Source returns the source identifier
	Source() domain.Source
}
