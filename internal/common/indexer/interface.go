package indexer

import (
	"context"

	"github.com/project-tktt/hn-crawler/internal/domain"
)

// Indexer defines the interface for post storage backends
type Indexer interface {
	// BulkIndex upserts multiple posts at once, keyed by post ID
	BulkIndex(ctx context.Context, posts []*domain.CollectedPost) error
	// Name identifies the backend in logs and metrics
	Name() string
}
