package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/project-tktt/hn-crawler/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Deduplicator tracks which posts were already delivered using Redis.
// Each post is stored under prefix:source:id with its engagement signature.
type Deduplicator struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewDeduplicator creates a new Redis-based deduplicator
func NewDeduplicator(client *redis.Client, prefix string, ttl time.Duration) *Deduplicator {
	if prefix == "" {
		prefix = "seen"
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Deduplicator{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// CheckResult represents the result of checking a post
type CheckResult int

const (
	// ResultNew - post has never been seen
	ResultNew CheckResult = iota
	// ResultUpdated - post was seen with different points or comments
	ResultUpdated
	// ResultUnchanged - post was seen with the same signature
	ResultUnchanged
)

func (r CheckResult) String() string {
	switch r {
	case ResultNew:
		return "new"
	case ResultUpdated:
		return "updated"
	case ResultUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Signature captures the fields of a post that change while it sits on the front page
func Signature(p domain.Post) string {
	return fmt.Sprintf("%d/%d", p.Points, p.Comments)
}

// CheckPost reports whether post needs to be delivered
func (d *Deduplicator) CheckPost(ctx context.Context, post *domain.CollectedPost) (CheckResult, error) {
	stored, err := d.client.Get(ctx, d.makeKey(post)).Result()
	if errors.Is(err, redis.Nil) {
		return ResultNew, nil
	}
	if err != nil {
		return ResultNew, fmt.Errorf("redis get: %w", err)
	}

	if stored != Signature(post.Post) {
		return ResultUpdated, nil
	}
	return ResultUnchanged, nil
}

// MarkSeen stores the post's current signature, refreshing the TTL
func (d *Deduplicator) MarkSeen(ctx context.Context, post *domain.CollectedPost) error {
	if err := d.client.Set(ctx, d.makeKey(post), Signature(post.Post), d.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (d *Deduplicator) makeKey(post *domain.CollectedPost) string {
	return fmt.Sprintf("%s:%s:%s", d.prefix, post.Source, post.ID)
}
