package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/project-tktt/hn-crawler/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Consumer pops collected posts from a Redis list
type Consumer struct {
	client    *redis.Client
	queueName string
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewConsumer creates a new queue consumer
func NewConsumer(client *redis.Client, queueName string, timeout time.Duration, logger zerolog.Logger) *Consumer {
	if queueName == "" {
		queueName = DefaultQueue
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Consumer{
		client:    client,
		queueName: queueName,
		timeout:   timeout,
		logger:    logger,
	}
}

// ConsumeBatch returns up to maxBatch posts.
// BRPOP waits for the first item, then RPOP drains the rest without blocking.
// An empty slice means the wait timed out.
func (c *Consumer) ConsumeBatch(ctx context.Context, maxBatch int) ([]*domain.CollectedPost, error) {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	posts := make([]*domain.CollectedPost, 0, maxBatch)

	result, err := c.client.BRPop(ctx, c.timeout, c.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return posts, nil
		}
		return nil, fmt.Errorf("brpop: %w", err)
	}

	if len(result) >= 2 {
		if post, ok := c.decode(result[1]); ok {
			posts = append(posts, post)
		}
	}

	for len(posts) < maxBatch {
		raw, err := c.client.RPop(ctx, c.queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return posts, fmt.Errorf("rpop: %w", err)
		}

		if post, ok := c.decode(raw); ok {
			posts = append(posts, post)
		}
	}

	return posts, nil
}

// decode reports false for malformed entries, which are dropped
func (c *Consumer) decode(raw string) (*domain.CollectedPost, bool) {
	var post domain.CollectedPost
	if err := json.Unmarshal([]byte(raw), &post); err != nil {
		c.logger.Warn().Err(err).Str("queue", c.queueName).Msg("Skipping malformed message")
		return nil, false
	}
	return &post, true
}
