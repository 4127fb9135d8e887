package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/project-tktt/hn-crawler/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultQueue is used when no queue name is configured
const DefaultQueue = "posts:hackernews"

// Publisher pushes collected posts to a Redis list
type Publisher struct {
	client    *redis.Client
	queueName string
}

// NewPublisher creates a new queue publisher
func NewPublisher(client *redis.Client, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Publisher{
		client:    client,
		queueName: queueName,
	}
}

// PublishBatch pushes posts in one pipeline, preserving their order for the consumer
func (p *Publisher) PublishBatch(ctx context.Context, posts []*domain.CollectedPost) error {
	if len(posts) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, post := range posts {
		data, err := json.Marshal(post)
		if err != nil {
			return fmt.Errorf("marshal post: %w", err)
		}
		pipe.LPush(ctx, p.queueName, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}

	return nil
}

// QueueLength returns the current queue length
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queueName).Result()
}
