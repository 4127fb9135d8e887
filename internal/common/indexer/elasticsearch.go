package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/project-tktt/hn-crawler/internal/domain"
	"github.com/rs/zerolog"
)

// ElasticsearchIndexer indexes posts to Elasticsearch
type ElasticsearchIndexer struct {
	client    *elasticsearch.Client
	indexName string
	logger    zerolog.Logger
}

// NewElasticsearchIndexer creates a new Elasticsearch indexer and checks the cluster is reachable
func NewElasticsearchIndexer(addresses []string, indexName string, logger zerolog.Logger) (*ElasticsearchIndexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("es error: %s", res.Status())
	}

	return &ElasticsearchIndexer{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}, nil
}

func (i *ElasticsearchIndexer) Name() string {
	return "elasticsearch"
}

// BulkIndex indexes multiple posts with the bulk API.
// Per-item failures are logged; the call fails only when the request itself does.
func (i *ElasticsearchIndexer) BulkIndex(ctx context.Context, posts []*domain.CollectedPost) error {
	if len(posts) == 0 {
		return nil
	}

	body, err := bulkBody(i.indexName, posts)
	if err != nil {
		return err
	}

	res, err := i.client.Bulk(bytes.NewReader(body), i.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk error: %s", res.Status())
	}

	failed, err := bulkFailures(res.Body)
	if err != nil {
		return err
	}
	for _, f := range failed {
		i.logger.Error().
			Str("id", f.ID).
			Str("type", f.Type).
			Str("reason", f.Reason).
			Msg("Bulk index item failed")
	}

	return nil
}

// bulkBody renders posts as NDJSON action/document pairs
func bulkBody(index string, posts []*domain.CollectedPost) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for _, post := range posts {
		meta := map[string]any{
			"index": map[string]any{
				"_index": index,
				"_id":    post.ID,
			},
		}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("marshal meta %s: %w", post.ID, err)
		}
		if err := enc.Encode(post); err != nil {
			return nil, fmt.Errorf("marshal post %s: %w", post.ID, err)
		}
	}

	return buf.Bytes(), nil
}

type bulkFailure struct {
	ID     string
	Type   string
	Reason string
}

func bulkFailures(r io.Reader) ([]bulkFailure, error) {
	var bulkRes struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				ID     string `json:"_id"`
				Status int    `json:"status"`
				Error  struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"index"`
		} `json:"items"`
	}

	if err := json.NewDecoder(r).Decode(&bulkRes); err != nil {
		return nil, fmt.Errorf("parse bulk response: %w", err)
	}

	if !bulkRes.Errors {
		return nil, nil
	}

	var failed []bulkFailure
	for _, item := range bulkRes.Items {
		if item.Index.Status >= 400 {
			failed = append(failed, bulkFailure{
				ID:     item.Index.ID,
				Type:   item.Index.Error.Type,
				Reason: item.Index.Error.Reason,
			})
		}
	}
	return failed, nil
}

const indexMapping = `{
	"mappings": {
		"properties": {
			"id": {"type": "keyword"},
			"title": {
				"type": "text",
				"fields": {"keyword": {"type": "keyword", "ignore_above": 256}}
			},
			"uri": {"type": "keyword"},
			"author": {"type": "keyword"},
			"rank": {"type": "integer"},
			"points": {"type": "integer"},
			"comments": {"type": "integer"},
			"source": {"type": "keyword"},
			"collected_at": {"type": "date"}
		}
	}
}`

// EnsureIndex creates the index with the post mapping if it doesn't exist
func (i *ElasticsearchIndexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.indexName}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index error: %s", res.Status())
	}

	i.logger.Info().Str("index", i.indexName).Msg("Created index")
	return nil
}
