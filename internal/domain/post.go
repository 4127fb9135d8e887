package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Post is one validated listing entry.
// Only the extractor builds Posts, and only from fully valid candidates.
type Post struct {
	Title    string `json:"title"`
	URI      string `json:"uri"`
	Author   string `json:"author"`
	Rank     int    `json:"rank"`
	Points   int    `json:"points"`
	Comments int    `json:"comments"`
}

// CollectedPost wraps a Post with delivery metadata for the queue and storage
type CollectedPost struct {
	Post
	ID          string    `json:"id"`
	Source      Source    `json:"source"`
	CollectedAt time.Time `json:"collected_at"`
}

// NewCollectedPost stamps p with a stable ID derived from its URI
func NewCollectedPost(p Post, source Source, at time.Time) *CollectedPost {
	return &CollectedPost{
		Post:        p,
		ID:          PostID(p.URI),
		Source:      source,
		CollectedAt: at,
	}
}

// PostID hashes a URI into a 32 hex char identifier
func PostID(uri string) string {
	h := sha256.Sum256([]byte(uri))
	return hex.EncodeToString(h[:16])
}

// Source represents a listing source
type Source string

const (
	SourceHackerNews Source = "hackernews"
)
