package fetcher

import (
	"context"
	"fmt"
	"time"
)

// Fetcher retrieves a document over the network
type Fetcher interface {
	// Fetch issues a GET for url. Non-2xx responses are returned as *StatusError.
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Page is a successfully fetched document
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// StatusError reports a response outside the 2xx range
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// Config holds transport settings
type Config struct {
	UserAgent string
	ProxyURL  string
	// Timeout of zero keeps the transport default
	Timeout time.Duration
}
