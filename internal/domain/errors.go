package domain

import "fmt"

// ErrorKind classifies a failed collection run
type ErrorKind int

const (
	KindInvalidConfiguration ErrorKind = iota + 1
	KindSourceUnreachable
	KindNoPostsFound
	KindInsufficientResults
)

// String returns a stable label for logs and metrics
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidConfiguration:
		return "invalid_configuration"
	case KindSourceUnreachable:
		return "source_unreachable"
	case KindNoPostsFound:
		return "no_posts_found"
	case KindInsufficientResults:
		return "insufficient_results"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching by kind
var (
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
	ErrSourceUnreachable    = &Error{Kind: KindSourceUnreachable}
	ErrNoPostsFound         = &Error{Kind: KindNoPostsFound}
	ErrInsufficientResults  = &Error{Kind: KindInsufficientResults}
)

// Error is the terminal failure of a collection run.
// Context fields are kept structured; Error() renders the default message.
type Error struct {
	Kind ErrorKind

	// URL is the location being fetched (SourceUnreachable, NoPostsFound)
	URL string

	// Found and Required are the accumulated and target counts (InsufficientResults)
	Found    int
	Required int

	// Err is the underlying transport failure, if any
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidConfiguration:
		return "Number of posts should be a positive integer <= 100"
	case KindSourceUnreachable:
		return fmt.Sprintf("%v while hitting URL: %s", e.Err, e.URL)
	case KindNoPostsFound:
		return fmt.Sprintf("No posts found in HackerNews with url: %s", e.URL)
	case KindInsufficientResults:
		return fmt.Sprintf("Not enough valid posts. Total valid posts found %d, required %d", e.Found, e.Required)
	default:
		return fmt.Sprintf("collection failed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// SourceUnreachable wraps a transport failure for url
func SourceUnreachable(url string, err error) error {
	return &Error{Kind: KindSourceUnreachable, URL: url, Err: err}
}

// NoPostsFound reports an empty probe of url
func NoPostsFound(url string) error {
	return &Error{Kind: KindNoPostsFound, URL: url}
}

// InsufficientResults reports exhaustion before the target was met
func InsufficientResults(found, required int) error {
	return &Error{Kind: KindInsufficientResults, Found: found, Required: required}
}
