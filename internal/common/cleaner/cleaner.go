package cleaner

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/project-tktt/hn-crawler/internal/domain"
)

// Cleaner turns scraped markup into plain text using Bluemonday
type Cleaner struct {
	policy *bluemonday.Policy
}

// NewCleaner creates a cleaner that strips all HTML
func NewCleaner() *Cleaner {
	return &Cleaner{policy: bluemonday.StrictPolicy()}
}

// CleanToText removes all HTML from an inner-HTML fragment and collapses whitespace.
// Sanitize escapes entities, so the result is unescaped back to plain text.
func (c *Cleaner) CleanToText(fragment string) string {
	return NormalizeText(html.UnescapeString(c.policy.Sanitize(fragment)))
}

// NormalizeText collapses runs of whitespace, non-breaking spaces included, and trims the ends.
// s is plain text: angle brackets are kept as written.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanPost returns a copy of post with its free-text fields normalized.
// Post text was decoded from markup at extraction, so no HTML is stripped here.
func (c *Cleaner) CleanPost(post *domain.CollectedPost) *domain.CollectedPost {
	cleaned := *post
	cleaned.Title = NormalizeText(post.Title)
	cleaned.Author = NormalizeText(post.Author)
	return &cleaned
}
