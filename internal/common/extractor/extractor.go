package extractor

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/project-tktt/hn-crawler/internal/domain"
)

// Extractor turns listing page bodies into validated posts
type Extractor interface {
	// CountCandidates returns the number of candidate rows on a page
	CountCandidates(body []byte) (int, error)

	// Extract appends the page's valid posts to buf, in page order, until buf is full
	Extract(body []byte, buf *domain.PostBuffer) (PageStats, error)
}

// PageStats summarizes one Extract call
type PageStats struct {
	Candidates int // candidate rows on the page
	Evaluated  int // rows examined before the buffer filled
	Accepted   int
	Rejected   int
}

// Selectors defines CSS selectors for a two-row listing layout
type Selectors struct {
	// Row marks a candidate row
	Row string

	// Primary row: title link (text + href) and rank marker
	TitleLink string
	Rank      string

	// Secondary row: score, author and the trailing comments link
	Score       string
	Author      string
	CommentLink string
}

// DefaultSelectors matches the Hacker News front page markup
func DefaultSelectors() Selectors {
	return Selectors{
		Row:         ".athing",
		TitleLink:   ".titleline > a, .storylink",
		Rank:        ".rank",
		Score:       ".score",
		Author:      ".hnuser",
		CommentLink: "a",
	}
}

// RowPair is the two-row grouping a single post is read from
type RowPair struct {
	Primary   *goquery.Selection
	Secondary *goquery.Selection
}

// PairFunc builds the pair for a candidate row
type PairFunc func(row *goquery.Selection) RowPair

// NextSibling pairs a candidate row with the element right after it
func NextSibling(row *goquery.Selection) RowPair {
	return RowPair{Primary: row, Secondary: row.Next()}
}
