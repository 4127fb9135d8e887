package extractor

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/project-tktt/hn-crawler/internal/common/cleaner"
	"github.com/project-tktt/hn-crawler/internal/domain"
)

// MaxTextLength bounds title and author length in characters
const MaxTextLength = 256

// URIPredicate decides whether a scraped link is a well formed URI
type URIPredicate func(uri string) bool

// candidate holds the raw text of one row pair before validation
type candidate struct {
	title    string
	uri      string
	author   string
	rank     string
	points   string
	comments string
}

func readCandidate(pair RowPair, sel Selectors, clean *cleaner.Cleaner) candidate {
	link := pair.Primary.Find(sel.TitleLink).First()
	href, _ := link.Attr("href")

	return candidate{
		title:    markupText(link, clean),
		uri:      strings.TrimSpace(href),
		author:   markupText(pair.Secondary.Find(sel.Author).First(), clean),
		rank:     rankToken(cleanText(pair.Primary.Find(sel.Rank).First())),
		points:   scoreToken(cleanText(pair.Secondary.Find(sel.Score).First())),
		comments: commentsToken(cleanText(pair.Secondary.Find(sel.CommentLink).Last())),
	}
}

// cleanText returns the element text with non-breaking spaces folded and ends trimmed
func cleanText(s *goquery.Selection) string {
	return strings.TrimSpace(strings.ReplaceAll(s.Text(), "\u00a0", " "))
}

// markupText strips the inner HTML of s down to text.
// Escaped markup in the source, like "&lt;div&gt;", survives as literal text.
func markupText(s *goquery.Selection, clean *cleaner.Cleaner) string {
	fragment, err := s.Html()
	if err != nil {
		return cleanText(s)
	}
	return clean.CleanToText(fragment)
}

// rankToken drops the "." that follows the rank number
func rankToken(s string) string {
	return strings.TrimSuffix(s, ".")
}

// scoreToken keeps the number in "123 points"
func scoreToken(s string) string {
	token, _, _ := strings.Cut(s, " ")
	return token
}

// commentsToken keeps the number in "12 comments"; "discuss" means none yet
func commentsToken(s string) string {
	if s == "discuss" {
		return "0"
	}
	s = strings.TrimSuffix(s, "comments")
	s = strings.TrimSuffix(s, "comment")
	return strings.TrimSpace(s)
}

// validate builds a Post from c, or returns the name of the first failing field
func validate(c candidate, validURI URIPredicate) (domain.Post, string) {
	if !ValidText(c.title) {
		return domain.Post{}, "title"
	}
	if !validURI(c.uri) {
		return domain.Post{}, "uri"
	}
	if !ValidText(c.author) {
		return domain.Post{}, "author"
	}

	rank, ok := domain.NonNegativeInt(domain.ParseNumber(c.rank))
	if !ok {
		return domain.Post{}, "rank"
	}
	points, ok := domain.NonNegativeInt(domain.ParseNumber(c.points))
	if !ok {
		return domain.Post{}, "points"
	}
	comments, ok := domain.NonNegativeInt(domain.ParseNumber(c.comments))
	if !ok {
		return domain.Post{}, "comments"
	}

	return domain.Post{
		Title:    c.title,
		URI:      c.uri,
		Author:   c.author,
		Rank:     rank,
		Points:   points,
		Comments: comments,
	}, ""
}

// ValidText reports whether s is a non-empty title or author within MaxTextLength
func ValidText(s string) bool {
	return s != "" && utf8.RuneCountInString(s) <= MaxTextLength
}

var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*$`)

// IsWellFormedURI accepts absolute URIs with a valid scheme and no whitespace.
// http and https URIs also need a host.
func IsWellFormedURI(uri string) bool {
	if uri == "" {
		return false
	}
	for _, r := range uri {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}

	u, err := url.Parse(uri)
	if err != nil || !schemePattern.MatchString(u.Scheme) {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	}
	return u.Opaque != "" || u.Host != "" || u.Path != ""
}
