// Package arxiv parses arXiv paper URLs and downloads paper artifacts.
package arxiv

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// CanonicalBaseURL is the origin every canonical paper URL is built on
const CanonicalBaseURL = "https://arxiv.org"

// ErrInvalidURL is returned for URLs that are not arXiv abs/pdf/html links
var ErrInvalidURL = errors.New("not an arXiv paper URL")

var (
	paperPathPattern = regexp.MustCompile(`^/(abs|pdf|html)/(.+)$`)
	paperIDPattern   = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)
	urlInTextPattern = regexp.MustCompile(`https?://(?:www\.)?arxiv\.org/(?:abs|pdf|html)/[^\s)\]>"']+`)
)

// ParseURL extracts the paper id (with optional version) from an arXiv
// abs, pdf or html URL. Trailing ".pdf"/".html" and slashes are ignored.
func ParseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}

	host := strings.ToLower(u.Hostname())
	if host != "arxiv.org" && host != "www.arxiv.org" {
		return "", fmt.Errorf("%w: unexpected host %q", ErrInvalidURL, u.Hostname())
	}

	matches := paperPathPattern.FindStringSubmatch(u.Path)
	if matches == nil {
		return "", fmt.Errorf("%w: unexpected path %q", ErrInvalidURL, u.Path)
	}

	id := strings.TrimSuffix(matches[2], "/")
	id = strings.TrimSuffix(id, ".pdf")
	id = strings.TrimSuffix(id, ".html")

	if !IsValidID(id) {
		return "", fmt.Errorf("%w: invalid paper id %q", ErrInvalidURL, id)
	}
	return id, nil
}

// IsValidID reports whether id is a new-style arXiv identifier (YYMM.NNNNN[vN])
func IsValidID(id string) bool {
	return paperIDPattern.MatchString(id)
}

// FindURL returns the first arXiv paper URL appearing in text
func FindURL(text string) (string, bool) {
	match := urlInTextPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return strings.TrimRight(match, ".,;"), true
}

// AbsURL returns the abstract page URL for id under base
func AbsURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/abs/" + id
}

// HTMLURL returns the HTML rendition URL for id under base
func HTMLURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/html/" + id
}

// PDFURL returns the PDF URL for id under base
func PDFURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/pdf/" + id
}
