// Package title renames a paper note after the title published on its arXiv
// abstract page.
package title

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/arxiv"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/ternarybob/paperextractor/internal/interfaces"
	"github.com/ternarybob/paperextractor/internal/models"
)

var (
	// meta tag with name before content, and the reverse order
	citationNameFirst    = regexp.MustCompile(`(?i)<meta[^>]*name=["']citation_title["'][^>]*content=["']([^"']+)["'][^>]*>`)
	citationContentFirst = regexp.MustCompile(`(?i)<meta[^>]*content=["']([^"']+)["'][^>]*name=["']citation_title["'][^>]*>`)

	whitespacePattern  = regexp.MustCompile(`\s+`)
	forbiddenFileChars = regexp.MustCompile(`[\\/:*?"<>|]`)
)

// Service resolves and applies paper titles
type Service struct {
	vault  interfaces.Vault
	client *arxiv.Client
	logger arbor.ILogger
}

// NewService creates a title service
func NewService(vault interfaces.Vault, client *arxiv.Client, logger arbor.ILogger) *Service {
	return &Service{
		vault:  vault,
		client: client,
		logger: logger,
	}
}

// Resolve fetches the abstract page of arxivID, extracts citation_title and
// renames the note at notePath to "<title>.md" in the same folder. A note
// that already carries the title is left alone. An existing note at the
// destination aborts without touching anything.
func (s *Service) Resolve(ctx context.Context, notePath, arxivID string) (*models.TitleResult, error) {
	result := &models.TitleResult{
		ArxivID: arxivID,
		OldPath: notePath,
		NewPath: notePath,
	}

	resp, err := s.client.GetAbstractPage(ctx, arxivID)
	if err != nil {
		var httpErr *arxiv.HTTPError
		if errors.As(err, &httpErr) {
			result.HTTPStatus = httpErr.StatusCode
			return result, common.NewCodedError("TITLE_FETCH_FAILED",
				fmt.Sprintf("failed to fetch arXiv abs (status:%d)", httpErr.StatusCode), err)
		}
		return result, common.NewCodedError("TITLE_FETCH_FAILED", "failed to fetch arXiv abs", err)
	}
	result.HTTPStatus = resp.StatusCode

	raw, err := ExtractCitationTitle(resp.Body)
	if err != nil {
		return result, err
	}

	title := SanitizeTitle(raw)
	if title == "" {
		return result, common.Errorf("TITLE_INVALID", "title is empty after sanitization (raw %q)", raw)
	}
	result.Title = title

	newPath := path.Join(path.Dir(notePath), title+".md")
	result.NewPath = newPath

	if newPath == notePath {
		s.logger.Info().Str("note", notePath).Msg("Note already carries the paper title")
		return result, nil
	}

	exists, err := s.vault.Exists(ctx, newPath)
	if err != nil {
		return result, common.NewCodedError("TITLE_RENAME_FAILED", "failed to check destination", err)
	}
	if exists {
		return result, common.Errorf("NOTE_ALREADY_EXISTS", "target note already exists: %s", newPath)
	}

	if err := s.vault.Rename(ctx, notePath, newPath); err != nil {
		if errors.Is(err, interfaces.ErrAlreadyExists) {
			return result, common.NewCodedError("NOTE_ALREADY_EXISTS", "target note already exists: "+newPath, err)
		}
		return result, common.NewCodedError("TITLE_RENAME_FAILED", "failed to rename note", err)
	}

	result.Renamed = true
	s.logger.Info().
		Str("from", notePath).
		Str("to", newPath).
		Str("arxiv_id", arxivID).
		Msg("Renamed note to paper title")

	return result, nil
}

// ExtractCitationTitle returns the content of the citation_title meta tag.
// The page is parsed with goquery; malformed markup falls back to matching
// the tag in either attribute order.
func ExtractCitationTitle(page []byte) (string, error) {
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page)); err == nil {
		if content, ok := doc.Find(`meta[name="citation_title"]`).First().Attr("content"); ok && strings.TrimSpace(content) != "" {
			return content, nil
		}
	}

	for _, pattern := range []*regexp.Regexp{citationNameFirst, citationContentFirst} {
		if m := pattern.FindSubmatch(page); m != nil && len(m[1]) > 0 {
			return html.UnescapeString(string(m[1])), nil
		}
	}

	return "", common.Errorf("TITLE_NOT_FOUND", "citation_title not found")
}

// SanitizeTitle turns a paper title into a note base name: whitespace runs
// collapse to one space and characters forbidden in file names become "_".
func SanitizeTitle(input string) string {
	collapsed := strings.TrimSpace(whitespacePattern.ReplaceAllString(input, " "))
	return strings.TrimSpace(forbiddenFileChars.ReplaceAllString(collapsed, "_"))
}
