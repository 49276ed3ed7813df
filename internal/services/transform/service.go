package transform

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/interfaces"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// noiseSelectors are removed from paper HTML before it is sent to a model
const noiseSelectors = "script, style, noscript, nav, header.ltx_page_header, footer, .ltx_page_footer, .package-alerts"

// Service turns saved paper HTML into prompt content
type Service struct {
	logger arbor.ILogger
}

var _ interfaces.TransformService = (*Service)(nil)

// NewService creates a new transform service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// PaperContent strips page chrome from html and converts the remaining
// article to markdown. baseURL resolves relative links.
func (s *Service) PaperContent(html string, baseURL string) (string, error) {
	if err := ValidateHTML(html); err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find(noiseSelectors).Remove()

	selection := doc.Find("article").First()
	if selection.Length() == 0 {
		selection = doc.Find("body")
	}

	cleaned, err := goquery.OuterHtml(selection)
	if err != nil {
		return "", fmt.Errorf("failed to render cleaned HTML: %w", err)
	}

	return s.HTMLToMarkdown(cleaned, baseURL), nil
}

// HTMLToMarkdown converts HTML content to markdown, falling back to plain
// text when conversion fails or yields nothing
func (s *Service) HTMLToMarkdown(html string, baseURL string) string {
	if html == "" {
		return ""
	}

	s.logger.Debug().
		Int("html_length", len(html)).
		Str("base_url", baseURL).
		Msg("Converting HTML to markdown")

	converter := md.NewConverter(baseURL, true, nil)
	converted, err := converter.ConvertString(html)
	if err != nil {
		s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, using fallback")
		return stripHTMLTags(html)
	}

	if strings.TrimSpace(converted) == "" {
		s.logger.Warn().
			Int("html_length", len(html)).
			Msg("HTML to markdown conversion produced empty output, applying fallback")
		return stripHTMLTags(html)
	}

	s.logger.Debug().
		Int("markdown_length", len(converted)).
		Int("html_length", len(html)).
		Msg("HTML to markdown conversion successful")

	return converted
}

// Truncate cuts content to at most maxChars runes. maxChars <= 0 means no limit.
func Truncate(content string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(content) <= maxChars {
		return content, false
	}
	runes := []rune(content)
	return string(runes[:maxChars]), true
}

// stripHTMLTags removes tags and collapses whitespace
func stripHTMLTags(htmlStr string) string {
	stripped := tagPattern.ReplaceAllString(htmlStr, "")
	cleaned := spacePattern.ReplaceAllString(stripped, " ")

	cleaned = strings.ReplaceAll(cleaned, "&amp;", "&")
	cleaned = strings.ReplaceAll(cleaned, "&lt;", "<")
	cleaned = strings.ReplaceAll(cleaned, "&gt;", ">")
	cleaned = strings.ReplaceAll(cleaned, "&quot;", "\"")
	cleaned = strings.ReplaceAll(cleaned, "&#39;", "'")
	cleaned = strings.ReplaceAll(cleaned, "&nbsp;", " ")

	return strings.TrimSpace(cleaned)
}

// ValidateHTML checks if the input looks like HTML
func ValidateHTML(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("empty content")
	}
	if !strings.Contains(trimmed, "<") {
		return fmt.Errorf("content does not appear to be HTML")
	}
	return nil
}
