package interfaces

// TransformService reduces saved paper HTML to the content sent to providers
type TransformService interface {
	// PaperContent strips page chrome from a paper HTML page and returns markdown
	// baseURL is used for resolving relative links
	PaperContent(html string, baseURL string) (string, error)

	// HTMLToMarkdown converts HTML content to markdown
	HTMLToMarkdown(html string, baseURL string) string
}
