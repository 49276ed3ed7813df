package interfaces

// PDFService renders markdown documents to PDF
type PDFService interface {
	// RenderMarkdown converts markdown content to a PDF byte slice with title as document title
	RenderMarkdown(markdown, title string) ([]byte, error)
}
