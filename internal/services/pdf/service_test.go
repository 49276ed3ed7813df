package pdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestRenderMarkdown(t *testing.T) {
	service := NewService(arbor.NewLogger(), "")

	tests := []struct {
		name     string
		markdown string
		title    string
	}{
		{
			name:     "headings and lists",
			markdown: "# Summary\n\nSome paragraph text.\n\n- Item 1\n- Item 2\n  - Nested",
			title:    "Attention Is All You Need",
		},
		{
			name:     "empty markdown",
			markdown: "",
			title:    "Empty",
		},
		{
			name:     "emphasis and code",
			markdown: "**Bold** and *italic* with `inline` code.\n\n```\nfunc main() {}\n```\n\n---\n\nAfter break.",
			title:    "",
		},
		{
			name:     "outside latin-1 without font",
			markdown: "## 概要\n\nこの論文は注意機構を提案する。",
			title:    "日本語",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdfBytes, err := service.RenderMarkdown(tt.markdown, tt.title)
			require.NoError(t, err)
			require.NotEmpty(t, pdfBytes)
			assert.Equal(t, "%PDF", string(pdfBytes[:4]))
		})
	}
}

func TestRenderMarkdown_Table(t *testing.T) {
	service := NewService(arbor.NewLogger(), "")

	markdown := `
## Results

| Model | BLEU | Params |
|-------|------|--------|
| Base  | 27.3 | 65M    |
| Big   | 28.4 | 213M   |

End of table.
`
	pdfBytes, err := service.RenderMarkdown(markdown, "Table Report")
	require.NoError(t, err)
	assert.Greater(t, len(pdfBytes), 500)
}

func TestRenderMarkdown_OutputIsReadable(t *testing.T) {
	service := NewService(arbor.NewLogger(), "")

	long := strings.Repeat("A long paragraph line that wraps across the page. ", 400)
	pdfBytes, err := service.RenderMarkdown("# Long\n\n"+long, "Long")
	require.NoError(t, err)

	info, err := Inspect(pdfBytes)
	require.NoError(t, err)
	assert.Greater(t, info.Pages, 1)
}

func TestRenderMarkdown_MissingFont(t *testing.T) {
	service := NewService(arbor.NewLogger(), "/nonexistent/font.ttf")

	_, err := service.RenderMarkdown("# Title", "Title")
	assert.Error(t, err)
}
