package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestPaperContent_StripsChrome(t *testing.T) {
	service := NewService(arbor.NewLogger())

	html := `<html><head><style>.x{color:red}</style><script>track()</script></head>
<body><nav>Back to arXiv</nav>
<article><h1>Attention Is All You Need</h1><p>We propose the <b>Transformer</b>.</p></article>
<footer>arXiv footer</footer></body></html>`

	content, err := service.PaperContent(html, "https://arxiv.org")
	require.NoError(t, err)

	assert.Contains(t, content, "# Attention Is All You Need")
	assert.Contains(t, content, "**Transformer**")
	assert.NotContains(t, content, "track()")
	assert.NotContains(t, content, "color:red")
	assert.NotContains(t, content, "Back to arXiv")
	assert.NotContains(t, content, "arXiv footer")
}

func TestPaperContent_NoArticleUsesBody(t *testing.T) {
	service := NewService(arbor.NewLogger())

	content, err := service.PaperContent("<html><body><p>Plain body</p></body></html>", "")
	require.NoError(t, err)
	assert.Contains(t, content, "Plain body")
}

func TestPaperContent_RejectsNonHTML(t *testing.T) {
	service := NewService(arbor.NewLogger())

	_, err := service.PaperContent("   ", "")
	assert.Error(t, err)

	_, err = service.PaperContent("just text", "")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	out, cut := Truncate("日本語テキスト", 3)
	assert.True(t, cut)
	assert.Equal(t, "日本語", out)

	out, cut = Truncate("short", 10)
	assert.False(t, cut)
	assert.Equal(t, "short", out)

	out, cut = Truncate("unlimited", 0)
	assert.False(t, cut)
	assert.Equal(t, "unlimited", out)
}

func TestStripHTMLTags(t *testing.T) {
	assert.Equal(t, "a & b c", stripHTMLTags("<p>a &amp; b</p>\n\n<span>c</span>"))
}
