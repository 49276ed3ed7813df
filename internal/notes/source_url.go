package notes

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/ternarybob/paperextractor/internal/arxiv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SourceHeading is the level-6 heading label that carries a note's paper URL
const SourceHeading = "url_01:"

var sourceHeadingPattern = regexp.MustCompile(`^url_01:\s*(\S+)?\s*$`)

// FindSourceURL locates the paper URL of a note. It prefers the
// "###### url_01: <url>" heading (URL inline or on the next non-empty
// block) and falls back to the first arXiv URL anywhere in the note.
func FindSourceURL(noteText string) (string, bool) {
	if url, ok := findHeadingURL([]byte(noteText)); ok {
		return url, true
	}
	return arxiv.FindURL(noteText)
}

func findHeadingURL(source []byte) (string, bool) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var found string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || found != "" {
			return ast.WalkContinue, nil
		}

		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 6 {
			return ast.WalkContinue, nil
		}

		matches := sourceHeadingPattern.FindStringSubmatch(nodeText(heading, source))
		if matches == nil {
			return ast.WalkSkipChildren, nil
		}

		if matches[1] != "" {
			found = matches[1]
			return ast.WalkStop, nil
		}

		// URL on the next non-empty line after the heading
		if lines := heading.Lines(); lines.Len() > 0 {
			rest := source[lines.At(lines.Len()-1).Stop:]
			if nl := bytes.IndexByte(rest, '\n'); nl >= 0 {
				if line := firstLine(string(rest[nl+1:])); line != "" {
					found = strings.Fields(line)[0]
				}
			}
		}
		return ast.WalkStop, nil
	})

	return found, found != ""
}

// nodeText returns the raw source lines of a block node
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		buf.Write(segment.Value(source))
	}
	return strings.TrimSpace(buf.String())
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
