package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	coreFont    = "Arial"
	unicodeFont = "SummaryUnicode"
	bodySize    = 9.0
	lineHeight  = 5.0
)

// Service renders summary markdown into PDF documents
type Service struct {
	logger   arbor.ILogger
	fontPath string
}

var _ interfaces.PDFService = (*Service)(nil)

// NewService creates a PDF service. fontPath optionally names a UTF-8 TrueType
// font; without one the core Latin-1 font is used and characters outside
// Latin-1 cannot be drawn.
func NewService(logger arbor.ILogger, fontPath string) *Service {
	return &Service{
		logger:   logger,
		fontPath: fontPath,
	}
}

// RenderMarkdown converts markdown into a PDF byte slice
func (s *Service) RenderMarkdown(markdown, title string) ([]byte, error) {
	s.logger.Debug().
		Int("markdown_len", len(markdown)).
		Str("title", title).
		Msg("Rendering markdown to PDF")

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	doc.SetAutoPageBreak(true, 15)
	doc.SetTitle(title, true)
	doc.SetCreator("paperextractor", true)

	font := coreFont
	translate := func(s string) string { return s }
	if s.fontPath != "" {
		for _, style := range []string{"", "B", "I", "BI"} {
			doc.AddUTF8Font(unicodeFont, style, s.fontPath)
		}
		font = unicodeFont
	} else {
		translate = doc.UnicodeTranslatorFromDescriptor("")
		if !isLatin1(markdown + title) {
			s.logger.Warn().Msg("Summary contains characters outside Latin-1; set export.font_path to a UTF-8 font")
		}
	}

	doc.AddPage()

	source := []byte(markdown)
	root := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)).
		Parser().Parse(text.NewReader(source))

	r := &renderer{
		pdf:       doc,
		source:    source,
		font:      font,
		translate: translate,
	}

	if title != "" {
		doc.SetFont(font, "B", 14)
		doc.MultiCell(0, 7, translate(title), "", "L", false)
		doc.Ln(3)
	}
	doc.SetFont(font, "", bodySize)

	if err := ast.Walk(root, r.walk); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().Int("pdf_size", buf.Len()).Msg("PDF generated")
	return buf.Bytes(), nil
}

type renderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	translate func(string) string
	bold      bool
	italic    bool
	listLevel int
}

func (r *renderer) setFont(size float64) {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, size)
}

func (r *renderer) write(s string) {
	r.pdf.Write(lineHeight, r.translate(s))
}

func (r *renderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			r.bold = true
			r.setFont(headingSize(node.Level))
		} else {
			r.bold = false
			r.setFont(bodySize)
			r.pdf.Ln(7)
		}

	case *ast.Paragraph:
		if !entering && r.listLevel == 0 {
			r.pdf.Ln(7)
		}

	case *ast.Text:
		if entering {
			r.write(string(node.Segment.Value(r.source)))
			if node.SoftLineBreak() {
				r.write(" ")
			}
			if node.HardLineBreak() {
				r.pdf.Ln(lineHeight)
			}
		}

	case *ast.String:
		if entering {
			r.write(string(node.Value))
		}

	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.setFont(bodySize)

	case *ast.CodeSpan:
		if entering {
			var sb strings.Builder
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					sb.Write(t.Segment.Value(r.source))
				}
			}
			r.pdf.SetFont("Courier", "", bodySize)
			r.write(sb.String())
			r.setFont(bodySize)
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			r.codeBlock(n.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.List:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(7)
			}
		}

	case *ast.ListItem:
		if entering {
			if r.pdf.GetX() > 16 {
				r.pdf.Ln(lineHeight)
			}
			r.pdf.SetX(15 + float64(r.listLevel-1)*5)
			r.write("- ")
		}

	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(2)
		}

	case *extast.Table:
		if entering {
			r.table(node)
		}
		return ast.WalkSkipChildren, nil
	}

	return ast.WalkContinue, nil
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 14
	case 2:
		return 12
	case 3:
		return 11
	default:
		return 10
	}
}

func (r *renderer) codeBlock(lines *text.Segments) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Courier", "", 8)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(r.source)), "\n")
		r.pdf.MultiCell(0, 4, r.translate(line), "", "L", true)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.setFont(bodySize)
	r.pdf.Ln(2)
}

// table renders each row as one wrapped line with cells separated by " | "
func (r *renderer) table(n *extast.Table) {
	r.pdf.Ln(2)
	header := true
	var visit func(node ast.Node)
	visit = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch row := child.(type) {
			case *extast.TableHeader:
				visit(row)
				header = false
			case *extast.TableRow:
				r.tableRow(row, header)
			}
		}
	}
	visit(n)
	r.setFont(bodySize)
	r.pdf.Ln(2)
}

func (r *renderer) tableRow(row ast.Node, header bool) {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		cells = append(cells, strings.TrimSpace(string(cell.Text(r.source))))
	}
	style := ""
	if header {
		style = "B"
	}
	r.pdf.SetFont(r.font, style, 8)
	r.pdf.MultiCell(0, 4, r.translate(strings.Join(cells, " | ")), "B", "L", false)
}

func isLatin1(s string) bool {
	for _, c := range s {
		if c > unicode.MaxLatin1 {
			return false
		}
	}
	return true
}
