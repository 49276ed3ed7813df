package app

import (
	"context"
	"path"

	"github.com/ternarybob/paperextractor/internal/arxiv"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/ternarybob/paperextractor/internal/notes"
)

// ExportSummary renders the note's summary block to PDF and saves it as
// "<folder>/<id>_summary.pdf", or at outPath when given. Returns the
// vault path written.
func (a *App) ExportSummary(ctx context.Context, notePath, outPath string) (string, error) {
	noteText, err := a.Vault.Read(ctx, notePath)
	if err != nil {
		return "", common.NewCodedError("NOTE_NOT_FOUND", "Note not found: "+notePath, err)
	}

	summaryText, ok := notes.ExtractSummary(noteText)
	if !ok || summaryText == "" {
		return "", common.Errorf("SUMMARY_BLOCK_MISSING", "The note has no generated summary.")
	}

	if outPath == "" {
		sourceURL, found := notes.FindSourceURL(noteText)
		if !found {
			return "", common.Errorf("URL_NOT_FOUND", "No arXiv URL found in the note.")
		}
		arxivID, err := arxiv.ParseURL(sourceURL)
		if err != nil {
			return "", common.NewCodedError("URL_INVALID", "Invalid arXiv URL.", err)
		}
		outPath = path.Join(notes.AttachmentFolder(notePath), arxivID+"_summary.pdf")
	}

	title := path.Base(notePath)
	title = title[:len(title)-len(path.Ext(title))]

	data, err := a.PDFService.RenderMarkdown(summaryText, title)
	if err != nil {
		return "", common.NewCodedError("EXPORT_RENDER_FAILED", "Failed to render summary PDF.", err)
	}
	if err := a.Vault.WriteBytes(ctx, outPath, data); err != nil {
		return "", common.NewCodedError("EXPORT_WRITE_FAILED", "Failed to write summary PDF.", err)
	}

	a.Logger.Info().
		Str("note", notePath).
		Str("path", outPath).
		Int("bytes", len(data)).
		Msg("Summary exported to PDF")

	return outPath, nil
}
