// Package fetch downloads a paper's HTML and PDF into the folder next to its note.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/arxiv"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/ternarybob/paperextractor/internal/interfaces"
	"github.com/ternarybob/paperextractor/internal/models"
	"github.com/ternarybob/paperextractor/internal/notes"
	"github.com/ternarybob/paperextractor/internal/services/pdf"
)

// Service saves arXiv artifacts into the vault
type Service struct {
	vault  interfaces.Vault
	client *arxiv.Client
	logger arbor.ILogger
}

// NewService creates a fetch service
func NewService(vault interfaces.Vault, client *arxiv.Client, logger arbor.ILogger) *Service {
	return &Service{
		vault:  vault,
		client: client,
		logger: logger,
	}
}

// Fetch downloads the HTML and PDF renditions of arxivID into
// "<parent>/<noteBase>/". Each artifact succeeds or fails on its own; an
// error is returned only when neither could be saved. The saved PDF is
// parsed to report its page count, which never fails the step.
func (s *Service) Fetch(ctx context.Context, notePath, arxivID string) (*models.FetchResult, error) {
	folder := notes.AttachmentFolder(notePath)
	result := &models.FetchResult{
		ArxivID:    arxivID,
		FolderPath: folder,
	}

	if err := s.ensureFolder(ctx, folder); err != nil {
		return result, err
	}

	result.HTML = s.save(ctx, arxiv.HTMLURL(s.client.BaseURL(), arxivID), notes.HTMLPath(notePath, arxivID), func(data []byte) error {
		return s.vault.Write(ctx, notes.HTMLPath(notePath, arxivID), string(data))
	})

	var pdfData []byte
	result.PDF = s.save(ctx, arxiv.PDFURL(s.client.BaseURL(), arxivID), notes.PDFPath(notePath, arxivID), func(data []byte) error {
		pdfData = data
		return s.vault.WriteBytes(ctx, notes.PDFPath(notePath, arxivID), data)
	})

	if result.PDF.OK() {
		info, err := pdf.Inspect(pdfData)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", result.PDF.Path).Msg("Saved PDF could not be parsed")
		} else {
			result.PDFPages = info.Pages
			result.PDFValid = true
		}
	}

	if !result.HTML.OK() && !result.PDF.OK() {
		return result, common.Errorf("FETCH_FAILED", "Failed to fetch arXiv content (html:%d, pdf:%d)",
			result.HTML.HTTPStatus, result.PDF.HTTPStatus)
	}

	s.logger.Info().
		Str("folder", folder).
		Bool("html", result.HTML.OK()).
		Bool("pdf", result.PDF.OK()).
		Int("pdf_pages", result.PDFPages).
		Msg("Fetched arXiv content")

	return result, nil
}

func (s *Service) ensureFolder(ctx context.Context, folder string) error {
	info, err := s.vault.Stat(ctx, folder)
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		if err := s.vault.CreateFolder(ctx, folder); err != nil {
			return common.NewCodedError("FETCH_FOLDER_CREATE_FAILED", "failed to create "+folder, err)
		}
		return nil
	case err != nil:
		return common.NewCodedError("FETCH_FOLDER_CREATE_FAILED", "failed to inspect "+folder, err)
	case !info.IsDir:
		return common.Errorf("FETCH_DEST_NOT_FOLDER", "a file already exists at %s", folder)
	}
	return nil
}

// save downloads url and hands the body to write. Failures are captured in
// the returned status rather than propagated.
func (s *Service) save(ctx context.Context, url, dest string, write func([]byte) error) models.FetchStatus {
	status := models.FetchStatus{URL: url, Path: dest}

	resp, err := s.client.Get(ctx, url)
	if err != nil {
		var httpErr *arxiv.HTTPError
		if errors.As(err, &httpErr) {
			status.HTTPStatus = httpErr.StatusCode
		}
		status.Error = err.Error()
		s.logger.Warn().Err(err).Str("url", url).Int("status", status.HTTPStatus).Msg("Download failed")
		return status
	}
	status.HTTPStatus = resp.StatusCode

	if err := write(resp.Body); err != nil {
		status.Error = fmt.Sprintf("failed to write %s: %v", dest, err)
		s.logger.Warn().Err(err).Str("path", dest).Msg("Failed to save download")
		return status
	}

	status.Bytes = len(resp.Body)
	return status
}
