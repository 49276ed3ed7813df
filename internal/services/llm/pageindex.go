package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// DocumentStatus is the normalized processing state of an ingested document
type DocumentStatus string

const (
	StatusPending DocumentStatus = "pending"
	StatusReady   DocumentStatus = "ready"
	StatusFailed  DocumentStatus = "failed"
	StatusUnknown DocumentStatus = "unknown"
)

// NormalizeStatus folds the status vocabularies of both transports into
// DocumentStatus. Unrecognized values map to StatusUnknown.
func NormalizeStatus(raw string) DocumentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ready", "completed", "complete", "done":
		return StatusReady
	case "pending", "processing", "queued", "running":
		return StatusPending
	case "failed", "error":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// DocumentHandle identifies a document on the PageIndex side for the
// duration of one Summarize call.
type DocumentHandle struct {
	ID        string
	Name      string
	SourceURL string
	Status    DocumentStatus
	RawStatus string
	Message   string
}

// documentBackend is one PageIndex transport
type documentBackend interface {
	Submit(ctx context.Context, documentURL string) (*DocumentHandle, error)
	Status(ctx context.Context, handle *DocumentHandle) (*DocumentHandle, error)
	Query(ctx context.Context, handle *DocumentHandle, query string) (string, error)
	Transport() string
	Close() error
}

// PageIndexProvider summarizes a paper by letting PageIndex ingest the PDF
// and answering a fixed question over it. The system prompt and user content
// of the request are not used.
type PageIndexProvider struct {
	backend documentBackend
	options PageIndexOptions
	logger  arbor.ILogger
	now     func() time.Time
}

func newPageIndexProvider(backend documentBackend, options PageIndexOptions, logger arbor.ILogger) *PageIndexProvider {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &PageIndexProvider{
		backend: backend,
		options: options.withDefaults(),
		logger:  logger,
		now:     time.Now,
	}
}

func (p *PageIndexProvider) Kind() ProviderKind { return ProviderPageIndex }

func (p *PageIndexProvider) Model() string { return "pageindex-" + p.backend.Transport() }

func (p *PageIndexProvider) Close() error { return p.backend.Close() }

// Summarize runs ingest, poll-until-ready and query
func (p *PageIndexProvider) Summarize(ctx context.Context, request *SummarizeRequest) (string, error) {
	if request == nil || strings.TrimSpace(request.DocumentURL) == "" {
		return "", providerError(ProviderPageIndex, PhaseRequest, "PAGEINDEX_PDF_URL_REQUIRED", 0, "", nil)
	}

	p.logger.Info().
		Str("transport", p.backend.Transport()).
		Str("document_url", request.DocumentURL).
		Msg("Submitting document to PageIndex")

	handle, err := p.backend.Submit(ctx, request.DocumentURL)
	if err != nil {
		return "", err
	}

	handle, err = p.waitUntilReady(ctx, handle)
	if err != nil {
		return "", err
	}

	answer, err := p.backend.Query(ctx, handle, p.options.Query)
	if err != nil {
		return "", err
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", providerError(ProviderPageIndex, PhaseQuery, "PAGEINDEX_RESPONSE_INVALID", 0, "empty answer", nil)
	}
	return answer, nil
}

// waitUntilReady polls at a fixed interval until the document is ready,
// failed, or the poll budget is exhausted.
func (p *PageIndexProvider) waitUntilReady(ctx context.Context, handle *DocumentHandle) (*DocumentHandle, error) {
	interval := p.options.PollInterval
	deadline := p.now().Add(p.options.PollTimeout)
	checks := 0

	for {
		switch handle.Status {
		case StatusReady:
			if handle.ID == "" {
				return nil, providerError(ProviderPageIndex, PhaseStatus, "PAGEINDEX_RESPONSE_INVALID", 0, "document ready without an id", nil)
			}
			p.logger.Info().
				Str("doc_id", handle.ID).
				Int("status_checks", checks).
				Msg("PageIndex document ready")
			return handle, nil

		case StatusFailed:
			detail := handle.Message
			if detail == "" {
				detail = "status=" + handle.RawStatus
			}
			return nil, providerError(ProviderPageIndex, PhaseProcessing, "PAGEINDEX_PROCESSING_FAILED", 0, detail, nil)

		case StatusUnknown:
			p.logger.Warn().
				Str("doc_id", handle.ID).
				Str("raw_status", handle.RawStatus).
				Msg("Unrecognized PageIndex status, treating as pending")
		}

		if p.now().Add(interval).After(deadline) {
			detail := fmt.Sprintf("document not ready after %s (docId=%s); remote processing may still be running", p.options.PollTimeout, handle.ID)
			return nil, providerError(ProviderPageIndex, PhaseTimeout, "PAGEINDEX_TIMEOUT", 0, detail, nil)
		}

		if err := sleepContext(ctx, interval); err != nil {
			return nil, err
		}

		next, err := p.backend.Status(ctx, handle)
		if err != nil {
			return nil, err
		}
		checks++

		p.logger.Debug().
			Str("doc_id", next.ID).
			Str("status", string(next.Status)).
			Int("check", checks).
			Msg("PageIndex status check")

		handle = next
	}
}
