package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultPageIndexHTTPTimeout bounds a single REST call
	DefaultPageIndexHTTPTimeout = 2 * time.Minute

	// DefaultPageIndexRateLimit is requests per second against the REST API
	DefaultPageIndexRateLimit = 5

	maxErrorBodyChars = 300
)

// NewPageIndexHTTPProvider creates a PageIndex provider using the REST API.
// httpClient may be nil.
func NewPageIndexHTTPProvider(apiKey string, options PageIndexOptions, httpClient *http.Client, logger arbor.ILogger) *PageIndexProvider {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultPageIndexHTTPTimeout}
	}
	options = options.withDefaults()

	backend := &httpBackend{
		baseURL:    strings.TrimRight(options.BaseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(DefaultPageIndexRateLimit), DefaultPageIndexRateLimit),
		attempts:   options.UploadAttempts,
		retryDelay: options.UploadRetryDelay,
	}
	return newPageIndexProvider(backend, options, logger)
}

type httpBackend struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	attempts   int
	retryDelay time.Duration
}

type uploadResponse struct {
	DocID string `json:"doc_id"`
}

type statusResponse struct {
	DocID          string `json:"doc_id"`
	Status         string `json:"status"`
	RetrievalReady bool   `json:"retrieval_ready"`
	Error          string `json:"error"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	DocID    string        `json:"doc_id"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (b *httpBackend) Transport() string { return TransportHTTP }

func (b *httpBackend) Close() error { return nil }

// Submit downloads the PDF and uploads it, retrying transient failures
func (b *httpBackend) Submit(ctx context.Context, documentURL string) (*DocumentHandle, error) {
	data, err := b.download(ctx, documentURL)
	if err != nil {
		return nil, err
	}

	filename := documentFilename(documentURL)

	var lastErr error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		docID, err := b.upload(ctx, filename, data)
		if err == nil {
			b.logger.Info().
				Str("doc_id", docID).
				Int("attempt", attempt).
				Int("bytes", len(data)).
				Msg("Uploaded document to PageIndex")
			return &DocumentHandle{
				ID:        docID,
				Name:      filename,
				SourceURL: documentURL,
				Status:    StatusPending,
				RawStatus: "uploaded",
			}, nil
		}
		lastErr = err

		if !IsTransientUploadError(err) || attempt == b.attempts {
			break
		}

		b.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", b.attempts).
			Dur("retry_delay", b.retryDelay).
			Msg("PageIndex upload failed, retrying")

		if err := sleepContext(ctx, b.retryDelay); err != nil {
			return nil, err
		}
	}

	if pe, ok := lastErr.(*ProviderError); ok {
		return nil, pe
	}
	return nil, providerError(ProviderPageIndex, PhaseUpload, "PAGEINDEX_UPLOAD_FAILED", 0, "", lastErr)
}

func (b *httpBackend) Status(ctx context.Context, handle *DocumentHandle) (*DocumentHandle, error) {
	endpoint := fmt.Sprintf("%s/doc/%s/", b.baseURL, url.PathEscape(handle.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, providerError(ProviderPageIndex, PhaseStatus, "PAGEINDEX_STATUS_FAILED", 0, "", err)
	}

	var resp statusResponse
	if err := b.doJSON(req, &resp, PhaseStatus, "PAGEINDEX_STATUS_FAILED"); err != nil {
		return nil, err
	}

	next := *handle
	next.RawStatus = resp.Status
	next.Message = resp.Error
	if resp.DocID != "" {
		next.ID = resp.DocID
	}
	switch {
	case resp.Status == "" && resp.RetrievalReady:
		next.Status = StatusReady
	default:
		next.Status = NormalizeStatus(resp.Status)
	}
	return &next, nil
}

func (b *httpBackend) Query(ctx context.Context, handle *DocumentHandle, query string) (string, error) {
	body, err := json.Marshal(chatRequest{
		DocID:    handle.ID,
		Messages: []chatMessage{{Role: "user", Content: query}},
		Stream:   false,
	})
	if err != nil {
		return "", providerError(ProviderPageIndex, PhaseQuery, "PAGEINDEX_QUERY_FAILED", 0, "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", providerError(ProviderPageIndex, PhaseQuery, "PAGEINDEX_QUERY_FAILED", 0, "", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp chatResponse
	if err := b.doJSON(req, &resp, PhaseQuery, "PAGEINDEX_QUERY_FAILED"); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", providerError(ProviderPageIndex, PhaseQuery, "PAGEINDEX_RESPONSE_INVALID", 0, "no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// download fetches the PDF that will be uploaded
func (b *httpBackend) download(ctx context.Context, documentURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, documentURL, nil)
	if err != nil {
		return nil, providerError(ProviderPageIndex, PhaseDownload, "PAGEINDEX_DOWNLOAD_FAILED", 0, "", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, providerError(ProviderPageIndex, PhaseDownload, "PAGEINDEX_DOWNLOAD_FAILED", 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, providerError(ProviderPageIndex, PhaseDownload, "PAGEINDEX_DOWNLOAD_FAILED", resp.StatusCode, "", nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providerError(ProviderPageIndex, PhaseDownload, "PAGEINDEX_DOWNLOAD_FAILED", 0, "read body", err)
	}
	return data, nil
}

// upload performs one multipart upload attempt
func (b *httpBackend) upload(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/doc/", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp uploadResponse
	if err := b.doJSON(req, &resp, PhaseUpload, "PAGEINDEX_UPLOAD_FAILED"); err != nil {
		return "", err
	}
	if resp.DocID == "" {
		return "", providerError(ProviderPageIndex, PhaseUpload, "PAGEINDEX_RESPONSE_INVALID", 0, "upload reply without doc_id", nil)
	}
	return resp.DocID, nil
}

// doJSON sends an authenticated request and decodes a JSON reply. Non-2xx
// statuses carry the status code; transport errors keep the *url.Error
// reachable through Unwrap.
func (b *httpBackend) doJSON(req *http.Request, result interface{}, phase Phase, code string) error {
	if err := b.limiter.Wait(req.Context()); err != nil {
		return providerError(ProviderPageIndex, phase, code, 0, "rate limit wait", err)
	}

	req.Header.Set("api_key", b.apiKey)
	req.Header.Set("Accept", "application/json")

	b.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("PageIndex API request")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return providerError(ProviderPageIndex, phase, code, 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return providerError(ProviderPageIndex, phase, code, resp.StatusCode, truncate(string(body), maxErrorBodyChars), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return providerError(ProviderPageIndex, phase, "PAGEINDEX_RESPONSE_INVALID", resp.StatusCode, "decode", err)
	}
	return nil
}

// documentFilename derives an upload filename ending in .pdf from the URL
func documentFilename(documentURL string) string {
	name := "document"
	if u, err := url.Parse(documentURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
