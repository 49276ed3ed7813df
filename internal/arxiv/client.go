package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultRequestInterval spaces requests to arxiv.org.
	DefaultRequestInterval = time.Second

	// DefaultUserAgent identifies the client to arxiv.org.
	DefaultUserAgent = "paperextractor"

	// maxBodyBytes caps a single download.
	maxBodyBytes = 200 * 1024 * 1024
)

// Client downloads arXiv pages and papers.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRequestInterval sets the minimum spacing between requests. Zero disables limiting.
func WithRequestInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// NewClient creates a new arXiv client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   CanonicalBaseURL,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(DefaultRequestInterval), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the origin requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("arxiv request failed: status %d (url: %s)", e.StatusCode, e.URL)
}

// Response is a fully read successful response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Get downloads url. Non-2xx statuses return *HTTPError.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	if c.logger != nil {
		c.logger.Debug().Str("url", url).Msg("arXiv request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// GetAbstractPage downloads /abs/<id>.
func (c *Client) GetAbstractPage(ctx context.Context, id string) (*Response, error) {
	return c.Get(ctx, AbsURL(c.baseURL, id))
}

// GetHTML downloads /html/<id>.
func (c *Client) GetHTML(ctx context.Context, id string) (*Response, error) {
	return c.Get(ctx, HTMLURL(c.baseURL, id))
}

// GetPDF downloads /pdf/<id>.
func (c *Client) GetPDF(ctx context.Context, id string) (*Response, error) {
	return c.Get(ctx, PDFURL(c.baseURL, id))
}
