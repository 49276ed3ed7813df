package llm

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"github.com/ternarybob/paperextractor/internal/common"
)

// PageIndexOptions defines upload retry and processing poll behavior.
// Both loops run at fixed spacing: the remote processing time does not
// depend on how often we ask.
type PageIndexOptions struct {
	// BaseURL of the REST API (HTTP transport only)
	BaseURL string

	// PollInterval is the fixed wait between status checks (default: 2s)
	PollInterval time.Duration

	// PollTimeout bounds the total time spent waiting for processing (default: 5m)
	PollTimeout time.Duration

	// UploadAttempts is the total number of upload attempts (default: 3)
	UploadAttempts int

	// UploadRetryDelay is the fixed wait between upload attempts (default: 3s)
	UploadRetryDelay time.Duration

	// Query is the question asked once the document is ready
	Query string
}

// Default PageIndex constants
const (
	DefaultPageIndexBaseURL = "https://api.pageindex.ai"
	DefaultPollInterval     = 2 * time.Second
	DefaultPollTimeout      = 5 * time.Minute
	DefaultUploadAttempts   = 3
	DefaultUploadRetryDelay = 3 * time.Second
)

// NewDefaultPageIndexOptions returns PageIndexOptions with the default
// intervals and the default Japanese summary query.
func NewDefaultPageIndexOptions() PageIndexOptions {
	return PageIndexOptions{
		BaseURL:          DefaultPageIndexBaseURL,
		PollInterval:     DefaultPollInterval,
		PollTimeout:      DefaultPollTimeout,
		UploadAttempts:   DefaultUploadAttempts,
		UploadRetryDelay: DefaultUploadRetryDelay,
		Query:            common.DefaultPageIndexQuery,
	}
}

// PageIndexOptionsFromConfig converts the [pageindex] config section
func PageIndexOptionsFromConfig(cfg common.PageIndexConfig) PageIndexOptions {
	opts := NewDefaultPageIndexOptions()
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	opts.PollInterval = common.ParseDurationOr(cfg.PollInterval, DefaultPollInterval)
	opts.PollTimeout = common.ParseDurationOr(cfg.PollTimeout, DefaultPollTimeout)
	opts.UploadRetryDelay = common.ParseDurationOr(cfg.UploadRetryDelay, DefaultUploadRetryDelay)
	if cfg.UploadAttempts > 0 {
		opts.UploadAttempts = cfg.UploadAttempts
	}
	if cfg.Query != "" {
		opts.Query = cfg.Query
	}
	return opts.withDefaults()
}

func (o PageIndexOptions) withDefaults() PageIndexOptions {
	def := NewDefaultPageIndexOptions()
	if o.BaseURL == "" {
		o.BaseURL = def.BaseURL
	}
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = def.PollTimeout
	}
	// A timeout shorter than one interval still allows one status check
	if o.PollTimeout < o.PollInterval {
		o.PollTimeout = o.PollInterval
	}
	if o.UploadAttempts <= 0 {
		o.UploadAttempts = def.UploadAttempts
	}
	if o.UploadRetryDelay < 0 {
		o.UploadRetryDelay = def.UploadRetryDelay
	}
	if o.Query == "" {
		o.Query = def.Query
	}
	return o
}

// IsTransientUploadError reports whether an upload failure is worth retrying:
// gateway statuses 502/503/504 and network-level failures. Context
// cancellation is never transient.
func IsTransientUploadError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.HTTPStatus != 0 {
		switch providerErr.HTTPStatus {
		case 502, 503, 504:
			return true
		default:
			return false
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
