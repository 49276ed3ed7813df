package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
)

// DefaultClaudeMaxTokens is used when no max_tokens is configured
const DefaultClaudeMaxTokens = 8192

// ClaudeProvider summarizes through the Anthropic messages API
type ClaudeProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    arbor.ILogger
}

// NewClaudeProvider creates a Claude provider. baseURL may be empty.
func NewClaudeProvider(apiKey, model, baseURL string, maxTokens int, timeout time.Duration, logger arbor.ILogger) *ClaudeProvider {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	if maxTokens <= 0 {
		maxTokens = DefaultClaudeMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &ClaudeProvider{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
	}
}

func (p *ClaudeProvider) Kind() ProviderKind { return ProviderClaude }

func (p *ClaudeProvider) Model() string { return p.model }

func (p *ClaudeProvider) Close() error { return nil }

// Summarize sends the system prompt as the system parameter and returns the
// concatenated text blocks of the reply.
func (p *ClaudeProvider) Summarize(ctx context.Context, request *SummarizeRequest) (string, error) {
	if request == nil {
		return "", providerError(ProviderClaude, PhaseRequest, "ANTHROPIC_REQUEST_FAILED", 0, "nil request", nil)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.UserContent)),
		},
	}
	if request.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: request.SystemPrompt},
		}
	}

	p.logger.Debug().
		Str("model", p.model).
		Int("max_tokens", p.maxTokens).
		Msg("Sending Claude message")

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", providerError(ProviderClaude, PhaseResponse, "ANTHROPIC_REQUEST_FAILED", apiErr.StatusCode, "", err)
		}
		return "", providerError(ProviderClaude, PhaseRequest, "ANTHROPIC_REQUEST_FAILED", 0, "", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(response.String())
	if text == "" {
		return "", providerError(ProviderClaude, PhaseResponse, "ANTHROPIC_RESPONSE_INVALID", 0, "no text content", nil)
	}
	return text, nil
}
