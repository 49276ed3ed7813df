package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/ternarybob/arbor"
)

// OpenAIProvider summarizes through an OpenAI-compatible chat completions API
type OpenAIProvider struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  arbor.ILogger
}

// NewOpenAIProvider creates an OpenAI provider. baseURL may be empty for the
// public API. The SDK's own retries are disabled: one request per summary.
func NewOpenAIProvider(apiKey, model, baseURL string, timeout time.Duration, logger arbor.ILogger) *OpenAIProvider {
	if logger == nil {
		logger = arbor.NewLogger()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

func (p *OpenAIProvider) Kind() ProviderKind { return ProviderOpenAI }

func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) Close() error { return nil }

// Summarize sends the system prompt and user content as two messages and
// returns the trimmed text of the first choice.
func (p *OpenAIProvider) Summarize(ctx context.Context, request *SummarizeRequest) (string, error) {
	if request == nil {
		return "", providerError(ProviderOpenAI, PhaseRequest, "OPENAI_REQUEST_FAILED", 0, "nil request", nil)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.logger.Debug().
		Str("model", p.model).
		Int("user_content_chars", len(request.UserContent)).
		Msg("Sending OpenAI chat completion")

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(request.SystemPrompt),
			openai.UserMessage(request.UserContent),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", providerError(ProviderOpenAI, PhaseResponse, "OPENAI_REQUEST_FAILED", apiErr.StatusCode, truncate(apiErr.Message, maxErrorBodyChars), err)
		}
		return "", providerError(ProviderOpenAI, PhaseRequest, "OPENAI_REQUEST_FAILED", 0, "", err)
	}

	if len(resp.Choices) == 0 {
		return "", providerError(ProviderOpenAI, PhaseResponse, "OPENAI_RESPONSE_INVALID", 0, "no choices", nil)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", providerError(ProviderOpenAI, PhaseResponse, "OPENAI_RESPONSE_INVALID", 0, "empty content", nil)
	}
	return text, nil
}
