package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// GeminiProvider summarizes through Gemini generateContent
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  arbor.ILogger
}

// NewGeminiProvider creates a Gemini provider. baseURL may be empty for the
// public endpoint.
func NewGeminiProvider(ctx context.Context, apiKey, model, baseURL string, timeout time.Duration, logger arbor.ILogger) (*GeminiProvider, error) {
	if logger == nil {
		logger = arbor.NewLogger()
	}

	config := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, providerError(ProviderGemini, PhaseConnect, "GEMINI_REQUEST_FAILED", 0, "client init", err)
	}

	return &GeminiProvider{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (p *GeminiProvider) Kind() ProviderKind { return ProviderGemini }

func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) Close() error { return nil }

// Summarize sends the system prompt as the system instruction with a single
// user content, and concatenates the text parts of the first candidate.
func (p *GeminiProvider) Summarize(ctx context.Context, request *SummarizeRequest) (string, error) {
	if request == nil {
		return "", providerError(ProviderGemini, PhaseRequest, "GEMINI_REQUEST_FAILED", 0, "nil request", nil)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{}
	if request.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemPrompt, genai.RoleUser)
	}

	p.logger.Debug().
		Str("model", p.model).
		Int("user_content_chars", len(request.UserContent)).
		Msg("Sending Gemini generateContent")

	contents := []*genai.Content{genai.NewContentFromText(request.UserContent, genai.RoleUser)}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", geminiError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", providerError(ProviderGemini, PhaseResponse, "GEMINI_RESPONSE_INVALID", 0, "no candidates", nil)
	}

	var response strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			response.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(response.String())
	if text == "" {
		return "", providerError(ProviderGemini, PhaseResponse, "GEMINI_RESPONSE_INVALID", 0, "empty text", nil)
	}
	return text, nil
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return providerError(ProviderGemini, PhaseResponse, "GEMINI_REQUEST_FAILED", apiErr.Code, truncate(apiErr.Message, maxErrorBodyChars), err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return providerError(ProviderGemini, PhaseResponse, "GEMINI_REQUEST_FAILED", apiErrPtr.Code, truncate(apiErrPtr.Message, maxErrorBodyChars), err)
	}
	return providerError(ProviderGemini, PhaseRequest, "GEMINI_REQUEST_FAILED", 0, "", err)
}
