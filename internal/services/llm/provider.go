package llm

import (
	"context"
	"strings"
)

// ProviderKind identifies a summarization backend
type ProviderKind string

const (
	// ProviderOpenAI uses an OpenAI-style chat completions API
	ProviderOpenAI ProviderKind = "openai"
	// ProviderGemini uses Google Gemini generateContent
	ProviderGemini ProviderKind = "gemini"
	// ProviderClaude uses the Anthropic messages API
	ProviderClaude ProviderKind = "claude"
	// ProviderPageIndex uploads the paper PDF and asks questions over it
	ProviderPageIndex ProviderKind = "pageindex"
)

// ParseProviderKind maps an LLM_PROVIDER value onto a kind (case-insensitive).
// "anthropic" is accepted as an alias of "claude".
func ParseProviderKind(value string) (ProviderKind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "openai":
		return ProviderOpenAI, true
	case "gemini":
		return ProviderGemini, true
	case "claude", "anthropic":
		return ProviderClaude, true
	case "pageindex":
		return ProviderPageIndex, true
	default:
		return "", false
	}
}

// SummarizeRequest carries the inputs a provider may use. Chat providers use
// SystemPrompt and UserContent; the document-grounded provider uses DocumentURL.
type SummarizeRequest struct {
	SystemPrompt string
	UserContent  string
	DocumentURL  string
	ArxivID      string
}

// Provider produces a markdown summary for a paper
type Provider interface {
	Summarize(ctx context.Context, request *SummarizeRequest) (string, error)
	Kind() ProviderKind
	Model() string
	Close() error
}
