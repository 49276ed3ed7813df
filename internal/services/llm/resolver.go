package llm

import (
	"context"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/common"
)

// Disabled reasons. A disabled resolution is a user choice, not an error.
const (
	ReasonEnvPathMissing          = "ENV_PATH_MISSING"
	ReasonProviderMissing         = "LLM_PROVIDER_MISSING"
	ReasonProviderInvalid         = "LLM_PROVIDER_INVALID"
	ReasonOpenAIModelEmpty        = "OPENAI_MODEL_EMPTY_SKIP"
	ReasonPageIndexMCPUnavailable = "PAGEINDEX_MCP_UNAVAILABLE"
)

// Resolution is the outcome of provider resolution: either disabled with a
// reason, or enabled with a ready provider.
type Resolution struct {
	Enabled      bool
	Reason       string
	Provider     Provider
	ProviderName string
	Model        string
}

func disabled(reason string) *Resolution {
	return &Resolution{Enabled: false, Reason: reason}
}

func enabled(provider Provider) *Resolution {
	return &Resolution{
		Enabled:      true,
		Provider:     provider,
		ProviderName: string(provider.Kind()),
		Model:        provider.Model(),
	}
}

// ResolverOptions carries the non-secret provider settings from config
type ResolverOptions struct {
	Logger         arbor.ILogger
	RequestTimeout time.Duration
	MaxTokens      int
	PageIndex      PageIndexOptions

	// Endpoint overrides; empty means the public endpoint
	GeminiBaseURL    string
	AnthropicBaseURL string

	// HTTPClient is used by the PageIndex REST transport
	HTTPClient *http.Client

	// LookPath finds the MCP helper command; defaults to exec.LookPath
	LookPath func(file string) (string, error)

	// MCPConnector overrides the stdio MCP connection
	MCPConnector func(command string, args []string) ConnectFunc
}

// Resolver turns the provider env file into a Resolution
type Resolver struct {
	options ResolverOptions
	logger  arbor.ILogger
}

// NewResolver creates a resolver
func NewResolver(options ResolverOptions) *Resolver {
	if options.Logger == nil {
		options.Logger = arbor.NewLogger()
	}
	if options.LookPath == nil {
		options.LookPath = exec.LookPath
	}
	if options.MCPConnector == nil {
		options.MCPConnector = StdioConnector
	}
	options.PageIndex = options.PageIndex.withDefaults()

	return &Resolver{
		options: options,
		logger:  options.Logger,
	}
}

// NewResolverOptionsFromConfig builds ResolverOptions from application config
func NewResolverOptionsFromConfig(config *common.Config, logger arbor.ILogger) ResolverOptions {
	return ResolverOptions{
		Logger:         logger,
		RequestTimeout: common.ParseDurationOr(config.Providers.Timeout, 5*time.Minute),
		MaxTokens:      config.Providers.MaxTokens,
		PageIndex:      PageIndexOptionsFromConfig(config.PageIndex),
	}
}

// Resolve reads the env file at envPath and resolves the active provider.
// An empty envPath disables summarization. Reading failures and missing
// mandatory fields return a *ConfigError; no network call is made before
// those checks pass.
func (r *Resolver) Resolve(ctx context.Context, envPath string) (*Resolution, error) {
	if strings.TrimSpace(envPath) == "" {
		return disabled(ReasonEnvPathMissing), nil
	}

	env, err := ReadEnvFile(strings.TrimSpace(envPath))
	if err != nil {
		return nil, err
	}

	return r.ResolveEnv(ctx, env)
}

// ResolveEnv resolves the provider from already parsed env values
func (r *Resolver) ResolveEnv(ctx context.Context, env *EnvConfig) (*Resolution, error) {
	if env.Provider == "" {
		return disabled(ReasonProviderMissing), nil
	}

	kind, ok := ParseProviderKind(env.Provider)
	if !ok {
		r.logger.Warn().Str("provider", env.Provider).Msg("Unrecognized LLM_PROVIDER")
		return disabled(ReasonProviderInvalid), nil
	}

	switch kind {
	case ProviderOpenAI:
		// An empty model means the user opted out
		if env.OpenAIModel == "" {
			return disabled(ReasonOpenAIModelEmpty), nil
		}
		if env.OpenAIAPIKey == "" {
			return nil, &ConfigError{Code: "OPENAI_API_KEY_MISSING"}
		}
		return enabled(NewOpenAIProvider(env.OpenAIAPIKey, env.OpenAIModel, env.OpenAIBaseURL, r.options.RequestTimeout, r.logger)), nil

	case ProviderGemini:
		if env.GeminiAPIKey == "" {
			return nil, &ConfigError{Code: "GEMINI_API_KEY_MISSING"}
		}
		if env.GeminiModel == "" {
			return nil, &ConfigError{Code: "GEMINI_MODEL_MISSING"}
		}
		provider, err := NewGeminiProvider(ctx, env.GeminiAPIKey, env.GeminiModel, r.options.GeminiBaseURL, r.options.RequestTimeout, r.logger)
		if err != nil {
			return nil, err
		}
		return enabled(provider), nil

	case ProviderClaude:
		if env.AnthropicAPIKey == "" {
			return nil, &ConfigError{Code: "ANTHROPIC_API_KEY_MISSING"}
		}
		if env.AnthropicModel == "" {
			return nil, &ConfigError{Code: "ANTHROPIC_MODEL_MISSING"}
		}
		return enabled(NewClaudeProvider(env.AnthropicAPIKey, env.AnthropicModel, r.options.AnthropicBaseURL, r.options.MaxTokens, r.options.RequestTimeout, r.logger)), nil

	case ProviderPageIndex:
		return r.resolvePageIndex(env)
	}

	return disabled(ReasonProviderInvalid), nil
}

func (r *Resolver) resolvePageIndex(env *EnvConfig) (*Resolution, error) {
	switch env.PageIndexTransport {
	case TransportHTTP:
		if env.PageIndexAPIKey == "" {
			return nil, &ConfigError{Code: "PAGEINDEX_API_KEY_MISSING"}
		}
		return enabled(NewPageIndexHTTPProvider(env.PageIndexAPIKey, r.options.PageIndex, r.options.HTTPClient, r.logger)), nil

	case TransportMCP:
		if _, err := r.options.LookPath(env.PageIndexCommand); err != nil {
			r.logger.Warn().
				Err(err).
				Str("command", env.PageIndexCommand).
				Msg("PageIndex MCP helper not found")
			return disabled(ReasonPageIndexMCPUnavailable), nil
		}
		connect := r.options.MCPConnector(env.PageIndexCommand, env.PageIndexArgs)
		return enabled(NewPageIndexMCPProvider(connect, r.options.PageIndex, r.logger)), nil

	default:
		return nil, &ConfigError{Code: "PAGEINDEX_TRANSPORT_INVALID", Detail: env.PageIndexTransport}
	}
}
