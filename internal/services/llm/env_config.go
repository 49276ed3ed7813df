package llm

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/paperextractor/internal/common"
)

// Keys recognized in the provider env file
const (
	EnvLLMProvider        = "LLM_PROVIDER"
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"
	EnvOpenAIModel        = "OPENAI_MODEL"
	EnvOpenAIBaseURL      = "OPENAI_BASE_URL"
	EnvGeminiAPIKey       = "GEMINI_API_KEY"
	EnvGeminiModel        = "GEMINI_MODEL"
	EnvAnthropicAPIKey    = "ANTHROPIC_API_KEY"
	EnvAnthropicModel     = "ANTHROPIC_MODEL"
	EnvPageIndexTransport = "PAGEINDEX_TRANSPORT"
	EnvPageIndexAPIKey    = "PAGEINDEX_API_KEY"
	EnvPageIndexCommand   = "PAGEINDEX_MCP_COMMAND"
	EnvPageIndexArgs      = "PAGEINDEX_MCP_ARGS"
)

// PageIndex transports
const (
	TransportMCP  = "mcp"
	TransportHTTP = "http"
)

const (
	DefaultPageIndexCommand = "npx"
	DefaultPageIndexArgs    = "-y mcp-remote https://chat.pageindex.ai/mcp"
)

// EnvConfig is the parsed provider env file. Values are trimmed; a missing
// key and an empty value are the same thing.
type EnvConfig struct {
	Provider           string
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	GeminiAPIKey       string
	GeminiModel        string
	AnthropicAPIKey    string
	AnthropicModel     string
	PageIndexTransport string
	PageIndexAPIKey    string
	PageIndexCommand   string
	PageIndexArgs      []string
}

// NewEnvConfig maps raw env values onto an EnvConfig, applying transport defaults
func NewEnvConfig(values map[string]string) *EnvConfig {
	get := func(key string) string {
		return strings.TrimSpace(values[key])
	}

	cfg := &EnvConfig{
		Provider:           get(EnvLLMProvider),
		OpenAIAPIKey:       get(EnvOpenAIAPIKey),
		OpenAIModel:        get(EnvOpenAIModel),
		OpenAIBaseURL:      get(EnvOpenAIBaseURL),
		GeminiAPIKey:       get(EnvGeminiAPIKey),
		GeminiModel:        get(EnvGeminiModel),
		AnthropicAPIKey:    get(EnvAnthropicAPIKey),
		AnthropicModel:     get(EnvAnthropicModel),
		PageIndexTransport: strings.ToLower(get(EnvPageIndexTransport)),
		PageIndexAPIKey:    get(EnvPageIndexAPIKey),
		PageIndexCommand:   get(EnvPageIndexCommand),
	}

	if cfg.PageIndexTransport == "" {
		cfg.PageIndexTransport = TransportMCP
	}
	if cfg.PageIndexCommand == "" {
		cfg.PageIndexCommand = DefaultPageIndexCommand
	}
	args := get(EnvPageIndexArgs)
	if args == "" {
		args = DefaultPageIndexArgs
	}
	cfg.PageIndexArgs = strings.Fields(args)

	return cfg
}

// ReadEnvFile reads and parses the env file at path. The file usually lives
// outside the vault so it is read from the OS filesystem; a leading "~" is
// expanded to the home directory.
func ReadEnvFile(path string) (*EnvConfig, error) {
	resolved, err := expandHome(path)
	if err != nil {
		return nil, &ConfigError{Code: "ENV_READ_FAILED", Err: err}
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, &ConfigError{Code: "ENV_READ_FAILED", Err: err}
	}

	return NewEnvConfig(common.ParseEnvContent(string(content))), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
