package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Vault     VaultConfig     `toml:"vault"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	Arxiv     ArxivConfig     `toml:"arxiv"`
	PageIndex PageIndexConfig `toml:"pageindex"`
	Summary   SummaryConfig   `toml:"summary"`
	Providers ProvidersConfig `toml:"providers"`
	Export    ExportConfig    `toml:"export"`
}

// VaultConfig locates the note tree all relative paths resolve against
type VaultConfig struct {
	Root string `toml:"root"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig holds the settings store location
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup (tests)
	InMemory       bool   `toml:"in_memory"`        // Keep settings in memory only; Path is ignored
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// ArxivConfig controls outbound requests to arxiv.org
type ArxivConfig struct {
	BaseURL         string `toml:"base_url"`
	UserAgent       string `toml:"user_agent"`
	Timeout         string `toml:"timeout"`          // e.g. "60s"
	RequestInterval string `toml:"request_interval"` // Minimum spacing between requests, e.g. "1s"
}

// PageIndexConfig controls the document-grounded provider's upload, poll and query phases
type PageIndexConfig struct {
	BaseURL          string `toml:"base_url"`
	PollInterval     string `toml:"poll_interval"`      // Fixed spacing between status checks
	PollTimeout      string `toml:"poll_timeout"`       // Total budget for processing to finish
	UploadAttempts   int    `toml:"upload_attempts"`    // Attempts for transient upload failures
	UploadRetryDelay string `toml:"upload_retry_delay"` // Fixed delay between upload attempts
	Query            string `toml:"query"`              // Question sent once the document is ready
}

// SummaryConfig controls the summary step
type SummaryConfig struct {
	WaitNoticeInterval string `toml:"wait_notice_interval"` // Spacing of "still waiting" notices
	ConvertHTML        bool   `toml:"convert_html"`         // Convert paper HTML to markdown before sending
	MaxContentChars    int    `toml:"max_content_chars"`    // 0 = unlimited
}

// ProvidersConfig holds settings shared by the direct LLM providers
type ProvidersConfig struct {
	Timeout   string `toml:"timeout"`
	MaxTokens int    `toml:"max_tokens"` // Claude only
}

// ExportConfig controls rendering of summaries to PDF
type ExportConfig struct {
	FontPath string `toml:"font_path"` // UTF-8 TrueType font; empty uses the core Latin-1 font
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Vault: VaultConfig{
			Root: ".",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/settings",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Arxiv: ArxivConfig{
			BaseURL:         "https://arxiv.org",
			UserAgent:       "paperextractor/" + GetVersion(),
			Timeout:         "60s",
			RequestInterval: "1s",
		},
		PageIndex: PageIndexConfig{
			BaseURL:          "https://api.pageindex.ai",
			PollInterval:     "2s",
			PollTimeout:      "5m",
			UploadAttempts:   3,
			UploadRetryDelay: "3s",
			Query:            DefaultPageIndexQuery,
		},
		Summary: SummaryConfig{
			WaitNoticeInterval: "3s",
			ConvertHTML:        false,
			MaxContentChars:    0,
		},
		Providers: ProvidersConfig{
			Timeout:   "5m",
			MaxTokens: 8192,
		},
	}
}

// DefaultPageIndexQuery asks for a Japanese summary covering contributions, method and results
const DefaultPageIndexQuery = "この論文の内容を日本語で要約してください。主要な貢献、手法、結果を含めてください。"

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into the existing values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies PAPEREXTRACTOR_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if root := os.Getenv("PAPEREXTRACTOR_VAULT_ROOT"); root != "" {
		config.Vault.Root = root
	}

	if path := os.Getenv("PAPEREXTRACTOR_SETTINGS_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("PAPEREXTRACTOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PAPEREXTRACTOR_LOG_OUTPUT"); output != "" {
		var outputs []string
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		config.Logging.Output = outputs
	}

	if baseURL := os.Getenv("PAPEREXTRACTOR_ARXIV_BASE_URL"); baseURL != "" {
		config.Arxiv.BaseURL = baseURL
	}

	if baseURL := os.Getenv("PAPEREXTRACTOR_PAGEINDEX_BASE_URL"); baseURL != "" {
		config.PageIndex.BaseURL = baseURL
	}
	if interval := os.Getenv("PAPEREXTRACTOR_PAGEINDEX_POLL_INTERVAL"); interval != "" {
		config.PageIndex.PollInterval = interval
	}
	if timeout := os.Getenv("PAPEREXTRACTOR_PAGEINDEX_POLL_TIMEOUT"); timeout != "" {
		config.PageIndex.PollTimeout = timeout
	}
	if fontPath := os.Getenv("PAPEREXTRACTOR_EXPORT_FONT_PATH"); fontPath != "" {
		config.Export.FontPath = fontPath
	}
	if attempts := os.Getenv("PAPEREXTRACTOR_PAGEINDEX_UPLOAD_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil {
			config.PageIndex.UploadAttempts = n
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, vaultRoot string, logLevel string) {
	if vaultRoot != "" {
		config.Vault.Root = vaultRoot
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
}

// Validate checks duration strings and numeric bounds
func (c *Config) Validate() error {
	durations := map[string]string{
		"arxiv.timeout":                c.Arxiv.Timeout,
		"arxiv.request_interval":       c.Arxiv.RequestInterval,
		"pageindex.poll_interval":      c.PageIndex.PollInterval,
		"pageindex.poll_timeout":       c.PageIndex.PollTimeout,
		"pageindex.upload_retry_delay": c.PageIndex.UploadRetryDelay,
		"summary.wait_notice_interval": c.Summary.WaitNoticeInterval,
		"providers.timeout":            c.Providers.Timeout,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s '%s': %w", name, value, err)
		}
	}

	if c.PageIndex.UploadAttempts < 1 {
		return fmt.Errorf("pageindex.upload_attempts must be at least 1, got %d", c.PageIndex.UploadAttempts)
	}

	return nil
}

// ParseDurationOr parses value, returning fallback when it is empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
