// -----------------------------------------------------------------------
// Summary Service - asks the configured provider for a paper summary and
// writes it into the note's summary block
// -----------------------------------------------------------------------

package summary

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/arxiv"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/ternarybob/paperextractor/internal/interfaces"
	"github.com/ternarybob/paperextractor/internal/models"
	"github.com/ternarybob/paperextractor/internal/notes"
	"github.com/ternarybob/paperextractor/internal/services/llm"
	"github.com/ternarybob/paperextractor/internal/services/transform"
)

// UserContentPrefix precedes the paper content in the user message
const UserContentPrefix = "You will be given HTML extracted from an arXiv paper. Summarize it in Japanese as Markdown.\n\n[HTML]\n"

// WaitingNotice is repeated while the provider call is in flight
const WaitingNotice = "AI response waiting..."

// ProviderResolver turns the .env file into a provider, or a reason to skip
type ProviderResolver interface {
	Resolve(ctx context.Context, envPath string) (*llm.Resolution, error)
}

// Options tune content preparation and notices
type Options struct {
	WaitNoticeInterval time.Duration
	ConvertHTML        bool
	MaxContentChars    int
	ArxivBaseURL       string
	EnvBaseDir         string // Relative env paths resolve against this directory
}

// NewOptionsFromConfig builds Options from the [summary] and [arxiv] sections
func NewOptionsFromConfig(config *common.Config) Options {
	return Options{
		WaitNoticeInterval: common.ParseDurationOr(config.Summary.WaitNoticeInterval, 3*time.Second),
		ConvertHTML:        config.Summary.ConvertHTML,
		MaxContentChars:    config.Summary.MaxContentChars,
		ArxivBaseURL:       config.Arxiv.BaseURL,
		EnvBaseDir:         config.Vault.Root,
	}
}

// Service generates summaries for paper notes
type Service struct {
	vault       interfaces.Vault
	resolver    ProviderResolver
	transformer interfaces.TransformService
	notifier    interfaces.Notifier
	options     Options
	logger      arbor.ILogger
}

// NewService creates a new summary service
func NewService(
	vault interfaces.Vault,
	resolver ProviderResolver,
	transformer interfaces.TransformService,
	notifier interfaces.Notifier,
	options Options,
	logger arbor.ILogger,
) *Service {
	if options.WaitNoticeInterval <= 0 {
		options.WaitNoticeInterval = 3 * time.Second
	}
	if options.ArxivBaseURL == "" {
		options.ArxivBaseURL = "https://arxiv.org"
	}

	return &Service{
		vault:       vault,
		resolver:    resolver,
		transformer: transformer,
		notifier:    notifier,
		options:     options,
		logger:      logger,
	}
}

// Generate summarizes the saved HTML of arxivID and upserts the result into
// the note at notePath. A provider that resolves as disabled yields a
// skipped result and no error. Failures carry the reason code recorded in
// the audit log.
func (s *Service) Generate(ctx context.Context, notePath, arxivID string, settings *models.Settings) (*models.SummaryResult, error) {
	result := &models.SummaryResult{
		NotePath: notePath,
		HTMLPath: notes.HTMLPath(notePath, arxivID),
	}

	s.notifier.Notify("(1/4) reading html")
	html, err := s.vault.Read(ctx, result.HTMLPath)
	if errors.Is(err, interfaces.ErrNotFound) {
		return result, common.NewCodedError("HTML_MISSING", "HTML file not found. Cannot generate summary.", err)
	}
	if err != nil {
		return result, common.NewCodedError("HTML_READ_FAILED", "Failed to read HTML.", err)
	}

	s.notifier.Notify("(2/4) loading prompt")
	result.PromptPath = strings.TrimSpace(settings.SystemPromptPath)
	systemPrompt, err := s.readPrompt(ctx, result.PromptPath)
	if err != nil {
		return result, err
	}

	resolution, err := s.resolver.Resolve(ctx, s.envPath(settings.EnvPath))
	if err != nil {
		return result, err
	}
	if !resolution.Enabled {
		result.Skipped = true
		result.SkipReason = resolution.Reason
		s.logger.Info().Str("reason", resolution.Reason).Msg("Summary provider disabled, skipping")
		return result, nil
	}
	provider := resolution.Provider
	defer func() {
		if err := provider.Close(); err != nil {
			s.logger.Warn().Err(err).Str("provider", resolution.ProviderName).Msg("Failed to close provider")
		}
	}()
	result.Provider = resolution.ProviderName
	result.Model = resolution.Model

	content, truncated := s.prepareContent(html)
	result.Truncated = truncated

	request := &llm.SummarizeRequest{
		SystemPrompt: systemPrompt,
		UserContent:  UserContentPrefix + content,
		DocumentURL:  arxiv.PDFURL(s.options.ArxivBaseURL, arxivID),
		ArxivID:      arxivID,
	}

	s.notifier.Notify("(3/4) requesting AI")
	text, err := s.summarizeWithNotices(ctx, provider, request)
	if err != nil {
		return result, common.NewCodedError(common.CodeOf(err, "PROVIDER_REQUEST_FAILED"), "AI request failed.", err)
	}
	result.SummaryChars = len([]rune(text))

	s.notifier.Notify("(4/4) writing note")
	noteText, err := s.vault.Read(ctx, notePath)
	if err != nil {
		return result, common.NewCodedError("NOTE_MOVED_OR_DELETED", "Target note was moved or deleted.", err)
	}
	if err := s.vault.Write(ctx, notePath, notes.UpsertSummaryBlock(noteText, text)); err != nil {
		return result, common.NewCodedError("NOTE_WRITE_FAILED", "Failed to write note.", err)
	}

	s.notifier.Notify("Summary generated.")
	s.logger.Info().
		Str("note", notePath).
		Str("provider", result.Provider).
		Str("model", result.Model).
		Int("summary_chars", result.SummaryChars).
		Msg("Summary written")

	return result, nil
}

func (s *Service) readPrompt(ctx context.Context, promptPath string) (string, error) {
	if promptPath == "" {
		return "", common.Errorf("PROMPT_READ_FAILED", "systemPromptPath is required (Settings).")
	}
	if !models.IsVaultRelativePath(promptPath) {
		return "", common.Errorf("PROMPT_PATH_INVALID", "systemPromptPath must be a Vault-relative path (not absolute).")
	}
	prompt, err := s.vault.Read(ctx, promptPath)
	if err != nil {
		return "", common.NewCodedError("PROMPT_READ_FAILED", "Failed to read system prompt.", err)
	}
	return prompt, nil
}

// envPath anchors relative paths at the configured base directory
func (s *Service) envPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "~") || s.options.EnvBaseDir == "" {
		return p
	}
	return filepath.Join(s.options.EnvBaseDir, filepath.FromSlash(p))
}

func (s *Service) prepareContent(html string) (string, bool) {
	content := html
	if s.options.ConvertHTML {
		converted, err := s.transformer.PaperContent(html, s.options.ArxivBaseURL)
		if err != nil {
			s.logger.Warn().Err(err).Msg("HTML conversion failed, sending raw HTML")
		} else {
			content = converted
		}
	}

	content, truncated := transform.Truncate(content, s.options.MaxContentChars)
	if truncated {
		s.logger.Warn().Int("max_chars", s.options.MaxContentChars).Msg("Paper content truncated")
	}
	return content, truncated
}

// summarizeWithNotices runs the provider while a background ticker repeats
// the waiting notice. The ticker stops before this returns.
func (s *Service) summarizeWithNotices(ctx context.Context, provider llm.Provider, request *llm.SummarizeRequest) (string, error) {
	s.notifier.Notify(WaitingNotice + " (Do not delete/move the note until completion)")

	waitCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	common.SafeGo(s.logger, "summary-wait-notice", func() {
		defer close(done)
		ticker := time.NewTicker(s.options.WaitNoticeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-waitCtx.Done():
				return
			case <-ticker.C:
				s.notifier.Notify(WaitingNotice)
			}
		}
	})
	defer func() {
		stop()
		<-done
	}()

	return provider.Summarize(ctx, request)
}
