package summary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/ternarybob/paperextractor/internal/models"
	"github.com/ternarybob/paperextractor/internal/notes"
	"github.com/ternarybob/paperextractor/internal/services/llm"
	"github.com/ternarybob/paperextractor/internal/services/transform"
	"github.com/ternarybob/paperextractor/internal/storage/filesystem"
)

const (
	notePath = "papers/Attention.md"
	paperID  = "2401.12345"
)

type fakeProvider struct {
	text    string
	err     error
	delay   time.Duration
	request *llm.SummarizeRequest
	closed  bool
}

func (p *fakeProvider) Summarize(ctx context.Context, request *llm.SummarizeRequest) (string, error) {
	p.request = request
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.text, p.err
}

func (p *fakeProvider) Kind() llm.ProviderKind { return llm.ProviderOpenAI }
func (p *fakeProvider) Model() string          { return "gpt-test" }
func (p *fakeProvider) Close() error {
	p.closed = true
	return nil
}

type fakeResolver struct {
	resolution *llm.Resolution
	err        error
	envPath    string
}

func (r *fakeResolver) Resolve(ctx context.Context, envPath string) (*llm.Resolution, error) {
	r.envPath = envPath
	return r.resolution, r.err
}

func enabledWith(provider *fakeProvider) *fakeResolver {
	return &fakeResolver{resolution: &llm.Resolution{
		Enabled:      true,
		Provider:     provider,
		ProviderName: "openai",
		Model:        provider.Model(),
	}}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count(message string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, m := range n.messages {
		if m == message {
			total++
		}
	}
	return total
}

type fixture struct {
	service  *Service
	vault    *filesystem.Vault
	notifier *recordingNotifier
	settings *models.Settings
}

func setup(t *testing.T, resolver ProviderResolver, options Options) *fixture {
	t.Helper()

	logger := arbor.NewLogger()
	vault, err := filesystem.NewVault(t.TempDir(), logger)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, vault.Write(ctx, notePath, "###### url_01: https://arxiv.org/abs/2401.12345\n"))
	require.NoError(t, vault.Write(ctx, notes.HTMLPath(notePath, paperID), "<html><body><article><p>Paper body</p></article><script>x()</script></body></html>"))
	require.NoError(t, vault.Write(ctx, "prompts/system.md", "You are a careful reviewer."))

	notifier := &recordingNotifier{}
	if options.EnvBaseDir == "" {
		options.EnvBaseDir = vault.Root()
	}
	service := NewService(vault, resolver, transform.NewService(logger), notifier, options, logger)

	settings := models.DefaultSettings()
	settings.SystemPromptPath = "prompts/system.md"
	settings.EnvPath = ".env"

	return &fixture{service: service, vault: vault, notifier: notifier, settings: &settings}
}

func TestGenerate_WritesSummaryBlock(t *testing.T) {
	provider := &fakeProvider{text: "## 概要\n要約です。"}
	resolver := enabledWith(provider)
	f := setup(t, resolver, Options{})
	ctx := context.Background()

	result, err := f.service.Generate(ctx, notePath, paperID, f.settings)
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, "gpt-test", result.Model)
	assert.Equal(t, len([]rune(provider.text)), result.SummaryChars)
	assert.True(t, provider.closed)

	require.NotNil(t, provider.request)
	assert.Equal(t, "You are a careful reviewer.", provider.request.SystemPrompt)
	assert.True(t, strings.HasPrefix(provider.request.UserContent, UserContentPrefix))
	assert.Contains(t, provider.request.UserContent, "<p>Paper body</p>")
	assert.Equal(t, "https://arxiv.org/pdf/2401.12345", provider.request.DocumentURL)
	assert.Equal(t, paperID, provider.request.ArxivID)
	assert.True(t, strings.HasSuffix(resolver.envPath, ".env"))
	assert.NotEqual(t, ".env", resolver.envPath, "relative env path is anchored")

	content, err := f.vault.Read(ctx, notePath)
	require.NoError(t, err)
	summary, ok := notes.ExtractSummary(content)
	require.True(t, ok)
	assert.Equal(t, provider.text, summary)

	// a second run replaces the block instead of appending another
	provider.text = "updated"
	_, err = f.service.Generate(ctx, notePath, paperID, f.settings)
	require.NoError(t, err)
	content, err = f.vault.Read(ctx, notePath)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(content, notes.SummaryStartMarker))
	assert.Contains(t, content, "updated")
}

func TestGenerate_ConvertHTML(t *testing.T) {
	provider := &fakeProvider{text: "ok"}
	f := setup(t, enabledWith(provider), Options{ConvertHTML: true, MaxContentChars: 5})

	result, err := f.service.Generate(context.Background(), notePath, paperID, f.settings)
	require.NoError(t, err)

	content := strings.TrimPrefix(provider.request.UserContent, UserContentPrefix)
	assert.NotContains(t, content, "<p>")
	assert.NotContains(t, content, "x()")
	assert.Equal(t, "Paper", content)
	assert.True(t, result.Truncated)
}

func TestGenerate_Disabled(t *testing.T) {
	resolver := &fakeResolver{resolution: &llm.Resolution{Reason: llm.ReasonOpenAIModelEmpty}}
	f := setup(t, resolver, Options{})
	ctx := context.Background()

	result, err := f.service.Generate(ctx, notePath, paperID, f.settings)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "OPENAI_MODEL_EMPTY_SKIP", result.SkipReason)

	content, err := f.vault.Read(ctx, notePath)
	require.NoError(t, err)
	assert.NotContains(t, content, notes.SummaryStartMarker)
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, f *fixture)
		code   string
	}{
		{
			name:   "prompt path empty",
			mutate: func(t *testing.T, f *fixture) { f.settings.SystemPromptPath = "" },
			code:   "PROMPT_READ_FAILED",
		},
		{
			name:   "prompt path absolute",
			mutate: func(t *testing.T, f *fixture) { f.settings.SystemPromptPath = "/etc/prompt.md" },
			code:   "PROMPT_PATH_INVALID",
		},
		{
			name:   "prompt path home",
			mutate: func(t *testing.T, f *fixture) { f.settings.SystemPromptPath = "~/prompt.md" },
			code:   "PROMPT_PATH_INVALID",
		},
		{
			name:   "prompt missing",
			mutate: func(t *testing.T, f *fixture) { f.settings.SystemPromptPath = "prompts/other.md" },
			code:   "PROMPT_READ_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{text: "never"}
			f := setup(t, enabledWith(provider), Options{})
			tt.mutate(t, f)

			_, err := f.service.Generate(context.Background(), notePath, paperID, f.settings)
			require.Error(t, err)
			assert.Equal(t, tt.code, common.CodeOf(err, ""))
			assert.Nil(t, provider.request, "provider must not be called")
		})
	}
}

func TestGenerate_HTMLMissing(t *testing.T) {
	provider := &fakeProvider{text: "never"}
	f := setup(t, enabledWith(provider), Options{})
	ctx := context.Background()
	require.NoError(t, f.vault.Write(ctx, "papers/Other.md", "note"))

	result, err := f.service.Generate(ctx, "papers/Other.md", paperID, f.settings)
	require.Error(t, err)
	assert.Equal(t, "HTML_MISSING", common.CodeOf(err, ""))
	assert.Equal(t, "papers/Other/2401.12345.html", result.HTMLPath)
	assert.Nil(t, provider.request)
}

func TestGenerate_ConfigErrorPropagates(t *testing.T) {
	resolver := &fakeResolver{err: &llm.ConfigError{Code: "OPENAI_API_KEY_MISSING"}}
	f := setup(t, resolver, Options{})

	_, err := f.service.Generate(context.Background(), notePath, paperID, f.settings)
	require.Error(t, err)
	assert.Equal(t, "OPENAI_API_KEY_MISSING", common.CodeOf(err, ""))
}

func TestGenerate_ProviderErrorKeepsCode(t *testing.T) {
	provider := &fakeProvider{err: &llm.ProviderError{Provider: llm.ProviderPageIndex, Code: "PAGEINDEX_TIMEOUT"}}
	f := setup(t, enabledWith(provider), Options{})
	ctx := context.Background()

	_, err := f.service.Generate(ctx, notePath, paperID, f.settings)
	require.Error(t, err)
	assert.Equal(t, "PAGEINDEX_TIMEOUT", common.CodeOf(err, ""))
	assert.Equal(t, "AI request failed.", common.MessageOf(err))
	assert.True(t, provider.closed)

	var providerErr *llm.ProviderError
	assert.True(t, errors.As(err, &providerErr))

	content, err := f.vault.Read(ctx, notePath)
	require.NoError(t, err)
	assert.NotContains(t, content, notes.SummaryStartMarker)
}

func TestGenerate_PlainProviderErrorUsesFallbackCode(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection reset")}
	f := setup(t, enabledWith(provider), Options{})

	_, err := f.service.Generate(context.Background(), notePath, paperID, f.settings)
	require.Error(t, err)
	assert.Equal(t, "PROVIDER_REQUEST_FAILED", common.CodeOf(err, ""))
}

func TestGenerate_NoteMoved(t *testing.T) {
	provider := &fakeProvider{text: "summary"}
	f := setup(t, enabledWith(provider), Options{})
	ctx := context.Background()

	require.NoError(t, f.vault.Rename(ctx, notePath, "papers/Moved.md"))

	_, err := f.service.Generate(ctx, notePath, paperID, f.settings)
	require.Error(t, err)
	assert.Equal(t, "NOTE_MOVED_OR_DELETED", common.CodeOf(err, ""))
}

func TestGenerate_WaitingNoticesStop(t *testing.T) {
	provider := &fakeProvider{text: "summary", delay: 60 * time.Millisecond}
	f := setup(t, enabledWith(provider), Options{WaitNoticeInterval: 10 * time.Millisecond})

	_, err := f.service.Generate(context.Background(), notePath, paperID, f.settings)
	require.NoError(t, err)

	during := f.notifier.count(WaitingNotice)
	assert.GreaterOrEqual(t, during, 2)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, during, f.notifier.count(WaitingNotice), "notices continue after completion")
}

func TestGenerate_WaitingNoticesStopOnError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("boom"), delay: 30 * time.Millisecond}
	f := setup(t, enabledWith(provider), Options{WaitNoticeInterval: 5 * time.Millisecond})

	_, err := f.service.Generate(context.Background(), notePath, paperID, f.settings)
	require.Error(t, err)

	after := f.notifier.count(WaitingNotice)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, f.notifier.count(WaitingNotice))
}
