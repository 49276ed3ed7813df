package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/arxiv"
	"github.com/ternarybob/paperextractor/internal/auditlog"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/ternarybob/paperextractor/internal/models"
	"github.com/ternarybob/paperextractor/internal/notes"
	"github.com/ternarybob/paperextractor/internal/services/fetch"
	"github.com/ternarybob/paperextractor/internal/services/llm"
	"github.com/ternarybob/paperextractor/internal/services/summary"
	"github.com/ternarybob/paperextractor/internal/services/title"
	"github.com/ternarybob/paperextractor/internal/services/transform"
	"github.com/ternarybob/paperextractor/internal/storage/filesystem"
)

const (
	testID    = "2301.00001"
	testTitle = "Sample Paper Title"
	testNote  = "papers/Untitled.md"
	logDir    = "logs"
)

var testClock = time.Date(2025, 3, 1, 9, 0, 0, 0, time.Local)

type memorySettings struct {
	settings models.Settings
}

func (m *memorySettings) Load(ctx context.Context) (*models.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *memorySettings) Save(ctx context.Context, settings *models.Settings) error {
	m.settings = *settings
	return nil
}

func (m *memorySettings) Close() error { return nil }

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// fakeArxiv serves abs, html and pdf for testID
type fakeArxiv struct {
	htmlStatus int
	pdfStatus  int
	requests   atomic.Int32
}

func (f *fakeArxiv) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	switch r.URL.Path {
	case "/abs/" + testID:
		_, _ = fmt.Fprintf(w, `<html><head><meta name="citation_title" content="%s"></head></html>`, testTitle)
	case "/html/" + testID:
		w.WriteHeader(f.htmlStatus)
		_, _ = w.Write([]byte("<html><body><article><p>Body</p></article></body></html>"))
	case "/pdf/" + testID:
		w.WriteHeader(f.pdfStatus)
		_, _ = w.Write([]byte("%PDF-1.4 not really"))
	default:
		http.NotFound(w, r)
	}
}

// fakeOpenAI answers chat completions, optionally holding each request until released
type fakeOpenAI struct {
	reply    string
	requests atomic.Int32
	hold     chan struct{}
	entered  chan struct{}
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.hold != nil {
		<-f.hold
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%q}}]}`, f.reply)
}

type harness struct {
	orchestrator *Orchestrator
	vault        *filesystem.Vault
	settings     *memorySettings
	notifier     *recordingNotifier
	arxiv        *fakeArxiv
	openai       *fakeOpenAI
}

func newHarness(t *testing.T, env string) *harness {
	t.Helper()

	h := &harness{
		arxiv:    &fakeArxiv{htmlStatus: http.StatusOK, pdfStatus: http.StatusOK},
		openai:   &fakeOpenAI{reply: "## 要約\nテスト"},
		notifier: &recordingNotifier{},
	}
	arxivServer := httptest.NewServer(h.arxiv)
	t.Cleanup(arxivServer.Close)
	openaiServer := httptest.NewServer(h.openai)
	t.Cleanup(openaiServer.Close)

	logger := arbor.NewLogger()
	vault, err := filesystem.NewVault(t.TempDir(), logger)
	require.NoError(t, err)
	h.vault = vault

	ctx := context.Background()
	require.NoError(t, vault.Write(ctx, testNote, "###### url_01: https://arxiv.org/abs/"+testID+"\n"))
	require.NoError(t, vault.Write(ctx, "prompts/system.md", "Summarize."))

	env = strings.ReplaceAll(env, "{{openai}}", openaiServer.URL+"/v1/")
	require.NoError(t, os.WriteFile(filepath.Join(vault.Root(), ".env"), []byte(env), 0600))

	h.settings = &memorySettings{settings: models.Settings{
		LogDir:           logDir,
		SystemPromptPath: "prompts/system.md",
		EnvPath:          ".env",
		SummaryEnabled:   true,
	}}

	client := arxiv.NewClient(arxiv.WithBaseURL(arxivServer.URL), arxiv.WithRequestInterval(0))
	resolver := llm.NewResolver(llm.ResolverOptions{Logger: logger, RequestTimeout: 10 * time.Second})
	summaries := summary.NewService(vault, resolver, transform.NewService(logger), h.notifier, summary.Options{
		WaitNoticeInterval: time.Hour,
		ArxivBaseURL:       arxivServer.URL,
		EnvBaseDir:         vault.Root(),
	}, logger)

	h.orchestrator = NewOrchestrator(
		vault,
		h.settings,
		auditlog.NewLogger(vault, logger, auditlog.WithClock(func() time.Time { return testClock })),
		title.NewService(vault, client, logger),
		fetch.NewService(vault, client, logger),
		summaries,
		h.notifier,
		logger,
	)
	return h
}

const openAIEnv = "LLM_PROVIDER=openai\nOPENAI_API_KEY=sk-testkey1234567890\nOPENAI_MODEL=gpt-4o-mini\nOPENAI_BASE_URL={{openai}}\n"

func (h *harness) logLines(t *testing.T) []string {
	t.Helper()
	content, err := h.vault.Read(context.Background(), auditlog.DailyLogPath(logDir, testClock))
	if err != nil {
		return nil
	}
	return strings.Split(strings.TrimRight(content, "\n"), "\n")
}

// endLines returns END lines keyed by the component of their START line
func (h *harness) endLines(t *testing.T) map[string]string {
	t.Helper()
	components := map[string]string{}
	ends := map[string]string{}
	for _, line := range h.logLines(t) {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		runID := strings.TrimPrefix(fields[2], "runId=")
		switch fields[1] {
		case "block=START":
			for _, f := range fields[3:] {
				if strings.HasPrefix(f, "component=") {
					components[runID] = strings.TrimPrefix(f, "component=")
				}
			}
		case "block=END":
			ends[components[runID]] = strings.Join(fields[3:], " ")
		}
	}
	return ends
}

func countBlocks(lines []string, tag string) int {
	n := 0
	for _, line := range lines {
		if strings.Contains(line, " "+tag+" ") {
			n++
		}
	}
	return n
}

func TestRun_HappyPath(t *testing.T) {
	h := newHarness(t, openAIEnv)
	ctx := context.Background()

	require.NoError(t, h.orchestrator.Run(ctx, testNote))

	newPath := "papers/" + testTitle + ".md"
	content, err := h.vault.Read(ctx, newPath)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(content, notes.SummaryStartMarker))
	summaryText, ok := notes.ExtractSummary(content)
	require.True(t, ok)
	assert.Equal(t, "## 要約\nテスト", summaryText)

	exists, err := h.vault.Exists(ctx, "papers/"+testTitle+"/"+testID+".html")
	require.NoError(t, err)
	assert.True(t, exists)

	lines := h.logLines(t)
	assert.Equal(t, 3, countBlocks(lines, "block=START"))
	assert.Equal(t, 3, countBlocks(lines, "block=END"))

	ends := h.endLines(t)
	require.Len(t, ends, 3)
	for component, end := range ends {
		assert.True(t, strings.HasPrefix(end, "result=OK"), "%s: %s", component, end)
	}
	assert.Contains(t, ends["summary_generator"], "provider=openai")
	assert.Contains(t, ends["summary_generator"], "model=gpt-4o-mini")
	assert.Contains(t, ends["paper_fetcher"], "pdfValid=false")

	for _, line := range lines {
		assert.NotContains(t, line, "sk-testkey1234567890")
	}
	assert.Equal(t, int32(1), h.openai.requests.Load())
	assert.False(t, h.orchestrator.IsRunning())
}

func TestRun_SingleFlight(t *testing.T) {
	h := newHarness(t, openAIEnv)
	h.openai.hold = make(chan struct{})
	h.openai.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		done <- h.orchestrator.Run(context.Background(), testNote)
	}()

	select {
	case <-h.openai.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never reached the provider")
	}
	assert.True(t, h.orchestrator.IsRunning())

	arxivBefore := h.arxiv.requests.Load()
	linesBefore := len(h.logLines(t))

	err := h.orchestrator.Run(context.Background(), "papers/"+testTitle+".md")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Contains(t, h.notifier.all(), "Already running")
	assert.Equal(t, arxivBefore, h.arxiv.requests.Load())
	assert.Equal(t, int32(1), h.openai.requests.Load())
	assert.Equal(t, linesBefore, len(h.logLines(t)))

	close(h.openai.hold)
	require.NoError(t, <-done)
	assert.False(t, h.orchestrator.IsRunning())

	// the permit is released after completion
	require.NoError(t, h.orchestrator.RunTitle(context.Background(), "papers/"+testTitle+".md"))
}

func TestRun_BothFetchesFail(t *testing.T) {
	h := newHarness(t, openAIEnv)
	h.arxiv.htmlStatus = http.StatusNotFound
	h.arxiv.pdfStatus = http.StatusNotFound
	ctx := context.Background()

	err := h.orchestrator.Run(ctx, testNote)
	require.Error(t, err)
	assert.Equal(t, "FETCH_FAILED", common.CodeOf(err, ""))

	ends := h.endLines(t)
	require.Len(t, ends, 2)
	assert.True(t, strings.HasPrefix(ends["title_extractor"], "result=OK"))
	assert.True(t, strings.HasPrefix(ends["paper_fetcher"], "result=NG reason=FETCH_FAILED"))
	assert.NotContains(t, ends, "summary_generator")

	// the rename stays, no summary was written
	content, err := h.vault.Read(ctx, "papers/"+testTitle+".md")
	require.NoError(t, err)
	assert.NotContains(t, content, notes.SummaryStartMarker)
	assert.Equal(t, int32(0), h.openai.requests.Load())
	assert.Contains(t, h.notifier.all(), "Failed to fetch arXiv content (html:404, pdf:404)")
}

func TestRun_EmptyAPIKey(t *testing.T) {
	h := newHarness(t, "LLM_PROVIDER=openai\nOPENAI_API_KEY=\nOPENAI_MODEL=gpt-4o-mini\nOPENAI_BASE_URL={{openai}}\n")

	err := h.orchestrator.Run(context.Background(), testNote)
	require.Error(t, err)
	assert.Equal(t, "OPENAI_API_KEY_MISSING", common.CodeOf(err, ""))
	assert.Equal(t, int32(0), h.openai.requests.Load())

	end := h.endLines(t)["summary_generator"]
	assert.True(t, strings.HasPrefix(end, "result=NG reason=OPENAI_API_KEY_MISSING"), end)
	assert.NotContains(t, end, "httpStatus")
	assert.NotContains(t, end, "status=")
}

func TestRun_SummaryDisabled(t *testing.T) {
	h := newHarness(t, openAIEnv)
	h.settings.settings.SummaryEnabled = false

	require.NoError(t, h.orchestrator.Run(context.Background(), testNote))

	end := h.endLines(t)["summary_generator"]
	assert.Equal(t, "result=OK reason=SUMMARY_DISABLED_SKIP", end)
	assert.Equal(t, int32(0), h.openai.requests.Load())
}

func TestRun_ProviderSoftDisabled(t *testing.T) {
	h := newHarness(t, "LLM_PROVIDER=openai\nOPENAI_API_KEY=sk-testkey1234567890\nOPENAI_MODEL=\n")

	require.NoError(t, h.orchestrator.Run(context.Background(), testNote))

	end := h.endLines(t)["summary_generator"]
	assert.Equal(t, "result=OK reason=OPENAI_MODEL_EMPTY_SKIP", end)
	assert.Contains(t, h.notifier.all(), "Summary skipped: OPENAI_MODEL_EMPTY_SKIP")
}

func TestRun_LogDirRequired(t *testing.T) {
	h := newHarness(t, openAIEnv)
	h.settings.settings.LogDir = "  "

	err := h.orchestrator.Run(context.Background(), testNote)
	require.Error(t, err)
	assert.Equal(t, "LOG_DIR_REQUIRED", common.CodeOf(err, ""))
	assert.Contains(t, h.notifier.all(), "logDir is required (Settings → Log directory)")
	assert.Equal(t, int32(0), h.arxiv.requests.Load())
}

func TestRun_NoURLInNote(t *testing.T) {
	h := newHarness(t, openAIEnv)
	ctx := context.Background()
	require.NoError(t, h.vault.Write(ctx, testNote, "no link here"))

	err := h.orchestrator.Run(ctx, testNote)
	require.Error(t, err)
	assert.Equal(t, "URL_NOT_FOUND", common.CodeOf(err, ""))

	lines := h.logLines(t)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "component=orchestrator result=NG reason=URL_NOT_FOUND")
	assert.Equal(t, int32(0), h.arxiv.requests.Load())
}

func TestStep_ClosesBlockOnPanic(t *testing.T) {
	h := newHarness(t, openAIEnv)

	err := h.orchestrator.step(context.Background(), logDir, "component=test", func() (string, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.Equal(t, "UNEXPECTED_PANIC", common.CodeOf(err, ""))

	lines := h.logLines(t)
	require.Len(t, lines, 2)
	startID := strings.Fields(lines[0])[2]
	endID := strings.Fields(lines[1])[2]
	assert.Equal(t, startID, endID)
	assert.Contains(t, lines[1], "result=NG reason=UNEXPECTED_PANIC")
}

func TestConsoleNotifier(t *testing.T) {
	var sb strings.Builder
	n := NewConsoleNotifier(&sb)
	n.Notify("Saved to: papers/x\nHTML: OK")
	assert.Equal(t, "» Saved to: papers/x | HTML: OK\n", sb.String())
}
