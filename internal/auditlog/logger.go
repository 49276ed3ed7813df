package auditlog

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/ternarybob/paperextractor/internal/interfaces"
)

// LineTimeFormat is the timestamp prefix of every log line
const LineTimeFormat = "2006-01-02T15:04:05.000Z"

// MaxLineChars caps standalone lines written by AppendLine
const MaxLineChars = 200

// Block ties START and END lines of one step together
type Block struct {
	LogDir    string
	LogPath   string
	RunID     string
	StartedAt time.Time
}

// Logger appends redacted lines to <logDir>/paper_extractor_YYYYMMDD.log in the vault
type Logger struct {
	vault  interfaces.Vault
	logger arbor.ILogger
	redact RedactFunc
	now    func() time.Time
	mu     sync.Mutex
}

// Option configures the Logger
type Option func(*Logger)

// WithRedactor replaces the default redactor
func WithRedactor(redact RedactFunc) Option {
	return func(l *Logger) {
		l.redact = redact
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// NewLogger creates an audit logger writing through vault
func NewLogger(vault interfaces.Vault, logger arbor.ILogger, opts ...Option) *Logger {
	l := &Logger{
		vault:  vault,
		logger: logger,
		redact: Redact,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DailyLogPath returns the log file for the local calendar day of now
func DailyLogPath(logDir string, now time.Time) string {
	return path.Join(logDir, fmt.Sprintf("paper_extractor_%s.log", now.Format("20060102")))
}

// FormatLine prefixes message with an ISO8601 UTC timestamp
func FormatLine(message string, now time.Time) string {
	return now.UTC().Format(LineTimeFormat) + " " + message
}

// StartBlock writes "block=START runId=<id> <message>" and returns the open block.
// Callers must close the block with EndBlock on every exit path.
func (l *Logger) StartBlock(ctx context.Context, logDir, message string) (*Block, error) {
	if err := l.vault.CreateFolder(ctx, logDir); err != nil {
		return nil, fmt.Errorf("failed to create log folder %s: %w", logDir, err)
	}

	now := l.now()
	block := &Block{
		LogDir:    logDir,
		LogPath:   DailyLogPath(logDir, now),
		RunID:     common.NewRunID(now),
		StartedAt: now,
	}

	prefix := "block=START runId=" + block.RunID
	line := safeRedact(l.redact, prefix+" "+message, prefix+" "+redactFailedMessage)
	if err := l.appendLine(ctx, block.LogPath, FormatLine(OneLine(line), now)); err != nil {
		return nil, err
	}

	return block, nil
}

// EndBlock writes "block=END runId=<id> <message>" to the block's file
func (l *Logger) EndBlock(ctx context.Context, block *Block, message string) error {
	if block == nil {
		return errors.New("end of log block requested without a started block")
	}

	prefix := "block=END runId=" + block.RunID
	line := safeRedact(l.redact, prefix+" "+message, prefix+" "+redactFailedMessage)
	return l.appendLine(ctx, block.LogPath, FormatLine(OneLine(line), l.now()))
}

// AppendLine writes a standalone line, truncated to MaxLineChars, to today's log file
func (l *Logger) AppendLine(ctx context.Context, logDir, message string) error {
	if err := l.vault.CreateFolder(ctx, logDir); err != nil {
		return fmt.Errorf("failed to create log folder %s: %w", logDir, err)
	}

	now := l.now()
	line := safeRedact(l.redact, message, redactFailedMessage)
	return l.appendLine(ctx, DailyLogPath(logDir, now), FormatLine(OneLineAndTruncate(line, MaxLineChars), now))
}

// appendLine reads the file fully, appends one line and writes it back
func (l *Logger) appendLine(ctx context.Context, logPath, line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.vault.Read(ctx, logPath)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		l.logger.Warn().Err(err).Str("path", logPath).Msg("Failed to read audit log, starting a new file")
		current = ""
	}

	var sb strings.Builder
	sb.Grow(len(current) + len(line) + 1)
	sb.WriteString(current)
	sb.WriteString(line)
	sb.WriteString("\n")

	if err := l.vault.Write(ctx, logPath, sb.String()); err != nil {
		return fmt.Errorf("failed to append audit log %s: %w", logPath, err)
	}
	return nil
}
