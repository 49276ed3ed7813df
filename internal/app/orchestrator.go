// -----------------------------------------------------------------------
// Orchestrator - runs the title, fetch and summary steps for one note,
// one run at a time, with one audit log block per step
// -----------------------------------------------------------------------

package app

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/arxiv"
	"github.com/ternarybob/paperextractor/internal/auditlog"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/ternarybob/paperextractor/internal/interfaces"
	"github.com/ternarybob/paperextractor/internal/models"
	"github.com/ternarybob/paperextractor/internal/notes"
	"github.com/ternarybob/paperextractor/internal/services/fetch"
	"github.com/ternarybob/paperextractor/internal/services/summary"
	"github.com/ternarybob/paperextractor/internal/services/title"
)

// ErrBusy is returned when a run is requested while another is in flight
var ErrBusy = errors.New("already running")

// SummaryDisabledReason is logged when the summary feature is switched off
const SummaryDisabledReason = "SUMMARY_DISABLED_SKIP"

// Orchestrator sequences the workflow steps. At most one run is active per
// Orchestrator; a concurrent request is rejected, never queued.
type Orchestrator struct {
	vault     interfaces.Vault
	settings  interfaces.SettingsStorage
	audit     *auditlog.Logger
	titles    *title.Service
	fetcher   *fetch.Service
	summaries *summary.Service
	notifier  interfaces.Notifier
	logger    arbor.ILogger

	running atomic.Bool
}

// NewOrchestrator creates an orchestrator over the step services
func NewOrchestrator(
	vault interfaces.Vault,
	settings interfaces.SettingsStorage,
	audit *auditlog.Logger,
	titles *title.Service,
	fetcher *fetch.Service,
	summaries *summary.Service,
	notifier interfaces.Notifier,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		vault:     vault,
		settings:  settings,
		audit:     audit,
		titles:    titles,
		fetcher:   fetcher,
		summaries: summaries,
		notifier:  notifier,
		logger:    logger,
	}
}

// runContext is resolved once per run before any step executes
type runContext struct {
	run      models.Run
	settings *models.Settings
	logDir   string
}

// Run executes title resolution, document fetch and summary generation for
// the note at notePath. A failing step aborts the remaining ones; effects
// of completed steps are kept.
func (o *Orchestrator) Run(ctx context.Context, notePath string) error {
	return o.exclusive(ctx, notePath, func(rc *runContext) error {
		if err := o.titleStep(ctx, rc); err != nil {
			return err
		}
		if err := o.fetchStep(ctx, rc); err != nil {
			return err
		}
		return o.summaryStep(ctx, rc)
	})
}

// RunTitle executes only the title resolution step
func (o *Orchestrator) RunTitle(ctx context.Context, notePath string) error {
	return o.exclusive(ctx, notePath, func(rc *runContext) error {
		return o.titleStep(ctx, rc)
	})
}

// RunFetch renames the note after its paper and downloads the paper files
func (o *Orchestrator) RunFetch(ctx context.Context, notePath string) error {
	return o.exclusive(ctx, notePath, func(rc *runContext) error {
		if err := o.titleStep(ctx, rc); err != nil {
			return err
		}
		return o.fetchStep(ctx, rc)
	})
}

// RunSummary executes only the summary step against already fetched files
func (o *Orchestrator) RunSummary(ctx context.Context, notePath string) error {
	return o.exclusive(ctx, notePath, func(rc *runContext) error {
		return o.summaryStep(ctx, rc)
	})
}

// IsRunning reports whether a run is in flight
func (o *Orchestrator) IsRunning() bool {
	return o.running.Load()
}

// exclusive acquires the run permit, resolves the run context and runs fn.
// A rejected request produces a notice only: no log block and no network.
func (o *Orchestrator) exclusive(ctx context.Context, notePath string, fn func(rc *runContext) error) error {
	if !o.running.CompareAndSwap(false, true) {
		o.notifier.Notify("Already running")
		return ErrBusy
	}
	defer o.running.Store(false)

	rc, err := o.prepare(ctx, notePath)
	if err != nil {
		o.notifier.Notify(common.MessageOf(err))
		return err
	}

	o.logger.Info().
		Str("run_id", rc.run.RunID).
		Str("note", rc.run.NotePath).
		Str("arxiv_id", rc.run.ArxivID).
		Msg("Run started")

	if err := fn(rc); err != nil {
		o.logger.Error().Err(err).Str("run_id", rc.run.RunID).Str("note", rc.run.NotePath).Msg("Run failed")
		o.notifier.Notify(common.MessageOf(err))
		return err
	}

	o.logger.Info().
		Str("run_id", rc.run.RunID).
		Str("note", rc.run.NotePath).
		Str("duration", time.Since(rc.run.StartedAt).String()).
		Msg("Run completed")
	return nil
}

func (o *Orchestrator) prepare(ctx context.Context, notePath string) (*runContext, error) {
	settings, err := o.settings.Load(ctx)
	if err != nil {
		return nil, common.NewCodedError("SETTINGS_LOAD_FAILED", "Failed to load settings.", err)
	}

	logDir := strings.TrimSpace(settings.LogDir)
	if logDir == "" {
		return nil, common.Errorf("LOG_DIR_REQUIRED", "logDir is required (Settings → Log directory)")
	}

	now := time.Now()
	rc := &runContext{
		run: models.Run{
			RunID:     common.NewRunID(now),
			NotePath:  notePath,
			StartedAt: now,
		},
		settings: settings,
		logDir:   logDir,
	}

	noteText, err := o.vault.Read(ctx, notePath)
	if err != nil {
		err = common.NewCodedError("NOTE_NOT_FOUND", "Note not found: "+notePath, err)
		o.logPreflight(ctx, rc, err)
		return nil, err
	}

	sourceURL, ok := notes.FindSourceURL(noteText)
	if !ok {
		err = common.Errorf("URL_NOT_FOUND", "No arXiv URL found in the note.")
		o.logPreflight(ctx, rc, err)
		return nil, err
	}

	rc.run.ArxivID, err = arxiv.ParseURL(sourceURL)
	if err != nil {
		err = common.NewCodedError("URL_INVALID", "Invalid arXiv URL.", err)
		o.logPreflight(ctx, rc, err)
		return nil, err
	}

	return rc, nil
}

// logPreflight records failures that happen before any step opens a block
func (o *Orchestrator) logPreflight(ctx context.Context, rc *runContext, err error) {
	line := auditlog.Fields(
		"component", "orchestrator",
		"result", "NG",
		"reason", common.CodeOf(err, "UNKNOWN"),
		"notePath", rc.run.NotePath,
	)
	if appendErr := o.audit.AppendLine(ctx, rc.logDir, line); appendErr != nil {
		o.logger.Warn().Err(appendErr).Msg("Failed to write audit log line")
	}
}

func (o *Orchestrator) titleStep(ctx context.Context, rc *runContext) error {
	start := auditlog.Fields("component", "title_extractor", "notePath", rc.run.NotePath, "id", rc.run.ArxivID)

	return o.step(ctx, rc.logDir, start, func() (string, error) {
		result, err := o.titles.Resolve(ctx, rc.run.NotePath, rc.run.ArxivID)
		fields := auditlog.Fields("status", strconv.Itoa(result.HTTPStatus))
		if err != nil {
			return fields, err
		}

		// the note moved; later steps work on its new location
		exists, err := o.vault.Exists(ctx, result.NewPath)
		if err != nil || !exists {
			return fields, common.NewCodedError("NOTE_MOVED_OR_DELETED", "Target note was moved or deleted.", err)
		}
		rc.run.NotePath = result.NewPath

		return auditlog.Fields(
			"status", strconv.Itoa(result.HTTPStatus),
			"renamed", strconv.FormatBool(result.Renamed),
			"newPath", result.NewPath,
		), nil
	})
}

func (o *Orchestrator) fetchStep(ctx context.Context, rc *runContext) error {
	start := auditlog.Fields(
		"component", "paper_fetcher",
		"notePath", rc.run.NotePath,
		"folderPath", notes.AttachmentFolder(rc.run.NotePath),
		"id", rc.run.ArxivID,
	)

	o.notifier.Notify("Fetching arXiv...")
	var result *models.FetchResult
	err := o.step(ctx, rc.logDir, start, func() (string, error) {
		var err error
		result, err = o.fetcher.Fetch(ctx, rc.run.NotePath, rc.run.ArxivID)
		if result == nil {
			return "", err
		}
		return auditlog.Fields(
			"html", okNG(result.HTML.OK()),
			"htmlStatus", strconv.Itoa(result.HTML.HTTPStatus),
			"pdf", okNG(result.PDF.OK()),
			"pdfStatus", strconv.Itoa(result.PDF.HTTPStatus),
			"pdfPages", strconv.Itoa(result.PDFPages),
			"pdfValid", strconv.FormatBool(result.PDFValid),
		), err
	})
	if err != nil {
		return err
	}

	o.notifier.Notify(fmt.Sprintf("Saved to: %s\nHTML: %s\nPDF: %s",
		result.FolderPath, okNG(result.HTML.OK()), okNG(result.PDF.OK())))
	return nil
}

func (o *Orchestrator) summaryStep(ctx context.Context, rc *runContext) error {
	start := auditlog.Fields(
		"component", "summary_generator",
		"notePath", rc.run.NotePath,
		"noteBaseName", strings.TrimSuffix(path.Base(rc.run.NotePath), path.Ext(rc.run.NotePath)),
		"id", rc.run.ArxivID,
	)

	if !rc.settings.SummaryEnabled {
		return o.step(ctx, rc.logDir, start, func() (string, error) {
			return auditlog.Fields("reason", SummaryDisabledReason), nil
		})
	}

	var skipReason string
	err := o.step(ctx, rc.logDir, start, func() (string, error) {
		result, err := o.summaries.Generate(ctx, rc.run.NotePath, rc.run.ArxivID, rc.settings)
		if result == nil {
			return "", err
		}
		if err != nil {
			return auditlog.Fields(
				"htmlPath", result.HTMLPath,
				"promptPath", result.PromptPath,
				"provider", result.Provider,
				"model", result.Model,
			), err
		}
		if result.Skipped {
			skipReason = result.SkipReason
			return auditlog.Fields("reason", result.SkipReason), nil
		}
		return auditlog.Fields(
			"provider", result.Provider,
			"model", result.Model,
			"summaryChars", strconv.Itoa(result.SummaryChars),
			"htmlPath", result.HTMLPath,
		), nil
	})
	if err == nil && skipReason != "" {
		o.notifier.Notify("Summary skipped: " + skipReason)
	}
	return err
}

// step brackets fn with one START/END log block. fn returns the fields for
// the END line; the block is closed on every exit path, including panics.
func (o *Orchestrator) step(ctx context.Context, logDir, startMessage string, fn func() (string, error)) (err error) {
	block, err := o.audit.StartBlock(ctx, logDir, startMessage)
	if err != nil {
		return common.NewCodedError("LOG_WRITE_FAILED", "Failed to write log.", err)
	}

	endMessage := "result=NG reason=UNKNOWN"
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("Recovered from panic in step")
			err = common.Errorf("UNEXPECTED_PANIC", "Unexpected error.")
			endMessage = "result=NG reason=UNEXPECTED_PANIC"
		}
		if endErr := o.audit.EndBlock(context.WithoutCancel(ctx), block, endMessage); endErr != nil {
			o.logger.Warn().Err(endErr).Str("run_id", block.RunID).Msg("Failed to close audit log block")
		}
	}()

	fields, stepErr := fn()
	if stepErr != nil {
		endMessage = joinFields(
			auditlog.Fields("result", "NG", "reason", common.CodeOf(stepErr, "UNKNOWN")),
			fields,
			auditlog.FormatError(stepErr).Fields(),
		)
		return stepErr
	}

	endMessage = joinFields("result=OK", fields)
	return nil
}

func joinFields(parts ...string) string {
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func okNG(ok bool) string {
	if ok {
		return "OK"
	}
	return "NG"
}
