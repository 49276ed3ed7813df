// -----------------------------------------------------------------------
// App - wires configuration, storage and the workflow services
// -----------------------------------------------------------------------

package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/arxiv"
	"github.com/ternarybob/paperextractor/internal/auditlog"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/ternarybob/paperextractor/internal/interfaces"
	"github.com/ternarybob/paperextractor/internal/services/fetch"
	"github.com/ternarybob/paperextractor/internal/services/llm"
	"github.com/ternarybob/paperextractor/internal/services/pdf"
	"github.com/ternarybob/paperextractor/internal/services/summary"
	"github.com/ternarybob/paperextractor/internal/services/title"
	"github.com/ternarybob/paperextractor/internal/services/transform"
	"github.com/ternarybob/paperextractor/internal/storage/badger"
	"github.com/ternarybob/paperextractor/internal/storage/filesystem"
)

// App holds all application components and dependencies
type App struct {
	Config   *common.Config
	Logger   arbor.ILogger
	Notifier interfaces.Notifier

	// Storage
	Vault           *filesystem.Vault
	DB              *badger.BadgerDB
	SettingsStorage interfaces.SettingsStorage
	AuditLog        *auditlog.Logger

	// Outbound clients
	ArxivClient *arxiv.Client
	Resolver    *llm.Resolver

	// Step services
	TitleService     *title.Service
	FetchService     *fetch.Service
	TransformService interfaces.TransformService
	SummaryService   *summary.Service
	PDFService       interfaces.PDFService

	Orchestrator *Orchestrator
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger, notifier interfaces.Notifier) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Notifier: notifier,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.initServices()

	logger.Debug().
		Str("vault", app.Vault.Root()).
		Str("settings", cfg.Storage.Badger.Path).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage opens the vault and the settings store
func (a *App) initStorage() error {
	vault, err := filesystem.NewVault(a.Config.Vault.Root, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	a.Vault = vault

	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to open settings store: %w", err)
	}
	a.DB = db
	a.SettingsStorage = badger.NewSettingsStorage(db, a.Logger)

	a.AuditLog = auditlog.NewLogger(vault, a.Logger)
	return nil
}

// initServices creates the step services in dependency order
func (a *App) initServices() {
	cfg := a.Config

	a.ArxivClient = arxiv.NewClient(
		arxiv.WithBaseURL(cfg.Arxiv.BaseURL),
		arxiv.WithUserAgent(cfg.Arxiv.UserAgent),
		arxiv.WithHTTPClient(&http.Client{Timeout: common.ParseDurationOr(cfg.Arxiv.Timeout, arxiv.DefaultTimeout)}),
		arxiv.WithRequestInterval(common.ParseDurationOr(cfg.Arxiv.RequestInterval, time.Second)),
		arxiv.WithLogger(a.Logger),
	)

	a.Resolver = llm.NewResolver(llm.NewResolverOptionsFromConfig(cfg, a.Logger))

	a.TitleService = title.NewService(a.Vault, a.ArxivClient, a.Logger)
	a.FetchService = fetch.NewService(a.Vault, a.ArxivClient, a.Logger)
	a.TransformService = transform.NewService(a.Logger)

	summaryOptions := summary.NewOptionsFromConfig(cfg)
	summaryOptions.EnvBaseDir = a.Vault.Root()
	a.SummaryService = summary.NewService(
		a.Vault,
		a.Resolver,
		a.TransformService,
		a.Notifier,
		summaryOptions,
		a.Logger,
	)
	a.PDFService = pdf.NewService(a.Logger, cfg.Export.FontPath)

	a.Orchestrator = NewOrchestrator(
		a.Vault,
		a.SettingsStorage,
		a.AuditLog,
		a.TitleService,
		a.FetchService,
		a.SummaryService,
		a.Notifier,
		a.Logger,
	)
}

// Close closes all application resources
func (a *App) Close() error {
	if a.SettingsStorage != nil {
		if err := a.SettingsStorage.Close(); err != nil {
			return fmt.Errorf("failed to close settings store: %w", err)
		}
		a.Logger.Debug().Msg("Settings store closed")
	}
	return nil
}
