package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/interfaces"
	"github.com/ternarybob/paperextractor/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

const settingsKey = "settings"

// settingsRecord is the persisted form of models.Settings. Data holds the
// settings as JSON so keys missing from older records keep their defaults.
type settingsRecord struct {
	Key       string
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SettingsStorage implements interfaces.SettingsStorage on Badger
type SettingsStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.SettingsStorage = (*SettingsStorage)(nil)

// NewSettingsStorage creates a new SettingsStorage instance
func NewSettingsStorage(db *BadgerDB, logger arbor.ILogger) *SettingsStorage {
	return &SettingsStorage{
		db:     db,
		logger: logger,
	}
}

// Load returns the stored settings merged over the defaults
func (s *SettingsStorage) Load(ctx context.Context) (*models.Settings, error) {
	settings := models.DefaultSettings()

	var record settingsRecord
	err := s.db.Store().Get(settingsKey, &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return &settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if len(record.Data) > 0 {
		if err := json.Unmarshal(record.Data, &settings); err != nil {
			return nil, fmt.Errorf("failed to decode settings: %w", err)
		}
	}
	return &settings, nil
}

// Save validates and stores settings, preserving the original creation time
func (s *SettingsStorage) Save(ctx context.Context, settings *models.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	now := time.Now()
	record := settingsRecord{
		Key:       settingsKey,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var existing settingsRecord
	err = s.db.Store().Get(settingsKey, &existing)
	if err == nil {
		record.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to check existing settings: %w", err)
	}

	if err := s.db.Store().Upsert(settingsKey, &record); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.logger.Debug().
		Str("log_dir", settings.LogDir).
		Bool("summary_enabled", settings.SummaryEnabled).
		Msg("Settings saved")

	return nil
}

// Close closes the underlying database
func (s *SettingsStorage) Close() error {
	return s.db.Close()
}
