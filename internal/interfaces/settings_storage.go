package interfaces

import (
	"context"

	"github.com/ternarybob/paperextractor/internal/models"
)

// SettingsStorage persists the user-editable settings
type SettingsStorage interface {
	// Load returns the stored settings merged over defaults
	Load(ctx context.Context) (*models.Settings, error)

	// Save validates and stores settings
	Save(ctx context.Context, settings *models.Settings) error

	Close() error
}
