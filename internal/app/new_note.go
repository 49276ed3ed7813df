package app

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/ternarybob/paperextractor/internal/arxiv"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/ternarybob/paperextractor/internal/interfaces"
	"github.com/ternarybob/paperextractor/internal/notes"
)

// NewNote creates "<dir>/<id>.md" from the configured template with the
// paper URL filled in. Returns the vault path of the new note.
func (a *App) NewNote(ctx context.Context, rawURL, dir string) (string, error) {
	arxivID, err := arxiv.ParseURL(rawURL)
	if err != nil {
		return "", common.NewCodedError("URL_INVALID", "Invalid arXiv URL.", err)
	}

	settings, err := a.SettingsStorage.Load(ctx)
	if err != nil {
		return "", common.NewCodedError("SETTINGS_LOAD_FAILED", "Failed to load settings.", err)
	}

	template := notes.DefaultTemplate
	if templatePath := strings.TrimSpace(settings.TemplatePath); templatePath != "" {
		template, err = a.Vault.Read(ctx, templatePath)
		if err != nil {
			return "", common.NewCodedError("TEMPLATE_READ_FAILED", "Failed to read note template: "+templatePath, err)
		}
	}

	content, err := notes.InjectURL(template, strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}

	notePath := path.Join(strings.Trim(dir, "/"), arxivID+".md")
	if _, err := a.Vault.Stat(ctx, notePath); err == nil {
		return "", common.Errorf("NOTE_EXISTS", "Note already exists: %s", notePath)
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return "", common.NewCodedError("NOTE_WRITE_FAILED", "Failed to check note.", err)
	}

	if err := a.Vault.Write(ctx, notePath, content); err != nil {
		return "", common.NewCodedError("NOTE_WRITE_FAILED", "Failed to write note.", err)
	}

	a.Logger.Info().Str("note", notePath).Str("arxiv_id", arxivID).Msg("Note created")
	return notePath, nil
}
