package models

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Settings are the user-editable settings persisted in the settings store.
// All paths are vault-relative except EnvPath, which is a filesystem path
// (absolute, "~/..." or relative to the vault root) so secrets can live
// outside the vault.
type Settings struct {
	LogDir           string `json:"log_dir" validate:"omitempty,vaultpath"`
	SystemPromptPath string `json:"system_prompt_path" validate:"omitempty,vaultpath"`
	TemplatePath     string `json:"template_path" validate:"omitempty,vaultpath"`
	EnvPath          string `json:"env_path"`
	SummaryEnabled   bool   `json:"summary_enabled"`
}

// DefaultSettings returns settings for a fresh install
func DefaultSettings() Settings {
	return Settings{
		SummaryEnabled: true,
	}
}

// SettingsKeys lists the keys accepted by Settings.Set
var SettingsKeys = []string{"log_dir", "system_prompt_path", "template_path", "env_path", "summary_enabled"}

// Set assigns a single setting by key
func (s *Settings) Set(key, value string) error {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "log_dir":
		s.LogDir = strings.TrimSpace(value)
	case "system_prompt_path":
		s.SystemPromptPath = strings.TrimSpace(value)
	case "template_path":
		s.TemplatePath = strings.TrimSpace(value)
	case "env_path":
		s.EnvPath = strings.TrimSpace(value)
	case "summary_enabled":
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("summary_enabled must be true or false: %w", err)
		}
		s.SummaryEnabled = enabled
	default:
		return fmt.Errorf("unknown setting '%s' (valid: %s)", key, strings.Join(SettingsKeys, ", "))
	}
	return nil
}

var settingsValidator = newSettingsValidator()

func newSettingsValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("vaultpath", func(fl validator.FieldLevel) bool {
		return IsVaultRelativePath(fl.Field().String())
	})
	return v
}

// Validate validates the settings using go-playground/validator.
func (s *Settings) Validate() error {
	return settingsValidator.Struct(s)
}

// IsVaultRelativePath reports whether p stays inside the vault: not absolute,
// not home-relative and never climbing above the root.
func IsVaultRelativePath(p string) bool {
	p = strings.TrimSpace(p)
	if p == "" {
		return false
	}
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") || strings.HasPrefix(p, "~") {
		return false
	}
	// Windows drive letters
	if len(p) >= 2 && p[1] == ':' {
		return false
	}
	cleaned := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	return cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}
