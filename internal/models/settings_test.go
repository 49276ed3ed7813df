package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		wantErr  bool
	}{
		{name: "defaults", settings: DefaultSettings()},
		{name: "relative paths", settings: Settings{LogDir: "logs", SystemPromptPath: "prompts/system.md", EnvPath: ".env"}},
		{name: "absolute log dir", settings: Settings{LogDir: "/var/log"}, wantErr: true},
		{name: "home prompt", settings: Settings{SystemPromptPath: "~/prompt.md"}, wantErr: true},
		{name: "escaping template", settings: Settings{TemplatePath: "../templates/paper.md"}, wantErr: true},
		{name: "env outside vault", settings: Settings{EnvPath: "~/.config/paperextractor/.env"}},
		{name: "drive letter", settings: Settings{TemplatePath: "C:\\tpl.md"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultSettings_SummaryEnabled(t *testing.T) {
	assert.True(t, DefaultSettings().SummaryEnabled)
}

func TestIsVaultRelativePath(t *testing.T) {
	assert.True(t, IsVaultRelativePath("a/b/c.md"))
	assert.True(t, IsVaultRelativePath("a/../b.md"))
	assert.False(t, IsVaultRelativePath(""))
	assert.False(t, IsVaultRelativePath(".."))
	assert.False(t, IsVaultRelativePath("a/../../b"))
}

func TestSettingsSet(t *testing.T) {
	s := DefaultSettings()

	assert.NoError(t, s.Set("log_dir", " logs "))
	assert.NoError(t, s.Set("SUMMARY_ENABLED", "false"))
	assert.NoError(t, s.Set("env_path", ".env"))

	assert.Equal(t, "logs", s.LogDir)
	assert.False(t, s.SummaryEnabled)
	assert.Equal(t, ".env", s.EnvPath)

	assert.Error(t, s.Set("summary_enabled", "maybe"))
	assert.Error(t, s.Set("colour", "blue"))
}
