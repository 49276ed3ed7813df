package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/ternarybob/paperextractor/internal/notes"
	"github.com/ternarybob/paperextractor/internal/services/pdf"
	"github.com/ternarybob/paperextractor/internal/storage/filesystem"
)

func newExportApp(t *testing.T) *App {
	t.Helper()
	logger := arbor.NewLogger()
	vault, err := filesystem.NewVault(t.TempDir(), logger)
	require.NoError(t, err)
	return &App{
		Logger:     logger,
		Vault:      vault,
		PDFService: pdf.NewService(logger, ""),
	}
}

func TestExportSummary(t *testing.T) {
	a := newExportApp(t)
	ctx := context.Background()

	note := "###### url_01: https://arxiv.org/abs/2301.00001\n"
	note = notes.UpsertSummaryBlock(note, "## Summary\n\n- first point\n- second point")
	require.NoError(t, a.Vault.Write(ctx, "papers/Paper.md", note))

	written, err := a.ExportSummary(ctx, "papers/Paper.md", "")
	require.NoError(t, err)
	assert.Equal(t, "papers/Paper/2301.00001_summary.pdf", written)

	data, err := a.Vault.ReadBytes(ctx, written)
	require.NoError(t, err)
	info, err := pdf.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pages)

	custom, err := a.ExportSummary(ctx, "papers/Paper.md", "exports/out.pdf")
	require.NoError(t, err)
	assert.Equal(t, "exports/out.pdf", custom)
}

func TestExportSummary_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{"no summary block", "###### url_01: https://arxiv.org/abs/2301.00001\n", "SUMMARY_BLOCK_MISSING"},
		{"no url", notes.UpsertSummaryBlock("plain note\n", "text"), "URL_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newExportApp(t)
			ctx := context.Background()
			require.NoError(t, a.Vault.Write(ctx, "papers/Paper.md", tt.content))

			_, err := a.ExportSummary(ctx, "papers/Paper.md", "")
			require.Error(t, err)
			assert.Equal(t, tt.code, common.CodeOf(err, ""))
		})
	}

	t.Run("missing note", func(t *testing.T) {
		a := newExportApp(t)
		_, err := a.ExportSummary(context.Background(), "papers/Nope.md", "")
		assert.Equal(t, "NOTE_NOT_FOUND", common.CodeOf(err, ""))
	})
}
