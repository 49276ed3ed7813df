package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/paperextractor/internal/common"
	"github.com/ternarybob/paperextractor/internal/notes"
)

func TestResolveNotePath(t *testing.T) {
	a := newExportApp(t)
	ctx := context.Background()
	require.NoError(t, a.Vault.Write(ctx, "papers/Paper.md", "note"))

	tests := []struct {
		name string
		arg  string
		want string
	}{
		{"vault relative", "papers/Paper.md", "papers/Paper.md"},
		{"absolute", filepath.Join(a.Vault.Root(), "papers", "Paper.md"), "papers/Paper.md"},
		{"missing relative stays as given", "papers/Missing.md", "papers/Missing.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.ResolveNotePath(ctx, tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("outside vault", func(t *testing.T) {
		outside := filepath.Join(t.TempDir(), "other.md")
		require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))

		_, err := a.ResolveNotePath(ctx, outside)
		assert.Equal(t, "NOTE_OUTSIDE_VAULT", common.CodeOf(err, ""))
	})
}

func TestExportSummary_AbsoluteNotePath(t *testing.T) {
	a := newExportApp(t)
	ctx := context.Background()

	note := notes.UpsertSummaryBlock("###### url_01: https://arxiv.org/abs/2301.00001\n", "## Summary")
	require.NoError(t, a.Vault.Write(ctx, "papers/Paper.md", note))

	notePath, err := a.ResolveNotePath(ctx, filepath.Join(a.Vault.Root(), "papers", "Paper.md"))
	require.NoError(t, err)

	written, err := a.ExportSummary(ctx, notePath, "")
	require.NoError(t, err)
	assert.Equal(t, "papers/Paper/2301.00001_summary.pdf", written)
}
