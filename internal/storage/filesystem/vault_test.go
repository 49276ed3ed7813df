package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/interfaces"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewVault(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)
	return v
}

func TestVault_WriteReadStat(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	require.NoError(t, v.Write(ctx, "papers/note.md", "hello"))

	content, err := v.Read(ctx, "papers/note.md")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	info, err := v.Stat(ctx, "papers")
	require.NoError(t, err)
	assert.True(t, info.IsDir)

	info, err = v.Stat(ctx, "papers/note.md")
	require.NoError(t, err)
	assert.False(t, info.IsDir)
	assert.Equal(t, int64(5), info.Size)
}

func TestVault_MissingPaths(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	_, err := v.Read(ctx, "absent.md")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = v.Stat(ctx, "absent.md")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	exists, err := v.Exists(ctx, "absent.md")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestVault_RenameRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	require.NoError(t, v.Write(ctx, "a.md", "a"))
	require.NoError(t, v.Write(ctx, "b.md", "b"))

	err := v.Rename(ctx, "a.md", "b.md")
	assert.ErrorIs(t, err, interfaces.ErrAlreadyExists)

	content, err := v.Read(ctx, "b.md")
	require.NoError(t, err)
	assert.Equal(t, "b", content)

	require.NoError(t, v.Rename(ctx, "a.md", "c.md"))
	exists, err := v.Exists(ctx, "a.md")
	require.NoError(t, err)
	assert.False(t, exists)

	err = v.Rename(ctx, "a.md", "d.md")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestVault_PathsStayInsideRoot(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	require.NoError(t, v.Write(ctx, "../../escape.md", "x"))

	_, err := os.Stat(filepath.Join(v.Root(), "escape.md"))
	assert.NoError(t, err, "parent references are clamped to the vault root")
}

func TestVault_RelPath(t *testing.T) {
	v := newTestVault(t)

	rel, err := v.RelPath(filepath.Join(v.Root(), "papers", "note.md"))
	require.NoError(t, err)
	assert.Equal(t, "papers/note.md", rel)

	_, err = v.RelPath(filepath.Dir(v.Root()))
	assert.Error(t, err)
}

func TestNewVault_RejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := NewVault(file, arbor.NewLogger())
	assert.Error(t, err)
}
