package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/paperextractor/internal/common"
)

// ResolveNotePath maps a note argument onto a vault path. Absolute and
// "~/" paths are converted relative to the vault root; a relative path is
// taken as vault-relative unless only a file relative to the working
// directory exists.
func (a *App) ResolveNotePath(ctx context.Context, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			arg = filepath.Join(home, arg[2:])
		}
	}

	if !filepath.IsAbs(arg) {
		if exists, err := a.Vault.Exists(ctx, filepath.ToSlash(arg)); err == nil && exists {
			return filepath.ToSlash(arg), nil
		}
		if _, err := os.Stat(arg); err != nil {
			return filepath.ToSlash(arg), nil
		}
	}

	rel, err := a.Vault.RelPath(arg)
	if err != nil {
		return "", common.NewCodedError("NOTE_OUTSIDE_VAULT", "Note is outside the vault: "+arg, err)
	}
	return rel, nil
}
