// Package filesystem provides the os-backed vault used by the CLI.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/interfaces"
)

// Vault implements interfaces.Vault on a directory tree
type Vault struct {
	root   string
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.Vault = (*Vault)(nil)

// NewVault creates a vault rooted at root
func NewVault(root string, logger arbor.ILogger) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault root %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault root %s is not accessible: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", abs)
	}

	return &Vault{root: abs, logger: logger}, nil
}

// Root returns the absolute vault root
func (v *Vault) Root() string {
	return v.root
}

// RelPath converts an OS path (absolute or cwd-relative) into a vault-relative path
func (v *Vault) RelPath(osPath string) (string, error) {
	abs, err := filepath.Abs(osPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(v.root, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside the vault %s", osPath, v.root)
	}
	return rel, nil
}

// resolve maps a vault path onto the filesystem, refusing paths that escape the root
func (v *Vault) resolve(p string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	if cleaned == "/" {
		return v.root, nil
	}
	return filepath.Join(v.root, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}

func (v *Vault) Read(ctx context.Context, p string) (string, error) {
	data, err := v.ReadBytes(ctx, p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (v *Vault) ReadBytes(ctx context.Context, p string) ([]byte, error) {
	full, err := v.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

func (v *Vault) Write(ctx context.Context, p string, content string) error {
	return v.WriteBytes(ctx, p, []byte(content))
}

func (v *Vault) WriteBytes(ctx context.Context, p string, data []byte) error {
	full, err := v.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create parent folder for %s: %w", p, err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

func (v *Vault) Rename(ctx context.Context, oldPath, newPath string) error {
	from, err := v.resolve(oldPath)
	if err != nil {
		return err
	}
	to, err := v.resolve(newPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(from); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", oldPath, interfaces.ErrNotFound)
	}
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("%s: %w", newPath, interfaces.ErrAlreadyExists)
	}

	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("failed to create parent folder for %s: %w", newPath, err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", oldPath, newPath, err)
	}

	if v.logger != nil {
		v.logger.Debug().Str("from", oldPath).Str("to", newPath).Msg("Renamed vault entry")
	}
	return nil
}

func (v *Vault) CreateFolder(ctx context.Context, p string) error {
	full, err := v.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, 0755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", p, err)
	}
	return nil
}

func (v *Vault) Exists(ctx context.Context, p string) (bool, error) {
	_, err := v.Stat(ctx, p)
	if errors.Is(err, interfaces.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (v *Vault) Stat(ctx context.Context, p string) (*interfaces.FileInfo, error) {
	full, err := v.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return &interfaces.FileInfo{
		Path:    p,
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}
