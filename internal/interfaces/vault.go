package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a vault path does not exist
var ErrNotFound = errors.New("vault path not found")

// ErrAlreadyExists is returned when a rename or create would overwrite an existing entry
var ErrAlreadyExists = errors.New("vault path already exists")

// FileInfo describes a vault entry
type FileInfo struct {
	Path    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Vault is the hierarchical note store. Paths are vault-relative and use '/'.
type Vault interface {
	// Read returns the text content of a file
	Read(ctx context.Context, path string) (string, error)

	// ReadBytes returns the raw content of a file
	ReadBytes(ctx context.Context, path string) ([]byte, error)

	// Write creates or replaces a text file
	Write(ctx context.Context, path string, content string) error

	// WriteBytes creates or replaces a binary file
	WriteBytes(ctx context.Context, path string, data []byte) error

	// Rename moves a file, failing with ErrAlreadyExists if newPath is taken
	Rename(ctx context.Context, oldPath, newPath string) error

	// CreateFolder creates a folder and any missing parents
	CreateFolder(ctx context.Context, path string) error

	// Exists reports whether any entry exists at path
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns entry metadata, or ErrNotFound
	Stat(ctx context.Context, path string) (*FileInfo, error)
}
