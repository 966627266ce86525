// Package storage provides the document inbox scanned by watch mode and the
// archive processed documents are moved into.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Path      string    `json:"path"` // Internal storage path
	CreatedAt time.Time `json:"created_at"`
}

// Disposition is the archive bucket a processed file is filed under.
type Disposition string

const (
	Succeeded Disposition = "succeeded"
	Failed    Disposition = "failed"
)

// Storage defines the interface for inbox and archive operations
type Storage interface {
	// List returns the files waiting in the inbox, sorted by name
	List(ctx context.Context) ([]*FileInfo, error)

	// Read returns the content of an inbox file
	Read(ctx context.Context, info *FileInfo) ([]byte, error)

	// Archive moves an inbox file under disposition and writes outcome next
	// to it as JSON
	Archive(ctx context.Context, info *FileInfo, disposition Disposition, outcome any) (*FileInfo, error)
}

// Config holds storage configuration
type Config struct {
	InboxDir   string
	ArchiveDir string
}

// New creates the local filesystem storage
func New(cfg *Config) (Storage, error) {
	return NewLocalStorage(cfg.InboxDir, cfg.ArchiveDir)
}
