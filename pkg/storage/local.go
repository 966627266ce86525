package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const outcomeSuffix = ".outcome.json"

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	inboxPath   string
	archivePath string
}

// NewLocalStorage creates the inbox and archive directories when missing
func NewLocalStorage(inboxPath, archivePath string) (*LocalStorage, error) {
	for _, dir := range []string{
		inboxPath,
		filepath.Join(archivePath, string(Succeeded)),
		filepath.Join(archivePath, string(Failed)),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return &LocalStorage{inboxPath: inboxPath, archivePath: archivePath}, nil
}

// List returns the regular, non-hidden files in the inbox
func (s *LocalStorage) List(ctx context.Context) ([]*FileInfo, error) {
	entries, err := os.ReadDir(s.inboxPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, &FileInfo{
			ID:        uuid.New(),
			Name:      entry.Name(),
			Size:      fi.Size(),
			Path:      filepath.Join(s.inboxPath, entry.Name()),
			CreatedAt: fi.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Read returns the content of an inbox file
func (s *LocalStorage) Read(ctx context.Context, info *FileInfo) ([]byte, error) {
	data, err := os.ReadFile(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", info.Name, err)
	}
	return data, nil
}

// Archive moves the file into archive/<disposition>/ under a unique name
// and writes the outcome sidecar
func (s *LocalStorage) Archive(ctx context.Context, info *FileInfo, disposition Disposition, outcome any) (*FileInfo, error) {
	if disposition != Succeeded && disposition != Failed {
		return nil, fmt.Errorf("unknown disposition %q", disposition)
	}

	// Sanitize filename and add UUID prefix for uniqueness
	storedFilename := fmt.Sprintf("%s_%s", info.ID.String()[:8], sanitizeFilename(info.Name))
	target := filepath.Join(s.archivePath, string(disposition), storedFilename)

	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outcome: %w", err)
	}

	if err := os.Rename(info.Path, target); err != nil {
		return nil, fmt.Errorf("failed to archive file: %w", err)
	}

	if err := os.WriteFile(target+outcomeSuffix, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write outcome: %w", err)
	}

	archived := *info
	archived.Path = target
	archived.CreatedAt = time.Now()
	return &archived, nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	// Replace path separators and other dangerous characters
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
