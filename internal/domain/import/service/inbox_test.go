package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/activity"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
	"github.com/FACorreiaa/activity-importer/pkg/money"
	"github.com/FACorreiaa/activity-importer/pkg/storage"
)

// contentPages turns the raw file bytes into a single page.
type contentPages struct{}

func (contentPages) Extract(_ context.Context, file document.File) (*document.ParsedFile, error) {
	return &document.ParsedFile{Pages: []document.Page{{string(file.Data)}}, Extension: file.Extension()}, nil
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	inbox := filepath.Join(root, "inbox")
	archive := filepath.Join(root, "archive")

	store, err := storage.NewLocalStorage(inbox, archive)
	require.NoError(t, err)

	for name, body := range map[string]string{
		"good.pdf":  "GOOD BANK",
		"other.pdf": "unknown bank",
		"notes.txt": "GOOD BANK",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(inbox, name), []byte(body), 0644))
	}

	g := money.NewTestDataGeneratorWithSeed(3)
	impl := &fakeImpl{
		name: "good",
		detect: func(pages []document.Page, _ document.Extension) bool {
			return strings.Contains(pages[0].Text(), "GOOD")
		},
		parse: returns([]*activity.Activity{newActivity(g)}, 0),
	}
	svc := newService(contentPages{}, impl)

	report, err := svc.Sweep(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Processed: 3, Succeeded: 1, Failed: 2}, report)

	remaining, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	statuses := map[string]importerr.Status{}
	for _, disposition := range []storage.Disposition{storage.Succeeded, storage.Failed} {
		sidecars, err := filepath.Glob(filepath.Join(archive, string(disposition), "*.outcome.json"))
		require.NoError(t, err)
		for _, path := range sidecars {
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			var out Outcome
			require.NoError(t, json.Unmarshal(data, &out))
			statuses[out.File] = out.Status
			assert.Equal(t, disposition == storage.Succeeded, out.Successful, out.File)
		}
	}

	assert.Equal(t, map[string]importerr.Status{
		"good.pdf":  importerr.StatusOK,
		"other.pdf": importerr.StatusNoImplementation,
		"notes.txt": importerr.StatusUnsupportedType,
	}, statuses)
	assert.Equal(t, int32(1), impl.calls.Load())
}

func TestSweep_EmptyInbox(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewLocalStorage(filepath.Join(root, "in"), filepath.Join(root, "out"))
	require.NoError(t, err)

	report, err := newService(contentPages{}).Sweep(context.Background(), store)
	require.NoError(t, err)
	assert.Zero(t, report)
}
