package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/pkg/storage"
)

// SweepReport summarizes one pass over the inbox.
type SweepReport struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
}

// Sweep processes every file waiting in the inbox and archives it with its
// outcome. Files that cannot be read are left in place and counted as
// skipped.
func (s *Service) Sweep(ctx context.Context, store storage.Storage) (SweepReport, error) {
	var report SweepReport

	infos, err := store.List(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list inbox: %w", err)
	}
	if len(infos) == 0 {
		return report, nil
	}

	files := make([]document.File, 0, len(infos))
	readable := make([]*storage.FileInfo, 0, len(infos))
	for _, info := range infos {
		data, err := store.Read(ctx, info)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping unreadable inbox file",
				slog.String("file", info.Name),
				slog.Any("error", err),
			)
			report.Skipped++
			continue
		}
		files = append(files, document.File{Name: info.Name, Data: data})
		readable = append(readable, info)
	}

	outcomes := s.ProcessBatch(ctx, files)
	for i, outcome := range outcomes {
		disposition := storage.Failed
		if outcome.Successful {
			disposition = storage.Succeeded
		}
		if _, err := store.Archive(ctx, readable[i], disposition, outcome); err != nil {
			s.logger.ErrorContext(ctx, "failed to archive inbox file",
				slog.String("file", outcome.File),
				slog.Any("error", err),
			)
			report.Skipped++
			continue
		}
		report.Processed++
		if outcome.Successful {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	s.logger.InfoContext(ctx, "inbox sweep completed",
		slog.Int("processed", report.Processed),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
	)
	return report, nil
}
