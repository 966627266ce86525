package implementation

import (
	"strings"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/sniffer"
)

// CSVHeaders returns the lowercased header names of a single-page CSV
// document, or nil when the pages are not a recognizable CSV export.
func CSVHeaders(pages []document.Page, ext document.Extension) []string {
	if ext != document.ExtensionCSV || len(pages) != 1 {
		return nil
	}
	cfg, err := sniffer.DetectConfig(pages[0])
	if err != nil {
		return nil
	}
	headers := make([]string, len(cfg.Headers))
	for i, h := range cfg.Headers {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return headers
}

// HasColumns reports whether every required column appears in headers
// (case-insensitive).
func HasColumns(headers []string, required ...string) bool {
	if len(headers) == 0 {
		return false
	}
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.ToLower(h)] = true
	}
	for _, r := range required {
		if !present[strings.ToLower(r)] {
			return false
		}
	}
	return true
}
