// Package extractor turns a source file into ordered pages of text: PDF pages
// become trimmed text fragments, a CSV file becomes one page of lines.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
)

var (
	ErrEmptyFile            = errors.New("file is empty")
	ErrUnsupportedExtension = errors.New("no page extractor for extension")
	ErrUnreadablePDF        = errors.New("pdf could not be decoded")
)

// Extractor converts a source file into pages.
type Extractor interface {
	Extract(ctx context.Context, file document.File) (*document.ParsedFile, error)
}

// PageExtractor is the default Extractor for PDF and CSV files.
type PageExtractor struct{}

// New returns the default page extractor.
func New() *PageExtractor {
	return &PageExtractor{}
}

// Extract reads all pages of file in document order.
func (e *PageExtractor) Extract(ctx context.Context, file document.File) (*document.ParsedFile, error) {
	if len(file.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", file.Name, ErrEmptyFile)
	}

	ext := file.Extension()
	var (
		pages []document.Page
		err   error
	)
	switch ext {
	case document.ExtensionPDF:
		pages, err = extractPDF(file.Data)
	case document.ExtensionCSV:
		pages = []document.Page{splitLines(file.Data)}
	default:
		return nil, fmt.Errorf("%s: %w %q", file.Name, ErrUnsupportedExtension, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file.Name, err)
	}

	return &document.ParsedFile{Pages: pages, Extension: ext}, nil
}

// extractPDF decodes every physical page. A page without a content stream
// yields an empty Page so page indexes keep matching the document.
func extractPDF(data []byte) (pages []document.Page, err error) {
	// the pdf decoder panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrUnreadablePDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}

	total := reader.NumPage()
	pages = make([]document.Page, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, document.Page{})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrUnreadablePDF, i, err)
		}
		pages = append(pages, fragments(text))
	}
	return pages, nil
}

// fragments splits page text into trimmed, non-empty lines.
func fragments(text string) document.Page {
	lines := strings.Split(text, "\n")
	page := make(document.Page, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			page = append(page, line)
		}
	}
	return page
}

// splitLines returns the trimmed, non-empty lines of a CSV file. A UTF-8
// byte order mark on the first line is dropped.
func splitLines(data []byte) document.Page {
	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return fragments(strings.ReplaceAll(text, "\r", "\n"))
}
