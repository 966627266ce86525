// Package document holds the data model shared by every stage of the import
// pipeline: source files, extracted pages, the structured CSV table and the
// accepted extension set.
package document

import (
	"path/filepath"
	"sort"
	"strings"
)

// Extension is a normalized (lowercase, dot-less) file extension.
type Extension string

const (
	ExtensionPDF Extension = "pdf"
	ExtensionCSV Extension = "csv"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) Extension {
	return Extension(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
}

// ExtensionOf returns the normalized extension of a file name.
func ExtensionOf(fileName string) Extension {
	return NormalizeExt(filepath.Ext(fileName))
}

// ExtensionSet is the whitelist of extensions the importer accepts.
type ExtensionSet map[Extension]struct{}

// DefaultExtensions returns the accepted set {pdf, csv}.
func DefaultExtensions() ExtensionSet {
	return NewExtensionSet(string(ExtensionPDF), string(ExtensionCSV))
}

// NewExtensionSet builds a set from raw extension strings; blanks are ignored.
func NewExtensionSet(exts ...string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, e := range exts {
		if n := NormalizeExt(e); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Accepts reports whether ext (any case, with or without dot) is in the set.
func (s ExtensionSet) Accepts(ext string) bool {
	_, ok := s[NormalizeExt(ext)]
	return ok
}

// List returns the extensions sorted alphabetically.
func (s ExtensionSet) List() []string {
	out := make([]string, 0, len(s))
	for e := range s {
		out = append(out, string(e))
	}
	sort.Strings(out)
	return out
}

// Page is one extracted page. For PDFs it holds the trimmed, non-empty text
// fragments of one physical page; for CSVs the trimmed, non-empty lines.
type Page []string

// Text joins the page fragments with newlines.
func (p Page) Text() string {
	return strings.Join(p, "\n")
}

// File is a source document submitted for import.
type File struct {
	Name string
	Data []byte
}

// Extension returns the normalized extension of the file name.
func (f File) Extension() Extension {
	return ExtensionOf(f.Name)
}

// ParsedFile is the output of page extraction. Pages are read-only after
// extraction.
type ParsedFile struct {
	Pages     []Page
	Extension Extension
}

// Content is what an implementation's Parse receives: the raw pages and,
// for CSV documents, the structured table built from the single CSV page.
type Content struct {
	Pages     []Page
	Extension Extension
	Table     *Table
}

// Table is the structured form of a CSV page.
type Table struct {
	Delimiter   rune
	Headers     []string
	Fingerprint string
	// Lines holds the header line followed by the data lines, as extracted.
	Lines   []string
	Records []map[string]string
	// SkipLines counts the metadata lines dropped above the header row.
	SkipLines int
}

// SourceLine returns the 1-based line of record i in the original file.
func (t *Table) SourceLine(i int) int {
	if t == nil {
		return i + 2
	}
	return t.SkipLines + i + 2
}

// Column returns the value of header in record i, or "" when absent.
func (t *Table) Column(i int, header string) string {
	if t == nil || i < 0 || i >= len(t.Records) {
		return ""
	}
	return t.Records[i][header]
}
