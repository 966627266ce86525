package service

import (
	"strings"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/implementation"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
)

// Selector picks the single implementation that recognizes a document.
type Selector struct {
	impls    []implementation.Implementation
	accepted document.ExtensionSet
}

// NewSelector returns a selector over impls that only admits the accepted
// extensions.
func NewSelector(impls []implementation.Implementation, accepted document.ExtensionSet) *Selector {
	return &Selector{impls: impls, accepted: accepted}
}

// Accepts reports whether ext passes the extension gate.
func (s *Selector) Accepts(ext document.Extension) bool {
	return s.accepted.Accepts(string(ext))
}

// Implementations returns the registry the selector chooses from.
func (s *Selector) Implementations() []implementation.Implementation {
	return s.impls
}

// Select returns the one implementation whose Detect accepts the pages.
// It fails with status 4 for an unaccepted extension, status 1 for an empty
// document or no match and status 2 when several implementations match.
func (s *Selector) Select(pages []document.Page, fileName string, ext document.Extension) (implementation.Implementation, error) {
	if ext == "" {
		ext = document.ExtensionOf(fileName)
	}
	ext = document.NormalizeExt(string(ext))

	if !s.Accepts(ext) {
		return nil, importerr.NewDocumentError(importerr.StatusUnsupportedType,
			"%s: unsupported file type %q", fileName, ext)
	}
	if isEmpty(pages) {
		return nil, importerr.NewDocumentError(importerr.StatusNoImplementation,
			"%s: document has no content", fileName)
	}

	var matches []implementation.Implementation
	for _, impl := range s.impls {
		if impl.Detect(pages, ext) {
			matches = append(matches, impl)
		}
	}

	switch len(matches) {
	case 0:
		return nil, importerr.NewDocumentError(importerr.StatusNoImplementation,
			"%s: no implementation found", fileName)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name()
		}
		return nil, importerr.NewDocumentError(importerr.StatusAmbiguous,
			"%s: multiple implementations matched: %s", fileName, strings.Join(names, ", "))
	}
}

func isEmpty(pages []document.Page) bool {
	for _, p := range pages {
		if len(p) > 0 {
			return false
		}
	}
	return true
}
