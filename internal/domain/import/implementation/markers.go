package implementation

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
)

// Markers matches a fixed set of literal phrases against page text in a
// single pass. Matching is case-insensitive and safe for concurrent use.
type Markers struct {
	matcher  *ahocorasick.Matcher
	patterns []string
}

// NewMarkers compiles patterns. Blank patterns are skipped.
func NewMarkers(patterns ...string) *Markers {
	m := &Markers{}
	bytePatterns := make([][]byte, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		m.patterns = append(m.patterns, p)
		bytePatterns = append(bytePatterns, []byte(p))
	}
	if len(bytePatterns) > 0 {
		m.matcher = ahocorasick.NewMatcher(bytePatterns)
	}
	return m
}

// Found returns the patterns that occur in text, in pattern order.
func (m *Markers) Found(text string) []string {
	if m == nil || m.matcher == nil {
		return nil
	}

	hits := m.matcher.MatchThreadSafe([]byte(strings.ToUpper(text)))
	seen := make(map[int]bool, len(hits))
	for _, idx := range hits {
		seen[idx] = true
	}

	found := make([]string, 0, len(seen))
	for i, p := range m.patterns {
		if seen[i] {
			found = append(found, p)
		}
	}
	return found
}

// Any reports whether at least one pattern occurs in text.
func (m *Markers) Any(text string) bool {
	return len(m.Found(text)) > 0
}

// All reports whether every pattern occurs in text.
func (m *Markers) All(text string) bool {
	return m != nil && len(m.patterns) > 0 && len(m.Found(text)) == len(m.patterns)
}

// InPages reports whether any pattern occurs on any page.
func (m *Markers) InPages(pages []document.Page) bool {
	return m.Any(JoinPages(pages))
}

// JoinPages concatenates all fragments of all pages, one per line.
func JoinPages(pages []document.Page) string {
	var b strings.Builder
	for _, p := range pages {
		for _, f := range p {
			b.WriteString(f)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
