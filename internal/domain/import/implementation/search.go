package implementation

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
)

// Lines flattens all pages into one fragment list.
func Lines(pages []document.Page) []string {
	var out []string
	for _, p := range pages {
		out = append(out, p...)
	}
	return out
}

// IndexOf returns the index of the first fragment that contains needle
// (case-insensitive) at or after from, or -1.
func IndexOf(lines []string, needle string, from int) int {
	needle = strings.ToUpper(needle)
	for i := max(from, 0); i < len(lines); i++ {
		if strings.Contains(strings.ToUpper(lines[i]), needle) {
			return i
		}
	}
	return -1
}

// After returns the fragment offset lines after the first one containing
// label, and whether it exists.
func After(lines []string, label string, offset int) (string, bool) {
	i := IndexOf(lines, label, 0)
	if i < 0 || i+offset >= len(lines) {
		return "", false
	}
	return lines[i+offset], true
}

// ValueAfter returns the text following label on the same fragment, or the
// next fragment when label ends its fragment.
func ValueAfter(lines []string, label string) (string, bool) {
	i := IndexOf(lines, label, 0)
	if i < 0 {
		return "", false
	}
	loc := regexp.MustCompile("(?i)" + regexp.QuoteMeta(label)).FindStringIndex(lines[i])
	if loc == nil {
		return "", false
	}
	rest := strings.TrimSpace(lines[i][loc[1]:])
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	if rest != "" {
		return rest, true
	}
	if i+1 < len(lines) {
		return lines[i+1], true
	}
	return "", false
}

// FindSubmatch returns the capture groups of the first fragment matching re.
func FindSubmatch(lines []string, re *regexp.Regexp) ([]string, bool) {
	for _, l := range lines {
		if m := re.FindStringSubmatch(l); m != nil {
			return m, true
		}
	}
	return nil, false
}
