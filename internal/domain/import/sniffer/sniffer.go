// Package sniffer detects the layout of CSV statement exports: delimiter,
// header row, a header fingerprint for logging unknown formats, and the
// regional number/date dialect of the data rows.
package sniffer

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
)

// Common header keywords of broker and portfolio exports (multi-language)
var headerKeywords = []string{
	// German
	"datum", "typ", "wertpapier", "stück", "stueck", "kurs", "betrag", "gebühren", "steuern", "währung",
	// English
	"date", "type", "isin", "wkn", "shares", "quantity", "price", "quote", "amount", "value", "fee", "tax", "currency",
	"security", "description", "status",
}

// FileConfig holds the detected configuration of a CSV page.
type FileConfig struct {
	Delimiter   rune       // The field delimiter (';', ',', '\t', '|')
	SkipLines   int        // Number of metadata lines before headers
	Headers     []string   // Detected header names
	Fingerprint string     // SHA256 hash of normalized headers
	SampleRows  [][]string // First few data rows
}

// RegionalDialect represents inferred regional formatting for amounts and dates
type RegionalDialect struct {
	DecimalSeparator   rune    // '.' (US) or ',' (EU)
	ThousandsSeparator rune    // ',' (US) or '.' (EU)
	DateFormat         string  // "DD/MM/YYYY" or "MM/DD/YYYY"
	CurrencyHint       string  // "EUR", "USD" if detected
	Confidence         float64 // 0.0-1.0 confidence score
	IsEuropeanFormat   bool    // Convenience flag: true if comma is decimal separator
}

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrNoHeadersFound   = errors.New("could not find data headers")
	ErrInvalidDelimiter = errors.New("could not detect valid delimiter")
)

const (
	maxHeaderSearchLines = 20
	sampleRowCount       = 5
)

// DetectConfig analyzes the lines of a CSV page and returns its configuration.
func DetectConfig(lines []string) (*FileConfig, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}

	delimiter, skipLines, err := findHeaderRow(lines)
	if err != nil {
		return nil, err
	}

	headers, err := SplitLine(cleanLine(lines[skipLines], skipLines == 0), delimiter)
	if err != nil {
		return nil, err
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	return &FileConfig{
		Delimiter:   delimiter,
		SkipLines:   skipLines,
		Headers:     headers,
		Fingerprint: generateFingerprint(headers),
		SampleRows:  getSampleRows(lines, delimiter, skipLines+1, sampleRowCount),
	}, nil
}

// SplitLine splits a single CSV line with the given delimiter, honoring quotes.
func SplitLine(line string, delimiter rune) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader.Read()
}

// ProbeDialect analyzes sample rows to infer the regional "dialect" of the file.
// It examines amount columns for decimal separators and date columns for format.
func ProbeDialect(sampleRows [][]string, amountIdx int, dateIdx int) *RegionalDialect {
	dialect := &RegionalDialect{
		DecimalSeparator:   '.',
		ThousandsSeparator: ',',
		DateFormat:         "MM/DD/YYYY",
		Confidence:         0.5,
	}

	europeanHints := 0
	usHints := 0
	dateIsDD := false
	dateIsMM := false

	for _, row := range sampleRows {
		if amountIdx >= 0 && amountIdx < len(row) {
			if hint := analyzeAmountFormat(row[amountIdx]); hint > 0 {
				europeanHints++
			} else if hint < 0 {
				usHints++
			}
		}

		if dateIdx >= 0 && dateIdx < len(row) && row[dateIdx] != "" {
			if analyzeDateFormat(row[dateIdx]) {
				dateIsDD = true
			} else if strings.ContainsAny(row[dateIdx], "/") {
				dateIsMM = true
			}
		}

		for _, cell := range row {
			if strings.Contains(cell, "€") {
				dialect.CurrencyHint = "EUR"
				europeanHints++
			} else if strings.Contains(cell, "$") {
				if dialect.CurrencyHint == "" {
					dialect.CurrencyHint = "USD"
				}
				usHints++
			}
		}
	}

	if europeanHints > usHints {
		dialect.DecimalSeparator = ','
		dialect.ThousandsSeparator = '.'
		dialect.IsEuropeanFormat = true
	}

	if totalHints := europeanHints + usHints; totalHints > 0 {
		winningHints := europeanHints
		if usHints > europeanHints {
			winningHints = usHints
		}
		dialect.Confidence = float64(winningHints) / float64(totalHints)
	}

	switch {
	case dateIsDD && !dateIsMM:
		dialect.DateFormat = "DD/MM/YYYY"
	case !dateIsDD && dateIsMM:
		dialect.DateFormat = "MM/DD/YYYY"
	case dialect.IsEuropeanFormat:
		// Ambiguous - default to European if other hints suggest it
		dialect.DateFormat = "DD/MM/YYYY"
	}

	return dialect
}

// analyzeAmountFormat returns: >0 for European, <0 for US, 0 for ambiguous
func analyzeAmountFormat(val string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, val)
	cleaned = strings.TrimPrefix(cleaned, "-")
	if cleaned == "" {
		return 0
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		// Both present: last one is decimal separator
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			return 1
		}
		return -1
	case hasComma:
		if len(cleaned)-strings.LastIndex(cleaned, ",")-1 <= 2 {
			return 1
		}
	case hasDot:
		if len(cleaned)-strings.LastIndex(cleaned, ".")-1 <= 2 {
			return -1
		}
	}
	return 0
}

// analyzeDateFormat returns true if the date is definitely DD-first (day > 12)
func analyzeDateFormat(dateVal string) bool {
	parts := strings.FieldsFunc(dateVal, func(r rune) bool {
		return r == '/' || r == '-' || r == '.'
	})
	if len(parts) < 2 || len(parts[0]) == 4 {
		return false
	}

	day := 0
	for _, c := range strings.TrimSpace(parts[0]) {
		if c < '0' || c > '9' {
			break
		}
		day = day*10 + int(c-'0')
	}
	return day > 12 && day <= 31
}

// findHeaderRow locates the header row and its delimiter
func findHeaderRow(lines []string) (rune, int, error) {
	fallbackIndex, fallbackCount := -1, 0
	fallbackDelimiter := rune(0)

	keywordIndex, keywordCount, keywordScore := -1, 0, 0
	keywordDelimiter := rune(0)

	for i, line := range lines {
		if i > maxHeaderSearchLines {
			break
		}

		line = cleanLine(line, i == 0)
		if line == "" {
			continue
		}

		delimiter, count := detectDelimiter(line)
		if count < 1 {
			continue
		}

		lineLower := strings.ToLower(line)
		keywordMatches := 0
		for _, kw := range headerKeywords {
			if strings.Contains(lineLower, kw) {
				keywordMatches++
			}
		}

		if keywordMatches > 0 {
			// Prefer lines with more columns, then more keyword matches
			score := count*10 + keywordMatches
			if keywordIndex == -1 || score > keywordScore {
				keywordIndex, keywordCount, keywordScore = i, count, score
				keywordDelimiter = delimiter
			}
		} else if count > fallbackCount {
			fallbackIndex, fallbackCount = i, count
			fallbackDelimiter = delimiter
		}
	}

	if keywordIndex >= 0 && keywordCount >= 2 {
		return keywordDelimiter, keywordIndex, nil
	}
	if fallbackIndex >= 0 && fallbackCount >= 2 {
		return fallbackDelimiter, fallbackIndex, nil
	}
	if keywordIndex >= 0 || fallbackIndex >= 0 {
		return 0, 0, ErrNoHeadersFound
	}
	return 0, 0, ErrInvalidDelimiter
}

func cleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\ufeff")
	}
	return strings.TrimSpace(line)
}

func detectDelimiter(line string) (rune, int) {
	bestDelimiter := rune(0)
	bestCount := 0
	for _, d := range []rune{';', '\t', ',', '|'} {
		if count := strings.Count(line, string(d)); count > bestCount {
			bestCount = count
			bestDelimiter = d
		}
	}
	return bestDelimiter, bestCount
}

// generateFingerprint creates a stable hash from header names
func generateFingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}

// getSampleRows returns the first maxRows data rows starting at startLine
func getSampleRows(lines []string, delimiter rune, startLine, maxRows int) [][]string {
	var rows [][]string
	for i := startLine; i < len(lines) && len(rows) < maxRows; i++ {
		record, err := SplitLine(lines[i], delimiter)
		if err != nil {
			continue
		}
		rows = append(rows, record)
	}
	return rows
}
