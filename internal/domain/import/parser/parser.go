// Package parser converts a raw CSV page into a structured table and provides
// the value-level parsing helpers implementations use to turn page fragments
// into activity fields. Every helper failure is a parser error (status 3).
package parser

import (
	"encoding/csv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/sniffer"
	"github.com/FACorreiaa/activity-importer/pkg/money"
)

// NormalizeCSV turns the single page of a CSV document into a table keyed by
// header name. Metadata lines above the header row are dropped.
func NormalizeCSV(page document.Page) (*document.Table, error) {
	cfg, err := sniffer.DetectConfig(page)
	if err != nil {
		return nil, importerr.WrapParserError(err, "failed to detect csv layout")
	}

	lines := page[cfg.SkipLines:]
	table := &document.Table{
		Delimiter:   cfg.Delimiter,
		Headers:     cfg.Headers,
		Fingerprint: cfg.Fingerprint,
		Lines:       lines,
		Records:     make([]map[string]string, 0, len(lines)-1),
		SkipLines:   cfg.SkipLines,
	}

	for i, line := range lines[1:] {
		fields, err := sniffer.SplitLine(line, cfg.Delimiter)
		if err != nil {
			return nil, importerr.WrapParserError(err, "line %d", table.SourceLine(i))
		}
		record := make(map[string]string, len(cfg.Headers))
		for col, header := range cfg.Headers {
			if col < len(fields) {
				record[header] = strings.TrimSpace(fields[col])
			} else {
				record[header] = ""
			}
		}
		table.Records = append(table.Records, record)
	}

	return table, nil
}

// Decode unmarshals the table rows into out (a pointer to a slice of structs
// tagged with `csv:"<header>"`).
func Decode(table *document.Table, out any) error {
	if table == nil {
		return importerr.NewParserError("no csv table to decode")
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(table.Lines, "\n")))
	reader.Comma = table.Delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	if err := gocsv.UnmarshalCSV(reader, out); err != nil {
		return importerr.WrapParserError(err, "failed to decode csv rows")
	}
	return nil
}

// ParseNumber parses an amount in European ("1.234,56") or US ("1,234.56")
// notation.
func ParseNumber(s string, european bool) (decimal.Decimal, error) {
	d, err := money.ParseDecimal(s, european)
	if err != nil {
		return decimal.Zero, importerr.WrapParserError(err, "invalid number %q", s)
	}
	return d, nil
}

// ParseGermanNumber parses an amount in German notation ("1.234,56").
func ParseGermanNumber(s string) (decimal.Decimal, error) {
	return ParseNumber(s, true)
}

// ParseOptionalNumber returns zero for blank input.
func ParseOptionalNumber(s string, european bool) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return ParseNumber(s, european)
}

var dateFormats = []string{
	"2006-01-02",           // ISO 8601
	"02.01.2006",           // DD.MM.YYYY (German)
	"02.01.06",             // DD.MM.YY
	"02/01/2006",           // DD/MM/YYYY (European)
	"01/02/2006",           // MM/DD/YYYY (American)
	"02-01-2006",           // DD-MM-YYYY
	"2006/01/02",           // YYYY/MM/DD
	"2006-01-02T15:04:05Z", // ISO 8601 with time
	"2006-01-02 15:04:05",  // ISO with space
}

// ParseDate parses a calendar date. Preferred layouts are tried first, then
// the common statement layouts.
func ParseDate(s string, preferred ...string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, importerr.NewParserError("empty date")
	}

	layouts := make([]string, 0, len(preferred)+len(dateFormats))
	layouts = append(append(layouts, preferred...), dateFormats...)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, importerr.NewParserError("unrecognized date %q", s)
}

// ParseDateTime combines a date and a wall-clock time ("15:04" or
// "15:04:05") in loc.
func ParseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	clock = strings.TrimSpace(clock)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if c, err := time.Parse(layout, clock); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, loc), nil
		}
	}
	return time.Time{}, importerr.NewParserError("unrecognized time %q", clock)
}

// Coalesce returns the first non-empty string
func Coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// CleanDescription collapses runs of whitespace and trims the result.
func CleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// MustHave fails with a parser error when value is blank.
func MustHave(value, field string) (string, error) {
	if v := strings.TrimSpace(value); v != "" {
		return v, nil
	}
	return "", importerr.NewParserError("missing %s", field)
}

// Currency normalizes a currency code and rejects unknown ones.
func Currency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !money.IsKnownCurrency(code) {
		return "", importerr.NewParserError("unknown currency %q", code)
	}
	return code, nil
}

// LineError annotates err with a 1-based line number as a parser error.
// Typed errors of other kinds pass through unchanged.
func LineError(line int, err error) error {
	if kind, ok := importerr.KindOf(err); ok && kind != importerr.KindParser {
		return err
	}
	return importerr.WrapParserError(err, "line %d", line)
}
