// Package portfolioperformance parses the "All transactions" CSV export of
// Portfolio Performance, in either its English or German variant.
package portfolioperformance

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/activity"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/implementation"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/parser"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/sniffer"
)

const Name = "portfolioperformance"

// maxTypeDistance bounds how far a type label may drift from a known label
// before it is rejected.
const maxTypeDistance = 2

// minFuzzyLength is the shortest label that is matched fuzzily.
const minFuzzyLength = 4

type column int

const (
	colDate column = iota
	colType
	colValue
	colCurrency
	colGross
	colGrossCurrency
	colFxRate
	colFees
	colTaxes
	colShares
	colISIN
	colWKN
	colTicker
	colName
	colNote
)

// aliases lists the English and German header of each column.
var aliases = map[column][]string{
	colDate:          {"date", "datum"},
	colType:          {"type", "typ"},
	colValue:         {"value", "wert"},
	colCurrency:      {"transaction currency", "buchungswährung"},
	colGross:         {"gross amount", "bruttobetrag"},
	colGrossCurrency: {"currency gross amount", "währung bruttobetrag"},
	colFxRate:        {"exchange rate", "wechselkurs"},
	colFees:          {"fees", "gebühren"},
	colTaxes:         {"taxes", "steuern"},
	colShares:        {"shares", "stück"},
	colISIN:          {"isin"},
	colWKN:           {"wkn"},
	colTicker:        {"ticker symbol", "ticker-symbol"},
	colName:          {"security name", "wertpapiername"},
	colNote:          {"note", "notiz"},
}

var requiredColumns = []column{colDate, colType, colValue, colShares, colISIN, colName}

// skip marks cash movements that have no activity equivalent.
const skip activity.Type = ""

var typeLabels = map[string]activity.Type{
	"buy":                  activity.TypeBuy,
	"kauf":                 activity.TypeBuy,
	"sell":                 activity.TypeSell,
	"verkauf":              activity.TypeSell,
	"dividend":             activity.TypeDividend,
	"dividends":            activity.TypeDividend,
	"dividende":            activity.TypeDividend,
	"interest":             activity.TypeInterest,
	"zinsen":               activity.TypeInterest,
	"fees":                 activity.TypeFee,
	"gebühren":             activity.TypeFee,
	"interest charge":      activity.TypeFee,
	"zinsbelastung":        activity.TypeFee,
	"taxes":                activity.TypeTax,
	"steuern":              activity.TypeTax,
	"fees refund":          activity.TypePayback,
	"gebührenerstattung":   activity.TypePayback,
	"tax refund":           activity.TypePayback,
	"steuerrückerstattung": activity.TypePayback,
	"delivery (inbound)":   activity.TypeTransferIn,
	"einlieferung":         activity.TypeTransferIn,
	"transfer (inbound)":   activity.TypeTransferIn,
	"umbuchung (eingang)":  activity.TypeTransferIn,
	"delivery (outbound)":  activity.TypeTransferOut,
	"auslieferung":         activity.TypeTransferOut,
	"transfer (outbound)":  activity.TypeTransferOut,
	"umbuchung (ausgang)":  activity.TypeTransferOut,
	"deposit":              skip,
	"einlage":              skip,
	"removal":              skip,
	"entnahme":             skip,
}

var knownLabels = func() []string {
	labels := make([]string, 0, len(typeLabels))
	for l := range typeLabels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}()

type App struct{}

func New() *App { return &App{} }

func (p *App) Name() string { return Name }

func (p *App) Kind() implementation.Kind { return implementation.KindApp }

func (p *App) Extensions() []document.Extension {
	return []document.Extension{document.ExtensionCSV}
}

func (p *App) Detect(pages []document.Page, ext document.Extension) bool {
	headers := implementation.CSVHeaders(pages, ext)
	if len(headers) == 0 {
		return false
	}
	idx := resolve(headers)
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return false
		}
	}
	return true
}

func (p *App) Parse(content document.Content) (implementation.Result, error) {
	table := content.Table
	if table == nil {
		return implementation.Result{}, importerr.NewParserError("portfolio performance export without table")
	}

	cols := resolve(table.Headers)
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return implementation.Result{}, importerr.NewParserError("missing column %q", aliases[c][0])
		}
	}

	r := reader{table: table, cols: cols}
	european, dateLayouts := r.dialect()

	activities := make([]*activity.Activity, 0, len(table.Records))
	for i := range table.Records {
		t, err := mapType(r.get(i, colType))
		if err != nil {
			return implementation.Result{}, parser.LineError(table.SourceLine(i), err)
		}
		if t == skip {
			continue
		}

		a, err := r.activity(i, t, european, dateLayouts)
		if err != nil {
			return implementation.Result{}, parser.LineError(table.SourceLine(i), err)
		}
		activities = append(activities, activity.Checked(a))
	}
	return implementation.OK(activities), nil
}

// resolve maps each known column to its header name as it appears in the
// export.
func resolve(headers []string) map[column]string {
	lower := make(map[string]string, len(headers))
	for _, h := range headers {
		lower[strings.ToLower(strings.TrimSpace(h))] = h
	}
	out := make(map[column]string, len(aliases))
	for c, names := range aliases {
		for _, n := range names {
			if h, ok := lower[n]; ok {
				out[c] = h
				break
			}
		}
	}
	return out
}

// mapType resolves a type label exactly first, then by fuzzy ranking
// against the known labels.
func mapType(label string) (activity.Type, error) {
	norm := strings.ToLower(strings.TrimSpace(label))
	if t, ok := typeLabels[norm]; ok {
		return t, nil
	}
	if norm == "" {
		return skip, importerr.NewParserError("empty transaction type")
	}
	if len([]rune(norm)) < minFuzzyLength {
		return skip, importerr.NewParserError("unknown transaction type %q", label)
	}

	ranks := fuzzy.RankFindNormalizedFold(norm, knownLabels)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		if best := ranks[0]; best.Distance <= maxTypeDistance {
			return typeLabels[best.Target], nil
		}
	}

	// typos the subsequence search misses, e.g. transposed letters
	best, bestDist := "", maxTypeDistance+1
	for _, l := range knownLabels {
		if d := fuzzy.LevenshteinDistance(norm, l); d < bestDist {
			best, bestDist = l, d
		}
	}
	if best != "" {
		return typeLabels[best], nil
	}
	return skip, importerr.NewParserError("unknown transaction type %q", label)
}

type reader struct {
	table *document.Table
	cols  map[column]string
}

func (r reader) get(i int, c column) string {
	h, ok := r.cols[c]
	if !ok {
		return ""
	}
	return strings.TrimSpace(r.table.Column(i, h))
}

// dialect infers the number and date notation from the first rows.
func (r reader) dialect() (bool, []string) {
	sample := make([][]string, 0, 5)
	for i := 0; i < len(r.table.Records) && len(sample) < 5; i++ {
		sample = append(sample, []string{r.get(i, colValue), r.get(i, colDate)})
	}
	d := sniffer.ProbeDialect(sample, 0, 1)

	european := d.IsEuropeanFormat
	if d.Confidence <= 0.5 {
		// no decisive hints: German headers imply German notation
		european = strings.EqualFold(r.cols[colDate], "datum")
	}

	layouts := []string{"2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02"}
	if d.DateFormat == "DD/MM/YYYY" || european {
		layouts = append(layouts, "02/01/2006")
	} else {
		layouts = append(layouts, "01/02/2006")
	}
	return european, layouts
}

func (r reader) activity(i int, t activity.Type, european bool, layouts []string) (*activity.Activity, error) {
	a := &activity.Activity{
		Broker:  Name,
		Type:    t,
		ISIN:    r.get(i, colISIN),
		WKN:     r.get(i, colWKN),
		Company: parser.CleanDescription(r.get(i, colName)),
	}

	raw := r.get(i, colDate)
	at, err := parser.ParseDate(raw, layouts...)
	if err != nil {
		return nil, err
	}
	a.Date = activity.Day(at)
	if strings.Contains(raw, "T") || strings.Contains(raw, ":") {
		a.Datetime = &at
	}

	num := func(c column) (decimal.Decimal, error) {
		return parser.ParseOptionalNumber(r.get(i, c), european)
	}

	var value decimal.Decimal
	if value, err = num(colValue); err != nil {
		return nil, err
	}
	if a.Shares, err = num(colShares); err != nil {
		return nil, err
	}
	if a.Fee, err = num(colFees); err != nil {
		return nil, err
	}
	if a.Tax, err = num(colTaxes); err != nil {
		return nil, err
	}
	a.Amount = value.Abs()
	a.Shares = a.Shares.Abs()
	a.Fee = a.Fee.Abs()

	if ccy := r.get(i, colCurrency); ccy != "" {
		if a.Currency, err = parser.Currency(ccy); err != nil {
			return nil, err
		}
	}

	if !a.Shares.IsZero() {
		gross := a.Amount
		switch a.Type {
		case activity.TypeBuy:
			gross = gross.Sub(a.Fee).Sub(a.Tax)
		case activity.TypeSell:
			gross = gross.Add(a.Fee).Add(a.Tax)
		}
		if gross.IsPositive() {
			a.Price = gross.Div(a.Shares).Round(6)
		}
	}

	grossCcy := r.get(i, colGrossCurrency)
	if grossCcy != "" && !strings.EqualFold(grossCcy, a.Currency) {
		if a.ForeignCurrency, err = parser.Currency(grossCcy); err != nil {
			return nil, err
		}
		fx, err := num(colFxRate)
		if err != nil {
			return nil, err
		}
		if !fx.IsZero() {
			a.FxRate = &fx
		}
	}
	return a, nil
}
