// Package traderepublic parses Trade Republic PDF statements: trade
// settlements (Wertpapierabrechnung), dividend and distribution notices.
// Cost information and account statements are recognized and ignored.
package traderepublic

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/activity"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/implementation"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/parser"
)

const Name = "traderepublic"

const (
	docTrade        = "WERTPAPIERABRECHNUNG"
	docDividend     = "DIVIDENDE"
	docDistribution = "AUSSCHÜTTUNG"
	docCostInfo     = "KOSTENINFORMATION"
	docAccount      = "RECHNUNGSABSCHLUSS"
)

var (
	bankMarker = implementation.NewMarkers("TRADE REPUBLIC BANK GMBH")
	docMarkers = implementation.NewMarkers(docTrade, docDividend, docDistribution, docCostInfo, docAccount)
	ignored    = implementation.NewMarkers(docCostInfo, docAccount)

	orderPattern    = regexp.MustCompile(`(?i)\b(Kauf|Verkauf) am (\d{2}\.\d{2}\.\d{4}), um (\d{2}:\d{2}) Uhr`)
	positionPattern = regexp.MustCompile(`^([\d.,]+) Stk\. ([\d.,]+) ([A-Z]{3}) ([\d.,]+) ([A-Z]{3})$`)
	isinPattern     = regexp.MustCompile(`ISIN:\s*([A-Z0-9]{12})`)
	datePattern     = regexp.MustCompile(`^DATUM (\d{2}\.\d{2}\.\d{4})`)
	chargePattern   = regexp.MustCompile(`(-?[\d.,]+) ([A-Z]{3})$`)
)

var (
	feeLabels = []string{"Fremdkostenzuschlag", "Ordergebühr", "Fremde Spesen"}
	taxLabels = []string{"Kapitalertragssteuer", "Kapitalertragsteuer", "Solidaritätszuschlag", "Kirchensteuer", "Quellensteuer"}
)

type Broker struct{}

func New() *Broker { return &Broker{} }

func (b *Broker) Name() string { return Name }

func (b *Broker) Kind() implementation.Kind { return implementation.KindBroker }

func (b *Broker) Extensions() []document.Extension {
	return []document.Extension{document.ExtensionPDF}
}

// Detect requires the bank letterhead and a known document title on the
// first page.
func (b *Broker) Detect(pages []document.Page, ext document.Extension) bool {
	if ext != document.ExtensionPDF || len(pages) == 0 {
		return false
	}
	first := pages[0].Text()
	return bankMarker.Any(first) && docMarkers.Any(first)
}

func (b *Broker) Parse(content document.Content) (implementation.Result, error) {
	lines := implementation.Lines(content.Pages)
	text := strings.Join(lines, "\n")

	if ignored.Any(text) {
		return implementation.Ignored(), nil
	}

	var (
		a   *activity.Activity
		err error
	)
	switch {
	case implementation.IndexOf(lines, docTrade, 0) >= 0:
		a, err = parseTrade(lines)
	case implementation.IndexOf(lines, docDividend, 0) >= 0,
		implementation.IndexOf(lines, docDistribution, 0) >= 0:
		a, err = parseDividend(lines)
	default:
		return implementation.Result{}, importerr.NewParserError("unknown trade republic document")
	}
	if err != nil {
		return implementation.Result{}, err
	}
	return implementation.OK([]*activity.Activity{activity.Checked(a)}), nil
}

func parseTrade(lines []string) (*activity.Activity, error) {
	order, ok := implementation.FindSubmatch(lines, orderPattern)
	if !ok {
		return nil, importerr.NewParserError("order line not found")
	}

	a, err := parsePosition(lines)
	if err != nil {
		return nil, err
	}

	a.Type = activity.TypeBuy
	if strings.EqualFold(order[1], "Verkauf") {
		a.Type = activity.TypeSell
	}

	at, err := parser.ParseDateTime(order[2], order[3], parser.Berlin)
	if err != nil {
		return nil, err
	}
	a.Date = activity.Day(at)
	a.Datetime = &at

	fee, err := sumCharges(lines, feeLabels)
	if err != nil {
		return nil, err
	}
	a.Fee = fee.Abs()
	if a.Tax, err = taxes(lines); err != nil {
		return nil, err
	}
	return a, nil
}

func parseDividend(lines []string) (*activity.Activity, error) {
	a, err := parsePosition(lines)
	if err != nil {
		return nil, err
	}
	a.Type = activity.TypeDividend

	m, ok := implementation.FindSubmatch(lines, datePattern)
	if !ok {
		return nil, importerr.NewParserError("document date not found")
	}
	d, err := parser.ParseDate(m[1])
	if err != nil {
		return nil, err
	}
	a.Date = activity.Day(d)

	if a.Tax, err = taxes(lines); err != nil {
		return nil, err
	}
	return a, nil
}

// parsePosition reads the "<shares> Stk. <price> <ccy> <amount> <ccy>" row,
// the security name above it and the ISIN below it.
func parsePosition(lines []string) (*activity.Activity, error) {
	idx := -1
	var m []string
	for i, l := range lines {
		if m = positionPattern.FindStringSubmatch(l); m != nil {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, importerr.NewParserError("position line not found")
	}

	shares, err := parser.ParseGermanNumber(m[1])
	if err != nil {
		return nil, err
	}
	price, err := parser.ParseGermanNumber(m[2])
	if err != nil {
		return nil, err
	}
	amount, err := parser.ParseGermanNumber(m[4])
	if err != nil {
		return nil, err
	}
	currency, err := parser.Currency(m[5])
	if err != nil {
		return nil, err
	}

	a := &activity.Activity{
		Broker:   Name,
		Shares:   shares,
		Price:    price,
		Amount:   amount,
		Currency: currency,
	}
	if idx > 0 {
		a.Company = parser.CleanDescription(lines[idx-1])
	}
	if isin, ok := implementation.FindSubmatch(lines[idx:], isinPattern); ok {
		a.ISIN = isin[1]
	}
	return a, nil
}

// taxes returns the tax withheld. Statements print withholdings as negative
// and refunds as positive amounts, so a refund comes out negative.
func taxes(lines []string) (decimal.Decimal, error) {
	total, err := sumCharges(lines, taxLabels)
	if err != nil {
		return decimal.Zero, err
	}
	return total.Neg(), nil
}

// sumCharges adds the signed values of all charge lines starting with one
// of labels.
func sumCharges(lines []string, labels []string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, l := range lines {
		if !hasAnyPrefix(l, labels) {
			continue
		}
		m := chargePattern.FindStringSubmatch(l)
		if m == nil {
			return decimal.Zero, importerr.NewParserError("unreadable charge %q", l)
		}
		v, err := parser.ParseGermanNumber(m[1])
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(v)
	}
	return total, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
