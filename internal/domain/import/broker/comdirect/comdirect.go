// Package comdirect parses comdirect bank PDF notices.
package comdirect

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

const Name = "comdirect"

const (
	titleBuy      = "Wertpapierkauf"
	titleSell     = "Wertpapierverkauf"
	titleDividend = "Dividendengutschrift"
	titleIncome   = "Ertragsgutschrift"
	titleDepot    = "Depotauszug"
)

var (
	bankMarker  = implementation.NewMarkers("comdirect bank")
	titleMarker = implementation.NewMarkers(titleBuy, titleSell, titleDividend, titleIncome, titleDepot)

	tradeDatePattern = regexp.MustCompile(`Geschäftstag\s*:\s*(\d{2}\.\d{2}\.\d{4})(?:.*Handelszeit\s*:\s*(\d{2}:\d{2}))?`)
	sharesPattern    = regexp.MustCompile(`^(?:St\.|STK)\s+([\d.,]+)(?:\s+([A-Z]{3})\s+([\d.,]+))?$`)
	isinPattern      = regexp.MustCompile(`\b([A-Z]{2}[A-Z0-9]{9}[0-9])$`)
	wknPattern       = regexp.MustCompile(`^(.*?)\s+([A-Z0-9]{6})$`)
	labelledAmount   = regexp.MustCompile(`^([^:]+?)\s*:\s*([A-Z]{3})\s+(-?[\d.,]+)`)
	valutaPattern    = regexp.MustCompile(`^(\d{2}\.\d{2}\.\d{4})\s+([A-Z]{3})\s+(-?[\d.,]+)$`)
)

var (
	feeLabels = []string{"Provision", "Börsenplatzgebühr", "Fremde Spesen", "Transaktionsentgelt"}
	taxLabels = []string{"Kapitalertragsteuer", "Solidaritätszuschlag", "Kirchensteuer", "Quellensteuer"}
)

type Broker struct{}

func New() *Broker { return &Broker{} }

func (b *Broker) Name() string { return Name }

func (b *Broker) Kind() implementation.Kind { return implementation.KindBroker }

func (b *Broker) Extensions() []document.Extension {
	return []document.Extension{document.ExtensionPDF}
}

func (b *Broker) Detect(pages []document.Page, ext document.Extension) bool {
	if ext != document.ExtensionPDF || len(pages) == 0 {
		return false
	}
	first := pages[0].Text()
	return bankMarker.Any(first) && titleMarker.Any(first)
}

func (b *Broker) Parse(content document.Content) (implementation.Result, error) {
	lines := implementation.Lines(content.Pages)

	var (
		a   *activity.Activity
		err error
	)
	switch title := documentTitle(lines); title {
	case titleDepot:
		return implementation.Ignored(), nil
	case titleBuy, titleSell:
		a, err = parseTrade(lines, title == titleSell)
	case titleDividend, titleIncome:
		a, err = parseIncome(lines)
	default:
		return implementation.Result{}, importerr.NewParserError("unknown comdirect document")
	}
	if err != nil {
		return implementation.Result{}, err
	}
	return implementation.OK([]*activity.Activity{activity.Checked(a)}), nil
}

func documentTitle(lines []string) string {
	for _, l := range lines {
		for _, t := range []string{titleDepot, titleBuy, titleSell, titleDividend, titleIncome} {
			if strings.EqualFold(strings.TrimSpace(l), t) {
				return t
			}
		}
	}
	return ""
}

func parseTrade(lines []string, sell bool) (*activity.Activity, error) {
	a, err := parseSecurity(lines)
	if err != nil {
		return nil, err
	}
	a.Type = activity.TypeBuy
	if sell {
		a.Type = activity.TypeSell
	}

	m, ok := implementation.FindSubmatch(lines, tradeDatePattern)
	if !ok {
		return nil, importerr.NewParserError("trade date not found")
	}
	if m[2] != "" {
		at, err := parser.ParseDateTime(m[1], m[2], parser.Berlin)
		if err != nil {
			return nil, err
		}
		a.Datetime = &at
		a.Date = activity.Day(at)
	} else {
		d, err := parser.ParseDate(m[1])
		if err != nil {
			return nil, err
		}
		a.Date = activity.Day(d)
	}

	charges, err := labelled(lines)
	if err != nil {
		return nil, err
	}
	kurswert, ok := charges["Kurswert"]
	if !ok {
		return nil, importerr.NewParserError("Kurswert not found")
	}
	a.Amount = kurswert.value.Abs()
	a.Currency = kurswert.currency
	a.Fee = sum(charges, feeLabels).Abs()
	a.Tax = sum(charges, taxLabels)
	return a, nil
}

func parseIncome(lines []string) (*activity.Activity, error) {
	a, err := parseSecurity(lines)
	if err != nil {
		return nil, err
	}
	a.Type = activity.TypeDividend

	charges, err := labelled(lines)
	if err != nil {
		return nil, err
	}
	gross, ok := charges["Bruttobetrag"]
	if !ok {
		return nil, importerr.NewParserError("Bruttobetrag not found")
	}
	a.Amount = gross.value.Abs()
	a.Currency = gross.currency
	a.Tax = sum(charges, taxLabels)

	// the booking line below "Valuta Betrag" carries the value date
	v, ok := implementation.After(lines, "Valuta Betrag", 1)
	if !ok {
		return nil, importerr.NewParserError("value date not found")
	}
	m := valutaPattern.FindStringSubmatch(v)
	if m == nil {
		return nil, importerr.NewParserError("unreadable booking line %q", v)
	}
	d, err := parser.ParseDate(m[1])
	if err != nil {
		return nil, err
	}
	a.Date = activity.Day(d)
	return a, nil
}

// parseSecurity reads the two lines below the "Wertpapier-Bezeichnung"
// header (name + WKN, name continuation + ISIN) and the share count.
func parseSecurity(lines []string) (*activity.Activity, error) {
	a := &activity.Activity{Broker: Name}

	i := implementation.IndexOf(lines, "Wertpapier-Bezeichnung", 0)
	if i < 0 || i+2 >= len(lines) {
		return nil, importerr.NewParserError("security block not found")
	}

	name := lines[i+1]
	if m := wknPattern.FindStringSubmatch(name); m != nil {
		name, a.WKN = m[1], m[2]
	}
	cont := lines[i+2]
	if m := isinPattern.FindStringSubmatch(cont); m != nil {
		a.ISIN = m[1]
		cont = strings.TrimSuffix(cont, m[1])
	}
	a.Company = parser.CleanDescription(name + " " + cont)

	m, ok := implementation.FindSubmatch(lines[i:], sharesPattern)
	if !ok {
		return nil, importerr.NewParserError("share count not found")
	}
	shares, err := parser.ParseGermanNumber(m[1])
	if err != nil {
		return nil, err
	}
	a.Shares = shares
	if m[3] != "" {
		if a.Price, err = parser.ParseGermanNumber(m[3]); err != nil {
			return nil, err
		}
	}
	return a, nil
}

type charge struct {
	currency string
	value    decimal.Decimal
}

// labelled collects "<Label> : <CCY> <amount>" lines by label. Charges are
// printed positive and refunds negative; repeated labels are summed.
func labelled(lines []string) (map[string]charge, error) {
	out := make(map[string]charge)
	for _, l := range lines {
		m := labelledAmount.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		v, err := parser.ParseGermanNumber(m[3])
		if err != nil {
			return nil, err
		}
		ccy, err := parser.Currency(m[2])
		if err != nil {
			return nil, err
		}
		label := strings.TrimSpace(m[1])
		prev := out[label]
		out[label] = charge{currency: ccy, value: prev.value.Add(v)}
	}
	return out, nil
}

func sum(charges map[string]charge, labels []string) decimal.Decimal {
	total := decimal.Zero
	for _, l := range labels {
		total = total.Add(charges[l].value)
	}
	return total
}
