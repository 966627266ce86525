// Package scalablecapital parses the Scalable Capital transaction CSV export.
package scalablecapital

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/activity"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/implementation"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/parser"
)

const Name = "scalablecapital"

var requiredColumns = []string{
	"date", "time", "status", "reference", "description", "assettype",
	"type", "isin", "shares", "price", "amount", "fee", "tax", "currency",
}

// row is one line of the export.
type row struct {
	Date        string `csv:"date"`
	Time        string `csv:"time"`
	Status      string `csv:"status"`
	Reference   string `csv:"reference"`
	Description string `csv:"description"`
	AssetType   string `csv:"assetType"`
	Type        string `csv:"type"`
	ISIN        string `csv:"isin"`
	Shares      string `csv:"shares"`
	Price       string `csv:"price"`
	Amount      string `csv:"amount"`
	Fee         string `csv:"fee"`
	Tax         string `csv:"tax"`
	Currency    string `csv:"currency"`
}

// types maps export labels to activity types. Cash deposits and
// withdrawals have no activity equivalent and are skipped.
var types = map[string]activity.Type{
	"buy":          activity.TypeBuy,
	"savings plan": activity.TypeBuy,
	"sell":         activity.TypeSell,
	"distribution": activity.TypeDividend,
	"dividend":     activity.TypeDividend,
	"interest":     activity.TypeInterest,
	"fee":          activity.TypeFee,
	"taxes":        activity.TypeTax,
	"tax":          activity.TypeTax,
}

var skippedTypes = map[string]bool{"deposit": true, "withdrawal": true}

type Broker struct{}

func New() *Broker { return &Broker{} }

func (b *Broker) Name() string { return Name }

func (b *Broker) Kind() implementation.Kind { return implementation.KindBroker }

func (b *Broker) Extensions() []document.Extension {
	return []document.Extension{document.ExtensionCSV}
}

func (b *Broker) Detect(pages []document.Page, ext document.Extension) bool {
	return implementation.HasColumns(implementation.CSVHeaders(pages, ext), requiredColumns...)
}

func (b *Broker) Parse(content document.Content) (implementation.Result, error) {
	var rows []row
	if err := parser.Decode(content.Table, &rows); err != nil {
		return implementation.Result{}, err
	}

	activities := make([]*activity.Activity, 0, len(rows))
	for i, r := range rows {
		if !strings.EqualFold(strings.TrimSpace(r.Status), "executed") {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(r.Type))
		if skippedTypes[label] {
			continue
		}

		a, err := toActivity(r, label)
		if err != nil {
			return implementation.Result{}, parser.LineError(content.Table.SourceLine(i), err)
		}
		activities = append(activities, activity.Checked(a))
	}
	return implementation.OK(activities), nil
}

func toActivity(r row, label string) (*activity.Activity, error) {
	a := &activity.Activity{
		Broker:  Name,
		ISIN:    strings.TrimSpace(r.ISIN),
		Company: parser.CleanDescription(r.Description),
	}

	shares, err := parser.ParseOptionalNumber(r.Shares, true)
	if err != nil {
		return nil, err
	}

	switch {
	case label == "security transfer" && shares.IsNegative():
		a.Type = activity.TypeTransferOut
	case label == "security transfer":
		a.Type = activity.TypeTransferIn
	default:
		t, ok := types[label]
		if !ok {
			return nil, importerr.NewParserError("unknown transaction type %q", r.Type)
		}
		a.Type = t
	}
	a.Shares = shares.Abs()

	at, err := parser.ParseDateTime(r.Date, parser.Coalesce(r.Time, "00:00:00"), parser.Berlin)
	if err != nil {
		return nil, err
	}
	a.Date = activity.Day(at)
	if strings.TrimSpace(r.Time) != "" {
		a.Datetime = &at
	}

	var price, amount, fee, tax decimal.Decimal
	if price, err = parser.ParseOptionalNumber(r.Price, true); err != nil {
		return nil, err
	}
	if amount, err = parser.ParseNumber(r.Amount, true); err != nil {
		return nil, err
	}
	if fee, err = parser.ParseOptionalNumber(r.Fee, true); err != nil {
		return nil, err
	}
	if tax, err = parser.ParseOptionalNumber(r.Tax, true); err != nil {
		return nil, err
	}
	a.Price = price
	a.Amount = amount.Abs()
	a.Fee = fee.Abs()
	// withheld tax is exported negative, a refund positive
	a.Tax = tax.Neg()

	// transfers carry no cash amount; value them at the stated price
	if a.Amount.IsZero() && !a.Price.IsZero() {
		a.Amount = a.Shares.Mul(a.Price)
	}

	if a.Currency, err = parser.Currency(r.Currency); err != nil {
		return nil, err
	}
	return a, nil
}
