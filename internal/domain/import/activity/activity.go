// Package activity defines the normalized financial event produced by every
// broker and app implementation, together with its semantic validation.
package activity

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
	"github.com/FACorreiaa/activity-importer/pkg/money"
)

// Type is the kind of financial event.
type Type string

const (
	TypeBuy         Type = "Buy"
	TypeSell        Type = "Sell"
	TypeDividend    Type = "Dividend"
	TypeTransferIn  Type = "TransferIn"
	TypeTransferOut Type = "TransferOut"
	TypePayback     Type = "Payback"
	TypeTax         Type = "Tax"
	TypeInterest    Type = "Interest"
	TypeFee         Type = "Fee"
)

var knownTypes = map[Type]struct{}{
	TypeBuy: {}, TypeSell: {}, TypeDividend: {}, TypeTransferIn: {}, TypeTransferOut: {},
	TypePayback: {}, TypeTax: {}, TypeInterest: {}, TypeFee: {},
}

// IsKnown reports whether t is one of the defined activity types.
func (t Type) IsKnown() bool {
	_, ok := knownTypes[t]
	return ok
}

// needsShares lists types that move securities and therefore carry a share count.
func (t Type) needsShares() bool {
	switch t {
	case TypeBuy, TypeSell, TypeTransferIn, TypeTransferOut:
		return true
	}
	return false
}

// cashOnly lists types that may omit a security identifier.
func (t Type) cashOnly() bool {
	switch t {
	case TypeInterest, TypeFee, TypeTax, TypePayback:
		return true
	}
	return false
}

// Activity is one financial event extracted from a document.
type Activity struct {
	Broker          string           `json:"broker"`
	Type            Type             `json:"type"`
	Date            time.Time        `json:"date"`
	Datetime        *time.Time       `json:"datetime,omitempty"`
	ISIN            string           `json:"isin,omitempty"`
	WKN             string           `json:"wkn,omitempty"`
	Company         string           `json:"company,omitempty"`
	Shares          decimal.Decimal  `json:"shares"`
	Price           decimal.Decimal  `json:"price"`
	Amount          decimal.Decimal  `json:"amount"`
	Fee             decimal.Decimal  `json:"fee"`
	Tax             decimal.Decimal  `json:"tax"`
	Currency        string           `json:"currency,omitempty"`
	FxRate          *decimal.Decimal `json:"fxRate,omitempty"`
	ForeignCurrency string           `json:"foreignCurrency,omitempty"`
}

var (
	isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)
	wknPattern  = regexp.MustCompile(`^[A-Z0-9]{6}$`)
)

// now is swapped in tests.
var now = time.Now

// Validate checks an activity against its expected shape. The returned error
// is of kind ActivityValidation.
func (a *Activity) Validate() error {
	if a == nil {
		return importerr.NewActivityValidationError("activity is missing")
	}
	if !a.Type.IsKnown() {
		return importerr.NewActivityValidationError("unknown activity type %q", a.Type)
	}
	if a.Date.IsZero() {
		return importerr.NewActivityValidationError("%s: date is missing", a.Type)
	}
	if a.Date.After(now().AddDate(0, 0, 1)) {
		return importerr.NewActivityValidationError("%s: date %s lies in the future", a.Type, a.Date.Format("2006-01-02"))
	}

	if a.ISIN == "" && a.WKN == "" && strings.TrimSpace(a.Company) == "" && !a.Type.cashOnly() {
		return importerr.NewActivityValidationError("%s: no isin, wkn or company", a.Type)
	}
	if a.ISIN != "" && !isinPattern.MatchString(a.ISIN) {
		return importerr.NewActivityValidationError("%s: malformed isin %q", a.Type, a.ISIN)
	}
	if a.WKN != "" && !wknPattern.MatchString(a.WKN) {
		return importerr.NewActivityValidationError("%s: malformed wkn %q", a.Type, a.WKN)
	}

	if !a.Amount.IsPositive() {
		return importerr.NewActivityValidationError("%s: amount must be positive, got %s", a.Type, a.Amount)
	}
	if a.Type.needsShares() && !a.Shares.IsPositive() {
		return importerr.NewActivityValidationError("%s: shares must be positive, got %s", a.Type, a.Shares)
	}
	if a.Shares.IsNegative() {
		return importerr.NewActivityValidationError("%s: shares must not be negative", a.Type)
	}
	if a.Price.IsNegative() {
		return importerr.NewActivityValidationError("%s: price must not be negative", a.Type)
	}
	if a.Fee.IsNegative() {
		return importerr.NewActivityValidationError("%s: fee must not be negative", a.Type)
	}

	if a.Currency != "" && !money.IsKnownCurrency(a.Currency) {
		return importerr.NewActivityValidationError("%s: unknown currency %q", a.Type, a.Currency)
	}
	if a.ForeignCurrency != "" && !money.IsKnownCurrency(a.ForeignCurrency) {
		return importerr.NewActivityValidationError("%s: unknown foreign currency %q", a.Type, a.ForeignCurrency)
	}
	if a.FxRate != nil && !a.FxRate.IsPositive() {
		return importerr.NewActivityValidationError("%s: fx rate must be positive", a.Type)
	}
	return nil
}

// Checked returns a when it validates and nil otherwise. Implementations use
// it to leave a hole in their result instead of emitting a broken record.
func Checked(a *Activity) *Activity {
	if a.Validate() != nil {
		return nil
	}
	return a
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Value returns the activity amount as money in its currency.
func (a *Activity) Value() money.Money {
	return money.New(a.Amount, a.Currency)
}
