// Package money provides decimal-safe handling of amounts found on broker
// statements: locale-aware number parsing, ISO-4217 currency checks and
// display formatting. Amounts stay as shopspring decimals until they are
// rendered with go-money.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	USD = "USD" // US Dollar
	EUR = "EUR" // Euro
	GBP = "GBP" // British Pound
	CHF = "CHF" // Swiss Franc
	JPY = "JPY" // Japanese Yen (no decimal places)
	CAD = "CAD" // Canadian Dollar
)

var (
	ErrEmptyAmount   = errors.New("empty amount")
	ErrInvalidAmount = errors.New("invalid amount")
)

// currency symbols stripped before parsing, longest first so "R$" wins over "$"
var currencySymbols = []string{"R$", "US$", "$", "€", "£", "¥", "₹", "CHF", "EUR", "USD", "GBP"}

// ParseDecimal parses a statement amount. European format means "1.234,56";
// otherwise "1,234.56". A leading or trailing minus and parentheses mark a
// negative value. Surrounding currency symbols and spaces are ignored.
func ParseDecimal(amount string, europeanFormat bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")

	negative := false
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		negative = true
		s = strings.Trim(s, "()")
	case strings.HasPrefix(s, "-"):
		negative = true
		s = strings.TrimPrefix(s, "-")
	case strings.HasSuffix(s, "-"):
		negative = true
		s = strings.TrimSuffix(s, "-")
	case strings.HasPrefix(s, "+"):
		s = strings.TrimPrefix(s, "+")
	}

	if europeanFormat {
		// European: 1.234,56 -> 1234.56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		// American: 1,234.56 -> 1234.56
		s = strings.ReplaceAll(s, ",", "")
	}

	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// IsKnownCurrency reports whether code is an ISO-4217 code known to go-money.
func IsKnownCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// Money pairs a decimal amount with its currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New creates a Money value; the currency code is upper-cased.
func New(amount decimal.Decimal, currencyCode string) Money {
	return Money{Amount: amount, Currency: strings.ToUpper(currencyCode)}
}

// MinorUnits returns the amount in the currency's minor units, rounded
// half away from zero. Unknown currencies are treated as two-decimal.
func (m Money) MinorUnits() int64 {
	fraction := 2
	if c := money.GetCurrency(m.Currency); c != nil {
		fraction = c.Fraction
	}
	return m.Amount.Mul(decimal.New(1, int32(fraction))).Round(0).IntPart()
}

// Display returns a formatted string for display (e.g., "€1,234.56").
func (m Money) Display() string {
	if money.GetCurrency(m.Currency) == nil {
		return m.Amount.StringFixed(2) + " " + m.Currency
	}
	return money.New(m.MinorUnits(), m.Currency).Display()
}
