// Package money implements the Decimal & Money Kernel (C1): arbitrary
// precision decimal arithmetic, currency tagging, and fiat detection.
// No financial path in this module ever touches a float.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.DivisionPrecision = 34
}

// fiatSet is the fixed set of currencies treated as fiat for cost-basis
// purposes. Anything not in this set is assumed to be a tracked asset.
var fiatSet = map[string]bool{
	"USD": true,
	"EUR": true,
	"CAD": true,
	"GBP": true,
	"JPY": true,
	"CHF": true,
	"AUD": true,
	"NZD": true,
	"SEK": true,
	"NOK": true,
	"DKK": true,
	"SGD": true,
	"HKD": true,
}

// Currency is a normalized ticker with a derived fiat flag. Two
// currencies are equal iff their normalized tickers are equal.
type Currency struct {
	ticker string
}

// NewCurrency normalizes the given ticker (trim + uppercase) and tags
// it fiat or not against the fixed fiat set.
func NewCurrency(ticker string) Currency {
	return Currency{ticker: strings.ToUpper(strings.TrimSpace(ticker))}
}

func (c Currency) String() string { return c.ticker }

// Ticker returns the normalized ticker string.
func (c Currency) Ticker() string { return c.ticker }

// IsFiat reports whether this currency belongs to the fixed fiat set.
func (c Currency) IsFiat() bool { return fiatSet[c.ticker] }

// Equal reports whether two currencies share a normalized ticker.
func (c Currency) Equal(other Currency) bool { return c.ticker == other.ticker }

// IsZero reports whether the currency was never set.
func (c Currency) IsZero() bool { return c.ticker == "" }

// Decimal is the arbitrary-precision type used throughout every
// financial path. It is a thin alias so call sites read as domain code
// rather than as a direct dependency on the underlying library.
type Decimal = decimal.Decimal

// Zero is the additive identity.
var Zero = decimal.Zero

// NewDecimalFromInt builds a Decimal from a plain integer, for counts
// (e.g. "split N ways") rather than parsed external input.
func NewDecimalFromInt(n int64) Decimal {
	return decimal.NewFromInt(n)
}

// NewDecimal parses a canonical fixed-notation decimal string. It
// returns an error rather than silently truncating precision — callers
// in the accounting path must treat that error as PrecisionLoss, never
// as a warning (spec §7).
func NewDecimal(s string) (Decimal, error) {
	if strings.ContainsAny(s, "eE") {
		return Decimal{}, fmt.Errorf("money: scientific notation not accepted: %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("money: invalid decimal %q: %w", s, err)
	}
	return d, nil
}

// FormatDecimal renders d as a fixed-notation string with no exponent,
// suitable for persistence (spec §4.12, §8 round-trip property).
// shopspring/decimal's String always renders plain notation (it is
// backed by an integer coefficient and exponent, never a float), so
// this is a direct pass-through kept as its own function so call sites
// read as a persistence-boundary concern rather than incidental
// formatting.
func FormatDecimal(d Decimal) string {
	return d.String()
}

// Money is an immutable amount tagged with its currency.
type Money struct {
	Amount   Decimal
	Currency Currency
}

// NewMoney constructs a Money value.
func NewMoney(amount Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// Add returns the sum of two Money values. It panics if the currencies
// differ — mixing currencies silently is exactly the class of bug this
// kernel exists to prevent; callers must convert explicitly first.
func (m Money) Add(other Money) Money {
	if !m.Currency.Equal(other.Currency) {
		panic(fmt.Sprintf("money: currency mismatch: %s vs %s", m.Currency, other.Currency))
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}
}

// Sub returns the difference of two Money values of the same currency.
func (m Money) Sub(other Money) Money {
	if !m.Currency.Equal(other.Currency) {
		panic(fmt.Sprintf("money: currency mismatch: %s vs %s", m.Currency, other.Currency))
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}
}

// Mul scales Money by a plain decimal factor (e.g. a quantity).
func (m Money) Mul(factor Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// String renders "<amount> <TICKER>".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", FormatDecimal(m.Amount), m.Currency)
}
