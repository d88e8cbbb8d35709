package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidCurrency = errors.New("money: invalid currency code")

// Places is the number of fractional digits amounts are rounded to.
const Places = 2

// Money keeps amounts as decimals in a single ISO currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Zero returns a zero amount in currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: strings.ToUpper(currency)}
}

// NormalizeCurrency upper-cases a three letter code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	return strings.ToUpper(code), nil
}

// Multiply scales the amount by factor.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Percent returns pct percent of the amount.
func (m Money) Percent(pct decimal.Decimal) Money {
	return m.Multiply(pct.Div(decimal.NewFromInt(100)))
}

// Round rounds half away from zero to Places digits.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(Places), Currency: m.Currency}
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) String() string {
	return m.Amount.StringFixed(Places) + " " + m.Currency
}
