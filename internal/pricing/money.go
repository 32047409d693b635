// Package pricing computes booking prices from hourly base rates, duration
// tiers, day-of-week surcharges and fixed-price extras.
package pricing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedCurrency = errors.New("pricing: unsupported currency")
	ErrUnknownExtra        = errors.New("pricing: unknown extra")
	ErrNoRate              = errors.New("pricing: no rate configured")
	ErrInvalidInput        = errors.New("pricing: invalid input")
)

// minorDigits lists the currencies in scope and their minor-unit precision.
var minorDigits = map[string]int{
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"KES": 2,
}

// Money is an amount in the currency's minor units (cents).
type Money struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

// NormalizeCurrency upper-cases code and checks that it is supported.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, ok := minorDigits[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	return code, nil
}

// MinorDigits returns the number of minor-unit digits for a supported currency.
func MinorDigits(code string) (int, bool) {
	d, ok := minorDigits[strings.ToUpper(code)]
	return d, ok
}

// String renders the amount as "12.34 USD".
func (m Money) String() string {
	sign := ""
	amount := m.AmountMinor
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, m.Currency)
}
