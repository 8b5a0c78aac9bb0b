// Package money formats integer minor-unit amounts for display. Amounts are
// stored and computed in minor units everywhere; division by the currency
// exponent happens only here, at the presentation edge.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

const defaultExponent = 2

// Currencies that do not use two decimal places. Everything else defaults to
// an exponent of 2.
var exponents = map[string]int32{
	"bif": 0,
	"clp": 0,
	"djf": 0,
	"gnf": 0,
	"jpy": 0,
	"kmf": 0,
	"krw": 0,
	"mga": 0,
	"pyg": 0,
	"rwf": 0,
	"ugx": 0,
	"vnd": 0,
	"vuv": 0,
	"xaf": 0,
	"xof": 0,
	"xpf": 0,
	"bhd": 3,
	"jod": 3,
	"kwd": 3,
	"omr": 3,
	"tnd": 3,
}

// Exponent returns the number of minor-unit digits for a currency code.
func Exponent(currency string) int32 {
	if exp, ok := exponents[strings.ToLower(strings.TrimSpace(currency))]; ok {
		return exp
	}
	return defaultExponent
}

// FormatAmount renders minor units as a decimal string, e.g. 2599 "usd"
// becomes "25.99".
func FormatAmount(minorUnits int64, currency string) string {
	exp := Exponent(currency)
	return decimal.New(minorUnits, -exp).StringFixed(exp)
}

// Format renders minor units with an uppercase currency suffix, e.g.
// "25.99 USD".
func Format(minorUnits int64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return FormatAmount(minorUnits, currency)
	}
	return FormatAmount(minorUnits, currency) + " " + code
}
