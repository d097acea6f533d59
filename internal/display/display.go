// Package display formats balance figures for Spanish-speaking readers.
package display

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale used for every grouped number shown to users
var Locale = language.Spanish

// Number formats v with Spanish grouping and up to three decimals,
// e.g. 150000.5 -> "150.000,5"
func Number(v float64) string {
	p := message.NewPrinter(Locale)
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// Fixed formats v with exactly digits decimals and a dot separator
func Fixed(v float64, digits int) string {
	return strconv.FormatFloat(v, 'f', digits, 64)
}

// Percent renders a percentage with one decimal, e.g. "42.5%"
func Percent(v float64) string {
	return Fixed(v, 1) + "%"
}

// MWh renders a grouped energy figure, e.g. "1.200 MWh"
func MWh(v float64) string {
	return Number(v) + " MWh"
}

// IsNetImporter reports whether a positive balance means net imports
func IsNetImporter(balance float64) bool {
	return balance > 0
}

// BalanceText describes the interchange balance in words
func BalanceText(balance float64) string {
	if IsNetImporter(balance) {
		return "Importación neta: " + MWh(balance)
	}
	return "Exportación neta: " + MWh(math.Abs(balance))
}
