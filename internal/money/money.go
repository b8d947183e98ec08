// Package money formats amounts and names for display. Values are rounded only here,
// never in the valuation itself.
package money

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	currencyPrefix = "R$ "
	brlFormat      = "#.###,##"
	brDateLayout   = "02/01/2006"
)

// Round rounds half away from zero to cents.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatBRL renders v as Brazilian reais, e.g. "R$ 1.006,67".
func FormatBRL(v float64) string {
	rounded := Round(v)
	if rounded < 0 {
		return "-" + currencyPrefix + humanize.FormatFloat(brlFormat, -rounded)
	}
	return currencyPrefix + humanize.FormatFloat(brlFormat, rounded)
}

// FormatDate renders a calendar date as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	return t.Format(brDateLayout)
}

// Initials takes the first letter of the first two words, upper-cased.
func Initials(name string) string {
	var b strings.Builder
	for i, word := range strings.Fields(name) {
		if i == 2 {
			break
		}
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
