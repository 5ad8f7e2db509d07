// Package core holds the estimation document model and its money arithmetic.
//
// Totals are never stored: every total is recomputed from the current
// quantities, prices and margins each time it is needed.
package core

import (
	"strconv"
	"strings"

	"github.com/bojanz/currency"
	"golang.org/x/text/language"
)

const (
	DefaultLocale   = "en-US"
	DefaultCurrency = "USD"
)

// ItemTotal returns quantity*price marked up by margin percent.
//
// No input is rejected or clamped; negative or >100 margins are computed
// as given. Examples:
//
//	ItemTotal(10, 50, 20) -> 600
//	ItemTotal(2, 100, 0)  -> 200
//	ItemTotal(0, 999, 50) -> 0
func ItemTotal(quantity, price, margin float64) float64 {
	base := quantity * price
	return base + base*margin/100
}

// SectionTotal sums the item totals in sequence order. An empty section is 0.
func SectionTotal(items []Item) float64 {
	total := 0.0
	for _, it := range items {
		total += ItemTotal(it.Quantity, it.Price, it.Margin)
	}
	return total
}

// EstimationTotal sums the section totals in sequence order.
func EstimationTotal(sections []Section) float64 {
	total := 0.0
	for _, s := range sections {
		total += SectionTotal(s.Items)
	}
	return total
}

// FormatCurrency renders value as a locale aware currency string. Symbol
// placement, separators and the number of decimals follow the locale's
// CLDR pattern for the currency; halves round away from zero. Empty or
// unknown locale and currency codes fall back to en-US and USD. NaN and
// infinities render as an empty string.
//
//	FormatCurrency(1234.5, "en-US", "USD") -> "$1,234.50"
//	FormatCurrency(1234.5, "de-DE", "EUR") -> "1.234,50 €"
//	FormatCurrency(-5, "", "")             -> "-$5.00"
func FormatCurrency(value float64, locale, currencyCode string) string {
	code := parseCurrency(currencyCode)
	amount, err := currency.NewAmount(strconv.FormatFloat(value, 'f', -1, 64), code)
	if err != nil {
		return ""
	}
	digits, _ := currency.GetDigits(code)
	if amount = amount.RoundTo(digits, currency.RoundHalfUp); amount.IsZero() {
		// drops the sign of values that round to zero
		amount, _ = currency.NewAmount("0", code)
	}
	formatter := currency.NewFormatter(currency.NewLocale(parseLocale(locale).String()))
	return formatter.Format(amount)
}

func parseLocale(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return language.AmericanEnglish
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}

func parseCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !currency.IsValid(code) {
		return DefaultCurrency
	}
	return code
}
