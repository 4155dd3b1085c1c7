package currency

import (
	"fmt"
	"math"

	xcurrency "golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"crypto_dash/internal/domain"
)

// NotAvailable is rendered for absent values.
const NotAvailable = "N/A"

var locales = map[domain.Currency]language.Tag{
	domain.USD: language.AmericanEnglish,
	domain.EUR: language.MustParse("en-150"),
	domain.INR: language.MustParse("en-IN"),
	domain.GBP: language.BritishEnglish,
	domain.JPY: language.Japanese,
}

var symbols = map[domain.Currency]string{
	domain.USD: "$",
	domain.EUR: "€",
	domain.INR: "₹",
	domain.GBP: "£",
	domain.JPY: "¥",
}

var suffixes = []struct {
	min    float64
	suffix string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// FormatCurrency renders v as a money string in the locale of code.
func FormatCurrency(v *float64, code domain.Currency) string {
	if v == nil || math.IsNaN(*v) {
		return NotAvailable
	}

	tag, ok := locales[code]
	if !ok {
		tag = language.AmericanEnglish
	}
	scale := 2
	if unit, err := xcurrency.ParseISO(code.Upper()); err == nil {
		scale, _ = xcurrency.Standard.Rounding(unit)
	}
	symbol, ok := symbols[code]
	if !ok {
		symbol = code.Upper() + " "
	}

	amount := *v
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	p := message.NewPrinter(tag)
	return sign + symbol + p.Sprintf("%v", number.Decimal(amount, number.Scale(scale)))
}

// FormatNumber abbreviates large magnitudes (T, B, M, K) and groups the rest.
func FormatNumber(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return NotAvailable
	}
	for _, s := range suffixes {
		if *v >= s.min {
			return fmt.Sprintf("%.2f%s", *v/s.min, s.suffix)
		}
	}
	p := message.NewPrinter(language.AmericanEnglish)
	return p.Sprintf("%v", number.Decimal(*v, number.MaxFractionDigits(3)))
}

// FormatChange renders a 24h percentage change with an explicit sign.
// A missing value is shown as zero change.
func FormatChange(v *float64) string {
	pct := 0.0
	if v != nil {
		pct = *v
	}
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// Float returns a pointer to v. Handy for literal values in callers and tests.
func Float(v float64) *float64 {
	return &v
}
