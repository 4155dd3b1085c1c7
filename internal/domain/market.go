package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Currency is a display currency code (lower case, as the market API expects).
type Currency string

const (
	USD Currency = "usd"
	EUR Currency = "eur"
	INR Currency = "inr"
	GBP Currency = "gbp"
	JPY Currency = "jpy"

	// BaseCurrency is the denomination of every upstream price.
	BaseCurrency = USD
)

// SupportedCurrencies lists the selectable display currencies in UI order.
var SupportedCurrencies = []Currency{USD, EUR, INR, GBP, JPY}

// ParseCurrency validates a user supplied currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SupportedCurrencies {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unsupported currency %q", s)
}

// Upper returns the ISO-4217 form of the code.
func (c Currency) Upper() string {
	return strings.ToUpper(string(c))
}

// Timeframe is a price history range in days.
type Timeframe int

const (
	Timeframe1D   Timeframe = 1
	Timeframe7D   Timeframe = 7
	Timeframe30D  Timeframe = 30
	Timeframe90D  Timeframe = 90
	Timeframe365D Timeframe = 365
)

// SupportedTimeframes lists the timeframe buttons in UI order.
var SupportedTimeframes = []Timeframe{Timeframe1D, Timeframe7D, Timeframe30D, Timeframe90D, Timeframe365D}

// ParseTimeframe validates a day count.
func ParseTimeframe(s string) (Timeframe, error) {
	days, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid timeframe %q: %w", s, err)
	}
	tf := Timeframe(days)
	if !tf.Valid() {
		return 0, fmt.Errorf("unsupported timeframe %d", days)
	}
	return tf, nil
}

// Valid reports whether tf is one of the supported ranges.
func (tf Timeframe) Valid() bool {
	for _, known := range SupportedTimeframes {
		if tf == known {
			return true
		}
	}
	return false
}

// Label is the short caption used in chart titles.
func (tf Timeframe) Label() string {
	switch tf {
	case Timeframe1D:
		return "1D"
	case Timeframe7D:
		return "7D"
	case Timeframe30D:
		return "30D"
	case Timeframe90D:
		return "90D"
	case Timeframe365D:
		return "1Y"
	default:
		return fmt.Sprintf("%dD", int(tf))
	}
}
