package currency

import (
	"testing"

	"crypto_dash/internal/domain"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name string
		in   *float64
		want string
	}{
		{"absent", nil, "N/A"},
		{"trillions", Float(2_346_000_000_000), "2.35T"},
		{"billions", Float(1_000_000_000), "1.00B"},
		{"millions", Float(1_500_000), "1.50M"},
		{"thousands", Float(12_340), "12.34K"},
		{"below thousand", Float(999), "999"},
		{"fraction", Float(12.5), "12.5"},
		{"zero", Float(0), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatNumber(tt.in); got != tt.want {
				t.Errorf("FormatNumber() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name string
		in   *float64
		code domain.Currency
		want string
	}{
		{"absent", nil, domain.USD, "N/A"},
		{"usd grouped", Float(1234.567), domain.USD, "$1,234.57"},
		{"usd small", Float(0.5), domain.USD, "$0.50"},
		{"usd negative", Float(-5), domain.USD, "-$5.00"},
		{"yen has no minor unit", Float(1234.56), domain.JPY, "¥1,235"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCurrency(tt.in, tt.code); got != tt.want {
				t.Errorf("FormatCurrency() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatChange(t *testing.T) {
	if got := FormatChange(Float(1.234)); got != "+1.23%" {
		t.Errorf("positive change = %q", got)
	}
	if got := FormatChange(Float(-4.561)); got != "-4.56%" {
		t.Errorf("negative change = %q", got)
	}
	if got := FormatChange(nil); got != "+0.00%" {
		t.Errorf("missing change = %q", got)
	}
}
