package currency

import (
	"testing"

	"crypto_dash/internal/domain"
)

// FuzzFormat tests that formatting never panics on any float.
func FuzzFormat(f *testing.F) {
	f.Add(0.0)
	f.Add(-1.5)
	f.Add(1e15)
	f.Add(0.000001)

	f.Fuzz(func(t *testing.T, v float64) {
		_ = FormatNumber(&v)
		_ = FormatChange(&v)
		for _, c := range domain.SupportedCurrencies {
			_ = FormatCurrency(&v, c)
		}
	})
}
