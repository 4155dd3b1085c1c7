package currency

import (
	"math"
	"sync"

	"github.com/shopspring/decimal"

	"crypto_dash/internal/domain"
)

// Rates maps a display currency to its multiplier against the base currency.
type Rates map[domain.Currency]decimal.Decimal

// Converter converts USD amounts into display currencies.
// Rates are replaced wholesale; a missing rate converts as identity.
type Converter struct {
	mu    sync.RWMutex
	rates Rates
}

// NewConverter creates a converter with identity rates.
func NewConverter() *Converter {
	return &Converter{rates: Rates{}}
}

// SetRates replaces the current rate snapshot.
func (c *Converter) SetRates(r Rates) {
	snapshot := make(Rates, len(r))
	for k, v := range r {
		snapshot[k] = v
	}
	c.mu.Lock()
	c.rates = snapshot
	c.mu.Unlock()
}

// Rate returns the multiplier for target and whether one is known.
func (c *Converter) Rate(target domain.Currency) (decimal.Decimal, bool) {
	if target == domain.BaseCurrency {
		return decimal.NewFromInt(1), true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rates[target]
	if !ok || !r.IsPositive() {
		return decimal.Decimal{}, false
	}
	return r, true
}

// Convert converts amountUSD into target. Unknown targets return the input.
func (c *Converter) Convert(amountUSD float64, target domain.Currency) float64 {
	if target == domain.BaseCurrency {
		return amountUSD
	}
	rate, ok := c.Rate(target)
	if !ok {
		return amountUSD
	}
	if math.IsNaN(amountUSD) || math.IsInf(amountUSD, 0) {
		return amountUSD * rate.InexactFloat64()
	}
	return decimal.NewFromFloat(amountUSD).Mul(rate).InexactFloat64()
}

// ConvertOpt is Convert for nullable amounts.
func (c *Converter) ConvertOpt(amountUSD *float64, target domain.Currency) *float64 {
	if amountUSD == nil {
		return nil
	}
	v := c.Convert(*amountUSD, target)
	return &v
}
