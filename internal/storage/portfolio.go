package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"crypto_dash/internal/domain"
)

// PortfolioKey is the KV entry holding the JSON array of holdings.
const PortfolioKey = "portfolio"

// Portfolio is the append-only list of holdings.
type Portfolio struct {
	mu      sync.Mutex
	kv      KV
	entries []domain.Holding
	now     func() time.Time
}

// PortfolioSummary is the valuation of a portfolio against a price table.
type PortfolioSummary struct {
	Items    int
	Priced   int
	TotalUSD decimal.Decimal
}

// LoadPortfolio reads the portfolio from kv. Missing or corrupt data starts
// an empty portfolio.
func LoadPortfolio(ctx context.Context, kv KV) *Portfolio {
	p := &Portfolio{kv: kv, now: time.Now}

	raw, err := kv.Get(ctx, PortfolioKey)
	if err != nil {
		slog.Warn("Portfolio load failed, starting empty", slog.Any("error", err))
		return p
	}
	if raw == "" {
		return p
	}

	var entries []domain.Holding
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		slog.Warn("Portfolio data corrupt, starting empty", slog.Any("error", err))
		return p
	}
	p.entries = entries
	return p
}

// ParseQuantity accepts a positive decimal number that stays positive and
// finite as a float64.
func ParseQuantity(input string) (decimal.Decimal, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty", domain.ErrInvalidQuantity)
	}
	qty, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", domain.ErrInvalidQuantity, input)
	}
	if !qty.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s is not positive", domain.ErrInvalidQuantity, qty)
	}
	if f := qty.InexactFloat64(); math.IsInf(f, 0) || !(f > 0) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q out of range", domain.ErrInvalidQuantity, input)
	}
	return qty, nil
}

// AddHolding validates qtyInput, appends a holding for coinID and persists the
// whole list. Invalid input leaves the portfolio untouched.
func (p *Portfolio) AddHolding(ctx context.Context, coinID, qtyInput string) (domain.Holding, error) {
	if coinID == "" {
		return domain.Holding{}, domain.ErrNoSelection
	}
	qty, err := ParseQuantity(qtyInput)
	if err != nil {
		return domain.Holding{}, err
	}

	h := domain.Holding{
		CoinID:  coinID,
		Qty:     qty.InexactFloat64(),
		EntryID: uuid.NewString(),
		AddedAt: p.now().UTC(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	next := append(slices.Clone(p.entries), h)
	data, err := json.Marshal(next)
	if err != nil {
		return domain.Holding{}, fmt.Errorf("encode portfolio: %w", err)
	}
	p.entries = next
	if err := p.kv.Put(ctx, PortfolioKey, string(data)); err != nil {
		return h, fmt.Errorf("persist portfolio: %w", err)
	}
	return h, nil
}

// SavedAt reports when the portfolio was last persisted. It returns the zero
// time when the backend does not track write times.
func (p *Portfolio) SavedAt(ctx context.Context) time.Time {
	ts, ok := p.kv.(Timestamped)
	if !ok {
		return time.Time{}
	}
	at, err := ts.UpdatedAt(ctx, PortfolioKey)
	if err != nil {
		slog.Warn("Portfolio timestamp lookup failed", slog.Any("error", err))
		return time.Time{}
	}
	return at
}

// Entries returns a copy of all holdings.
func (p *Portfolio) Entries() []domain.Holding {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Holding(nil), p.entries...)
}

// Len returns the number of holdings.
func (p *Portfolio) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Summary values every holding with a known USD price.
func (p *Portfolio) Summary(pricesUSD map[string]float64) PortfolioSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	sum := PortfolioSummary{Items: len(p.entries), TotalUSD: decimal.Zero}
	for _, h := range p.entries {
		price, ok := pricesUSD[h.CoinID]
		if !ok {
			continue
		}
		sum.Priced++
		sum.TotalUSD = sum.TotalUSD.Add(decimal.NewFromFloat(h.Qty).Mul(decimal.NewFromFloat(price)))
	}
	return sum
}
