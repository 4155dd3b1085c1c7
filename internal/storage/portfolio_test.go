package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"crypto_dash/internal/domain"
)

func TestPortfolio_AddHolding(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	p := LoadPortfolio(ctx, kv)
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	h, err := p.AddHolding(ctx, "bitcoin", " 0.5 ")
	if err != nil {
		t.Fatalf("AddHolding failed: %v", err)
	}
	if h.CoinID != "bitcoin" || h.Qty != 0.5 {
		t.Errorf("Unexpected holding %+v", h)
	}
	if h.EntryID == "" {
		t.Error("Expected entry id")
	}
	if !h.AddedAt.Equal(fixed) {
		t.Errorf("AddedAt = %v, want %v", h.AddedAt, fixed)
	}

	var persisted []domain.Holding
	if err := json.Unmarshal([]byte(kv.data[PortfolioKey]), &persisted); err != nil {
		t.Fatalf("Persisted portfolio is not JSON: %v", err)
	}
	if len(persisted) != 1 || persisted[0].CoinID != "bitcoin" || persisted[0].Qty != 0.5 {
		t.Errorf("Unexpected persisted portfolio %+v", persisted)
	}
}

func TestPortfolio_AppendsDuplicates(t *testing.T) {
	ctx := context.Background()
	p := LoadPortfolio(ctx, newMemKV())

	first, err := p.AddHolding(ctx, "ethereum", "1")
	if err != nil {
		t.Fatalf("AddHolding failed: %v", err)
	}
	second, err := p.AddHolding(ctx, "ethereum", "2")
	if err != nil {
		t.Fatalf("AddHolding failed: %v", err)
	}

	if p.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", p.Len())
	}
	if first.EntryID == second.EntryID {
		t.Error("Expected distinct entry ids")
	}
}

func TestPortfolio_InvalidQuantity(t *testing.T) {
	inputs := []string{"abc", "", "   ", "0", "-1", "1.2.3", "NaN", "1e400", "1e-400"}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			ctx := context.Background()
			kv := newMemKV()
			p := LoadPortfolio(ctx, kv)

			_, err := p.AddHolding(ctx, "bitcoin", in)
			if !errors.Is(err, domain.ErrInvalidQuantity) {
				t.Fatalf("Expected ErrInvalidQuantity for %q, got %v", in, err)
			}
			if p.Len() != 0 {
				t.Error("Expected no holding added")
			}
			if kv.puts != 0 {
				t.Error("Expected nothing persisted")
			}
		})
	}
}

func TestPortfolio_RejectedQuantityKeepsPersisting(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	p := LoadPortfolio(ctx, kv)

	if _, err := p.AddHolding(ctx, "bitcoin", "1e400"); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("Expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := p.AddHolding(ctx, "bitcoin", "0.5"); err != nil {
		t.Fatalf("AddHolding failed: %v", err)
	}

	var stored []domain.Holding
	if err := json.Unmarshal([]byte(kv.data[PortfolioKey]), &stored); err != nil {
		t.Fatalf("Stored portfolio is not JSON: %v", err)
	}
	if len(stored) != 1 || stored[0].Qty != 0.5 {
		t.Errorf("Unexpected stored entries %+v", stored)
	}
}

func TestPortfolio_SavedAt(t *testing.T) {
	ctx := context.Background()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "saved.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	p := LoadPortfolio(ctx, s)
	if !p.SavedAt(ctx).IsZero() {
		t.Error("Expected zero time before first save")
	}
	if _, err := p.AddHolding(ctx, "ethereum", "2"); err != nil {
		t.Fatalf("AddHolding failed: %v", err)
	}
	if at := p.SavedAt(ctx); !at.Equal(fixed) {
		t.Errorf("SavedAt = %v, want %v", at, fixed)
	}

	mem := LoadPortfolio(ctx, newMemKV())
	if !mem.SavedAt(ctx).IsZero() {
		t.Error("Expected zero time for backend without timestamps")
	}
}

func TestPortfolio_NoSelection(t *testing.T) {
	p := LoadPortfolio(context.Background(), newMemKV())
	if _, err := p.AddHolding(context.Background(), "", "1"); !errors.Is(err, domain.ErrNoSelection) {
		t.Errorf("Expected ErrNoSelection, got %v", err)
	}
}

func TestLoadPortfolio_Corrupt(t *testing.T) {
	kv := newMemKV()
	kv.data[PortfolioKey] = "[{]"
	if n := LoadPortfolio(context.Background(), kv).Len(); n != 0 {
		t.Errorf("Expected empty portfolio, got %d entries", n)
	}
}

func TestPortfolio_Summary(t *testing.T) {
	ctx := context.Background()
	p := LoadPortfolio(ctx, newMemKV())
	for _, add := range []struct{ id, qty string }{
		{"bitcoin", "0.5"},
		{"ethereum", "2"},
		{"delisted", "100"},
	} {
		if _, err := p.AddHolding(ctx, add.id, add.qty); err != nil {
			t.Fatalf("AddHolding failed: %v", err)
		}
	}

	sum := p.Summary(map[string]float64{"bitcoin": 60000, "ethereum": 3000})
	if sum.Items != 3 {
		t.Errorf("Items = %d, want 3", sum.Items)
	}
	if sum.Priced != 2 {
		t.Errorf("Priced = %d, want 2", sum.Priced)
	}
	if got := sum.TotalUSD.String(); got != "36000" {
		t.Errorf("TotalUSD = %s, want 36000", got)
	}
}

func TestPortfolio_SurvivesReload(t *testing.T) {
	ctx := context.Background()
	for name, kv := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			p := LoadPortfolio(ctx, kv)
			if _, err := p.AddHolding(ctx, "solana", "12.5"); err != nil {
				t.Fatalf("AddHolding failed: %v", err)
			}
			entries := LoadPortfolio(ctx, kv).Entries()
			if len(entries) != 1 || entries[0].CoinID != "solana" || entries[0].Qty != 12.5 {
				t.Errorf("Unexpected reloaded entries %+v", entries)
			}
		})
	}
}
