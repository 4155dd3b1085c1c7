package coingecko

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"crypto_dash/internal/domain"
)

// marketChartResponse is the /coins/{id}/market_chart payload.
// Only prices is used; market_caps and total_volumes are ignored.
type marketChartResponse struct {
	Prices []pricePair `json:"prices"`
}

// pricePair decodes the [timestamp_ms, price] tuples upstream sends.
// A null price decodes with Missing set.
type pricePair struct {
	TimestampMS int64
	Price       float64
	Missing     bool
}

func (p *pricePair) UnmarshalJSON(b []byte) error {
	var raw []json.Number
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("price pair: expected 2 values, got %d", len(raw))
	}
	ts, err := raw[0].Float64()
	if err != nil {
		return fmt.Errorf("price pair timestamp: %w", err)
	}
	p.TimestampMS = int64(math.Round(ts))
	if raw[1] == "" {
		p.Missing = true
		return nil
	}
	price, err := raw[1].Float64()
	if err != nil {
		return fmt.Errorf("price pair value: %w", err)
	}
	p.Price = price
	return nil
}

// points converts the wire tuples into a series with strictly increasing
// timestamps. Null-priced, out-of-order or duplicate samples are dropped.
func (r marketChartResponse) points() []domain.PricePoint {
	out := make([]domain.PricePoint, 0, len(r.Prices))
	var last int64
	for _, p := range r.Prices {
		if p.Missing {
			continue
		}
		if len(out) > 0 && p.TimestampMS <= last {
			continue
		}
		last = p.TimestampMS
		out = append(out, domain.PricePoint{
			Timestamp: time.UnixMilli(p.TimestampMS),
			PriceUSD:  p.Price,
		})
	}
	return out
}
