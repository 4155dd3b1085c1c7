package domain

import "time"

// Coin is one row of the upstream market list.
// Numeric fields are pointers because upstream sends null for thin markets.
type Coin struct {
	ID                       string     `json:"id"`
	Name                     string     `json:"name"`
	Symbol                   string     `json:"symbol"`
	Image                    string     `json:"image"`
	CurrentPrice             *float64   `json:"current_price"`
	MarketCap                *float64   `json:"market_cap"`
	TotalVolume              *float64   `json:"total_volume"`
	PriceChangePercentage24h *float64   `json:"price_change_percentage_24h"`
	Sparkline                *Sparkline `json:"sparkline_in_7d,omitempty"`
}

// Sparkline is the coarse 7-day series shipped with the market list.
type Sparkline struct {
	Price []float64 `json:"price"`
}

// SparklinePrices returns the embedded 7-day series, or nil.
func (c Coin) SparklinePrices() []float64 {
	if c.Sparkline == nil {
		return nil
	}
	return c.Sparkline.Price
}

// CoinDetail holds the extra fields of the per-coin endpoint.
type CoinDetail struct {
	ID            string `json:"id"`
	MarketCapRank *int   `json:"market_cap_rank"`
	MarketData    struct {
		ATH map[string]float64 `json:"ath"`
	} `json:"market_data"`
}

// ATHUSD returns the all-time-high in USD if upstream reported one.
func (d CoinDetail) ATHUSD() (float64, bool) {
	v, ok := d.MarketData.ATH["usd"]
	return v, ok
}

// PricePoint is a single sample of a price series.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	PriceUSD  float64   `json:"price"`
}

// FindCoin returns the coin with the given id from a list snapshot.
func FindCoin(coins []Coin, id string) (Coin, bool) {
	for _, c := range coins {
		if c.ID == id {
			return c, true
		}
	}
	return Coin{}, false
}
