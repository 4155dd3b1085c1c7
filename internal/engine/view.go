package engine

import (
	"strings"

	"crypto_dash/internal/currency"
	"crypto_dash/internal/domain"
)

// DetailsUnavailable is shown when the detail endpoint fails.
const DetailsUnavailable = "Additional details are currently unavailable."

// View is the presentation sink driven by the controller.
type View interface {
	// ShowCoins replaces the list with rows.
	ShowCoins(rows []CoinRow)
	// ShowListMessage replaces the list with a status or error line.
	ShowListMessage(msg string)
	// ShowNotice reports the outcome of a user action.
	ShowNotice(msg string)
	ShowDetails(d Details)
}

// CoinRow is one formatted list entry.
type CoinRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Image     string `json:"image,omitempty"`
	Price     string `json:"price"`
	Change    string `json:"change"`
	ChangeUp  bool   `json:"change_up"`
	MarketCap string `json:"market_cap"`
	Volume    string `json:"volume"`
	Watched   bool   `json:"watched"`
	Selected  bool   `json:"selected"`
}

// Details is the formatted detail panel of the selected coin. Rank and ATH
// are empty when the detail endpoint failed, in which case Notice is set.
type Details struct {
	CoinID    string `json:"coin_id"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Rank      string `json:"rank,omitempty"`
	ATH       string `json:"ath,omitempty"`
	Price     string `json:"price"`
	Change    string `json:"change"`
	MarketCap string `json:"market_cap"`
	Volume    string `json:"volume"`
	Notice    string `json:"notice,omitempty"`
}

// MatchesQuery reports whether the coin name or symbol contains q,
// ignoring case. An empty query matches everything.
func MatchesQuery(c domain.Coin, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Symbol), q)
}

func buildRow(c domain.Coin, conv *currency.Converter, cur domain.Currency, watched, selected bool) CoinRow {
	return CoinRow{
		ID:        c.ID,
		Name:      c.Name,
		Symbol:    strings.ToUpper(c.Symbol),
		Image:     c.Image,
		Price:     currency.FormatCurrency(conv.ConvertOpt(c.CurrentPrice, cur), cur),
		Change:    currency.FormatChange(c.PriceChangePercentage24h),
		ChangeUp:  c.PriceChangePercentage24h == nil || *c.PriceChangePercentage24h >= 0,
		MarketCap: currency.FormatNumber(conv.ConvertOpt(c.MarketCap, cur)),
		Volume:    currency.FormatNumber(conv.ConvertOpt(c.TotalVolume, cur)),
		Watched:   watched,
		Selected:  selected,
	}
}

func summaryDetails(c domain.Coin, conv *currency.Converter, cur domain.Currency) Details {
	row := buildRow(c, conv, cur, false, false)
	return Details{
		CoinID:    c.ID,
		Name:      row.Name,
		Symbol:    row.Symbol,
		Price:     row.Price,
		Change:    row.Change,
		MarketCap: row.MarketCap,
		Volume:    row.Volume,
	}
}
