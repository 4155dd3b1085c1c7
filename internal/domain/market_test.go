package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    Currency
		wantErr bool
	}{
		{"usd", USD, false},
		{" EUR ", EUR, false},
		{"Jpy", JPY, false},
		{"btc", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCurrency(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCurrency(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCurrency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if INR.Upper() != "INR" {
		t.Errorf("Upper() = %q", INR.Upper())
	}
}

func TestTimeframe(t *testing.T) {
	tests := []struct {
		in    string
		want  Timeframe
		label string
	}{
		{"1", Timeframe1D, "1D"},
		{"7", Timeframe7D, "7D"},
		{" 30 ", Timeframe30D, "30D"},
		{"90", Timeframe90D, "90D"},
		{"365", Timeframe365D, "1Y"},
	}
	for _, tt := range tests {
		got, err := ParseTimeframe(tt.in)
		if err != nil {
			t.Fatalf("ParseTimeframe(%q) failed: %v", tt.in, err)
		}
		if got != tt.want || got.Label() != tt.label {
			t.Errorf("ParseTimeframe(%q) = %d %s, want %d %s", tt.in, got, got.Label(), tt.want, tt.label)
		}
	}

	for _, bad := range []string{"14", "0", "-7", "week"} {
		if _, err := ParseTimeframe(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
	if Timeframe(14).Label() != "14D" {
		t.Errorf("Unexpected fallback label %q", Timeframe(14).Label())
	}
}

func TestCoin_DecodeMarketList(t *testing.T) {
	body := `[
		{"id":"bitcoin","name":"Bitcoin","symbol":"btc","current_price":60000,"market_cap":null,
		 "price_change_percentage_24h":-1.5,"sparkline_in_7d":{"price":[1,2,3]}},
		{"id":"newcoin","name":"New","symbol":"new"}
	]`
	var coins []Coin
	if err := json.Unmarshal([]byte(body), &coins); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	btc, ok := FindCoin(coins, "bitcoin")
	if !ok {
		t.Fatal("Expected bitcoin")
	}
	if btc.CurrentPrice == nil || *btc.CurrentPrice != 60000 {
		t.Errorf("Unexpected price %v", btc.CurrentPrice)
	}
	if btc.MarketCap != nil {
		t.Error("Expected null market cap to stay nil")
	}
	if len(btc.SparklinePrices()) != 3 {
		t.Errorf("Expected 3 sparkline points, got %d", len(btc.SparklinePrices()))
	}

	if n, _ := FindCoin(coins, "newcoin"); n.SparklinePrices() != nil {
		t.Error("Expected nil sparkline")
	}
	if _, ok := FindCoin(coins, "dogecoin"); ok {
		t.Error("Unexpected match")
	}
}

func TestCoinDetail_ATH(t *testing.T) {
	var d CoinDetail
	if err := json.Unmarshal([]byte(`{"id":"bitcoin","market_cap_rank":1,"market_data":{"ath":{"usd":73738,"eur":67000}}}`), &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if d.MarketCapRank == nil || *d.MarketCapRank != 1 {
		t.Errorf("Unexpected rank %v", d.MarketCapRank)
	}
	if ath, ok := d.ATHUSD(); !ok || ath != 73738 {
		t.Errorf("ATHUSD() = %v, %v", ath, ok)
	}

	var empty CoinDetail
	if _, ok := empty.ATHUSD(); ok {
		t.Error("Expected no ATH")
	}
}

func TestHTTPError(t *testing.T) {
	var err error = &HTTPError{StatusCode: 429, Status: "429 Too Many Requests", URL: "https://api.example/coins"}
	wrapped := errors.Join(errors.New("fetch"), err)

	var httpErr *HTTPError
	if !errors.As(wrapped, &httpErr) || httpErr.StatusCode != 429 {
		t.Fatalf("errors.As failed for %v", wrapped)
	}
	want := "unexpected status 429 (429 Too Many Requests) from https://api.example/coins"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
