package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crypto_dash/internal/domain"
)

// exchangeRateResponse is the subset of the ExchangeRate-API "latest" payload we use.
type exchangeRateResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	BaseCode        string                     `json:"base_code"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

// ExchangeRateClient fetches USD based FX rates for the display currencies.
type ExchangeRateClient struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// NewExchangeRateClient creates a new exchange rate client.
func NewExchangeRateClient(apiURL, apiKey string, timeout time.Duration) *ExchangeRateClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExchangeRateClient{
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// NewExchangeRateClientFromConfig wires the client from the app config.
func NewExchangeRateClientFromConfig(cfg *Config) *ExchangeRateClient {
	return NewExchangeRateClient(cfg.API.ExchangeRate.URL, cfg.API.ExchangeRate.APIKey,
		time.Duration(cfg.API.ExchangeRate.TimeoutSec)*time.Second)
}

// FetchRates returns the multiplier of every supported non-base display
// currency the service knows about. Codes missing from the response are
// omitted, so converters fall back to identity for them.
func (c *ExchangeRateClient) FetchRates(ctx context.Context) (map[domain.Currency]decimal.Decimal, error) {
	if c.apiURL == "" {
		return nil, errors.New("exchange rate URL not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/latest/%s", c.apiURL, c.apiKey, domain.BaseCurrency.Upper())
	if c.apiKey == "" {
		url = fmt.Sprintf("%s/latest/%s", c.apiURL, domain.BaseCurrency.Upper())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", GetUserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("exchange rates: %w", domain.ErrTimeout)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: c.apiURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var data exchangeRateResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode exchange rates: %w", err)
	}
	if data.Result != "" && data.Result != "success" {
		return nil, fmt.Errorf("exchange rate API error: %s", data.ErrorType)
	}

	rates := make(map[domain.Currency]decimal.Decimal)
	for _, cur := range domain.SupportedCurrencies {
		if cur == domain.BaseCurrency {
			continue
		}
		if r, ok := data.ConversionRates[cur.Upper()]; ok && r.IsPositive() {
			rates[cur] = r
		}
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("exchange rates: %w", domain.ErrEmptyResult)
	}

	slog.Info("Exchange rates loaded", slog.Int("currencies", len(rates)))
	return rates, nil
}
