package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
)

const (
	PublicURL      = "https://api.coingecko.com/api/v3"
	DefaultTimeout = 10 * time.Second
	DefaultPerPage = 50
)

// Client is the market data gateway. Each call is a single GET bound to the
// client timeout; retry policy belongs to callers.
type Client struct {
	baseURL    string
	apiKey     string
	perPage    int
	timeout    time.Duration
	httpClient *http.Client
	limiter    *infra.RateLimiter
	breaker    *infra.CircuitBreaker
}

// NewClient creates a client against baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = PublicURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		perPage:    DefaultPerPage,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		breaker:    infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("coingecko")),
	}
}

// NewClientFromConfig wires timeout, page size, quota and key from the app config.
func NewClientFromConfig(cfg *infra.Config) *Client {
	c := NewClient(cfg.API.CoinGecko.RestURL)
	c.apiKey = cfg.API.CoinGecko.APIKey
	if cfg.API.CoinGecko.PerPage > 0 {
		c.perPage = cfg.API.CoinGecko.PerPage
	}
	if t := cfg.RequestTimeout(); t > 0 {
		c.timeout = t
	}
	if rpm := cfg.API.CoinGecko.RequestsPerMinute; rpm > 0 {
		c.limiter = infra.NewPerMinuteLimiter(rpm)
	}
	return c
}

// FetchMarketList returns the first page of coins ordered by market cap, with
// 7-day sparklines and 24h change.
func (c *Client) FetchMarketList(ctx context.Context) ([]domain.Coin, error) {
	q := url.Values{}
	q.Set("vs_currency", string(domain.BaseCurrency))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", "1")
	q.Set("sparkline", "true")
	q.Set("price_change_percentage", "24h")

	var coins []domain.Coin
	if err := c.get(ctx, "/coins/markets", q, &coins); err != nil {
		return nil, fmt.Errorf("market list: %w", err)
	}
	if len(coins) == 0 {
		return nil, fmt.Errorf("market list: %w", domain.ErrEmptyResult)
	}
	return coins, nil
}

// FetchPriceHistory returns the USD price series of coinID over days.
// A 404 from upstream is reported as ErrUnsupportedRange.
func (c *Client) FetchPriceHistory(ctx context.Context, coinID string, days domain.Timeframe) ([]domain.PricePoint, error) {
	q := url.Values{}
	q.Set("vs_currency", string(domain.BaseCurrency))
	q.Set("days", strconv.Itoa(int(days)))

	var chart marketChartResponse
	err := c.get(ctx, "/coins/"+url.PathEscape(coinID)+"/market_chart", q, &chart)
	if err != nil {
		var httpErr *domain.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("price history %s/%dd: %w", coinID, days, domain.ErrUnsupportedRange)
		}
		return nil, fmt.Errorf("price history %s/%dd: %w", coinID, days, err)
	}

	points := chart.points()
	if len(points) == 0 {
		return nil, fmt.Errorf("price history %s/%dd: %w", coinID, days, domain.ErrEmptyResult)
	}
	return points, nil
}

// FetchDetail returns rank and all-time-high for coinID. Callers treat any
// error as "details unavailable".
func (c *Client) FetchDetail(ctx context.Context, coinID string) (*domain.CoinDetail, error) {
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", "true")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")
	q.Set("sparkline", "false")

	var detail domain.CoinDetail
	if err := c.get(ctx, "/coins/"+url.PathEscape(coinID), q, &detail); err != nil {
		return nil, fmt.Errorf("coin detail %s: %w", coinID, err)
	}
	return &detail, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return mapContextErr(ctx, err)
		}
	}

	return c.breaker.Do(func() error {
		return c.do(ctx, path, query, out)
	}, countsAsFailure)
}

func (c *Client) do(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", infra.GetUserAgent())
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapContextErr(ctx, err)
	}
	defer resp.Body.Close()

	slog.Debug("Market data request",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &domain.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: c.baseURL + path}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return mapContextErr(ctx, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// mapContextErr turns deadline expiry into ErrTimeout.
func mapContextErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}

// countsAsFailure keeps caller-side problems (4xx, e.g. an unsupported range)
// from tripping the breaker; timeouts, transport errors and 5xx/429 do.
func countsAsFailure(err error) bool {
	var httpErr *domain.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}
