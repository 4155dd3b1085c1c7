package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"crypto_dash/internal/chart"
	"crypto_dash/internal/currency"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/event"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/storage"
)

// MarketSource is the subset of the market data client the controller uses.
type MarketSource interface {
	FetchMarketList(ctx context.Context) ([]domain.Coin, error)
	FetchDetail(ctx context.Context, coinID string) (*domain.CoinDetail, error)
}

// ChartLoader loads charts for the current selection.
type ChartLoader interface {
	LoadChartWithRetry(ctx context.Context, req chart.Request, retries int) error
	Busy() bool
}

// Config tunes the controller loop.
type Config struct {
	InboxSize       int
	RefreshInterval time.Duration
	ChartDelay      time.Duration
	ChartRetries    int
}

// DefaultConfig matches the dashboard defaults: refresh every two minutes,
// chart load half a second after a refresh, three chart attempts.
func DefaultConfig() Config {
	return Config{
		InboxSize:       64,
		RefreshInterval: 120 * time.Second,
		ChartDelay:      500 * time.Millisecond,
		ChartRetries:    chart.DefaultRetries,
	}
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Session   *Session
	Market    MarketSource
	Charts    ChartLoader
	Converter *currency.Converter
	Watchlist *storage.Watchlist
	Portfolio *storage.Portfolio
	View      View
}

// Controller is the single-threaded command processor of the dashboard.
// Network work runs in background goroutines so the loop never blocks on I/O.
type Controller struct {
	cfg   Config
	inbox chan event.Command

	session   *Session
	market    MarketSource
	charts    ChartLoader
	conv      *currency.Converter
	watchlist *storage.Watchlist
	portfolio *storage.Portfolio
	view      View

	processed atomic.Uint64
	wg        sync.WaitGroup
	now       func() time.Time
}

// NewController creates a controller. Zero config fields take their defaults.
func NewController(cfg Config, deps Deps) *Controller {
	def := DefaultConfig()
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = def.InboxSize
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = def.RefreshInterval
	}
	if cfg.ChartRetries <= 0 {
		cfg.ChartRetries = def.ChartRetries
	}
	if cfg.ChartDelay < 0 {
		cfg.ChartDelay = 0
	}
	return &Controller{
		cfg:       cfg,
		inbox:     make(chan event.Command, cfg.InboxSize),
		session:   deps.Session,
		market:    deps.Market,
		charts:    deps.Charts,
		conv:      deps.Converter,
		watchlist: deps.Watchlist,
		portfolio: deps.Portfolio,
		view:      deps.View,
		now:       time.Now,
	}
}

// Inbox returns the command channel. Input sources send commands here.
func (c *Controller) Inbox() chan<- event.Command {
	return c.inbox
}

// Submit queues cmd, giving up when ctx is done.
func (c *Controller) Submit(ctx context.Context, cmd event.Command) error {
	select {
	case c.inbox <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Processed returns how many commands have been dispatched.
func (c *Controller) Processed() uint64 {
	return c.processed.Load()
}

// Run fetches the market list, then processes commands and periodic
// refreshes until ctx is done. It must run in a single goroutine.
func (c *Controller) Run(ctx context.Context) {
	slog.Info("Controller started", slog.Duration("refresh", c.cfg.RefreshInterval))

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			c.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	c.refresh(ctx)

	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Controller stopping...")
			c.wg.Wait()
			return
		case cmd := <-c.inbox:
			c.Dispatch(ctx, cmd)
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

// Wait blocks until background fetches and chart loads have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Dispatch applies one command.
func (c *Controller) Dispatch(ctx context.Context, cmd event.Command) {
	seq := c.processed.Add(1)
	slog.Debug("Command", slog.Uint64("seq", seq), slog.String("type", cmd.GetType().String()))

	switch e := cmd.(type) {
	case event.SelectCommand:
		c.handleSelect(ctx, e.CoinID)
	case event.CurrencyCommand:
		c.session.SetCurrency(e.Currency)
		c.Render()
		c.loadChart(ctx, 0)
	case event.TimeframeCommand:
		if c.charts.Busy() {
			slog.Debug("Timeframe change ignored while chart is loading", slog.Int("days", int(e.Timeframe)))
			return
		}
		c.session.SetTimeframe(e.Timeframe)
		c.loadChart(ctx, 0)
	case event.SearchCommand:
		c.session.SetQuery(strings.TrimSpace(e.Query))
		c.Render()
	case event.WatchCommand:
		c.handleWatch(ctx, e.CoinID)
	case event.AddHoldingCommand:
		c.handleAddHolding(ctx, e.Quantity)
	case event.ShowWatchlistCommand:
		c.session.SetMode(ListWatchlist)
		c.Render()
	case event.ShowAllCommand:
		c.session.SetMode(ListAll)
		c.session.SetQuery("")
		c.Render()
	case event.PortfolioCommand:
		c.view.ShowNotice(c.PortfolioNotice())
	case event.RefreshCommand:
		c.refresh(ctx)
	default:
		slog.Warn("Unknown command type", slog.Any("type", cmd.GetType()))
	}
}

// FetchCoins replaces the coin collection with a fresh market list. On
// success the first coin is selected if nothing is, the list is rendered and
// a chart load is scheduled after the configured delay.
func (c *Controller) FetchCoins(ctx context.Context) error {
	c.view.ShowListMessage("Loading coins...")

	coins, err := c.market.FetchMarketList(ctx)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, domain.ErrTimeout) {
			msg = "Request timed out"
		}
		slog.Warn("Market list fetch failed", slog.Any("error", err))
		c.view.ShowListMessage(msg)
		return err
	}

	c.session.SetCoins(coins, c.now())
	if c.session.SelectFirstIfEmpty() {
		id, _ := c.session.Selection()
		slog.Info("Selected first coin", slog.String("coin", id))
	}
	slog.Info("Market list updated", slog.Int("coins", len(coins)))

	c.Render()
	c.loadChart(ctx, c.cfg.ChartDelay)
	return nil
}

// LoadDetails shows the detail panel for coinID, falling back to list data
// when the detail endpoint fails.
func (c *Controller) LoadDetails(ctx context.Context, coinID string) {
	cur := c.session.Currency()
	coin, _ := domain.FindCoin(c.session.Coins(), coinID)
	d := summaryDetails(coin, c.conv, cur)
	d.CoinID = coinID

	detail, err := c.market.FetchDetail(ctx, coinID)
	if err != nil {
		slog.Warn("Coin details unavailable", slog.String("coin", coinID), slog.Any("error", err))
		d.Notice = DetailsUnavailable
		c.view.ShowDetails(d)
		return
	}

	d.Rank = "#" + currency.NotAvailable
	if detail.MarketCapRank != nil {
		d.Rank = fmt.Sprintf("#%d", *detail.MarketCapRank)
	}
	d.ATH = currency.NotAvailable
	if ath, ok := detail.ATHUSD(); ok {
		d.ATH = currency.FormatCurrency(currency.Float(c.conv.Convert(ath, cur)), cur)
	}
	c.view.ShowDetails(d)
}

// Render redraws the coin list for the current mode, query and currency.
func (c *Controller) Render() {
	coins := c.session.Coins()
	cur := c.session.Currency()
	query := c.session.Query()
	mode := c.session.Mode()
	selected, _ := c.session.Selection()

	rows := make([]CoinRow, 0, len(coins))
	for _, coin := range coins {
		watched := c.watchlist.Contains(coin.ID)
		if mode == ListWatchlist && !watched {
			continue
		}
		if !MatchesQuery(coin, query) {
			continue
		}
		rows = append(rows, buildRow(coin, c.conv, cur, watched, coin.ID == selected))
	}
	c.view.ShowCoins(rows)
}

// PortfolioNotice summarises the portfolio in the display currency.
func (c *Controller) PortfolioNotice() string {
	msg := fmt.Sprintf("You have %d item(s) in your portfolio.", c.portfolio.Len())

	prices := make(map[string]float64)
	for _, coin := range c.session.Coins() {
		if coin.CurrentPrice != nil {
			prices[coin.ID] = *coin.CurrentPrice
		}
	}
	sum := c.portfolio.Summary(prices)
	if sum.Priced == 0 {
		return msg
	}
	cur := c.session.Currency()
	total := c.conv.Convert(sum.TotalUSD.InexactFloat64(), cur)
	return msg + " Total value: " + currency.FormatCurrency(currency.Float(total), cur)
}

// DumpState writes the session to a file (for post-mortem).
func (c *Controller) DumpState(filename string) {
	slog.Info("Dumping session state...", slog.String("file", filename))

	data := struct {
		Processed uint64       `json:"processed"`
		Session   SessionState `json:"session"`
		Watchlist []string     `json:"watchlist"`
		Holdings  int          `json:"holdings"`
		SavedAt   *time.Time   `json:"portfolio_saved_at,omitempty"`
	}{
		Processed: c.processed.Load(),
		Session:   c.session.Snapshot(),
		Watchlist: c.watchlist.IDs(),
		Holdings:  c.portfolio.Len(),
	}
	if at := c.portfolio.SavedAt(context.Background()); !at.IsZero() {
		data.SavedAt = &at
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}

func (c *Controller) handleSelect(ctx context.Context, coinID string) {
	coin, ok := domain.FindCoin(c.session.Coins(), coinID)
	if !ok {
		c.view.ShowNotice(fmt.Sprintf("Unknown coin %q", coinID))
		return
	}
	c.session.Select(coin.ID, coin.Name)
	c.Render()
	c.loadChart(ctx, 0)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.LoadDetails(ctx, coin.ID)
	}()
}

func (c *Controller) handleWatch(ctx context.Context, coinID string) {
	if coinID == "" {
		coinID, _ = c.session.Selection()
	}
	if coinID == "" {
		c.view.ShowNotice("Select a coin first")
		return
	}
	if _, err := c.watchlist.Toggle(ctx, coinID); err != nil {
		slog.Error("Failed to save watchlist", slog.Any("error", err))
		c.view.ShowNotice("Watchlist could not be saved")
	}
	c.Render()
}

func (c *Controller) handleAddHolding(ctx context.Context, qty string) {
	coinID, name := c.session.Selection()
	h, err := c.portfolio.AddHolding(ctx, coinID, qty)
	switch {
	case errors.Is(err, domain.ErrNoSelection):
		c.view.ShowNotice("Select a coin first")
	case errors.Is(err, domain.ErrInvalidQuantity):
		c.view.ShowNotice("Invalid quantity")
	case err != nil:
		slog.Error("Failed to save portfolio", slog.Any("error", err))
		c.view.ShowNotice("Portfolio could not be saved")
	default:
		slog.Info("Holding added",
			slog.String("coin", coinID),
			slog.String("name", name),
			slog.Float64("qty", h.Qty),
			slog.String("entry", h.EntryID),
		)
		c.view.ShowNotice("Added to portfolio")
	}
}

// refresh runs FetchCoins in the background. Overlapping refreshes are
// allowed; the last one to finish wins.
func (c *Controller) refresh(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.FetchCoins(ctx)
	}()
}

// loadChart loads the chart of the current selection after delay.
func (c *Controller) loadChart(ctx context.Context, delay time.Duration) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := infra.Sleep(ctx, delay); err != nil {
			return
		}
		id, name := c.session.Selection()
		if id == "" {
			return
		}
		req := chart.Request{
			CoinID:    id,
			CoinName:  name,
			Timeframe: c.session.Timeframe(),
			Currency:  c.session.Currency(),
		}
		if err := c.charts.LoadChartWithRetry(ctx, req, c.cfg.ChartRetries); err != nil {
			slog.Warn("Chart unavailable", slog.String("coin", id), slog.Any("error", err))
		}
	}()
}
