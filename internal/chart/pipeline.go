package chart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
)

// DefaultRetries is the attempt budget of LoadChartWithRetry.
const DefaultRetries = 3

const (
	maxAxisLabels  = 8
	sparklineRange = 7 * 24 * time.Hour
)

// State is the lifecycle of the most recent chart load.
type State int32

const (
	Idle State = iota
	Loading
	Rendered
	FailedFinal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Rendered:
		return "rendered"
	case FailedFinal:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// HistorySource fetches USD price history for a coin.
type HistorySource interface {
	FetchPriceHistory(ctx context.Context, coinID string, days domain.Timeframe) ([]domain.PricePoint, error)
}

// CoinSource returns the current coin collection. The returned slice must not
// be mutated by later refreshes.
type CoinSource interface {
	Coins() []domain.Coin
}

// Converter turns USD amounts into the display currency.
type Converter interface {
	Convert(amountUSD float64, target domain.Currency) float64
}

// Handle is a live chart instance owned by a Renderer.
type Handle interface {
	Destroy()
}

// Renderer is the sink that draws charts and shows the chart status title.
type Renderer interface {
	SetTitle(title string)
	Draw(f Frame) (Handle, error)
}

// Request identifies what to chart.
type Request struct {
	CoinID    string
	CoinName  string
	Timeframe domain.Timeframe
	Currency  domain.Currency
}

// Frame is a reduced series ready for drawing.
type Frame struct {
	CoinID     string
	CoinName   string
	Currency   domain.Currency
	Timeframe  domain.Timeframe
	Labels     []string
	Values     []float64
	Timestamps []time.Time
	// Fallback is set when the series came from the list sparkline.
	Fallback bool
}

// Pipeline loads, reduces and renders price charts. At most one load runs at
// a time and at most one chart handle is live.
type Pipeline struct {
	history  HistorySource
	coins    CoinSource
	conv     Converter
	renderer Renderer

	gate  *semaphore.Weighted
	state atomic.Int32

	handleMu sync.Mutex
	handle   Handle

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	loc   *time.Location
}

// NewPipeline wires a pipeline to its collaborators.
func NewPipeline(history HistorySource, coins CoinSource, conv Converter, renderer Renderer) *Pipeline {
	return &Pipeline{
		history:  history,
		coins:    coins,
		conv:     conv,
		renderer: renderer,
		gate:     semaphore.NewWeighted(1),
		now:      time.Now,
		sleep:    infra.Sleep,
		loc:      time.Local,
	}
}

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Busy reports whether a load is in flight.
func (p *Pipeline) Busy() bool {
	return p.State() == Loading
}

// LoadChart runs one load attempt. It fails fast with ErrBusy while another
// load is in flight. A failed history fetch falls back to the coin's embedded
// sparkline; when there is none the chart is marked "No Data" and nil is
// returned.
func (p *Pipeline) LoadChart(ctx context.Context, req Request) error {
	if req.CoinID == "" {
		return domain.ErrNoSelection
	}
	if !p.gate.TryAcquire(1) {
		return domain.ErrBusy
	}
	defer p.gate.Release(1)

	p.state.Store(int32(Loading))

	snapshot := p.coins.Coins()
	if req.CoinName == "" {
		if c, ok := domain.FindCoin(snapshot, req.CoinID); ok {
			req.CoinName = c.Name
		} else {
			req.CoinName = req.CoinID
		}
	}
	p.renderer.SetTitle(fmt.Sprintf("Loading %s chart…", req.CoinName))

	fallback := false
	points, err := p.history.FetchPriceHistory(ctx, req.CoinID, req.Timeframe)
	if err == nil && len(points) == 0 {
		err = domain.ErrEmptyResult
	}
	if err != nil {
		slog.Warn("Price history unavailable, using sparkline",
			slog.String("coin", req.CoinID),
			slog.Int("days", int(req.Timeframe)),
			slog.Any("error", err),
		)
		points = p.sparklinePoints(snapshot, req.CoinID)
		if len(points) == 0 {
			p.state.Store(int32(FailedFinal))
			p.renderer.SetTitle(fmt.Sprintf("%s Chart (No Data)", req.CoinName))
			return nil
		}
		fallback = true
	}

	frame := p.reduce(req, points)
	frame.Fallback = fallback

	if err := p.draw(frame); err != nil {
		p.state.Store(int32(FailedFinal))
		return fmt.Errorf("render %s chart: %w", req.CoinID, err)
	}

	p.state.Store(int32(Rendered))
	p.renderer.SetTitle(fmt.Sprintf("%s Price Chart (%s)", req.CoinName, req.Timeframe.Label()))
	return nil
}

// LoadChartWithRetry calls LoadChart up to retries times, waiting
// LinearBackoff(i) after failed attempt i. A fallback render or a "No Data"
// result counts as success. When every attempt fails the chart is marked
// "Unavailable".
func (p *Pipeline) LoadChartWithRetry(ctx context.Context, req Request, retries int) error {
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		lastErr = p.LoadChart(ctx, req)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, domain.ErrNoSelection) {
			return lastErr
		}

		slog.Warn("Chart load failed",
			slog.String("coin", req.CoinID),
			slog.Int("attempt", attempt+1),
			slog.Int("of", retries),
			slog.Any("error", lastErr),
		)
		if attempt == retries-1 {
			break
		}
		if err := p.sleep(ctx, infra.LinearBackoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	name := req.CoinName
	if name == "" {
		name = req.CoinID
	}
	p.renderer.SetTitle(fmt.Sprintf("%s Chart (Unavailable)", name))
	return fmt.Errorf("chart %s unavailable: %w", req.CoinID, lastErr)
}

// Close destroys the live chart, if any.
func (p *Pipeline) Close() {
	p.handleMu.Lock()
	defer p.handleMu.Unlock()
	if p.handle != nil {
		p.handle.Destroy()
		p.handle = nil
	}
}

func (p *Pipeline) draw(f Frame) error {
	p.handleMu.Lock()
	defer p.handleMu.Unlock()

	if p.handle != nil {
		p.handle.Destroy()
		p.handle = nil
	}
	h, err := p.renderer.Draw(f)
	if err != nil {
		return err
	}
	p.handle = h
	return nil
}

// sparklinePoints spreads the coin's sparkline samples evenly across the
// trailing seven days.
func (p *Pipeline) sparklinePoints(coins []domain.Coin, coinID string) []domain.PricePoint {
	c, ok := domain.FindCoin(coins, coinID)
	if !ok {
		return nil
	}
	prices := c.SparklinePrices()
	n := len(prices)
	if n == 0 {
		return nil
	}

	start := p.now().Add(-sparklineRange)
	points := make([]domain.PricePoint, n)
	for i, price := range prices {
		offset := time.Duration(float64(sparklineRange) * float64(i) / float64(n))
		points[i] = domain.PricePoint{Timestamp: start.Add(offset), PriceUSD: price}
	}
	return points
}

func (p *Pipeline) reduce(req Request, points []domain.PricePoint) Frame {
	n := len(points)
	stride := LabelStride(n)
	layout := labelLayout(req.Timeframe)

	f := Frame{
		CoinID:     req.CoinID,
		CoinName:   req.CoinName,
		Currency:   req.Currency,
		Timeframe:  req.Timeframe,
		Labels:     make([]string, n),
		Values:     make([]float64, n),
		Timestamps: make([]time.Time, n),
	}
	for i, pt := range points {
		f.Values[i] = p.conv.Convert(pt.PriceUSD, req.Currency)
		f.Timestamps[i] = pt.Timestamp
		if i%stride == 0 {
			f.Labels[i] = pt.Timestamp.In(p.loc).Format(layout)
		}
	}
	return f
}

// LabelStride returns how many points share one axis label so that roughly
// eight labels are shown.
func LabelStride(n int) int {
	if s := n / maxAxisLabels; s > 1 {
		return s
	}
	return 1
}

func labelLayout(tf domain.Timeframe) string {
	if tf == domain.Timeframe1D {
		return "03:04 PM"
	}
	return "Jan 2"
}
