package ui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"text/tabwriter"

	"crypto_dash/internal/chart"
	"crypto_dash/internal/engine"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Console renders the dashboard as plain text.
type Console struct {
	mu   sync.Mutex
	out  io.Writer
	live int
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) ShowCoins(rows []engine.CoinRow) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(rows) == 0 {
		fmt.Fprintln(c.out, "(no coins)")
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tSYMBOL\tPRICE\t24H\tMARKET CAP\tVOLUME\t")
	for _, r := range rows {
		mark := " "
		if r.Selected {
			mark = ">"
		}
		star := "☆"
		if r.Watched {
			star = "★"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			mark, star, r.Name, r.Symbol, r.Price, r.Change, r.MarketCap, r.Volume)
	}
	tw.Flush()
}

func (c *Console) ShowListMessage(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "-- %s\n", msg)
}

func (c *Console) ShowNotice(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "* %s\n", msg)
}

func (c *Console) ShowDetails(d engine.Details) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tw := tabwriter.NewWriter(c.out, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "%s (%s)\n", d.Name, d.Symbol)
	if d.Rank != "" {
		fmt.Fprintf(tw, "Rank:\t%s\n", d.Rank)
	}
	if d.ATH != "" {
		fmt.Fprintf(tw, "ATH:\t%s\n", d.ATH)
	}
	fmt.Fprintf(tw, "Price:\t%s\n", d.Price)
	fmt.Fprintf(tw, "24h Change:\t%s\n", d.Change)
	fmt.Fprintf(tw, "Market Cap:\t%s\n", d.MarketCap)
	fmt.Fprintf(tw, "Volume:\t%s\n", d.Volume)
	tw.Flush()
	if d.Notice != "" {
		fmt.Fprintln(c.out, d.Notice)
	}
}

func (c *Console) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[chart] %s\n", title)
}

// Draw prints the frame as a one-line sparkline with its first and last
// labels and the value range.
func (c *Console) Draw(f chart.Frame) (chart.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(f.Values) == 0 {
		return nil, fmt.Errorf("empty frame for %s", f.CoinID)
	}
	lo, hi := valueRange(f.Values)
	first, last := edgeLabels(f.Labels)
	source := ""
	if f.Fallback {
		source = " (7d sparkline)"
	}
	fmt.Fprintf(c.out, "%s %s %s%s  %.2f..%.2f %s\n",
		first, Sparkline(f.Values), last, source, lo, hi, f.Currency.Upper())

	c.live++
	return &consoleChart{console: c}, nil
}

// Live returns the number of charts drawn and not yet destroyed.
func (c *Console) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

type consoleChart struct {
	console *Console
	once    sync.Once
}

func (h *consoleChart) Destroy() {
	h.once.Do(func() {
		h.console.mu.Lock()
		h.console.live--
		h.console.mu.Unlock()
	})
}

// Sparkline maps values onto block characters, lowest to highest.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := valueRange(values)
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = int(math.Round((v - lo) / (hi - lo) * float64(len(sparkBlocks)-1)))
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

func valueRange(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func edgeLabels(labels []string) (first, last string) {
	for _, l := range labels {
		if l != "" {
			if first == "" {
				first = l
			}
			last = l
		}
	}
	return first, last
}
