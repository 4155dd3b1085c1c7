package infra

import (
	"fmt"
	"io"
	"strings"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner.
// A missing FX key is called out since every non-USD view then shows USD amounts.
func PrintBanner(w io.Writer, cfg *Config) {
	color := ColorCyan
	fxState := "LIVE RATES"
	if cfg.API.ExchangeRate.APIKey == "" {
		color = ColorYellow
		fxState = "NO API KEY (USD VALUES)"
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s###########################################################%s\n", color, ColorReset)
	fmt.Fprintf(w, "%s#                 📈 Crypto Dashboard                     #%s\n", color, ColorReset)
	fmt.Fprintf(w, "%s#   CURRENCY: %-43s #%s\n", color, strings.ToUpper(cfg.UI.DefaultCurrency), ColorReset)
	fmt.Fprintf(w, "%s#   FX:       %-43s #%s\n", color, fxState, ColorReset)
	fmt.Fprintf(w, "%s#   STORAGE:  %-43s #%s\n", color, cfg.Storage.Driver, ColorReset)
	fmt.Fprintf(w, "%s#   VERSION:  %-43s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Fprintf(w, "%s###########################################################%s\n", color, ColorReset)
	fmt.Fprintln(w)
}
