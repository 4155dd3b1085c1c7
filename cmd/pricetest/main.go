package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"crypto_dash/internal/currency"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/infra/coingecko"
)

func main() {
	code := flag.String("currency", "usd", "display currency (usd, eur, inr, gbp, jpy)")
	limit := flag.Int("limit", 10, "number of coins to print")
	flag.Parse()

	cur, err := domain.ParseCurrency(*code)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		cfg, err = infra.ParseConfig(nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	fmt.Println("=== Crypto Dashboard Price Fetcher ===")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. FX rates (identity without a key)
	conv := currency.NewConverter()
	if cur != domain.BaseCurrency {
		if cfg.API.ExchangeRate.APIKey == "" {
			fmt.Printf("⚠️  no exchange rate API key, showing USD amounts\n\n")
		} else if rates, err := infra.NewExchangeRateClientFromConfig(cfg).FetchRates(ctx); err != nil {
			fmt.Printf("⚠️  FX rates unavailable (%v), showing USD amounts\n\n", err)
		} else {
			conv.SetRates(rates)
			rate, _ := conv.Rate(cur)
			fmt.Printf("💱 1 USD = %s %s\n\n", rate.String(), cur.Upper())
		}
	}

	// 2. Market list
	coins, err := coingecko.NewClientFromConfig(cfg).FetchMarketList(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ market list: %v\n", err)
		os.Exit(1)
	}
	if *limit > 0 && len(coins) > *limit {
		coins = coins[:*limit]
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "NAME\tSYMBOL\tPRICE\t24H\tMARKET CAP\tVOLUME\tSPARK\t")
	for _, c := range coins {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d pts\t\n",
			c.Name,
			strings.ToUpper(c.Symbol),
			currency.FormatCurrency(conv.ConvertOpt(c.CurrentPrice, cur), cur),
			currency.FormatChange(c.PriceChangePercentage24h),
			currency.FormatNumber(conv.ConvertOpt(c.MarketCap, cur)),
			currency.FormatNumber(conv.ConvertOpt(c.TotalVolume, cur)),
			len(c.SparklinePrices()),
		)
	}
	tw.Flush()

	fmt.Println()
	fmt.Printf("✅ %d coins, prices in %s\n", len(coins), cur.Upper())
}
