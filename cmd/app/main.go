package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"crypto_dash/internal/app"
	"crypto_dash/internal/chart"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/event"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/ui"

	_ "net/http/pprof" // For pprof profiling
)

const usage = `commands:
  select <id>        show a coin (chart and details)
  currency <code>    usd, eur, inr, gbp, jpy
  timeframe <days>   1, 7, 30, 90, 365
  search <text>      filter by name or symbol (empty clears)
  watch [id]         toggle watchlist (default: selected coin)
  add <qty>          add a holding of the selected coin
  watchlist | all    switch list mode
  portfolio          portfolio summary
  refresh            reload the market list
  help | quit`

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: ./configs or OS config dir)")
	pprofAddr := flag.String("pprof", "", "pprof listen address, e.g. localhost:6060")
	flag.Parse()

	// 1. Pprof Server (for performance profiling)
	if *pprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", *pprofAddr))
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap(*configPath)
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	cfg := bootstrap.Config
	infra.PrintBanner(os.Stdout, cfg)

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.LoadState(ctx); err != nil {
		slog.Error("❌ Loading state failed", slog.Any("error", err))
		return
	}

	// 4. Sinks: console always, websocket feed when configured
	var ctrl *engine.Controller
	sinks := ui.Tee{ui.NewConsole(os.Stdout)}
	var feed *ui.Feed
	if cfg.UI.FeedAddr != "" {
		feed = ui.NewFeed(func(cmd event.Command) {
			if err := ctrl.Submit(ctx, cmd); err != nil {
				slog.Warn("Feed command dropped", slog.Any("error", err))
			}
		})
		sinks = append(sinks, feed)
	}

	// 5. Session, chart pipeline and controller
	session := engine.NewSession(domain.Currency(cfg.UI.DefaultCurrency), domain.Timeframe(cfg.UI.DefaultTimeframe))
	pipeline := chart.NewPipeline(bootstrap.Market, session, bootstrap.Converter, sinks)
	defer pipeline.Close()

	ctrl = engine.NewController(engine.Config{
		RefreshInterval: cfg.RefreshInterval(),
		ChartDelay:      cfg.ChartLoadDelay(),
		ChartRetries:    cfg.UI.ChartRetries,
	}, engine.Deps{
		Session:   session,
		Market:    bootstrap.Market,
		Charts:    pipeline,
		Converter: bootstrap.Converter,
		Watchlist: bootstrap.Watchlist,
		Portfolio: bootstrap.Portfolio,
		View:      sinks,
	})

	done := make(chan struct{})
	go func() {
		ctrl.Run(ctx)
		close(done)
	}()
	slog.InfoContext(ctx, "✅ Controller started")

	// 6. Live feed server
	if feed != nil {
		mux := http.NewServeMux()
		mux.Handle("/ws", feed)
		srv := &http.Server{Addr: cfg.UI.FeedAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			slog.Info("✅ Feed server listening", slog.String("addr", cfg.UI.FeedAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Feed server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			feed.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// 7. Commands from stdin
	go readCommands(ctx, os.Stdin, os.Stdout, ctrl, stop)

	slog.InfoContext(ctx, "✨ Dashboard running. Type 'help' for commands, Ctrl+C to exit.")

	<-ctx.Done()
	<-done

	slog.Info("👋 Shutting down gracefully...")
}

func readCommands(ctx context.Context, in io.Reader, out io.Writer, ctrl *engine.Controller, quit func()) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "help", "?":
			fmt.Fprintln(out, usage)
			continue
		case "quit", "exit":
			quit()
			return
		}

		cmd, err := event.ParseCommand(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if err := ctrl.Submit(ctx, cmd); err != nil {
			return
		}
	}
}
