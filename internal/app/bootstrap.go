package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"crypto_dash/internal/currency"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/infra/coingecko"
	"crypto_dash/internal/storage"
)

// RatesSource provides FX multipliers from the base currency.
type RatesSource interface {
	FetchRates(ctx context.Context) (map[domain.Currency]decimal.Decimal, error)
}

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string

	Config    *infra.Config
	Store     storage.KV
	Market    *coingecko.Client
	Rates     RatesSource
	Converter *currency.Converter
	Watchlist *storage.Watchlist
	Portfolio *storage.Portfolio

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance. An empty configPath uses
// infra.ResolveConfigPath.
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize performs core system initialization (config, logger, store).
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping Crypto Dashboard...")

	// 1. Load Config (Dynamic Path Resolution)
	path := b.ConfigPath
	if path == "" {
		path = infra.ResolveConfigPath()
	}
	cfg, err := infra.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Config file not found, using defaults", slog.String("path", path))
		cfg, err = infra.ParseConfig(nil)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	b.Config = cfg

	workDir := infra.GetWorkspaceDir()

	// 1.1 Optional secrets file beside the data
	secretPath := filepath.Join(workDir, "secrets.yaml")
	if secrets, err := infra.LoadSecretConfig(secretPath); err == nil {
		secrets.Apply(cfg)
		slog.Info("Loaded API keys", slog.String("path", secretPath))
	} else if !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Ignoring secrets file", slog.Any("error", err))
	}

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))

	// 3. Workspace and single instance lock
	if err := infra.EnsureDir(workDir); err != nil {
		return fmt.Errorf("failed to create workspace dir: %w", err)
	}
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	// 4. Key-value store for watchlist and portfolio
	storePath := infra.StorePath(workDir, cfg.Storage.Driver)
	kv, err := storage.Open(cfg.Storage.Driver, storePath)
	if err != nil {
		b.unlock()
		return err
	}
	b.Store = kv
	slog.Info("✅ Store initialized", slog.String("driver", cfg.Storage.Driver), slog.String("path", storePath))

	// 5. Upstream clients
	b.Market = coingecko.NewClientFromConfig(cfg)
	b.Rates = infra.NewExchangeRateClientFromConfig(cfg)
	b.Converter = currency.NewConverter()

	return nil
}

// LoadState fetches FX rates and loads the persisted watchlist and portfolio
// concurrently. A failed FX fetch leaves every rate at identity.
func (b *Bootstrap) LoadState(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if b.Config.API.ExchangeRate.APIKey == "" {
			slog.Warn("No exchange rate API key, showing USD amounts")
			return nil
		}
		rates, err := b.Rates.FetchRates(gctx)
		if err != nil {
			slog.Warn("FX rates unavailable, showing USD amounts", slog.Any("error", err))
			return nil
		}
		b.Converter.SetRates(rates)
		slog.Info("✅ FX rates loaded", slog.Int("currencies", len(rates)))
		return nil
	})
	g.Go(func() error {
		b.Watchlist = storage.LoadWatchlist(gctx, b.Store)
		slog.Info("Watchlist loaded", slog.Int("coins", len(b.Watchlist.IDs())))
		return nil
	})
	g.Go(func() error {
		b.Portfolio = storage.LoadPortfolio(gctx, b.Store)
		slog.Info("Portfolio loaded", slog.Int("holdings", b.Portfolio.Len()))
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Close releases the store and the instance lock.
func (b *Bootstrap) Close() {
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Warn("Failed to close store", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}
