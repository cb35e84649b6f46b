package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"crypto_dash/internal/dashboard"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/infra/coingecko"
	"crypto_dash/internal/infra/storage"
	"crypto_dash/internal/service"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config      *infra.Config
	Storage     *storage.Storage
	Downloader  *infra.IconDownloader
	Client      *coingecko.Client
	Favorites   *service.FavoritesStore
	Preferences *service.Preferences
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, client, stores).
// console mirrors logs to stderr; the TUI keeps it off so the screen stays clean.
func (b *Bootstrap) Initialize(configPath string, console bool) error {
	// 1. Load Config (a missing file runs on defaults)
	cfg, err := infra.LoadConfig(configPath)
	if err != nil && !errors.Is(err, domain.ErrConfigNotFound) {
		return err
	}
	b.Config = cfg
	return b.InitializeWithConfig(cfg, console)
}

// InitializeWithConfig runs the remaining startup steps on an already loaded config.
func (b *Bootstrap) InitializeWithConfig(cfg *infra.Config, console bool) error {
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg, console)
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping Crypto Dash...", slog.String("version", cfg.App.Version))

	// 3. Initialize Storage (DB)
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = infra.DefaultDBPath()
	}
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized", slog.String("path", dbPath))

	// 4. Market data client
	b.Client = coingecko.NewClientWithConfig(cfg).WithMetrics(infra.GlobalMetrics)

	// 5. Persisted user state
	b.Favorites = service.NewFavoritesStore(store, cfg.Storage.FavoritesKey)
	b.Favorites.Load()

	fallback, err := domain.ParseCurrency(cfg.UI.Currency)
	if err != nil {
		fallback = domain.CurrencyUSD
	}
	b.Preferences = service.NewPreferences(store, fallback)
	b.Preferences.Load()

	// 6. Initialize Icon Downloader
	if cfg.Assets.Enabled {
		dir := cfg.Assets.Dir
		if dir == "" {
			dir = infra.DefaultAssetsDir()
		}
		downloader, err := infra.NewIconDownloader(dir, cfg.Assets.IconSize)
		if err != nil {
			return err
		}
		b.Downloader = downloader
		slog.Info("✅ Icon downloader ready")

		b.PruneAssets()
	}

	return nil
}

// NewSession wires a dashboard session on the initialized components.
// Every markets page that arrives feeds the icon cache of the favourites.
func (b *Bootstrap) NewSession(ctx context.Context) *dashboard.Session {
	opts := dashboard.OptionsFromConfig(b.Config)
	if b.Downloader != nil {
		opts.OnMarketsReady = func(coins []domain.Coin) { b.SyncAssets(ctx, coins) }
		opts.Icons = b.CachedIcon
	}
	return dashboard.NewSession(ctx, b.Client, b.Favorites, b.Preferences, opts)
}

// Close releases the database handle.
func (b *Bootstrap) Close() {
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close storage", slog.Any("error", err))
		}
	}
}

// SyncAssets caches metadata and icons of the favourite coins found in coins.
// Icons already on disk are not downloaded again.
func (b *Bootstrap) SyncAssets(ctx context.Context, coins []domain.Coin) {
	if b.Downloader == nil || b.Storage == nil {
		return
	}

	var targets []domain.Coin
	for _, c := range coins {
		if b.Favorites.Has(c.ID) {
			targets = append(targets, c)
		}
	}
	if len(targets) == 0 {
		return
	}
	slog.Debug("🔄 Starting asset synchronization...", slog.Int("coins", len(targets)))

	limit := b.Config.Assets.Concurrency
	if limit <= 0 {
		limit = 5
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, limit) // Limit concurrent downloads

	for _, c := range targets {
		wg.Add(1)
		go func(c domain.Coin) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			// 1. Upsert to DB
			info := &domain.CoinInfo{
				ID:       c.ID,
				Symbol:   c.Symbol,
				Name:     c.Name,
				ImageURL: c.Image,
			}

			// Preserve the icon bookkeeping of earlier runs
			if existing, _ := b.Storage.GetCoin(c.ID); existing != nil {
				info.IconPath = existing.IconPath
				info.LastSyncedAt = existing.LastSyncedAt
				info.CreatedAt = existing.CreatedAt
			}

			if err := b.Storage.UpsertCoin(info); err != nil {
				slog.Error("Failed to upsert coin", slog.String("id", c.ID), slog.Any("error", err))
				return
			}

			// 2. Download Icon (if missing)
			path, err := b.Downloader.DownloadIcon(ctx, c.ID, c.Image)
			if err != nil {
				if !domain.IsCancellation(err) {
					slog.Warn("Failed to download icon", slog.String("id", c.ID), slog.Any("error", err))
				}
				return
			}
			if path != "" && path != info.IconPath {
				info.IconPath = path
				info.LastSyncedAt = time.Now()
				if err := b.Storage.UpsertCoin(info); err != nil {
					slog.Error("Failed to record icon path", slog.String("id", c.ID), slog.Any("error", err))
				}
			}
		}(c)
	}

	wg.Wait()
	slog.Debug("✨ Asset synchronization completed")
}

// PruneAssets drops cached metadata and icon files of coins that are no longer favourites.
func (b *Bootstrap) PruneAssets() {
	if b.Storage == nil || b.Favorites == nil {
		return
	}
	coins, err := b.Storage.GetAllCoins()
	if err != nil {
		slog.Warn("Failed to list cached coins", slog.Any("error", err))
		return
	}

	pruned := 0
	for _, c := range coins {
		if b.Favorites.Has(c.ID) {
			continue
		}
		if c.IconPath != "" {
			if err := os.Remove(c.IconPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("Failed to remove icon", slog.String("id", c.ID), slog.Any("error", err))
			}
		}
		if err := b.Storage.DeleteCoin(c.ID); err != nil {
			slog.Warn("Failed to delete cached coin", slog.String("id", c.ID), slog.Any("error", err))
			continue
		}
		pruned++
	}
	if pruned > 0 {
		slog.Info("🧹 Pruned cached coins", slog.Int("count", pruned))
	}
}

// CachedIcon returns the path of id's cached icon, or "" when none is on disk.
func (b *Bootstrap) CachedIcon(id string) string {
	if b.Storage == nil {
		return ""
	}
	info, err := b.Storage.GetCoin(id)
	if err != nil || info == nil || info.IconPath == "" {
		return ""
	}
	if _, err := os.Stat(info.IconPath); err != nil {
		return ""
	}
	return info.IconPath
}
