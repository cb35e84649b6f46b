package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"crypto_dash/internal/busy"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/fetch"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/search"
	"crypto_dash/internal/service"
)

// View is the main screen shown below the global stats.
type View int

const (
	ViewMarkets View = iota
	ViewWatchlist
)

func (v View) String() string {
	if v == ViewWatchlist {
		return "Watchlist"
	}
	return "Markets"
}

// MoversLimit is how many gainers and losers the movers panel shows.
const MoversLimit = 5

// MarketsKey binds the markets grid.
type MarketsKey struct {
	Currency domain.Currency
	Page     int
}

// CandlesKey binds the OHLC chart of the detail overlay.
type CandlesKey struct {
	ID   string
	Days int
}

// ChartKey binds the price chart of the detail overlay.
type ChartKey struct {
	ID       string
	Currency domain.Currency
	Days     int
}

// Options configures a Session.
type Options struct {
	PageSize        int
	WatchlistSize   int
	OHLCDays        int
	ChartDays       int
	BusyDelay       time.Duration
	RefreshInterval time.Duration
	Search          search.Options
	Recorder        fetch.Recorder

	// OnMarketsReady runs on its own goroutine whenever a markets page arrives.
	OnMarketsReady func(coins []domain.Coin)

	// Icons resolves the path of a coin's cached icon, "" when not cached.
	Icons func(id string) string
}

// OptionsFromConfig maps the ui config section onto session options.
func OptionsFromConfig(cfg *infra.Config) Options {
	return Options{
		PageSize:        cfg.UI.PageSize,
		WatchlistSize:   cfg.UI.WatchlistSize,
		OHLCDays:        cfg.UI.OHLCDays,
		ChartDays:       cfg.UI.ChartDays,
		BusyDelay:       infra.Millis(cfg.UI.BusyDelayMS),
		RefreshInterval: time.Duration(cfg.UI.RefreshIntervalSec) * time.Second,
		Search: search.Options{
			Debounce:     infra.Millis(cfg.UI.SearchDebounceMS),
			BlurGrace:    infra.Millis(cfg.UI.BlurGraceMS),
			PopularLimit: cfg.UI.PopularSuggestions,
			MatchLimit:   cfg.UI.MaxSuggestions,
		},
		Recorder: infra.GlobalMetrics,
	}
}

// Session composes the dashboard: one fetch controller per bound view, the
// favourites and currency stores, search, sort state and the busy indicator.
type Session struct {
	ctx      context.Context
	cancel   context.CancelFunc
	provider domain.MarketDataProvider
	opts     Options
	logger   *slog.Logger

	Favorites   *service.FavoritesStore
	Preferences *service.Preferences
	Busy        *busy.Indicator
	Search      *search.Engine

	markets   *fetch.Controller[MarketsKey, []domain.Coin]
	global    *fetch.Controller[domain.Currency, *domain.GlobalMarketStats]
	watchlist *fetch.Controller[domain.Currency, []domain.Coin]
	trending  *fetch.Controller[struct{}, []domain.TrendingCoin]
	detail    *fetch.Controller[string, *domain.CoinDetail]
	candles   *fetch.Controller[CandlesKey, []domain.Candle]
	chart     *fetch.Controller[ChartKey, *domain.MarketChart]

	mu            sync.Mutex
	view          View
	page          int
	sortKey       domain.SortKey
	sortDir       domain.SortDirection
	favoritesOnly bool
	selected      *domain.Coin
	chartDays     int
	listing       service.Listing

	refresher *Refresher
	changes   chan struct{}
	unsubs    []func()
	closeOnce sync.Once
}

// NewSession wires a session. Nothing is fetched until Start.
func NewSession(ctx context.Context, provider domain.MarketDataProvider, favorites *service.FavoritesStore, prefs *service.Preferences, opts Options) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.WatchlistSize <= 0 {
		opts.WatchlistSize = 250
	}
	if opts.OHLCDays <= 0 {
		opts.OHLCDays = 7
	}
	if opts.ChartDays <= 0 {
		opts.ChartDays = 7
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ctx:         ctx,
		cancel:      cancel,
		provider:    provider,
		opts:        opts,
		logger:      slog.Default().With(slog.String("module", "dashboard")),
		Favorites:   favorites,
		Preferences: prefs,
		page:        1,
		sortKey:     domain.SortMarketCap,
		sortDir:     domain.SortDesc,
		chartDays:   opts.ChartDays,
		changes:     make(chan struct{}, 1),
	}

	s.Busy = busy.NewIndicator(opts.BusyDelay, func(bool) { s.signal() })
	searchOpts := opts.Search
	searchOpts.OnChange = s.signal
	s.Search = search.NewEngine(searchOpts)

	fopts := []fetch.Option{fetch.WithBusy(s.Busy)}
	if opts.Recorder != nil {
		fopts = append(fopts, fetch.WithRecorder(opts.Recorder))
	}

	s.markets = fetch.New(ctx, "markets", func(ctx context.Context, k MarketsKey) ([]domain.Coin, error) {
		return provider.Coins(ctx, k.Currency, k.Page, opts.PageSize)
	}, fopts...)
	s.global = fetch.New(ctx, "global", func(ctx context.Context, _ domain.Currency) (*domain.GlobalMarketStats, error) {
		return provider.GlobalStats(ctx)
	}, fopts...)
	s.watchlist = fetch.New(ctx, "watchlist", func(ctx context.Context, c domain.Currency) ([]domain.Coin, error) {
		return provider.Coins(ctx, c, 1, opts.WatchlistSize)
	}, fopts...)
	s.trending = fetch.New(ctx, "trending", func(ctx context.Context, _ struct{}) ([]domain.TrendingCoin, error) {
		return provider.Trending(ctx)
	}, fopts...)
	s.detail = fetch.New(ctx, "detail", provider.CoinDetail, fopts...)
	s.candles = fetch.New(ctx, "candles", func(ctx context.Context, k CandlesKey) ([]domain.Candle, error) {
		return provider.OHLC(ctx, k.ID, k.Days)
	}, fopts...)
	s.chart = fetch.New(ctx, "chart", func(ctx context.Context, k ChartKey) (*domain.MarketChart, error) {
		return provider.MarketChart(ctx, k.ID, k.Currency, k.Days)
	}, fopts...)

	s.unsubs = append(s.unsubs,
		s.markets.Subscribe(s.onMarkets),
		s.global.Subscribe(func(fetch.Snapshot[domain.Currency, *domain.GlobalMarketStats]) { s.signal() }),
		s.watchlist.Subscribe(func(fetch.Snapshot[domain.Currency, []domain.Coin]) { s.signal() }),
		s.trending.Subscribe(func(fetch.Snapshot[struct{}, []domain.TrendingCoin]) { s.signal() }),
		s.detail.Subscribe(func(fetch.Snapshot[string, *domain.CoinDetail]) { s.signal() }),
		s.candles.Subscribe(func(fetch.Snapshot[CandlesKey, []domain.Candle]) { s.signal() }),
		s.chart.Subscribe(func(fetch.Snapshot[ChartKey, *domain.MarketChart]) { s.signal() }),
		prefs.Subscribe(s.onCurrency),
		favorites.Subscribe(func([]string) { s.signal() }),
	)

	s.refresher = NewRefresher(opts.RefreshInterval, s.Refresh)
	return s
}

// Start issues the initial fetches and the auto refresh loop.
func (s *Session) Start() {
	cur := s.Preferences.Currency()

	s.mu.Lock()
	page := s.page
	s.mu.Unlock()

	s.markets.Load(MarketsKey{Currency: cur, Page: page})
	s.global.Load(cur)
	s.trending.Load(struct{}{})
	if s.Favorites.Len() > 0 {
		s.watchlist.Load(cur)
	}
	s.refresher.Start(s.ctx)
	s.logger.Info("Dashboard started", slog.String("currency", string(cur)))
}

// onMarkets runs under the markets controller lock.
func (s *Session) onMarkets(snap fetch.Snapshot[MarketsKey, []domain.Coin]) {
	if snap.Status == fetch.Ready {
		s.Search.SetCoins(snap.Data)
		if s.opts.OnMarketsReady != nil {
			go s.opts.OnMarketsReady(snap.Data)
		}
	}
	s.signal()
}

// onCurrency re-keys every price-bearing view.
func (s *Session) onCurrency(cur domain.Currency) {
	s.mu.Lock()
	page := s.page
	selected := s.selected
	days := s.chartDays
	s.mu.Unlock()

	s.markets.Load(MarketsKey{Currency: cur, Page: page})
	s.global.Load(cur)
	if s.watchlist.Snapshot().HasKey {
		s.watchlist.Load(cur)
	}
	if selected != nil {
		s.chart.Load(ChartKey{ID: selected.ID, Currency: cur, Days: days})
	}
	s.signal()
}

// signal wakes the renderer. Bursts collapse into one pending notification.
func (s *Session) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Changes delivers a value whenever anything visible may have changed.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

// SetCurrency switches the quote currency; views refetch through the preferences subscription.
func (s *Session) SetCurrency(c domain.Currency) error {
	return s.Preferences.SetCurrency(c)
}

// CycleCurrency moves to the next supported currency.
func (s *Session) CycleCurrency() error {
	return s.SetCurrency(s.Preferences.Currency().Next())
}

// Currency returns the selected currency.
func (s *Session) Currency() domain.Currency {
	return s.Preferences.Currency()
}

// SetView switches the main screen. The watchlist is fetched on first show.
func (s *Session) SetView(v View) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()

	if v == ViewWatchlist {
		s.watchlist.Load(s.Preferences.Currency())
	}
	s.signal()
}

// View returns the current main screen.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// ToggleFavorite flips id's favourite state.
func (s *Session) ToggleFavorite(id string) (bool, error) {
	added, err := s.Favorites.Toggle(id)
	if err != nil {
		return false, err
	}
	if added {
		// A watchlist that was never bound gets its data now
		s.watchlist.Load(s.Preferences.Currency())
	}
	return added, nil
}

// SetSort selects the sort key and direction.
func (s *Session) SetSort(key domain.SortKey, dir domain.SortDirection) {
	s.mu.Lock()
	s.sortKey, s.sortDir = key, dir
	s.mu.Unlock()
	s.signal()
}

// CycleSortKey moves to the next sort key.
func (s *Session) CycleSortKey() {
	s.mu.Lock()
	s.sortKey = s.sortKey.Next()
	s.mu.Unlock()
	s.signal()
}

// ToggleDirection flips ascending and descending.
func (s *Session) ToggleDirection() {
	s.mu.Lock()
	s.sortDir = s.sortDir.Toggle()
	s.mu.Unlock()
	s.signal()
}

// Sort returns the sort key and direction.
func (s *Session) Sort() (domain.SortKey, domain.SortDirection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortKey, s.sortDir
}

// ToggleFavoritesOnly restricts the markets grid to favourites.
func (s *Session) ToggleFavoritesOnly() {
	s.mu.Lock()
	s.favoritesOnly = !s.favoritesOnly
	s.mu.Unlock()
	s.signal()
}

// FavoritesOnly reports whether the markets grid shows favourites only.
func (s *Session) FavoritesOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favoritesOnly
}

// NextPage loads the next markets page.
func (s *Session) NextPage() {
	s.setPage(1)
}

// PrevPage loads the previous markets page; page 1 is the floor.
func (s *Session) PrevPage() {
	s.setPage(-1)
}

func (s *Session) setPage(delta int) {
	s.mu.Lock()
	page := s.page + delta
	if page < 1 {
		page = 1
	}
	changed := page != s.page
	s.page = page
	s.mu.Unlock()

	if changed {
		s.markets.Load(MarketsKey{Currency: s.Preferences.Currency(), Page: page})
	}
}

// Page returns the current markets page.
func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// OpenDetail opens the detail overlay for coin and fetches its detail and charts.
func (s *Session) OpenDetail(coin domain.Coin) {
	s.mu.Lock()
	c := coin
	s.selected = &c
	days := s.chartDays
	s.mu.Unlock()

	s.detail.Load(coin.ID)
	s.candles.Load(CandlesKey{ID: coin.ID, Days: s.opts.OHLCDays})
	s.chart.Load(ChartKey{ID: coin.ID, Currency: s.Preferences.Currency(), Days: days})
	s.signal()
}

// CloseDetail closes the overlay. Its in-flight requests are cancelled.
func (s *Session) CloseDetail() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()

	s.detail.Reset()
	s.candles.Reset()
	s.chart.Reset()
	s.signal()
}

// Selected returns the coin of the open detail overlay, if any.
func (s *Session) Selected() (domain.Coin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return domain.Coin{}, false
	}
	return *s.selected, true
}

// SetChartDays changes the price chart window of the open overlay.
func (s *Session) SetChartDays(days int) {
	if days < 1 {
		return
	}
	s.mu.Lock()
	s.chartDays = days
	selected := s.selected
	s.mu.Unlock()

	if selected != nil {
		s.chart.Load(ChartKey{ID: selected.ID, Currency: s.Preferences.Currency(), Days: days})
	}
}

// ChartDays returns the price chart window.
func (s *Session) ChartDays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chartDays
}

// Snapshots of every bound view.

func (s *Session) Markets() fetch.Snapshot[MarketsKey, []domain.Coin] { return s.markets.Snapshot() }
func (s *Session) Global() fetch.Snapshot[domain.Currency, *domain.GlobalMarketStats] {
	return s.global.Snapshot()
}
func (s *Session) Watchlist() fetch.Snapshot[domain.Currency, []domain.Coin] {
	return s.watchlist.Snapshot()
}
func (s *Session) Trending() fetch.Snapshot[struct{}, []domain.TrendingCoin] {
	return s.trending.Snapshot()
}
func (s *Session) Detail() fetch.Snapshot[string, *domain.CoinDetail] { return s.detail.Snapshot() }
func (s *Session) Candles() fetch.Snapshot[CandlesKey, []domain.Candle] {
	return s.candles.Snapshot()
}
func (s *Session) Chart() fetch.Snapshot[ChartKey, *domain.MarketChart] { return s.chart.Snapshot() }

// VisibleCoins is the markets grid after favourites-only, search and sort.
func (s *Session) VisibleCoins() []domain.Coin {
	snap := s.markets.Snapshot()

	s.mu.Lock()
	params := service.ListingParams{
		DataGeneration:   snap.Generation,
		Query:            s.Search.Query(),
		Key:              s.sortKey,
		Dir:              s.sortDir,
		FavoritesOnly:    s.favoritesOnly,
		FavoritesVersion: s.Favorites.Version(),
	}
	s.mu.Unlock()

	return s.listing.Derive(snap.Data, params, s.Favorites.Has)
}

// WatchlistCoins returns the fetched rows of the favourites, in favourite order.
// Favourites outside the fetched range are reported in missing.
func (s *Session) WatchlistCoins() (coins []domain.Coin, missing []string) {
	snap := s.watchlist.Snapshot()
	byID := make(map[string]domain.Coin, len(snap.Data))
	for _, c := range snap.Data {
		byID[c.ID] = c
	}

	for _, id := range s.Favorites.Snapshot() {
		if c, ok := byID[id]; ok {
			coins = append(coins, c)
		} else if snap.HasData {
			missing = append(missing, id)
		}
	}
	return coins, missing
}

// Movers returns the top gainers and losers of the current markets page.
func (s *Session) Movers() (gainers, losers []domain.Coin) {
	return service.TopMovers(s.markets.Snapshot().Data, MoversLimit)
}

// Retry re-issues the views on screen that are Failed. Ready views are left alone.
func (s *Session) Retry() {
	retryFailed(s.markets)
	retryFailed(s.global)
	retryFailed(s.trending)
	if s.View() == ViewWatchlist {
		retryFailed(s.watchlist)
	}
	if _, open := s.Selected(); open {
		retryFailed(s.detail)
		retryFailed(s.candles)
		retryFailed(s.chart)
	}
}

func retryFailed[K comparable, T any](c *fetch.Controller[K, T]) {
	if c.Snapshot().Status == fetch.Failed {
		c.Retry()
	}
}

// IconPath returns the cached icon of id, "" when there is none.
func (s *Session) IconPath(id string) string {
	if s.opts.Icons == nil {
		return ""
	}
	return s.opts.Icons(id)
}

// Refresh re-issues every settled view.
func (s *Session) Refresh() {
	s.markets.Refresh()
	s.global.Refresh()
	s.trending.Refresh()
	s.watchlist.Refresh()
	s.chart.Refresh()
}

// Close tears every view down. Nothing is notified afterwards.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.refresher.Stop()
		for _, unsub := range s.unsubs {
			unsub()
		}
		s.markets.Close()
		s.global.Close()
		s.watchlist.Close()
		s.trending.Close()
		s.detail.Close()
		s.candles.Close()
		s.chart.Close()
		s.Search.Close()
		s.Busy.Stop()
		s.cancel()
		s.logger.Info("Dashboard closed")
	})
}
