package dashboard

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/fetch"
	"crypto_dash/internal/search"
	"crypto_dash/internal/service"

	"github.com/shopspring/decimal"
)

type kvStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *kvStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *kvStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// fakeProvider serves deterministic coins. A currency listed in hold blocks
// until its channel is closed, ignoring ctx, so late results really arrive.
type fakeProvider struct {
	mu        sync.Mutex
	coins     []domain.Coin
	hold      map[domain.Currency]chan struct{}
	coinCtx   map[domain.Currency]context.Context
	detailCtx chan context.Context

	coinCalls   atomic.Int32
	globalFails atomic.Int32 // GlobalStats fails while positive
}

func newFakeProvider(n int) *fakeProvider {
	coins := make([]domain.Coin, n)
	for i := range coins {
		id := fmt.Sprintf("coin-%03d", i)
		coins[i] = domain.Coin{
			ID:                       id,
			Symbol:                   fmt.Sprintf("c%d", i),
			Name:                     fmt.Sprintf("Coin %d", i),
			CurrentPrice:             decimal.NewFromInt(int64(1000 - i)),
			MarketCap:                decimal.NewFromInt(int64(1_000_000 - i*1000)),
			MarketCapRank:            i + 1,
			PriceChangePercentage24h: decimal.NewFromInt(int64(i%21 - 10)),
			TotalVolume:              decimal.NewFromInt(int64(i * 10)),
		}
	}
	return &fakeProvider{
		coins:   coins,
		hold:    make(map[domain.Currency]chan struct{}),
		coinCtx: make(map[domain.Currency]context.Context),
	}
}

func (p *fakeProvider) Coins(ctx context.Context, cur domain.Currency, page, perPage int) ([]domain.Coin, error) {
	p.coinCalls.Add(1)
	p.mu.Lock()
	p.coinCtx[cur] = ctx
	gate := p.hold[cur]
	p.mu.Unlock()

	if gate != nil {
		<-gate
	}

	// Prices are tagged by currency so a test can tell which response won
	mult := int64(1)
	if cur == domain.CurrencyEUR {
		mult = 2
	}
	out := make([]domain.Coin, len(p.coins))
	for i, c := range p.coins {
		c.CurrentPrice = c.CurrentPrice.Mul(decimal.NewFromInt(mult))
		out[i] = c
	}
	return out, nil
}

func (p *fakeProvider) CoinDetail(ctx context.Context, id string) (*domain.CoinDetail, error) {
	if p.detailCtx != nil {
		p.detailCtx <- ctx
		<-ctx.Done()
		return nil, &domain.CancellationError{Op: "detail", Cause: ctx.Err()}
	}
	return &domain.CoinDetail{ID: id, Name: id}, nil
}

func (p *fakeProvider) GlobalStats(ctx context.Context) (*domain.GlobalMarketStats, error) {
	if p.globalFails.Add(-1) >= 0 {
		return nil, domain.NewStatusError("global", 503, domain.ErrUnexpectedStatus)
	}
	return &domain.GlobalMarketStats{}, nil
}

func (p *fakeProvider) OHLC(ctx context.Context, id string, days int) ([]domain.Candle, error) {
	return []domain.Candle{{Time: time.Unix(0, 0), Open: 1, High: 2, Low: 1, Close: 2}}, nil
}

func (p *fakeProvider) MarketChart(ctx context.Context, id string, cur domain.Currency, days int) (*domain.MarketChart, error) {
	return &domain.MarketChart{Prices: []domain.Point{{Time: time.Unix(0, 0), Value: 1}}}, nil
}

func (p *fakeProvider) Trending(ctx context.Context) ([]domain.TrendingCoin, error) {
	return []domain.TrendingCoin{{ID: "coin-001", Name: "Coin 1"}}, nil
}

func newTestSession(t *testing.T, p *fakeProvider) *Session {
	t.Helper()
	return newTestSessionWith(t, p, Options{})
}

func newTestSessionWith(t *testing.T, p *fakeProvider, opts Options) *Session {
	t.Helper()
	kv := &kvStore{data: make(map[string]string)}
	favs := service.NewFavoritesStore(kv, service.FavoritesKey)
	favs.Load()
	prefs := service.NewPreferences(kv, domain.CurrencyUSD)
	prefs.Load()

	opts.PageSize = 100
	opts.Search = search.Options{Debounce: 5 * time.Millisecond}
	s := NewSession(context.Background(), p, favs, prefs, opts)
	t.Cleanup(s.Close)
	return s
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSession_MarketsKeepProviderOrder(t *testing.T) {
	p := newFakeProvider(100)
	s := newTestSession(t, p)
	s.Start()

	eventually(t, "markets ready", func() bool { return s.Markets().Status == fetch.Ready })

	visible := s.VisibleCoins()
	if len(visible) != 100 {
		t.Fatalf("expected 100 coins, got %d", len(visible))
	}
	for i, c := range visible {
		if c.ID != p.coins[i].ID {
			t.Fatalf("row %d = %s, want %s", i, c.ID, p.coins[i].ID)
		}
	}

	eventually(t, "global and trending", func() bool {
		return s.Global().Status == fetch.Ready && s.Trending().Status == fetch.Ready
	})
	eventually(t, "search sees coins", func() bool { return len(s.Search.Suggestions()) > 0 })
}

func TestSession_CurrencySwitchDiscardsLateResponse(t *testing.T) {
	p := newFakeProvider(10)
	usdGate := make(chan struct{})
	p.hold[domain.CurrencyUSD] = usdGate

	s := newTestSession(t, p)
	var once sync.Once
	release := func() { once.Do(func() { close(usdGate) }) }
	t.Cleanup(release)
	s.Start()

	eventually(t, "usd request issued", func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.coinCtx[domain.CurrencyUSD] != nil
	})

	if err := s.SetCurrency(domain.CurrencyEUR); err != nil {
		t.Fatalf("SetCurrency: %v", err)
	}

	p.mu.Lock()
	usdCtx := p.coinCtx[domain.CurrencyUSD]
	p.mu.Unlock()
	select {
	case <-usdCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("usd request should be cancelled by the switch")
	}

	eventually(t, "eur ready", func() bool {
		snap := s.Markets()
		return snap.Status == fetch.Ready && snap.Key.Currency == domain.CurrencyEUR
	})

	// The usd response lands after eur and must be ignored
	release()
	time.Sleep(20 * time.Millisecond)

	snap := s.Markets()
	if snap.Key.Currency != domain.CurrencyEUR {
		t.Fatalf("key = %v, want eur", snap.Key.Currency)
	}
	if !snap.Data[0].CurrentPrice.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected eur prices, got %s", snap.Data[0].CurrentPrice)
	}
	if s.Currency() != domain.CurrencyEUR {
		t.Errorf("currency = %v", s.Currency())
	}
}

func TestSession_Watchlist(t *testing.T) {
	p := newFakeProvider(20)
	s := newTestSession(t, p)
	s.Start()

	for _, id := range []string{"coin-005", "not-listed", "coin-002"} {
		if _, err := s.ToggleFavorite(id); err != nil {
			t.Fatalf("ToggleFavorite(%s): %v", id, err)
		}
	}
	s.SetView(ViewWatchlist)
	if s.View() != ViewWatchlist {
		t.Fatal("view not switched")
	}

	eventually(t, "watchlist ready", func() bool { return s.Watchlist().Status == fetch.Ready })

	coins, missing := s.WatchlistCoins()
	var got []string
	for _, c := range coins {
		got = append(got, c.ID)
	}
	if !reflect.DeepEqual(got, []string{"coin-005", "coin-002"}) {
		t.Errorf("watchlist = %v", got)
	}
	if !reflect.DeepEqual(missing, []string{"not-listed"}) {
		t.Errorf("missing = %v", missing)
	}

	// Favourites-only narrows the markets grid too
	eventually(t, "markets ready", func() bool { return s.Markets().Status == fetch.Ready })
	s.ToggleFavoritesOnly()
	if n := len(s.VisibleCoins()); n != 2 {
		t.Errorf("favourites-only grid has %d rows, want 2", n)
	}
}

func TestSession_SortAndSearch(t *testing.T) {
	p := newFakeProvider(30)
	s := newTestSession(t, p)
	s.Start()
	eventually(t, "markets ready", func() bool { return s.Markets().Status == fetch.Ready })

	s.SetSort(domain.SortVolume, domain.SortDesc)
	if got := s.VisibleCoins()[0].ID; got != "coin-029" {
		t.Errorf("top by volume = %s", got)
	}
	s.ToggleDirection()
	if got := s.VisibleCoins()[0].ID; got != "coin-000" {
		t.Errorf("bottom by volume = %s", got)
	}

	s.Search.SetInput("coin 2")
	eventually(t, "query settled", func() bool { return s.Search.Query() == "coin 2" })

	// "Coin 2" and "Coin 20" to "Coin 29"
	if n := len(s.VisibleCoins()); n != 11 {
		t.Errorf("filtered rows = %d, want 11", n)
	}
}

func TestSession_CloseDetailCancels(t *testing.T) {
	p := newFakeProvider(5)
	p.detailCtx = make(chan context.Context, 1)
	s := newTestSession(t, p)
	s.Start()
	eventually(t, "markets ready", func() bool { return s.Markets().Status == fetch.Ready })

	s.OpenDetail(p.coins[1])
	if c, ok := s.Selected(); !ok || c.ID != "coin-001" {
		t.Fatalf("selected = %v, %v", c.ID, ok)
	}

	var ctx context.Context
	select {
	case ctx = <-p.detailCtx:
	case <-time.After(time.Second):
		t.Fatal("detail not requested")
	}
	eventually(t, "charts ready", func() bool {
		return s.Candles().Status == fetch.Ready && s.Chart().Status == fetch.Ready
	})

	s.CloseDetail()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("closing the overlay should cancel the detail request")
	}

	if _, ok := s.Selected(); ok {
		t.Error("overlay still open")
	}
	for name, hasKey := range map[string]bool{
		"detail":  s.Detail().HasKey,
		"candles": s.Candles().HasKey,
		"chart":   s.Chart().HasKey,
	} {
		if hasKey {
			t.Errorf("%s still bound after close", name)
		}
	}
	eventually(t, "busy released", func() bool { return !s.Busy.Busy() })
}

func TestSession_Paging(t *testing.T) {
	p := newFakeProvider(5)
	s := newTestSession(t, p)
	s.Start()

	s.PrevPage()
	if s.Page() != 1 {
		t.Errorf("page went below 1: %d", s.Page())
	}
	s.NextPage()
	eventually(t, "page 2 ready", func() bool {
		snap := s.Markets()
		return snap.Status == fetch.Ready && snap.Key.Page == 2
	})
}

func TestSession_ChangesAndClose(t *testing.T) {
	p := newFakeProvider(5)
	s := newTestSession(t, p)
	s.Start()

	select {
	case <-s.Changes():
	case <-time.After(time.Second):
		t.Fatal("no change notification after start")
	}

	s.Close()
	s.Close()

	// Calls after close are ignored
	s.Refresh()
	s.Retry()
	s.NextPage()
	if s.Busy.Busy() {
		t.Error("busy after close")
	}
}

func TestSession_RetryOnlyFailedViews(t *testing.T) {
	p := newFakeProvider(5)
	p.globalFails.Store(1)
	s := newTestSession(t, p)
	s.Start()

	eventually(t, "markets ready", func() bool { return s.Markets().Status == fetch.Ready })
	eventually(t, "global failed", func() bool { return s.Global().Status == fetch.Failed })
	if s.Global().Message == "" {
		t.Error("failed view should carry a message")
	}
	calls := p.coinCalls.Load()

	s.Retry()
	eventually(t, "global ready after retry", func() bool { return s.Global().Status == fetch.Ready })

	if got := p.coinCalls.Load(); got != calls {
		t.Errorf("retry re-fetched a ready view: coin calls %d -> %d", calls, got)
	}
	if s.Markets().Status != fetch.Ready {
		t.Errorf("markets = %v, want ready", s.Markets().Status)
	}
}

func TestSession_AutoRefresh(t *testing.T) {
	p := newFakeProvider(5)
	s := newTestSessionWith(t, p, Options{RefreshInterval: 10 * time.Millisecond})
	s.Start()

	eventually(t, "markets ready", func() bool { return s.Markets().Status == fetch.Ready })
	first := s.Markets().Generation
	eventually(t, "markets refreshed", func() bool {
		snap := s.Markets()
		return snap.Generation > first && snap.Status == fetch.Ready
	})
	if !s.Markets().HasData {
		t.Error("refresh should keep the rows")
	}

	s.Close()
	calls := p.coinCalls.Load()
	time.Sleep(40 * time.Millisecond)
	if got := p.coinCalls.Load(); got != calls {
		t.Errorf("refresh continued after Close: %d -> %d", calls, got)
	}
}

func TestRefresher(t *testing.T) {
	var ticks atomic.Int32
	r := NewRefresher(5*time.Millisecond, func() { ticks.Add(1) })
	r.Start(context.Background())

	eventually(t, "two ticks", func() bool { return ticks.Load() >= 2 })
	r.Stop()
	n := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if ticks.Load() != n {
		t.Error("refresher ticked after Stop")
	}

	// A non-positive interval never starts the loop
	idle := NewRefresher(0, func() { t.Error("disabled refresher ran") })
	idle.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	idle.Stop()
}
