package search

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"crypto_dash/internal/domain"
)

func sampleCoins() []domain.Coin {
	return []domain.Coin{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum"},
		{ID: "tether", Symbol: "usdt", Name: "Tether"},
		{ID: "binancecoin", Symbol: "bnb", Name: "BNB"},
		{ID: "solana", Symbol: "sol", Name: "Solana"},
		{ID: "usd-coin", Symbol: "usdc", Name: "USDC"},
		{ID: "ripple", Symbol: "xrp", Name: "XRP"},
		{ID: "bitcoin-cash", Symbol: "bch", Name: "Bitcoin Cash"},
		{ID: "wrapped-bitcoin", Symbol: "wbtc", Name: "Wrapped Bitcoin"},
	}
}

func fastOptions() Options {
	return Options{
		Debounce:     20 * time.Millisecond,
		BlurGrace:    20 * time.Millisecond,
		PopularLimit: 6,
		MatchLimit:   8,
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestFilter(t *testing.T) {
	coins := sampleCoins()

	t.Run("empty query returns input unchanged", func(t *testing.T) {
		for _, q := range []string{"", "   "} {
			got := Filter(coins, q)
			if len(got) != len(coins) || &got[0] != &coins[0] {
				t.Errorf("Filter(%q) should return the input slice", q)
			}
		}
	})

	t.Run("every result matches", func(t *testing.T) {
		for _, q := range []string{"BIT", "usd", "e", "xrp", "nothing-here"} {
			lower := strings.ToLower(q)
			for _, c := range Filter(coins, q) {
				if !strings.Contains(strings.ToLower(c.Name), lower) && !strings.Contains(strings.ToLower(c.Symbol), lower) {
					t.Errorf("Filter(%q) returned non-matching %s", q, c.ID)
				}
			}
		}
	})

	t.Run("symbol match keeps order", func(t *testing.T) {
		got := Filter(coins, "btc")
		if len(got) != 2 || got[0].ID != "bitcoin" || got[1].ID != "wrapped-bitcoin" {
			t.Errorf("unexpected result %+v", got)
		}
	})
}

func TestSuggest(t *testing.T) {
	coins := sampleCoins()

	popular := Suggest(coins, "", 6, 8)
	if len(popular) != 6 || popular[0].ID != "bitcoin" || popular[5].ID != "usd-coin" {
		t.Errorf("empty query should show the first 6 coins, got %d", len(popular))
	}

	var many []domain.Coin
	for i := 0; i < 20; i++ {
		many = append(many, domain.Coin{ID: fmt.Sprint("coin-", i), Symbol: "c", Name: "Coin"})
	}
	if got := Suggest(many, "coin", 6, 8); len(got) != 8 {
		t.Errorf("matches should be capped at 8, got %d", len(got))
	}
}

func TestEngine_Debounce(t *testing.T) {
	var changes atomic.Int32
	opts := fastOptions()
	opts.OnChange = func() { changes.Add(1) }
	e := NewEngine(opts)
	defer e.Close()
	e.SetCoins(sampleCoins())

	e.SetInput("b")
	e.SetInput("bi")
	e.SetInput("bit")

	if e.Text() != "bit" {
		t.Errorf("Text = %q, want raw input", e.Text())
	}
	if e.Query() != "" {
		t.Error("query must not follow keystrokes before the quiet period")
	}

	waitUntil(t, func() bool { return e.Query() == "bit" })
	time.Sleep(30 * time.Millisecond)
	if changes.Load() != 1 {
		t.Errorf("expected a single settle, got %d", changes.Load())
	}

	got := e.Suggestions()
	if len(got) != 3 {
		t.Errorf("expected 3 suggestions for 'bit', got %d", len(got))
	}
}

func TestEngine_KeyboardNavigation(t *testing.T) {
	e := NewEngine(fastOptions())
	defer e.Close()
	e.SetCoins(sampleCoins())
	e.Focus()

	if e.ActiveIndex() != 0 {
		t.Fatal("cursor starts at the first suggestion")
	}

	e.HandleKey(KeyUp)
	if e.ActiveIndex() != 5 {
		t.Errorf("Up from the top should wrap to the last item, got %d", e.ActiveIndex())
	}
	e.HandleKey(KeyDown)
	if e.ActiveIndex() != 0 {
		t.Errorf("Down from the bottom should wrap to the top, got %d", e.ActiveIndex())
	}
	e.HandleKey(KeyDown)
	e.HandleKey(KeyDown)

	if !e.HandleKey(KeyEnter) {
		t.Fatal("Enter should be consumed while the list is open")
	}
	if e.Text() != "Tether" {
		t.Errorf("Enter should commit the active name, got %q", e.Text())
	}
	if e.IsOpen() {
		t.Error("Enter should close the list")
	}

	waitUntil(t, func() bool { return e.Query() == "Tether" })
}

func TestEngine_Escape(t *testing.T) {
	e := NewEngine(fastOptions())
	defer e.Close()
	e.SetCoins(sampleCoins())

	e.SetInput("sol")
	e.HandleKey(KeyEscape)

	if e.IsOpen() {
		t.Error("Escape should close the list")
	}
	if e.Text() != "sol" {
		t.Error("Escape must not commit anything")
	}
	if e.HandleKey(KeyEnter) {
		t.Error("Enter on a closed list should not be consumed")
	}

	e.HandleKey(KeyDown)
	if !e.IsOpen() {
		t.Error("Down should reopen the list")
	}
}

func TestEngine_BlurGrace(t *testing.T) {
	e := NewEngine(fastOptions())
	defer e.Close()
	e.SetCoins(sampleCoins())
	e.Focus()

	e.Blur()
	if !e.IsOpen() {
		t.Fatal("list must stay open during the grace period")
	}

	// A pointer selection inside the grace period still lands.
	if !e.Select(1) {
		t.Fatal("Select should succeed during the grace period")
	}
	if e.Text() != "Ethereum" {
		t.Errorf("Select committed %q", e.Text())
	}

	e.Focus()
	e.Blur()
	e.Focus()
	time.Sleep(40 * time.Millisecond)
	if !e.IsOpen() {
		t.Error("refocus within the grace period should keep the list open")
	}

	e.Blur()
	waitUntil(t, func() bool { return !e.IsOpen() })
}

func TestEngine_CursorResetsOnNewData(t *testing.T) {
	e := NewEngine(fastOptions())
	defer e.Close()
	e.SetCoins(sampleCoins())
	e.Focus()

	e.HandleKey(KeyDown)
	e.HandleKey(KeyDown)
	e.SetCoins(sampleCoins()[:2])

	if e.ActiveIndex() != 0 {
		t.Errorf("cursor should reset when coins change, got %d", e.ActiveIndex())
	}
	if len(e.Suggestions()) != 2 {
		t.Errorf("expected 2 suggestions, got %d", len(e.Suggestions()))
	}
	if e.Select(5) {
		t.Error("out-of-range selection should be rejected")
	}
}

func TestEngine_Clear(t *testing.T) {
	e := NewEngine(fastOptions())
	defer e.Close()
	e.SetCoins(sampleCoins())

	e.SetInput("eth")
	waitUntil(t, func() bool { return e.Query() == "eth" })

	e.SetInput("ethx")
	e.Clear()
	time.Sleep(40 * time.Millisecond)

	if e.Text() != "" || e.Query() != "" {
		t.Errorf("Clear should drop pending input, got text=%q query=%q", e.Text(), e.Query())
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(15 * time.Millisecond)
	var runs atomic.Int32
	var last atomic.Int32

	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Trigger(func() {
			runs.Add(1)
			last.Store(n)
		})
	}
	if !d.Pending() {
		t.Error("expected a pending call")
	}

	waitUntil(t, func() bool { return runs.Load() == 1 })
	if last.Load() != 5 {
		t.Errorf("expected the last trigger to win, got %d", last.Load())
	}

	d.Stop()
	d.Trigger(func() { runs.Add(1) })
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != 1 {
		t.Error("Trigger after Stop must not run")
	}
}
