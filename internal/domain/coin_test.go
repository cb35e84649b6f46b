package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCoin_Validate(t *testing.T) {
	tests := []struct {
		name    string
		coin    Coin
		wantErr bool
	}{
		{"valid", Coin{ID: "bitcoin", CurrentPrice: decimal.NewFromInt(1)}, false},
		{"zero values", Coin{ID: "dust"}, false},
		{"empty id", Coin{}, true},
		{"negative price", Coin{ID: "x", CurrentPrice: decimal.NewFromInt(-1)}, true},
		{"negative cap", Coin{ID: "x", MarketCap: decimal.NewFromInt(-1)}, true},
		{"negative volume", Coin{ID: "x", TotalVolume: decimal.NewFromInt(-1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coin.Validate()
			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCoin) {
				t.Errorf("Expected ErrInvalidCoin, got %v", err)
			}
		})
	}
}

func TestCoin_ChangeDirection(t *testing.T) {
	tests := []struct {
		pct  int64
		want string
	}{
		{5, "positive"},
		{-3, "negative"},
		{0, "neutral"},
	}
	for _, tt := range tests {
		c := Coin{PriceChangePercentage24h: decimal.NewFromInt(tt.pct)}
		if got := c.ChangeDirection(); got != tt.want {
			t.Errorf("ChangeDirection(%d) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestCoin_DecodeProviderRow(t *testing.T) {
	raw := `{
		"id": "bitcoin",
		"symbol": "btc",
		"name": "Bitcoin",
		"current_price": 64000.12,
		"market_cap": 1260000000000,
		"market_cap_rank": 1,
		"total_volume": 31000000000,
		"price_change_percentage_24h": -1.25,
		"max_supply": null,
		"circulating_supply": 19700000,
		"ath_date": "2024-03-14T07:10:36.635Z",
		"last_updated": null,
		"sparkline_in_7d": {"price": [1, 2, 3]}
	}`

	var c Coin
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if !c.CurrentPrice.Equal(decimal.RequireFromString("64000.12")) {
		t.Errorf("CurrentPrice = %s", c.CurrentPrice)
	}
	if c.MaxSupply.Valid {
		t.Error("MaxSupply should be null")
	}
	if !c.CirculatingSupply.Valid {
		t.Error("CirculatingSupply should be set")
	}
	if !c.HasSparkline() || len(c.Sparkline.Price) != 3 {
		t.Errorf("Sparkline = %+v", c.Sparkline)
	}
	if c.ATHDate.Year() != 2024 {
		t.Errorf("ATHDate = %v", c.ATHDate)
	}
	if !c.LastUpdated.IsZero() {
		t.Errorf("LastUpdated should stay zero for null, got %v", c.LastUpdated)
	}
}

func TestCoinLinks(t *testing.T) {
	links := CoinLinks{
		Homepage:       []string{"", "https://bitcoin.org", "", "https://b2.example"},
		BlockchainSite: []string{"https://e1", "", "https://e2", "https://e3", "https://e4"},
	}

	if got := links.Websites(1); len(got) != 1 || got[0] != "https://bitcoin.org" {
		t.Errorf("Websites(1) = %v", got)
	}
	if got := links.Explorers(3); len(got) != 3 || got[2] != "https://e3" {
		t.Errorf("Explorers(3) = %v", got)
	}
}

func TestCoinDetail_PriceIn(t *testing.T) {
	d := CoinDetail{
		CurrentPrice: map[string]decimal.Decimal{"usd": decimal.NewFromInt(10)},
	}
	if v, ok := d.PriceIn(CurrencyUSD); !ok || !v.Equal(decimal.NewFromInt(10)) {
		t.Errorf("PriceIn(usd) = %v, %v", v, ok)
	}
	if _, ok := d.PriceIn(CurrencyINR); ok {
		t.Error("PriceIn(inr) should be missing")
	}
}
