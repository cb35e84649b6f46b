package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Coin is one cryptocurrency's market snapshot at fetch time.
// A fresh slice of coins is produced on every list fetch; coins are never merged.
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Image  string `json:"image"`

	CurrentPrice          decimal.Decimal     `json:"current_price"`
	MarketCap             decimal.Decimal     `json:"market_cap"`
	MarketCapRank         int                 `json:"market_cap_rank"` // 1-based, 0 when unranked
	FullyDilutedValuation decimal.NullDecimal `json:"fully_diluted_valuation"`
	TotalVolume           decimal.Decimal     `json:"total_volume"`
	High24h               decimal.Decimal     `json:"high_24h"`
	Low24h                decimal.Decimal     `json:"low_24h"`

	PriceChange24h               decimal.Decimal `json:"price_change_24h"`
	PriceChangePercentage24h     decimal.Decimal `json:"price_change_percentage_24h"`
	MarketCapChange24h           decimal.Decimal `json:"market_cap_change_24h"`
	MarketCapChangePercentage24h decimal.Decimal `json:"market_cap_change_percentage_24h"`

	CirculatingSupply decimal.NullDecimal `json:"circulating_supply"`
	TotalSupply       decimal.NullDecimal `json:"total_supply"`
	MaxSupply         decimal.NullDecimal `json:"max_supply"`

	ATH                 decimal.Decimal `json:"ath"`
	ATHChangePercentage decimal.Decimal `json:"ath_change_percentage"`
	ATHDate             time.Time       `json:"ath_date"`
	ATL                 decimal.Decimal `json:"atl"`
	ATLChangePercentage decimal.Decimal `json:"atl_change_percentage"`
	ATLDate             time.Time       `json:"atl_date"`

	LastUpdated time.Time  `json:"last_updated"`
	Sparkline   *Sparkline `json:"sparkline_in_7d,omitempty"`
}

// Sparkline is a compact 7-day price sequence, chronological, fixed cadence.
type Sparkline struct {
	Price []float64 `json:"price"`
}

// Validate enforces the non-negative invariants on price, market cap and volume.
func (c *Coin) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidCoin)
	}
	if c.CurrentPrice.IsNegative() {
		return fmt.Errorf("%w: %s has negative price", ErrInvalidCoin, c.ID)
	}
	if c.MarketCap.IsNegative() {
		return fmt.Errorf("%w: %s has negative market cap", ErrInvalidCoin, c.ID)
	}
	if c.TotalVolume.IsNegative() {
		return fmt.Errorf("%w: %s has negative volume", ErrInvalidCoin, c.ID)
	}
	return nil
}

// ChangeDirection returns "positive", "negative", or "neutral"
func (c *Coin) ChangeDirection() string {
	if c.PriceChangePercentage24h.IsPositive() {
		return "positive"
	}
	if c.PriceChangePercentage24h.IsNegative() {
		return "negative"
	}
	return "neutral"
}

// HasSparkline reports whether at least two samples are available.
func (c *Coin) HasSparkline() bool {
	return c.Sparkline != nil && len(c.Sparkline.Price) > 1
}

// CoinLinks groups the external link sets of a coin.
type CoinLinks struct {
	Homepage          []string `json:"homepage"`
	BlockchainSite    []string `json:"blockchain_site"`
	OfficialForumURL  []string `json:"official_forum_url"`
	ChatURL           []string `json:"chat_url"`
	AnnouncementURL   []string `json:"announcement_url"`
	TwitterScreenName string   `json:"twitter_screen_name"`
	SubredditURL      string   `json:"subreddit_url"`
	ReposURL          struct {
		GitHub    []string `json:"github"`
		Bitbucket []string `json:"bitbucket"`
	} `json:"repos_url"`
}

// Websites returns the non-empty homepage links, at most limit of them.
func (l *CoinLinks) Websites(limit int) []string {
	out := make([]string, 0, limit)
	for _, u := range l.Homepage {
		if u == "" {
			continue
		}
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Explorers returns the non-empty blockchain explorer links, at most limit of them.
func (l *CoinLinks) Explorers(limit int) []string {
	out := make([]string, 0, limit)
	for _, u := range l.BlockchainSite {
		if u == "" {
			continue
		}
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out
}

// CoinDetail is the long-form description of a coin, fetched per coin id.
// Currency-denominated figures are keyed by currency code because the provider
// returns all of them at once.
type CoinDetail struct {
	ID            string
	Symbol        string
	Name          string
	Image         string
	MarketCapRank int
	GenesisDate   string
	Description   string
	Links         CoinLinks

	CurrentPrice map[string]decimal.Decimal
	MarketCap    map[string]decimal.Decimal
	TotalVolume  map[string]decimal.Decimal
}

// PriceIn returns the price in the given currency, if the provider sent one.
func (d *CoinDetail) PriceIn(c Currency) (decimal.Decimal, bool) {
	v, ok := d.CurrentPrice[string(c)]
	return v, ok
}

// MarketCapIn returns the market cap in the given currency.
func (d *CoinDetail) MarketCapIn(c Currency) (decimal.Decimal, bool) {
	v, ok := d.MarketCap[string(c)]
	return v, ok
}

// VolumeIn returns the 24h volume in the given currency.
func (d *CoinDetail) VolumeIn(c Currency) (decimal.Decimal, bool) {
	v, ok := d.TotalVolume[string(c)]
	return v, ok
}

// TrendingCoin is one entry of the provider's trending list.
type TrendingCoin struct {
	ID            string
	Name          string
	Symbol        string
	MarketCapRank int
	Thumb         string
	Score         int
}
