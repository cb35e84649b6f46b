package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// GlobalMarketStats holds aggregate market figures. It is replaced wholesale on
// every fetch, never merged.
type GlobalMarketStats struct {
	ActiveCryptocurrencies int `json:"active_cryptocurrencies"`
	UpcomingICOs           int `json:"upcoming_icos"`
	OngoingICOs            int `json:"ongoing_icos"`
	EndedICOs              int `json:"ended_icos"`
	Markets                int `json:"markets"`

	TotalMarketCap      map[string]decimal.Decimal `json:"total_market_cap"`
	TotalVolume         map[string]decimal.Decimal `json:"total_volume"`
	MarketCapPercentage map[string]decimal.Decimal `json:"market_cap_percentage"`

	MarketCapChangePercentage24hUSD decimal.Decimal `json:"market_cap_change_percentage_24h_usd"`
	UpdatedAt                       int64           `json:"updated_at"`
}

// TotalMarketCapIn returns the total market cap in currency c.
func (g *GlobalMarketStats) TotalMarketCapIn(c Currency) (decimal.Decimal, bool) {
	v, ok := g.TotalMarketCap[string(c)]
	return v, ok
}

// TotalVolumeIn returns the total 24h volume in currency c.
func (g *GlobalMarketStats) TotalVolumeIn(c Currency) (decimal.Decimal, bool) {
	v, ok := g.TotalVolume[string(c)]
	return v, ok
}

// Dominance returns the market cap share of the coin with the given symbol.
func (g *GlobalMarketStats) Dominance(symbol string) (decimal.Decimal, bool) {
	v, ok := g.MarketCapPercentage[strings.ToLower(symbol)]
	return v, ok
}

// ActiveCoins returns the number of active cryptocurrencies.
// Zero is the provider's missing-data placeholder, so ok is false for it.
func (g *GlobalMarketStats) ActiveCoins() (n int, ok bool) {
	return g.ActiveCryptocurrencies, g.ActiveCryptocurrencies > 0
}

// MarketCount returns the number of markets; zero means unknown.
func (g *GlobalMarketStats) MarketCount() (n int, ok bool) {
	return g.Markets, g.Markets > 0
}

// DominanceShare is one symbol's share of total market cap.
type DominanceShare struct {
	Symbol  string
	Percent decimal.Decimal
}

// TopDominance returns the n largest dominance shares, largest first.
func (g *GlobalMarketStats) TopDominance(n int) []DominanceShare {
	shares := make([]DominanceShare, 0, len(g.MarketCapPercentage))
	for sym, pct := range g.MarketCapPercentage {
		shares = append(shares, DominanceShare{Symbol: sym, Percent: pct})
	}
	sort.Slice(shares, func(i, j int) bool {
		if c := shares[i].Percent.Cmp(shares[j].Percent); c != 0 {
			return c > 0
		}
		return shares[i].Symbol < shares[j].Symbol
	})
	if n >= 0 && len(shares) > n {
		shares = shares[:n]
	}
	return shares
}
