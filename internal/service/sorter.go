package service

import (
	"sort"

	"crypto_dash/internal/domain"
)

// SortCoins returns a new slice ordered by key in direction dir.
// The sort is stable, so ties keep their input order. coins is not modified.
func SortCoins(coins []domain.Coin, key domain.SortKey, dir domain.SortDirection) []domain.Coin {
	out := make([]domain.Coin, len(coins))
	copy(out, coins)

	sort.SliceStable(out, func(i, j int) bool {
		cmp := key.Value(&out[i]).Cmp(key.Value(&out[j]))
		if dir == domain.SortAsc {
			return cmp < 0
		}
		return cmp > 0
	})
	return out
}

// TopMovers returns up to n coins with the largest 24h gains (descending) and
// the largest 24h losses (most negative first). Flat coins are in neither list.
func TopMovers(coins []domain.Coin, n int) (gainers, losers []domain.Coin) {
	for _, c := range coins {
		switch {
		case c.PriceChangePercentage24h.IsPositive():
			gainers = append(gainers, c)
		case c.PriceChangePercentage24h.IsNegative():
			losers = append(losers, c)
		}
	}

	gainers = SortCoins(gainers, domain.SortPriceChange24h, domain.SortDesc)
	losers = SortCoins(losers, domain.SortPriceChange24h, domain.SortAsc)
	if len(gainers) > n {
		gainers = gainers[:n]
	}
	if len(losers) > n {
		losers = losers[:n]
	}
	return gainers, losers
}
