package domain

import (
	"context"
)

// MarketDataProvider is the read-only market data source every view fetches from.
// All operations honour ctx cancellation and report it as a CancellationError.
type MarketDataProvider interface {
	Coins(ctx context.Context, currency Currency, page, perPage int) ([]Coin, error)
	CoinDetail(ctx context.Context, id string) (*CoinDetail, error)
	GlobalStats(ctx context.Context) (*GlobalMarketStats, error)
	OHLC(ctx context.Context, id string, days int) ([]Candle, error)
	MarketChart(ctx context.Context, id string, currency Currency, days int) (*MarketChart, error)
	Trending(ctx context.Context) ([]TrendingCoin, error)
}

// KeyValueStore is the synchronous local key-value store that survives restarts.
// Get reports found=false for an absent key.
type KeyValueStore interface {
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
}
