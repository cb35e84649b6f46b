package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SortKey names the numeric coin field the grid is ordered by.
type SortKey string

const (
	SortMarketCap      SortKey = "market_cap"
	SortPrice          SortKey = "price"
	SortPriceChange24h SortKey = "price_change_24h"
	SortVolume         SortKey = "volume"
)

// SortKeys lists the keys in the order the selector cycles through them.
var SortKeys = []SortKey{SortMarketCap, SortPrice, SortPriceChange24h, SortVolume}

// ParseSortKey validates a sort key.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(s)
	for _, known := range SortKeys {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Value extracts the field the key names.
func (k SortKey) Value(c *Coin) decimal.Decimal {
	switch k {
	case SortPrice:
		return c.CurrentPrice
	case SortPriceChange24h:
		return c.PriceChangePercentage24h
	case SortVolume:
		return c.TotalVolume
	default:
		return c.MarketCap
	}
}

// Label is the human-readable name shown by the sort selector.
func (k SortKey) Label() string {
	switch k {
	case SortPrice:
		return "Price"
	case SortPriceChange24h:
		return "24h Change"
	case SortVolume:
		return "Volume"
	default:
		return "Market Cap"
	}
}

// Next cycles through SortKeys.
func (k SortKey) Next() SortKey {
	for i, known := range SortKeys {
		if known == k {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return SortKeys[0]
}

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Toggle flips the direction.
func (d SortDirection) Toggle() SortDirection {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}
