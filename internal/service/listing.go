package service

import (
	"sync"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/search"
)

// ListingParams are the inputs the visible coin list depends on.
type ListingParams struct {
	DataGeneration   uint64 // controller generation of the source coins
	Query            string
	Key              domain.SortKey
	Dir              domain.SortDirection
	FavoritesOnly    bool
	FavoritesVersion uint64
}

// Listing derives the visible list (favourites-only, then filter, then sort)
// and recomputes only when one of its inputs changed.
type Listing struct {
	mu           sync.Mutex
	valid        bool
	params       ListingParams
	result       []domain.Coin
	computations int
}

// Derive returns the visible list for coins under p. isFavorite is only
// consulted when p.FavoritesOnly is set.
func (l *Listing) Derive(coins []domain.Coin, p ListingParams, isFavorite func(id string) bool) []domain.Coin {
	if !p.FavoritesOnly {
		// Favourite changes cannot affect an unfiltered list
		p.FavoritesVersion = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.valid && l.params == p {
		return l.result
	}

	list := coins
	if p.FavoritesOnly {
		favs := make([]domain.Coin, 0, len(coins))
		for _, c := range coins {
			if isFavorite(c.ID) {
				favs = append(favs, c)
			}
		}
		list = favs
	}
	list = search.Filter(list, p.Query)
	list = SortCoins(list, p.Key, p.Dir)

	l.params = p
	l.result = list
	l.valid = true
	l.computations++
	return list
}

// Invalidate forces the next Derive to recompute.
func (l *Listing) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.valid = false
}

// Computations returns how many times the list was actually recomputed.
func (l *Listing) Computations() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.computations
}
