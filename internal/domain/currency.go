package domain

import (
	"fmt"
	"strings"
)

// Currency is the quote currency every price-bearing view is denominated in.
// Prices are not convertible locally; switching currency means refetching.
type Currency string

const (
	CurrencyUSD Currency = "usd"
	CurrencyEUR Currency = "eur"
	CurrencyINR Currency = "inr"
)

// Currencies lists the supported currencies in display order.
var Currencies = []Currency{CurrencyUSD, CurrencyEUR, CurrencyINR}

// ParseCurrency parses a currency code case-insensitively.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, s)
	}
	return c, nil
}

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyINR:
		return true
	}
	return false
}

// Symbol returns the display symbol ("$", "€", "₹").
func (c Currency) Symbol() string {
	switch c {
	case CurrencyEUR:
		return "€"
	case CurrencyINR:
		return "₹"
	default:
		return "$"
	}
}

// Label returns the upper-case code.
func (c Currency) Label() string {
	return strings.ToUpper(string(c))
}

// Next cycles through Currencies.
func (c Currency) Next() Currency {
	for i, cur := range Currencies {
		if cur == c {
			return Currencies[(i+1)%len(Currencies)]
		}
	}
	return Currencies[0]
}
