package ui

import (
	"fmt"
	"io"
	"strings"

	"crypto_dash/internal/domain"
)

// WriteTable prints coins as a plain text table for non-interactive output.
func WriteTable(w io.Writer, coins []domain.Coin, cur domain.Currency, isFavorite func(id string) bool) error {
	if _, err := fmt.Fprintln(w, tableHeader()); err != nil {
		return err
	}
	for i := range coins {
		c := &coins[i]
		star := " "
		if isFavorite != nil && isFavorite(c.ID) {
			star = "★"
		}
		rank := "-"
		if c.MarketCapRank > 0 {
			rank = fmt.Sprint(c.MarketCapRank)
		}
		_, err := fmt.Fprintf(w, "  %4s %s %-20s %-7s %16s %9s %12s %12s\n",
			rank,
			star,
			Truncate(c.Name, 20),
			Truncate(strings.ToUpper(c.Symbol), 7),
			FormatPrice(c.CurrentPrice, cur),
			FormatPercent(c.PriceChangePercentage24h),
			FormatMoney(c.MarketCap, cur),
			FormatMoney(c.TotalVolume, cur),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
