package ui

import (
	"bytes"
	"strings"
	"testing"

	"crypto_dash/internal/domain"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

func TestWriteTable(t *testing.T) {
	coins := []domain.Coin{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", MarketCapRank: 1,
			CurrentPrice: decimal.NewFromInt(64000), MarketCap: decimal.NewFromInt(1_260_000_000_000),
			TotalVolume: decimal.NewFromInt(31_000_000_000), PriceChangePercentage24h: decimal.RequireFromString("1.5")},
		{ID: "mystery", Symbol: "mys", Name: "Mystery Coin With A Very Long Name"},
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf, coins, domain.CurrencyUSD, func(id string) bool { return id == "bitcoin" }); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}
	for _, want := range []string{"★", "Bitcoin", "BTC", "$64,000.00", "+1.50%", "$1.26T", "$31.00B"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row %q missing %q", lines[1], want)
		}
	}
	if !strings.Contains(lines[2], "Mystery Coin With A…") || !strings.Contains(lines[2], "   - ") {
		t.Errorf("unranked row = %q", lines[2])
	}
}

func TestNextWindow(t *testing.T) {
	tests := map[int]int{1: 7, 7: 30, 30: 90, 90: 1, 14: 1}
	for in, want := range tests {
		if got := nextWindow(in); got != want {
			t.Errorf("nextWindow(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestPadOrTrunc(t *testing.T) {
	if got := padOrTrunc("abc", 6); got != "abc   " {
		t.Errorf("pad = %q", got)
	}
	if got := padOrTrunc("abcdefgh", 4); lipgloss.Width(got) != 4 {
		t.Errorf("truncate width = %d", lipgloss.Width(got))
	}
}
