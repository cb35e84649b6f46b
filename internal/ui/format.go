package ui

import (
	"math"
	"strings"
	"time"

	"crypto_dash/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const na = "N/A"

var (
	trillion = decimal.New(1, 12)
	billion  = decimal.New(1, 9)
	million  = decimal.New(1, 6)
)

// FormatCompact abbreviates large amounts with T/B/M suffixes, two decimals.
func FormatCompact(v decimal.Decimal) string {
	abs := v.Abs()
	switch {
	case abs.GreaterThanOrEqual(trillion):
		return v.Div(trillion).StringFixed(2) + "T"
	case abs.GreaterThanOrEqual(billion):
		return v.Div(billion).StringFixed(2) + "B"
	case abs.GreaterThanOrEqual(million):
		return v.Div(million).StringFixed(2) + "M"
	default:
		return v.StringFixed(2)
	}
}

// FormatCompactNull is FormatCompact for optional amounts.
func FormatCompactNull(v decimal.NullDecimal) string {
	if !v.Valid {
		return na
	}
	return FormatCompact(v.Decimal)
}

// FormatMoney renders an amount with the currency symbol and compact suffix.
func FormatMoney(v decimal.Decimal, cur domain.Currency) string {
	return cur.Symbol() + FormatCompact(v)
}

// FormatPrice renders a unit price with thousands separators. Sub-unit prices
// keep enough digits to stay meaningful.
func FormatPrice(v decimal.Decimal, cur domain.Currency) string {
	digits := int32(2)
	if !v.IsZero() && v.Abs().LessThan(decimal.NewFromInt(1)) {
		digits = 6
	}
	_, frac, _ := strings.Cut(v.StringFixed(digits), ".")
	return cur.Symbol() + humanize.Comma(v.Round(digits).IntPart()) + "." + frac
}

// FormatPercent renders a signed percentage with two decimals.
func FormatPercent(v decimal.Decimal) string {
	s := v.StringFixed(2) + "%"
	if v.IsPositive() {
		return "+" + s
	}
	return s
}

// FormatCount renders a count with separators; zero means unknown.
func FormatCount(n int, ok bool) string {
	if !ok {
		return na
	}
	return humanize.Comma(int64(n))
}

// FormatSupply renders an optional supply in whole units.
func FormatSupply(v decimal.NullDecimal) string {
	if !v.Valid {
		return na
	}
	return humanize.Comma(v.Decimal.IntPart())
}

// FormatUpdated renders how long ago data arrived.
func FormatUpdated(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values as a row of block characters, resampled to width.
// Fewer than two points render as an empty string.
func Sparkline(values []float64, width int) string {
	if len(values) < 2 || width <= 0 {
		return ""
	}
	sampled := resample(values, width)

	lo, hi := sampled[0], sampled[0]
	for _, v := range sampled {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	var b strings.Builder
	for _, v := range sampled {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkBlocks)-1))
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

// resample picks width evenly spaced points, or returns values when shorter.
func resample(values []float64, width int) []float64 {
	if len(values) <= width {
		return values
	}
	out := make([]float64, width)
	step := float64(len(values)-1) / float64(width-1)
	for i := range out {
		out[i] = values[int(math.Round(float64(i)*step))]
	}
	return out
}

// CandleChart draws candles as rows of text, top row first. Each candle is one
// column: '│' for the wick, '█' for a bullish body and '▒' for a bearish body.
// Only the last width candles are drawn.
func CandleChart(candles []domain.Candle, width, height int) []string {
	if len(candles) == 0 || width <= 0 || height <= 0 {
		return nil
	}
	if len(candles) > width {
		candles = candles[len(candles)-width:]
	}

	lo, hi := domain.PriceRange(candles)
	span := hi - lo
	row := func(price float64) int {
		if span == 0 {
			return height / 2
		}
		// Row 0 is the top of the chart
		return int(math.Round((hi - price) / span * float64(height-1)))
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", len(candles)))
	}

	for x, c := range candles {
		for y := row(c.High); y <= row(c.Low); y++ {
			grid[y][x] = '│'
		}
		body := '▒'
		if c.Bullish() {
			body = '█'
		}
		top, bottom := row(math.Max(c.Open, c.Close)), row(math.Min(c.Open, c.Close))
		for y := top; y <= bottom; y++ {
			grid[y][x] = body
		}
	}

	lines := make([]string, height)
	for i, r := range grid {
		lines[i] = string(r)
	}
	return lines
}

// Truncate shortens s to n runes with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
