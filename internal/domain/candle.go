package domain

import (
	"math"
	"time"
)

// Candle is an open/high/low/close summary for one time bucket.
type Candle struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// CandlesFromTuples converts provider tuples [time_ms, open, high, low, close].
// A tuple that is not exactly five finite numbers is dropped rather than zero-filled,
// so a provider glitch cannot distort the chart.
func CandlesFromTuples(tuples [][]float64) []Candle {
	candles := make([]Candle, 0, len(tuples))
	for _, t := range tuples {
		if len(t) != 5 || !allFinite(t) {
			continue
		}
		candles = append(candles, Candle{
			Time:  time.UnixMilli(int64(t[0])),
			Open:  t[1],
			High:  t[2],
			Low:   t[3],
			Close: t[4],
		})
	}
	return candles
}

// Bullish reports whether the candle closed at or above its open.
func (c Candle) Bullish() bool {
	return c.Close >= c.Open
}

// PriceRange returns the lowest low and highest high across candles.
func PriceRange(candles []Candle) (low, high float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	low, high = candles[0].Low, candles[0].High
	for _, c := range candles[1:] {
		low = math.Min(low, c.Low)
		high = math.Max(high, c.High)
	}
	return low, high
}

// Point is one (time, value) sample of a chart series.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// MarketChart holds the price, market cap and volume series of one coin.
type MarketChart struct {
	Prices       []Point `json:"prices"`
	MarketCaps   []Point `json:"market_caps"`
	TotalVolumes []Point `json:"total_volumes"`
}

// PointsFromPairs converts [time_ms, value] pairs, dropping malformed ones.
func PointsFromPairs(pairs [][]float64) []Point {
	points := make([]Point, 0, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 || !allFinite(p) {
			continue
		}
		points = append(points, Point{Time: time.UnixMilli(int64(p[0])), Value: p[1]})
	}
	return points
}

// Values returns the bare values of a series.
func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
