package domain

import (
	"math"
	"testing"
)

func TestCandlesFromTuples(t *testing.T) {
	t.Run("drops NaN candle", func(t *testing.T) {
		tuples := [][]float64{
			{1, 100, 110, 90, 105},
			{2, math.NaN(), 1, 1, 1},
		}

		candles := CandlesFromTuples(tuples)
		if len(candles) != 1 {
			t.Fatalf("Expected 1 candle, got %d", len(candles))
		}
		if candles[0].Time.UnixMilli() != 1 {
			t.Errorf("Expected time=1, got %d", candles[0].Time.UnixMilli())
		}
		if candles[0].Close != 105 {
			t.Errorf("Expected close=105, got %v", candles[0].Close)
		}
	})

	t.Run("drops malformed tuples", func(t *testing.T) {
		tuples := [][]float64{
			{1, 100, 110, 90},
			{2, 100, 110, 90, 105, 7},
			{3, math.Inf(1), 110, 90, 105},
			{4, 1, 2, 0.5, 1.5},
		}

		candles := CandlesFromTuples(tuples)
		if len(candles) != 1 || candles[0].Time.UnixMilli() != 4 {
			t.Errorf("Expected only the time=4 candle, got %+v", candles)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := CandlesFromTuples(nil); len(got) != 0 {
			t.Errorf("Expected no candles, got %d", len(got))
		}
	})
}

func TestCandle_Bullish(t *testing.T) {
	tests := []struct {
		name   string
		candle Candle
		want   bool
	}{
		{"up", Candle{Open: 1, Close: 2}, true},
		{"flat", Candle{Open: 2, Close: 2}, true},
		{"down", Candle{Open: 2, Close: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.candle.Bullish(); got != tt.want {
				t.Errorf("Bullish() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriceRange(t *testing.T) {
	candles := []Candle{
		{Low: 90, High: 110},
		{Low: 80, High: 100},
		{Low: 95, High: 130},
	}
	low, high := PriceRange(candles)
	if low != 80 || high != 130 {
		t.Errorf("PriceRange = (%v, %v), want (80, 130)", low, high)
	}

	low, high = PriceRange(nil)
	if low != 0 || high != 0 {
		t.Errorf("PriceRange(nil) = (%v, %v), want (0, 0)", low, high)
	}
}

func TestPointsFromPairs(t *testing.T) {
	pairs := [][]float64{
		{1000, 1.5},
		{2000, math.NaN()},
		{3000},
		{4000, 2.5},
	}

	points := PointsFromPairs(pairs)
	if len(points) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(points))
	}

	values := Values(points)
	if values[0] != 1.5 || values[1] != 2.5 {
		t.Errorf("Values = %v, want [1.5 2.5]", values)
	}
}
