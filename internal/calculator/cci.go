package calculator

import (
	"errors"
	"math"
)

// cciConstant is Lambert's scaling constant.
const cciConstant = 0.015

// TypicalPrices returns (high+low+close)/3 per bar.
func TypicalPrices(highs, lows, closes []float64) ([]float64, error) {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return nil, errors.New("high, low and close series differ in length")
	}
	tp := make([]float64, len(closes))
	for i := range closes {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3
	}
	return tp, nil
}

// CCI computes the Commodity Channel Index over period, one value per index
// from period-1 onward. A window whose typical prices are all equal yields 0.
// It returns nil when the series is shorter than period.
func CCI(highs, lows, closes []float64, period int) ([]float64, error) {
	tp, err := TypicalPrices(highs, lows, closes)
	if err != nil {
		return nil, err
	}
	sma := SMA(tp, period)
	if sma == nil {
		return nil, nil
	}

	out := make([]float64, len(sma))
	for i, mean := range sma {
		window := tp[i : i+period]
		dev := 0.0
		for _, v := range window {
			dev += math.Abs(v - mean)
		}
		dev /= float64(period)

		// Summation error can leave a constant window with a residue in the
		// last bits; treat that as zero deviation.
		if dev <= 1e-12*math.Max(1, math.Abs(mean)) {
			out[i] = 0
			continue
		}
		out[i] = (window[period-1] - mean) / (cciConstant * dev)
	}
	return out, nil
}

// CCILatest returns the most recent CCI value.
func CCILatest(highs, lows, closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period {
		return 0, ErrInsufficientData
	}
	series, err := CCI(highs, lows, closes, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}
