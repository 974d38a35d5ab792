package calculator

import "errors"

// ErrInsufficientData is returned when a series is shorter than the window.
var ErrInsufficientData = errors.New("not enough data")

// SMA computes the simple moving average of values over period. The result
// has one value per index from period-1 onward, so result[i] averages
// values[i : i+period]. It returns nil when period is not positive or the
// series is shorter than period.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// SMALatest returns the moving average of the last period values.
func SMALatest(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}
