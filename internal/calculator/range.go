package calculator

import (
	"errors"
	"fmt"
	"math"

	"IndicatorMaster/internal/model"
)

// WindowRange scans the last n values and returns their high and low.
func WindowRange(values []float64, n int) (high, low float64, err error) {
	if len(values) == 0 {
		return 0, 0, errors.New("no values provided")
	}
	start := len(values) - n
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < len(values); i++ {
		if values[i] > high {
			high = values[i]
		}
		if values[i] < low {
			low = values[i]
		}
	}
	return high, low, nil
}

// Position returns where current sits within [low, high], clamped to 0..1.
func Position(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

// RangePosition returns, for every point from index n-1 on, the position of
// the value inside the trailing n-point high/low range.
func RangePosition(values []float64, n int) ([]*float64, error) {
	if n <= 0 {
		return nil, errPeriod
	}
	if len(values) < n {
		return nil, fmt.Errorf("range position(%d) over %d points: %w", n, len(values), model.ErrInsufficientHistory)
	}
	out := make([]*float64, 0, len(values)-n+1)
	for t := n; t <= len(values); t++ {
		high, low, err := WindowRange(values[:t], n)
		if err != nil {
			return nil, err
		}
		pos, err := Position(values[t-1], high, low)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Float(pos))
	}
	return out, nil
}
