package calculator

import (
	"errors"
	"fmt"

	"IndicatorMaster/internal/model"
)

var errPeriod = errors.New("period must be positive")

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errPeriod
	}
	if len(values) < period {
		return 0, fmt.Errorf("sma(%d) over %d points: %w", period, len(values), model.ErrInsufficientHistory)
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// MovingAverage returns the n-period SMA for every point from index n-1 on,
// so the result has len(values)-n+1 entries.
func MovingAverage(values []float64, n int) ([]*float64, error) {
	if n <= 0 {
		return nil, errPeriod
	}
	if len(values) < n {
		return nil, fmt.Errorf("moving average(%d) over %d points: %w", n, len(values), model.ErrInsufficientHistory)
	}
	out := make([]*float64, 0, len(values)-n+1)
	for t := n; t <= len(values); t++ {
		ma, err := CalculateSMA(values[:t], n)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Float(ma))
	}
	return out, nil
}

// DeviationFromMean returns (v[t] - mean(v[t-n+1..t])) / mean * 100 for every
// point from index n-1 on. A zero window mean yields a nil entry.
func DeviationFromMean(values []float64, n int) ([]*float64, error) {
	means, err := MovingAverage(values, n)
	if err != nil {
		return nil, err
	}
	out := make([]*float64, len(means))
	for i, m := range means {
		if m == nil || *m == 0 {
			continue
		}
		v := values[i+n-1]
		out[i] = model.Float((v - *m) / *m * 100)
	}
	return out, nil
}
