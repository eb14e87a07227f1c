package calculator

import (
	"fmt"

	"IndicatorMaster/internal/model"
)

// RateOfChange returns (v[t] - v[t-n]) / v[t-n] * 100 for every point from
// index n on. A zero base value yields a nil entry.
func RateOfChange(values []float64, n int) ([]*float64, error) {
	if n <= 0 {
		return nil, errPeriod
	}
	if len(values) < n+1 {
		return nil, fmt.Errorf("rate of change(%d) over %d points: %w", n, len(values), model.ErrInsufficientHistory)
	}
	out := make([]*float64, 0, len(values)-n)
	for t := n; t < len(values); t++ {
		base := values[t-n]
		if base == 0 {
			out = append(out, nil)
			continue
		}
		out = append(out, model.Float((values[t]-base)/base*100))
	}
	return out, nil
}
