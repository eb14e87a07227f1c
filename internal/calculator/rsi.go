package calculator

import (
	"fmt"

	"IndicatorMaster/internal/model"
)

// RSI computes the Wilder-smoothed RSI for every point from index period on.
// Requires at least period+1 values.
func RSI(values []float64, period int) ([]*float64, error) {
	if period <= 0 {
		return nil, errPeriod
	}
	if len(values) < period+1 {
		return nil, fmt.Errorf("rsi(%d) over %d points: %w", period, len(values), model.ErrInsufficientHistory)
	}

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]*float64, 0, len(values)-period)
	out = append(out, model.Float(rsiFrom(avgGain, avgLoss)))

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, model.Float(rsiFrom(avgGain, avgLoss)))
	}
	return out, nil
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
