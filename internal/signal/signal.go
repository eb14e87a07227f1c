// Package signal derives an indicator's signal from its raw series according
// to a per-indicator transform specification.
package signal

import (
	"errors"
	"fmt"

	"IndicatorMaster/internal/calculator"
	"IndicatorMaster/internal/model"
	"IndicatorMaster/internal/trend"
)

// Kind names a transform.
type Kind string

const (
	KindNone          Kind = "none"
	KindRateOfChange  Kind = "roc"
	KindMovingAverage Kind = "moving_average"
	KindDeviation     Kind = "deviation"
	KindMonthlyMean   Kind = "monthly_mean"
	KindDifferential  Kind = "differential"
	KindRSI           Kind = "rsi"
	KindRangePosition Kind = "range_position"
	KindTrend         Kind = "trend"
)

// ResampleMonthlyMean is the only supported pre-step.
const ResampleMonthlyMean = "monthly_mean"

// Spec configures the transform of one indicator.
type Spec struct {
	Kind        Kind
	Window      int
	Resample    string
	Against     string
	Bandwidth   float64
	ShortWindow int
}

// Registry maps indicator names to their transform.
type Registry map[string]Spec

// Lookup resolves another indicator's stored series.
type Lookup func(name string) (model.Series, bool)

// Output is the derived signal of one indicator.
type Output struct {
	Value   *float64
	History []*float64
	Trend   *model.TrendSnapshot
	// Insufficient is set when the series is too short for the transform.
	Insufficient bool
}

// Apply derives the signal of raw under spec. It never modifies raw. A series
// too short for the transform is not an error: the output is empty and
// Insufficient is set.
func Apply(spec Spec, raw model.Series, lookup Lookup) (Output, error) {
	input := raw.Valid()
	if spec.Resample == ResampleMonthlyMean {
		input = calculator.MonthlyMean(input)
	} else if spec.Resample != "" {
		return Output{}, fmt.Errorf("unknown resample %q", spec.Resample)
	}
	values := input.Values()

	var (
		history []*float64
		err     error
	)
	switch spec.Kind {
	case KindNone, "":
		return Output{}, nil
	case KindRateOfChange:
		history, err = calculator.RateOfChange(values, spec.Window)
	case KindMovingAverage:
		history, err = calculator.MovingAverage(values, spec.Window)
	case KindDeviation:
		history, err = calculator.DeviationFromMean(values, spec.Window)
	case KindRSI:
		history, err = calculator.RSI(values, spec.Window)
	case KindRangePosition:
		history, err = calculator.RangePosition(values, spec.Window)
	case KindMonthlyMean:
		history = pointers(values)
	case KindDifferential:
		history, err = differential(spec, input, lookup)
	case KindTrend:
		return applyTrend(spec, values)
	default:
		return Output{}, fmt.Errorf("unknown transform %q", spec.Kind)
	}
	if errors.Is(err, model.ErrInsufficientHistory) {
		return Output{Insufficient: true}, nil
	}
	if err != nil {
		return Output{}, fmt.Errorf("%s: %w", spec.Kind, err)
	}
	return finish(history), nil
}

func differential(spec Spec, input model.Series, lookup Lookup) ([]*float64, error) {
	if spec.Against == "" {
		return nil, errors.New("differential needs an indicator to compare against")
	}
	if lookup == nil {
		return nil, fmt.Errorf("differential against %q: no lookup", spec.Against)
	}
	other, ok := lookup(spec.Against)
	if !ok {
		return nil, fmt.Errorf("differential against %q: indicator not found", spec.Against)
	}
	other = other.Valid()
	if spec.Resample == ResampleMonthlyMean {
		other = calculator.MonthlyMean(other)
	}
	diff := calculator.Differential(input, other)
	if len(diff) == 0 {
		return nil, fmt.Errorf("differential against %q: %w", spec.Against, model.ErrInsufficientHistory)
	}
	return pointers(diff.Values()), nil
}

func applyTrend(spec Spec, values []float64) (Output, error) {
	r, err := trend.Classify(values, trend.Options{Bandwidth: spec.Bandwidth, ShortWindow: spec.ShortWindow})
	if errors.Is(err, model.ErrInsufficientHistory) {
		return Output{Insufficient: true}, nil
	}
	if err != nil {
		return Output{}, fmt.Errorf("trend: %w", err)
	}
	return Output{Value: r.DeviationPct(), Trend: r.Snapshot()}, nil
}

func pointers(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = model.Float(v)
	}
	return out
}

func finish(history []*float64) Output {
	if len(history) == 0 {
		return Output{Insufficient: true}
	}
	out := Output{History: history}
	if last := history[len(history)-1]; last != nil {
		v := *last
		out.Value = &v
	}
	return out
}

