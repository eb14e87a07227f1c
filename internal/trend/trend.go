// Package trend classifies sparse, slowly published series against their own
// long-run linear trend and projects when the current band will be left.
package trend

import (
	"fmt"
	"math"

	"IndicatorMaster/internal/model"
)

const (
	// MinPoints is the least history a classification accepts.
	MinPoints = 3
	// DefaultBandwidth is the tolerance around the expected value.
	DefaultBandwidth = 0.17
	// DefaultShortWindow is the point count of the short-term fit.
	DefaultShortWindow = 6
	// Epsilon is the slope magnitude below which a series counts as stable.
	Epsilon = 1e-9
)

// Crossing targets.
const (
	TargetUpper  = "upper"
	TargetLower  = "lower"
	TargetNormal = "normal"
	TargetStable = "stable"
	TargetAway   = "away"
)

// Line is y = Intercept + Slope*x with x the point index.
type Line struct {
	Slope     float64
	Intercept float64
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 { return l.Intercept + l.Slope*x }

// Result is a full classification.
type Result struct {
	Current        float64
	Long           Line
	Short          Line
	Expected       float64
	Lower          float64
	Upper          float64
	Classification model.Classification
	Stable         bool
	Target         string
	// Months is nil when the series is stable or moving away from the bands.
	Months *float64
	// DivergencePct is nil when the long-term slope is ~0.
	DivergencePct *float64
}

// Options tunes a classification. Zero values select the defaults.
type Options struct {
	Bandwidth   float64
	ShortWindow int
}

// Fit runs ordinary least squares of values against xs.
func Fit(xs, values []float64) (Line, error) {
	if len(xs) != len(values) || len(xs) < 2 {
		return Line{}, fmt.Errorf("fit over %d points: %w", len(values), model.ErrInsufficientHistory)
	}
	n := float64(len(xs))
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += values[i]
	}
	mx, my := sx/n, sy/n
	var sxy, sxx float64
	for i := range xs {
		dx := xs[i] - mx
		sxy += dx * (values[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return Line{}, fmt.Errorf("fit: degenerate x values")
	}
	slope := sxy / sxx
	return Line{Slope: slope, Intercept: my - slope*mx}, nil
}

// Classify fits the long-term trend over all values and a short-term trend
// over the last min(ShortWindow, n) values, then places the latest value in a
// Low/Normal/High band around the long-term expectation.
//
// Band edges belong to the outer bands: a value equal to the upper edge is
// High and a value equal to the lower edge is Low.
func Classify(values []float64, opts Options) (Result, error) {
	n := len(values)
	if n < MinPoints {
		return Result{}, fmt.Errorf("trend over %d points: %w", n, model.ErrInsufficientHistory)
	}
	bw := opts.Bandwidth
	if bw <= 0 {
		bw = DefaultBandwidth
	}
	sw := opts.ShortWindow
	if sw <= 0 {
		sw = DefaultShortWindow
	}
	if sw > n {
		sw = n
	}
	if sw < 2 {
		sw = 2
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	long, err := Fit(xs, values)
	if err != nil {
		return Result{}, err
	}
	short, err := Fit(xs[n-sw:], values[n-sw:])
	if err != nil {
		return Result{}, err
	}

	r := Result{
		Current:  values[n-1],
		Long:     long,
		Short:    short,
		Expected: long.At(float64(n - 1)),
	}
	a, b := r.Expected*(1-bw), r.Expected*(1+bw)
	r.Lower, r.Upper = math.Min(a, b), math.Max(a, b)

	// Band edges belong to High and Low; Normal is the open interval.
	switch {
	case r.Current >= r.Upper:
		r.Classification = model.ClassHigh
	case r.Current <= r.Lower:
		r.Classification = model.ClassLow
	default:
		r.Classification = model.ClassNormal
	}

	r.project()

	if math.Abs(long.Slope) >= Epsilon {
		r.DivergencePct = model.Float((short.Slope - long.Slope) / math.Abs(long.Slope) * 100)
	}
	return r, nil
}

// project extrapolates the short-term slope from the current value to the band
// edge it is heading for, or back to Normal when already outside.
func (r *Result) project() {
	slope := r.Short.Slope
	if math.Abs(slope) < Epsilon {
		r.Stable = true
		r.Target = TargetStable
		return
	}
	var distance float64
	switch r.Classification {
	case model.ClassNormal:
		if slope > 0 {
			r.Target = TargetUpper
			distance = r.Upper - r.Current
		} else {
			r.Target = TargetLower
			distance = r.Lower - r.Current
		}
	case model.ClassHigh:
		if slope > 0 {
			r.Target = TargetAway
			return
		}
		r.Target = TargetNormal
		distance = r.Upper - r.Current
	case model.ClassLow:
		if slope < 0 {
			r.Target = TargetAway
			return
		}
		r.Target = TargetNormal
		distance = r.Lower - r.Current
	}
	r.Months = model.Float(distance / slope)
}

// Snapshot converts r into its persisted form.
func (r Result) Snapshot() *model.TrendSnapshot {
	return &model.TrendSnapshot{
		Classification:   r.Classification,
		ExpectedValue:    model.Float(r.Expected),
		LowerBand:        model.Float(r.Lower),
		UpperBand:        model.Float(r.Upper),
		LongSlope:        model.Float(r.Long.Slope),
		LongIntercept:    model.Float(r.Long.Intercept),
		ShortSlope:       model.Float(r.Short.Slope),
		ShortIntercept:   model.Float(r.Short.Intercept),
		Stable:           r.Stable,
		CrossingTarget:   r.Target,
		MonthsToCrossing: r.Months,
		DivergencePct:    r.DivergencePct,
	}
}

// DeviationPct is the percentage gap between the current and expected value,
// nil when the expectation is zero.
func (r Result) DeviationPct() *float64 {
	if r.Expected == 0 {
		return nil
	}
	return model.Float((r.Current - r.Expected) / math.Abs(r.Expected) * 100)
}
