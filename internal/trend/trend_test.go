package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IndicatorMaster/internal/model"
)

func TestClassify_InsufficientData(t *testing.T) {
	_, err := Classify([]float64{1, 2}, Options{})
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)
}

func TestFit_ExactLine(t *testing.T) {
	l, err := Fit([]float64{0, 1, 2, 3}, []float64{3, 5, 7, 9})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, l.Slope, 1e-12)
	assert.InDelta(t, 3.0, l.Intercept, 1e-12)
}

// The residuals (2,-1,-2,-1,2)*k are orthogonal to both the constant and the
// index, so the OLS line of these series is exactly y = 12 + x whatever k is.
func TestClassify_UpperEdgeIsHigh(t *testing.T) {
	values := []float64{16, 11, 10, 13, 20}
	r, err := Classify(values, Options{Bandwidth: 0.25})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Long.Slope)
	assert.Equal(t, 16.0, r.Expected)
	assert.Equal(t, 20.0, r.Upper)
	assert.Equal(t, model.ClassHigh, r.Classification)
}

func TestClassify_LowerEdgeIsLow(t *testing.T) {
	values := []float64{8, 15, 18, 17, 12}
	r, err := Classify(values, Options{Bandwidth: 0.25})
	require.NoError(t, err)
	assert.Equal(t, 16.0, r.Expected)
	assert.Equal(t, 12.0, r.Lower)
	assert.Equal(t, model.ClassLow, r.Classification)
}

func TestClassify_NormalProjectsToUpperBand(t *testing.T) {
	values := make([]float64, 10)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	r, err := Classify(values, Options{Bandwidth: 0.25})
	require.NoError(t, err)
	assert.Equal(t, model.ClassNormal, r.Classification)
	assert.InDelta(t, 109.0, r.Expected, 1e-9)
	assert.Equal(t, TargetUpper, r.Target)
	require.NotNil(t, r.Months)
	assert.InDelta(t, 27.25, *r.Months, 1e-9)
	require.NotNil(t, r.DivergencePct)
	assert.InDelta(t, 0, *r.DivergencePct, 1e-9)
}

func TestClassify_StableSeries(t *testing.T) {
	r, err := Classify([]float64{5, 5, 5, 5}, Options{})
	require.NoError(t, err)
	assert.True(t, r.Stable)
	assert.Equal(t, TargetStable, r.Target)
	assert.Nil(t, r.Months)
	assert.Nil(t, r.DivergencePct, "flat long trend must not divide by zero")
	assert.Equal(t, model.ClassNormal, r.Classification)
}

func TestClassify_ShortWindowDivergence(t *testing.T) {
	// flat for a long time, then rising over the last three points
	values := []float64{10, 10, 10, 10, 10, 10, 10, 11, 12, 13}
	r, err := Classify(values, Options{ShortWindow: 3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r.Short.Slope, 1e-9)
	assert.Greater(t, r.Long.Slope, 0.0)
	require.NotNil(t, r.DivergencePct)
	assert.Greater(t, *r.DivergencePct, 0.0)
}

func TestProject_ReturnToNormal(t *testing.T) {
	high := Result{Current: 130, Upper: 120, Lower: 80, Classification: model.ClassHigh, Short: Line{Slope: -5}}
	high.project()
	assert.Equal(t, TargetNormal, high.Target)
	require.NotNil(t, high.Months)
	assert.InDelta(t, 2.0, *high.Months, 1e-9)

	low := Result{Current: 70, Upper: 120, Lower: 80, Classification: model.ClassLow, Short: Line{Slope: 2}}
	low.project()
	assert.Equal(t, TargetNormal, low.Target)
	assert.InDelta(t, 5.0, *low.Months, 1e-9)

	away := Result{Current: 70, Upper: 120, Lower: 80, Classification: model.ClassLow, Short: Line{Slope: -2}}
	away.project()
	assert.Equal(t, TargetAway, away.Target)
	assert.Nil(t, away.Months)
}

func TestSnapshot(t *testing.T) {
	r, err := Classify([]float64{16, 11, 10, 13, 20}, Options{Bandwidth: 0.25})
	require.NoError(t, err)
	s := r.Snapshot()
	assert.Equal(t, model.ClassHigh, s.Classification)
	assert.Equal(t, 16.0, *s.ExpectedValue)
	dev := r.DeviationPct()
	require.NotNil(t, dev)
	assert.InDelta(t, 25.0, *dev, 1e-9)
}
