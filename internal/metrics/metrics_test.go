package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IndicatorMaster/internal/model"
)

func run(err error, statuses ...model.IndicatorStatus) *model.RunResult {
	start := time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC)
	return &model.RunResult{
		RunID:      "r",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Statuses:   statuses,
		Err:        err,
	}
}

func TestObserve(t *testing.T) {
	m := NewMetrics()
	m.Observe(run(nil,
		model.IndicatorStatus{Name: "dxy_index", Status: model.StatusMerged, Points: 250, CurrentValue: model.Float(104), SignalValue: model.Float(-0.8)},
		model.IndicatorStatus{Name: "us10y", Status: model.StatusSkipped},
	))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")))
	assert.InDelta(t, 1.5, testutil.ToFloat64(m.RunDuration), 1e-9)
	assert.Equal(t, 250.0, testutil.ToFloat64(m.IndicatorPoints.WithLabelValues("dxy_index")))
	assert.Equal(t, -0.8, testutil.ToFloat64(m.IndicatorSignal.WithLabelValues("dxy_index")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndicatorStatus.WithLabelValues("skipped")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.IndicatorPoints))

	last := testutil.ToFloat64(m.LastSuccess)
	m.Observe(run(errors.New("save failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("error")))
	assert.Equal(t, last, testutil.ToFloat64(m.LastSuccess))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.Observe(run(nil, model.IndicatorStatus{Name: "gdp_real", Status: model.StatusMerged, Points: 8}))

	path := filepath.Join(t.TempDir(), "indicator_master.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `indicator_master_indicator_points{indicator="gdp_real"} 8`))
}
