package recorder

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IndicatorMaster/internal/model"
)

func TestSQLiteRecorder_RecordRun(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer r.Close()

	start := time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC)
	res := &model.RunResult{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Path:       "data/master_data.json",
		Statuses: []model.IndicatorStatus{
			{Name: "dxy_index", Status: model.StatusMerged, Points: 120, CurrentValue: model.Float(104.2), SignalValue: model.Float(1.5)},
			{Name: "us10y", Status: model.StatusSkipped, Message: "timeout"},
			{Name: "us_2s10s", Status: model.StatusFailed, Message: "merge failed"},
		},
		Err: errors.New("disk full"),
	}
	require.NoError(t, r.RecordRun(res))

	var merged, skipped, failed int
	var runErr string
	row := r.db.QueryRow(`SELECT merged, skipped, failed, error FROM runs WHERE run_id = ?`, "run-1")
	require.NoError(t, row.Scan(&merged, &skipped, &failed, &runErr))
	assert.Equal(t, 1, merged)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, failed)
	assert.Equal(t, "disk full", runErr)

	var signal sql.NullFloat64
	require.NoError(t, r.db.QueryRow(`SELECT signal_value FROM indicator_status WHERE name = ?`, "dxy_index").Scan(&signal))
	assert.True(t, signal.Valid)
	assert.InDelta(t, 1.5, signal.Float64, 1e-12)

	require.NoError(t, r.db.QueryRow(`SELECT signal_value FROM indicator_status WHERE name = ?`, "us10y").Scan(&signal))
	assert.False(t, signal.Valid)
}

func TestSQLiteRecorder_DuplicateRunRollsBack(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer r.Close()

	res := &model.RunResult{
		RunID:    "dup",
		Statuses: []model.IndicatorStatus{{Name: "a", Status: model.StatusMerged}},
	}
	require.NoError(t, r.RecordRun(res))
	require.Error(t, r.RecordRun(res))

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM indicator_status`).Scan(&n))
	assert.Equal(t, 1, n)
}
