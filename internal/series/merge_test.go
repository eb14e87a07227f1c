package series

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IndicatorMaster/internal/model"
)

func seriesOf(kv ...any) model.Series {
	s := model.Series{}
	for i := 0; i < len(kv); i += 2 {
		s = append(s, model.Point{Period: kv[i].(string), Value: model.Float(kv[i+1].(float64))})
	}
	return s
}

func TestMerge_OverwritesAndSorts(t *testing.T) {
	existing := seriesOf("2024-01-01", 1.0, "2024-02-01", 2.0)
	obs := model.Observations{"2024-03-01": 3, "2024-02-01": 2.5}

	got, stats, err := Merge(existing, obs, model.Monthly)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Applied)
	assert.Equal(t, seriesOf("2024-01-01", 1.0, "2024-02-01", 2.5, "2024-03-01", 3.0), got)
	assert.Equal(t, 3.0, *got.Latest())

	// inputs untouched
	assert.Equal(t, 2.0, *existing[1].Value)
}

func TestMerge_Idempotent(t *testing.T) {
	existing := seriesOf("2024-01-01", 1.0)
	obs := model.Observations{"2024-02-01": 2, "2024-03-01": 3}

	once, _, err := Merge(existing, obs, model.Monthly)
	require.NoError(t, err)
	twice, _, err := Merge(once, obs, model.Monthly)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestMerge_EmptyOrInvalidKeepsHistory(t *testing.T) {
	existing := seriesOf("2024-01-01", 1.0, "2024-02-01", 2.0)

	for _, obs := range []model.Observations{
		nil,
		{},
		{"2024-03-01": math.NaN(), "2024-04-01": math.Inf(1), "2024-02-01": math.Inf(-1)},
	} {
		got, stats, err := Merge(existing, obs, model.Monthly)
		require.NoError(t, err)
		assert.Zero(t, stats.Applied)
		assert.Equal(t, existing, got)
		assert.Equal(t, 2.0, *got.Latest())
	}
}

func TestMerge_NullNeverOverwritesRealData(t *testing.T) {
	existing := seriesOf("2024-01-01", 1.0)
	got, stats, err := Merge(existing, model.Observations{"2024-01-01": math.NaN()}, model.Monthly)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.ErrorIs(t, stats.Err(), model.ErrInvalidValue)
	assert.Equal(t, 1.0, *got[0].Value)
}

func TestMerge_NormalizesToFrequency(t *testing.T) {
	obs := model.Observations{"2024-01-05": 1, "2024-02-20": 2, "2024-03-31": 3, "2024-04-01": 4}
	got, _, err := Merge(nil, obs, model.Quarterly)
	require.NoError(t, err)
	// Q1 collapses three dates, the latest wins.
	assert.Equal(t, seriesOf("2024-Q1", 3.0, "2024-Q2", 4.0), got)
}

func TestMerge_BadKeyFails(t *testing.T) {
	existing := seriesOf("2024-01-01", 1.0)
	got, _, err := Merge(existing, model.Observations{"garbage": 1}, model.Daily)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrMergeFailure)
	assert.Equal(t, existing, got)
}

func TestMerge_ChronologicalUniqueKeys(t *testing.T) {
	obs := model.Observations{}
	for _, k := range []string{"2024-05-02", "2023-12-29", "2024-01-02", "2024-05-01"} {
		obs[k] = 1
	}
	got, _, err := Merge(seriesOf("2024-01-02", 9.0), obs, model.Daily)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.True(t, model.PeriodLess(got[i-1].Period, got[i].Period), "%s before %s", got[i-1].Period, got[i].Period)
	}
}

func TestTruncate(t *testing.T) {
	s := seriesOf("2024-01-01", 1.0, "2024-02-01", 2.0, "2024-03-01", 3.0)
	assert.Equal(t, seriesOf("2024-02-01", 2.0, "2024-03-01", 3.0), Truncate(s, 2))
	assert.Equal(t, s, Truncate(s, 0))
	assert.Equal(t, s, Truncate(s, 10))
}

func TestSanitize_Nested(t *testing.T) {
	in := map[string]any{
		"a": math.NaN(),
		"b": []any{1.0, math.Inf(1), map[string]any{"c": math.Inf(-1), "d": "text"}},
		"e": []float64{2, math.NaN()},
	}
	out := Sanitize(in)
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":[1,null,{"c":null,"d":"text"}],"e":[2,null]}`, string(data))
}

func TestSanitizeRecord(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)
	r := &model.IndicatorRecord{
		RawSeries:     model.Series{{Period: "2024-01-01", Value: &nan}},
		CurrentValue:  &inf,
		SignalHistory: []*float64{&nan, model.Float(1)},
		Trend:         &model.TrendSnapshot{DivergencePct: &inf},
		Extras:        map[string]any{"x": nan},
	}
	SanitizeRecord(r)
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "NaN")
	assert.NotContains(t, string(data), "Inf")
	assert.Nil(t, r.CurrentValue)
	assert.Nil(t, r.SignalHistory[0])
	assert.Nil(t, r.Trend.DivergencePct)
}

func TestSanitize_TypedContainers(t *testing.T) {
	in := map[string]any{
		"x":    map[string][]float64{"x": {math.NaN(), 1}},
		"grid": [][]float64{{math.Inf(1)}, {2}},
		"f32":  []float32{float32(math.NaN()), 3},
		"ids":  map[int]float64{7: math.Inf(-1)},
		"arr":  [2]float64{math.NaN(), 4},
	}
	out := Sanitize(in)
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"x":{"x":[null,1]},
		"grid":[[null],[2]],
		"f32":[null,3],
		"ids":{"7":null},
		"arr":[null,4]
	}`, string(data))
}

func TestSanitizeRecord_TypedExtras(t *testing.T) {
	r := &model.IndicatorRecord{
		Extras: map[string]any{"x": map[string][]float64{"x": {math.NaN()}}},
	}
	SanitizeRecord(r)
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"x":{"x":[null]}`)
}

func TestNormalize_RebucketsStoredKeys(t *testing.T) {
	stored := model.Series{
		{Period: "2024-03-31", Value: model.Float(100)},
		{Period: "2024-02-01", Value: model.Float(90)},
		{Period: "2024-03-05", Value: nil},
		{Period: "garbage", Value: model.Float(1)},
	}
	out, collapsed := Normalize(stored, model.Monthly)
	assert.Equal(t, 1, collapsed)
	assert.Equal(t, model.Series{
		{Period: "2024-02-01", Value: model.Float(90)},
		{Period: "2024-03-01", Value: model.Float(100)},
		{Period: "garbage", Value: model.Float(1)},
	}, out)
	assert.Equal(t, "2024-03-31", stored[0].Period, "input untouched")
}

func TestNormalize_LatestWins(t *testing.T) {
	stored := seriesOf("2024-01-02", 1.0, "2024-02-15", 2.0, "2024-03-30", 3.0)
	out, collapsed := Normalize(stored, model.Quarterly)
	assert.Equal(t, 2, collapsed)
	assert.Equal(t, seriesOf("2024-Q1", 3.0), out)
}
