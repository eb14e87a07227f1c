// Package series merges fetched observations into stored series and keeps
// non-finite numbers away from the JSON boundary.
package series

import (
	"fmt"
	"math"
	"sort"

	"IndicatorMaster/internal/model"
)

// MergeStats counts what happened to the incoming observations.
type MergeStats struct {
	Applied int // points written (new or overwritten)
	Skipped int // NaN / infinite points dropped
}

// Err reports the dropped points as model.ErrInvalidValue, nil when none.
func (s MergeStats) Err() error {
	if s.Skipped == 0 {
		return nil
	}
	return fmt.Errorf("%d points: %w", s.Skipped, model.ErrInvalidValue)
}

type incoming struct {
	key    string
	origin string
	value  float64
}

// Merge folds incoming into existing at the granularity of freq and returns
// a new series sorted by period. Existing points are never removed; an
// incoming finite value overwrites the stored value at the same key. Several
// incoming keys that fall in one bucket resolve to the chronologically latest.
// Neither input is modified. An unparseable incoming key fails the whole merge
// and returns existing untouched.
func Merge(existing model.Series, obs model.Observations, freq model.Frequency) (model.Series, MergeStats, error) {
	var stats MergeStats

	pending := make([]incoming, 0, len(obs))
	for key, v := range obs {
		norm, err := model.NormalizePeriod(key, freq)
		if err != nil {
			return existing, MergeStats{}, fmt.Errorf("%w: %w", model.ErrMergeFailure, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			stats.Skipped++
			continue
		}
		pending = append(pending, incoming{key: norm, origin: key, value: v})
	}
	if len(pending) == 0 {
		return existing, stats, nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].origin == pending[j].origin {
			return false
		}
		return model.PeriodLess(pending[i].origin, pending[j].origin)
	})

	merged := existing.Clone()
	index := make(map[string]int, len(merged))
	for i, p := range merged {
		index[p.Period] = i
	}
	for _, in := range pending {
		v := in.value
		if i, ok := index[in.key]; ok {
			merged[i].Value = &v
		} else {
			index[in.key] = len(merged)
			merged = append(merged, model.Point{Period: in.key, Value: &v})
		}
		stats.Applied++
	}
	merged.Sort()
	return merged, stats, nil
}

// Truncate keeps the newest max points. A max of zero or less keeps everything.
func Truncate(s model.Series, max int) model.Series {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[len(s)-max:].Clone()
}

// Normalize rebuckets stored keys to the canonical key of freq, so a monthly
// "2024-03-31" becomes "2024-03-01". When several stored keys share a bucket
// the chronologically latest non-null value wins. Keys that do not parse are
// kept as they are. It returns the new sorted series and how many points were
// folded into another.
func Normalize(s model.Series, freq model.Frequency) (model.Series, int) {
	sorted := s.Clone()
	sorted.Sort()

	out := make(model.Series, 0, len(sorted))
	index := make(map[string]int, len(sorted))
	collapsed := 0
	for _, p := range sorted {
		key, err := model.NormalizePeriod(p.Period, freq)
		if err != nil {
			key = p.Period
		}
		if i, ok := index[key]; ok {
			collapsed++
			if p.Value != nil {
				out[i].Value = p.Value
			}
			continue
		}
		index[key] = len(out)
		out = append(out, model.Point{Period: key, Value: p.Value})
	}
	out.Sort()
	return out, collapsed
}
