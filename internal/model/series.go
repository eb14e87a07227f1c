package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Point is one observation of a series. A nil Value is a stored null.
type Point struct {
	Period string
	Value  *float64
}

// Series is an ordered list of points, ascending by period.
// It serializes as a JSON object whose keys keep that order.
type Series []Point

// Float returns a pointer to v, or nil when v is NaN or infinite.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Sort re-establishes chronological order in place.
func (s Series) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return PeriodLess(s[i].Period, s[j].Period) })
}

// Clone returns a deep copy.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	for i, p := range s {
		out[i] = Point{Period: p.Period}
		if p.Value != nil {
			v := *p.Value
			out[i].Value = &v
		}
	}
	return out
}

// Latest returns the value stored at the greatest period, nil if empty.
func (s Series) Latest() *float64 {
	if len(s) == 0 || s[len(s)-1].Value == nil {
		return nil
	}
	v := *s[len(s)-1].Value
	return &v
}

// Valid returns the points holding a finite value, in order.
func (s Series) Valid() Series {
	out := make(Series, 0, len(s))
	for _, p := range s {
		if p.Value != nil && !math.IsNaN(*p.Value) && !math.IsInf(*p.Value, 0) {
			out = append(out, p)
		}
	}
	return out
}

// Values returns the numeric values of the valid points.
func (s Series) Values() []float64 {
	valid := s.Valid()
	out := make([]float64, len(valid))
	for i, p := range valid {
		out[i] = *p.Value
	}
	return out
}

func (s Series) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Period)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if p.Value == nil || math.IsNaN(*p.Value) || math.IsInf(*p.Value, 0) {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(*p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Series) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("raw_series: %w", err)
	}
	out := make(Series, 0, len(raw))
	for k, v := range raw {
		out = append(out, Point{Period: k, Value: v})
	}
	out.Sort()
	*s = out
	return nil
}
