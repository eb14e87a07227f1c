package calculator

import "IndicatorMaster/internal/model"

// MonthlyMean resamples s to one point per calendar month holding the
// arithmetic mean of that month's valid observations. Months without a valid
// observation get no entry. Keys are the first day of the month.
func MonthlyMean(s model.Series) model.Series {
	type bucket struct {
		sum float64
		n   int
	}
	var order []string
	buckets := make(map[string]*bucket)
	for _, p := range s.Valid() {
		key, err := model.NormalizePeriod(p.Period, model.Monthly)
		if err != nil {
			continue
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			order = append(order, key)
		}
		b.sum += *p.Value
		b.n++
	}
	out := make(model.Series, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		out = append(out, model.Point{Period: key, Value: model.Float(b.sum / float64(b.n))})
	}
	out.Sort()
	return out
}

// Differential returns a[t] - b[t] over the periods where both series hold a
// valid value.
func Differential(a, b model.Series) model.Series {
	right := make(map[string]float64, len(b))
	for _, p := range b.Valid() {
		right[p.Period] = *p.Value
	}
	out := model.Series{}
	for _, p := range a.Valid() {
		if v, ok := right[p.Period]; ok {
			out = append(out, model.Point{Period: p.Period, Value: model.Float(*p.Value - v)})
		}
	}
	out.Sort()
	return out
}
