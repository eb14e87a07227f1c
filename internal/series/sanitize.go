package series

import (
	"fmt"
	"math"
	"reflect"

	"IndicatorMaster/internal/model"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Sanitize returns a copy of v in which every NaN or infinite float, however
// deeply nested in maps, slices, arrays or pointers, is replaced by nil.
// Containers come back as []any and map[string]any. Structs and other values
// are returned as they are.
func Sanitize(v any) any {
	if v == nil {
		return nil
	}
	return scrub(reflect.ValueOf(v))
}

func scrub(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		if !finite(rv.Float()) {
			return nil
		}
		return rv.Interface()
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return scrub(rv.Elem())
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Interface()
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = scrub(rv.Index(i))
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[mapKey(iter.Key())] = scrub(iter.Value())
		}
		return out
	default:
		return rv.Interface()
	}
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

func clean(p *float64) *float64 {
	if p == nil || !finite(*p) {
		return nil
	}
	return p
}

// SanitizeRecord nulls every non-finite number held by r, in place.
func SanitizeRecord(r *model.IndicatorRecord) {
	for i := range r.RawSeries {
		r.RawSeries[i].Value = clean(r.RawSeries[i].Value)
	}
	r.CurrentValue = clean(r.CurrentValue)
	r.SignalValue = clean(r.SignalValue)
	for i := range r.SignalHistory {
		r.SignalHistory[i] = clean(r.SignalHistory[i])
	}
	if r.SignalHistory == nil {
		r.SignalHistory = []*float64{}
	}
	if t := r.Trend; t != nil {
		t.ExpectedValue = clean(t.ExpectedValue)
		t.LowerBand = clean(t.LowerBand)
		t.UpperBand = clean(t.UpperBand)
		t.LongSlope = clean(t.LongSlope)
		t.LongIntercept = clean(t.LongIntercept)
		t.ShortSlope = clean(t.ShortSlope)
		t.ShortIntercept = clean(t.ShortIntercept)
		t.MonthsToCrossing = clean(t.MonthsToCrossing)
		t.DivergencePct = clean(t.DivergencePct)
	}
	if r.Extras != nil {
		r.Extras = Sanitize(r.Extras).(map[string]any)
	}
}
