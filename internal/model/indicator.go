package model

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// DataQuality tells downstream consumers how far to trust a series.
type DataQuality string

const (
	QualityReal    DataQuality = "real"
	QualityProxy   DataQuality = "proxy"
	QualityPending DataQuality = "pending"
	QualityManual  DataQuality = "manual"
)

// ParseDataQuality validates a quality label.
func ParseDataQuality(s string) (DataQuality, error) {
	switch q := DataQuality(strings.ToLower(strings.TrimSpace(s))); q {
	case QualityReal, QualityProxy, QualityPending, QualityManual:
		return q, nil
	default:
		return "", fmt.Errorf("unknown data quality %q", s)
	}
}

// Classification is the band an indicator sits in relative to its trend.
type Classification string

const (
	ClassLow    Classification = "Low"
	ClassNormal Classification = "Normal"
	ClassHigh   Classification = "High"
)

// TrendSnapshot is the persisted outcome of a trend classification.
type TrendSnapshot struct {
	Classification   Classification `json:"classification"`
	ExpectedValue    *float64       `json:"expected_value"`
	LowerBand        *float64       `json:"lower_band"`
	UpperBand        *float64       `json:"upper_band"`
	LongSlope        *float64       `json:"long_slope"`
	LongIntercept    *float64       `json:"long_intercept"`
	ShortSlope       *float64       `json:"short_slope"`
	ShortIntercept   *float64       `json:"short_intercept"`
	Stable           bool           `json:"stable"`
	CrossingTarget   string         `json:"crossing_target,omitempty"`
	MonthsToCrossing *float64       `json:"months_to_crossing"`
	DivergencePct    *float64       `json:"divergence_pct"`
}

// IndicatorRecord is the persisted state of one named indicator.
type IndicatorRecord struct {
	Name          string         `json:"-"`
	Frequency     Frequency      `json:"unit_frequency"`
	RawSeries     Series         `json:"raw_series"`
	CurrentValue  *float64       `json:"current_value"`
	SignalValue   *float64       `json:"signal_value"`
	SignalHistory []*float64     `json:"signal_history"`
	Source        string         `json:"source"`
	DataQuality   DataQuality    `json:"data_quality"`
	LastUpdated   time.Time      `json:"last_updated"`
	Points        int            `json:"points"`
	GarchReady    bool           `json:"garch_ready"`
	Trend         *TrendSnapshot `json:"trend,omitempty"`
	Extras        map[string]any `json:"extras,omitempty"`
}

// Clone returns a deep copy, except for Extras values which are shared.
func (r *IndicatorRecord) Clone() *IndicatorRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.RawSeries = r.RawSeries.Clone()
	out.CurrentValue = clonePtr(r.CurrentValue)
	out.SignalValue = clonePtr(r.SignalValue)
	if r.SignalHistory != nil {
		out.SignalHistory = make([]*float64, len(r.SignalHistory))
		for i, v := range r.SignalHistory {
			out.SignalHistory[i] = clonePtr(v)
		}
	}
	if r.Trend != nil {
		t := *r.Trend
		out.Trend = &t
	}
	if r.Extras != nil {
		out.Extras = maps.Clone(r.Extras)
	}
	return &out
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
