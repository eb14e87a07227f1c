package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency is the sampling granularity of an indicator.
type Frequency string

const (
	Daily     Frequency = "daily"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
)

// ParseFrequency accepts the usual spellings of a frequency.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day", "d":
		return Daily, nil
	case "monthly", "month", "m":
		return Monthly, nil
	case "quarterly", "quarter", "q":
		return Quarterly, nil
	default:
		return "", fmt.Errorf("unknown frequency %q", s)
	}
}

const dateLayout = "2006-01-02"

// PeriodStart returns the first instant covered by a period key.
// Accepted forms are YYYY-MM-DD, YYYY-MM and YYYY-Qn.
func PeriodStart(key string) (time.Time, error) {
	key = strings.TrimSpace(key)
	switch {
	case len(key) == 7 && (key[5] == 'Q' || key[5] == 'q') && key[4] == '-':
		year, err := strconv.Atoi(key[:4])
		if err != nil {
			return time.Time{}, fmt.Errorf("period %q: bad year", key)
		}
		q := int(key[6] - '0')
		if q < 1 || q > 4 {
			return time.Time{}, fmt.Errorf("period %q: quarter out of range", key)
		}
		return time.Date(year, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC), nil
	case len(key) == 7:
		t, err := time.Parse("2006-01", key)
		if err != nil {
			return time.Time{}, fmt.Errorf("period %q: %w", key, err)
		}
		return t, nil
	default:
		t, err := time.Parse(dateLayout, key)
		if err != nil {
			return time.Time{}, fmt.Errorf("period %q: %w", key, err)
		}
		return t, nil
	}
}

// NormalizePeriod maps any accepted period key onto the canonical key of the
// bucket it falls in for freq: YYYY-MM-DD for daily, the first day of the
// month for monthly and YYYY-Qn for quarterly.
func NormalizePeriod(key string, freq Frequency) (string, error) {
	t, err := PeriodStart(key)
	if err != nil {
		return "", err
	}
	return PeriodKey(t, freq), nil
}

// PeriodKey formats t as the canonical key of its bucket.
func PeriodKey(t time.Time, freq Frequency) string {
	switch freq {
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	case Quarterly:
		return fmt.Sprintf("%04d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	default:
		return t.Format(dateLayout)
	}
}

// PeriodLess orders period keys chronologically. Keys that cannot be parsed
// sort after every valid key, among themselves lexically.
func PeriodLess(a, b string) bool {
	ta, errA := PeriodStart(a)
	tb, errB := PeriodStart(b)
	switch {
	case errA == nil && errB == nil:
		if ta.Equal(tb) {
			return a < b
		}
		return ta.Before(tb)
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
