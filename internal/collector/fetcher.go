package collector

import (
	"context"

	"IndicatorMaster/internal/config"
	"IndicatorMaster/internal/model"
)

// Fetcher pulls the raw observations of one configured indicator.
// A failed fetch returns an error; it never returns partial garbage.
type Fetcher interface {
	Fetch(ctx context.Context, ind config.Indicator) (*model.FetchResult, error)
	Name() string
}

func label(ind config.Indicator, fallback string) string {
	if ind.Source.Label != "" {
		return ind.Source.Label
	}
	return fallback
}
