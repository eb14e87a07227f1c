package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/PaesslerAG/jsonpath"

	"IndicatorMaster/internal/config"
	"IndicatorMaster/internal/model"
)

// FileFetcher reads manually maintained series from local JSON files.
// The file holds an object of period key to number or null; Source.Query
// is a JSONPath that selects such an object inside a larger document.
type FileFetcher struct{}

func (FileFetcher) Name() string { return "file" }

func (FileFetcher) Fetch(_ context.Context, ind config.Indicator) (*model.FetchResult, error) {
	obs, err := ReadObservations(ind.Source.Path, ind.Source.Query)
	if err != nil {
		return nil, err
	}
	return &model.FetchResult{
		Name:         ind.Name,
		Frequency:    ind.FrequencyValue(),
		Source:       label(ind, "file "+ind.Source.Path),
		Quality:      ind.QualityValue(),
		Observations: obs,
	}, nil
}

// ReadObservations decodes a period-keyed JSON object from path.
func ReadObservations(path, query string) (model.Observations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if query != "" {
		doc, err = jsonpath.Get(query, doc)
		if err != nil {
			return nil, fmt.Errorf("query %q in %s: %w", query, path, err)
		}
		// a filter query yields a list even when one object matches
		if list, ok := doc.([]any); ok && len(list) == 1 {
			doc = list[0]
		}
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected an object of period to value, got %T", path, doc)
	}
	obs := make(model.Observations, len(m))
	for k, v := range m {
		if f, ok := v.(float64); ok {
			obs[k] = f
		} else {
			obs[k] = math.NaN()
		}
	}
	return obs, nil
}

// StaticFetcher serves the fixed values of the indicator config. It backs
// the static source kind and stands in for live sources in tests.
type StaticFetcher struct {
	Err error
}

func (StaticFetcher) Name() string { return "static" }

func (f StaticFetcher) Fetch(_ context.Context, ind config.Indicator) (*model.FetchResult, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	obs := make(model.Observations, len(ind.Source.Values))
	for k, v := range ind.Source.Values {
		obs[k] = v
	}
	return &model.FetchResult{
		Name:         ind.Name,
		Frequency:    ind.FrequencyValue(),
		Source:       label(ind, "static"),
		Quality:      ind.QualityValue(),
		Observations: obs,
	}, nil
}
