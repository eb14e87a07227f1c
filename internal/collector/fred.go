package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/PaesslerAG/jsonpath"

	"IndicatorMaster/internal/config"
	"IndicatorMaster/internal/httpclient"
	"IndicatorMaster/internal/model"
)

// FREDFetcher implements Fetcher using the FRED series/observations API.
type FREDFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewFREDFetcher creates a new fetcher with optional proxy support.
func NewFREDFetcher(baseURL, apiKey, proxyURL string) *FREDFetcher {
	return &FREDFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  httpclient.New(proxyURL, httpclient.DefaultTimeout),
	}
}

func (f *FREDFetcher) Name() string { return "fred" }

// Fetch returns the observations of the configured FRED series. FRED marks
// missing values with "."; those become NaN.
func (f *FREDFetcher) Fetch(ctx context.Context, ind config.Indicator) (*model.FetchResult, error) {
	if f.APIKey == "" {
		return nil, errors.New("no api key configured")
	}
	q := url.Values{}
	q.Set("series_id", ind.Source.SeriesID)
	q.Set("api_key", f.APIKey)
	q.Set("file_type", "json")
	if ind.Source.Start != "" {
		q.Set("observation_start", ind.Source.Start)
	}
	endpoint := fmt.Sprintf("%s/fred/series/observations?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ind.Source.SeriesID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s: status %d, body: %s", ind.Source.SeriesID, resp.StatusCode, string(body))
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	obs, err := fredObservations(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ind.Source.SeriesID, err)
	}

	return &model.FetchResult{
		Name:         ind.Name,
		Frequency:    ind.FrequencyValue(),
		Source:       label(ind, "FRED "+ind.Source.SeriesID),
		Quality:      ind.QualityValue(),
		Observations: obs,
		Extras:       map[string]any{"series_id": ind.Source.SeriesID},
	}, nil
}

func fredObservations(payload any) (model.Observations, error) {
	dates, err := jsonpath.Get("$.observations[*].date", payload)
	if err != nil {
		return nil, err
	}
	values, err := jsonpath.Get("$.observations[*].value", payload)
	if err != nil {
		return nil, err
	}
	ds, _ := dates.([]any)
	vs, _ := values.([]any)
	if len(ds) != len(vs) {
		return nil, fmt.Errorf("observations without a date or value")
	}
	obs := make(model.Observations, len(ds))
	for i := range ds {
		d, ok := ds[i].(string)
		if !ok {
			continue
		}
		obs[d] = parseFREDValue(vs[i])
	}
	return obs, nil
}

func parseFREDValue(v any) float64 {
	switch n := v.(type) {
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case float64:
		return n
	default:
		return math.NaN()
	}
}
