package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"IndicatorMaster/internal/config"
	"IndicatorMaster/internal/httpclient"
	"IndicatorMaster/internal/model"
)

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: "https://query1.finance.yahoo.com",
		Client:  httpclient.New(proxyURL, httpclient.DefaultTimeout),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"DXY":    "DX-Y.NYB",
			"VIX":    "^VIX",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
				Exchange string `json:"exchangeName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []any `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// toFloat maps a JSON number to float64 and anything else (null on holidays)
// to NaN so the merge drops it.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return math.NaN()
	}
}

func yahooInterval(ind config.Indicator) string {
	if ind.Source.Interval != "" {
		return ind.Source.Interval
	}
	switch ind.FrequencyValue() {
	case model.Monthly:
		return "1mo"
	case model.Quarterly:
		return "3mo"
	default:
		return "1d"
	}
}

// Fetch returns the closing prices of the configured symbol.
func (f *YahooFetcher) Fetch(ctx context.Context, ind config.Indicator) (*model.FetchResult, error) {
	symbol := f.yahooSymbol(ind.Source.Symbol)
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(symbol), yahooInterval(ind), url.QueryEscape(ind.Source.Range))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("no data returned for %s", symbol)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote block for %s", symbol)
	}
	closes := result.Indicators.Quote[0].Close
	obs := make(model.Observations, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) {
			break
		}
		key := time.Unix(ts, 0).UTC().Format("2006-01-02")
		obs[key] = toFloat(closes[i])
	}

	return &model.FetchResult{
		Name:         ind.Name,
		Frequency:    ind.FrequencyValue(),
		Source:       label(ind, "Yahoo Finance "+symbol),
		Quality:      ind.QualityValue(),
		Observations: obs,
		Extras: map[string]any{
			"currency": result.Meta.Currency,
			"exchange": result.Meta.Exchange,
		},
	}, nil
}
