package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IndicatorMaster/internal/model"
)

func sampleDoc() *model.Document {
	doc := model.NewDocument(time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC))
	doc.Indicators["us10y"] = &model.IndicatorRecord{
		Frequency:    model.Daily,
		RawSeries:    model.Series{{Period: "2025-02-28", Value: model.Float(4.21)}},
		CurrentValue: model.Float(4.21),
		Points:       1,
		DataQuality:  model.QualityReal,
		Source:       "FRED DGS10",
	}
	doc.Indicators["cofer_usd"] = &model.IndicatorRecord{
		Frequency:    model.Quarterly,
		RawSeries:    model.Series{{Period: "2024-Q3", Value: model.Float(57.4)}},
		CurrentValue: model.Float(57.4),
		SignalValue:  model.Float(-2.5),
		Points:       1,
		DataQuality:  model.QualityManual,
		Source:       "IMF | COFER",
		Trend: &model.TrendSnapshot{
			Classification:   model.ClassLow,
			CrossingTarget:   "normal",
			MonthsToCrossing: model.Float(7.3),
		},
	}
	return doc
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleDoc())
	lines := strings.Split(md, "\n")

	assert.Contains(t, md, "schema 2.0.0, updated 2025-03-03 07:00 UTC")
	idx := -1
	for i, l := range lines {
		if strings.HasPrefix(l, "|---") {
			idx = i
		}
	}
	require.Greater(t, idx, 0)
	assert.Equal(t, `| cofer_usd | quarterly | 2024-Q3 | 57.4 | -2.5 | Low → normal in 7.3mo | 1 | manual | IMF \| COFER |`, lines[idx+1])
	assert.Equal(t, "| us10y | daily | 2025-02-28 | 4.21 | – |  | 1 | real | FRED DGS10 |", lines[idx+2])
}

func TestMarkdown_Filter(t *testing.T) {
	md := Markdown(sampleDoc(), "us10y", "nope")
	assert.Contains(t, md, "| us10y |")
	assert.NotContains(t, md, "cofer_usd")

	empty := Markdown(model.NewDocument(time.Now()))
	assert.Contains(t, empty, "_no indicators_")
}

func TestRender(t *testing.T) {
	out, err := Render(sampleDoc(), 120)
	require.NoError(t, err)
	assert.Contains(t, out, "cofer_usd")
}
