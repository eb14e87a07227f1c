// Package report renders the master document for people reading it in a
// terminal.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"IndicatorMaster/internal/model"
)

// Markdown returns the indicator table of doc as GitHub-flavored markdown.
// Indicators are listed alphabetically; names filters the rows when non-empty.
func Markdown(doc *model.Document, names ...string) string {
	var b strings.Builder
	b.WriteString("# Master data\n\n")
	b.WriteString(fmt.Sprintf("schema %s, updated %s\n\n",
		doc.Metadata.SchemaVersion, doc.Metadata.LastUpdatedAt.UTC().Format("2006-01-02 15:04 MST")))

	rows := selectNames(doc, names)
	if len(rows) == 0 {
		b.WriteString("_no indicators_\n")
		return b.String()
	}

	b.WriteString("| indicator | freq | last period | current | signal | trend | points | quality | source |\n")
	b.WriteString("|---|---|---|---|---:|---|---:|---|---|\n")
	for _, name := range rows {
		rec := doc.Indicators[name]
		last := ""
		if n := len(rec.RawSeries); n > 0 {
			last = rec.RawSeries[n-1].Period
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %d | %s | %s |\n",
			cell(name), rec.Frequency, last, num(rec.CurrentValue), num(rec.SignalValue),
			trendCell(rec.Trend), rec.Points, rec.DataQuality, cell(rec.Source)))
	}
	return b.String()
}

// Render turns Markdown(doc) into styled terminal output wrapped at width.
func Render(doc *model.Document, width int, names ...string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	return r.Render(Markdown(doc, names...))
}

func selectNames(doc *model.Document, names []string) []string {
	var out []string
	if len(names) == 0 {
		for name := range doc.Indicators {
			out = append(out, name)
		}
	} else {
		for _, name := range names {
			if _, ok := doc.Indicators[name]; ok {
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func trendCell(t *model.TrendSnapshot) string {
	if t == nil {
		return ""
	}
	s := string(t.Classification)
	if t.MonthsToCrossing != nil && t.CrossingTarget != "" {
		s += fmt.Sprintf(" → %s in %.1fmo", t.CrossingTarget, *t.MonthsToCrossing)
	} else if t.Stable {
		s += " (stable)"
	}
	return s
}

func num(v *float64) string {
	if v == nil {
		return "–"
	}
	return fmt.Sprintf("%.4g", *v)
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
