package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"IndicatorMaster/internal/model"
)

// FormatRunReport formats the outcome of a collection run into a Telegram message.
func FormatRunReport(res *model.RunResult) string {
	var b strings.Builder

	icon := "✅"
	if !res.OK() {
		icon = "⚠️"
	}
	b.WriteString(fmt.Sprintf("%s <b>IndicatorMaster run</b> | %s\n", icon, res.StartedAt.UTC().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("merged %d · skipped %d · failed %d (%s)\n",
		res.Count(model.StatusMerged), res.Count(model.StatusSkipped), res.Count(model.StatusFailed),
		res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond)))

	if res.Err != nil {
		b.WriteString(fmt.Sprintf("\n❌ <b>save failed:</b> %s\n", html.EscapeString(res.Err.Error())))
	}
	for _, w := range res.Warnings {
		b.WriteString(fmt.Sprintf("⚠️ %s\n", html.EscapeString(w)))
	}

	var problems []model.IndicatorStatus
	for _, st := range res.Statuses {
		if st.Status != model.StatusMerged {
			problems = append(problems, st)
		}
	}
	if len(problems) > 0 {
		b.WriteString("\n<b>Not merged:</b>\n")
		for _, st := range problems {
			b.WriteString(fmt.Sprintf("  %s [%s] %s\n", html.EscapeString(st.Name), st.Status, html.EscapeString(st.Message)))
		}
	}
	return b.String()
}

// FormatSignals lists the latest value and signal of every stored indicator.
func FormatSignals(doc *model.Document) string {
	var b strings.Builder
	b.WriteString("📈 <b>Indicator signals</b>\n\n")
	if doc == nil || len(doc.Indicators) == 0 {
		b.WriteString("no indicators stored yet\n")
		return b.String()
	}

	names := make([]string, 0, len(doc.Indicators))
	for name := range doc.Indicators {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rec := doc.Indicators[name]
		line := fmt.Sprintf("%s: %s", html.EscapeString(name), num(rec.CurrentValue))
		if rec.SignalValue != nil {
			line += fmt.Sprintf(" | signal %s", num(rec.SignalValue))
		}
		if rec.Trend != nil {
			line += fmt.Sprintf(" | %s", rec.Trend.Classification)
		}
		if rec.DataQuality != model.QualityReal {
			line += fmt.Sprintf(" (%s)", rec.DataQuality)
		}
		b.WriteString(line + "\n")
	}
	if !doc.Metadata.LastUpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("\nupdated %s\n", doc.Metadata.LastUpdatedAt.UTC().Format("2006-01-02 15:04")))
	}
	return b.String()
}

func num(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", *v)
}
