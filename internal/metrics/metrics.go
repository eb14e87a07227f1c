package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"IndicatorMaster/internal/model"
)

// Metrics holds the Prometheus metrics of collection runs. They live on a
// private registry and are exported through the node_exporter textfile
// collector, since runs are short-lived.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec // labels: outcome=ok|error
	RunDuration      prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
	LastSuccess      prometheus.Gauge
	IndicatorStatus  *prometheus.CounterVec // labels: status
	IndicatorPoints  *prometheus.GaugeVec   // labels: indicator
	IndicatorSignal  *prometheus.GaugeVec   // labels: indicator
	IndicatorCurrent *prometheus.GaugeVec   // labels: indicator
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indicator_master_runs_total",
			Help: "Collection runs by outcome",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indicator_master_run_duration_seconds",
			Help: "Wall time of the last collection run",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indicator_master_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indicator_master_last_success_timestamp_seconds",
			Help: "Unix time of the last run that saved the store with no failed indicator",
		}),
		IndicatorStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indicator_master_indicator_results_total",
			Help: "Per-indicator outcomes (merged, skipped, failed)",
		}, []string{"status"}),
		IndicatorPoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "indicator_master_indicator_points",
			Help: "Stored points per indicator",
		}, []string{"indicator"}),
		IndicatorSignal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "indicator_master_indicator_signal",
			Help: "Latest signal value per indicator",
		}, []string{"indicator"}),
		IndicatorCurrent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "indicator_master_indicator_current",
			Help: "Latest raw value per indicator",
		}, []string{"indicator"}),
	}

	m.Registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.LastRunTimestamp,
		m.LastSuccess,
		m.IndicatorStatus,
		m.IndicatorPoints,
		m.IndicatorSignal,
		m.IndicatorCurrent,
	)
	return m
}

// Observe folds a finished run into the metrics. Null values leave the
// previous gauge reading alone.
func (m *Metrics) Observe(res *model.RunResult) {
	outcome := "ok"
	if !res.OK() {
		outcome = "error"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Set(res.FinishedAt.Sub(res.StartedAt).Seconds())
	m.LastRunTimestamp.Set(float64(res.FinishedAt.Unix()))
	if res.OK() {
		m.LastSuccess.Set(float64(res.FinishedAt.Unix()))
	}

	for _, st := range res.Statuses {
		m.IndicatorStatus.WithLabelValues(string(st.Status)).Inc()
		if st.Status != model.StatusMerged {
			continue
		}
		m.IndicatorPoints.WithLabelValues(st.Name).Set(float64(st.Points))
		if st.CurrentValue != nil {
			m.IndicatorCurrent.WithLabelValues(st.Name).Set(*st.CurrentValue)
		}
		if st.SignalValue != nil {
			m.IndicatorSignal.WithLabelValues(st.Name).Set(*st.SignalValue)
		}
	}
}

// WriteTextfile dumps the registry in the text exposition format. The write
// goes through a temp file and a rename.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
