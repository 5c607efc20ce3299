package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	models "quant-warehouse/database/models_pkg"
	"quant-warehouse/validation"
)

// Run outcomes recorded in the runs counter
const (
	StatusSuccess  = "success"
	StatusInvalid  = "invalid"
	StatusFailed   = "failed"
	StatusConflict = "conflict"
)

const metricsNamespace = "quant_warehouse"

// Metrics holds the pipeline's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	rows     *prometheus.GaugeVec
	issues   *prometheus.GaugeVec
	lastRun  prometheus.Gauge
}

// NewMetrics creates and registers the pipeline collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Wall time of pipeline runs, validation included.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "table_rows",
			Help:      "Rows written per table by the last committed run.",
		}, []string{"table"}),
		issues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "validation_issues",
			Help:      "Rules triggered by the last validated batch.",
		}, []string{"severity"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last committed run.",
		}),
	}
	m.registry.MustRegister(m.runs, m.duration, m.rows, m.issues, m.lastRun)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveValidation records the issue counts of a report
func (m *Metrics) ObserveValidation(r *validation.Report) {
	m.issues.WithLabelValues(string(validation.SeverityError)).Set(float64(len(r.Errors)))
	m.issues.WithLabelValues(string(validation.SeverityWarning)).Set(float64(len(r.Warnings)))
}

// ObserveRun records one finished run
func (m *Metrics) ObserveRun(status string, elapsed time.Duration) {
	m.runs.WithLabelValues(status).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// ObserveCommit records the table sizes of a committed run
func (m *Metrics) ObserveCommit(run *models.PipelineRun) {
	for table, n := range map[string]int{
		"symbols":              run.Symbols,
		"bars":                 run.Bars,
		"trades":               run.Trades,
		"news_sentiment":       run.News,
		"treasury_yields":      run.Yields,
		"features_returns_rsi": run.FeatureRows,
		"features_vwap_volume": run.VWAPRows,
		"daily_metrics":        run.DailyRows,
		"stock_correlations":   run.Correlations,
		"sentiment_signals":    run.Signals,
		"market_events":        run.MarketEvents,
	} {
		m.rows.WithLabelValues(table).Set(float64(n))
	}
	m.lastRun.Set(float64(run.FinishedAt.Unix()))
}
