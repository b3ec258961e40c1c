// Package metrics exposes Prometheus collectors for care plan processing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carelink"

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	documents      *prometheus.CounterVec
	analysis       *prometheus.HistogramVec
	evaluations    *prometheus.CounterVec
	weeklyReports  *prometheus.CounterVec
	progressLogged prometheus.Counter
	breakerOpen    prometheus.Gauge
	wsClients      prometheus.Gauge
}

// MustNewMetrics registers the collectors with reg and panics on conflicts.
// Tests should pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "processed_total",
			Help:      "Documents read, by format and whether fallback text was used.",
		}, []string{"format", "fallback"}),
		analysis: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Time spent analysing document text.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "evaluations_total",
			Help:      "Progress evaluations, by whether the goal was met.",
		}, []string{"met"}),
		weeklyReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "weekly_reports_total",
			Help:      "Weekly reports generated, by on-track status.",
		}, []string{"on_track"}),
		progressLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "entries_logged_total",
			Help:      "Progress entries persisted.",
		}),
		breakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "fetch_circuit_open",
			Help:      "1 while the remote document circuit breaker is open.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "progress_clients",
			Help:      "Connected live progress websocket clients.",
		}),
	}
	reg.MustRegister(m.documents, m.analysis, m.evaluations, m.weeklyReports, m.progressLogged, m.breakerOpen, m.wsClients)
	return m
}

func (m *Metrics) DocumentProcessed(format string, fallback bool) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(format, boolLabel(fallback)).Inc()
}

func (m *Metrics) ObserveAnalysis(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.analysis.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) Evaluation(met bool) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(boolLabel(met)).Inc()
}

func (m *Metrics) WeeklyReport(onTrack bool) {
	if m == nil {
		return
	}
	m.weeklyReports.WithLabelValues(boolLabel(onTrack)).Inc()
}

func (m *Metrics) ProgressLogged() {
	if m == nil {
		return
	}
	m.progressLogged.Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.breakerOpen.Set(1)
	} else {
		m.breakerOpen.Set(0)
	}
}

func (m *Metrics) WSConnected() {
	if m != nil {
		m.wsClients.Inc()
	}
}

func (m *Metrics) WSDisconnected() {
	if m != nil {
		m.wsClients.Dec()
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
