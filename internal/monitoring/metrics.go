package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/transformer"
)

// Refresh outcomes.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultStale   = "stale"
)

// Quality fallback reasons.
const (
	ReasonMissingField = "missing_field"
	ReasonUnknownValue = "unknown_value"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	leadsNormalized prometheus.Counter
	qualityFallback *prometheus.CounterVec
	snapshotLeads   *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadboard_refresh_total",
			Help: "Dashboard refresh cycles by result.",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadboard_refresh_duration_seconds",
			Help:    "Time spent fetching and normalizing one dashboard.",
			Buckets: prometheus.DefBuckets,
		}),
		leadsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadboard_leads_normalized_total",
			Help: "Raw records turned into leads.",
		}),
		qualityFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadboard_quality_fallback_total",
			Help: "Leads whose quality defaulted to medium, by reason.",
		}, []string{"reason"}),
		snapshotLeads: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "leadboard_snapshot_leads",
			Help: "Leads in the current snapshot of each dashboard.",
		}, []string{"dashboard"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.refreshTotal,
		m.refreshDuration,
		m.leadsNormalized,
		m.qualityFallback,
		m.snapshotLeads,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRefresh(result string, duration time.Duration) {
	m.refreshTotal.WithLabelValues(result).Inc()
	m.refreshDuration.Observe(duration.Seconds())
}

// ObserveSnapshot records an applied snapshot and the quality fallbacks of
// its batch.
func (m *Metrics) ObserveSnapshot(dashboardID string, leads int, report *models.DataQualityReport) {
	m.snapshotLeads.WithLabelValues(dashboardID).Set(float64(leads))
	m.leadsNormalized.Add(float64(leads))
	if report == nil {
		return
	}

	for _, record := range report.Records {
		issue, ok := record.FieldErrors["quality"]
		if !ok {
			continue
		}
		switch issue.Description {
		case transformer.QualityMissingIssue:
			m.qualityFallback.WithLabelValues(ReasonMissingField).Inc()
		case transformer.QualityUnknownIssue:
			m.qualityFallback.WithLabelValues(ReasonUnknownValue).Inc()
		}
	}
}

func (m *Metrics) ForgetDashboard(dashboardID string) {
	m.snapshotLeads.DeleteLabelValues(dashboardID)
}
