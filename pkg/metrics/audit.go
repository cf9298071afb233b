package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics records the integrity auditor's scan outcomes.
type AuditMetrics struct {
	scanDuration prometheus.Histogram
	scanSuccess  prometheus.Counter
	scanFailure  prometheus.Counter
	driftedCarts prometheus.Gauge
	driftTotal   prometheus.Counter
}

// NewAuditMetrics registers the auditor metrics on the provided registerer.
// A nil registerer yields a no-op collector, which keeps tests quiet.
func NewAuditMetrics(reg prometheus.Registerer) *AuditMetrics {
	if reg == nil {
		return &AuditMetrics{}
	}
	scanDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "audit_scan_duration_seconds",
		Help:    "Duration of integrity audit scans in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	scanSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_scan_success_total",
		Help: "Successful integrity audit scans.",
	})
	scanFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_scan_failure_total",
		Help: "Failed integrity audit scans.",
	})
	driftedCarts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audit_drifted_carts",
		Help: "Carts whose persisted totals diverged from recomputation in the latest scan.",
	})
	driftTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_drift_detected_total",
		Help: "Cumulative count of drifted carts detected across scans.",
	})
	reg.MustRegister(scanDuration, scanSuccess, scanFailure, driftedCarts, driftTotal)
	return &AuditMetrics{
		scanDuration: scanDuration,
		scanSuccess:  scanSuccess,
		scanFailure:  scanFailure,
		driftedCarts: driftedCarts,
		driftTotal:   driftTotal,
	}
}

// ObserveScan records a completed scan with its duration and drift count.
func (a *AuditMetrics) ObserveScan(duration time.Duration, drifted int) {
	if a == nil || a.scanDuration == nil {
		return
	}
	a.scanDuration.Observe(duration.Seconds())
	a.scanSuccess.Inc()
	a.driftedCarts.Set(float64(drifted))
	a.driftTotal.Add(float64(drifted))
}

// IncFailure records a scan that could not complete.
func (a *AuditMetrics) IncFailure() {
	if a == nil || a.scanFailure == nil {
		return
	}
	a.scanFailure.Inc()
}
