package cron

import (
	"context"
	"errors"
	"time"

	"github.com/swanstudios/training-storefront/internal/audit"
	"github.com/swanstudios/training-storefront/pkg/metrics"
)

// driftScanner is the audit surface the job drives.
type driftScanner interface {
	ScanForDrift(ctx context.Context) ([]audit.DriftReport, error)
}

// DriftAuditJob runs the cart integrity scan and records its outcome.
type DriftAuditJob struct {
	scanner driftScanner
	metrics *metrics.AuditMetrics
}

// NewDriftAuditJob wires the scanner to the worker loop.
func NewDriftAuditJob(scanner driftScanner, m *metrics.AuditMetrics) (*DriftAuditJob, error) {
	if scanner == nil {
		return nil, errors.New("scanner required")
	}
	return &DriftAuditJob{scanner: scanner, metrics: m}, nil
}

// Name implements Job.
func (j *DriftAuditJob) Name() string {
	return "cart_drift_audit"
}

// Run implements Job.
func (j *DriftAuditJob) Run(ctx context.Context) error {
	start := time.Now()
	reports, err := j.scanner.ScanForDrift(ctx)
	if err != nil {
		j.metrics.IncFailure()
		return err
	}
	j.metrics.ObserveScan(time.Since(start), len(reports))
	return nil
}
