package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/swanstudios/training-storefront/internal/audit"
	"github.com/swanstudios/training-storefront/pkg/logger"
	"github.com/swanstudios/training-storefront/pkg/metrics"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type stubLock struct {
	acquired bool
	releases int
}

func (l *stubLock) Acquire(ctx context.Context) (bool, error) {
	return l.acquired, nil
}

func (l *stubLock) Release(ctx context.Context) error {
	l.releases++
	return nil
}

type countingJob struct {
	name string
	runs int
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func TestRegistrySkipsNilJobs(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil, &countingJob{name: "a"})
	registry.Register(nil)
	registry.Register(&countingJob{name: "b"})

	if got := len(registry.Jobs()); got != 2 {
		t.Fatalf("expected 2 jobs, got %d", got)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	t.Parallel()

	job := &countingJob{name: "audit"}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     &stubLock{acquired: false},
	})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job skipped, ran %d times", job.runs)
	}
}

func TestRunCycleRunsAllJobsAndReleasesLock(t *testing.T) {
	t.Parallel()

	lock := &stubLock{acquired: true}
	failing := &countingJob{name: "broken", err: errors.New("boom")}
	healthy := &countingJob{name: "audit"}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(failing, healthy),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if failing.runs != 1 || healthy.runs != 1 {
		t.Fatalf("expected both jobs to run, got %d and %d", failing.runs, healthy.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}
}

type stubScanner struct {
	reports []audit.DriftReport
	err     error
}

func (s *stubScanner) ScanForDrift(ctx context.Context) ([]audit.DriftReport, error) {
	return s.reports, s.err
}

func TestDriftAuditJob(t *testing.T) {
	t.Parallel()

	job, err := NewDriftAuditJob(&stubScanner{reports: make([]audit.DriftReport, 2)}, metrics.NewAuditMetrics(nil))
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	if job.Name() != "cart_drift_audit" {
		t.Fatalf("unexpected name %s", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	failed, err := NewDriftAuditJob(&stubScanner{err: errors.New("db down")}, metrics.NewAuditMetrics(nil))
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	if err := failed.Run(context.Background()); err == nil {
		t.Fatal("expected scan error to propagate")
	}
}

type memLockStore struct {
	values map[string]string
}

func (s *memLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.values == nil {
		s.values = map[string]string{}
	}
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *memLockStore) Get(ctx context.Context, key string) (string, error) {
	return s.values[key], nil
}

func (s *memLockStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func TestRedisLockRoundTrip(t *testing.T) {
	t.Parallel()

	store := &memLockStore{}
	lock, err := NewRedisLock(store, "swan:lock:audit", time.Minute)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ok, err := lock.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected acquire, got ok=%v err=%v", ok, err)
	}

	second, err := NewRedisLock(store, "swan:lock:audit", time.Minute)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	ok, err = second.Acquire(context.Background())
	if err != nil || ok {
		t.Fatalf("expected contention, got ok=%v err=%v", ok, err)
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = second.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected acquire after release, got ok=%v err=%v", ok, err)
	}
}
