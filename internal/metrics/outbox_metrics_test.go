package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetrics_RecordAttempt(t *testing.T) {
	m := NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordAttempt(PublishSent)
	m.RecordAttempt(PublishSent)
	m.RecordAttempt(PublishFailed)

	if got := counterValue(t, m.attempts.WithLabelValues(PublishSent)); got != 2 {
		t.Fatalf("expected 2 sent attempts, got %v", got)
	}
	if got := counterValue(t, m.attempts.WithLabelValues(PublishFailed)); got != 1 {
		t.Fatalf("expected 1 failed attempt, got %v", got)
	}
}

func TestOutboxMetrics_SetBacklog(t *testing.T) {
	m := NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	m.SetBacklog(3, now.Add(-30*time.Second), now)
	if got := gaugeValue(t, m.pending); got != 3 {
		t.Fatalf("expected pending 3, got %v", got)
	}
	if got := gaugeValue(t, m.oldestAge); got != 30 {
		t.Fatalf("expected age 30s, got %v", got)
	}

	// Часы отстают от времени записи: возраст не уходит в минус.
	m.SetBacklog(1, now.Add(time.Second), now)
	if got := gaugeValue(t, m.oldestAge); got != 0 {
		t.Fatalf("expected clamped age 0, got %v", got)
	}

	m.SetBacklog(0, time.Time{}, now)
	if got := gaugeValue(t, m.pending); got != 0 {
		t.Fatalf("expected empty backlog, got %v", got)
	}
}

func TestOutboxMetrics_NilSafe(t *testing.T) {
	var m *OutboxMetrics
	m.RecordAttempt(PublishSent)
	m.SetBacklog(1, time.Now(), time.Now())
	m.RecordCleanup(CleanupOK, 1)
}

func TestOutboxMetrics_RecordCleanup(t *testing.T) {
	m := NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordCleanup(CleanupOK, 4)
	m.RecordCleanup(CleanupOK, 0)
	m.RecordCleanup(CleanupError, 0)

	if got := counterValue(t, m.cleanupRuns.WithLabelValues(CleanupOK)); got != 2 {
		t.Fatalf("expected 2 ok runs, got %v", got)
	}
	if got := counterValue(t, m.cleanupRuns.WithLabelValues(CleanupError)); got != 1 {
		t.Fatalf("expected 1 failed run, got %v", got)
	}
	if got := counterValue(t, m.cleanupDeleted); got != 4 {
		t.Fatalf("expected 4 deleted, got %v", got)
	}
	if got := gaugeValue(t, m.lastDeleted); got != 0 {
		t.Fatalf("expected last deleted 0, got %v", got)
	}
}
