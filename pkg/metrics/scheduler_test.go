package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSchedulerMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulerMetrics(reg)

	m.ObserveDuration("auto-schedule", 250*time.Millisecond)
	m.IncSuccess("auto-schedule")
	m.IncFailure("low-stock")
	m.IncScheduled()
	m.SetQueueDepth(7)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	byName := map[string]*dto.MetricFamily{}
	for _, fam := range families {
		byName[fam.GetName()] = fam
	}

	if fam := byName["scheduler_job_success"]; fam == nil || fam.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("unexpected success counter: %v", fam)
	}
	if fam := byName["scheduler_job_failure"]; fam == nil || fam.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("unexpected failure counter: %v", fam)
	}
	if fam := byName["cutting_queue_depth"]; fam == nil || fam.GetMetric()[0].GetGauge().GetValue() != 7 {
		t.Fatalf("unexpected queue depth gauge: %v", fam)
	}
	if fam := byName["scheduler_projects_scheduled_total"]; fam == nil || fam.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("unexpected scheduled counter: %v", fam)
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	m := NewSchedulerMetrics(nil)
	m.ObserveDuration("auto-schedule", time.Second)
	m.IncSuccess("auto-schedule")
	m.IncFailure("auto-schedule")
	m.IncScheduled()
	m.SetQueueDepth(1)
}
