package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/fabtrack/fabtrack-backend/internal/scheduling"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
)

func TestAutoScheduleJobRunsPassAndReportsDepth(t *testing.T) {
	runner := &fakeSchedulerRunner{summary: &scheduling.PassSummary{Examined: 3, Scheduled: 2, Skipped: 1}}
	depth := &fakeQueueDepth{count: 5}
	job := newAutoScheduleJob(t, runner, depth)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("expected one pass, got %d", runner.calls)
	}
	if runner.lastActor != autoScheduleActor {
		t.Fatalf("expected actor %q, got %q", autoScheduleActor, runner.lastActor)
	}
	if depth.calls != 1 {
		t.Fatalf("expected depth refreshed once, got %d", depth.calls)
	}
}

func TestAutoScheduleJobPropagatesPassErrors(t *testing.T) {
	runner := &fakeSchedulerRunner{err: errors.New("boom")}
	job := newAutoScheduleJob(t, runner, &fakeQueueDepth{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newAutoScheduleJob(t *testing.T, runner schedulerRunner, depth queueDepthCounter) Job {
	t.Helper()
	job, err := NewAutoScheduleJob(AutoScheduleJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Scheduler: runner,
		QueueRepo: depth,
	})
	if err != nil {
		t.Fatalf("NewAutoScheduleJob: %v", err)
	}
	return job
}

type fakeSchedulerRunner struct {
	summary   *scheduling.PassSummary
	err       error
	calls     int
	lastActor string
}

func (f *fakeSchedulerRunner) RunPass(_ context.Context, actor string) (*scheduling.PassSummary, error) {
	f.calls++
	f.lastActor = actor
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

type fakeQueueDepth struct {
	count int64
	calls int
}

func (f *fakeQueueDepth) CountActive(context.Context) (int64, error) {
	f.calls++
	return f.count, nil
}
