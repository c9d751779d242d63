package cron

import (
	"context"
	"fmt"

	"github.com/fabtrack/fabtrack-backend/internal/scheduling"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
	"github.com/fabtrack/fabtrack-backend/pkg/metrics"
)

// autoScheduleActor tags queue entries and audit rows created by the worker.
const autoScheduleActor = "auto-scheduler"

type schedulerRunner interface {
	RunPass(ctx context.Context, actor string) (*scheduling.PassSummary, error)
}

type queueDepthCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

// AutoScheduleJobParams configure the scheduling sweep job.
type AutoScheduleJobParams struct {
	Logger    *logger.Logger
	Scheduler schedulerRunner
	QueueRepo queueDepthCounter
	Metrics   *metrics.SchedulerMetrics
}

// NewAutoScheduleJob builds the job that sweeps all paid, unqueued projects
// into the cutting queue.
func NewAutoScheduleJob(params AutoScheduleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Scheduler == nil {
		return nil, fmt.Errorf("scheduler required")
	}
	if params.QueueRepo == nil {
		return nil, fmt.Errorf("queue repository required")
	}
	return &autoScheduleJob{
		logg:      params.Logger,
		scheduler: params.Scheduler,
		queueRepo: params.QueueRepo,
		metrics:   params.Metrics,
	}, nil
}

type autoScheduleJob struct {
	logg      *logger.Logger
	scheduler schedulerRunner
	queueRepo queueDepthCounter
	metrics   *metrics.SchedulerMetrics
}

func (j *autoScheduleJob) Name() string { return "auto-schedule" }

func (j *autoScheduleJob) Run(ctx context.Context) error {
	summary, err := j.scheduler.RunPass(ctx, autoScheduleActor)
	if err != nil {
		return fmt.Errorf("auto-schedule pass: %w", err)
	}

	for i := 0; i < summary.Scheduled; i++ {
		j.metrics.IncScheduled()
	}
	if depth, depthErr := j.queueRepo.CountActive(ctx); depthErr == nil {
		j.metrics.SetQueueDepth(int(depth))
	} else {
		j.logg.Warn(ctx, "could not refresh queue depth gauge: "+depthErr.Error())
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"examined":  summary.Examined,
		"scheduled": summary.Scheduled,
		"skipped":   summary.Skipped,
	})
	j.logg.Info(logCtx, "auto-schedule pass complete")
	return nil
}
