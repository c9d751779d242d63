package cron

import (
	"context"
	"fmt"

	"github.com/fabtrack/fabtrack-backend/internal/projects"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
)

const defaultUpcomingWindowDays = 7

type deadlineLister interface {
	ListOverdue(ctx context.Context) ([]projects.OverdueProject, error)
	ListUpcoming(ctx context.Context, daysAhead int) ([]projects.UpcomingProject, error)
}

// DeadlineReminderJobParams configure the payment-deadline reminder job.
type DeadlineReminderJobParams struct {
	Logger     *logger.Logger
	Deadlines  deadlineLister
	WindowDays int
}

// NewDeadlineReminderJob builds the job that surfaces overdue and soon-due
// payment deadlines in the worker logs.
func NewDeadlineReminderJob(params DeadlineReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Deadlines == nil {
		return nil, fmt.Errorf("deadline validator required")
	}
	window := params.WindowDays
	if window <= 0 {
		window = defaultUpcomingWindowDays
	}
	return &deadlineReminderJob{
		logg:      params.Logger,
		deadlines: params.Deadlines,
		window:    window,
	}, nil
}

type deadlineReminderJob struct {
	logg      *logger.Logger
	deadlines deadlineLister
	window    int
}

func (j *deadlineReminderJob) Name() string { return "pop-deadline-reminder" }

func (j *deadlineReminderJob) Run(ctx context.Context) error {
	overdue, err := j.deadlines.ListOverdue(ctx)
	if err != nil {
		return fmt.Errorf("list overdue deadlines: %w", err)
	}
	for _, item := range overdue {
		itemCtx := j.logg.WithFields(ctx, map[string]any{
			"project_id":   item.Project.ID.String(),
			"client_name":  item.Project.ClientName,
			"days_overdue": item.DaysOverdue,
		})
		j.logg.Warn(itemCtx, "payment deadline passed without scheduling")
	}

	upcoming, err := j.deadlines.ListUpcoming(ctx, j.window)
	if err != nil {
		return fmt.Errorf("list upcoming deadlines: %w", err)
	}
	for _, item := range upcoming {
		itemCtx := j.logg.WithFields(ctx, map[string]any{
			"project_id":     item.Project.ID.String(),
			"client_name":    item.Project.ClientName,
			"days_remaining": item.DaysRemaining,
		})
		j.logg.Info(itemCtx, "payment deadline approaching")
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"overdue":  len(overdue),
		"upcoming": len(upcoming),
	})
	j.logg.Info(logCtx, "deadline reminder complete")
	return nil
}
