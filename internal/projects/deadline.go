package projects

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
)

// DefaultDeadlineDays is the payment-to-scheduling window: once proof of
// payment lands, the job must be scheduled within this many days.
const DefaultDeadlineDays = 3

// DeadlineResult reports where a project stands against its payment deadline.
type DeadlineResult struct {
	Valid         bool           `json:"valid"`
	Severity      enums.Severity `json:"severity"`
	Message       string         `json:"message"`
	Deadline      *time.Time     `json:"deadline,omitempty"`
	DaysRemaining int            `json:"days_remaining"`
}

// OverdueProject pairs a project with how many days past deadline it is.
type OverdueProject struct {
	Project     models.Project `json:"project"`
	DaysOverdue int            `json:"days_overdue"`
}

// UpcomingProject pairs a project with how many days remain before deadline.
type UpcomingProject struct {
	Project       models.Project `json:"project"`
	DaysRemaining int            `json:"days_remaining"`
}

// DeadlineValidator enforces the proof-of-payment scheduling window.
type DeadlineValidator interface {
	Validate(ctx context.Context, projectID uuid.UUID, proposedDate time.Time) (*DeadlineResult, error)
	ValidateProject(project *models.Project, proposedDate time.Time) *DeadlineResult
	ListOverdue(ctx context.Context) ([]OverdueProject, error)
	ListUpcoming(ctx context.Context, daysAhead int) ([]UpcomingProject, error)
}

type deadlineValidator struct {
	repo Repository
	now  func() time.Time
}

// NewDeadlineValidator wires a validator with the provided repository. A nil
// clock defaults to time.Now.
func NewDeadlineValidator(repo Repository, now func() time.Time) (DeadlineValidator, error) {
	if repo == nil {
		return nil, fmt.Errorf("project repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &deadlineValidator{repo: repo, now: now}, nil
}

// DeadlineFor derives the scheduling deadline from the payment receipt date.
func DeadlineFor(received time.Time, deadlineDays int) time.Time {
	return DateOnly(received).AddDate(0, 0, deadlineDays)
}

// DateOnly truncates a timestamp to UTC midnight so day arithmetic never
// drifts across timezones.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, until time.Time) int {
	return int(DateOnly(until).Sub(DateOnly(from)).Hours() / 24)
}

func (v *deadlineValidator) Validate(ctx context.Context, projectID uuid.UUID, proposedDate time.Time) (*DeadlineResult, error) {
	project, err := v.repo.FindByID(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "project not found")
	}
	if proposedDate.IsZero() {
		proposedDate = v.now()
	}
	return v.ValidateProject(project, proposedDate), nil
}

// ValidateProject grades the proposed date against the project's deadline.
// Business-rule failures come back as invalid results, never as errors.
func (v *deadlineValidator) ValidateProject(project *models.Project, proposedDate time.Time) *DeadlineResult {
	if !project.POPReceived {
		return &DeadlineResult{
			Valid:    false,
			Severity: enums.SeverityError,
			Message:  "proof of payment not received",
		}
	}
	if project.POPDeadline == nil {
		// POPReceived without a deadline means an upstream write skipped the
		// deadline computation. Surface it, never repair it here.
		return &DeadlineResult{
			Valid:    false,
			Severity: enums.SeverityError,
			Message:  "payment deadline not calculated",
		}
	}

	deadline := DateOnly(*project.POPDeadline)
	daysRemaining := daysBetween(proposedDate, deadline)

	result := &DeadlineResult{
		Deadline:      &deadline,
		DaysRemaining: daysRemaining,
	}
	switch {
	case daysRemaining < 0:
		result.Valid = false
		result.Severity = enums.SeverityError
		result.Message = fmt.Sprintf("deadline passed %d day(s) ago", -daysRemaining)
	case daysRemaining == 0:
		result.Valid = true
		result.Severity = enums.SeverityWarning
		result.Message = "deadline is today"
	case daysRemaining == 1:
		result.Valid = true
		result.Severity = enums.SeverityWarning
		result.Message = "deadline is tomorrow"
	default:
		result.Valid = true
		result.Severity = enums.SeverityInfo
		result.Message = fmt.Sprintf("%d days remaining", daysRemaining)
	}
	return result
}

func (v *deadlineValidator) ListOverdue(ctx context.Context) ([]OverdueProject, error) {
	today := DateOnly(v.now())
	projects, err := v.repo.ListOverdue(ctx, today)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue projects")
	}

	overdue := make([]OverdueProject, 0, len(projects))
	for _, project := range projects {
		if project.POPDeadline == nil {
			continue
		}
		overdue = append(overdue, OverdueProject{
			Project:     project,
			DaysOverdue: daysBetween(*project.POPDeadline, today),
		})
	}
	return overdue, nil
}

func (v *deadlineValidator) ListUpcoming(ctx context.Context, daysAhead int) ([]UpcomingProject, error) {
	if daysAhead < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "days ahead cannot be negative")
	}
	today := DateOnly(v.now())
	projects, err := v.repo.ListUpcoming(ctx, today, today.AddDate(0, 0, daysAhead))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list upcoming deadlines")
	}

	upcoming := make([]UpcomingProject, 0, len(projects))
	for _, project := range projects {
		if project.POPDeadline == nil {
			continue
		}
		upcoming = append(upcoming, UpcomingProject{
			Project:       project,
			DaysRemaining: daysBetween(today, *project.POPDeadline),
		})
	}
	return upcoming, nil
}
