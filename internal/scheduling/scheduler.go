package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/internal/audit"
	"github.com/fabtrack/fabtrack-backend/internal/inventory"
	"github.com/fabtrack/fabtrack-backend/internal/projects"
	"github.com/fabtrack/fabtrack-backend/internal/queue"
	"github.com/fabtrack/fabtrack-backend/pkg/db"
	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
)

// EligibilityResult lists everything still blocking a project from the
// queue. Reasons accumulate; a caller sees all of them at once.
type EligibilityResult struct {
	Eligible bool                   `json:"eligible"`
	Reasons  []string               `json:"reasons"`
	Match    *inventory.MatchResult `json:"match,omitempty"`
}

// Outcome reports one auto-scheduling attempt.
type Outcome struct {
	Scheduled  bool               `json:"scheduled"`
	Message    string             `json:"message"`
	QueueEntry *models.QueueEntry `json:"queue_entry,omitempty"`
	Reasons    []string           `json:"reasons,omitempty"`
}

// PassSummary aggregates one scheduling sweep over all eligible projects.
type PassSummary struct {
	Examined  int `json:"examined"`
	Scheduled int `json:"scheduled"`
	Skipped   int `json:"skipped"`
}

// Scheduler decides whether a project may enter the queue and performs the
// enqueue plus stock reservation as one transaction.
type Scheduler interface {
	CheckEligibility(ctx context.Context, projectID uuid.UUID) (*EligibilityResult, error)
	TryAutoSchedule(ctx context.Context, projectID uuid.UUID, actor string) (*Outcome, error)
	RunPass(ctx context.Context, actor string) (*PassSummary, error)
}

// Deps bundles the scheduler's collaborators.
type Deps struct {
	ProjectRepo projects.Repository
	QueueRepo   queue.Repository
	Matcher     inventory.Matcher
	Ledger      inventory.Ledger
	Ordering    queue.Ordering
	Capacity    queue.CapacityValidator
	Auditor     audit.Service
	TxRunner    db.TxRunner
	Logger      *logger.Logger
	ToleranceMM decimal.Decimal
	Now         func() time.Time
}

type scheduler struct {
	deps Deps
}

// NewScheduler wires the auto-scheduler. A nil clock defaults to time.Now
// and a zero tolerance falls back to the inventory default.
func NewScheduler(deps Deps) (Scheduler, error) {
	switch {
	case deps.ProjectRepo == nil:
		return nil, fmt.Errorf("project repository required")
	case deps.QueueRepo == nil:
		return nil, fmt.Errorf("queue repository required")
	case deps.Matcher == nil:
		return nil, fmt.Errorf("inventory matcher required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case deps.Ordering == nil:
		return nil, fmt.Errorf("ordering service required")
	case deps.Capacity == nil:
		return nil, fmt.Errorf("capacity validator required")
	case deps.Auditor == nil:
		return nil, fmt.Errorf("audit service required")
	case deps.TxRunner == nil:
		return nil, fmt.Errorf("tx runner required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	if deps.ToleranceMM.IsZero() {
		deps.ToleranceMM = inventory.DefaultToleranceMM
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &scheduler{deps: deps}, nil
}

// CheckEligibility is the read-only preview of the scheduling gate. It never
// mutates anything and reports every blocking reason, not only the first.
func (s *scheduler) CheckEligibility(ctx context.Context, projectID uuid.UUID) (*EligibilityResult, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, project)
}

func (s *scheduler) evaluate(ctx context.Context, project *models.Project) (*EligibilityResult, error) {
	result := &EligibilityResult{}

	if !project.POPReceived {
		result.Reasons = append(result.Reasons, "proof of payment not received")
	}
	if project.MaterialType == nil || *project.MaterialType == "" {
		result.Reasons = append(result.Reasons, "material type not set")
	}
	if project.MaterialThicknessMM == nil {
		result.Reasons = append(result.Reasons, "material thickness not set")
	}
	if project.MaterialQuantity == nil || *project.MaterialQuantity <= 0 {
		result.Reasons = append(result.Reasons, "material quantity not set")
	}
	if project.PartsQuantity == nil || *project.PartsQuantity <= 0 {
		result.Reasons = append(result.Reasons, "parts quantity not set")
	}
	if project.EstimatedCutTimeMins == nil || *project.EstimatedCutTimeMins <= 0 {
		result.Reasons = append(result.Reasons, "estimated cut time not set")
	}

	// Inventory can only be checked once the material fields are usable.
	if project.MaterialType != nil && *project.MaterialType != "" &&
		project.MaterialThicknessMM != nil &&
		project.MaterialQuantity != nil && *project.MaterialQuantity > 0 {
		match, err := s.deps.Matcher.FindMatch(ctx,
			*project.MaterialType,
			*project.MaterialThicknessMM,
			decimal.NewFromInt(int64(*project.MaterialQuantity)),
			s.deps.ToleranceMM,
		)
		if err != nil {
			return nil, err
		}
		result.Match = match
		if !match.Available {
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("insufficient inventory: %s (short %s)", match.Message, match.Shortage))
		}
	}

	result.Eligible = len(result.Reasons) == 0
	return result, nil
}

// TryAutoSchedule runs the full gate and, when the project passes, reserves
// stock and appends a queue entry in one transaction. Re-invoking it on an
// already-queued project is a no-op reporting the existing position.
func (s *scheduler) TryAutoSchedule(ctx context.Context, projectID uuid.UUID, actor string) (*Outcome, error) {
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}

	var outcome *Outcome
	err := s.deps.TxRunner.WithTx(ctx, func(tx *gorm.DB) error {
		project, err := s.loadProject(ctx, projectID)
		if err != nil {
			return err
		}

		existing, err := s.deps.QueueRepo.WithTx(tx).FindActiveByProject(ctx, projectID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active entry")
		}
		if existing != nil {
			outcome = &Outcome{
				Scheduled: false,
				Message:   fmt.Sprintf("already queued at position %d", existing.Position),
				Reasons:   []string{fmt.Sprintf("already queued at position %d", existing.Position)},
			}
			return nil
		}

		eligibility, err := s.evaluate(ctx, project)
		if err != nil {
			return err
		}
		if !eligibility.Eligible {
			outcome = &Outcome{
				Scheduled: false,
				Message:   "project is not eligible for scheduling",
				Reasons:   eligibility.Reasons,
			}
			return nil
		}

		scheduledDate := NextBusinessDay(s.deps.Now())
		cutMinutes := *project.EstimatedCutTimeMins

		capacity, err := s.deps.Capacity.WithTx(tx).Validate(ctx, scheduledDate, cutMinutes)
		if err != nil {
			return err
		}
		if !capacity.Valid {
			outcome = &Outcome{
				Scheduled: false,
				Message:   "project is not eligible for scheduling",
				Reasons:   []string{capacity.Message},
			}
			return nil
		}

		entryID := uuid.New()
		required := decimal.NewFromInt(int64(*project.MaterialQuantity))
		notes := "auto-scheduled: " + eligibility.Match.Message

		reserved, err := s.deps.Ledger.Reserve(ctx, tx, inventory.MovementInput{
			ItemID:        eligibility.Match.Item.ID,
			Quantity:      required,
			ReferenceType: inventory.ReferenceTypeQueueEntry,
			ReferenceID:   &entryID,
			Actor:         actor,
			Notes:         &notes,
		})
		if err != nil {
			return err
		}
		if !reserved {
			// Lost the stock to a concurrent reservation since the match ran.
			outcome = &Outcome{
				Scheduled: false,
				Message:   "inventory reservation failed",
				Reasons:   []string{"inventory reservation failed"},
			}
			return nil
		}

		position, err := s.deps.Ordering.NextPosition(ctx, tx)
		if err != nil {
			return err
		}

		entry := &models.QueueEntry{
			ID:                   entryID,
			ProjectID:            project.ID,
			Position:             position,
			Status:               enums.QueueEntryStatusQueued,
			Priority:             enums.QueuePriorityNormal,
			ScheduledDate:        scheduledDate,
			EstimatedCutTimeMins: cutMinutes,
			Notes:                &notes,
		}
		if err := s.deps.QueueRepo.WithTx(tx).Create(ctx, entry); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "lost race for queue position")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create queue entry")
		}

		s.deps.Auditor.Record(ctx, tx, audit.RecordInput{
			EntityType: audit.EntityQueueEntry,
			EntityID:   entry.ID,
			Action:     "auto_scheduled",
			Actor:      actor,
			Details: map[string]any{
				"project_id":     project.ID.String(),
				"position":       position,
				"scheduled_date": scheduledDate.Format(time.DateOnly),
				"match_type":     eligibility.Match.MatchType.String(),
				"reserved_qty":   required.String(),
			},
		})

		message := fmt.Sprintf("scheduled at position %d for %s", position, scheduledDate.Format(time.DateOnly))
		if capacity.Severity == enums.SeverityWarning {
			message += "; " + capacity.Message
		}
		outcome = &Outcome{
			Scheduled:  true,
			Message:    message,
			QueueEntry: entry,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// RunPass attempts to schedule every paid, not-yet-queued project. Failures
// on individual projects do not stop the sweep.
func (s *scheduler) RunPass(ctx context.Context, actor string) (*PassSummary, error) {
	candidates, err := s.deps.ProjectRepo.ListSchedulable(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list schedulable projects")
	}

	summary := &PassSummary{Examined: len(candidates)}
	var errs error
	for _, project := range candidates {
		logCtx := s.deps.Logger.WithProjectID(ctx, project.ID.String())

		outcome, err := s.TryAutoSchedule(ctx, project.ID, actor)
		if err != nil {
			summary.Skipped++
			errs = multierr.Append(errs, fmt.Errorf("project %s: %w", project.ID, err))
			s.deps.Logger.Error(logCtx, "auto-schedule attempt failed", err)
			continue
		}
		if outcome.Scheduled {
			summary.Scheduled++
			s.deps.Logger.Info(logCtx, outcome.Message)
		} else {
			summary.Skipped++
		}
	}
	return summary, errs
}

func (s *scheduler) loadProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	project, err := s.deps.ProjectRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	return project, nil
}
