package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/internal/audit"
	"github.com/fabtrack/fabtrack-backend/internal/inventory"
	"github.com/fabtrack/fabtrack-backend/internal/projects"
	"github.com/fabtrack/fabtrack-backend/pkg/db"
	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
)

// EnqueueInput places a project into the queue by hand.
type EnqueueInput struct {
	ProjectID            uuid.UUID
	ScheduledDate        time.Time
	Priority             enums.QueuePriority
	EstimatedCutTimeMins *int
	Notes                *string
	Actor                string
}

// Service drives queue entries through their lifecycle, mirroring each
// status change onto the owning project in the same transaction.
type Service interface {
	Enqueue(ctx context.Context, input EnqueueInput) (*models.QueueEntry, error)
	UpdateStatus(ctx context.Context, entryID uuid.UUID, newStatus enums.QueueEntryStatus, actor string) (*models.QueueEntry, error)
	Get(ctx context.Context, entryID uuid.UUID) (*models.QueueEntry, error)
	ListActive(ctx context.Context) ([]models.QueueEntry, error)
}

type service struct {
	repo          Repository
	projectRepo   projects.Repository
	inventoryRepo inventory.Repository
	ledger        inventory.Ledger
	ordering      Ordering
	capacity      CapacityValidator
	auditor       audit.Service
	txRunner      db.TxRunner
	logg          *logger.Logger
	now           func() time.Time
}

// ServiceDeps bundles the collaborators the queue service needs.
type ServiceDeps struct {
	Repo          Repository
	ProjectRepo   projects.Repository
	InventoryRepo inventory.Repository
	Ledger        inventory.Ledger
	Ordering      Ordering
	Capacity      CapacityValidator
	Auditor       audit.Service
	TxRunner      db.TxRunner
	Logger        *logger.Logger
	Now           func() time.Time
}

// NewService wires the queue lifecycle service. A nil clock defaults to
// time.Now.
func NewService(deps ServiceDeps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("queue repository required")
	case deps.ProjectRepo == nil:
		return nil, fmt.Errorf("project repository required")
	case deps.InventoryRepo == nil:
		return nil, fmt.Errorf("inventory repository required")
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
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{
		repo:          deps.Repo,
		projectRepo:   deps.ProjectRepo,
		inventoryRepo: deps.InventoryRepo,
		ledger:        deps.Ledger,
		ordering:      deps.Ordering,
		capacity:      deps.Capacity,
		auditor:       deps.Auditor,
		txRunner:      deps.TxRunner,
		logg:          deps.Logger,
		now:           deps.Now,
	}, nil
}

// Enqueue inserts a queued entry at the tail of the active sequence. It
// shares the auto-scheduler's invariants (one active slot per project,
// capacity budget) but skips material eligibility: a manually enqueued job is
// the operator's call.
func (s *service) Enqueue(ctx context.Context, input EnqueueInput) (*models.QueueEntry, error) {
	if input.Actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	if input.Priority == "" {
		input.Priority = enums.QueuePriorityNormal
	}
	if !input.Priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid priority %q", input.Priority))
	}

	project, err := s.projectRepo.FindByID(ctx, input.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	if project.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot enqueue a %s project", project.Status))
	}

	cutMinutes := 0
	if input.EstimatedCutTimeMins != nil {
		cutMinutes = *input.EstimatedCutTimeMins
	} else if project.EstimatedCutTimeMins != nil {
		cutMinutes = *project.EstimatedCutTimeMins
	}
	if cutMinutes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated cut time must be positive")
	}

	scheduledDate := projects.DateOnly(input.ScheduledDate)
	if input.ScheduledDate.IsZero() {
		scheduledDate = projects.DateOnly(s.now())
	}

	var entry *models.QueueEntry
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindActiveByProject(ctx, input.ProjectID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active entry")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("already queued at position %d", existing.Position))
		}

		capacity, err := s.capacity.WithTx(tx).Validate(ctx, scheduledDate, cutMinutes)
		if err != nil {
			return err
		}
		if !capacity.Valid {
			return pkgerrors.New(pkgerrors.CodeValidation, capacity.Message)
		}
		if capacity.Severity == enums.SeverityWarning {
			s.logg.Warn(s.logg.WithProjectID(ctx, input.ProjectID.String()), capacity.Message)
		}

		position, err := s.ordering.NextPosition(ctx, tx)
		if err != nil {
			return err
		}

		entry = &models.QueueEntry{
			ID:                   uuid.New(),
			ProjectID:            input.ProjectID,
			Position:             position,
			Status:               enums.QueueEntryStatusQueued,
			Priority:             input.Priority,
			ScheduledDate:        scheduledDate,
			EstimatedCutTimeMins: cutMinutes,
			Notes:                input.Notes,
		}
		if err := repo.Create(ctx, entry); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "lost race for queue position")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create queue entry")
		}

		s.auditor.Record(ctx, tx, audit.RecordInput{
			EntityType: audit.EntityQueueEntry,
			EntityID:   entry.ID,
			Action:     "enqueued",
			Actor:      input.Actor,
			Details: map[string]any{
				"project_id":     input.ProjectID.String(),
				"position":       position,
				"scheduled_date": scheduledDate.Format(time.DateOnly),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateStatus transitions an entry and mirrors the change onto its project.
// Entry, project, compaction, stock release and audit rows commit together.
func (s *service) UpdateStatus(ctx context.Context, entryID uuid.UUID, newStatus enums.QueueEntryStatus, actor string) (*models.QueueEntry, error) {
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}
	if !newStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", newStatus))
	}

	var updated *models.QueueEntry
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		entry, err := repo.FindByID(ctx, entryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "queue entry not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load queue entry")
		}
		if entry.Status == newStatus {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("entry already %s", newStatus))
		}
		if entry.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("entry is %s and cannot change", entry.Status))
		}

		previousStatus := entry.Status
		now := s.now()
		entry.Status = newStatus

		switch newStatus {
		case enums.QueueEntryStatusInProgress:
			if entry.StartedAt == nil {
				entry.StartedAt = &now
			}
		case enums.QueueEntryStatusCompleted:
			if entry.CompletedAt == nil {
				entry.CompletedAt = &now
			}
		}

		if err := repo.Save(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save queue entry")
		}

		if err := s.mirrorProjectStatus(ctx, tx, entry, newStatus, actor); err != nil {
			return err
		}

		if newStatus == enums.QueueEntryStatusCancelled {
			if err := s.releaseReservedStock(ctx, tx, entry, actor); err != nil {
				return err
			}
		}
		if newStatus.IsTerminal() {
			if err := s.ordering.Compact(ctx, tx); err != nil {
				return err
			}
		}

		s.auditor.Record(ctx, tx, audit.RecordInput{
			EntityType: audit.EntityQueueEntry,
			EntityID:   entry.ID,
			Action:     "status_changed",
			Actor:      actor,
			Details: map[string]string{
				"from_status": previousStatus.String(),
				"to_status":   newStatus.String(),
			},
		})

		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// mirrorProjectStatus applies the entry→project status mapping. A move back
// to queued has no project-side effect.
func (s *service) mirrorProjectStatus(ctx context.Context, tx *gorm.DB, entry *models.QueueEntry, newStatus enums.QueueEntryStatus, actor string) error {
	var projectStatus enums.ProjectStatus
	switch newStatus {
	case enums.QueueEntryStatusInProgress:
		projectStatus = enums.ProjectStatusInProgress
	case enums.QueueEntryStatusCompleted:
		projectStatus = enums.ProjectStatusCompleted
	case enums.QueueEntryStatusCancelled:
		projectStatus = enums.ProjectStatusCancelled
	default:
		return nil
	}

	projectRepo := s.projectRepo.WithTx(tx)
	project, err := projectRepo.FindByID(ctx, entry.ProjectID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project for mirror")
	}
	if project.Status == projectStatus {
		return nil
	}

	previousStatus := project.Status
	project.Status = projectStatus
	if projectStatus == enums.ProjectStatusCompleted && project.CompletionDate == nil {
		today := projects.DateOnly(s.now())
		project.CompletionDate = &today
	}

	if err := projectRepo.Save(ctx, project); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mirror project status")
	}

	s.auditor.Record(ctx, tx, audit.RecordInput{
		EntityType: audit.EntityProject,
		EntityID:   project.ID,
		Action:     "status_changed",
		Actor:      actor,
		Details: map[string]string{
			"from_status": previousStatus.String(),
			"to_status":   projectStatus.String(),
			"trigger":     "queue_entry:" + entry.ID.String(),
		},
	})
	return nil
}

// releaseReservedStock returns whatever the entry still holds against the
// inventory ledger. The net of the entry's movements decides the quantity, so
// a double cancellation can never double-credit.
func (s *service) releaseReservedStock(ctx context.Context, tx *gorm.DB, entry *models.QueueEntry, actor string) error {
	txns, err := s.inventoryRepo.WithTx(tx).ListTransactionsByReference(ctx, inventory.ReferenceTypeQueueEntry, entry.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list entry stock movements")
	}

	netByItem := make(map[uuid.UUID]decimal.Decimal)
	for _, txn := range txns {
		netByItem[txn.ItemID] = netByItem[txn.ItemID].Add(txn.QuantityDelta)
	}

	notes := "released on queue entry cancellation"
	for itemID, net := range netByItem {
		if !net.IsNegative() {
			continue
		}
		entryID := entry.ID
		if err := s.ledger.Release(ctx, tx, inventory.MovementInput{
			ItemID:        itemID,
			Quantity:      net.Neg(),
			ReferenceType: inventory.ReferenceTypeQueueEntry,
			ReferenceID:   &entryID,
			Actor:         actor,
			Notes:         &notes,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, entryID uuid.UUID) (*models.QueueEntry, error) {
	entry, err := s.repo.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "queue entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load queue entry")
	}
	return entry, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.QueueEntry, error) {
	entries, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active entries")
	}
	return entries, nil
}
