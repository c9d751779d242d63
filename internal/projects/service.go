package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/internal/audit"
	"github.com/fabtrack/fabtrack-backend/pkg/db"
	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
	"github.com/fabtrack/fabtrack-backend/pkg/pagination"
)

// CreateInput opens a new project in the request stage.
type CreateInput struct {
	ClientName  string
	ClientRef   *string
	Description *string
	Actor       string
}

// QuoteInput fills in the material requirements agreed during quoting.
type QuoteInput struct {
	MaterialType         string
	MaterialThicknessMM  decimal.Decimal
	MaterialQuantity     int
	PartsQuantity        int
	EstimatedCutTimeMins int
	Actor                string
}

// Service exposes project lifecycle operations outside of queue mirroring.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Project, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, params pagination.Params) ([]models.Project, string, error)
	SetQuote(ctx context.Context, id uuid.UUID, input QuoteInput) (*models.Project, error)
	MarkPOPReceived(ctx context.Context, id uuid.UUID, receivedDate time.Time, actor string) (*models.Project, error)
	Cancel(ctx context.Context, id uuid.UUID, actor string) (*models.Project, error)
}

type service struct {
	repo         Repository
	auditor      audit.Service
	txRunner     db.TxRunner
	deadlineDays int
	now          func() time.Time
}

// NewService wires a project service. A nil clock defaults to time.Now and a
// non-positive deadline window falls back to DefaultDeadlineDays.
func NewService(repo Repository, auditor audit.Service, txRunner db.TxRunner, deadlineDays int, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("project repository required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if txRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deadlineDays <= 0 {
		deadlineDays = DefaultDeadlineDays
	}
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         repo,
		auditor:      auditor,
		txRunner:     txRunner,
		deadlineDays: deadlineDays,
		now:          now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Project, error) {
	if input.ClientName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client name required")
	}
	if input.Actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}

	project := &models.Project{
		ID:          uuid.New(),
		ClientName:  input.ClientName,
		ClientRef:   input.ClientRef,
		Description: input.Description,
		Status:      enums.ProjectStatusRequest,
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, project); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create project")
		}
		s.auditor.Record(ctx, tx, audit.RecordInput{
			EntityType: audit.EntityProject,
			EntityID:   project.ID,
			Action:     "created",
			Actor:      input.Actor,
			Details:    map[string]string{"client_name": input.ClientName},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	return project, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.Project, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	projects, err := s.repo.List(ctx, cursor, limit+1)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list projects")
	}

	nextCursor := ""
	if len(projects) > limit {
		projects = projects[:limit]
		last := projects[len(projects)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return projects, nextCursor, nil
}

// SetQuote records the material requirements and moves the project into the
// quoting stage if it was still a bare request.
func (s *service) SetQuote(ctx context.Context, id uuid.UUID, input QuoteInput) (*models.Project, error) {
	if input.Actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}
	if input.MaterialType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material type required")
	}
	if !input.MaterialThicknessMM.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material thickness must be positive")
	}
	if input.MaterialQuantity <= 0 || input.PartsQuantity <= 0 || input.EstimatedCutTimeMins <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantities and cut time must be positive")
	}

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot quote a %s project", project.Status))
	}

	thickness := input.MaterialThicknessMM
	project.MaterialType = &input.MaterialType
	project.MaterialThicknessMM = &thickness
	project.MaterialQuantity = &input.MaterialQuantity
	project.PartsQuantity = &input.PartsQuantity
	project.EstimatedCutTimeMins = &input.EstimatedCutTimeMins
	if project.Status == enums.ProjectStatusRequest {
		project.Status = enums.ProjectStatusQuoteAndApproval
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, project); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save quote")
		}
		s.auditor.Record(ctx, tx, audit.RecordInput{
			EntityType: audit.EntityProject,
			EntityID:   project.ID,
			Action:     "quote_set",
			Actor:      input.Actor,
			Details: map[string]any{
				"material_type":      input.MaterialType,
				"thickness_mm":       input.MaterialThicknessMM.String(),
				"material_quantity":  input.MaterialQuantity,
				"estimated_cut_mins": input.EstimatedCutTimeMins,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// MarkPOPReceived records proof of payment and derives the scheduling
// deadline from the receipt date. Marking twice is a state conflict; use an
// explicit correction flow to amend a receipt date.
func (s *service) MarkPOPReceived(ctx context.Context, id uuid.UUID, receivedDate time.Time, actor string) (*models.Project, error) {
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}
	if receivedDate.IsZero() {
		receivedDate = s.now()
	}

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot record payment on a %s project", project.Status))
	}
	if project.POPReceived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "proof of payment already recorded")
	}

	received := DateOnly(receivedDate)
	deadline := DeadlineFor(receivedDate, s.deadlineDays)

	previousStatus := project.Status
	project.POPReceived = true
	project.POPReceivedDate = &received
	project.POPDeadline = &deadline
	if project.Status == enums.ProjectStatusRequest || project.Status == enums.ProjectStatusQuoteAndApproval {
		project.Status = enums.ProjectStatusApprovedPOP
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, project); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment receipt")
		}
		s.auditor.Record(ctx, tx, audit.RecordInput{
			EntityType: audit.EntityProject,
			EntityID:   project.ID,
			Action:     "pop_received",
			Actor:      actor,
			Details: map[string]string{
				"from_status":   previousStatus.String(),
				"to_status":     project.Status.String(),
				"received_date": received.Format(time.DateOnly),
				"deadline":      deadline.Format(time.DateOnly),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Cancel voids a project that has not reached the queue. Queued or running
// projects must be cancelled through their queue entry so the slot is freed
// and any reserved material returns to stock.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, actor string) (*models.Project, error) {
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("project already %s", project.Status))
	}
	if project.Status == enums.ProjectStatusQueued || project.Status == enums.ProjectStatusInProgress {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cancel the queue entry instead")
	}

	previousStatus := project.Status
	project.Status = enums.ProjectStatusCancelled

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, project); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cancellation")
		}
		s.auditor.Record(ctx, tx, audit.RecordInput{
			EntityType: audit.EntityProject,
			EntityID:   project.ID,
			Action:     "cancelled",
			Actor:      actor,
			Details: map[string]string{
				"from_status": previousStatus.String(),
				"to_status":   project.Status.String(),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}
