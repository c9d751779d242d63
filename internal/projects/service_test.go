package projects

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/internal/audit"
	"github.com/fabtrack/fabtrack-backend/pkg/db"
	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
)

func TestCreateStartsAsRequest(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)

	project, err := svc.Create(context.Background(), CreateInput{
		ClientName: "Steelworks Ltd",
		Actor:      "sales",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if project.Status != enums.ProjectStatusRequest {
		t.Fatalf("expected request status, got %s", project.Status)
	}

	var logs []models.AuditLog
	if err := conn.Where("entity_id = ?", project.ID).Find(&logs).Error; err != nil {
		t.Fatalf("load audit logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "created" {
		t.Fatalf("expected one created audit record, got %+v", logs)
	}
}

func TestMarkPOPReceivedComputesDeadline(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, func() time.Time { return date(2025, 1, 5) })

	project, err := svc.Create(context.Background(), CreateInput{ClientName: "Steelworks Ltd", Actor: "sales"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.MarkPOPReceived(context.Background(), project.ID, date(2025, 1, 1), "accounts")
	if err != nil {
		t.Fatalf("mark pop: %v", err)
	}
	if updated.POPDeadline == nil || !updated.POPDeadline.Equal(date(2025, 1, 4)) {
		t.Fatalf("expected deadline 2025-01-04, got %v", updated.POPDeadline)
	}
	if updated.Status != enums.ProjectStatusApprovedPOP {
		t.Fatalf("expected approved_pop status, got %s", updated.Status)
	}

	_, err = svc.MarkPOPReceived(context.Background(), project.ID, date(2025, 1, 2), "accounts")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on second receipt, got %v", err)
	}
}

func TestSetQuoteMovesRequestToQuoting(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)

	project, err := svc.Create(context.Background(), CreateInput{ClientName: "Steelworks Ltd", Actor: "sales"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.SetQuote(context.Background(), project.ID, QuoteInput{
		MaterialType:         "Mild Steel",
		MaterialThicknessMM:  decimal.RequireFromString("3.0"),
		MaterialQuantity:     10,
		PartsQuantity:        40,
		EstimatedCutTimeMins: 60,
		Actor:                "sales",
	})
	if err != nil {
		t.Fatalf("set quote: %v", err)
	}
	if updated.Status != enums.ProjectStatusQuoteAndApproval {
		t.Fatalf("expected quote_and_approval status, got %s", updated.Status)
	}
	if updated.MaterialType == nil || *updated.MaterialType != "Mild Steel" {
		t.Fatalf("expected material type persisted, got %v", updated.MaterialType)
	}
	if updated.EstimatedCutTimeMins == nil || *updated.EstimatedCutTimeMins != 60 {
		t.Fatalf("expected cut time persisted, got %v", updated.EstimatedCutTimeMins)
	}
}

func TestSetQuoteRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	project := seedProject(t, conn, nil)

	_, err := svc.SetQuote(context.Background(), project.ID, QuoteInput{
		MaterialType:         "Mild Steel",
		MaterialThicknessMM:  decimal.Zero,
		MaterialQuantity:     10,
		PartsQuantity:        40,
		EstimatedCutTimeMins: 60,
		Actor:                "sales",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancelQueuedProjectGoesThroughQueue(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	project := seedProject(t, conn, func(p *models.Project) {
		p.Status = enums.ProjectStatusQueued
	})

	_, err := svc.Cancel(context.Background(), project.ID, "ops")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for queued project, got %v", err)
	}
}

func TestCancelPreQueueProject(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	project := seedProject(t, conn, func(p *models.Project) {
		p.Status = enums.ProjectStatusQuoteAndApproval
	})

	updated, err := svc.Cancel(context.Background(), project.ID, "ops")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.Status != enums.ProjectStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", updated.Status)
	}
}

func newTestService(t *testing.T, conn *gorm.DB, now func() time.Time) Service {
	t.Helper()
	auditor, err := audit.NewService(audit.NewRepository(conn), logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("new auditor: %v", err)
	}
	svc, err := NewService(NewRepository(conn), auditor, db.NewTxRunner(conn), DefaultDeadlineDays, now)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}
