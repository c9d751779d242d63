package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/internal/audit"
	"github.com/fabtrack/fabtrack-backend/internal/inventory"
	"github.com/fabtrack/fabtrack-backend/internal/projects"
	"github.com/fabtrack/fabtrack-backend/pkg/db"
	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:queue_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Project{},
		&models.QueueEntry{},
		&models.InventoryItem{},
		&models.InventoryTransaction{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("migrate queue schema: %v", err)
	}
	return conn
}

func newTestAuditor(t *testing.T, conn *gorm.DB) audit.Service {
	t.Helper()
	auditor, err := audit.NewService(audit.NewRepository(conn), logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("new auditor: %v", err)
	}
	return auditor
}

func newTestOrdering(t *testing.T, conn *gorm.DB) Ordering {
	t.Helper()
	ordering, err := NewOrdering(NewRepository(conn), db.NewTxRunner(conn), newTestAuditor(t, conn))
	if err != nil {
		t.Fatalf("new ordering: %v", err)
	}
	return ordering
}

func newTestService(t *testing.T, conn *gorm.DB, now func() time.Time) Service {
	t.Helper()
	repo := NewRepository(conn)
	invRepo := inventory.NewRepository(conn)
	ledger, err := inventory.NewLedger(invRepo)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	capacity, err := NewCapacityValidator(repo, DefaultMaxHoursPerDay, DefaultCapacityWarnRatio)
	if err != nil {
		t.Fatalf("new capacity validator: %v", err)
	}
	svc, err := NewService(ServiceDeps{
		Repo:          repo,
		ProjectRepo:   projects.NewRepository(conn),
		InventoryRepo: invRepo,
		Ledger:        ledger,
		Ordering:      newTestOrdering(t, conn),
		Capacity:      capacity,
		Auditor:       newTestAuditor(t, conn),
		TxRunner:      db.NewTxRunner(conn),
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		Now:           now,
	})
	if err != nil {
		t.Fatalf("new queue service: %v", err)
	}
	return svc
}

func seedProject(t *testing.T, conn *gorm.DB, mutate func(*models.Project)) models.Project {
	t.Helper()
	cutTime := 60
	project := models.Project{
		ID:                   uuid.New(),
		ClientName:           "Client",
		Status:               enums.ProjectStatusApprovedPOP,
		EstimatedCutTimeMins: &cutTime,
	}
	if mutate != nil {
		mutate(&project)
	}
	if err := conn.Create(&project).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return project
}

func seedEntry(t *testing.T, conn *gorm.DB, projectID uuid.UUID, position int, status enums.QueueEntryStatus) models.QueueEntry {
	t.Helper()
	entry := models.QueueEntry{
		ID:                   uuid.New(),
		ProjectID:            projectID,
		Position:             position,
		Status:               status,
		Priority:             enums.QueuePriorityNormal,
		ScheduledDate:        date(2025, 1, 6),
		EstimatedCutTimeMins: 60,
	}
	if err := conn.Create(&entry).Error; err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	return entry
}

func activePositions(t *testing.T, conn *gorm.DB) []int {
	t.Helper()
	entries, err := NewRepository(conn).ListActive(context.Background())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	positions := make([]int, 0, len(entries))
	for _, entry := range entries {
		positions = append(positions, entry.Position)
	}
	return positions
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
