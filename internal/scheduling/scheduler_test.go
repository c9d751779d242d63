package scheduling

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/internal/audit"
	"github.com/fabtrack/fabtrack-backend/internal/inventory"
	"github.com/fabtrack/fabtrack-backend/internal/projects"
	"github.com/fabtrack/fabtrack-backend/internal/queue"
	"github.com/fabtrack/fabtrack-backend/pkg/db"
	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
)

// Thursday 2025-01-02: a business day, so scheduling lands same-day.
var thursday = date(2025, 1, 2)

func TestTryAutoScheduleEndToEnd(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	sched := newTestScheduler(t, conn, func() time.Time { return thursday })

	project := seedEligibleProject(t, conn)
	item := seedSheet(t, conn, "Mild Steel", "3.0", "20")

	outcome, err := sched.TryAutoSchedule(context.Background(), project.ID, "scheduler")
	if err != nil {
		t.Fatalf("auto schedule: %v", err)
	}
	if !outcome.Scheduled {
		t.Fatalf("expected scheduled outcome, got %+v", outcome)
	}
	if outcome.QueueEntry == nil || outcome.QueueEntry.Position != 1 {
		t.Fatalf("expected entry at position 1, got %+v", outcome.QueueEntry)
	}
	if !outcome.QueueEntry.ScheduledDate.Equal(thursday) {
		t.Fatalf("expected same-day scheduling on a Thursday, got %s", outcome.QueueEntry.ScheduledDate)
	}

	var reloaded models.InventoryItem
	if err := conn.First(&reloaded, "id = ?", item.ID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if !reloaded.QuantityOnHand.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected 10 sheets left, got %s", reloaded.QuantityOnHand)
	}

	var txns []models.InventoryTransaction
	if err := conn.Where("item_id = ?", item.ID).Find(&txns).Error; err != nil {
		t.Fatalf("load transactions: %v", err)
	}
	if len(txns) != 1 || txns[0].Type != enums.InventoryTransactionTypeUsage ||
		!txns[0].QuantityDelta.Equal(decimal.RequireFromString("-10")) {
		t.Fatalf("expected one usage transaction of -10, got %+v", txns)
	}

	// The project keeps its pre-queue business status until the entry starts.
	var reloadedProject models.Project
	if err := conn.First(&reloadedProject, "id = ?", project.ID).Error; err != nil {
		t.Fatalf("load project: %v", err)
	}
	if reloadedProject.Status != enums.ProjectStatusApprovedPOP {
		t.Fatalf("expected untouched project status, got %s", reloadedProject.Status)
	}
}

func TestTryAutoScheduleIsIdempotent(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	sched := newTestScheduler(t, conn, func() time.Time { return thursday })

	project := seedEligibleProject(t, conn)
	item := seedSheet(t, conn, "Mild Steel", "3.0", "20")

	first, err := sched.TryAutoSchedule(context.Background(), project.ID, "scheduler")
	if err != nil || !first.Scheduled {
		t.Fatalf("first attempt: outcome=%+v err=%v", first, err)
	}
	second, err := sched.TryAutoSchedule(context.Background(), project.ID, "scheduler")
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if second.Scheduled {
		t.Fatal("expected second attempt to report already queued")
	}
	if !strings.Contains(second.Message, "already queued at position 1") {
		t.Fatalf("expected position in message, got %q", second.Message)
	}

	var entryCount int64
	if err := conn.Model(&models.QueueEntry{}).Count(&entryCount).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entryCount != 1 {
		t.Fatalf("expected exactly one entry, got %d", entryCount)
	}

	var reloaded models.InventoryItem
	if err := conn.First(&reloaded, "id = ?", item.ID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if !reloaded.QuantityOnHand.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected single reservation, got %s on hand", reloaded.QuantityOnHand)
	}
}

func TestCheckEligibilityAccumulatesAllReasons(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	sched := newTestScheduler(t, conn, nil)

	project := models.Project{
		ID:         uuid.New(),
		ClientName: "Client",
		Status:     enums.ProjectStatusQuoteAndApproval,
	}
	if err := conn.Create(&project).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}

	result, err := sched.CheckEligibility(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if result.Eligible {
		t.Fatal("expected ineligible project")
	}
	want := []string{
		"proof of payment not received",
		"material type not set",
		"material thickness not set",
		"material quantity not set",
		"parts quantity not set",
		"estimated cut time not set",
	}
	if len(result.Reasons) != len(want) {
		t.Fatalf("expected %d reasons, got %v", len(want), result.Reasons)
	}
	for i, reason := range want {
		if result.Reasons[i] != reason {
			t.Fatalf("reason %d: expected %q, got %q", i, reason, result.Reasons[i])
		}
	}
}

func TestCheckEligibilityFlagsInventoryShortage(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	sched := newTestScheduler(t, conn, nil)

	project := seedEligibleProject(t, conn)
	seedSheet(t, conn, "Mild Steel", "3.0", "4")

	result, err := sched.CheckEligibility(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if result.Eligible {
		t.Fatal("expected shortage to block eligibility")
	}
	if len(result.Reasons) != 1 || !strings.Contains(result.Reasons[0], "insufficient inventory") {
		t.Fatalf("expected inventory reason, got %v", result.Reasons)
	}
	if result.Match == nil || !result.Match.Shortage.Equal(decimal.RequireFromString("6")) {
		t.Fatalf("expected shortage 6 in match, got %+v", result.Match)
	}
}

func TestTryAutoScheduleRespectsCapacity(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	sched := newTestScheduler(t, conn, func() time.Time { return thursday })

	// Fill the Thursday budget with another project's entry.
	blocker := seedEligibleProject(t, conn)
	entry := models.QueueEntry{
		ID:                   uuid.New(),
		ProjectID:            blocker.ID,
		Position:             1,
		Status:               enums.QueueEntryStatusQueued,
		Priority:             enums.QueuePriorityNormal,
		ScheduledDate:        thursday,
		EstimatedCutTimeMins: 450,
	}
	if err := conn.Create(&entry).Error; err != nil {
		t.Fatalf("seed blocker entry: %v", err)
	}

	project := seedEligibleProject(t, conn)
	seedSheet(t, conn, "Mild Steel", "3.0", "40")

	outcome, err := sched.TryAutoSchedule(context.Background(), project.ID, "scheduler")
	if err != nil {
		t.Fatalf("auto schedule: %v", err)
	}
	if outcome.Scheduled {
		t.Fatal("expected capacity to block scheduling")
	}
	if len(outcome.Reasons) != 1 || !strings.Contains(outcome.Reasons[0], "insufficient capacity") {
		t.Fatalf("expected capacity reason, got %v", outcome.Reasons)
	}

	// Nothing may have been reserved on the failed attempt.
	var txnCount int64
	if err := conn.Model(&models.InventoryTransaction{}).Count(&txnCount).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if txnCount != 0 {
		t.Fatalf("expected no stock movements, got %d", txnCount)
	}
}

func TestTryAutoScheduleUsesFuzzyMatch(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	sched := newTestScheduler(t, conn, func() time.Time { return thursday })

	project := seedEligibleProject(t, conn)
	item := seedSheet(t, conn, "Mild Steel", "3.2", "15")

	outcome, err := sched.TryAutoSchedule(context.Background(), project.ID, "scheduler")
	if err != nil {
		t.Fatalf("auto schedule: %v", err)
	}
	if !outcome.Scheduled {
		t.Fatalf("expected fuzzy stock to schedule, got %+v", outcome)
	}
	if outcome.QueueEntry.Notes == nil || !strings.Contains(*outcome.QueueEntry.Notes, "fuzzy match") {
		t.Fatalf("expected fuzzy substitution noted, got %v", outcome.QueueEntry.Notes)
	}

	var reloaded models.InventoryItem
	if err := conn.First(&reloaded, "id = ?", item.ID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if !reloaded.QuantityOnHand.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("expected substitute stock debited, got %s", reloaded.QuantityOnHand)
	}
}

func TestRunPassSchedulesAllEligible(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	sched := newTestScheduler(t, conn, func() time.Time { return thursday })

	ready := seedEligibleProject(t, conn)
	notPaid := seedEligibleProject(t, conn)
	if err := conn.Model(&models.Project{}).Where("id = ?", notPaid.ID).
		Update("pop_received", false).Error; err != nil {
		t.Fatalf("update project: %v", err)
	}
	seedSheet(t, conn, "Mild Steel", "3.0", "100")

	summary, err := sched.RunPass(context.Background(), "auto-scheduler")
	if err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if summary.Examined != 1 || summary.Scheduled != 1 || summary.Skipped != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	var entries []models.QueueEntry
	if err := conn.Find(&entries).Error; err != nil {
		t.Fatalf("load entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ProjectID != ready.ID {
		t.Fatalf("expected one entry for the paid project, got %+v", entries)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:scheduling_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		t.Fatalf("migrate scheduling schema: %v", err)
	}
	return conn
}

func newTestScheduler(t *testing.T, conn *gorm.DB, now func() time.Time) Scheduler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	auditor, err := audit.NewService(audit.NewRepository(conn), logg)
	if err != nil {
		t.Fatalf("new auditor: %v", err)
	}

	invRepo := inventory.NewRepository(conn)
	matcher, err := inventory.NewMatcher(invRepo)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	ledger, err := inventory.NewLedger(invRepo)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	queueRepo := queue.NewRepository(conn)
	txRunner := db.NewTxRunner(conn)
	ordering, err := queue.NewOrdering(queueRepo, txRunner, auditor)
	if err != nil {
		t.Fatalf("new ordering: %v", err)
	}
	capacity, err := queue.NewCapacityValidator(queueRepo, queue.DefaultMaxHoursPerDay, queue.DefaultCapacityWarnRatio)
	if err != nil {
		t.Fatalf("new capacity validator: %v", err)
	}

	sched, err := NewScheduler(Deps{
		ProjectRepo: projects.NewRepository(conn),
		QueueRepo:   queueRepo,
		Matcher:     matcher,
		Ledger:      ledger,
		Ordering:    ordering,
		Capacity:    capacity,
		Auditor:     auditor,
		TxRunner:    txRunner,
		Logger:      logg,
		ToleranceMM: inventory.DefaultToleranceMM,
		Now:         now,
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return sched
}

// seedEligibleProject matches the end-to-end fixture: paid on 2025-01-01,
// 10 sheets of 3.0mm mild steel, one hour of cutting.
func seedEligibleProject(t *testing.T, conn *gorm.DB) models.Project {
	t.Helper()
	materialType := "Mild Steel"
	thickness := decimal.RequireFromString("3.0")
	materialQty := 10
	partsQty := 40
	cutTime := 60
	received := date(2025, 1, 1)
	deadline := date(2025, 1, 4)

	project := models.Project{
		ID:                   uuid.New(),
		ClientName:           "Steelworks Ltd",
		Status:               enums.ProjectStatusApprovedPOP,
		MaterialType:         &materialType,
		MaterialThicknessMM:  &thickness,
		MaterialQuantity:     &materialQty,
		PartsQuantity:        &partsQty,
		EstimatedCutTimeMins: &cutTime,
		POPReceived:          true,
		POPReceivedDate:      &received,
		POPDeadline:          &deadline,
	}
	if err := conn.Create(&project).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return project
}

func seedSheet(t *testing.T, conn *gorm.DB, materialType, thickness, qty string) models.InventoryItem {
	t.Helper()
	th := decimal.RequireFromString(thickness)
	item := models.InventoryItem{
		ID:             uuid.New(),
		Category:       enums.InventoryCategorySheetMetal,
		Name:           materialType + " " + thickness + "mm",
		MaterialType:   &materialType,
		ThicknessMM:    &th,
		Unit:           "sheet",
		QuantityOnHand: decimal.RequireFromString(qty),
	}
	if err := conn.Create(&item).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return item
}
