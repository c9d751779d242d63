package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
)

func TestReserveDebitsAndAppendsUsage(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	item := seedSheet(t, db, "Mild Steel", "3.0", "20")
	ledger := newTestLedger(t, db)

	ok, err := ledger.Reserve(context.Background(), nil, MovementInput{
		ItemID:        item.ID,
		Quantity:      dec("10"),
		ReferenceType: "QUEUE_ENTRY",
		Actor:         "scheduler",
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !ok {
		t.Fatal("expected reservation to succeed")
	}

	assertOnHand(t, db, item.ID, "10")

	txns := listTxns(t, db, item.ID)
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}
	if txns[0].Type != enums.InventoryTransactionTypeUsage {
		t.Fatalf("expected usage transaction, got %s", txns[0].Type)
	}
	if !txns[0].QuantityDelta.Equal(dec("-10")) {
		t.Fatalf("expected delta -10, got %s", txns[0].QuantityDelta)
	}
}

func TestReserveInsufficientStockLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	item := seedSheet(t, db, "Mild Steel", "3.0", "5")
	ledger := newTestLedger(t, db)

	ok, err := ledger.Reserve(context.Background(), nil, MovementInput{
		ItemID:   item.ID,
		Quantity: dec("6"),
		Actor:    "scheduler",
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if ok {
		t.Fatal("expected reservation to fail")
	}

	assertOnHand(t, db, item.ID, "5")
	if txns := listTxns(t, db, item.ID); len(txns) != 0 {
		t.Fatalf("expected no transactions, got %d", len(txns))
	}
}

func TestReserveExactRemainderSucceeds(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	item := seedSheet(t, db, "Mild Steel", "3.0", "5")
	ledger := newTestLedger(t, db)

	ok, err := ledger.Reserve(context.Background(), nil, MovementInput{
		ItemID:   item.ID,
		Quantity: dec("5"),
		Actor:    "scheduler",
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !ok {
		t.Fatal("expected reservation of the full remainder to succeed")
	}
	assertOnHand(t, db, item.ID, "0")
}

func TestReleaseCreditsAndAppendsReturn(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	item := seedSheet(t, db, "Mild Steel", "3.0", "2")
	ledger := newTestLedger(t, db)

	if err := ledger.Release(context.Background(), nil, MovementInput{
		ItemID:        item.ID,
		Quantity:      dec("8"),
		ReferenceType: "QUEUE_ENTRY",
		Actor:         "scheduler",
	}); err != nil {
		t.Fatalf("release: %v", err)
	}

	assertOnHand(t, db, item.ID, "10")

	txns := listTxns(t, db, item.ID)
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}
	if txns[0].Type != enums.InventoryTransactionTypeReturn {
		t.Fatalf("expected return transaction, got %s", txns[0].Type)
	}
	if !txns[0].QuantityDelta.Equal(dec("8")) {
		t.Fatalf("expected delta 8, got %s", txns[0].QuantityDelta)
	}
}

func TestLedgerBalanceMatchesTransactionDeltas(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	item := seedSheet(t, db, "Mild Steel", "3.0", "50")
	ledger := newTestLedger(t, db)
	ctx := context.Background()

	moves := []struct {
		reserve bool
		qty     string
	}{
		{true, "10"},
		{true, "15"},
		{false, "5"},
		{true, "40"}, // rejected: only 30 remain
		{true, "30"},
		{false, "12"},
	}
	for _, move := range moves {
		input := MovementInput{ItemID: item.ID, Quantity: dec(move.qty), Actor: "test"}
		if move.reserve {
			if _, err := ledger.Reserve(ctx, nil, input); err != nil {
				t.Fatalf("reserve %s: %v", move.qty, err)
			}
		} else {
			if err := ledger.Release(ctx, nil, input); err != nil {
				t.Fatalf("release %s: %v", move.qty, err)
			}
		}
	}

	var current models.InventoryItem
	if err := db.First(&current, "id = ?", item.ID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if current.QuantityOnHand.IsNegative() {
		t.Fatalf("quantity went negative: %s", current.QuantityOnHand)
	}

	sum := decimal.Zero
	for _, txn := range listTxns(t, db, item.ID) {
		sum = sum.Add(txn.QuantityDelta)
	}
	if !dec("50").Add(sum).Equal(current.QuantityOnHand) {
		t.Fatalf("ledger out of balance: initial 50 + deltas %s != on hand %s", sum, current.QuantityOnHand)
	}
}

func TestReserveRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ledger := newTestLedger(t, db)

	_, err := ledger.Reserve(context.Background(), nil, MovementInput{
		ItemID:   uuid.New(),
		Quantity: decimal.Zero,
		Actor:    "test",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = ledger.Reserve(context.Background(), nil, MovementInput{
		ItemID:   uuid.Nil,
		Quantity: dec("1"),
		Actor:    "test",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for nil id, got %v", err)
	}
}

func newTestLedger(t *testing.T, db *gorm.DB) Ledger {
	t.Helper()
	ledger, err := NewLedger(NewRepository(db))
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return ledger
}

func assertOnHand(t *testing.T, db *gorm.DB, itemID uuid.UUID, want string) {
	t.Helper()
	var item models.InventoryItem
	if err := db.First(&item, "id = ?", itemID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if !item.QuantityOnHand.Equal(dec(want)) {
		t.Fatalf("expected %s on hand, got %s", want, item.QuantityOnHand)
	}
}

func listTxns(t *testing.T, db *gorm.DB, itemID uuid.UUID) []models.InventoryTransaction {
	t.Helper()
	var txns []models.InventoryTransaction
	if err := db.Where("item_id = ?", itemID).Order("created_at ASC").Find(&txns).Error; err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	return txns
}
