package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
)

// ReferenceTypeQueueEntry tags movements caused by queue scheduling, so a
// cancelled entry can locate and return exactly what it reserved.
const ReferenceTypeQueueEntry = "QUEUE_ENTRY"

// MovementInput carries the data a stock movement requires.
type MovementInput struct {
	ItemID        uuid.UUID
	Quantity      decimal.Decimal
	ReferenceType string
	ReferenceID   *uuid.UUID
	Actor         string
	Notes         *string
}

// Ledger debits and credits stock, appending exactly one transaction row per
// movement. Both methods accept the caller's transaction so a reservation can
// commit or roll back together with the queue entry it backs.
type Ledger interface {
	Reserve(ctx context.Context, tx *gorm.DB, input MovementInput) (bool, error)
	Release(ctx context.Context, tx *gorm.DB, input MovementInput) error
}

type ledger struct {
	repo Repository
}

// NewLedger wires a reservation ledger with the provided repository.
func NewLedger(repo Repository) (Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &ledger{repo: repo}, nil
}

// Reserve debits the item when enough stock remains. A false return means the
// reservation lost to insufficient stock and nothing was written.
func (l *ledger) Reserve(ctx context.Context, tx *gorm.DB, input MovementInput) (bool, error) {
	if err := validateMovement(input); err != nil {
		return false, err
	}
	repo := l.repo.WithTx(tx)

	debited, err := repo.DebitQuantity(ctx, input.ItemID, input.Quantity)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit inventory quantity")
	}
	if !debited {
		return false, nil
	}

	txn := movementTransaction(input, enums.InventoryTransactionTypeUsage, input.Quantity.Neg())
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append usage transaction")
	}
	return true, nil
}

// Release credits the item back. It always succeeds barring storage failure.
func (l *ledger) Release(ctx context.Context, tx *gorm.DB, input MovementInput) error {
	if err := validateMovement(input); err != nil {
		return err
	}
	repo := l.repo.WithTx(tx)

	if err := repo.CreditQuantity(ctx, input.ItemID, input.Quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit inventory quantity")
	}

	txn := movementTransaction(input, enums.InventoryTransactionTypeReturn, input.Quantity)
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append return transaction")
	}
	return nil
}

func validateMovement(input MovementInput) error {
	if input.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if !input.Quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.Actor == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}
	return nil
}

func movementTransaction(input MovementInput, txnType enums.InventoryTransactionType, delta decimal.Decimal) *models.InventoryTransaction {
	var refType *string
	if input.ReferenceType != "" {
		refType = &input.ReferenceType
	}
	return &models.InventoryTransaction{
		ID:            uuid.New(),
		ItemID:        input.ItemID,
		QuantityDelta: delta,
		Type:          txnType,
		ReferenceType: refType,
		ReferenceID:   input.ReferenceID,
		Actor:         input.Actor,
		Notes:         input.Notes,
	}
}
