package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabtrack/fabtrack-backend/pkg/enums"
)

// InventoryTransaction records an immutable stock movement. Rows are
// append-only; nothing in the codebase updates or deletes them.
type InventoryTransaction struct {
	ID            uuid.UUID                      `gorm:"column:id;type:uuid;primaryKey"`
	ItemID        uuid.UUID                      `gorm:"column:item_id;type:uuid;not null;index"`
	QuantityDelta decimal.Decimal                `gorm:"column:quantity_delta;type:decimal(12,4);not null"`
	Type          enums.InventoryTransactionType `gorm:"column:type;not null"`
	ReferenceType *string                        `gorm:"column:reference_type"`
	ReferenceID   *uuid.UUID                     `gorm:"column:reference_id;type:uuid"`
	Actor         string                         `gorm:"column:actor;not null"`
	Notes         *string                        `gorm:"column:notes"`
	CreatedAt     time.Time                      `gorm:"column:created_at;autoCreateTime"`
}
