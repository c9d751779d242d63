package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabtrack/fabtrack-backend/pkg/enums"
)

// InventoryItem tracks a stock line. QuantityOnHand never goes negative;
// every change to it is mirrored by exactly one InventoryTransaction row.
type InventoryItem struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Category     enums.InventoryCategory `gorm:"column:category;not null"`
	Name         string                  `gorm:"column:name;not null"`
	MaterialType *string                 `gorm:"column:material_type;index"`
	ThicknessMM  *decimal.Decimal        `gorm:"column:thickness_mm;type:decimal(6,2)"`
	Unit         string                  `gorm:"column:unit;not null;default:sheet"`

	QuantityOnHand  decimal.Decimal `gorm:"column:quantity_on_hand;type:decimal(12,4);not null;default:0"`
	ReorderLevel    decimal.Decimal `gorm:"column:reorder_level;type:decimal(12,4);not null;default:0"`
	ReorderQuantity decimal.Decimal `gorm:"column:reorder_quantity;type:decimal(12,4);not null;default:0"`
	UnitCost        decimal.Decimal `gorm:"column:unit_cost;type:decimal(12,4);not null;default:0"`

	SupplierName    *string `gorm:"column:supplier_name"`
	SupplierContact *string `gorm:"column:supplier_contact"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
