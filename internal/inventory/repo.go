package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	"github.com/fabtrack/fabtrack-backend/pkg/pagination"
)

// Repository manages persistence for inventory items and their transaction ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	FindSheetMetalExact(ctx context.Context, materialType string, thickness decimal.Decimal) ([]models.InventoryItem, error)
	FindSheetMetalWithinRange(ctx context.Context, materialType string, lower, upper decimal.Decimal) ([]models.InventoryItem, error)
	DebitQuantity(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal) (bool, error)
	CreditQuantity(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal) error
	CreateTransaction(ctx context.Context, txn *models.InventoryTransaction) error
	ListTransactionsByItem(ctx context.Context, itemID uuid.UUID) ([]models.InventoryTransaction, error)
	ListTransactionsByReference(ctx context.Context, referenceType string, referenceID uuid.UUID) ([]models.InventoryTransaction, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.InventoryItem, error)
	ListLowStock(ctx context.Context) ([]models.InventoryItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindSheetMetalExact(ctx context.Context, materialType string, thickness decimal.Decimal) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("category = ?", enums.InventoryCategorySheetMetal).
		Where("material_type = ?", materialType).
		Where("thickness_mm = ?", thickness).
		Order("quantity_on_hand DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindSheetMetalWithinRange(ctx context.Context, materialType string, lower, upper decimal.Decimal) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("category = ?", enums.InventoryCategorySheetMetal).
		Where("material_type = ?", materialType).
		Where("thickness_mm BETWEEN ? AND ?", lower, upper).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DebitQuantity decrements quantity_on_hand only when enough stock remains.
// The availability check and the decrement ride in a single guarded UPDATE so
// concurrent reservations can never drive the quantity negative.
func (r *repository) DebitQuantity(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND quantity_on_hand >= ?", itemID, qty).
		UpdateColumn("quantity_on_hand", gorm.Expr("quantity_on_hand - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreditQuantity(ctx context.Context, itemID uuid.UUID, qty decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", itemID).
		UpdateColumn("quantity_on_hand", gorm.Expr("quantity_on_hand + ?", qty)).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactionsByItem(ctx context.Context, itemID uuid.UUID) ([]models.InventoryTransaction, error) {
	var txns []models.InventoryTransaction
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at ASC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ListTransactionsByReference(ctx context.Context, referenceType string, referenceID uuid.UUID) ([]models.InventoryTransaction, error) {
	var txns []models.InventoryTransaction
	err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceID).
		Order("created_at ASC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	query := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	err := pagination.Apply(query, cursor).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListLowStock(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("reorder_level > 0 AND quantity_on_hand <= reorder_level").
		Order("quantity_on_hand ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
