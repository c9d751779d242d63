package cron

import (
	"context"
	"fmt"

	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
)

type lowStockLister interface {
	ListLowStock(ctx context.Context) ([]models.InventoryItem, error)
}

// LowStockJobParams configure the reorder-level report job.
type LowStockJobParams struct {
	Logger    *logger.Logger
	Inventory lowStockLister
}

// NewLowStockJob builds the job that flags items at or below their reorder
// level.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &lowStockJob{logg: params.Logger, inventory: params.Inventory}, nil
}

type lowStockJob struct {
	logg      *logger.Logger
	inventory lowStockLister
}

func (j *lowStockJob) Name() string { return "low-stock-report" }

func (j *lowStockJob) Run(ctx context.Context) error {
	items, err := j.inventory.ListLowStock(ctx)
	if err != nil {
		return fmt.Errorf("low stock report: %w", err)
	}

	for _, item := range items {
		itemCtx := j.logg.WithFields(ctx, map[string]any{
			"item_id":          item.ID.String(),
			"name":             item.Name,
			"quantity_on_hand": item.QuantityOnHand.String(),
			"reorder_level":    item.ReorderLevel.String(),
			"reorder_quantity": item.ReorderQuantity.String(),
		})
		j.logg.Warn(itemCtx, "stock at or below reorder level")
	}

	logCtx := j.logg.WithField(ctx, "low_stock_items", len(items))
	j.logg.Info(logCtx, "low stock report complete")
	return nil
}
