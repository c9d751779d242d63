package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/api/responses"
	"github.com/fabtrack/fabtrack-backend/api/validators"
	"github.com/fabtrack/fabtrack-backend/internal/inventory"
	"github.com/fabtrack/fabtrack-backend/pkg/db"
	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
	"github.com/fabtrack/fabtrack-backend/pkg/pagination"
)

// InventoryMatch runs the sheet matcher for a material requirement without
// moving any stock.
func InventoryMatch(matcher inventory.Matcher, defaultTolerance decimal.Decimal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload matchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		thickness, err := parsePositiveDecimal(payload.ThicknessMM, "thickness_mm")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		required, err := parsePositiveDecimal(payload.RequiredQuantity, "required_quantity")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tolerance := defaultTolerance
		if payload.ToleranceMM != nil {
			tolerance, err = parsePositiveDecimal(*payload.ToleranceMM, "tolerance_mm")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := matcher.FindMatch(r.Context(), payload.MaterialType, thickness, required, tolerance)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// InventoryReserve debits stock against an item, writing the movement and the
// ledger row in one transaction.
func InventoryReserve(ledger inventory.Ledger, txRunner db.TxRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := movementFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = txRunner.WithTx(r.Context(), func(tx *gorm.DB) error {
			ok, err := ledger.Reserve(r.Context(), tx, input)
			if err != nil {
				return err
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock on hand").
					WithDetails(map[string]any{"item_id": input.ItemID, "quantity": input.Quantity})
			}
			return nil
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"reserved": true, "item_id": input.ItemID})
	}
}

// InventoryRelease credits stock back to an item.
func InventoryRelease(ledger inventory.Ledger, txRunner db.TxRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := movementFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = txRunner.WithTx(r.Context(), func(tx *gorm.DB) error {
			return ledger.Release(r.Context(), tx, input)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"released": true, "item_id": input.ItemID})
	}
}

func InventoryList(repo inventory.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}

		limit := pagination.NormalizeLimit(params.Limit)
		items, err := repo.List(r.Context(), cursor, limit+1)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory"))
			return
		}

		nextCursor := ""
		if len(items) > limit {
			items = items[:limit]
			last := items[len(items)-1]
			nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}

		responses.WriteSuccess(w, pageOf(items, nextCursor))
	}
}

func InventoryLowStock(repo inventory.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := repo.ListLowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock"))
			return
		}
		if items == nil {
			items = []models.InventoryItem{}
		}
		responses.WriteSuccess(w, items)
	}
}

// InventoryTransactions lists the movement history of one item, oldest first.
func InventoryTransactions(repo inventory.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := repo.ListTransactionsByItem(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory transactions"))
			return
		}
		if txns == nil {
			txns = []models.InventoryTransaction{}
		}
		responses.WriteSuccess(w, txns)
	}
}

func movementFromRequest(r *http.Request) (inventory.MovementInput, error) {
	itemID, err := validators.ParseUUIDParam(r, "itemId")
	if err != nil {
		return inventory.MovementInput{}, err
	}

	var payload movementRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return inventory.MovementInput{}, err
	}

	quantity, err := parsePositiveDecimal(payload.Quantity, "quantity")
	if err != nil {
		return inventory.MovementInput{}, err
	}

	var referenceID *uuid.UUID
	if payload.ReferenceID != nil {
		parsed, err := uuid.Parse(*payload.ReferenceID)
		if err != nil {
			return inventory.MovementInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reference id")
		}
		referenceID = &parsed
	}

	referenceType := ""
	if payload.ReferenceType != nil {
		referenceType = strings.TrimSpace(*payload.ReferenceType)
	}

	return inventory.MovementInput{
		ItemID:        itemID,
		Quantity:      quantity,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		Actor:         actorFrom(r),
		Notes:         payload.Notes,
	}, nil
}

func parsePositiveDecimal(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decimal value").
			WithDetails(map[string]any{"field": field})
	}
	if !value.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "value must be positive").
			WithDetails(map[string]any{"field": field})
	}
	return value, nil
}

type matchRequest struct {
	MaterialType     string  `json:"material_type" validate:"required"`
	ThicknessMM      string  `json:"thickness_mm" validate:"required"`
	RequiredQuantity string  `json:"required_quantity" validate:"required"`
	ToleranceMM      *string `json:"tolerance_mm,omitempty"`
}

type movementRequest struct {
	Quantity      string  `json:"quantity" validate:"required"`
	ReferenceType *string `json:"reference_type,omitempty"`
	ReferenceID   *string `json:"reference_id,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}
