package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	"github.com/fabtrack/fabtrack-backend/pkg/pagination"
)

func TestDebitQuantityGuardsAgainstOverdraw(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	item := seedSheet(t, db, "Mild Steel", "3.0", "10")

	ok, err := repo.DebitQuantity(context.Background(), item.ID, dec("4"))
	require.NoError(t, err)
	assert.True(t, ok)

	// only 6 left, a 7-sheet debit must not touch the row
	ok, err = repo.DebitQuantity(context.Background(), item.ID, dec("7"))
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := repo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.QuantityOnHand.Equal(dec("6")),
		"expected 6 on hand, got %s", reloaded.QuantityOnHand)
}

func TestListPaginatesByCursor(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	for _, thickness := range []string{"1.0", "2.0", "3.0"} {
		seedSheet(t, db, "Mild Steel", thickness, "5")
	}

	firstPage, err := repo.List(context.Background(), nil, 2)
	require.NoError(t, err)
	require.Len(t, firstPage, 2)

	last := firstPage[len(firstPage)-1]
	secondPage, err := repo.List(context.Background(), &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, secondPage)
	for _, item := range secondPage {
		assert.NotEqual(t, firstPage[0].ID, item.ID)
		assert.NotEqual(t, firstPage[1].ID, item.ID)
	}
}

func TestListLowStockFlagsOnlyItemsAtOrBelowReorderLevel(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	low := seedSheet(t, db, "Mild Steel", "3.0", "2")
	require.NoError(t, db.Model(&models.InventoryItem{}).
		Where("id = ?", low.ID).
		Update("reorder_level", dec("5")).Error)

	healthy := seedSheet(t, db, "Aluminium", "2.0", "50")
	require.NoError(t, db.Model(&models.InventoryItem{}).
		Where("id = ?", healthy.ID).
		Update("reorder_level", dec("5")).Error)

	// reorder_level 0 means the item opted out of low-stock reporting
	seedSheet(t, db, "Stainless Steel", "1.5", "0")

	items, err := repo.ListLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, low.ID, items[0].ID)
}

func TestListTransactionsByReferenceFiltersOnBoth(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	item := seedSheet(t, db, "Mild Steel", "3.0", "10")

	entryID := uuid.New()
	otherID := uuid.New()
	for _, ref := range []uuid.UUID{entryID, otherID} {
		ref := ref
		require.NoError(t, repo.CreateTransaction(context.Background(), &models.InventoryTransaction{
			ID:            uuid.New(),
			ItemID:        item.ID,
			Type:          enums.InventoryTransactionTypeUsage,
			QuantityDelta: dec("-2"),
			ReferenceType: strPtr(ReferenceTypeQueueEntry),
			ReferenceID:   &ref,
			Actor:         "test",
		}))
	}

	txns, err := repo.ListTransactionsByReference(context.Background(), ReferenceTypeQueueEntry, entryID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, entryID, *txns[0].ReferenceID)
}

func strPtr(s string) *string { return &s }
