package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/internal/audit"
	"github.com/fabtrack/fabtrack-backend/pkg/db"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
)

// positionShiftOffset moves active rows far above any real position during a
// renumbering pass, keeping the unique index on active positions satisfied
// between the two update phases.
const positionShiftOffset = 1_000_000

// Ordering maintains the contiguous 1..N position sequence over active
// entries. Positions compact on every removal from the active set, so the
// next position is always count(active) + 1.
type Ordering interface {
	NextPosition(ctx context.Context, tx *gorm.DB) (int, error)
	Reorder(ctx context.Context, orderedIDs []uuid.UUID, actor string) error
	Compact(ctx context.Context, tx *gorm.DB) error
}

type ordering struct {
	repo     Repository
	txRunner db.TxRunner
	auditor  audit.Service
}

// NewOrdering wires the queue ordering service.
func NewOrdering(repo Repository, txRunner db.TxRunner, auditor audit.Service) (Ordering, error) {
	if repo == nil {
		return nil, fmt.Errorf("queue repository required")
	}
	if txRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit service required")
	}
	return &ordering{repo: repo, txRunner: txRunner, auditor: auditor}, nil
}

// NextPosition returns the slot a new active entry should take. Callers must
// hold the same transaction used for the subsequent insert.
func (o *ordering) NextPosition(ctx context.Context, tx *gorm.DB) (int, error) {
	count, err := o.repo.WithTx(tx).CountActive(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active entries")
	}
	return int(count) + 1, nil
}

// Reorder assigns positions 1..N following the supplied order. The id list
// must cover the active set exactly.
func (o *ordering) Reorder(ctx context.Context, orderedIDs []uuid.UUID, actor string) error {
	if len(orderedIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "ordered id list required")
	}
	if actor == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}

	return o.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := o.repo.WithTx(tx)

		active, err := repo.ListActive(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active entries")
		}
		if len(active) != len(orderedIDs) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("expected %d entry ids, got %d", len(active), len(orderedIDs)))
		}

		previousPositions := make(map[uuid.UUID]int, len(active))
		for _, entry := range active {
			previousPositions[entry.ID] = entry.Position
		}
		seen := make(map[uuid.UUID]bool, len(orderedIDs))
		for _, id := range orderedIDs {
			if _, ok := previousPositions[id]; !ok {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("entry %s is not in the active queue", id))
			}
			if seen[id] {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("entry %s listed twice", id))
			}
			seen[id] = true
		}

		if err := repo.ShiftActivePositions(ctx, positionShiftOffset); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shift active positions")
		}
		for i, id := range orderedIDs {
			newPosition := i + 1
			if err := repo.UpdatePosition(ctx, id, newPosition); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign position")
			}
			if previousPositions[id] != newPosition {
				o.auditor.Record(ctx, tx, audit.RecordInput{
					EntityType: audit.EntityQueueEntry,
					EntityID:   id,
					Action:     "reordered",
					Actor:      actor,
					Details: map[string]int{
						"from_position": previousPositions[id],
						"to_position":   newPosition,
					},
				})
			}
		}
		return nil
	})
}

// Compact renumbers the active entries 1..N preserving their current order.
// It runs inside the caller's transaction, right after an entry leaves the
// active set.
func (o *ordering) Compact(ctx context.Context, tx *gorm.DB) error {
	repo := o.repo.WithTx(tx)

	active, err := repo.ListActive(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active entries")
	}

	needsCompaction := false
	for i, entry := range active {
		if entry.Position != i+1 {
			needsCompaction = true
			break
		}
	}
	if !needsCompaction {
		return nil
	}

	if err := repo.ShiftActivePositions(ctx, positionShiftOffset); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shift active positions")
	}
	for i, entry := range active {
		if err := repo.UpdatePosition(ctx, entry.ID, i+1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign position")
		}
	}
	return nil
}
