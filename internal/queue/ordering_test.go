package queue

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
)

func TestNextPositionFollowsActiveCount(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ordering := newTestOrdering(t, conn)
	ctx := context.Background()

	position, err := ordering.NextPosition(ctx, nil)
	if err != nil {
		t.Fatalf("next position: %v", err)
	}
	if position != 1 {
		t.Fatalf("expected position 1 on empty queue, got %d", position)
	}

	projectA := seedProject(t, conn, nil)
	projectB := seedProject(t, conn, nil)
	seedEntry(t, conn, projectA.ID, 1, enums.QueueEntryStatusQueued)
	seedEntry(t, conn, projectB.ID, 2, enums.QueueEntryStatusInProgress)

	position, err = ordering.NextPosition(ctx, nil)
	if err != nil {
		t.Fatalf("next position: %v", err)
	}
	if position != 3 {
		t.Fatalf("expected position 3, got %d", position)
	}
}

func TestNextPositionIgnoresTerminalEntries(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ordering := newTestOrdering(t, conn)

	project := seedProject(t, conn, nil)
	seedEntry(t, conn, project.ID, 1, enums.QueueEntryStatusCompleted)
	seedEntry(t, conn, project.ID, 2, enums.QueueEntryStatusCancelled)

	position, err := ordering.NextPosition(context.Background(), nil)
	if err != nil {
		t.Fatalf("next position: %v", err)
	}
	if position != 1 {
		t.Fatalf("expected terminal entries to free their positions, got %d", position)
	}
}

func TestReorderAssignsRequestedSequence(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ordering := newTestOrdering(t, conn)

	first := seedEntry(t, conn, seedProject(t, conn, nil).ID, 1, enums.QueueEntryStatusQueued)
	second := seedEntry(t, conn, seedProject(t, conn, nil).ID, 2, enums.QueueEntryStatusQueued)
	third := seedEntry(t, conn, seedProject(t, conn, nil).ID, 3, enums.QueueEntryStatusQueued)

	err := ordering.Reorder(context.Background(), []uuid.UUID{third.ID, first.ID, second.ID}, "supervisor")
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}

	entries, err := NewRepository(conn).ListActive(context.Background())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	wantOrder := []uuid.UUID{third.ID, first.ID, second.ID}
	for i, entry := range entries {
		if entry.ID != wantOrder[i] {
			t.Fatalf("position %d: expected %s, got %s", i+1, wantOrder[i], entry.ID)
		}
		if entry.Position != i+1 {
			t.Fatalf("expected contiguous positions, got %d at index %d", entry.Position, i)
		}
	}
}

func TestReorderRejectsPartialIDList(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ordering := newTestOrdering(t, conn)

	first := seedEntry(t, conn, seedProject(t, conn, nil).ID, 1, enums.QueueEntryStatusQueued)
	seedEntry(t, conn, seedProject(t, conn, nil).ID, 2, enums.QueueEntryStatusQueued)

	err := ordering.Reorder(context.Background(), []uuid.UUID{first.ID}, "supervisor")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for partial list, got %v", err)
	}
}

func TestReorderRejectsUnknownEntry(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ordering := newTestOrdering(t, conn)

	first := seedEntry(t, conn, seedProject(t, conn, nil).ID, 1, enums.QueueEntryStatusQueued)

	err := ordering.Reorder(context.Background(), []uuid.UUID{uuid.New()}, "supervisor")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown id, got %v", err)
	}

	// The failed reorder must not have shifted anything.
	entries, err := NewRepository(conn).ListActive(context.Background())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != first.ID || entries[0].Position != 1 {
		t.Fatalf("expected untouched queue, got %+v", entries)
	}
}

func TestCompactClosesGaps(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ordering := newTestOrdering(t, conn)

	seedEntry(t, conn, seedProject(t, conn, nil).ID, 2, enums.QueueEntryStatusQueued)
	seedEntry(t, conn, seedProject(t, conn, nil).ID, 5, enums.QueueEntryStatusInProgress)
	seedEntry(t, conn, seedProject(t, conn, nil).ID, 9, enums.QueueEntryStatusQueued)

	if err := ordering.Compact(context.Background(), conn); err != nil {
		t.Fatalf("compact: %v", err)
	}

	positions := activePositions(t, conn)
	for i, position := range positions {
		if position != i+1 {
			t.Fatalf("expected positions 1..N, got %v", positions)
		}
	}
}
