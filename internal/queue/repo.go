package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
)

// Repository manages persistence for queue entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.QueueEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.QueueEntry, error)
	Save(ctx context.Context, entry *models.QueueEntry) error
	FindActiveByProject(ctx context.Context, projectID uuid.UUID) (*models.QueueEntry, error)
	ListActive(ctx context.Context) ([]models.QueueEntry, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.QueueEntry, error)
	CountActive(ctx context.Context) (int64, error)
	SumActiveMinutesOnDate(ctx context.Context, date time.Time) (int, error)
	ShiftActivePositions(ctx context.Context, offset int) error
	UpdatePosition(ctx context.Context, id uuid.UUID, position int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a queue repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.QueueEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) Save(ctx context.Context, entry *models.QueueEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// FindActiveByProject returns the project's queued or in-progress entry, or
// nil when the project holds no slot.
func (r *repository) FindActiveByProject(ctx context.Context, projectID uuid.UUID) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Where("status IN ?", activeStatuses()).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := r.db.WithContext(ctx).
		Where("status IN ?", activeStatuses()).
		Order("position ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.QueueEntry{}).
		Where("status IN ?", activeStatuses()).
		Count(&count).Error
	return count, err
}

func (r *repository) SumActiveMinutesOnDate(ctx context.Context, date time.Time) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.QueueEntry{}).
		Select("COALESCE(SUM(estimated_cut_time_mins), 0)").
		Where("status IN ?", activeStatuses()).
		Where("scheduled_date = ?", date).
		Scan(&total).Error
	return total, err
}

// ShiftActivePositions moves every active entry by offset in one statement.
// Renumbering runs in two phases (shift out of range, then assign finals) so
// the partial unique index on active positions never sees a duplicate.
func (r *repository) ShiftActivePositions(ctx context.Context, offset int) error {
	return r.db.WithContext(ctx).
		Model(&models.QueueEntry{}).
		Where("status IN ?", activeStatuses()).
		UpdateColumn("position", gorm.Expr("position + ?", offset)).Error
}

func (r *repository) UpdatePosition(ctx context.Context, id uuid.UUID, position int) error {
	return r.db.WithContext(ctx).
		Model(&models.QueueEntry{}).
		Where("id = ?", id).
		UpdateColumn("position", position).Error
}

func activeStatuses() []enums.QueueEntryStatus {
	return []enums.QueueEntryStatus{
		enums.QueueEntryStatusQueued,
		enums.QueueEntryStatusInProgress,
	}
}
