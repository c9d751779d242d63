package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
)

// Repository manages persistence for audit log records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.AuditLog) error
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditLog, error) {
	var records []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
