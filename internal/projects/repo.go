package projects

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	"github.com/fabtrack/fabtrack-backend/pkg/pagination"
)

// Repository manages persistence for projects.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	Save(ctx context.Context, project *models.Project) error
	List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Project, error)
	ListOverdue(ctx context.Context, today time.Time) ([]models.Project, error)
	ListUpcoming(ctx context.Context, from, until time.Time) ([]models.Project, error)
	ListSchedulable(ctx context.Context) ([]models.Project, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a project repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *repository) Save(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

func (r *repository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Project, error) {
	var projects []models.Project
	query := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if err := pagination.Apply(query, cursor).Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// ListOverdue returns non-terminal projects whose payment deadline has
// passed, most overdue first.
func (r *repository) ListOverdue(ctx context.Context, today time.Time) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Where("pop_received = ?", true).
		Where("pop_deadline < ?", today).
		Where("status NOT IN ?", terminalStatuses()).
		Order("pop_deadline ASC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// ListUpcoming returns non-terminal projects whose payment deadline falls in
// [from, until], soonest first.
func (r *repository) ListUpcoming(ctx context.Context, from, until time.Time) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Where("pop_received = ?", true).
		Where("pop_deadline BETWEEN ? AND ?", from, until).
		Where("status NOT IN ?", terminalStatuses()).
		Order("pop_deadline ASC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// ListSchedulable returns paid projects that have not yet entered the queue.
func (r *repository) ListSchedulable(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Where("pop_received = ?", true).
		Where("status NOT IN ?", []enums.ProjectStatus{
			enums.ProjectStatusQueued,
			enums.ProjectStatusInProgress,
			enums.ProjectStatusCompleted,
			enums.ProjectStatusCancelled,
		}).
		Order("pop_received_date ASC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func terminalStatuses() []enums.ProjectStatus {
	return []enums.ProjectStatus{
		enums.ProjectStatusCompleted,
		enums.ProjectStatusCancelled,
	}
}
