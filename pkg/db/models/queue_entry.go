package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fabtrack/fabtrack-backend/pkg/enums"
)

// QueueEntry is a scheduled slot in the physical cutting queue. Active
// entries (queued/in_progress) hold contiguous positions starting at 1.
type QueueEntry struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID uuid.UUID              `gorm:"column:project_id;type:uuid;not null;index"`
	Position  int                    `gorm:"column:position;not null"`
	Status    enums.QueueEntryStatus `gorm:"column:status;not null;default:queued"`
	Priority  enums.QueuePriority    `gorm:"column:priority;not null;default:normal"`

	ScheduledDate        time.Time `gorm:"column:scheduled_date;not null"`
	EstimatedCutTimeMins int       `gorm:"column:estimated_cut_time_mins;not null"`

	StartedAt   *time.Time `gorm:"column:started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	Notes       *string    `gorm:"column:notes"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Project *Project `gorm:"foreignKey:ProjectID"`
}
