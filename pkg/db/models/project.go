package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabtrack/fabtrack-backend/pkg/enums"
)

// Project is a customer production order moving through quoting, approval,
// cutting and completion. Material fields stay nil until the quote is
// finalized, which is why they are pointers.
type Project struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ClientName  string              `gorm:"column:client_name;not null"`
	ClientRef   *string             `gorm:"column:client_ref"`
	Status      enums.ProjectStatus `gorm:"column:status;not null;default:request"`
	Description *string             `gorm:"column:description"`

	MaterialType         *string          `gorm:"column:material_type"`
	MaterialThicknessMM  *decimal.Decimal `gorm:"column:material_thickness_mm;type:decimal(6,2)"`
	MaterialQuantity     *int             `gorm:"column:material_quantity"`
	PartsQuantity        *int             `gorm:"column:parts_quantity"`
	EstimatedCutTimeMins *int             `gorm:"column:estimated_cut_time_mins"`

	POPReceived     bool       `gorm:"column:pop_received;not null;default:false"`
	POPReceivedDate *time.Time `gorm:"column:pop_received_date"`
	POPDeadline     *time.Time `gorm:"column:pop_deadline"`

	ScheduledCutDate *time.Time `gorm:"column:scheduled_cut_date"`
	CompletionDate   *time.Time `gorm:"column:completion_date"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
