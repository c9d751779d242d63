package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog captures who did what to which entity. Append-only.
type AuditLog struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	EntityType string          `gorm:"column:entity_type;not null;index:idx_audit_entity"`
	EntityID   uuid.UUID       `gorm:"column:entity_id;type:uuid;not null;index:idx_audit_entity"`
	Action     string          `gorm:"column:action;not null"`
	Actor      string          `gorm:"column:actor;not null"`
	Details    json.RawMessage `gorm:"column:details;type:jsonb"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
