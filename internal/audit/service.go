package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
)

// Entity type labels used across the audit trail.
const (
	EntityProject    = "PROJECT"
	EntityQueueEntry = "QUEUE_ENTRY"
	EntityInventory  = "INVENTORY_ITEM"
)

// Service records audit entries. Recording is best-effort: a failed write is
// logged as a warning and never fails the caller's primary operation.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput)
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditLog, error)
}

// RecordInput captures one audited action.
type RecordInput struct {
	EntityType string
	EntityID   uuid.UUID
	Action     string
	Actor      string
	Details    any
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires an audit service with the provided repository and logger.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) {
	record := &models.AuditLog{
		ID:         uuid.New(),
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		Action:     input.Action,
		Actor:      input.Actor,
	}
	if input.Details != nil {
		payload, err := json.Marshal(input.Details)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "action", input.Action), "audit details not serializable; recording without details")
		} else {
			record.Details = payload
		}
	}

	if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"entity_type": input.EntityType,
			"entity_id":   input.EntityID.String(),
			"action":      input.Action,
		})
		s.logg.Warn(logCtx, "audit record write failed: "+err.Error())
	}
}

func (s *service) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditLog, error) {
	return s.repo.ListByEntity(ctx, entityType, entityID)
}
