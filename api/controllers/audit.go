package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fabtrack/fabtrack-backend/api/responses"
	"github.com/fabtrack/fabtrack-backend/api/validators"
	auditsvc "github.com/fabtrack/fabtrack-backend/internal/audit"
	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
)

var auditEntityTypes = map[string]struct{}{
	auditsvc.EntityProject:    {},
	auditsvc.EntityQueueEntry: {},
	auditsvc.EntityInventory:  {},
}

// AuditTrail lists every recorded action against one entity, oldest first.
func AuditTrail(svc auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityType := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "entityType")))
		if _, ok := auditEntityTypes[entityType]; !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown entity type").
					WithDetails(map[string]any{"entity_type": entityType}))
			return
		}

		entityID, err := validators.ParseUUIDParam(r, "entityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logs, err := svc.ListByEntity(r.Context(), entityType, entityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logs == nil {
			logs = []models.AuditLog{}
		}
		responses.WriteSuccess(w, logs)
	}
}
