package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fabtrack/fabtrack-backend/api/responses"
	"github.com/fabtrack/fabtrack-backend/api/validators"
	queuesvc "github.com/fabtrack/fabtrack-backend/internal/queue"
	"github.com/fabtrack/fabtrack-backend/pkg/db/models"
	"github.com/fabtrack/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
)

// QueueList returns the active queue in position order.
func QueueList(svc queuesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if entries == nil {
			entries = []models.QueueEntry{}
		}
		responses.WriteSuccess(w, entries)
	}
}

// QueueEnqueue places a project on the queue manually, bypassing the
// eligibility checklist but not the capacity check.
func QueueEnqueue(svc queuesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload enqueueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projectID, err := uuid.Parse(payload.ProjectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid project id"))
			return
		}

		scheduledDate, err := time.Parse("2006-01-02", payload.ScheduledDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "scheduled_date must be a date (YYYY-MM-DD)"))
			return
		}

		priority := enums.QueuePriorityNormal
		if payload.Priority != nil {
			parsed, err := enums.ParseQueuePriority(strings.TrimSpace(*payload.Priority))
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority"))
				return
			}
			priority = parsed
		}

		entry, err := svc.Enqueue(r.Context(), queuesvc.EnqueueInput{
			ProjectID:            projectID,
			ScheduledDate:        scheduledDate,
			Priority:             priority,
			EstimatedCutTimeMins: payload.EstimatedCutTimeMins,
			Notes:                payload.Notes,
			Actor:                actorFrom(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

func QueueEntryDetail(svc queuesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entry)
	}
}

// QueueUpdateStatus transitions a queue entry and mirrors the change onto its
// project.
func QueueUpdateStatus(svc queuesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseQueueEntryStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		entry, err := svc.UpdateStatus(r.Context(), id, status, actorFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entry)
	}
}

// QueueReorder rewrites the active queue into the submitted order. The list
// must cover every active entry exactly once.
func QueueReorder(svc queuesvc.Service, ordering queuesvc.Ordering, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload reorderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderedIDs := make([]uuid.UUID, 0, len(payload.EntryIDs))
		for _, raw := range payload.EntryIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entry id").WithDetails(map[string]any{"entry_id": raw}))
				return
			}
			orderedIDs = append(orderedIDs, id)
		}

		if err := ordering.Reorder(r.Context(), orderedIDs, actorFrom(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if entries == nil {
			entries = []models.QueueEntry{}
		}
		responses.WriteSuccess(w, entries)
	}
}

// QueueCapacity reports whether a hypothetical job of the given length fits
// on the given day.
func QueueCapacity(capacity queuesvc.CapacityValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := validators.ParseQueryDate(r, "date", time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		minutes, err := validators.ParseQueryInt(r, "minutes", 0, 0, 24*60)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := capacity.Validate(r.Context(), date, minutes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type enqueueRequest struct {
	ProjectID            string  `json:"project_id" validate:"required"`
	ScheduledDate        string  `json:"scheduled_date" validate:"required"`
	Priority             *string `json:"priority,omitempty"`
	EstimatedCutTimeMins *int    `json:"estimated_cut_time_mins,omitempty" validate:"omitempty,min=1"`
	Notes                *string `json:"notes,omitempty"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type reorderRequest struct {
	EntryIDs []string `json:"entry_ids" validate:"required,min=1,dive,required"`
}
