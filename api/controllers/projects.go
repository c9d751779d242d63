package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fabtrack/fabtrack-backend/api/responses"
	"github.com/fabtrack/fabtrack-backend/api/validators"
	projectsvc "github.com/fabtrack/fabtrack-backend/internal/projects"
	"github.com/fabtrack/fabtrack-backend/internal/scheduling"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
)

// ProjectCreate registers a new customer project in the request stage.
func ProjectCreate(svc projectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProjectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.Create(r.Context(), projectsvc.CreateInput{
			ClientName:  payload.ClientName,
			ClientRef:   payload.ClientRef,
			Description: payload.Description,
			Actor:       actorFrom(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, project)
	}
}

func ProjectList(svc projectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projects, nextCursor, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pageOf(projects, nextCursor))
	}
}

func ProjectDetail(svc projectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, project)
	}
}

// ProjectSetQuote records the agreed material requirements and cut estimate.
func ProjectSetQuote(svc projectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		thickness, err := decimal.NewFromString(strings.TrimSpace(payload.MaterialThicknessMM))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid material thickness"))
			return
		}

		project, err := svc.SetQuote(r.Context(), id, projectsvc.QuoteInput{
			MaterialType:         payload.MaterialType,
			MaterialThicknessMM:  thickness,
			MaterialQuantity:     payload.MaterialQuantity,
			PartsQuantity:        payload.PartsQuantity,
			EstimatedCutTimeMins: payload.EstimatedCutTimeMins,
			Actor:                actorFrom(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, project)
	}
}

// ProjectMarkPOP records a proof of payment and stamps the scheduling deadline.
func ProjectMarkPOP(svc projectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload markPOPRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		receivedDate := time.Now().UTC()
		if payload.ReceivedDate != nil {
			parsed, err := time.Parse("2006-01-02", *payload.ReceivedDate)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "received_date must be a date (YYYY-MM-DD)"))
				return
			}
			receivedDate = parsed
		}

		project, err := svc.MarkPOPReceived(r.Context(), id, receivedDate, actorFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, project)
	}
}

func ProjectCancel(svc projectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.Cancel(r.Context(), id, actorFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, project)
	}
}

// ProjectDeadline reports whether a proposed cut date clears the payment
// deadline, defaulting the proposal to today.
func ProjectDeadline(deadlines projectsvc.DeadlineValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposed, err := validators.ParseQueryDate(r, "date", time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := deadlines.Validate(r.Context(), id, proposed)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func ProjectsOverdue(deadlines projectsvc.DeadlineValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overdue, err := deadlines.ListOverdue(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if overdue == nil {
			overdue = []projectsvc.OverdueProject{}
		}
		responses.WriteSuccess(w, overdue)
	}
}

func ProjectsUpcoming(deadlines projectsvc.DeadlineValidator, defaultWindowDays int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := validators.ParseQueryInt(r, "days", defaultWindowDays, 1, 90)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		upcoming, err := deadlines.ListUpcoming(r.Context(), days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if upcoming == nil {
			upcoming = []projectsvc.UpcomingProject{}
		}
		responses.WriteSuccess(w, upcoming)
	}
}

// ProjectEligibility runs the scheduling checklist without touching the queue.
func ProjectEligibility(scheduler scheduling.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := scheduler.CheckEligibility(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ProjectSchedule attempts to place the project on the queue. A project that
// fails its checks still gets a 200 with the outcome explaining why.
func ProjectSchedule(scheduler scheduling.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := scheduler.TryAutoSchedule(r.Context(), id, actorFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, outcome)
	}
}

type createProjectRequest struct {
	ClientName  string  `json:"client_name" validate:"required"`
	ClientRef   *string `json:"client_ref,omitempty"`
	Description *string `json:"description,omitempty"`
}

type quoteRequest struct {
	MaterialType         string `json:"material_type" validate:"required"`
	MaterialThicknessMM  string `json:"material_thickness_mm" validate:"required"`
	MaterialQuantity     int    `json:"material_quantity" validate:"required,min=1"`
	PartsQuantity        int    `json:"parts_quantity" validate:"required,min=1"`
	EstimatedCutTimeMins int    `json:"estimated_cut_time_mins" validate:"required,min=1"`
}

type markPOPRequest struct {
	ReceivedDate *string `json:"received_date,omitempty"`
}
