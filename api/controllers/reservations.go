package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mediadesk/mediadesk-backend/api/responses"
	"github.com/mediadesk/mediadesk-backend/api/validators"
	"github.com/mediadesk/mediadesk-backend/internal/reservations"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
	"github.com/mediadesk/mediadesk-backend/pkg/pagination"
	"github.com/mediadesk/mediadesk-backend/pkg/types"
)

type reservationLineRequest struct {
	ItemID   uuid.UUID `json:"itemId" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1"`
	FromDate time.Time `json:"fromDate" validate:"required"`
	ToDate   time.Time `json:"toDate" validate:"required"`
}

type submitReservationRequest struct {
	RequesterName  string                   `json:"requesterName" validate:"required,max=200"`
	RequesterEmail string                   `json:"requesterEmail" validate:"required,email"`
	RequesterPhone string                   `json:"requesterPhone" validate:"max=40"`
	Purpose        string                   `json:"purpose" validate:"required,max=4000"`
	Lines          []reservationLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type updateStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Message string `json:"message" validate:"max=4000"`
}

type readyForPickupRequest struct {
	PickupDate     string `json:"pickupDate" validate:"required,max=40"`
	PickupTime     string `json:"pickupTime" validate:"required,max=40"`
	PickupLocation string `json:"pickupLocation" validate:"required,max=200"`
}

// ReservationSubmit takes the public reservation form. No auth; the rate
// limiter in front of it is the only gate.
func ReservationSubmit(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitReservationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make(types.ItemLines, 0, len(req.Lines))
		for _, line := range req.Lines {
			lines = append(lines, types.ItemLine{
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
				FromDate: line.FromDate,
				ToDate:   line.ToDate,
			})
		}

		res, err := svc.Submit(r.Context(), reservations.SubmitInput{
			RequesterName:  validators.SanitizeString(req.RequesterName, 200),
			RequesterEmail: validators.SanitizeString(req.RequesterEmail, 320),
			RequesterPhone: validators.SanitizeString(req.RequesterPhone, 40),
			Purpose:        validators.SanitizeString(req.Purpose, 4000),
			Lines:          lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, res)
	}
}

func ReservationList(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := reservations.ListFilters{
			RequesterEmail: validators.SanitizeString(r.URL.Query().Get("requesterEmail"), 320),
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, parseErr := enums.ParseReservationStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if filters.ReadyForPickup, err = parseBoolQuery(r, "readyForPickup"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.PickedUp, err = parseBoolQuery(r, "pickedUp"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ReservationDetail(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

func ReservationUpdateStatus(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseReservationStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid reservation status"))
			return
		}

		res, err := svc.UpdateStatus(r.Context(), actor, reservations.UpdateStatusInput{
			ReservationID: id,
			Status:        status,
			Message:       validators.SanitizeString(req.Message, 4000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

func ReservationReadyForPickup(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req readyForPickupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.SetReadyForPickup(r.Context(), actor, reservations.PickupSchedulingInput{
			ReservationID:  id,
			PickupDate:     validators.SanitizeString(req.PickupDate, 40),
			PickupTime:     validators.SanitizeString(req.PickupTime, 40),
			PickupLocation: validators.SanitizeString(req.PickupLocation, 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

func ReservationPickedUp(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.SetPickedUp(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

func ReservationDelete(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": id})
	}
}

// ReservationMarkViewed moves the staff thread watermark so the triage badge
// stops counting the current replies.
func ReservationMarkViewed(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkThreadViewed(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"viewed": id})
	}
}
