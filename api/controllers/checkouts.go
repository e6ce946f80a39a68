package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mediadesk/mediadesk-backend/api/responses"
	"github.com/mediadesk/mediadesk-backend/api/validators"
	"github.com/mediadesk/mediadesk-backend/internal/checkouts"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
)

type checkoutRequest struct {
	ItemID        uuid.UUID  `json:"itemId" validate:"required"`
	Quantity      int        `json:"quantity" validate:"required,min=1"`
	FromDate      time.Time  `json:"fromDate" validate:"required"`
	DueDate       time.Time  `json:"dueDate" validate:"required"`
	ReservationID *uuid.UUID `json:"reservationId"`
	Provenance    string     `json:"provenance" validate:"max=400"`
}

// CheckoutCreate records a walk-up loan: one record per physical unit.
func CheckoutCreate(svc checkouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.Checkout(r.Context(), checkouts.CheckoutInput{
			ItemID:        req.ItemID,
			Quantity:      req.Quantity,
			FromDate:      req.FromDate,
			DueDate:       req.DueDate,
			ReservationID: req.ReservationID,
			Provenance:    validators.SanitizeString(req.Provenance, 400),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"records": records})
	}
}

func CheckoutReturn(svc checkouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Return(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// CheckoutReturnAll closes every active record a reservation still has out.
func CheckoutReturnAll(svc checkouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservationID, err := parseUUIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		returned, err := svc.ReturnAllForReservation(r.Context(), reservationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"returned": returned})
	}
}

func CheckoutListActive(svc checkouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"records": records})
	}
}

func CheckoutListOverdue(svc checkouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.ListOverdue(r.Context(), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"records": records})
	}
}

func CheckoutListByReservation(svc checkouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservationID, err := parseUUIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.ListByReservation(r.Context(), reservationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"records": records})
	}
}
