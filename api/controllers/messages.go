package controllers

import (
	"net/http"

	"github.com/mediadesk/mediadesk-backend/api/responses"
	"github.com/mediadesk/mediadesk-backend/api/validators"
	"github.com/mediadesk/mediadesk-backend/internal/messages"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
)

type appendMessageRequest struct {
	Body string `json:"body" validate:"required,max=10000"`
}

// MessageAppend posts a staff reply onto a reservation thread. The requester
// gets a copy by mail.
func MessageAppend(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservationID, err := parseUUIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := staffActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req appendMessageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		msg, err := svc.Append(r.Context(), messages.AppendInput{
			ReservationID: reservationID,
			SenderType:    enums.SenderTypeAdmin,
			SenderName:    actor.Name,
			SenderEmail:   actor.Email,
			Body:          req.Body,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

func MessageThread(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservationID, err := parseUUIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order := messages.ThreadOrderOldestFirst
		switch r.URL.Query().Get("order") {
		case "", string(messages.ThreadOrderOldestFirst):
		case string(messages.ThreadOrderNewestFirst):
			order = messages.ThreadOrderNewestFirst
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid thread order"))
			return
		}

		msgs, err := svc.Thread(r.Context(), reservationID, order)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"messages": msgs})
	}
}
