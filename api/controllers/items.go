package controllers

import (
	"net/http"

	"github.com/mediadesk/mediadesk-backend/api/responses"
	"github.com/mediadesk/mediadesk-backend/api/validators"
	"github.com/mediadesk/mediadesk-backend/internal/inventory"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
)

type createItemRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	Description     string `json:"description" validate:"max=4000"`
	Quantity        int    `json:"quantity" validate:"min=0"`
	CheckoutEnabled *bool  `json:"checkoutEnabled"`
}

type updateItemRequest struct {
	Name            *string `json:"name" validate:"omitempty,max=200"`
	Description     *string `json:"description" validate:"omitempty,max=4000"`
	Quantity        *int    `json:"quantity" validate:"omitempty,min=0"`
	CheckoutEnabled *bool   `json:"checkoutEnabled"`
}

func ItemCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.CreateItem(r.Context(), inventory.CreateItemInput{
			Name:            validators.SanitizeString(req.Name, 200),
			Description:     validators.SanitizeString(req.Description, 4000),
			Quantity:        req.Quantity,
			CheckoutEnabled: req.CheckoutEnabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func ItemUpdate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.UpdateItem(r.Context(), id, inventory.UpdateItemInput{
			Name:            req.Name,
			Description:     req.Description,
			Quantity:        req.Quantity,
			CheckoutEnabled: req.CheckoutEnabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ItemDelete(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteItem(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": id})
	}
}

func ItemGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.GetItem(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ItemList serves the public catalog browse with live availability.
func ItemList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListItems(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
