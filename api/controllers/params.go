package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mediadesk/mediadesk-backend/api/middleware"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	"github.com/mediadesk/mediadesk-backend/internal/reservations"
)

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing path parameter").WithDetails(map[string]any{"field": name})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

func parseBoolQuery(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	switch strings.ToLower(raw) {
	case "true", "1":
		v := true
		return &v, nil
	case "false", "0":
		v := false
		return &v, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be boolean").WithDetails(map[string]any{"field": name})
}

// staffActor rebuilds the acting staff identity the auth middleware parked in
// the context.
func staffActor(r *http.Request) (reservations.StaffActor, error) {
	ctx := r.Context()
	rawID := middleware.StaffIDFromContext(ctx)
	if rawID == "" {
		return reservations.StaffActor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return reservations.StaffActor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	role, err := enums.ParseStaffRole(middleware.RoleFromContext(ctx))
	if err != nil {
		return reservations.StaffActor{}, pkgerrors.New(pkgerrors.CodeForbidden, "unknown staff role")
	}
	return reservations.StaffActor{
		ID:    id,
		Name:  middleware.StaffNameFromContext(ctx),
		Email: middleware.StaffEmailFromContext(ctx),
		Role:  role,
	}, nil
}
