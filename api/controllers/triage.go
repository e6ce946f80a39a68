package controllers

import (
	"net/http"

	"github.com/mediadesk/mediadesk-backend/api/responses"
	"github.com/mediadesk/mediadesk-backend/internal/triage"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
)

// TriageCounts serves the staff dashboard badges.
func TriageCounts(svc triage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := svc.Counts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, counts)
	}
}
