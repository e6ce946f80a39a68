package controllers

import (
	"net/http"

	"github.com/mediadesk/mediadesk-backend/api/responses"
	"github.com/mediadesk/mediadesk-backend/internal/cron"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
)

// RetentionSweep triggers the settled-reservation purge on demand. With
// ?dryRun=true it only reports what the scheduled job would remove.
func RetentionSweep(sweeper *cron.RetentionSweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dryRun, err := parseBoolQuery(r, "dryRun")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := sweeper.Sweep(r.Context(), dryRun != nil && *dryRun)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retention sweep"))
			return
		}
		responses.WriteSuccess(w, result)
	}
}
