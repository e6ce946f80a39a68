package webhooks

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mediadesk/mediadesk-backend/api/responses"
	"github.com/mediadesk/mediadesk-backend/api/validators"
	"github.com/mediadesk/mediadesk-backend/internal/messages"
	"github.com/mediadesk/mediadesk-backend/pkg/config"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
)

const webhookTokenHeader = "X-Webhook-Token"

type inboundMailRequest struct {
	SenderEmail string `json:"senderEmail" validate:"required,email"`
	BodyText    string `json:"bodyText" validate:"required,max=50000"`
}

// InboundMail takes the mail provider's parsed-reply callback and routes it
// onto the sender's reservation thread. Replies that match nothing are
// acknowledged and dropped so the provider stops retrying.
func InboundMail(svc messages.Service, cfg config.InboundMailConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.WebhookToken == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "inbound mail channel not configured"))
			return
		}
		supplied := strings.TrimSpace(r.Header.Get(webhookTokenHeader))
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(cfg.WebhookToken)) != 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook token"))
			return
		}

		var req inboundMailRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		msg, err := svc.RouteInbound(r.Context(), req.SenderEmail, req.BodyText)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
			"routed": msg != nil,
		})
	}
}
