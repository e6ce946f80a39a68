package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mediadesk/mediadesk-backend/api/controllers"
	webhookcontrollers "github.com/mediadesk/mediadesk-backend/api/controllers/webhooks"
	"github.com/mediadesk/mediadesk-backend/api/middleware"
	"github.com/mediadesk/mediadesk-backend/internal/checkouts"
	"github.com/mediadesk/mediadesk-backend/internal/cron"
	"github.com/mediadesk/mediadesk-backend/internal/inventory"
	"github.com/mediadesk/mediadesk-backend/internal/messages"
	"github.com/mediadesk/mediadesk-backend/internal/reservations"
	"github.com/mediadesk/mediadesk-backend/internal/triage"
	"github.com/mediadesk/mediadesk-backend/pkg/config"
	"github.com/mediadesk/mediadesk-backend/pkg/db"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
	"github.com/mediadesk/mediadesk-backend/pkg/redis"
)

// RouterParams groups everything the HTTP surface needs. RedisClient may be
// nil; rate limiting and idempotency replay simply switch off.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DBPinger    db.Pinger
	RedisClient *redis.Client

	Inventory    inventory.Service
	Reservations reservations.Service
	Checkouts    checkouts.Service
	Messages     messages.Service
	Triage       triage.Service
	Retention    *cron.RetentionSweeper
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	guarded := func(mws ...func(http.Handler) http.Handler) []func(http.Handler) http.Handler {
		if params.RedisClient == nil {
			return nil
		}
		return mws
	}
	submitPolicy := middleware.NewRateLimitPolicy("submit",
		cfg.RateLimit.SubmitWindow, cfg.RateLimit.SubmitIPLimit, cfg.RateLimit.SubmitEmailLimit)
	inboundPolicy := middleware.NewRateLimitPolicy("inbound",
		cfg.RateLimit.InboundWindow, cfg.RateLimit.InboundIPLimit, 0)

	var redisPinger redis.Pinger
	if params.RedisClient != nil {
		redisPinger = params.RedisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DBPinger, redisPinger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// public surface: catalog browse, the reservation form, the mail
		// provider callback
		r.Get("/items", controllers.ItemList(params.Inventory, logg))
		r.Get("/items/{itemId}", controllers.ItemGet(params.Inventory, logg))
		r.With(guarded(
			middleware.RateLimit(submitPolicy, params.RedisClient, logg),
			middleware.Idempotency(params.RedisClient, logg),
		)...).Post("/reservations", controllers.ReservationSubmit(params.Reservations, logg))
		r.With(guarded(
			middleware.RateLimit(inboundPolicy, params.RedisClient, logg),
		)...).Post("/webhooks/inbound-mail", webhookcontrollers.InboundMail(params.Messages, cfg.Inbound, logg))

		// staff surface
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			if params.RedisClient != nil {
				r.Use(middleware.Idempotency(params.RedisClient, logg))
			}

			r.Post("/items", controllers.ItemCreate(params.Inventory, logg))
			r.Patch("/items/{itemId}", controllers.ItemUpdate(params.Inventory, logg))
			r.Delete("/items/{itemId}", controllers.ItemDelete(params.Inventory, logg))

			r.Route("/reservations", func(r chi.Router) {
				r.Get("/", controllers.ReservationList(params.Reservations, logg))
				r.Route("/{reservationId}", func(r chi.Router) {
					r.Get("/", controllers.ReservationDetail(params.Reservations, logg))
					r.Delete("/", controllers.ReservationDelete(params.Reservations, logg))
					r.Post("/status", controllers.ReservationUpdateStatus(params.Reservations, logg))
					r.Post("/ready-for-pickup", controllers.ReservationReadyForPickup(params.Reservations, logg))
					r.Post("/picked-up", controllers.ReservationPickedUp(params.Reservations, logg))
					r.Post("/viewed", controllers.ReservationMarkViewed(params.Reservations, logg))
					r.Get("/messages", controllers.MessageThread(params.Messages, logg))
					r.Post("/messages", controllers.MessageAppend(params.Messages, logg))
					r.Get("/records", controllers.CheckoutListByReservation(params.Checkouts, logg))
					r.Post("/return-all", controllers.CheckoutReturnAll(params.Checkouts, logg))
				})
			})

			r.Route("/checkouts", func(r chi.Router) {
				r.Post("/", controllers.CheckoutCreate(params.Checkouts, logg))
				r.Get("/active", controllers.CheckoutListActive(params.Checkouts, logg))
				r.Get("/overdue", controllers.CheckoutListOverdue(params.Checkouts, logg))
				r.Post("/{recordId}/return", controllers.CheckoutReturn(params.Checkouts, logg))
			})

			r.Get("/triage/counts", controllers.TriageCounts(params.Triage, logg))

			r.With(middleware.RequireRole("admin", logg)).
				Post("/admin/retention/sweep", controllers.RetentionSweep(params.Retention, logg))
		})
	})

	return r
}
