package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/payments"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Dependencies are the services and infrastructure the HTTP surface routes to.
type Dependencies struct {
	Orders           orders.Service
	Payments         payments.Service
	Webhooks         webhookcontrollers.PaymentEventHandler
	Sessions         session.AccessSessionChecker
	IdempotencyStore redis.IdempotencyStore
	Health           map[string]controllers.Pinger
	Gatherer         prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Health, logg))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.Webhooks, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			idem := middleware.Idempotency(deps.IdempotencyStore, requestIdempotencyTTL(cfg), logg)

			r.Route("/orders", func(r chi.Router) {
				r.With(idem).Post("/", ordercontrollers.Create(deps.Orders, logg))
				r.Get("/my", ordercontrollers.ListMine(deps.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Get(deps.Orders, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.With(idem).Post("/intent", paymentcontrollers.CreateIntent(deps.Payments, logg))
				r.With(idem).Post("/checkout-session", paymentcontrollers.CreateCheckoutSession(deps.Payments, logg))
			})

			r.Route("/admin/orders", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.MemberRoleAdmin))
				r.Get("/", ordercontrollers.AdminList(deps.Orders, logg))
				r.Delete("/", ordercontrollers.Purge(deps.Orders, logg))
				r.With(idem).Put("/{orderId}/accept", ordercontrollers.Accept(deps.Orders, logg))
				r.With(idem).Put("/{orderId}/reject", ordercontrollers.Reject(deps.Orders, logg))
			})
		})
	})

	return r
}

func requestIdempotencyTTL(cfg *config.Config) time.Duration {
	if cfg.Eventing.RequestIdempotencyTTL > 0 {
		return cfg.Eventing.RequestIdempotencyTTL
	}
	return 24 * time.Hour
}
