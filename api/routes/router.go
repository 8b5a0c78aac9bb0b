package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/courseworks/fulfillment-backend/api/controllers"
	webhookcontrollers "github.com/courseworks/fulfillment-backend/api/controllers/webhooks"
	"github.com/courseworks/fulfillment-backend/api/middleware"
	checkoutsvc "github.com/courseworks/fulfillment-backend/internal/checkout"
	"github.com/courseworks/fulfillment-backend/internal/fulfillment"
	"github.com/courseworks/fulfillment-backend/pkg/config"
	"github.com/courseworks/fulfillment-backend/pkg/db"
	"github.com/courseworks/fulfillment-backend/pkg/logger"
	"github.com/courseworks/fulfillment-backend/pkg/metrics"
	"github.com/courseworks/fulfillment-backend/pkg/redis"
	"github.com/courseworks/fulfillment-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	stripeClient *stripe.Client,
	fulfillmentService fulfillment.Service,
	checkoutService checkoutsvc.Service,
	entitlementsReader controllers.EntitlementsReader,
	webhookMetrics *metrics.WebhookMetrics,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisP, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(
			fulfillmentService,
			stripeClient,
			cfg.Stripe.SignatureMaxAge,
			webhookMetrics,
			logg,
		))
	})

	r.Post("/api/v1/checkout", controllers.Checkout(checkoutService, logg))

	r.Route("/api/v1/entitlements", func(r chi.Router) {
		r.Get("/", controllers.ListEntitlements(entitlementsReader, logg))
		r.Get("/check", controllers.CheckEntitlement(entitlementsReader, logg))
	})

	return r
}
