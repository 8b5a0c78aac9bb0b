package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/courseworks/fulfillment-backend/api/routes"
	"github.com/courseworks/fulfillment-backend/internal/checkout"
	"github.com/courseworks/fulfillment-backend/internal/entitlements"
	"github.com/courseworks/fulfillment-backend/internal/fulfillment"
	"github.com/courseworks/fulfillment-backend/internal/notifier"
	"github.com/courseworks/fulfillment-backend/internal/payments"
	"github.com/courseworks/fulfillment-backend/internal/products"
	"github.com/courseworks/fulfillment-backend/pkg/config"
	"github.com/courseworks/fulfillment-backend/pkg/db"
	"github.com/courseworks/fulfillment-backend/pkg/logger"
	"github.com/courseworks/fulfillment-backend/pkg/metrics"
	"github.com/courseworks/fulfillment-backend/pkg/migrate"
	"github.com/courseworks/fulfillment-backend/pkg/redis"
	"github.com/courseworks/fulfillment-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	sender, err := notifier.NewSendgridSender(cfg.Mail.SendgridAPIKey)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail sender", err)
		os.Exit(1)
	}
	notifierService, err := notifier.NewService(sender, cfg.Mail, cfg.Stripe.DashboardBaseURL, logg, webhookMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	guard, err := fulfillment.NewDuplicateGuard(redisClient, cfg.Stripe.GuardTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create duplicate guard", err)
		os.Exit(1)
	}

	entitlementsRepo := entitlements.NewRepository(dbClient.DB())

	fulfillmentService, err := fulfillment.NewService(fulfillment.Deps{
		Client:       dbClient,
		Claims:       fulfillment.NewClaimRepository(dbClient.DB()),
		Payments:     payments.NewRepository(dbClient.DB()),
		Entitlements: entitlementsRepo,
		Products:     products.NewRepository(dbClient.DB()),
		Access:       entitlements.NewAccessClient(cfg.MemberArea, logg),
		Notifier:     notifierService,
		PaymentLog:   payments.NewFileLogger(cfg.Fulfillment.PaymentLogPath),
		Guard:        guard,
		Metrics:      webhookMetrics,
		Logger:       logg,
	}, fulfillment.Options{
		ClaimLease:       cfg.Fulfillment.ClaimLease,
		StoreTimeout:     cfg.Fulfillment.StoreTimeout,
		DefaultProductID: cfg.Fulfillment.DefaultProductID,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		checkout.NewStripeClient(stripeClient),
		products.NewRepository(dbClient.DB()),
		cfg.Fulfillment.DefaultProductID,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			stripeClient,
			fulfillmentService,
			checkoutService,
			entitlementsRepo,
			webhookMetrics,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
