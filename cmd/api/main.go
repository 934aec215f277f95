package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/barekegnn/misrak-shemeta-backend/api/routes"
	"github.com/barekegnn/misrak-shemeta-backend/internal/checkout"
	"github.com/barekegnn/misrak-shemeta-backend/internal/notifications"
	"github.com/barekegnn/misrak-shemeta-backend/internal/orders"
	"github.com/barekegnn/misrak-shemeta-backend/internal/products"
	"github.com/barekegnn/misrak-shemeta-backend/internal/shops"
	"github.com/barekegnn/misrak-shemeta-backend/internal/users"
	chapawebhook "github.com/barekegnn/misrak-shemeta-backend/internal/webhooks/chapa"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/chapa"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/config"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/db"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/logger"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/metrics"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/migrate"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/outbox"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/redis"
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

	chapaClient, err := chapa.NewClient(cfg.Chapa)
	if err != nil {
		logg.Error(context.Background(), "failed to create chapa client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	productsRepo := products.NewRepository(dbClient.DB())
	productsService, err := products.NewService(productsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	shopsService, err := shops.NewService(shops.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create shops service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:           ordersRepo,
		Tx:             dbClient,
		Outbox:         outboxService,
		Shops:          shopsService,
		Products:       productsService,
		Refunds:        chapaClient,
		Metrics:        orderMetrics,
		OTPMaxAttempts: cfg.OTP.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Orders:   ordersRepo,
		Products: productsRepo,
		Stock:    productsService,
		Shops:    shops.NewRepository(dbClient.DB()),
		Users:    users.NewRepository(dbClient.DB()),
		Payments: chapaClient,
		Failer:   ordersService,
		Outbox:   outboxService,
		Delivery: cfg.Delivery,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookGuard, err := chapawebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "chapa-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	webhookService, err := chapawebhook.NewService(chapawebhook.ServiceParams{
		Repo:     chapawebhook.NewRepository(dbClient.DB()),
		Engine:   ordersService,
		Verifier: chapaClient,
		Guard:    webhookGuard,
		Metrics:  orderMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Checkout:      checkoutService,
			OrdersRepo:    ordersRepo,
			Orders:        ordersService,
			Shops:         shopsService,
			Notifications: notificationsService,
			ChapaWebhook:  webhookService,
			Metrics:       registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
