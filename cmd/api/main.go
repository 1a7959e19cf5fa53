package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/NeuroShelf10/Neuroestante/api/routes"
	"github.com/NeuroShelf10/Neuroestante/internal/accounts"
	"github.com/NeuroShelf10/Neuroestante/internal/assistant"
	"github.com/NeuroShelf10/Neuroestante/internal/billing"
	"github.com/NeuroShelf10/Neuroestante/internal/bookmarks"
	"github.com/NeuroShelf10/Neuroestante/internal/checkout"
	"github.com/NeuroShelf10/Neuroestante/internal/coupons"
	"github.com/NeuroShelf10/Neuroestante/internal/entitlement"
	"github.com/NeuroShelf10/Neuroestante/internal/library"
	"github.com/NeuroShelf10/Neuroestante/internal/patients"
	stripewebhook "github.com/NeuroShelf10/Neuroestante/internal/webhooks/stripe"
	"github.com/NeuroShelf10/Neuroestante/pkg/auth/session"
	"github.com/NeuroShelf10/Neuroestante/pkg/config"
	"github.com/NeuroShelf10/Neuroestante/pkg/db"
	"github.com/NeuroShelf10/Neuroestante/pkg/env"
	"github.com/NeuroShelf10/Neuroestante/pkg/logger"
	"github.com/NeuroShelf10/Neuroestante/pkg/metrics"
	"github.com/NeuroShelf10/Neuroestante/pkg/migrate"
	openaiclient "github.com/NeuroShelf10/Neuroestante/pkg/openai"
	"github.com/NeuroShelf10/Neuroestante/pkg/redis"
	"github.com/NeuroShelf10/Neuroestante/pkg/stripe"
)

const shutdownGrace = 15 * time.Second

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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	notifier := entitlement.NewNotifier(redisClient, logg)
	watcher := entitlement.NewWatcher(redisClient, logg)

	accountsRepo := accounts.NewRepository(dbClient.DB())
	couponsService, err := coupons.NewService(coupons.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}

	accountsService, err := accounts.NewService(accounts.ServiceParams{
		Repo:           accountsRepo,
		SessionManager: sessionManager,
		Notifier:       notifier,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create account service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:           dbClient,
		AccountRepo:  accountsRepo,
		Coupons:      couponsService,
		StripeClient: checkout.NewStripeClient(stripeClient),
		Prices:       stripeClient,
		Notifier:     notifier,
		BaseURL:      cfg.App.BaseURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billing.ServiceParams{
		AccountRepo:  accountsRepo,
		StripeClient: billing.NewStripeClient(stripeClient),
		Notifier:     notifier,
		BaseURL:      cfg.App.BaseURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		AccountRepo:       accountsRepo,
		Coupons:           couponsService,
		Ledger:            stripewebhook.NewRepository(dbClient.DB()),
		StripeClient:      stripewebhook.NewStripeClient(stripeClient),
		TransactionRunner: dbClient,
		Notifier:          notifier,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	libraryService, err := library.NewService(library.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create library service", err)
		os.Exit(1)
	}

	patientsService, err := patients.NewService(patients.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create patients service", err)
		os.Exit(1)
	}

	bookmarksService, err := bookmarks.NewService(bookmarks.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create bookmarks service", err)
		os.Exit(1)
	}

	var assistantService assistant.Service
	if cfg.OpenAI.APIKey != "" {
		aiClient, err := openaiclient.NewClient(context.Background(), cfg.OpenAI, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create openai client", err)
			os.Exit(1)
		}
		assistantService, err = assistant.NewService(aiClient)
		if err != nil {
			logg.Error(context.Background(), "failed to create assistant service", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "openai api key not set, assistant disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Session:        sessionManager,
		AccountsRepo:   accountsRepo,
		Accounts:       accountsService,
		Checkout:       checkoutService,
		Billing:        billingService,
		Library:        libraryService,
		Patients:       patientsService,
		Bookmarks:      bookmarksService,
		Assistant:      assistantService,
		Watcher:        watcher,
		StripeClient:   stripeClient,
		WebhookSvc:     webhookService,
		WebhookGuard:   webhookGuard,
		Registry:       registry,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		WebhookMetrics: metrics.NewWebhookMetrics(registry),
	})

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(ctx, "shutting down on signal "+sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
