package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NeuroShelf10/Neuroestante/api/controllers"
	webhookcontrollers "github.com/NeuroShelf10/Neuroestante/api/controllers/webhooks"
	"github.com/NeuroShelf10/Neuroestante/api/middleware"
	"github.com/NeuroShelf10/Neuroestante/internal/accounts"
	"github.com/NeuroShelf10/Neuroestante/internal/assistant"
	"github.com/NeuroShelf10/Neuroestante/internal/billing"
	"github.com/NeuroShelf10/Neuroestante/internal/bookmarks"
	checkoutsvc "github.com/NeuroShelf10/Neuroestante/internal/checkout"
	"github.com/NeuroShelf10/Neuroestante/internal/entitlement"
	"github.com/NeuroShelf10/Neuroestante/internal/library"
	"github.com/NeuroShelf10/Neuroestante/internal/patients"
	stripewebhook "github.com/NeuroShelf10/Neuroestante/internal/webhooks/stripe"
	"github.com/NeuroShelf10/Neuroestante/pkg/auth/session"
	"github.com/NeuroShelf10/Neuroestante/pkg/config"
	"github.com/NeuroShelf10/Neuroestante/pkg/db"
	"github.com/NeuroShelf10/Neuroestante/pkg/logger"
	"github.com/NeuroShelf10/Neuroestante/pkg/metrics"
	"github.com/NeuroShelf10/Neuroestante/pkg/redis"
	"github.com/NeuroShelf10/Neuroestante/pkg/stripe"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	Session      session.AccessSessionChecker
	AccountsRepo accounts.Repository
	Accounts     accounts.Service
	Checkout     checkoutsvc.Service
	Billing      billing.Service
	Library      library.Service
	Patients     patients.Service
	Bookmarks    bookmarks.Service
	Assistant    assistant.Service
	Watcher      *entitlement.Watcher

	StripeClient *stripe.Client
	WebhookSvc   *stripewebhook.Service
	WebhookGuard *stripewebhook.IdempotencyGuard

	Registry       *prometheus.Registry
	HTTPMetrics    *metrics.HTTPMetrics
	WebhookMetrics *metrics.WebhookMetrics
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
		middleware.CORS(cfg.App.BaseURL),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(d.WebhookSvc, d.StripeClient, d.WebhookGuard, d.WebhookMetrics, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg)).Post("/register", controllers.AuthRegister(d.Accounts, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Accounts, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Session, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Accounts, logg))
			r.Post("/logout", controllers.AuthLogout(d.Accounts, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Session, logg))

		r.Get("/access", controllers.AccessDecision(d.AccountsRepo, logg))
		r.Get("/access/stream", controllers.AccessStream(d.AccountsRepo, d.Watcher, logg))

		r.Route("/account", func(r chi.Router) {
			r.Get("/", controllers.AccountProfile(d.Accounts, logg))
			r.Put("/", controllers.AccountUpdateProfile(d.Accounts, logg))
			r.Post("/consent", controllers.AccountAcceptConsent(d.Accounts, logg))
		})

		r.Route("/billing", func(r chi.Router) {
			r.Post("/checkout", controllers.CheckoutStart(d.Checkout, logg))
			r.Post("/portal", controllers.BillingPortal(d.Billing, logg))
			r.Get("/verify-session", controllers.BillingVerifySession(d.Billing, logg))
		})

		r.Route("/app", func(r chi.Router) {
			r.Use(middleware.Entitlement(d.AccountsRepo, logg))

			r.Route("/library", func(r chi.Router) {
				r.Get("/", controllers.LibraryList(d.Library, logg))
				r.Post("/", controllers.LibraryCreate(d.Library, logg))
				r.Put("/{id}", controllers.LibraryUpdate(d.Library, logg))
				r.Delete("/{id}", controllers.LibraryDelete(d.Library, logg))
			})

			r.Route("/patients", func(r chi.Router) {
				r.Get("/", controllers.PatientsList(d.Patients, logg))
				r.Post("/", controllers.PatientsCreate(d.Patients, logg))
				r.Get("/{id}", controllers.PatientsGet(d.Patients, logg))
				r.Put("/{id}", controllers.PatientsUpdate(d.Patients, logg))
				r.Delete("/{id}", controllers.PatientsDelete(d.Patients, logg))

				r.Post("/{id}/protocol", controllers.PatientsAddProtocolEntry(d.Patients, logg))
				r.Patch("/{id}/protocol/{entryID}", controllers.PatientsSetProtocolEntryDone(d.Patients, logg))
				r.Delete("/{id}/protocol/{entryID}", controllers.PatientsRemoveProtocolEntry(d.Patients, logg))

				r.Post("/{id}/sessions", controllers.PatientsAddSessionDay(d.Patients, logg))
				r.Delete("/{id}/sessions/{dayID}", controllers.PatientsRemoveSessionDay(d.Patients, logg))
			})

			r.Route("/bookmarks", func(r chi.Router) {
				r.Get("/", controllers.BookmarksList(d.Bookmarks, logg))
				r.Post("/", controllers.BookmarksCreate(d.Bookmarks, logg))
				r.Put("/{id}", controllers.BookmarksUpdate(d.Bookmarks, logg))
				r.Delete("/{id}", controllers.BookmarksDelete(d.Bookmarks, logg))
			})

			r.Post("/neura", controllers.NeuraChat(d.Assistant, logg))
		})
	})

	return r
}
