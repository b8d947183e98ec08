package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/credify/internal/auth"
	"github.com/frahmantamala/credify/internal/backup"
	"github.com/frahmantamala/credify/internal/debt"
	"github.com/frahmantamala/credify/internal/observability"
	"github.com/frahmantamala/credify/internal/transport/middleware"
	"github.com/frahmantamala/credify/internal/transport/swagger"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
)

type RouterConfig struct {
	AllowedOrigins string
	OpenAPIPath    string
	MetricsPath    string
	// MaxBodyBytes caps every API request body. Zero means backup.MaxBackupSize.
	MaxBodyBytes int64
}

type Handlers struct {
	Health  *HealthHandler
	Auth    *auth.Handler
	Debt    *debt.Handler
	Backup  *backup.Handler
	Metrics *observability.Metrics
	// OpenAPI enables request validation when set.
	OpenAPI *openapi3.T
}

func RegisterAllRoutes(router *chi.Mux, cfg RouterConfig, h Handlers, logger *slog.Logger) error {
	router.Use(middleware.RequestID)
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	if h.Metrics != nil {
		router.Use(h.Metrics.Middleware)
	}

	var validate func(http.Handler) http.Handler
	if h.OpenAPI != nil {
		v, err := middleware.OpenAPIValidator(h.OpenAPI, logger)
		if err != nil {
			return err
		}
		validate = v
	}

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, cfg.OpenAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler())
	if h.Metrics != nil && cfg.MetricsPath != "" {
		router.Handle(cfg.MetricsPath, h.Metrics.Handler())
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = backup.MaxBackupSize
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(maxBody, logger))
		if validate != nil {
			r.Use(validate)
		}

		r.Get("/health", h.Health.healthCheckHandler)
		r.Get("/ping", h.Health.pingHandler)

		r.Post("/auth/login", h.Auth.Login)

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Route("/debts", func(dr chi.Router) {
				dr.Get("/", h.Debt.ListDebts)
				dr.Post("/", h.Debt.CreateDebt)
				dr.Delete("/", h.Debt.ClearDebts)
				dr.Get("/summary", h.Debt.Summary)
				dr.Get("/{id}", h.Debt.GetDebt)
				dr.Delete("/{id}", h.Debt.DeleteDebt)
				dr.Post("/{id}/payments", h.Debt.AddPayment)
				dr.Post("/{id}/reminder", h.Debt.Reminder)
			})

			pr.Get("/backup", h.Backup.Export)
			pr.Post("/backup", h.Backup.Import)
		})
	})

	return nil
}
