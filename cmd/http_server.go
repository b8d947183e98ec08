package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/credify/internal/auth"
	"github.com/frahmantamala/credify/internal/backup"
	"github.com/frahmantamala/credify/internal/debt"
	"github.com/frahmantamala/credify/internal/transport"
	"github.com/frahmantamala/credify/internal/transport/middleware"
	"github.com/frahmantamala/credify/internal/transport/rest"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	ctx := context.Background()

	app, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	router, err := newRouter(ctx, app)
	if err != nil {
		app.Close()
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	cfg := app.Config.Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	app.Logger.Info("Starting HTTP server",
		"address", addr,
		"driver", app.DB.Driver,
		"auth_enabled", app.Config.Security.AuthEnabled(),
		"cache_enabled", app.Cache != nil)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		app.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			app.Logger.Error("Server failed to start", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	app.Close()
	app.Logger.Info("Server stopped")
}

func newRouter(ctx context.Context, app *application) (*chi.Mux, error) {
	base := transport.NewBaseHandler(app.Logger)

	authService := auth.NewService(
		app.Config.Security.PasscodeHash,
		auth.NewJWTTokenGenerator(app.Config.Security.JWTSecret, app.Config.Security.TokenTTL),
		app.Logger,
	)

	var cachePinger rest.Pinger
	if app.Cache != nil {
		cachePinger = app.Cache
	}

	handlers := rest.Handlers{
		Health:  rest.NewHealthHandler(app.DB, app.DB.Driver, cachePinger),
		Auth:    auth.NewHandler(base, authService),
		Debt:    debt.NewHandler(base, app.Service),
		Backup:  backup.NewHandler(base, app.Service),
		Metrics: app.Metrics,
	}

	cfg := app.Config.Server
	if cfg.ValidateRequests {
		doc, err := middleware.LoadOpenAPI(ctx, cfg.OpenAPIPath)
		if err != nil {
			return nil, err
		}
		handlers.OpenAPI = doc
	}

	router := chi.NewRouter()
	err := rest.RegisterAllRoutes(router, rest.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		OpenAPIPath:    cfg.OpenAPIPath,
		MetricsPath:    app.Config.Observability.Metrics.Path,
	}, handlers, app.Logger)
	if err != nil {
		return nil, err
	}
	return router, nil
}
