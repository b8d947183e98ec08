package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/credify/internal"
	"github.com/frahmantamala/credify/internal/cache"
	"github.com/frahmantamala/credify/internal/core/events"
	"github.com/frahmantamala/credify/internal/database"
	"github.com/frahmantamala/credify/internal/debt"
	"github.com/frahmantamala/credify/internal/debt/store"
	"github.com/frahmantamala/credify/internal/observability"
	"github.com/frahmantamala/credify/internal/reminder"
	"github.com/frahmantamala/credify/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// application holds what every command needs to work on the ledger.
type application struct {
	Config  *internal.Config
	Logger  *slog.Logger
	DB      *database.DB
	Bus     *events.EventBus
	Metrics *observability.Metrics
	Redis   *redis.Client
	Cache   *cache.SummaryCache
	Service *debt.Service
}

func newApplication(ctx context.Context, cfg *internal.Config) (*application, error) {
	lg := logger.LoggerWrapper()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// A device-local SQLite file is kept at the latest schema on open.
	if cfg.Database.Driver == internal.DriverSQLite {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	app := &application{Config: cfg, Logger: lg, DB: db}

	if cfg.Observability.Metrics.Enabled {
		app.Metrics = observability.NewMetrics()
	}
	app.Bus = newEventBus(lg, app.Metrics)

	opts := []debt.Option{
		debt.WithClock(debt.SystemClock{Location: cfg.App.Location()}),
		debt.WithMinDueYear(cfg.App.MinDueYear),
		debt.WithPublisher(app.Bus),
		debt.WithReminderGenerator(newReminderGenerator(cfg.Reminder, lg)),
	}
	if app.Metrics != nil {
		opts = append(opts, debt.WithSummaryObserver(app.Metrics))
	}

	if cfg.Cache.RedisURL != "" {
		client, err := cache.NewClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			// the ledger works without the cache
			lg.Warn("summary cache disabled", "error", err)
		} else {
			app.Redis = client
			app.Cache = cache.NewSummaryCache(client, cfg.Cache.Timeout, lg)
			opts = append(opts, debt.WithSummaryCache(app.Cache))
		}
	}

	app.Service = debt.NewService(store.NewDebtRepository(db.Gorm), lg, opts...)
	return app, nil
}

func newReminderGenerator(cfg internal.ReminderConfig, lg *slog.Logger) debt.ReminderGenerator {
	if cfg.APIKey == "" {
		lg.Info("no reminder api key configured, using the built-in template")
		return reminder.NewTemplateGenerator()
	}
	return reminder.NewGeminiGenerator(reminder.GeminiConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Language:   cfg.Language,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}, &http.Client{}, lg)
}

// Close waits for event handlers and releases connections.
func (a *application) Close() {
	a.Bus.Wait()
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("redis close error", "error", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("database close error", "error", err)
	}
}

// setup loads the config and opens the application, for commands that need both.
func setup(ctx context.Context) (*application, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return newApplication(ctx, cfg)
}
