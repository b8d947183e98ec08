package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Reminder      ReminderConfig      `mapstructure:"reminder"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type AppConfig struct {
	Env        string `mapstructure:"env"`
	Timezone   string `mapstructure:"timezone"`
	MinDueYear int    `mapstructure:"min_due_year"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	ValidateRequests  bool          `mapstructure:"validate_requests"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Source          string        `mapstructure:"source"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SecurityConfig struct {
	PasscodeHash string        `mapstructure:"passcode_hash"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
}

type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ReminderConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Language   string        `mapstructure:"language"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	Schedule   string        `mapstructure:"schedule"`
	MaxWorkers int           `mapstructure:"max_workers"`
	QueueSize  int           `mapstructure:"queue_size"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultConfig is the configuration for a single-device install with a local SQLite file.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:        "development",
			Timezone:   "America/Sao_Paulo",
			MinDueYear: 2026,
		},
		Server: ServerConfig{
			Port:              8080,
			OpenAPIPath:       "./api/openapi.yml",
			ValidateRequests:  true,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Source:          "credify.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Hour,
		},
		Security: SecurityConfig{
			TokenTTL: 12 * time.Hour,
		},
		Cache: CacheConfig{
			Timeout: 500 * time.Millisecond,
		},
		Reminder: ReminderConfig{
			BaseURL:    "https://generativelanguage.googleapis.com",
			Model:      "gemini-3-flash-preview",
			Language:   "pt-BR",
			Timeout:    20 * time.Second,
			MaxRetries: 3,
			Schedule:   "FREQ=DAILY;BYHOUR=9;BYMINUTE=0;BYSECOND=0",
			MaxWorkers: 2,
			QueueSize:  50,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// LoadConfigFromEnv overlays environment variables on top of DefaultConfig.
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Timezone = getEnv("APP_TIMEZONE", cfg.App.Timezone)
	cfg.App.MinDueYear = getEnvAsInt("APP_MIN_DUE_YEAR", cfg.App.MinDueYear)

	cfg.Server.Port = getEnvAsInt("HTTP_PORT", cfg.Server.Port)
	cfg.Server.AllowedOrigins = getEnv("HTTP_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)
	cfg.Server.OpenAPIPath = getEnv("HTTP_OPENAPI_PATH", cfg.Server.OpenAPIPath)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Source = getEnv("DB_SOURCE", cfg.Database.Source)
	cfg.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Security.PasscodeHash = getEnv("SECURITY_PASSCODE_HASH", cfg.Security.PasscodeHash)
	cfg.Security.JWTSecret = getEnv("SECURITY_JWT_SECRET", cfg.Security.JWTSecret)
	cfg.Security.TokenTTL = getEnvAsDuration("SECURITY_TOKEN_TTL", cfg.Security.TokenTTL)

	cfg.Cache.RedisURL = getEnv("REDIS_URL", cfg.Cache.RedisURL)

	cfg.Reminder.APIKey = getEnv("API_KEY", cfg.Reminder.APIKey)
	cfg.Reminder.Model = getEnv("REMINDER_MODEL", cfg.Reminder.Model)
	cfg.Reminder.Schedule = getEnv("REMINDER_SCHEDULE", cfg.Reminder.Schedule)
	cfg.Reminder.Timeout = getEnvAsDuration("REMINDER_TIMEOUT", cfg.Reminder.Timeout)

	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// Location resolves the configured timezone, falling back to the host's local zone.
func (c *AppConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.App.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("app config: %v", err))
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Cache.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("cache config: %v", err))
	}

	if err := c.Reminder.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("reminder config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *AppConfig) Validate() error {
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %s: %w", c.Timezone, err)
		}
	}
	if c.MinDueYear < 0 {
		return errors.New("min_due_year cannot be negative")
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

// AuthEnabled reports whether the API is locked behind a passcode.
func (c *SecurityConfig) AuthEnabled() bool {
	return c.PasscodeHash != ""
}

func (c *SecurityConfig) Validate() error {
	if !c.AuthEnabled() {
		return nil
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters when a passcode is set")
	}
	if c.TokenTTL < time.Minute {
		return errors.New("token_ttl must be at least 1m")
	}
	return nil
}

func (c *CacheConfig) Validate() error {
	if c.RedisURL == "" {
		return nil
	}
	if _, err := url.Parse(c.RedisURL); err != nil {
		return fmt.Errorf("invalid redis_url: %w", err)
	}
	return nil
}

func (c *ReminderConfig) Validate() error {
	if c.Schedule != "" {
		if _, err := rrule.StrToRRule(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule: %w", err)
		}
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries cannot be negative")
	}
	if c.APIKey != "" && c.BaseURL == "" {
		return errors.New("base_url is required when api_key is set")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid level %q", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid format %q", c.Format)
	}
	return nil
}
