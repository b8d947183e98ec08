package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/frahmantamala/credify/internal"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	migrationsDir   = "migrations"
	migrationsTable = "schema_migrations"
)

// DB bundles the ORM handle used by repositories with a sqlx handle over the same pool
// for raw queries.
type DB struct {
	Gorm   *gorm.DB
	SQL    *sqlx.DB
	Driver string
}

func Open(cfg internal.DatabaseConfig) (*DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	}

	var (
		gdb        *gorm.DB
		err        error
		driverName string
	)
	switch cfg.Driver {
	case internal.DriverPostgres:
		sqlDB, openErr := sql.Open("pgx", cfg.Source)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open postgres connection: %w", openErr)
		}
		gdb, err = gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
		driverName = "pgx"
	case internal.DriverSQLite, "":
		gdb, err = gorm.Open(sqlite.Open(cfg.Source), gormCfg)
		driverName = "sqlite3"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		Gorm:   gdb,
		SQL:    sqlx.NewDb(sqlDB, driverName),
		Driver: cfg.Driver,
	}, nil
}

func (db *DB) Close() error {
	return db.SQL.Close()
}

func (db *DB) dialect() string {
	if db.Driver == internal.DriverPostgres {
		return "postgres"
	}
	return "sqlite3"
}

func (db *DB) prepareGoose() error {
	goose.SetBaseFS(migrations)
	goose.SetTableName(migrationsTable)
	return goose.SetDialect(db.dialect())
}

// Migrate applies every pending embedded migration.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.prepareGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.SQL.DB, migrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Rollback reverts the latest applied migration.
func (db *DB) Rollback(ctx context.Context) error {
	if err := db.prepareGoose(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, db.SQL.DB, migrationsDir); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// SchemaVersion reports the latest applied migration, zero when none ran.
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	var version sql.NullInt64
	query := fmt.Sprintf("SELECT MAX(version_id) FROM %s WHERE is_applied = ?", migrationsTable)
	if err := db.SQL.GetContext(ctx, &version, db.SQL.Rebind(query), true); err != nil {
		return 0, err
	}
	return version.Int64, nil
}

func (db *DB) PingContext(ctx context.Context) error {
	return db.SQL.PingContext(ctx)
}
