package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-puthelp/migrations"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config selects the database that backs client storage. It satisfies the
// go-persistence-bun client config.
type Config struct {
	Driver      string
	DSN         string
	Debug       bool
	PingTimeout time.Duration
	// SkipMigrations leaves schema management to the caller.
	SkipMigrations bool
	// Migrations are host schema sources applied after the client storage
	// tables. Sources for other dialects are skipped.
	Migrations []migrations.Source
}

func (c Config) GetDebug() bool {
	return c.Debug
}

func (c Config) GetDriver() string {
	return c.Driver
}

func (c Config) GetServer() string {
	return c.DSN
}

func (c Config) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c Config) GetOtelIdentifier() string {
	return "go-puthelp"
}

// Open connects, applies the embedded migrations for the driver's dialect and
// returns the persistence client with a Storage on top of it.
func Open(ctx context.Context, cfg Config) (*persistence.Client, *Storage, error) {
	cfg.Driver = strings.TrimSpace(strings.ToLower(cfg.Driver))
	if cfg.Driver == "sqlite" {
		cfg.Driver = DriverSQLite
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlstore: dsn is required")
	}
	dialect, migrationDialect, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlstore: open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}

	if !cfg.SkipMigrations {
		if err := migrate(ctx, client, migrationDialect, cfg.Migrations); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
	}

	storage, err := NewStorageFrom(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return client, storage, nil
}

func migrate(ctx context.Context, client *persistence.Client, dialect string, extra []migrations.Source) error {
	_, err := migrations.Register(ctx, func(_ context.Context, source migrations.Source) error {
		client.RegisterSQLMigrations(source.FS)
		return nil
	},
		migrations.WithValidationTargets(dialect),
		migrations.WithFilesystems(extra...),
	)
	if err != nil {
		return err
	}
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

func dialectFor(driver string) (schema.Dialect, string, error) {
	switch driver {
	case DriverSQLite:
		return sqlitedialect.New(), migrations.DialectSQLite, nil
	case DriverPostgres:
		return pgdialect.New(), migrations.DialectPostgres, nil
	default:
		return nil, "", fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

// NewStorageFrom builds a Storage over a *bun.DB or anything exposing
// DB() *bun.DB, such as a go-persistence-bun client.
func NewStorageFrom(candidate any) (*Storage, error) {
	db, err := resolveBunDB(candidate)
	if err != nil {
		return nil, err
	}
	return NewStorage(db)
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
