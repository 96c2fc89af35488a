// Package db opens the storefront's relational store: Postgres through pgx
// in deployments, or an embedded SQLite file when STOREFRONT_USE_SQLITE is
// set.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cyglobaltech/storefront-backend/pkg/config"
	"github.com/cyglobaltech/storefront-backend/pkg/db/models"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

const (
	memorySQLite  = "file::memory:?cache=shared"
	slowQueryTime = 500 * time.Millisecond
)

type Client struct {
	conn   *gorm.DB
	sqlite bool
}

// New opens and pools the connection. SQLite schemas come from AutoMigrate;
// Postgres schemas belong to the goose migrations.
func New(ctx context.Context, cfg config.DBConfig, useSQLite bool, logg *logger.Logger) (*Client, error) {
	dialector, err := dialectorFor(cfg, useSQLite)
	if err != nil {
		return nil, err
	}
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 queryLogger(ctx, logg),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}
	if err := tunePool(conn, cfg); err != nil {
		return nil, err
	}

	client := &Client{conn: conn, sqlite: useSQLite}
	if useSQLite {
		if err := client.AutoMigrate(); err != nil {
			return nil, err
		}
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", dialector.Name()), "db.connected")
	}
	return client, nil
}

func dialectorFor(cfg config.DBConfig, useSQLite bool) (gorm.Dialector, error) {
	if useSQLite {
		path := cfg.SQLitePath
		if path == "" {
			path = memorySQLite
		}
		return sqlite.Open(path), nil
	}
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
}

func tunePool(conn *gorm.DB, cfg config.DBConfig) error {
	pool, err := conn.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	return nil
}

// slowQueries routes gorm's slow query and error lines into the service log.
type slowQueries struct {
	ctx  context.Context
	logg *logger.Logger
}

func (s slowQueries) Printf(format string, args ...any) {
	s.logg.Warn(s.logg.WithField(s.ctx, "gorm", fmt.Sprintf(format, args...)), "db.query")
}

func queryLogger(ctx context.Context, logg *logger.Logger) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return gormlogger.New(slowQueries{ctx: context.WithoutCancel(ctx), logg: logg}, gormlogger.Config{
		SlowThreshold:             slowQueryTime,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
}

// NewFromConn wraps an open connection.
func NewFromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn, sqlite: conn != nil && conn.Dialector.Name() == "sqlite"}
}

// AutoMigrate creates the storefront tables for SQLite runs.
func (c *Client) AutoMigrate() error {
	if err := c.conn.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (c *Client) IsSQLite() bool { return c.sqlite }

func (c *Client) DB() *gorm.DB { return c.conn }

// Ping is the readiness check.
func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx commits when fn returns nil and rolls back on an error or panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
