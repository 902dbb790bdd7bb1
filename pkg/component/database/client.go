// Package database opens gorm connections for the SQL guide store.
//
// sqlite uses the pure-Go glebarez driver so the default build needs no cgo;
// mysql and postgres use the official gorm drivers.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/guidebot/pkg/component/storage"
	options "github.com/kart-io/guidebot/pkg/options/database"
)

// Client wraps gorm.DB.
type Client struct {
	db   *gorm.DB
	opts *options.Options
}

var _ storage.Client = (*Client)(nil)

// New opens the database, applies pool settings and pings.
func New(ctx context.Context, opts *options.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("database options cannot be nil")
	}
	if err := opts.Complete(); err != nil {
		return nil, err
	}
	if errs := opts.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid database options: %w", utilerrors.NewAggregate(errs))
	}

	dialector, err := newDialector(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(gormlogger.LogLevel(opts.LogLevel), opts.SlowThreshold, true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if opts.Driver == options.DriverSQLite {
		// sqlite 只允许单个写连接
		sqlDB.SetMaxOpenConns(1)
	} else {
		if opts.MaxIdleConnections > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConnections)
		}
		if opts.MaxOpenConnections > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConnections)
		}
	}
	if opts.MaxConnectionLifeTime > 0 {
		sqlDB.SetConnMaxLifetime(opts.MaxConnectionLifeTime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", opts.Driver, err)
	}

	return &Client{db: db, opts: opts}, nil
}

func newDialector(opts *options.Options) (gorm.Dialector, error) {
	switch opts.Driver {
	case options.DriverSQLite:
		if opts.Path != ":memory:" {
			if dir := filepath.Dir(opts.Path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
				}
			}
		}
		return sqlite.Open(opts.DSN()), nil
	case options.DriverMySQL:
		return mysql.Open(opts.DSN()), nil
	case options.DriverPostgres:
		return postgres.Open(opts.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}
}

// Name implements storage.Client.
func (c *Client) Name() string {
	return c.opts.Driver
}

// Ping implements storage.Client.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close implements storage.Client.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the gorm handle.
func (c *Client) DB() *gorm.DB {
	return c.db
}
