// Package database provides gorm connection options for the SQL guide store.
//
// Configuration Example (YAML):
//
//	database:
//	  driver: sqlite
//	  path: "data/guidebot.db"
//
//	database:
//	  driver: postgres
//	  host: 127.0.0.1
//	  port: 5432
//	  username: guidebot
//	  password: ${POSTGRES_PASSWORD}
//	  database: guidebot
package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/guidebot/pkg/options"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var _ options.IOptions = (*Options)(nil)

// Options defines configuration options for a relational database.
type Options struct {
	Driver string `json:"driver" mapstructure:"driver"`

	// Path is the sqlite database file, ":memory:" for a private in-memory database.
	Path string `json:"path" mapstructure:"path"`

	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"-" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"ssl-mode" mapstructure:"ssl-mode"`

	MaxIdleConnections    int           `json:"max-idle-connections" mapstructure:"max-idle-connections"`
	MaxOpenConnections    int           `json:"max-open-connections" mapstructure:"max-open-connections"`
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time" mapstructure:"max-connection-life-time"`

	// LogLevel follows gorm: 1 silent, 2 error, 3 warn, 4 info.
	LogLevel      int           `json:"log-level" mapstructure:"log-level"`
	SlowThreshold time.Duration `json:"slow-threshold" mapstructure:"slow-threshold"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Driver:                DriverSQLite,
		Path:                  "data/guidebot.db",
		Host:                  "127.0.0.1",
		Database:              "guidebot",
		SSLMode:               "disable",
		MaxIdleConnections:    5,
		MaxOpenConnections:    20,
		MaxConnectionLifeTime: 30 * time.Minute,
		LogLevel:              1,
		SlowThreshold:         200 * time.Millisecond,
	}
}

// Complete fills the driver's default port.
func (o *Options) Complete() error {
	o.Driver = strings.ToLower(strings.TrimSpace(o.Driver))
	if o.Port == 0 {
		switch o.Driver {
		case DriverMySQL:
			o.Port = 3306
		case DriverPostgres:
			o.Port = 5432
		}
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	var errs []error

	switch o.Driver {
	case DriverSQLite:
		if o.Path == "" {
			errs = append(errs, fmt.Errorf("database.path is required for sqlite"))
		}
	case DriverMySQL, DriverPostgres:
		if o.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required for %s", o.Driver))
		}
		if o.Port <= 0 || o.Port > 65535 {
			errs = append(errs, fmt.Errorf("database.port must be between 1 and 65535, got: %d", o.Port))
		}
		if o.Database == "" {
			errs = append(errs, fmt.Errorf("database.database is required for %s", o.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be one of sqlite, mysql, postgres, got: %q", o.Driver))
	}

	if o.LogLevel < 1 || o.LogLevel > 4 {
		errs = append(errs, fmt.Errorf("database.log-level must be between 1 and 4, got: %d", o.LogLevel))
	}
	return errs
}

// AddFlags adds flags for database options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "database."
	fs.StringVar(&o.Driver, p+"driver", o.Driver, "SQL driver (sqlite, mysql, postgres)")
	fs.StringVar(&o.Path, p+"path", o.Path, "SQLite database file")
	fs.StringVar(&o.Host, p+"host", o.Host, "Database host")
	fs.IntVar(&o.Port, p+"port", o.Port, "Database port, 0 for the driver default")
	fs.StringVar(&o.Username, p+"username", o.Username, "Database username")
	fs.StringVar(&o.Password, p+"password", o.Password, "Database password (prefer GUIDEBOT_DATABASE_PASSWORD)")
	fs.StringVar(&o.Database, p+"database", o.Database, "Database name")
	fs.StringVar(&o.SSLMode, p+"ssl-mode", o.SSLMode, "PostgreSQL sslmode")
	fs.IntVar(&o.MaxIdleConnections, p+"max-idle-connections", o.MaxIdleConnections, "Max idle connections")
	fs.IntVar(&o.MaxOpenConnections, p+"max-open-connections", o.MaxOpenConnections, "Max open connections")
	fs.DurationVar(&o.MaxConnectionLifeTime, p+"max-connection-life-time", o.MaxConnectionLifeTime, "Max connection life time")
	fs.IntVar(&o.LogLevel, p+"log-level", o.LogLevel, "gorm log level (1 silent, 2 error, 3 warn, 4 info)")
	fs.DurationVar(&o.SlowThreshold, p+"slow-threshold", o.SlowThreshold, "Queries slower than this are logged as warnings")
}

// DSN builds the driver-specific data source name.
func (o *Options) DSN() string {
	switch o.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			o.Username, url.QueryEscape(o.Password), o.Host, o.Port, o.Database)
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			o.Host, o.Port, o.Username, escapePostgresValue(o.Password), o.Database, o.SSLMode)
	default:
		return o.Path
	}
}

// escapePostgresValue quotes values containing spaces, quotes or backslashes.
func escapePostgresValue(value string) string {
	if value == "" {
		return "''"
	}
	if !strings.ContainsAny(value, " '\\") {
		return value
	}
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "'", "\\'")
	return "'" + escaped + "'"
}
